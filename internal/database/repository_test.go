package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/mediaconv/internal/config"
	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

// testDB connects to MEDIACONV_TEST_DATABASE_DSN or skips
func testDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("MEDIACONV_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("Skipping integration test - MEDIACONV_TEST_DATABASE_DSN not set")
	}

	db, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func testRepository(t *testing.T) *Repository {
	t.Helper()
	db := testDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	return NewRepository(db)
}

func strPtr(s string) *string { return &s }

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", DBName: "subs",
		SSLMode: "disable", MaxConns: 4, MinConns: 1,
	})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=subs sslmode=disable pool_max_conns=4 pool_min_conns=1", dsn)
}

func TestOpenInvalidDSN(t *testing.T) {
	_, err := Open(context.Background(), "host=localhost port=notaport")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.Health(ctx))
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrating an up-to-date database must succeed")

	subs, err := NewRepository(db).ListSubmissionsByEvent(ctx, "event-"+uuid.New().String())
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestRepository_ImportSubmissions(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()
	slug := "event-" + uuid.New().String()

	existing := &models.Submission{EventSlug: slug, Name: strPtr("Ada")}
	require.NoError(t, repo.CreateSubmission(ctx, existing))

	incoming := []*models.Submission{
		{ID: existing.ID, EventSlug: slug, Name: strPtr("Overwritten")},
		nil,
		{ID: uuid.New().String(), EventSlug: slug, AudioDataURL: strPtr("data:audio/webm;base64,AAAA")},
		{EventSlug: slug, Name: strPtr("No ID")},
	}
	created, skipped, err := repo.ImportSubmissions(ctx, incoming)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 1, skipped)
	assert.NotEmpty(t, incoming[3].ID)

	got, err := repo.GetSubmission(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", *got.Name)

	subs, err := repo.ListSubmissionsByEvent(ctx, slug)
	require.NoError(t, err)
	assert.Len(t, subs, 3)
}

func TestRepository_Submissions(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()
	slug := "event-" + uuid.New().String()
	base := time.Now().UTC().Truncate(time.Millisecond)

	first := &models.Submission{
		EventSlug:    slug,
		Name:         strPtr("Ada"),
		AudioDataURL: strPtr("data:audio/webm;base64,AAAA"),
		SubmittedAt:  base,
	}
	second := &models.Submission{
		EventSlug:    slug,
		VideoDataURL: strPtr("data:video/webm;base64,GkXfow=="),
		SubmittedAt:  base.Add(time.Second),
	}
	require.NoError(t, repo.CreateSubmission(ctx, second))
	require.NoError(t, repo.CreateSubmission(ctx, first))

	subs, err := repo.ListSubmissionsByEvent(ctx, slug)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, first.ID, subs[0].ID)
	assert.Equal(t, "Ada", *subs[0].Name)
	assert.Nil(t, subs[0].VideoDataURL)
	assert.Equal(t, second.ID, subs[1].ID)

	require.NoError(t, repo.UpdateSubmissionVideo(ctx, second.ID, "data:video/mp4;base64,AAAA"))
	got, err := repo.GetSubmission(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "data:video/mp4;base64,AAAA", *got.VideoDataURL)

	_, err = repo.GetSubmission(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.UpdateSubmissionVideo(ctx, uuid.New().String(), "x"), ErrNotFound)
}

func TestRepository_SaveExportReport(t *testing.T) {
	repo := testRepository(t)

	report := &models.ExportReport{
		ID:          uuid.New().String(),
		EventSlug:   "spring-gala",
		Submissions: 1,
		Written:     []models.ExportItem{{SubmissionID: "a", Kind: models.ExportKindAudio, Filename: "a_audio.wav", Size: 48}},
		StartedAt:   time.Now().UTC(),
		CompletedAt: time.Now().UTC(),
	}
	assert.NoError(t, repo.SaveExportReport(context.Background(), report))
}
