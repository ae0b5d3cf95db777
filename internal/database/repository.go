package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

// ErrNotFound is returned when a submission does not exist
var ErrNotFound = errors.New("submission not found")

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

const submissionColumns = `id, event_slug, name, audio_data_url, video_data_url, transcript, submitted_at`

// Submissions

// CreateSubmission stores a new submission
func (r *Repository) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		sub.ID, sub.EventSlug, sub.Name, sub.AudioDataURL, sub.VideoDataURL,
		sub.Transcript, sub.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// GetSubmission retrieves a submission by ID
func (r *Repository) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	sub, err := scanSubmission(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return sub, nil
}

// ListSubmissionsByEvent returns the submissions of an event in
// submission order.
func (r *Repository) ListSubmissionsByEvent(ctx context.Context, eventSlug string) ([]*models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE event_slug = $1
		ORDER BY submitted_at, id
	`

	rows, err := r.db.Pool.Query(ctx, query, eventSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	return subs, nil
}

// UpdateSubmissionVideo replaces the stored video of a submission
func (r *Repository) UpdateSubmissionVideo(ctx context.Context, id string, videoDataURL string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE submissions SET video_data_url = $2 WHERE id = $1`, id, videoDataURL)
	if err != nil {
		return fmt.Errorf("failed to update submission video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ImportSubmissions stores subs that are not in the database yet.
// Submissions whose ID already exists are left untouched.
func (r *Repository) ImportSubmissions(ctx context.Context, subs []*models.Submission) (created, skipped int, err error) {
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if sub.ID != "" {
			_, err := r.GetSubmission(ctx, sub.ID)
			if err == nil {
				skipped++
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				return created, skipped, err
			}
		}
		if err := r.CreateSubmission(ctx, sub); err != nil {
			return created, skipped, err
		}
		created++
	}
	return created, skipped, nil
}

// Export reports

// SaveExportReport records the outcome of a batch export
func (r *Repository) SaveExportReport(ctx context.Context, report *models.ExportReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO export_reports (id, event_slug, submissions, written, skipped, report, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		report.ID, report.EventSlug, report.Submissions, len(report.Written), len(report.Skipped),
		data, report.StartedAt, report.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save export report: %w", err)
	}

	return nil
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var sub models.Submission
	err := row.Scan(
		&sub.ID, &sub.EventSlug, &sub.Name, &sub.AudioDataURL, &sub.VideoDataURL,
		&sub.Transcript, &sub.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
