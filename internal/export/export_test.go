package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

type fakeAudio struct {
	calls int
	fail  map[string]error
}

func (f *fakeAudio) Convert(ctx context.Context, dataURL string) (*models.MediaBuffer, error) {
	f.calls++
	if err := f.fail[dataURL]; err != nil {
		return nil, err
	}
	return models.NewMediaBuffer(models.MIMETypeAudioWAV, []byte("wav:"+dataURL)), nil
}

type fakeVideo struct {
	calls int
	fail  map[string]error
}

func (f *fakeVideo) ToMP4(ctx context.Context, dataURL string) (*models.MediaBuffer, error) {
	f.calls++
	if err := f.fail[dataURL]; err != nil {
		return nil, err
	}
	return models.NewMediaBuffer(models.MIMETypeVideoMP4, []byte("mp4:"+dataURL)), nil
}

type mapCache struct {
	entries map[string]*models.MediaBuffer
	getErr  error
}

func (c *mapCache) GetConversion(ctx context.Context, kind, dataURL string) (*models.MediaBuffer, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[kind+"|"+dataURL], nil
}

func (c *mapCache) SetConversion(ctx context.Context, kind, dataURL string, buf *models.MediaBuffer, ttl time.Duration) error {
	c.entries[kind+"|"+dataURL] = buf
	return nil
}

func strPtr(s string) *string { return &s }

func submission(id, audio, video string) *models.Submission {
	sub := &models.Submission{ID: id, SubmittedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	if audio != "" {
		sub.AudioDataURL = strPtr(audio)
	}
	if video != "" {
		sub.VideoDataURL = strPtr(video)
	}
	return sub
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[f.Name] = string(content)
	}
	return entries
}

func TestExportWritesAllRecordings(t *testing.T) {
	audio, video := &fakeAudio{}, &fakeVideo{}
	exporter := NewExporter(audio, video, nil)

	subs := []*models.Submission{
		submission("s1", "a1", "v1"),
		submission("s2", "a2", ""),
		submission("s3", "", ""),
	}

	var buf bytes.Buffer
	report, err := exporter.Export(context.Background(), "gala", subs, &buf)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "gala", report.EventSlug)
	assert.Equal(t, 3, report.Submissions)
	assert.Equal(t, []string{"s1_audio.wav", "s1_video.mp4", "s2_audio.wav"}, report.Filenames())
	assert.Empty(t, report.Skipped)
	assert.False(t, report.CompletedAt.IsZero())

	entries := readArchive(t, buf.Bytes())
	assert.Equal(t, map[string]string{
		"s1_audio.wav": "wav:a1",
		"s1_video.mp4": "mp4:v1",
		"s2_audio.wav": "wav:a2",
	}, entries)
}

func TestExportSkipsFailedVideo(t *testing.T) {
	video := &fakeVideo{fail: map[string]error{"v2": errors.New("corrupt webm")}}
	exporter := NewExporter(&fakeAudio{}, video, nil)

	subs := []*models.Submission{
		submission("s1", "", "v1"),
		submission("s2", "", "v2"),
		submission("s3", "", "v3"),
	}

	var buf bytes.Buffer
	report, err := exporter.Export(context.Background(), "gala", subs, &buf)
	require.NoError(t, err)

	assert.Equal(t, 3, video.calls)
	assert.Equal(t, []string{"s1_video.mp4", "s3_video.mp4"}, report.Filenames())
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "s2", report.Skipped[0].SubmissionID)
	assert.Equal(t, models.ExportKindVideo, report.Skipped[0].Kind)
	assert.Equal(t, "corrupt webm", report.Skipped[0].Error)

	entries := readArchive(t, buf.Bytes())
	assert.Len(t, entries, 2)
	assert.Contains(t, entries, "s1_video.mp4")
	assert.Contains(t, entries, "s3_video.mp4")
}

func TestExportSkipsFailedAudio(t *testing.T) {
	audio := &fakeAudio{fail: map[string]error{"a1": errors.New("undecodable")}}
	exporter := NewExporter(audio, &fakeVideo{}, nil)

	var buf bytes.Buffer
	report, err := exporter.Export(context.Background(), "gala", []*models.Submission{submission("s1", "a1", "v1")}, &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"s1_video.mp4"}, report.Filenames())
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, models.ExportKindAudio, report.Skipped[0].Kind)
}

func TestExportSkipsNilSubmissions(t *testing.T) {
	exporter := NewExporter(&fakeAudio{}, &fakeVideo{}, nil)
	subs := []*models.Submission{nil, submission("s1", "a1", ""), nil}

	var buf bytes.Buffer
	report, err := exporter.Export(context.Background(), "gala", subs, &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"s1_audio.wav"}, report.Filenames())
	assert.Empty(t, report.Skipped)
	assert.Equal(t, map[string]string{"s1_audio.wav": "wav:a1"}, readArchive(t, buf.Bytes()))
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	report, err := NewExporter(&fakeAudio{}, &fakeVideo{}, nil).Export(context.Background(), "gala", nil, &buf)
	require.NoError(t, err)

	assert.Empty(t, report.Written)
	assert.Empty(t, readArchive(t, buf.Bytes()))
}

func TestExportUsesCache(t *testing.T) {
	audio, video := &fakeAudio{}, &fakeVideo{}
	cache := &mapCache{entries: map[string]*models.MediaBuffer{}}
	exporter := NewExporter(audio, video, nil).WithCache(cache, time.Hour)
	subs := []*models.Submission{submission("s1", "a1", "v1")}

	var first bytes.Buffer
	report, err := exporter.Export(context.Background(), "gala", subs, &first)
	require.NoError(t, err)
	assert.False(t, report.Written[0].Cached)

	var second bytes.Buffer
	report, err = exporter.Export(context.Background(), "gala", subs, &second)
	require.NoError(t, err)

	assert.Equal(t, 1, audio.calls)
	assert.Equal(t, 1, video.calls)
	assert.True(t, report.Written[0].Cached)
	assert.True(t, report.Written[1].Cached)
	assert.Equal(t, readArchive(t, first.Bytes()), readArchive(t, second.Bytes()))
}

func TestExportCacheFailureFallsBack(t *testing.T) {
	audio := &fakeAudio{}
	cache := &mapCache{entries: map[string]*models.MediaBuffer{}, getErr: errors.New("redis down")}
	exporter := NewExporter(audio, &fakeVideo{}, nil).WithCache(cache, time.Hour)

	var buf bytes.Buffer
	report, err := exporter.Export(context.Background(), "gala", []*models.Submission{submission("s1", "a1", "")}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, audio.calls)
	assert.Len(t, report.Written, 1)
}

func TestExportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	audio := &fakeAudio{}
	_, err := NewExporter(audio, &fakeVideo{}, nil).Export(ctx, "gala", []*models.Submission{submission("s1", "a1", "")}, io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, audio.calls)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestExportWriteFailureAborts(t *testing.T) {
	_, err := NewExporter(&fakeAudio{}, &fakeVideo{}, nil).Export(context.Background(), "gala",
		[]*models.Submission{submission("s1", "a1", "")}, failingWriter{})
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "gala_submissions.zip", ArchiveName("gala"))
	assert.Equal(t, "abc_audio.wav", EntryName("abc", models.ExportKindAudio))
	assert.Equal(t, "abc_video.mp4", EntryName("abc", models.ExportKindVideo))
}

func TestJSONFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submissions.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "s1", "name": null, "audioDataUrl": "data:audio/webm;base64,AAAA", "videoDataUrl": null, "transcript": null, "submittedAt": "2025-05-01T12:00:00Z"},
		{"id": "s2", "eventSlug": "other", "name": "Bo", "audioDataUrl": null, "videoDataUrl": "data:video/webm;base64,GkXfow==", "transcript": "hi", "submittedAt": "2025-05-01T12:01:00Z"},
		{"id": "s3", "eventSlug": "gala", "name": "Cy", "audioDataUrl": null, "videoDataUrl": null, "transcript": null, "submittedAt": "2025-05-01T12:02:00Z"}
	]`), 0o644))

	subs, err := NewJSONFileSource(path).ListSubmissions(context.Background(), "gala")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "s1", subs[0].ID)
	assert.True(t, subs[0].HasAudio())
	assert.Nil(t, subs[0].Name)
	assert.Equal(t, "s3", subs[1].ID)

	all, err := NewJSONFileSource(path).ListSubmissions(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestJSONFileSourceErrors(t *testing.T) {
	_, err := NewJSONFileSource(filepath.Join(t.TempDir(), "missing.json")).ListSubmissions(context.Background(), "gala")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o644))
	_, err = NewJSONFileSource(path).ListSubmissions(context.Background(), "gala")
	assert.Error(t, err)
}

type fakeLister struct {
	slug string
	subs []*models.Submission
}

func (f *fakeLister) ListSubmissionsByEvent(ctx context.Context, eventSlug string) ([]*models.Submission, error) {
	f.slug = eventSlug
	return f.subs, nil
}

func TestDBSource(t *testing.T) {
	lister := &fakeLister{subs: []*models.Submission{submission("s1", "a1", "")}}

	subs, err := NewDBSource(lister).ListSubmissions(context.Background(), "gala")
	require.NoError(t, err)
	assert.Equal(t, "gala", lister.slug)
	assert.Len(t, subs, 1)
}
