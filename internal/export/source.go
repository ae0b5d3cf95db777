package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

// SubmissionSource lists the submissions of an event
type SubmissionSource interface {
	ListSubmissions(ctx context.Context, eventSlug string) ([]*models.Submission, error)
}

// JSONFileSource reads submissions from a JSON array on disk.
// Entries without an event slug belong to every event, and an empty
// slug lists the whole file.
type JSONFileSource struct {
	path string
}

// NewJSONFileSource creates a source backed by the file at path
func NewJSONFileSource(path string) *JSONFileSource {
	return &JSONFileSource{path: path}
}

// ListSubmissions implements SubmissionSource
func (s *JSONFileSource) ListSubmissions(ctx context.Context, eventSlug string) ([]*models.Submission, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read submissions file: %w", err)
	}

	var all []*models.Submission
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse submissions file: %w", err)
	}

	subs := make([]*models.Submission, 0, len(all))
	for _, sub := range all {
		if sub == nil {
			continue
		}
		if eventSlug == "" || sub.EventSlug == "" || sub.EventSlug == eventSlug {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

// SubmissionLister is the part of the database repository used by DBSource
type SubmissionLister interface {
	ListSubmissionsByEvent(ctx context.Context, eventSlug string) ([]*models.Submission, error)
}

// DBSource reads submissions from the submissions table
type DBSource struct {
	repo SubmissionLister
}

// NewDBSource creates a source backed by repo
func NewDBSource(repo SubmissionLister) *DBSource {
	return &DBSource{repo: repo}
}

// ListSubmissions implements SubmissionSource
func (s *DBSource) ListSubmissions(ctx context.Context, eventSlug string) ([]*models.Submission, error) {
	return s.repo.ListSubmissionsByEvent(ctx, eventSlug)
}
