package models

import "time"

// Submission is an attendee response as held by the submission store
type Submission struct {
	ID           string    `json:"id" db:"id"`
	EventSlug    string    `json:"eventSlug,omitempty" db:"event_slug"`
	Name         *string   `json:"name" db:"name"`
	AudioDataURL *string   `json:"audioDataUrl" db:"audio_data_url"`
	VideoDataURL *string   `json:"videoDataUrl" db:"video_data_url"`
	Transcript   *string   `json:"transcript" db:"transcript"`
	SubmittedAt  time.Time `json:"submittedAt" db:"submitted_at"`
}

// HasAudio reports whether the submission carries an audio recording
func (s *Submission) HasAudio() bool {
	return s != nil && s.AudioDataURL != nil && *s.AudioDataURL != ""
}

// HasVideo reports whether the submission carries a video recording
func (s *Submission) HasVideo() bool {
	return s != nil && s.VideoDataURL != nil && *s.VideoDataURL != ""
}

// Export item kinds
const (
	ExportKindAudio = "audio"
	ExportKindVideo = "video"
)

// ExportItem records the outcome of one archive entry
type ExportItem struct {
	SubmissionID string `json:"submission_id"`
	Kind         string `json:"kind"`
	Filename     string `json:"filename,omitempty"`
	Size         int    `json:"size"`
	Cached       bool   `json:"cached,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ExportReport summarizes a batch export
type ExportReport struct {
	ID          string       `json:"id"`
	EventSlug   string       `json:"event_slug,omitempty"`
	Submissions int          `json:"submissions"`
	Written     []ExportItem `json:"written"`
	Skipped     []ExportItem `json:"skipped"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
}

// Filenames returns the archive entry names in write order
func (r *ExportReport) Filenames() []string {
	names := make([]string, 0, len(r.Written))
	for _, item := range r.Written {
		names = append(names, item.Filename)
	}
	return names
}
