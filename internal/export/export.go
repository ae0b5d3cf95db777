// Package export bundles the recordings of an event into a zip archive.
package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/mediaconv/internal/logging"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/metrics"
	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

const (
	resultWritten = "written"
	resultSkipped = "skipped"
)

// AudioConverter converts an audio data URL to WAV
type AudioConverter interface {
	Convert(ctx context.Context, dataURL string) (*models.MediaBuffer, error)
}

// VideoConverter converts a video data URL to MP4
type VideoConverter interface {
	ToMP4(ctx context.Context, dataURL string) (*models.MediaBuffer, error)
}

// ResultCache stores converted buffers keyed by source data URL
type ResultCache interface {
	GetConversion(ctx context.Context, kind, dataURL string) (*models.MediaBuffer, error)
	SetConversion(ctx context.Context, kind, dataURL string, buf *models.MediaBuffer, ttl time.Duration) error
}

// Exporter writes submission recordings into zip archives
type Exporter struct {
	audio  AudioConverter
	video  VideoConverter
	cache  ResultCache
	ttl    time.Duration
	logger *logging.Logger
}

// NewExporter creates an exporter using the given converters
func NewExporter(audio AudioConverter, video VideoConverter, logger *logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Exporter{audio: audio, video: video, logger: logger}
}

// WithCache enables the conversion result cache
func (e *Exporter) WithCache(cache ResultCache, ttl time.Duration) *Exporter {
	e.cache = cache
	e.ttl = ttl
	return e
}

// ArchiveName returns the download name of an event archive
func ArchiveName(eventSlug string) string {
	return eventSlug + "_submissions.zip"
}

// EntryName returns the archive entry name for one recording
func EntryName(submissionID, kind string) string {
	if kind == models.ExportKindAudio {
		return submissionID + "_audio.wav"
	}
	return submissionID + "_video.mp4"
}

// Export converts every recording in subs and writes it to w as a zip
// archive. Submissions are handled one at a time in order. A recording
// that fails to convert is recorded in the report and skipped; only
// archive write errors and cancellation stop the export.
func (e *Exporter) Export(ctx context.Context, eventSlug string, subs []*models.Submission, w io.Writer) (*models.ExportReport, error) {
	report := &models.ExportReport{
		ID:          uuid.New().String(),
		EventSlug:   eventSlug,
		Submissions: len(subs),
		Written:     []models.ExportItem{},
		Skipped:     []models.ExportItem{},
		StartedAt:   time.Now().UTC(),
	}
	logger := e.logger.WithEventSlug(eventSlug).WithField("export_id", report.ID)

	zw := zip.NewWriter(w)

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return report, err
		}
		if sub == nil {
			continue
		}

		if sub.HasAudio() {
			if err := e.exportItem(ctx, zw, report, logger, sub, models.ExportKindAudio, *sub.AudioDataURL); err != nil {
				zw.Close()
				return report, err
			}
		}
		if sub.HasVideo() {
			if err := e.exportItem(ctx, zw, report, logger, sub, models.ExportKindVideo, *sub.VideoDataURL); err != nil {
				zw.Close()
				return report, err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return report, fmt.Errorf("failed to finalize archive: %w", err)
	}

	report.CompletedAt = time.Now().UTC()
	logger.Infof("Exported %d recordings from %d submissions, skipped %d",
		len(report.Written), report.Submissions, len(report.Skipped))
	return report, nil
}

// exportItem converts one recording and appends it to the archive.
// Conversion failures are recorded as skipped; the returned error is
// reserved for failures that abort the whole export.
func (e *Exporter) exportItem(ctx context.Context, zw *zip.Writer, report *models.ExportReport, logger *logging.Logger, sub *models.Submission, kind, dataURL string) error {
	item := models.ExportItem{
		SubmissionID: sub.ID,
		Kind:         kind,
		Filename:     EntryName(sub.ID, kind),
	}

	buf, cached, err := e.convert(ctx, kind, dataURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		item.Error = err.Error()
		report.Skipped = append(report.Skipped, item)
		metrics.RecordExportItem(kind, resultSkipped)
		logger.LogExportItem(sub.ID, kind, item.Filename, 0, err)
		return nil
	}

	header := &zip.FileHeader{
		Name:     item.Filename,
		Method:   zip.Deflate,
		Modified: sub.SubmittedAt,
	}
	if kind == models.ExportKindVideo {
		header.Method = zip.Store
	}
	if header.Modified.IsZero() {
		header.Modified = report.StartedAt
	}

	fw, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", item.Filename, err)
	}
	if _, err := fw.Write(buf.Data); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", item.Filename, err)
	}

	item.Size = buf.Size()
	item.Cached = cached
	report.Written = append(report.Written, item)
	metrics.RecordExportItem(kind, resultWritten)
	logger.LogExportItem(sub.ID, kind, item.Filename, item.Size, nil)
	return nil
}

func (e *Exporter) convert(ctx context.Context, kind, dataURL string) (*models.MediaBuffer, bool, error) {
	if e.cache != nil {
		buf, err := e.cache.GetConversion(ctx, kind, dataURL)
		if err != nil {
			e.logger.WithError(err).Warn("Conversion cache lookup failed")
		} else if buf != nil {
			return buf, true, nil
		}
	}

	var (
		buf *models.MediaBuffer
		err error
	)
	switch kind {
	case models.ExportKindAudio:
		buf, err = e.audio.Convert(ctx, dataURL)
	default:
		buf, err = e.video.ToMP4(ctx, dataURL)
	}
	if err != nil {
		return nil, false, err
	}

	if e.cache != nil {
		if err := e.cache.SetConversion(ctx, kind, dataURL, buf, e.ttl); err != nil {
			e.logger.WithError(err).Warn("Failed to cache conversion")
		}
	}
	return buf, false, nil
}
