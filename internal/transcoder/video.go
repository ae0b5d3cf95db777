package transcoder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/therealutkarshpriyadarshi/mediaconv/internal/dataurl"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/metrics"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/tracing"
	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

const (
	inputBase  = "input"
	outputName = "output.mp4"
)

// TranscodeOptions holds the codec choices for MP4 output
type TranscodeOptions struct {
	VideoCodec string
	AudioCodec string
	Preset     string
	ExtraArgs  []string
}

// DefaultTranscodeOptions returns H.264 video with AAC audio
func DefaultTranscodeOptions() TranscodeOptions {
	return TranscodeOptions{
		VideoCodec: "libx264",
		AudioCodec: "aac",
	}
}

// Transcoder converts video data URLs to MP4.
// Slow-path conversions share fixed scratch file names, so they are
// serialized on the transcoder; the fast path never touches the engine.
type Transcoder struct {
	handle *EngineHandle
	opts   TranscodeOptions

	mu sync.Mutex
}

// NewTranscoder creates a transcoder driving the engine owned by handle
func NewTranscoder(handle *EngineHandle, opts TranscodeOptions) *Transcoder {
	defaults := DefaultTranscodeOptions()
	if opts.VideoCodec == "" {
		opts.VideoCodec = defaults.VideoCodec
	}
	if opts.AudioCodec == "" {
		opts.AudioCodec = defaults.AudioCodec
	}
	return &Transcoder{handle: handle, opts: opts}
}

// Handle returns the engine handle used by the transcoder
func (t *Transcoder) Handle() *EngineHandle {
	return t.handle
}

// ToMP4 returns the video carried by dataURL as an MP4 buffer.
// Input that is already MP4 is passed through unchanged.
func (t *Transcoder) ToMP4(ctx context.Context, dataURL string) (buf *models.MediaBuffer, err error) {
	start := time.Now()

	data, err := dataurl.Decode(dataURL)
	if err != nil {
		metrics.RecordError("transcoder", "format")
		return nil, err
	}

	container := Sniff(data)
	if dataurl.HasMIMEPrefix(dataURL, models.MIMETypeVideoMP4) || container == ContainerMP4 {
		metrics.RecordConversion(metrics.KindVideo, metrics.ResultPassthrough, time.Since(start).Seconds(), len(data), len(data))
		return models.NewMediaBuffer(models.MIMETypeVideoMP4, data), nil
	}

	span, ctx := tracing.StartConversionSpan(ctx, metrics.KindVideo, len(data))
	span.SetTag("media.container", container.String())
	defer func() {
		tracing.Finish(span, err)
		result, size := metrics.ResultSuccess, 0
		if err != nil {
			result = metrics.ResultFailed
		} else {
			size = buf.Size()
		}
		metrics.RecordConversion(metrics.KindVideo, result, time.Since(start).Seconds(), len(data), size)
	}()

	out, err := t.transcode(ctx, data, container)
	if err != nil {
		return nil, err
	}

	return models.NewMediaBuffer(models.MIMETypeVideoMP4, out), nil
}

// Args returns the engine arguments for converting inputName to output.mp4
func (t *Transcoder) Args(inputName string) []string {
	args := []string{
		"-i", inputName,
		"-c:v", t.opts.VideoCodec,
		"-c:a", t.opts.AudioCodec,
	}
	if t.opts.Preset != "" {
		args = append(args, "-preset", t.opts.Preset)
	}
	args = append(args, t.opts.ExtraArgs...)
	args = append(args, "-movflags", "+faststart", outputName)
	return args
}

func (t *Transcoder) transcode(ctx context.Context, data []byte, container Container) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	engine, err := t.handle.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	inputName := inputBase + "." + container.Extension()
	defer t.cleanup(context.WithoutCancel(ctx), engine, inputName, outputName)

	if err := engine.WriteFile(ctx, inputName, data); err != nil {
		metrics.RecordError("transcoder", "write")
		return nil, fmt.Errorf("%w: failed to write input: %v", ErrTranscode, err)
	}

	if err := engine.Exec(ctx, t.Args(inputName)); err != nil {
		metrics.RecordError("transcoder", "exec")
		return nil, fmt.Errorf("%w: %v", ErrTranscode, err)
	}

	out, err := engine.ReadFile(ctx, outputName)
	if err != nil {
		metrics.RecordError("transcoder", "read")
		return nil, fmt.Errorf("%w: failed to read output: %v", ErrTranscode, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: engine produced an empty output", ErrTranscode)
	}

	// The engine's buffer is only valid until its next call.
	result := make([]byte, len(out))
	copy(result, out)

	return result, nil
}

// cleanup removes the scratch files whatever the outcome of the conversion
func (t *Transcoder) cleanup(ctx context.Context, engine Engine, names ...string) {
	for _, name := range names {
		if err := engine.DeleteFile(ctx, name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			metrics.RecordError("transcoder", "cleanup")
			log.Warn().Err(err).Str("file", name).Msg("Failed to remove scratch file")
		}
	}
}
