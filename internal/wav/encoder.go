package wav

import (
	"context"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/mediaconv/internal/dataurl"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/metrics"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/tracing"
	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

// Encoder converts audio data URLs to WAV buffers.
// It holds no mutable state and may be used concurrently.
type Encoder struct {
	decoder Decoder
}

// NewEncoder creates a new encoder backed by the given decoder
func NewEncoder(decoder Decoder) *Encoder {
	return &Encoder{decoder: decoder}
}

// Convert decodes the audio carried by dataURL and re-encodes it as 16-bit PCM WAV
func (e *Encoder) Convert(ctx context.Context, dataURL string) (buf *models.MediaBuffer, err error) {
	start := time.Now()

	data, err := dataurl.Decode(dataURL)
	if err != nil {
		metrics.RecordError("wav", "format")
		return nil, err
	}

	span, ctx := tracing.StartConversionSpan(ctx, metrics.KindAudio, len(data))
	defer func() {
		tracing.Finish(span, err)
		result, size := metrics.ResultSuccess, 0
		if err != nil {
			result = metrics.ResultFailed
		} else {
			size = buf.Size()
		}
		metrics.RecordConversion(metrics.KindAudio, result, time.Since(start).Seconds(), len(data), size)
	}()

	audio, err := e.decoder.Decode(ctx, data)
	if err != nil {
		metrics.RecordError("wav", "decode")
		return nil, err
	}

	out, err := Encode(audio)
	if err != nil {
		return nil, fmt.Errorf("failed to encode WAV: %w", err)
	}

	return models.NewMediaBuffer(models.MIMETypeAudioWAV, out), nil
}
