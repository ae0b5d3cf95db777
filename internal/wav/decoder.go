package wav

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

// ErrDecode is returned when the audio bytes are not a decodable audio container
var ErrDecode = errors.New("audio decode failed")

// Decoder turns compressed audio bytes into linear PCM
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*models.DecodedAudio, error)
}

// FFmpegDecoder decodes audio by piping it through ffprobe and ffmpeg
type FFmpegDecoder struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegDecoder creates a new FFmpeg-backed decoder
func NewFFmpegDecoder(ffmpegPath, ffprobePath string) *FFmpegDecoder {
	return &FFmpegDecoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// streamLayout is the sample rate and channel count of the first audio stream
type streamLayout struct {
	sampleRate int
	channels   int
}

// Decode decodes the first audio stream of data to normalized float samples
func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte) (*models.DecodedAudio, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	layout, err := d.probe(ctx, data)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-map", "0:a:0",
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", strconv.Itoa(layout.channels),
		"-ar", strconv.Itoa(layout.sampleRate),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffmpeg failed: %v, stderr: %s", ErrDecode, err, stderr.String())
	}

	return deinterleave(stdout.Bytes(), layout)
}

func (d *FFmpegDecoder) probe(ctx context.Context, data []byte) (streamLayout, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		"-i", "pipe:0",
	}

	cmd := exec.CommandContext(ctx, d.ffprobePath, args...)
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return streamLayout{}, ctx.Err()
		}
		return streamLayout{}, fmt.Errorf("%w: ffprobe failed: %v, stderr: %s", ErrDecode, err, stderr.String())
	}

	return parseProbe(stdout.Bytes())
}

// parseProbe extracts the audio layout from ffprobe JSON output
func parseProbe(out []byte) (streamLayout, error) {
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return streamLayout{}, fmt.Errorf("%w: failed to parse ffprobe output: %v", ErrDecode, err)
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		rate, err := strconv.Atoi(stream.SampleRate)
		if err != nil || rate <= 0 {
			return streamLayout{}, fmt.Errorf("%w: invalid sample rate %q", ErrDecode, stream.SampleRate)
		}
		if stream.Channels <= 0 {
			return streamLayout{}, fmt.Errorf("%w: invalid channel count %d", ErrDecode, stream.Channels)
		}
		return streamLayout{sampleRate: rate, channels: stream.Channels}, nil
	}

	return streamLayout{}, fmt.Errorf("%w: no audio stream found", ErrDecode)
}

// deinterleave splits interleaved little-endian float32 PCM into channels
func deinterleave(pcm []byte, layout streamLayout) (*models.DecodedAudio, error) {
	frameSize := 4 * layout.channels
	if len(pcm)%frameSize != 0 {
		return nil, fmt.Errorf("%w: truncated PCM output (%d bytes, frame size %d)", ErrDecode, len(pcm), frameSize)
	}

	frames := len(pcm) / frameSize
	channels := make([][]float32, layout.channels)
	for c := range channels {
		channels[c] = make([]float32, frames)
	}

	offset := 0
	for i := 0; i < frames; i++ {
		for c := 0; c < layout.channels; c++ {
			channels[c][i] = math.Float32frombits(binary.LittleEndian.Uint32(pcm[offset:]))
			offset += 4
		}
	}

	return &models.DecodedAudio{
		SampleRate: layout.sampleRate,
		Channels:   channels,
	}, nil
}
