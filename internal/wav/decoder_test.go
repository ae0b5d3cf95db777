package wav

import (
	"context"
	"encoding/binary"
	"math"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    streamLayout
		wantErr bool
	}{
		{
			name:   "opus stereo",
			output: `{"streams":[{"codec_type":"audio","codec_name":"opus","sample_rate":"48000","channels":2}]}`,
			want:   streamLayout{sampleRate: 48000, channels: 2},
		},
		{
			name:   "video stream first",
			output: `{"streams":[{"codec_type":"video","codec_name":"vp9"},{"codec_type":"audio","codec_name":"opus","sample_rate":"44100","channels":1}]}`,
			want:   streamLayout{sampleRate: 44100, channels: 1},
		},
		{name: "no streams", output: `{"streams":[]}`, wantErr: true},
		{name: "bad rate", output: `{"streams":[{"codec_type":"audio","sample_rate":"N/A","channels":1}]}`, wantErr: true},
		{name: "zero channels", output: `{"streams":[{"codec_type":"audio","sample_rate":"8000","channels":0}]}`, wantErr: true},
		{name: "not json", output: `garbage`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbe([]byte(tt.output))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDecode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeinterleave(t *testing.T) {
	samples := []float32{0.1, -0.1, 0.2, -0.2, 0.3, -0.3}
	pcm := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(pcm[4*i:], math.Float32bits(s))
	}

	audio, err := deinterleave(pcm, streamLayout{sampleRate: 8000, channels: 2})
	require.NoError(t, err)
	assert.Equal(t, 8000, audio.SampleRate)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, audio.Channels[0])
	assert.Equal(t, []float32{-0.1, -0.2, -0.3}, audio.Channels[1])

	_, err = deinterleave(pcm[:10], streamLayout{sampleRate: 8000, channels: 2})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFFmpegDecoderEmptyInput(t *testing.T) {
	_, err := NewFFmpegDecoder("ffmpeg", "ffprobe").Decode(context.Background(), nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available", bin)
		}
	}
}

func TestFFmpegDecoderRoundTrip(t *testing.T) {
	requireFFmpeg(t)

	src := &models.DecodedAudio{
		SampleRate: 16000,
		Channels: [][]float32{
			{0, 0.25, -0.25, 0.5, -0.5, 0.75, -0.75, 0},
			{0, -0.25, 0.25, -0.5, 0.5, -0.75, 0.75, 0},
		},
	}
	wavBytes, err := Encode(src)
	require.NoError(t, err)

	decoded, err := NewFFmpegDecoder("ffmpeg", "ffprobe").Decode(context.Background(), wavBytes)
	require.NoError(t, err)

	assert.Equal(t, 16000, decoded.SampleRate)
	require.Equal(t, 2, decoded.NumChannels())
	require.Equal(t, 8, decoded.Frames())
	for c := range src.Channels {
		for i := range src.Channels[c] {
			assert.InDelta(t, src.Channels[c][i], decoded.Channels[c][i], 1.0/16384)
		}
	}
}

func TestFFmpegDecoderRejectsNonAudio(t *testing.T) {
	requireFFmpeg(t)

	_, err := NewFFmpegDecoder("ffmpeg", "ffprobe").Decode(context.Background(), []byte("definitely not an audio container"))
	assert.ErrorIs(t, err, ErrDecode)
}
