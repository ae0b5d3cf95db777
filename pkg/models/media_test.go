package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodedAudioValidate(t *testing.T) {
	tests := []struct {
		name    string
		audio   DecodedAudio
		wantErr bool
	}{
		{"mono", DecodedAudio{SampleRate: 8000, Channels: [][]float32{{0, 1}}}, false},
		{"stereo", DecodedAudio{SampleRate: 48000, Channels: [][]float32{{0, 1}, {1, 0}}}, false},
		{"empty frames", DecodedAudio{SampleRate: 48000, Channels: [][]float32{{}}}, false},
		{"zero rate", DecodedAudio{SampleRate: 0, Channels: [][]float32{{0}}}, true},
		{"no channels", DecodedAudio{SampleRate: 8000}, true},
		{"ragged", DecodedAudio{SampleRate: 8000, Channels: [][]float32{{0, 1}, {1}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.audio.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodedAudioFrames(t *testing.T) {
	audio := &DecodedAudio{SampleRate: 8000, Channels: [][]float32{{0, 1, 2}, {3, 4, 5}}}
	assert.Equal(t, 2, audio.NumChannels())
	assert.Equal(t, 3, audio.Frames())
	assert.Equal(t, 0, (&DecodedAudio{}).Frames())
}

func TestMediaBufferKind(t *testing.T) {
	assert.True(t, NewMediaBuffer(MIMETypeVideoMP4, nil).IsVideo())
	assert.True(t, NewMediaBuffer(MIMETypeAudioWAV, nil).IsAudio())
	assert.False(t, NewMediaBuffer(MIMETypeOctet, nil).IsVideo())
	assert.Equal(t, 3, NewMediaBuffer(MIMETypeAudioWAV, []byte{1, 2, 3}).Size())
}

func TestSubmissionHasMedia(t *testing.T) {
	audio := "data:audio/webm;base64,AAAA"
	empty := ""
	sub := Submission{ID: "sub_1", AudioDataURL: &audio, VideoDataURL: &empty}
	assert.True(t, sub.HasAudio())
	assert.False(t, sub.HasVideo())
}

func TestNilSubmissionHasNoMedia(t *testing.T) {
	var sub *Submission
	assert.False(t, sub.HasAudio())
	assert.False(t, sub.HasVideo())
}
