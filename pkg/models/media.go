package models

import (
	"fmt"
	"strings"
)

// MIME types produced and consumed by the conversion core
const (
	MIMETypeAudioWAV  = "audio/wav"
	MIMETypeAudioWebM = "audio/webm"
	MIMETypeVideoMP4  = "video/mp4"
	MIMETypeVideoWebM = "video/webm"
	MIMETypeOctet     = "application/octet-stream"
)

// MediaBuffer is an encoded media payload tagged with its MIME type
type MediaBuffer struct {
	MIMEType string
	Data     []byte
}

// NewMediaBuffer creates a media buffer
func NewMediaBuffer(mimeType string, data []byte) *MediaBuffer {
	return &MediaBuffer{MIMEType: mimeType, Data: data}
}

// Size returns the payload size in bytes
func (m *MediaBuffer) Size() int {
	return len(m.Data)
}

// IsVideo reports whether the declared type is a video type
func (m *MediaBuffer) IsVideo() bool {
	return strings.HasPrefix(m.MIMEType, "video/")
}

// IsAudio reports whether the declared type is an audio type
func (m *MediaBuffer) IsAudio() bool {
	return strings.HasPrefix(m.MIMEType, "audio/")
}

// DecodedAudio holds linear PCM samples as normalized floats, one slice per channel
type DecodedAudio struct {
	SampleRate int
	Channels   [][]float32
}

// NumChannels returns the channel count
func (a *DecodedAudio) NumChannels() int {
	return len(a.Channels)
}

// Frames returns the number of sample frames
func (a *DecodedAudio) Frames() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// Validate checks the channel/rate invariants
func (a *DecodedAudio) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", a.SampleRate)
	}
	if len(a.Channels) == 0 {
		return fmt.Errorf("audio must have at least one channel")
	}
	frames := len(a.Channels[0])
	for i, ch := range a.Channels[1:] {
		if len(ch) != frames {
			return fmt.Errorf("channel %d has %d frames, channel 0 has %d", i+1, len(ch), frames)
		}
	}
	return nil
}
