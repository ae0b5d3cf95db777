// Package wav encodes decoded audio as canonical 16-bit PCM WAV.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

const (
	// HeaderSize is the size of the canonical RIFF/fmt/data header
	HeaderSize = 44

	bytesPerSample = 2
	bitsPerSample  = 16
	formatPCM      = 1
	fmtChunkSize   = 16
)

// Header is the canonical 44-byte WAV header layout
type Header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * BlockAlign
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// SampleToInt16 converts a normalized float sample to signed 16-bit PCM.
// The sample is clamped to [-1, 1], then scaled by 32768 when negative and
// 32767 otherwise, and truncated toward zero. NaN maps to 0.
func SampleToInt16(sample float32) int16 {
	s := float64(sample)
	if math.IsNaN(s) {
		return 0
	}
	s = math.Max(-1, math.Min(1, s))
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// Encode serializes decoded audio as a canonical 16-bit PCM WAV file.
// Channels are interleaved frame by frame.
func Encode(audio *models.DecodedAudio) ([]byte, error) {
	if err := audio.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audio: %w", err)
	}

	numChannels := audio.NumChannels()
	frames := audio.Frames()
	blockAlign := numChannels * bytesPerSample
	dataSize := uint64(frames) * uint64(blockAlign)

	if numChannels > math.MaxUint16 {
		return nil, fmt.Errorf("too many channels: %d", numChannels)
	}
	if uint64(audio.SampleRate)*uint64(blockAlign) > math.MaxUint32 {
		return nil, fmt.Errorf("byte rate overflows WAV header: %d Hz x %d channels", audio.SampleRate, numChannels)
	}
	if dataSize+HeaderSize-8 > math.MaxUint32 {
		return nil, fmt.Errorf("audio too long for WAV: %d bytes of sample data", dataSize)
	}

	header := Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(HeaderSize - 8 + dataSize),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: fmtChunkSize,
		AudioFormat:   formatPCM,
		NumChannels:   uint16(numChannels),
		SampleRate:    uint32(audio.SampleRate),
		ByteRate:      uint32(audio.SampleRate) * uint32(blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataSize),
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+int(dataSize)))

	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	var sample [bytesPerSample]byte
	for i := 0; i < frames; i++ {
		for _, ch := range audio.Channels {
			binary.LittleEndian.PutUint16(sample[:], uint16(SampleToInt16(ch[i])))
			buf.Write(sample[:])
		}
	}

	return buf.Bytes(), nil
}

// Info describes a canonical WAV file
type Info struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	Frames        uint32  `json:"frames"`
}

// ParseInfo reads and validates a canonical 44-byte WAV header
func ParseInfo(data []byte) (*Info, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}

	var header Header
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF":
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	case string(header.Format[:]) != "WAVE":
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	case string(header.Subchunk1ID[:]) != "fmt ":
		return nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	case string(header.Subchunk2ID[:]) != "data":
		return nil, fmt.Errorf("invalid WAV file: missing data chunk")
	case header.AudioFormat != formatPCM:
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	case header.NumChannels == 0 || header.BlockAlign == 0:
		return nil, fmt.Errorf("invalid WAV file: zero channels")
	case header.SampleRate == 0:
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	if int64(header.ChunkSize) != int64(len(data))-8 {
		return nil, fmt.Errorf("RIFF size %d does not match file length %d", header.ChunkSize, len(data))
	}
	if int64(header.Subchunk2Size) != int64(len(data))-HeaderSize {
		return nil, fmt.Errorf("data size %d does not match payload length %d", header.Subchunk2Size, len(data)-HeaderSize)
	}

	frames := header.Subchunk2Size / uint32(header.BlockAlign)

	return &Info{
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		Duration:      float64(frames) / float64(header.SampleRate),
		DataSize:      header.Subchunk2Size,
		Frames:        frames,
	}, nil
}
