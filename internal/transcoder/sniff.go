package transcoder

import (
	"bytes"
	"math/bits"

	"github.com/at-wat/ebml-go"
)

// Container identifies a media container family by its leading bytes
type Container int

const (
	ContainerUnknown Container = iota
	ContainerMP4
	ContainerWebM
	ContainerMatroska
)

func (c Container) String() string {
	switch c {
	case ContainerMP4:
		return "mp4"
	case ContainerWebM:
		return "webm"
	case ContainerMatroska:
		return "matroska"
	default:
		return "unknown"
	}
}

// Extension returns the file extension used for scratch input files
func (c Container) Extension() string {
	switch c {
	case ContainerMP4:
		return "mp4"
	case ContainerMatroska:
		return "mkv"
	default:
		return "webm"
	}
}

var ebmlMagic = []byte{0x1a, 0x45, 0xdf, 0xa3}

type ebmlDocument struct {
	Header ebmlHeader `ebml:"EBML"`
}

type ebmlHeader struct {
	EBMLVersion        uint64
	EBMLReadVersion    uint64
	EBMLDocType        string
	EBMLDocTypeVersion uint64
}

// Sniff identifies the container of data from its signature.
// ISO-BMFF files with an ftyp box count as MP4 unless branded QuickTime.
func Sniff(data []byte) Container {
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		if string(data[8:12]) == "qt  " {
			return ContainerUnknown
		}
		return ContainerMP4
	}

	if bytes.HasPrefix(data, ebmlMagic) {
		switch ebmlDocType(data) {
		case "webm":
			return ContainerWebM
		default:
			return ContainerMatroska
		}
	}

	return ContainerUnknown
}

// ebmlDocType decodes the EBML header element and returns its DocType
func ebmlDocType(data []byte) string {
	end, ok := ebmlHeaderEnd(data)
	if !ok {
		return ""
	}

	var doc ebmlDocument
	if err := ebml.Unmarshal(bytes.NewReader(data[:end]), &doc); err != nil {
		return ""
	}
	return doc.Header.EBMLDocType
}

// ebmlHeaderEnd returns the offset just past the EBML header element.
// Headers of unknown size are rejected: the decoder only bounds child
// elements by a parent whose size is known.
func ebmlHeaderEnd(data []byte) (int, bool) {
	idLen := len(ebmlMagic)
	if len(data) <= idLen || data[idLen] == 0 {
		return 0, false
	}

	first := data[idLen]
	width := bits.LeadingZeros8(first) + 1
	if len(data) < idLen+width {
		return 0, false
	}

	size := uint64(first & (0xff >> width))
	for _, b := range data[idLen+1 : idLen+width] {
		size = size<<8 | uint64(b)
	}
	if size == 1<<(7*width)-1 {
		return 0, false
	}

	if size > uint64(len(data)) {
		return 0, false
	}
	end := idLen + width + int(size)
	if end > len(data) {
		return 0, false
	}
	return end, true
}
