// Package dataurl converts between data URLs and raw media bytes.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

// ErrFormat is returned for malformed or unsupported data URLs
var ErrFormat = errors.New("invalid data URL")

const (
	scheme       = "data:"
	base64Marker = ";base64,"
)

// Decode returns the payload bytes of a data URL.
// The header ends at the first comma outside double quotes. When that comma
// splits a parameter value, as in "codecs=vp9,opus;base64,", the header runs
// on to the ";base64," marker instead. A plain payload that itself looks like
// "value;base64," after a parameterised header, such as
// "data:text/plain;charset=utf-8,x;base64,", is read as base64.
func Decode(dataURL string) ([]byte, error) {
	comma := headerEnd(dataURL)
	if comma == -1 {
		return nil, fmt.Errorf("%w: missing comma delimiter", ErrFormat)
	}

	header := dataURL[:comma]
	payload := dataURL[comma+1:]

	if strings.HasPrefix(header, scheme) && !isBase64(header) {
		data, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return []byte(data), nil
	}

	return decodeBase64(payload)
}

// headerEnd returns the index of the comma that closes the header, or -1
func headerEnd(dataURL string) int {
	comma := -1
	quoted := false
	for i := 0; i < len(dataURL) && comma == -1; i++ {
		switch dataURL[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				comma = i
			}
		}
	}
	if comma == -1 || isBase64(dataURL[:comma]) {
		return comma
	}

	header := dataURL[:comma]
	semi := strings.LastIndexByte(header, ';')
	if semi == -1 || !strings.Contains(header[semi:], "=") {
		return comma
	}

	marker := strings.Index(dataURL[comma:], base64Marker)
	if marker == -1 || !isParamTail(dataURL[comma+1:comma+marker]) {
		return comma
	}
	return comma + marker + len(base64Marker) - 1
}

// isParamTail reports whether s reads as the rest of a parameter list:
// a value continuation followed by name=value pairs.
func isParamTail(s string) bool {
	if strings.ContainsAny(s, "/% \t\r\n") {
		return false
	}
	parts := strings.Split(s, ";")
	for _, p := range parts[1:] {
		if !strings.Contains(p, "=") {
			return false
		}
	}
	return true
}

// Parse decodes a data URL and returns its payload tagged with the declared MIME type
func Parse(dataURL string) (*models.MediaBuffer, error) {
	if !strings.HasPrefix(dataURL, scheme) {
		return nil, fmt.Errorf("%w: unsupported scheme", ErrFormat)
	}

	data, err := Decode(dataURL)
	if err != nil {
		return nil, err
	}

	return models.NewMediaBuffer(MIMEType(dataURL), data), nil
}

// MIMEType returns the media type declared in the data URL header, without parameters.
// An empty declaration yields text/plain as RFC 2397 specifies.
func MIMEType(dataURL string) string {
	if !strings.HasPrefix(dataURL, scheme) {
		return ""
	}
	header := dataURL[len(scheme):]
	if comma := strings.IndexByte(header, ','); comma != -1 {
		header = header[:comma]
	}
	if semi := strings.IndexByte(header, ';'); semi != -1 {
		header = header[:semi]
	}
	header = strings.ToLower(strings.TrimSpace(header))
	if header == "" {
		return "text/plain"
	}
	return header
}

// HasMIMEPrefix reports whether the data URL declares a type starting with prefix
func HasMIMEPrefix(dataURL, prefix string) bool {
	return strings.HasPrefix(MIMEType(dataURL), prefix)
}

// Encode builds a base64 data URL for the buffer
func Encode(buf *models.MediaBuffer) string {
	mimeType := buf.MIMEType
	if mimeType == "" {
		mimeType = models.MIMETypeOctet
	}

	var b strings.Builder
	b.Grow(len(scheme) + len(mimeType) + len(base64Marker) + base64.StdEncoding.EncodedLen(len(buf.Data)))
	b.WriteString(scheme)
	b.WriteString(mimeType)
	b.WriteString(base64Marker)
	b.WriteString(base64.StdEncoding.EncodeToString(buf.Data))
	return b.String()
}

func isBase64(header string) bool {
	params := strings.Split(header, ";")
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			return true
		}
	}
	return false
}

// decodeBase64 accepts padded or unpadded payloads and ignores embedded whitespace
func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, payload)
	payload = strings.TrimRight(payload, "=")

	data, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return data, nil
}
