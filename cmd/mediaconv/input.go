package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/therealutkarshpriyadarshi/mediaconv/internal/dataurl"
	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

var extensionTypes = map[string]string{
	".webm": models.MIMETypeVideoWebM,
	".mp4":  models.MIMETypeVideoMP4,
	".m4v":  models.MIMETypeVideoMP4,
	".mkv":  "video/x-matroska",
	".weba": models.MIMETypeAudioWebM,
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".wav":  models.MIMETypeAudioWAV,
}

// readInput returns the file at path as a data URL. Files holding a
// data URL are used as is; anything else is treated as raw media.
func readInput(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return toDataURL(path, data), nil
}

func toDataURL(path string, data []byte) string {
	if trimmed := bytes.TrimSpace(data); bytes.HasPrefix(trimmed, []byte("data:")) {
		return string(trimmed)
	}

	mimeType, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mimeType = models.MIMETypeOctet
	}
	return dataurl.Encode(models.NewMediaBuffer(mimeType, data))
}

func writeOutput(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
