package transcoder

import (
	"context"
	"errors"
)

var (
	// ErrEngineLoad is returned when the transcoding engine fails to initialize
	ErrEngineLoad = errors.New("transcoding engine failed to load")

	// ErrTranscode is returned when writing, executing or reading against the engine fails
	ErrTranscode = errors.New("transcode failed")
)

// Engine is an embedded transcoding engine with a private scratch filesystem.
// Scratch files are addressed by bare file names.
type Engine interface {
	// Load performs one-time initialization
	Load(ctx context.Context) error
	// WriteFile creates a scratch file; it fails if the file already exists
	WriteFile(ctx context.Context, name string, data []byte) error
	// Exec runs the engine with ffmpeg-style arguments relative to the scratch filesystem
	Exec(ctx context.Context, args []string) error
	// ReadFile returns the contents of a scratch file. The returned slice may
	// alias engine-owned memory and must be copied before the next engine call.
	ReadFile(ctx context.Context, name string) ([]byte, error)
	// DeleteFile removes a scratch file; missing files yield an fs.ErrNotExist error
	DeleteFile(ctx context.Context, name string) error
}
