package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FFmpegEngine implements Engine with an ffmpeg binary and a private temp directory
type FFmpegEngine struct {
	ffmpegPath string
	tempDir    string

	mu      sync.RWMutex
	dir     string
	version string
}

// NewFFmpegEngine creates a new FFmpeg engine. Nothing is touched until Load.
func NewFFmpegEngine(ffmpegPath, tempDir string) *FFmpegEngine {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpegEngine{
		ffmpegPath: ffmpegPath,
		tempDir:    tempDir,
	}
}

// Load resolves the ffmpeg binary, checks that it runs and creates the scratch directory
func (f *FFmpegEngine) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dir != "" {
		return nil
	}

	path, err := exec.LookPath(f.ffmpegPath)
	if err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, "-hide_banner", "-version")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg version check failed: %w, stderr: %s", err, stderr.String())
	}

	dir := filepath.Join(f.tempDir, "mediaconv-engine-"+uuid.New().String())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}

	f.ffmpegPath = path
	f.dir = dir
	f.version, _, _ = strings.Cut(stdout.String(), "\n")

	return nil
}

// Version returns the first line of `ffmpeg -version` once loaded
func (f *FFmpegEngine) Version() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}

// WriteFile creates a scratch file, refusing to overwrite an existing one
func (f *FFmpegEngine) WriteFile(ctx context.Context, name string, data []byte) error {
	path, err := f.scratchPath(name)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create scratch file %s: %w", name, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write scratch file %s: %w", name, err)
	}

	return file.Close()
}

// Exec runs ffmpeg inside the scratch directory
func (f *FFmpegEngine) Exec(ctx context.Context, args []string) error {
	f.mu.RLock()
	dir, ffmpegPath := f.dir, f.ffmpegPath
	f.mu.RUnlock()

	if dir == "" {
		return fmt.Errorf("engine not loaded")
	}

	fullArgs := append([]string{"-hide_banner", "-nostdin", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, ffmpegPath, fullArgs...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// ReadFile reads a scratch file
func (f *FFmpegEngine) ReadFile(ctx context.Context, name string) ([]byte, error) {
	path, err := f.scratchPath(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// DeleteFile removes a scratch file
func (f *FFmpegEngine) DeleteFile(ctx context.Context, name string) error {
	path, err := f.scratchPath(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// Close removes the scratch directory. The engine may be loaded again afterwards.
func (f *FFmpegEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dir == "" {
		return nil
	}
	err := os.RemoveAll(f.dir)
	f.dir = ""
	return err
}

// scratchPath maps a bare scratch file name to its location on disk
func (f *FFmpegEngine) scratchPath(name string) (string, error) {
	f.mu.RLock()
	dir := f.dir
	f.mu.RUnlock()

	if dir == "" {
		return "", fmt.Errorf("engine not loaded")
	}
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid scratch file name %q", name)
	}
	return filepath.Join(dir, name), nil
}
