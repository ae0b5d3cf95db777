package transcoder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
)

// memEngine is an in-memory Engine. Exec "transcodes" by prefixing the input
// with "mp4:" and writing it to the output named by the last argument.
type memEngine struct {
	mu    sync.Mutex
	files map[string][]byte

	loadCalls atomic.Int32
	loadGate  chan struct{} // when set, Load blocks until closed
	loadErrs  []error       // consumed one per Load call

	execErr       error
	partialOutput bool // write a partial output before failing Exec
	writeErr      error
	lastArgs      []string
	lastRead      []byte
}

func newMemEngine() *memEngine {
	return &memEngine{files: make(map[string][]byte)}
}

func (m *memEngine) Load(ctx context.Context) error {
	m.loadCalls.Add(1)
	if m.loadGate != nil {
		<-m.loadGate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.loadErrs) > 0 {
		err := m.loadErrs[0]
		m.loadErrs = m.loadErrs[1:]
		return err
	}
	return nil
}

func (m *memEngine) WriteFile(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.files[name]; ok {
		return fmt.Errorf("write %s: %w", name, fs.ErrExist)
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

func (m *memEngine) Exec(ctx context.Context, args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastArgs = append([]string(nil), args...)

	var input string
	for i, a := range args {
		if a == "-i" && i+1 < len(args) {
			input = args[i+1]
		}
	}
	output := args[len(args)-1]

	if _, ok := m.files[output]; ok {
		return fmt.Errorf("output %s: %w", output, fs.ErrExist)
	}

	if m.execErr != nil {
		if m.partialOutput {
			m.files[output] = []byte("partial")
		}
		return m.execErr
	}

	data, ok := m.files[input]
	if !ok {
		return fmt.Errorf("input %s: %w", input, fs.ErrNotExist)
	}
	m.files[output] = append([]byte("mp4:"), data...)
	return nil
}

func (m *memEngine) ReadFile(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, fs.ErrNotExist)
	}
	m.lastRead = data
	return data, nil
}

func (m *memEngine) DeleteFile(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[name]; !ok {
		return fmt.Errorf("delete %s: %w", name, fs.ErrNotExist)
	}
	delete(m.files, name)
	return nil
}

func (m *memEngine) fileNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	return names
}

var errBoom = errors.New("boom")
