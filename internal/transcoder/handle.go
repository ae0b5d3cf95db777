package transcoder

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/therealutkarshpriyadarshi/mediaconv/internal/metrics"
)

// EngineState is the lifecycle state of an EngineHandle
type EngineState int32

const (
	StateUninitialized EngineState = iota
	StateLoading
	StateReady
)

func (s EngineState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("EngineState(%d)", int32(s))
	}
}

// EngineHandle owns a lazily loaded Engine.
// Concurrent Acquire calls share a single in-flight load. A failed load
// leaves the handle uninitialized so a later Acquire retries. Once ready
// the engine is reused and never torn down by the handle.
type EngineHandle struct {
	engine Engine

	mu    sync.Mutex
	state EngineState
	group singleflight.Group
	loads atomic.Int64
}

// NewEngineHandle wraps an engine that has not been loaded yet
func NewEngineHandle(engine Engine) *EngineHandle {
	return &EngineHandle{engine: engine}
}

// State returns the current lifecycle state
func (h *EngineHandle) State() EngineState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// LoadCount returns how many engine loads have been started
func (h *EngineHandle) LoadCount() int64 {
	return h.loads.Load()
}

// Acquire returns the loaded engine, loading it first if needed.
// A caller whose ctx ends while waiting gets ctx.Err(); the shared load keeps going.
func (h *EngineHandle) Acquire(ctx context.Context) (Engine, error) {
	h.mu.Lock()
	ready := h.state == StateReady
	h.mu.Unlock()
	if ready {
		return h.engine, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := h.group.DoChan("load", func() (interface{}, error) {
		return nil, h.load(loadCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return h.engine, nil
	}
}

func (h *EngineHandle) load(ctx context.Context) error {
	h.mu.Lock()
	if h.state == StateReady {
		h.mu.Unlock()
		return nil
	}
	h.state = StateLoading
	h.mu.Unlock()

	h.loads.Add(1)
	start := time.Now()
	err := h.engine.Load(ctx)
	elapsed := time.Since(start)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.state = StateUninitialized
		metrics.RecordEngineLoad(metrics.ResultFailed, elapsed.Seconds())
		log.Error().Err(err).Dur("duration_ms", elapsed).Msg("Transcoding engine failed to load")
		return fmt.Errorf("%w: %v", ErrEngineLoad, err)
	}

	h.state = StateReady
	metrics.RecordEngineLoad(metrics.ResultSuccess, elapsed.Seconds())
	log.Info().Dur("duration_ms", elapsed).Msg("Transcoding engine loaded")
	return nil
}
