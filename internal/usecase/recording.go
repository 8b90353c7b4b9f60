package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"murmur/internal/domain"
	"murmur/internal/eventbus"
	"murmur/internal/future"
	"murmur/internal/ports"
)

var (
	// ErrCaptureActive is returned when starting capture twice.
	ErrCaptureActive = errors.New("capture already active")
	// ErrNoCapture is returned when stopping without an active capture.
	ErrNoCapture = errors.New("no active capture")
)

// RecordingCoordinator owns the record/stop lifecycle against the capture
// backend. It tracks only its own operational status (whether a capture is
// live); session phase belongs to the Manager alone.
type RecordingCoordinator struct {
	recorder ports.Recorder
	bus      *eventbus.Bus
	log      zerolog.Logger

	mu        sync.Mutex
	session   ports.CaptureSession
	startedAt time.Time
}

func NewRecordingCoordinator(recorder ports.Recorder, bus *eventbus.Bus, log zerolog.Logger) *RecordingCoordinator {
	return &RecordingCoordinator{recorder: recorder, bus: bus, log: log}
}

// Start begins chunked capture. The returned future settles with the capture
// start time, or rejects if the backend fails to begin. Chunk and error
// callbacks are invoked from the backend's own goroutines.
func (c *RecordingCoordinator) Start(
	ctx context.Context,
	cfg ports.CaptureConfig,
	language string,
	onChunk ports.ChunkHandler,
	onError ports.ErrorHandler,
) *future.Future[time.Time] {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return future.Rejected[time.Time](ErrCaptureActive)
	}
	c.mu.Unlock()

	session, err := c.recorder.Start(ctx, cfg, onChunk, onError)
	if err != nil {
		err = fmt.Errorf("start capture: %w", err)
		c.bus.Publish(domain.EventRecordingError, domain.RecordingPayload{Err: err.Error()})
		return future.Rejected[time.Time](err)
	}

	started := time.Now()
	c.mu.Lock()
	c.session = session
	c.startedAt = started
	c.mu.Unlock()

	c.log.Info().Str("language", language).Str("prefix", cfg.FilenamePrefix).Msg("capture started")
	c.bus.Publish(domain.EventRecordingStarted, domain.RecordingPayload{Language: language, StartedAt: started})
	return future.Resolved(started)
}

// Stop finalizes capture. The future resolves only after the backend has
// delivered any final chunk through the session's chunk callback and the
// chunk stream has ended.
func (c *RecordingCoordinator) Stop(ctx context.Context) *future.Future[time.Duration] {
	c.mu.Lock()
	session := c.session
	startedAt := c.startedAt
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return future.Rejected[time.Duration](ErrNoCapture)
	}

	f := future.Pending[time.Duration]()
	go func() {
		if err := session.Stop(ctx); err != nil {
			err = fmt.Errorf("stop capture: %w", err)
			c.bus.Publish(domain.EventRecordingError, domain.RecordingPayload{Err: err.Error()})
			f.Reject(err)
			return
		}
		elapsed := time.Since(startedAt)
		c.log.Info().Dur("elapsed", elapsed).Msg("capture stopped")
		c.bus.Publish(domain.EventRecordingStopped, domain.RecordingPayload{StartedAt: startedAt})
		f.Resolve(elapsed)
	}()
	return f
}

// Capturing reports whether a capture session is live.
func (c *RecordingCoordinator) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}
