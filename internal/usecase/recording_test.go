package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

func TestRecordingCoordinatorStartStop(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	bus := newTestBus()
	events := recordBus(bus)
	c := NewRecordingCoordinator(rec, bus, zerolog.Nop())
	ctx := context.Background()

	startF := c.Start(ctx, ports.CaptureConfig{FilenamePrefix: "test"}, "en", func(string, int, bool) {}, func(string) {})
	if _, err := startF.Wait(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !c.Capturing() {
		t.Fatalf("expected live capture after start")
	}
	if !events.seen(domain.EventRecordingStarted) {
		t.Fatalf("recording:started was not published")
	}

	if _, err := c.Stop(ctx).Wait(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if c.Capturing() {
		t.Fatalf("capture still live after stop")
	}
	events.waitFor(t, domain.EventRecordingStopped)
	if !rec.session.stopped {
		t.Fatalf("backend session was not stopped")
	}
}

func TestRecordingCoordinatorRejectsDoubleStart(t *testing.T) {
	t.Parallel()

	c := NewRecordingCoordinator(&fakeRecorder{}, newTestBus(), zerolog.Nop())
	ctx := context.Background()

	if _, err := c.Start(ctx, ports.CaptureConfig{}, "en", func(string, int, bool) {}, func(string) {}).Wait(ctx); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	_, err := c.Start(ctx, ports.CaptureConfig{}, "en", func(string, int, bool) {}, func(string) {}).Wait(ctx)
	if !errors.Is(err, ErrCaptureActive) {
		t.Fatalf("err = %v, want capture already active", err)
	}
}

func TestRecordingCoordinatorStartFailurePublishesError(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{startErr: errors.New("device busy")}
	bus := newTestBus()
	events := recordBus(bus)
	c := NewRecordingCoordinator(rec, bus, zerolog.Nop())
	ctx := context.Background()

	_, err := c.Start(ctx, ports.CaptureConfig{}, "en", func(string, int, bool) {}, func(string) {}).Wait(ctx)
	if err == nil {
		t.Fatalf("expected start failure")
	}
	if c.Capturing() {
		t.Fatalf("capture must not be live after failed start")
	}
	if !events.seen(domain.EventRecordingError) {
		t.Fatalf("recording:error was not published")
	}
}

func TestRecordingCoordinatorStopWithoutCapture(t *testing.T) {
	t.Parallel()

	c := NewRecordingCoordinator(&fakeRecorder{}, newTestBus(), zerolog.Nop())
	ctx := context.Background()

	if _, err := c.Stop(ctx).Wait(ctx); !errors.Is(err, ErrNoCapture) {
		t.Fatalf("err = %v, want no active capture", err)
	}
}

func TestRecordingCoordinatorStopFailureRejects(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{session: &fakeCaptureSession{stopErr: errors.New("hung process")}}
	bus := newTestBus()
	events := recordBus(bus)
	c := NewRecordingCoordinator(rec, bus, zerolog.Nop())
	ctx := context.Background()

	if _, err := c.Start(ctx, ports.CaptureConfig{}, "en", func(string, int, bool) {}, func(string) {}).Wait(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := c.Stop(ctx).Wait(ctx); err == nil {
		t.Fatalf("expected stop failure")
	}
	events.waitFor(t, domain.EventRecordingError)
}
