package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"murmur/internal/domain"
	"murmur/internal/eventbus"
	"murmur/internal/ports"
)

func newTestBus() *eventbus.Bus {
	return eventbus.New(zerolog.Nop(), domain.EventNames()...)
}

// busRecorder collects published events for assertions and exposes each
// event name on a channel so tests can sequence out-of-order resolutions
// without sleeping.
type busRecorder struct {
	mu     sync.Mutex
	names  []string
	byName map[string]chan any
}

func recordBus(bus *eventbus.Bus) *busRecorder {
	r := &busRecorder{byName: make(map[string]chan any)}
	for _, name := range domain.EventNames() {
		name := name
		ch := make(chan any, 16)
		r.byName[name] = ch
		bus.Subscribe(name, func(payload any) {
			r.mu.Lock()
			r.names = append(r.names, name)
			r.mu.Unlock()
			ch <- payload
		})
	}
	return r
}

func (r *busRecorder) seen(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

// waitFor blocks until one publication of name arrives.
func (r *busRecorder) waitFor(t *testing.T, name string) any {
	t.Helper()
	select {
	case payload := <-r.byName[name]:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event %s", name)
		return nil
	}
}

type fakeCaptureSession struct {
	stopHook func()
	stopErr  error
	stopped  bool
}

func (s *fakeCaptureSession) Stop(context.Context) error {
	if s.stopHook != nil {
		s.stopHook()
	}
	s.stopped = true
	return s.stopErr
}

// fakeRecorder hands chunk and error callbacks back to the test so it can
// drive the capture stream directly.
type fakeRecorder struct {
	mu       sync.Mutex
	session  *fakeCaptureSession
	startErr error
	onChunk  ports.ChunkHandler
	onError  ports.ErrorHandler
	lastCfg  ports.CaptureConfig
}

func (r *fakeRecorder) Start(_ context.Context, cfg ports.CaptureConfig, onChunk ports.ChunkHandler, onError ports.ErrorHandler) (ports.CaptureSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.onChunk = onChunk
	r.onError = onError
	r.lastCfg = cfg
	if r.session == nil {
		r.session = &fakeCaptureSession{}
	}
	return r.session, nil
}

func (r *fakeRecorder) emitChunk(audioFile string, chunkNum int, isFinal bool) {
	r.mu.Lock()
	onChunk := r.onChunk
	r.mu.Unlock()
	onChunk(audioFile, chunkNum, isFinal)
}

func (r *fakeRecorder) emitError(message string) {
	r.mu.Lock()
	onError := r.onError
	r.mu.Unlock()
	onError(message)
}

type fakeOutcome struct {
	text string
	err  error
}

// fakeTranscriber resolves by audio file name. A gated file blocks until its
// gate is closed, letting tests force out-of-order resolution.
type fakeTranscriber struct {
	mu       sync.Mutex
	outcomes map[string]fakeOutcome
	gates    map[string]chan struct{}
	calls    []string
}

func newFakeTranscriber() *fakeTranscriber {
	return &fakeTranscriber{
		outcomes: make(map[string]fakeOutcome),
		gates:    make(map[string]chan struct{}),
	}
}

func (f *fakeTranscriber) respond(audioFile string, text string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[audioFile] = fakeOutcome{text: text, err: err}
}

func (f *fakeTranscriber) gate(audioFile string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[audioFile] = gate
	return gate
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioFile string, _ string) (string, error) {
	f.mu.Lock()
	gate := f.gates[audioFile]
	outcome := f.outcomes[audioFile]
	f.calls = append(f.calls, audioFile)
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return outcome.text, outcome.err
}

type fakeRules struct {
	transform func(string) string
	err       error
}

func (f *fakeRules) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.transform != nil {
		return f.transform(text), nil
	}
	return text, nil
}

type fakeSink struct {
	mu      sync.Mutex
	results []domain.SessionResult
	err     error
}

func (f *fakeSink) Deliver(_ context.Context, result domain.SessionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.results = append(f.results, result)
	return nil
}

func (f *fakeSink) last() (domain.SessionResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return domain.SessionResult{}, false
	}
	return f.results[len(f.results)-1], true
}

func upper(text string) string { return strings.ToUpper(text) }
