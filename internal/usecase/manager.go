package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"murmur/internal/domain"
	"murmur/internal/eventbus"
	"murmur/internal/future"
	"murmur/internal/ports"
)

var (
	// ErrInvalidLanguage rejects startRecording arguments that are not
	// non-empty identifiers. The session phase is left unchanged.
	ErrInvalidLanguage = errors.New("language must be a non-empty identifier")
	// ErrInvalidTransition rejects an operation that is illegal in the
	// current phase. The session phase is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrAborted settles the stop future of a discarded session.
	ErrAborted = errors.New("session aborted")
)

var languagePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Manager is the session state machine: it validates phase transitions,
// routes captured chunks into transcription jobs, tracks the outstanding job
// count, and triggers finalization. It is the single owner of session state;
// the coordinators communicate with it only through callbacks.
type Manager struct {
	recording     *RecordingCoordinator
	transcription *TranscriptionCoordinator
	finalizer     resultFinalizer
	bus           *eventbus.Bus
	log           zerolog.Logger
	captureCfg    ports.CaptureConfig
	newPrefix     func() string

	mu                sync.Mutex
	ctx               context.Context
	generation        uint64
	phase             domain.Phase
	language          string
	startedAt         time.Time
	recordingComplete bool
	outstanding       int
	lastErr           string
	tracker           *chunkTracker
	stopFuture        *future.Future[domain.SessionResult]
}

func NewManager(
	recording *RecordingCoordinator,
	transcription *TranscriptionCoordinator,
	rules ports.TextRules,
	sink ports.ResultSink,
	bus *eventbus.Bus,
	log zerolog.Logger,
	captureCfg ports.CaptureConfig,
) *Manager {
	return &Manager{
		recording:     recording,
		transcription: transcription,
		finalizer:     newResultFinalizer(rules, sink, log),
		bus:           bus,
		log:           log,
		captureCfg:    captureCfg,
		newPrefix: func() string {
			return "murmur_" + time.Now().Format("20060102_150405")
		},
		ctx:     context.Background(),
		phase:   domain.PhaseIdle,
		tracker: newChunkTracker(),
	}
}

// StartRecording begins a new session. Legal from Idle; calling it from
// Error performs an implicit reset first so a prior, unrelated failure never
// leaves the user stuck.
func (m *Manager) StartRecording(ctx context.Context, language string) (domain.Status, error) {
	if !languagePattern.MatchString(language) {
		return m.Status(), ErrInvalidLanguage
	}

	m.mu.Lock()
	if m.phase == domain.PhaseError {
		m.resetLocked()
	}
	if m.phase != domain.PhaseIdle {
		phase := m.phase
		m.mu.Unlock()
		return m.Status(), fmt.Errorf("%w: cannot start recording while %s", ErrInvalidTransition, phase)
	}
	m.phase = domain.PhaseRecording
	m.language = language
	m.startedAt = time.Now()
	m.recordingComplete = false
	m.outstanding = 0
	m.lastErr = ""
	m.tracker.Reset()
	m.ctx = ctx
	m.generation++
	gen := m.generation
	cfg := m.captureCfg
	cfg.FilenamePrefix = m.newPrefix()
	m.mu.Unlock()

	// Callbacks carry the session generation so anything left over from a
	// prior capture backend cannot leak into this session.
	startF := m.recording.Start(ctx, cfg, language,
		func(audioFile string, chunkNum int, isFinal bool) {
			m.handleChunk(ctx, gen, audioFile, chunkNum, isFinal)
		},
		func(message string) {
			m.handleCaptureError(gen, message)
		},
	)
	if _, err := startF.Wait(ctx); err != nil {
		m.mu.Lock()
		m.phase = domain.PhaseError
		m.lastErr = err.Error()
		m.mu.Unlock()
		return m.Status(), err
	}
	return m.Status(), nil
}

// StopRecording finalizes capture and transitions to Transcribing. The
// returned future settles with the assembled session result once every
// outstanding job has resolved, which may be immediately if all chunks
// already resolved before stop was called.
func (m *Manager) StopRecording(ctx context.Context) *future.Future[domain.SessionResult] {
	m.mu.Lock()
	if m.phase != domain.PhaseRecording {
		phase := m.phase
		m.mu.Unlock()
		return future.Rejected[domain.SessionResult](
			fmt.Errorf("%w: not recording (phase %s)", ErrInvalidTransition, phase))
	}
	m.phase = domain.PhaseTranscribing
	resultF := future.Pending[domain.SessionResult]()
	m.stopFuture = resultF
	m.mu.Unlock()

	// The capture stop future resolves only after the backend has delivered
	// any final chunk, so marking the stream ended here cannot race with the
	// last chunk's arrival.
	m.recording.Stop(ctx).Done(func(_ time.Duration, err error) {
		m.mu.Lock()
		m.recordingComplete = true
		m.tracker.MarkStreamEnded()
		if err != nil {
			m.phase = domain.PhaseError
			m.lastErr = err.Error()
		}
		finalize := m.finalizeLocked()
		m.mu.Unlock()
		finalize()
	})
	return resultF
}

// Abort discards an in-progress session without transcription.
func (m *Manager) Abort(ctx context.Context) error {
	m.mu.Lock()
	if m.phase != domain.PhaseRecording && m.phase != domain.PhaseTranscribing {
		phase := m.phase
		m.mu.Unlock()
		return fmt.Errorf("%w: nothing to abort (phase %s)", ErrInvalidTransition, phase)
	}
	capturing := m.phase == domain.PhaseRecording
	stopF := m.stopFuture
	m.stopFuture = nil
	m.resetLocked()
	m.mu.Unlock()

	if capturing {
		if _, err := m.recording.Stop(ctx).Wait(ctx); err != nil {
			m.log.Warn().Err(err).Msg("capture stop during abort failed")
		}
	}
	if stopF != nil {
		stopF.Reject(ErrAborted)
	}
	return nil
}

// Reset recovers from Error back to Idle. Legal only from Error.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != domain.PhaseError {
		return fmt.Errorf("%w: reset is only legal from error (phase %s)", ErrInvalidTransition, m.phase)
	}
	m.resetLocked()
	return nil
}

// Status returns a snapshot of the session state.
func (m *Manager) Status() domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.Status{
		Phase:       m.phase,
		Language:    m.language,
		Outstanding: m.outstanding,
		ChunkCount:  m.tracker.Count(),
		Message:     m.lastErr,
	}
}

// RecentJobs exposes resolved transcription jobs for diagnostics.
func (m *Manager) RecentJobs() []domain.JobRecord {
	return m.transcription.RecentJobs()
}

// handleChunk is invoked by the capture backend for every chunk boundary.
// The outstanding counter is incremented exactly once per chunk, before the
// job starts, so a synchronous job failure decrements the same count.
func (m *Manager) handleChunk(ctx context.Context, gen uint64, audioFile string, chunkNum int, isFinal bool) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		m.log.Warn().Int("chunk", chunkNum).Msg("chunk from a superseded session ignored")
		return
	}
	if m.phase != domain.PhaseRecording && m.phase != domain.PhaseTranscribing {
		phase := m.phase
		m.mu.Unlock()
		m.log.Warn().Int("chunk", chunkNum).Str("phase", string(phase)).Msg("chunk ignored outside active session")
		return
	}
	m.outstanding++
	language := m.language
	m.mu.Unlock()

	m.log.Debug().Int("chunk", chunkNum).Bool("final", isFinal).Str("file", audioFile).Msg("chunk received")
	m.transcription.StartJob(ctx, audioFile, language, chunkNum,
		func(text string) { m.resolveChunk(gen, chunkNum, text, "") },
		func(message string) { m.resolveChunk(gen, chunkNum, "", message) },
	)
}

// resolveChunk records one job outcome and decrements the outstanding count
// exactly once, then re-evaluates finalization. Resolutions are bound to the
// session generation that launched them; a job surviving an abort or implicit
// reset must not write into the tracker of the session that replaced it.
func (m *Manager) resolveChunk(gen uint64, chunkNum int, text string, failure string) {
	m.mu.Lock()
	if gen != m.generation || m.phase == domain.PhaseIdle {
		// Stale resolution from a session that was aborted, superseded,
		// or already finalized.
		m.mu.Unlock()
		m.log.Debug().Int("chunk", chunkNum).Msg("late job resolution discarded")
		return
	}
	if failure == "" {
		m.tracker.RecordResult(chunkNum, text)
	} else {
		m.tracker.RecordFailure(chunkNum, failure)
	}
	if m.outstanding > 0 {
		m.outstanding--
	} else {
		m.log.Error().Int("chunk", chunkNum).Msg("job resolved with no outstanding count")
	}
	finalize := m.finalizeLocked()
	m.mu.Unlock()
	finalize()
}

// handleCaptureError reacts to an asynchronous capture backend failure.
func (m *Manager) handleCaptureError(gen uint64, message string) {
	m.mu.Lock()
	if gen != m.generation || (m.phase != domain.PhaseRecording && m.phase != domain.PhaseTranscribing) {
		m.mu.Unlock()
		return
	}
	m.phase = domain.PhaseError
	m.lastErr = message
	stopF := m.stopFuture
	m.stopFuture = nil
	m.mu.Unlock()

	m.log.Error().Str("error", message).Msg("capture failed")
	m.bus.Publish(domain.EventRecordingError, domain.RecordingPayload{Err: message})
	if stopF != nil {
		stopF.Reject(errors.New(message))
	}

	// Tear down the failed capture so a later start is not refused. The slot
	// frees immediately; the backend shutdown itself runs off this goroutine,
	// which may be the backend's own event reader.
	m.recording.Stop(context.Background()).Done(func(_ time.Duration, err error) {
		if err != nil && !errors.Is(err, ErrNoCapture) {
			m.log.Debug().Err(err).Msg("capture teardown after failure")
		}
	})
}

// finalizeLocked checks the completion condition and, when met, assembles
// the session result and resets to Idle. It returns the side effects to run
// after the lock is released: delivery, the all-complete event, and settling
// the stop future. Callers must hold m.mu.
func (m *Manager) finalizeLocked() func() {
	noop := func() {}
	if !m.recordingComplete || m.outstanding != 0 {
		return noop
	}
	// StopRecording owns the Recording -> Transcribing edge; never finalize
	// under it.
	if m.phase != domain.PhaseTranscribing && m.phase != domain.PhaseError {
		return noop
	}
	if !m.tracker.IsComplete() {
		m.log.Error().Ints("missing", m.tracker.Missing()).Msg("chunk sequence gap; session cannot finalize")
		return noop
	}

	result := domain.SessionResult{
		Text:       m.tracker.Assemble(),
		ChunkCount: m.tracker.Count(),
		Language:   m.language,
		StartedAt:  m.startedAt,
		Duration:   time.Since(m.startedAt),
	}
	if m.phase == domain.PhaseError {
		// The transcript was salvaged past a capture failure; surface the
		// failure on the result rather than only on the bus.
		result.StopError = m.lastErr
	}
	ctx := m.ctx
	stopF := m.stopFuture
	m.stopFuture = nil
	m.resetLocked()

	return func() {
		final := m.finalizer.Finalize(ctx, result)
		m.log.Info().Int("chunks", final.ChunkCount).Bool("delivered", final.Delivered).Msg("session finalized")
		m.bus.Publish(domain.EventTranscriptionAllComplete, domain.CompletionPayload{
			Text:       final.Text,
			ChunkCount: final.ChunkCount,
		})
		if stopF != nil {
			stopF.Resolve(final)
		}
	}
}

// resetLocked returns the session to Idle and clears per-session state.
// Callers must hold m.mu.
func (m *Manager) resetLocked() {
	m.phase = domain.PhaseIdle
	m.language = ""
	m.recordingComplete = false
	m.outstanding = 0
	m.lastErr = ""
	m.tracker.Reset()
}
