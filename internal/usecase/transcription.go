package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"murmur/internal/domain"
	"murmur/internal/eventbus"
	"murmur/internal/ports"
)

// jobHistoryLimit caps how many resolved jobs are retained for diagnostics.
const jobHistoryLimit = 64

// AudioProbe validates a chunk file before it is dispatched. A probe failure
// resolves the job as a per-chunk failure rather than starting the backend.
type AudioProbe func(audioFile string) error

// TranscriptionCoordinator owns the registry of in-flight transcription jobs
// against the transcription backend and emits per-job lifecycle events.
type TranscriptionCoordinator struct {
	transcriber ports.Transcriber
	probe       AudioProbe
	bus         *eventbus.Bus
	log         zerolog.Logger

	mu       sync.Mutex
	inflight map[string]domain.JobRecord
	history  []domain.JobRecord
}

func NewTranscriptionCoordinator(transcriber ports.Transcriber, probe AudioProbe, bus *eventbus.Bus, log zerolog.Logger) *TranscriptionCoordinator {
	return &TranscriptionCoordinator{
		transcriber: transcriber,
		probe:       probe,
		bus:         bus,
		log:         log,
		inflight:    make(map[string]domain.JobRecord),
	}
}

// StartJob registers one transcription job for a captured chunk and runs it.
// Exactly one of onSuccess or onError is invoked per job, whether the
// backend fails synchronously or asynchronously.
func (c *TranscriptionCoordinator) StartJob(
	ctx context.Context,
	audioFile string,
	language string,
	chunkNum int,
	onSuccess func(text string),
	onError func(message string),
) {
	job := domain.JobRecord{
		ID:        uuid.NewString(),
		ChunkNum:  chunkNum,
		AudioFile: audioFile,
		Language:  language,
		StartedAt: time.Now(),
	}

	c.mu.Lock()
	c.inflight[job.ID] = job
	c.mu.Unlock()

	c.log.Debug().Str("job", job.ID).Int("chunk", chunkNum).Str("file", audioFile).Msg("transcription job started")
	c.bus.Publish(domain.EventTranscriptionStarted, domain.JobPayload{
		JobID:     job.ID,
		ChunkNum:  chunkNum,
		AudioFile: audioFile,
		Language:  language,
	})

	if c.probe != nil {
		if err := c.probe(audioFile); err != nil {
			c.resolve(job, "", err.Error())
			onError(err.Error())
			return
		}
	}

	go func() {
		text, err := c.transcriber.Transcribe(ctx, audioFile, language)
		if err != nil {
			c.resolve(job, "", err.Error())
			onError(err.Error())
			return
		}
		c.resolve(job, text, "")
		onSuccess(text)
	}()
}

func (c *TranscriptionCoordinator) resolve(job domain.JobRecord, text string, failure string) {
	job.Elapsed = time.Since(job.StartedAt)
	job.Text = text
	job.Err = failure

	c.mu.Lock()
	delete(c.inflight, job.ID)
	c.history = append(c.history, job)
	if len(c.history) > jobHistoryLimit {
		c.history = append([]domain.JobRecord(nil), c.history[len(c.history)-jobHistoryLimit:]...)
	}
	c.mu.Unlock()

	payload := domain.JobPayload{
		JobID:     job.ID,
		ChunkNum:  job.ChunkNum,
		AudioFile: job.AudioFile,
		Language:  job.Language,
		Text:      text,
		Err:       failure,
	}
	if failure != "" {
		c.log.Warn().Str("job", job.ID).Int("chunk", job.ChunkNum).Str("error", failure).Msg("transcription job failed")
		c.bus.Publish(domain.EventTranscriptionError, payload)
		return
	}
	c.log.Debug().Str("job", job.ID).Int("chunk", job.ChunkNum).Dur("elapsed", job.Elapsed).Msg("transcription job completed")
	c.bus.Publish(domain.EventTranscriptionCompleted, payload)
}

// InFlight returns the number of unresolved jobs.
func (c *TranscriptionCoordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// RecentJobs returns resolved jobs, oldest first, bounded by the history cap.
func (c *TranscriptionCoordinator) RecentJobs() []domain.JobRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.JobRecord, len(c.history))
	copy(out, c.history)
	return out
}
