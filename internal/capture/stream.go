// Package capture provides recording backends that turn microphone
// input into numbered WAV chunk files.
package capture

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"murmur/internal/ports"
)

// StreamRecorder spawns a chunked recorder subprocess and translates
// its JSON event stream into chunk callbacks. The subprocess writes one
// JSON object per line on stdout:
//
//	{"type":"recording_started"}
//	{"type":"chunk_ready","chunk_num":1,"audio_file":"/tmp/x_chunk_001.wav","is_final":false}
//	{"type":"silence_warning","message":"..."}
//	{"type":"error","error":"..."}
//	{"type":"recording_stopped"}
type StreamRecorder struct {
	command   string
	stopGrace time.Duration
	log       zerolog.Logger
}

func NewStreamRecorder(command string, stopGrace time.Duration, log zerolog.Logger) *StreamRecorder {
	if command == "" {
		command = "whisper-stream"
	}
	if stopGrace <= 0 {
		stopGrace = 5 * time.Second
	}
	return &StreamRecorder{command: command, stopGrace: stopGrace, log: log}
}

type streamEvent struct {
	Type      string `json:"type"`
	ChunkNum  int    `json:"chunk_num"`
	AudioFile string `json:"audio_file"`
	IsFinal   bool   `json:"is_final"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

func (r *StreamRecorder) Start(ctx context.Context, cfg ports.CaptureConfig, onChunk ports.ChunkHandler, onError ports.ErrorHandler) (ports.CaptureSession, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("capture output directory is required")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	args := []string{
		"--output-dir", cfg.OutputDir,
		"--filename-prefix", cfg.FilenamePrefix,
		"--silence-threshold", strconv.FormatFloat(cfg.SilenceThreshold, 'f', -1, 64),
		"--min-chunk-duration", strconv.FormatFloat(cfg.MinChunkSeconds, 'f', -1, 64),
		"--max-chunk-duration", strconv.FormatFloat(cfg.MaxChunkSeconds, 'f', -1, 64),
	}
	if cfg.SampleRate > 0 {
		args = append(args, "--sample-rate", strconv.Itoa(cfg.SampleRate))
	}

	cmd := exec.CommandContext(ctx, r.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// A manual pipe instead of StdoutPipe: Wait must not close the
	// read side while the event reader is still draining the final
	// chunk notification.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	if err := cmd.Start(); err != nil {
		stdout.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("failed to start recorder: %w", err)
	}
	stdoutW.Close()

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		stdout.Close()
		if err != nil {
			return nil, fmt.Errorf("recorder exited before capture started: %w: %s", err, trimmed(stderr.String()))
		}
		return nil, errors.New("recorder exited before capture started")
	case <-time.After(250 * time.Millisecond):
	}

	session := &streamSession{
		stdout:     stdout,
		stderr:     &stderr,
		process:    cmd.Process,
		waitErr:    waitErr,
		grace:      r.stopGrace,
		log:        r.log,
		readerDone: make(chan struct{}),
	}
	go session.readEvents(onChunk, onError)

	return session, nil
}

type streamSession struct {
	stdout *os.File
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	grace      time.Duration
	log        zerolog.Logger
	readerDone chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// readEvents consumes stdout until EOF, which happens when the process
// exits. Every chunk event is delivered before readerDone closes, so
// Stop can guarantee the final chunk was handed over.
func (s *streamSession) readEvents(onChunk ports.ChunkHandler, onError ports.ErrorHandler) {
	defer close(s.readerDone)
	defer s.stdout.Close()

	scanner := bufio.NewScanner(s.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			s.log.Debug().Str("line", string(line)).Msg("ignoring non-JSON recorder output")
			continue
		}

		switch ev.Type {
		case "chunk_ready":
			onChunk(ev.AudioFile, ev.ChunkNum, ev.IsFinal)
		case "error":
			onError(ev.Error)
		case "silence_warning":
			s.log.Warn().Str("message", ev.Message).Msg("recorder silence warning")
		case "recording_started", "recording_stopped", "debug":
			s.log.Debug().Str("type", ev.Type).Str("message", ev.Message).Msg("recorder event")
		default:
			s.log.Debug().Str("type", ev.Type).Msg("unknown recorder event")
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Debug().Err(err).Msg("recorder stream read ended")
	}
}

// Stop asks the recorder to finish. The recorder flushes its current
// chunk on SIGINT, so Stop waits for the event reader to drain before
// returning. It is killed outright if it outlives the grace period.
func (s *streamSession) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		deadline := time.NewTimer(s.grace)
		defer deadline.Stop()

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-deadline.C:
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.waitErr; ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-ctx.Done():
			if s.process != nil {
				_ = s.process.Kill()
			}
			<-s.waitErr
			s.stopErr = ctx.Err()
		}

		// The reader normally ends at stdout EOF. A leftover grandchild
		// can keep the pipe open, so force it closed after the grace.
		select {
		case <-s.readerDone:
		case <-time.After(s.grace):
			_ = s.stdout.Close()
			<-s.readerDone
		}

		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, trimmed(s.stderr.String()))
		}
	})

	return s.stopErr
}

// normalizeStopErr hides the exit status a recorder reports after being
// interrupted.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimmed(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
