package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"murmur/internal/ports"
)

// chunk files look like <prefix>_chunk_001.wav
var chunkFilePattern = regexp.MustCompile(`_chunk_(\d+)\.wav$`)

// WatchRecorder picks up chunks written by an externally managed
// recorder. It watches the output directory for new WAV files matching
// the session's filename prefix and reports each as a chunk. Because
// the recorder is out of process, no chunk is ever marked final.
type WatchRecorder struct {
	log zerolog.Logger
}

func NewWatchRecorder(log zerolog.Logger) *WatchRecorder {
	return &WatchRecorder{log: log}
}

func (r *WatchRecorder) Start(ctx context.Context, cfg ports.CaptureConfig, onChunk ports.ChunkHandler, onError ports.ErrorHandler) (ports.CaptureSession, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("capture output directory is required")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(cfg.OutputDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", cfg.OutputDir, err)
	}

	r.log.Debug().Str("dir", cfg.OutputDir).Str("prefix", cfg.FilenamePrefix).Msg("watching for chunk files")

	session := &watchSession{
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go session.run(ctx, cfg.FilenamePrefix, onChunk, onError, r.log)

	return session, nil
}

type watchSession struct {
	watcher *fsnotify.Watcher
	done    chan struct{}

	stopOnce sync.Once
	stopErr  error
}

func (s *watchSession) run(ctx context.Context, prefix string, onChunk ports.ChunkHandler, onError ports.ErrorHandler, log zerolog.Logger) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			num, ok := parseChunkNumber(event.Name, prefix)
			if !ok {
				continue
			}
			log.Debug().Str("file", event.Name).Int("chunk", num).Msg("chunk file appeared")
			onChunk(event.Name, num, false)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			onError(fmt.Sprintf("file watcher error: %v", err))
		}
	}
}

// Stop closes the watcher; the event loop drains before Stop returns.
func (s *watchSession) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.stopErr = s.watcher.Close()
		select {
		case <-s.done:
		case <-ctx.Done():
			s.stopErr = ctx.Err()
		}
	})
	return s.stopErr
}

func parseChunkNumber(path string, prefix string) (int, bool) {
	name := filepath.Base(path)
	if prefix != "" && !strings.HasPrefix(name, prefix+"_chunk_") {
		return 0, false
	}
	match := chunkFilePattern.FindStringSubmatch(name)
	if match == nil {
		return 0, false
	}
	num, err := strconv.Atoi(match[1])
	if err != nil || num <= 0 {
		return 0, false
	}
	return num, true
}
