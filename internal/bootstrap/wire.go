package bootstrap

import (
	"fmt"
	"io"

	"murmur/internal/audioinfo"
	"murmur/internal/capture"
	"murmur/internal/config"
	"murmur/internal/domain"
	"murmur/internal/eventbus"
	"murmur/internal/logging"
	"murmur/internal/ports"
	"murmur/internal/rules"
	"murmur/internal/transcribe"
	"murmur/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Manager *usecase.Manager
	Bus     *eventbus.Bus
	Config  config.Config
}

// Build wires all backend dependencies for the current runtime. The
// result sink is supplied by the caller because clipboard access lives
// in the UI shell.
func Build(logOut io.Writer, sink ports.ResultSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	log := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)

	rulesEngine, err := rules.Load(cfg.Rules.Path, cfg.Rules.IterationLimit, log)
	if err != nil {
		return Services{}, err
	}

	var recorder ports.Recorder
	switch cfg.Capture.Backend {
	case config.CaptureStream:
		recorder = capture.NewStreamRecorder(cfg.Capture.RecorderCommand, cfg.Capture.StopGrace, log)
	case config.CaptureWatch:
		recorder = capture.NewWatchRecorder(log)
	default:
		return Services{}, fmt.Errorf("unknown capture backend %q", cfg.Capture.Backend)
	}

	transcriber, err := transcribe.New(cfg.Transcriber, log)
	if err != nil {
		return Services{}, err
	}

	bus := eventbus.New(log, domain.EventNames()...)

	// Chunks are validated against the configured rate before each
	// transcription call; a misconfigured recorder fails loudly instead
	// of producing garbled transcripts.
	probe := func(path string) error {
		return audioinfo.CheckRate(path, cfg.Capture.SampleRate)
	}

	manager := usecase.NewManager(
		usecase.NewRecordingCoordinator(recorder, bus, log),
		usecase.NewTranscriptionCoordinator(transcriber, probe, bus, log),
		rulesEngine,
		sink,
		bus,
		log,
		ports.CaptureConfig{
			OutputDir:        cfg.Capture.OutputDir,
			FilenamePrefix:   cfg.Capture.FilenamePrefix,
			SampleRate:       cfg.Capture.SampleRate,
			SilenceThreshold: cfg.Capture.SilenceThreshold,
			MinChunkSeconds:  cfg.Capture.MinChunkSeconds,
			MaxChunkSeconds:  cfg.Capture.MaxChunkSeconds,
		},
	)

	return Services{Manager: manager, Bus: bus, Config: cfg}, nil
}
