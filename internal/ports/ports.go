package ports

import (
	"context"

	"murmur/internal/domain"
)

// CaptureConfig describes how chunked audio capture should run.
type CaptureConfig struct {
	OutputDir        string
	FilenamePrefix   string
	SampleRate       int
	SilenceThreshold float64
	MinChunkSeconds  float64
	MaxChunkSeconds  float64
}

// ChunkHandler receives one captured audio chunk. Chunk numbers are assigned
// by the capture backend, contiguous from 1 within a session.
type ChunkHandler func(audioFile string, chunkNum int, isFinal bool)

// ErrorHandler receives an asynchronous capture failure.
type ErrorHandler func(message string)

// CaptureSession is a live chunked capture. Stop returns only after any
// final chunk has been delivered through the session's ChunkHandler and the
// chunk stream has ended.
type CaptureSession interface {
	Stop(ctx context.Context) error
}

// Recorder starts chunked capture sessions.
type Recorder interface {
	Start(ctx context.Context, cfg CaptureConfig, onChunk ChunkHandler, onError ErrorHandler) (CaptureSession, error)
}

// Transcriber converts one audio chunk file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioFile string, language string) (string, error)
}

// TextRules transforms an assembled transcript using deterministic rules.
type TextRules interface {
	Apply(text string) (string, error)
}

// ResultSink delivers the finished transcript downstream (clipboard).
type ResultSink interface {
	Deliver(ctx context.Context, result domain.SessionResult) error
}
