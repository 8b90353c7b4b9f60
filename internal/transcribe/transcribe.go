// Package transcribe turns WAV chunk files into text. Three backends
// are available: a local whisper CLI, an OpenAI-compatible HTTP
// server, and a scribe websocket service.
package transcribe

import (
	"fmt"

	"github.com/rs/zerolog"

	"murmur/internal/config"
	"murmur/internal/ports"
)

// New builds the transcriber selected by cfg.Backend.
func New(cfg config.TranscriberConfig, log zerolog.Logger) (ports.Transcriber, error) {
	switch cfg.Backend {
	case config.TranscriberWhisper:
		return NewWhisperCLI(cfg.WhisperPath, cfg.ModelPath, cfg.WhisperArgs, cfg.Timeout, log), nil
	case config.TranscriberServer:
		if cfg.ServerURL == "" {
			return nil, fmt.Errorf("server transcriber requires MURMUR_SERVER_URL")
		}
		return NewServer(cfg.ServerURL, cfg.ServerModel, cfg.APIKey, cfg.Timeout, log), nil
	case config.TranscriberScribe:
		return NewScribe(cfg.ScribeURL, cfg.Timeout, log), nil
	default:
		return nil, fmt.Errorf("unknown transcriber backend %q", cfg.Backend)
	}
}
