package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Capture backend names accepted by MURMUR_CAPTURE_BACKEND.
const (
	CaptureStream = "stream"
	CaptureWatch  = "watch"
)

// Transcriber backend names accepted by MURMUR_TRANSCRIBER.
const (
	TranscriberWhisper = "whisper"
	TranscriberServer  = "server"
	TranscriberScribe  = "scribe"
)

// Config stores runtime configuration for the dictation app.
type Config struct {
	Language    string
	Log         LogConfig
	Capture     CaptureConfig
	Transcriber TranscriberConfig
	Rules       RulesConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type CaptureConfig struct {
	Backend          string
	RecorderCommand  string
	OutputDir        string
	FilenamePrefix   string
	SampleRate       int
	SilenceThreshold float64
	MinChunkSeconds  float64
	MaxChunkSeconds  float64
	StopGrace        time.Duration
}

type TranscriberConfig struct {
	Backend     string
	WhisperPath string
	WhisperArgs []string
	ModelPath   string
	ServerURL   string
	ServerModel string
	APIKey      string
	ScribeURL   string
	Timeout     time.Duration
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

// Load resolves configuration from a .env file (if present),
// environment variables, and sensible defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	rulesPath := strings.TrimSpace(os.Getenv("MURMUR_RULES_FILE"))
	if rulesPath == "" {
		rulesPath = firstExisting(
			filepath.Join(home, ".config", "murmur", "substitutions.rules"),
			filepath.Join(home, ".config", "whisper", "substitutions.rules"),
		)
	}

	cfg := Config{
		Language: envOrDefault("MURMUR_LANGUAGE", "en"),
		Log: LogConfig{
			Level:  envOrDefault("MURMUR_LOG_LEVEL", "info"),
			Format: envOrDefault("MURMUR_LOG_FORMAT", "console"),
		},
		Capture: CaptureConfig{
			Backend:          envOrDefault("MURMUR_CAPTURE_BACKEND", CaptureStream),
			RecorderCommand:  envOrDefault("MURMUR_RECORDER_COMMAND", "whisper-stream"),
			OutputDir:        envOrDefault("MURMUR_CHUNK_DIR", filepath.Join(home, ".cache", "murmur", "chunks")),
			FilenamePrefix:   envOrDefault("MURMUR_FILENAME_PREFIX", "murmur"),
			SampleRate:       envOrDefaultInt("MURMUR_SAMPLE_RATE", 16000),
			SilenceThreshold: envOrDefaultFloat("MURMUR_SILENCE_THRESHOLD", 5.0),
			MinChunkSeconds:  envOrDefaultFloat("MURMUR_MIN_CHUNK_SECONDS", 10),
			MaxChunkSeconds:  envOrDefaultFloat("MURMUR_MAX_CHUNK_SECONDS", 120),
			StopGrace:        time.Duration(envOrDefaultInt("MURMUR_STOP_GRACE_MS", 5000)) * time.Millisecond,
		},
		Transcriber: TranscriberConfig{
			Backend:     envOrDefault("MURMUR_TRANSCRIBER", TranscriberWhisper),
			WhisperPath: envOrDefault("MURMUR_WHISPER_PATH", "whisper-cli"),
			WhisperArgs: strings.Fields(os.Getenv("MURMUR_WHISPER_ARGS")),
			ModelPath:   strings.TrimSpace(os.Getenv("MURMUR_WHISPER_MODEL")),
			ServerURL:   strings.TrimSpace(os.Getenv("MURMUR_SERVER_URL")),
			ServerModel: envOrDefault("MURMUR_SERVER_MODEL", "whisper-1"),
			APIKey: firstNonEmpty(
				os.Getenv("MURMUR_API_KEY"),
				os.Getenv("OPENAI_API_KEY"),
			),
			ScribeURL: envOrDefault("MURMUR_SCRIBE_URL", "ws://localhost:8080/transcribe"),
			Timeout:   time.Duration(envOrDefaultInt("MURMUR_TRANSCRIBE_TIMEOUT_MS", 120000)) * time.Millisecond,
		},
		Rules: RulesConfig{
			Path:           rulesPath,
			IterationLimit: envOrDefaultInt("MURMUR_RULE_ITERATION_LIMIT", 30),
		},
	}

	switch cfg.Capture.Backend {
	case CaptureStream, CaptureWatch:
	default:
		return Config{}, errors.New("MURMUR_CAPTURE_BACKEND must be 'stream' or 'watch'")
	}
	switch cfg.Transcriber.Backend {
	case TranscriberWhisper, TranscriberServer, TranscriberScribe:
	default:
		return Config{}, errors.New("MURMUR_TRANSCRIBER must be 'whisper', 'server', or 'scribe'")
	}

	if cfg.Capture.SampleRate <= 0 {
		cfg.Capture.SampleRate = 16000
	}
	if cfg.Capture.SilenceThreshold <= 0 {
		cfg.Capture.SilenceThreshold = 5.0
	}
	if cfg.Capture.MinChunkSeconds <= 0 {
		cfg.Capture.MinChunkSeconds = 10
	}
	if cfg.Capture.MaxChunkSeconds < cfg.Capture.MinChunkSeconds {
		cfg.Capture.MaxChunkSeconds = 120
	}
	if cfg.Capture.StopGrace <= 0 {
		cfg.Capture.StopGrace = 5 * time.Second
	}
	if cfg.Transcriber.Timeout <= 0 {
		cfg.Transcriber.Timeout = 2 * time.Minute
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}

	return cfg, nil
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
