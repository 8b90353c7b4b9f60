package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WhisperCLI shells out to a local whisper binary and parses the plain
// text it prints.
type WhisperCLI struct {
	path      string
	modelPath string
	extraArgs []string
	timeout   time.Duration
	log       zerolog.Logger
}

func NewWhisperCLI(path, modelPath string, extraArgs []string, timeout time.Duration, log zerolog.Logger) *WhisperCLI {
	if path == "" {
		path = "whisper-cli"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &WhisperCLI{path: path, modelPath: modelPath, extraArgs: extraArgs, timeout: timeout, log: log}
}

func (w *WhisperCLI) Transcribe(ctx context.Context, audioFile string, language string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	args := []string{"--no-timestamps"}
	if w.modelPath != "" {
		args = append(args, "--model", w.modelPath)
	}
	if language != "" {
		args = append(args, "--language", language)
	}
	args = append(args, w.extraArgs...)
	args = append(args, audioFile)

	cmd := exec.CommandContext(ctx, w.path, args...)
	started := time.Now()
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("whisper failed: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("whisper execution failed: %w", err)
	}

	text := extractText(string(output))
	w.log.Debug().
		Str("file", audioFile).
		Dur("took", time.Since(started)).
		Int("chars", len(text)).
		Msg("whisper chunk transcribed")
	return text, nil
}

// extractText flattens whisper output into one line, dropping blank
// audio markers and empty lines.
func extractText(output string) string {
	var builder strings.Builder
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "[BLANK_AUDIO]") {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(line)
	}
	return strings.TrimSpace(builder.String())
}
