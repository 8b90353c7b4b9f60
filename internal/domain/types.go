package domain

import "time"

// Phase models the dictation session lifecycle.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseRecording    Phase = "recording"
	PhaseTranscribing Phase = "transcribing"
	PhaseError        Phase = "error"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodeCapture       ErrorCode = "capture"
	ErrorCodeCaptureStop   ErrorCode = "capture_stop"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeClipboard     ErrorCode = "clipboard"
	ErrorCodeRules         ErrorCode = "rules"
)

// SessionResult is produced once capture has ended and every chunk has
// resolved, successfully or with a per-chunk placeholder.
type SessionResult struct {
	Text       string        `json:"text"`
	ChunkCount int           `json:"chunkCount"`
	Language   string        `json:"language"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Delivered  bool          `json:"delivered"`
	// StopError carries the capture shutdown failure when the transcript
	// was salvaged despite it; empty on a clean stop.
	StopError string `json:"stopError,omitempty"`
}

// Status summarizes the current session state for the UI.
type Status struct {
	Phase       Phase  `json:"phase"`
	Language    string `json:"language,omitempty"`
	Outstanding int    `json:"outstanding"`
	ChunkCount  int    `json:"chunkCount"`
	Message     string `json:"message,omitempty"`
}

// JobRecord is a resolved transcription job retained for diagnostics.
type JobRecord struct {
	ID        string        `json:"id"`
	ChunkNum  int           `json:"chunkNum"`
	AudioFile string        `json:"audioFile"`
	Language  string        `json:"language"`
	StartedAt time.Time     `json:"startedAt"`
	Elapsed   time.Duration `json:"elapsed"`
	Text      string        `json:"text,omitempty"`
	Err       string        `json:"err,omitempty"`
}
