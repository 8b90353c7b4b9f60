package domain

import "time"

// Event names published on the session bus. The string values are part of
// the external contract consumed by the UI layer.
const (
	EventRecordingStarted         = "recording:started"
	EventRecordingStopped         = "recording:stopped"
	EventRecordingError           = "recording:error"
	EventTranscriptionStarted     = "transcription:started"
	EventTranscriptionCompleted   = "transcription:completed"
	EventTranscriptionError       = "transcription:error"
	EventTranscriptionAllComplete = "transcription:all_complete"
)

// EventNames lists every recognized bus event, in publication order of a
// typical session. The bus is constructed with this registry.
func EventNames() []string {
	return []string{
		EventRecordingStarted,
		EventRecordingStopped,
		EventRecordingError,
		EventTranscriptionStarted,
		EventTranscriptionCompleted,
		EventTranscriptionError,
		EventTranscriptionAllComplete,
	}
}

// RecordingPayload accompanies recording:* events.
type RecordingPayload struct {
	Language  string    `json:"language,omitempty"`
	StartedAt time.Time `json:"startedAt,omitempty"`
	Err       string    `json:"err,omitempty"`
}

// JobPayload accompanies transcription:started/completed/error events.
type JobPayload struct {
	JobID     string `json:"jobId"`
	ChunkNum  int    `json:"chunkNum"`
	AudioFile string `json:"audioFile"`
	Language  string `json:"language"`
	Text      string `json:"text,omitempty"`
	Err       string `json:"err,omitempty"`
}

// CompletionPayload accompanies transcription:all_complete.
type CompletionPayload struct {
	Text       string `json:"text"`
	ChunkCount int    `json:"chunkCount"`
}
