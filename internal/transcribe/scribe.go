package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Scribe sends chunks to a scribe websocket service. Each call opens a
// connection, submits one request, and waits for the response carrying
// the same id.
type Scribe struct {
	url     string
	timeout time.Duration
	log     zerolog.Logger
}

func NewScribe(url string, timeout time.Duration, log zerolog.Logger) *Scribe {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Scribe{url: url, timeout: timeout, log: log}
}

type scribeRequest struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
	Audio    []byte `json:"audio"`
}

type scribeResponse struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (s *Scribe) Transcribe(ctx context.Context, audioFile string, language string) (string, error) {
	audio, err := os.ReadFile(audioFile)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("dial scribe service: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	req := scribeRequest{
		ID:       uuid.NewString(),
		Type:     "transcribe",
		Language: language,
		Audio:    audio,
	}
	if err := conn.WriteJSON(req); err != nil {
		return "", fmt.Errorf("send transcription request: %w", err)
	}

	// The service may interleave unrelated notifications; skip until
	// our id comes back.
	for {
		var resp scribeResponse
		if err := conn.ReadJSON(&resp); err != nil {
			return "", fmt.Errorf("read transcription response: %w", err)
		}
		if resp.ID != req.ID {
			s.log.Debug().Str("id", resp.ID).Str("type", resp.Type).Msg("skipping unrelated scribe message")
			continue
		}
		if resp.Type == "error" || resp.Error != "" {
			if resp.Error == "" {
				resp.Error = "unspecified scribe error"
			}
			return "", errors.New(resp.Error)
		}
		return resp.Text, nil
	}
}
