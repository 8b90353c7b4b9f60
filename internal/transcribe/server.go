package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Server posts chunks to an OpenAI-compatible transcription endpoint
// (POST {base}/audio/transcriptions with a multipart body).
type Server struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

func NewServer(baseURL, model, apiKey string, timeout time.Duration, log zerolog.Logger) *Server {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Server{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

type serverResponse struct {
	Text string `json:"text"`
}

func (s *Server) Transcribe(ctx context.Context, audioFile string, language string) (string, error) {
	file, err := os.Open(audioFile)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", s.model); err != nil {
		return "", err
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			return "", err
		}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioFile))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, file); err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("transcription server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed serverResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}

	s.log.Debug().Str("file", audioFile).Int("chars", len(parsed.Text)).Msg("server chunk transcribed")
	return strings.TrimSpace(parsed.Text), nil
}
