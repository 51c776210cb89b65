package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// WhisperProvider talks to an OpenAI-compatible Whisper transcription
// endpoint (POST {base}/v1/audio/transcriptions, multipart WAV upload).
type WhisperProvider struct {
	baseURL    string
	model      string
	language   string
	httpClient *http.Client
}

// NewWhisper creates a transcriber against the given server base URL.
// An empty model selects the server default.
func NewWhisper(baseURL, model, language string) *WhisperProvider {
	return NewWhisperWithClient(baseURL, model, language, nil)
}

// NewWhisperWithClient creates a transcriber with a custom HTTP client.
func NewWhisperWithClient(baseURL, model, language string, client *http.Client) *WhisperProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &WhisperProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		language:   language,
		httpClient: client,
	}
}

// Name returns the provider identifier.
func (w *WhisperProvider) Name() string { return "whisper" }

// Transcribe uploads the WAV clip and returns the recognized text,
// whitespace-trimmed.
func (w *WhisperProvider) Transcribe(ctx context.Context, wav []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", &TranscriptionError{Message: "create form file", Err: err}
	}
	if _, err := fw.Write(wav); err != nil {
		return "", &TranscriptionError{Message: "write audio data", Err: err}
	}
	if w.model != "" {
		if err := mw.WriteField("model", w.model); err != nil {
			return "", &TranscriptionError{Message: "write model field", Err: err}
		}
	}
	if w.language != "" {
		if err := mw.WriteField("language", w.language); err != nil {
			return "", &TranscriptionError{Message: "write language field", Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return "", &TranscriptionError{Message: "close multipart writer", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return "", &TranscriptionError{Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", &TranscriptionError{Message: "whisper request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &TranscriptionError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("whisper error %d: %s", resp.StatusCode, string(body)),
		}
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TranscriptionError{Message: "parse response", Err: err}
	}
	return strings.TrimSpace(out.Text), nil
}
