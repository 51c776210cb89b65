package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io"

	// pcm_22050 gives raw 16-bit mono PCM matching PlaybackConfig, so
	// the only local work is wrapping it in a WAV header.
	elevenLabsOutputFormat = "pcm_22050"
)

// ElevenLabsProvider synthesizes speech through the ElevenLabs HTTP API.
type ElevenLabsProvider struct {
	apiKey     string
	voiceID    string
	modelID    string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabs creates a synthesizer for the given voice and model.
func NewElevenLabs(apiKey, voiceID, modelID string) *ElevenLabsProvider {
	return NewElevenLabsWithClient(apiKey, voiceID, modelID, nil)
}

// NewElevenLabsWithClient creates a synthesizer with a custom HTTP client.
func NewElevenLabsWithClient(apiKey, voiceID, modelID string, client *http.Client) *ElevenLabsProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &ElevenLabsProvider{
		apiKey:     strings.TrimSpace(apiKey),
		voiceID:    voiceID,
		modelID:    modelID,
		baseURL:    elevenLabsBaseURL,
		httpClient: client,
	}
}

// WithBaseURL overrides the API endpoint; used by tests.
func (e *ElevenLabsProvider) WithBaseURL(base string) *ElevenLabsProvider {
	base = strings.TrimSpace(base)
	if base != "" {
		e.baseURL = strings.TrimRight(base, "/")
	}
	return e
}

// Name returns the provider identifier.
func (e *ElevenLabsProvider) Name() string { return "elevenlabs" }

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id,omitempty"`
	VoiceSettings map[string]interface{} `json:"voice_settings,omitempty"`
}

// SynthesizeToMemory renders the text as a 22050 Hz mono WAV clip.
func (e *ElevenLabsProvider) SynthesizeToMemory(ctx context.Context, text string) ([]byte, error) {
	if e.apiKey == "" {
		return nil, &SynthesisError{Message: "api key is required"}
	}

	payload, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.modelID,
		VoiceSettings: map[string]interface{}{
			"stability":        0.5,
			"similarity_boost": 0.7,
		},
	})
	if err != nil {
		return nil, &SynthesisError{Message: "encode request", Err: err}
	}

	reqURL := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		e.baseURL, url.PathEscape(e.voiceID), elevenLabsOutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &SynthesisError{Message: "create request", Err: err}
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &SynthesisError{Message: "elevenlabs request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &SynthesisError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("elevenlabs error %d: %s", resp.StatusCode, string(body)),
		}
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthesisError{Message: "read audio", Err: err}
	}
	if len(pcm) == 0 {
		return nil, &SynthesisError{Message: "empty audio response"}
	}
	return audio.EncodeWAV(pcm, PlaybackConfig), nil
}
