package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OllamaProvider streams completions from an Ollama server
// (POST {base}/api/generate, one JSON object per line, final object
// carries the done marker).
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllama creates a responder for the given server and model.
func NewOllama(baseURL, model string) *OllamaProvider {
	return NewOllamaWithClient(baseURL, model, nil)
}

// NewOllamaWithClient creates a responder with a custom HTTP client.
func NewOllamaWithClient(baseURL, model string, client *http.Client) *OllamaProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: client,
	}
}

// Name returns the provider identifier.
func (o *OllamaProvider) Name() string { return "ollama" }

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// StreamGenerate starts a streaming completion. The returned stream ends
// when the server sends its done marker; a mid-stream failure surfaces
// through Stream.Err.
func (o *OllamaProvider) StreamGenerate(ctx context.Context, prompt string) (*Stream, error) {
	payload, err := json.Marshal(ollamaGenerateRequest{Model: o.model, Prompt: prompt, Stream: true})
	if err != nil {
		return nil, &GenerationError{Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, &GenerationError{Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, &GenerationError{Message: "ollama request", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &GenerationError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("ollama error %d: %s", resp.StatusCode, string(body)),
		}
	}

	stream := newStream()
	go func() {
		defer close(stream.chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk ollamaGenerateChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				// Skip malformed lines; the done marker still terminates us.
				continue
			}
			if chunk.Error != "" {
				stream.setErr(&GenerationError{Message: chunk.Error})
				return
			}
			if chunk.Response != "" {
				select {
				case stream.chunks <- chunk.Response:
				case <-ctx.Done():
					stream.setErr(&GenerationError{Message: "stream canceled", Err: ctx.Err()})
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			stream.setErr(&GenerationError{Message: "read stream", Err: err})
		}
	}()

	return stream, nil
}
