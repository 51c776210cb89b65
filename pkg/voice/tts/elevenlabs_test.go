package tts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
)

func TestElevenLabsSynthesizeToMemory(t *testing.T) {
	rawPCM := make([]byte, 4410) // 100ms at 22050 Hz

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/text-to-speech/") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("output_format"); got != "pcm_22050" {
			t.Errorf("output_format = %q", got)
		}
		if got := r.Header.Get("xi-api-key"); got != "key123" {
			t.Errorf("api key header = %q", got)
		}
		w.Write(rawPCM)
	}))
	defer srv.Close()

	p := NewElevenLabs("key123", "voice1", "eleven_multilingual_v2").WithBaseURL(srv.URL)
	wav, err := p.SynthesizeToMemory(context.Background(), "Hi there!")
	if err != nil {
		t.Fatalf("SynthesizeToMemory() error = %v", err)
	}

	pcm, cfg, err := audio.DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if cfg != PlaybackConfig {
		t.Fatalf("config = %+v, want %+v", cfg, PlaybackConfig)
	}
	if len(pcm) != len(rawPCM) {
		t.Fatalf("pcm = %d bytes, want %d", len(pcm), len(rawPCM))
	}
}

func TestElevenLabsBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewElevenLabs("key123", "voice1", "").WithBaseURL(srv.URL)
	_, err := p.SynthesizeToMemory(context.Background(), "hello")
	var serr *SynthesisError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want *SynthesisError", err)
	}
	if serr.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d", serr.Status)
	}
}

func TestElevenLabsRequiresAPIKey(t *testing.T) {
	p := NewElevenLabs("", "voice1", "")
	if _, err := p.SynthesizeToMemory(context.Background(), "hello"); err == nil {
		t.Fatal("expected error without api key")
	}
}
