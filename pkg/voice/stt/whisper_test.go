package stt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("model"); got != "base" {
			t.Errorf("model = %q", got)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			file.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"  my name is Shahid \n"}`))
	}))
	defer srv.Close()

	p := NewWhisper(srv.URL, "base", "en")
	text, err := p.Transcribe(context.Background(), []byte("RIFFfake"))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "my name is Shahid" {
		t.Fatalf("text = %q", text)
	}
}

func TestWhisperBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewWhisper(srv.URL, "", "").Transcribe(context.Background(), []byte("x"))
	var terr *TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want *TranscriptionError", err)
	}
	if terr.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", terr.Status)
	}
}

func TestWhisperContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewWhisper(srv.URL, "", "").Transcribe(ctx, []byte("x")); err == nil {
		t.Fatal("expected error from canceled context")
	}
}
