// Package stt defines the speech-to-text gateway and its Whisper-backed
// implementation.
package stt

import "context"

// Transcriber converts a spoken audio clip to text.
type Transcriber interface {
	// Transcribe converts a WAV clip to text. An empty string with a nil
	// error means the backend heard nothing intelligible.
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// TranscriptionError is a speech-to-text backend failure.
type TranscriptionError struct {
	Status  int
	Message string
	Err     error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return "stt: " + e.Message + ": " + e.Err.Error()
	}
	return "stt: " + e.Message
}

func (e *TranscriptionError) Unwrap() error { return e.Err }
