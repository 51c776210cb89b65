// Package llm defines the response-generation gateway and its
// Ollama-backed implementation.
package llm

import (
	"context"
	"sync"
)

// Responder generates free-form replies once the interview is done.
type Responder interface {
	// StreamGenerate starts generation for the prompt and returns a
	// finite, non-restartable stream of text chunks.
	StreamGenerate(ctx context.Context, prompt string) (*Stream, error)
}

// GenerationError is a response-generation backend failure.
type GenerationError struct {
	Status  int
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return "llm: " + e.Message + ": " + e.Err.Error()
	}
	return "llm: " + e.Message
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Stream is a finite sequence of generated text chunks. The channel
// closes when the backend signals completion; check Err afterwards.
type Stream struct {
	chunks chan string

	mu  sync.Mutex
	err error
}

func newStream() *Stream {
	return &Stream{chunks: make(chan string, 16)}
}

// Chunks returns the chunk channel. Closed on completion or failure.
func (s *Stream) Chunks() <-chan string { return s.chunks }

// Err reports the failure that terminated the stream, if any. Valid once
// Chunks is closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// NewStaticStream builds an already-complete stream from fixed chunks;
// useful for tests and canned replies.
func NewStaticStream(chunks ...string) *Stream {
	s := &Stream{chunks: make(chan string, len(chunks))}
	for _, c := range chunks {
		s.chunks <- c
	}
	close(s.chunks)
	return s
}

// Collect drains a responder stream into one string.
func Collect(ctx context.Context, r Responder, prompt string) (string, error) {
	stream, err := r.StreamGenerate(ctx, prompt)
	if err != nil {
		return "", err
	}
	var out []byte
	for chunk := range stream.Chunks() {
		out = append(out, chunk...)
	}
	if err := stream.Err(); err != nil {
		return "", err
	}
	return string(out), nil
}
