// Package tts defines the speech-synthesis gateway and its
// ElevenLabs-backed implementation.
package tts

import (
	"context"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
)

// PlaybackConfig is the fixed output format every synthesizer produces.
var PlaybackConfig = audio.Config{SampleRate: 22050, Channels: 1, BitsPerSample: 16}

// Synthesizer converts reply text into playable audio.
type Synthesizer interface {
	// SynthesizeToMemory returns a complete WAV clip in PlaybackConfig
	// format, never touching disk.
	SynthesizeToMemory(ctx context.Context, text string) ([]byte, error)
}

// SynthesisError is a speech-synthesis backend failure.
type SynthesisError struct {
	Status  int
	Message string
	Err     error
}

func (e *SynthesisError) Error() string {
	if e.Err != nil {
		return "tts: " + e.Message + ": " + e.Err.Error()
	}
	return "tts: " + e.Message
}

func (e *SynthesisError) Unwrap() error { return e.Err }
