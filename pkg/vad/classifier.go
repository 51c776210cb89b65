// Package vad implements frame-level voice activity detection and the
// utterance endpointer built on top of it.
package vad

import (
	"fmt"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
)

// ValidFrameDurationsMs lists the frame lengths the classifier accepts.
var ValidFrameDurationsMs = []int{10, 20, 30}

// InvalidFrameError is returned when a frame's byte length does not
// correspond to a supported duration at the configured sample rate.
type InvalidFrameError struct {
	Bytes      int
	SampleRate int
}

func (e *InvalidFrameError) Error() string {
	return fmt.Sprintf("vad: frame of %d bytes is not 10/20/30 ms at %d Hz", e.Bytes, e.SampleRate)
}

// Classifier decides whether a single fixed-duration frame contains speech.
type Classifier interface {
	Classify(frame []byte) (bool, error)
}

// EnergyClassifier classifies frames by RMS energy against a threshold.
// It accepts only frames of 10, 20 or 30 ms of 16-bit mono PCM.
type EnergyClassifier struct {
	cfg       audio.Config
	threshold float64
}

// DefaultEnergyThreshold is the RMS level below which a frame counts as
// silence. Normalized 0.0-1.0 scale.
const DefaultEnergyThreshold = 0.02

// NewEnergyClassifier builds a classifier for the given PCM format.
// A threshold <= 0 selects DefaultEnergyThreshold.
func NewEnergyClassifier(cfg audio.Config, threshold float64) *EnergyClassifier {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	return &EnergyClassifier{cfg: cfg, threshold: threshold}
}

// Classify reports whether the frame contains speech.
func (c *EnergyClassifier) Classify(frame []byte) (bool, error) {
	if !c.frameLengthValid(len(frame)) {
		return false, &InvalidFrameError{Bytes: len(frame), SampleRate: c.cfg.SampleRate}
	}
	return audio.RMSEnergy(frame) >= c.threshold, nil
}

func (c *EnergyClassifier) frameLengthValid(n int) bool {
	for _, ms := range ValidFrameDurationsMs {
		if n == c.cfg.BytesForDurationMs(ms) {
			return true
		}
	}
	return false
}
