package vad

import (
	"errors"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
)

// ErrNoSpeech is returned when an utterance window closes without a
// single speech frame. Callers treat it as a retryable signal, not a
// failure.
var ErrNoSpeech = errors.New("vad: no speech captured")

// Params tunes the endpointer hysteresis. All values are frame counts
// except FrameDurationMs; none of them assume a particular sample rate.
type Params struct {
	// FrameDurationMs is the classification frame length (10, 20 or 30).
	FrameDurationMs int

	// MinSpeechFrames is the confirmation threshold: trailing silence is
	// only counted once more than this many speech frames have been seen.
	// Prevents leading noise from prematurely counting as trailing silence.
	MinSpeechFrames int

	// SilenceTolerance is the silence run length that, once exceeded,
	// declares the endpoint.
	SilenceTolerance int

	// MinClipSpeechFrames is the per-clip gate used by GateClip: a whole
	// decoded clip must contain at least this many speech frames to pass.
	MinClipSpeechFrames int
}

// DefaultParams mirrors the production tuning for 16 kHz/30 ms capture,
// but nothing below depends on those numbers.
func DefaultParams() Params {
	return Params{
		FrameDurationMs:     30,
		MinSpeechFrames:     5,
		SilenceTolerance:    20,
		MinClipSpeechFrames: 3,
	}
}

// Endpointer accumulates frames into an utterance and declares its end
// using speech/silence hysteresis:
//
//   - a speech frame is appended to the buffer, bumps speechFrames and
//     resets the silence run;
//   - a silence frame bumps the silence run only after MinSpeechFrames
//     speech frames have been confirmed;
//   - the utterance is finalized once speechFrames > 0 and the silence
//     run exceeds SilenceTolerance.
//
// A naive silence-triggered cutoff would truncate slow starters or
// false-trigger on brief noise bursts.
type Endpointer struct {
	classifier Classifier
	params     Params

	buf          []byte
	speechFrames int
	silenceRun   int
}

// NewEndpointer builds an endpointer over the given classifier.
func NewEndpointer(classifier Classifier, params Params) *Endpointer {
	if params.FrameDurationMs <= 0 {
		params.FrameDurationMs = 30
	}
	if params.SilenceTolerance <= 0 {
		params.SilenceTolerance = DefaultParams().SilenceTolerance
	}
	return &Endpointer{classifier: classifier, params: params}
}

// Feed classifies one frame and reports whether the utterance just
// ended. Classification errors (wrong frame length) propagate unchanged.
func (e *Endpointer) Feed(frame []byte) (done bool, err error) {
	speech, err := e.classifier.Classify(frame)
	if err != nil {
		return false, err
	}

	if speech {
		e.buf = append(e.buf, frame...)
		e.speechFrames++
		e.silenceRun = 0
	} else if e.speechFrames > e.params.MinSpeechFrames {
		e.silenceRun++
	}

	return e.speechFrames > 0 && e.silenceRun > e.params.SilenceTolerance, nil
}

// Take returns the finalized utterance PCM and resets the endpointer
// for the next turn. ErrNoSpeech is returned when no speech frame was
// ever observed.
func (e *Endpointer) Take() ([]byte, error) {
	pcm := e.buf
	speech := e.speechFrames
	e.Reset()

	if speech == 0 || len(pcm) == 0 {
		return nil, ErrNoSpeech
	}
	return pcm, nil
}

// Reset discards any in-progress utterance and all hysteresis state.
func (e *Endpointer) Reset() {
	e.buf = nil
	e.speechFrames = 0
	e.silenceRun = 0
}

// SpeechFrames exposes the confirmed speech frame count.
func (e *Endpointer) SpeechFrames() int { return e.speechFrames }

// GateClip decides whether a whole decoded clip contains enough speech
// to be worth transcribing. The clip is split into classifier frames;
// at least params.MinClipSpeechFrames of them must be speech. Clips in
// a format other than cfg are tolerated permissively: they pass the
// gate unchecked rather than failing the turn.
func GateClip(pcm []byte, clipCfg, wantCfg audio.Config, classifier Classifier, params Params) bool {
	if clipCfg != wantCfg {
		return true
	}

	frameBytes := wantCfg.BytesForDurationMs(params.FrameDurationMs)
	if frameBytes <= 0 {
		return true
	}

	speech := 0
	total := 0
	for off := 0; off+frameBytes <= len(pcm); off += frameBytes {
		total++
		ok, err := classifier.Classify(pcm[off : off+frameBytes])
		if err != nil {
			return true
		}
		if ok {
			speech++
		}
	}
	if total == 0 {
		return false
	}
	return speech >= params.MinClipSpeechFrames
}
