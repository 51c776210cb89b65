// Package agent binds endpointing, transcription, the interview flow and
// synthesis into the per-turn orchestration shared by the local and
// protocol drivers.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/dialog"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/lead"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/llm"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/stt"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/tts"
)

// ErrEmptyTranscript signals a turn where the backend heard nothing.
// Retryable: the caller keeps listening, no state changes.
var ErrEmptyTranscript = errors.New("agent: empty transcript")

// The free-chat instruction prepended to every post-qualification prompt.
const brevityInstruction = "Answer in 1-2 sentences only. " +
	"Keep it conversational and concise. " +
	"Avoid repeating the user's exact phrasing."

// Config tunes the orchestrator.
type Config struct {
	// Mode selects what happens after qualification.
	Mode dialog.Mode

	// MaxReplyChars caps free-chat replies before synthesis; longer
	// responses are truncated with an ellipsis. Defaults to 300.
	MaxReplyChars int

	// GatewayTimeout bounds each external gateway call. Defaults to 30s.
	GatewayTimeout time.Duration

	// GatewayRetries is the number of retries after the first failed
	// gateway attempt. Defaults to 2.
	GatewayRetries uint64
}

func (c Config) withDefaults() Config {
	if c.MaxReplyChars <= 0 {
		c.MaxReplyChars = 300
	}
	if c.GatewayTimeout <= 0 {
		c.GatewayTimeout = 30 * time.Second
	}
	return c
}

// Turn is the observable outcome of processing one utterance.
type Turn struct {
	UserText   string
	State      dialog.State
	ReplyText  string
	ReplyAudio []byte // WAV in tts.PlaybackConfig format

	// Lead is set on the single turn that completes qualification.
	Lead *lead.Record

	// LeadSaveErr reports a persistence failure for Lead. The reply was
	// already delivered, so storage trouble must not eat the turn; it is
	// surfaced here instead.
	LeadSaveErr error
}

// Orchestrator drives one conversation. Not safe for concurrent use;
// every session owns its own.
type Orchestrator struct {
	transcriber stt.Transcriber
	responder   llm.Responder
	synthesizer tts.Synthesizer
	store       *lead.Store
	logger      *slog.Logger
	cfg         Config

	flow      *dialog.Flow
	leadSaved bool
}

// New creates an orchestrator with a fresh interview flow.
func New(transcriber stt.Transcriber, responder llm.Responder, synthesizer tts.Synthesizer, store *lead.Store, logger *slog.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Orchestrator{
		transcriber: transcriber,
		responder:   responder,
		synthesizer: synthesizer,
		store:       store,
		logger:      logger,
		cfg:         cfg,
		flow:        dialog.NewFlow(cfg.Mode),
	}
}

// Flow exposes the interview state machine.
func (o *Orchestrator) Flow() *dialog.Flow { return o.flow }

// Reset discards the conversation and starts a new interview.
func (o *Orchestrator) Reset() {
	o.flow = dialog.NewFlow(o.cfg.Mode)
	o.leadSaved = false
}

// Opening produces the interview's first prompt with its audio. No input
// is consumed.
func (o *Orchestrator) Opening(ctx context.Context) (*Turn, error) {
	prompt := o.flow.NextPrompt("")
	turn := &Turn{State: o.flow.State(), ReplyText: prompt}
	if err := o.synthesize(ctx, turn); err != nil {
		return nil, err
	}
	return turn, nil
}

// ProcessUtterance runs one full turn over a finalized utterance clip:
// transcribe, extract/advance (or free-chat), persist the lead when the
// interview just completed, synthesize the reply.
func (o *Orchestrator) ProcessUtterance(ctx context.Context, wav []byte) (*Turn, error) {
	text, err := o.Transcribe(ctx, wav)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrEmptyTranscript
	}
	return o.ProcessText(ctx, text)
}

// ProcessText is ProcessUtterance minus transcription; the protocol
// driver uses it after echoing recognized text to the client.
func (o *Orchestrator) ProcessText(ctx context.Context, text string) (*Turn, error) {
	turn := &Turn{UserText: text}

	if !o.flow.IsQualified() {
		extracted := dialog.ExtractForState(o.flow.State(), text)
		turn.ReplyText = o.flow.NextPrompt(extracted)
		turn.State = o.flow.State()

		if o.flow.IsQualified() && !o.leadSaved {
			o.leadSaved = true
			rec := lead.NewRecord(o.flow.LeadData())
			if err := o.store.Append(rec); err != nil {
				o.logger.Error("lead persist failed", "error", err, "lead_id", rec.ID)
				turn.LeadSaveErr = err
			} else {
				o.logger.Info("lead captured", "lead_id", rec.ID)
			}
			turn.Lead = &rec
		}
	} else if o.flow.Mode() == dialog.ModeEnd {
		// End mode is over once qualified: re-entries get the short
		// farewell, never the responder.
		turn.ReplyText = o.flow.NextPrompt(text)
		turn.State = o.flow.State()
	} else {
		reply, err := o.generateShort(ctx, text)
		if err != nil {
			return nil, err
		}
		turn.ReplyText = reply
		turn.State = o.flow.State()
	}

	if err := o.synthesize(ctx, turn); err != nil {
		return nil, err
	}
	return turn, nil
}

// Transcribe runs the transcription gateway under the retry/timeout
// policy. The protocol driver calls it directly so it can echo recognized
// text before advancing the flow.
func (o *Orchestrator) Transcribe(ctx context.Context, wav []byte) (string, error) {
	var text string
	err := o.withRetry(ctx, func(ctx context.Context) error {
		var err error
		text, err = o.transcriber.Transcribe(ctx, wav)
		return err
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (o *Orchestrator) generateShort(ctx context.Context, userText string) (string, error) {
	prompt := brevityInstruction + "\nUser: " + userText + "\nAssistant:"

	var reply string
	err := o.withRetry(ctx, func(ctx context.Context) error {
		var err error
		reply, err = llm.Collect(ctx, o.responder, prompt)
		return err
	})
	if err != nil {
		return "", err
	}

	// The cap is in characters, not bytes; slicing bytes could cut a
	// rune in half and leak invalid UTF-8 into the protocol.
	if runes := []rune(reply); len(runes) > o.cfg.MaxReplyChars {
		o.logger.Warn("reply too long, truncating", "chars", len(runes), "max", o.cfg.MaxReplyChars)
		reply = string(runes[:o.cfg.MaxReplyChars]) + "..."
	}
	return strings.TrimSpace(reply), nil
}

func (o *Orchestrator) synthesize(ctx context.Context, turn *Turn) error {
	return o.withRetry(ctx, func(ctx context.Context) error {
		wav, err := o.synthesizer.SynthesizeToMemory(ctx, turn.ReplyText)
		if err != nil {
			return err
		}
		turn.ReplyAudio = wav
		return nil
	})
}

// withRetry runs one gateway call under a per-attempt deadline with
// bounded exponential backoff. A hung backend must not stall the session
// forever.
func (o *Orchestrator) withRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(o.cfg.GatewayRetries, retry.NewExponential(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.GatewayTimeout)
		defer cancel()
		if err := fn(attemptCtx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
