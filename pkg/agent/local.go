package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/dialog"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/vad"
)

// FrameSource delivers fixed-size capture frames; ReadFrame blocks until
// the frame is filled.
type FrameSource interface {
	ReadFrame(frame []byte) error
}

// Player renders a WAV clip and blocks until playback finishes.
type Player interface {
	PlayWAV(wav []byte) error
}

// Local is the blocking single-conversation driver: one turn at a time,
// each blocking on capture, then on the gateways, then on playback.
type Local struct {
	orch       *Orchestrator
	endpointer *vad.Endpointer
	captureCfg audio.Config
	frameBytes int
	source     FrameSource
	player     Player
	logger     *slog.Logger
}

// NewLocal wires a local driver over the given capture devices.
func NewLocal(orch *Orchestrator, endpointer *vad.Endpointer, captureCfg audio.Config, params vad.Params, source FrameSource, player Player, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		orch:       orch,
		endpointer: endpointer,
		captureCfg: captureCfg,
		frameBytes: captureCfg.BytesForDurationMs(params.FrameDurationMs),
		source:     source,
		player:     player,
		logger:     logger,
	}
}

// Run speaks the opening prompt, then loops: record until silence,
// process the utterance, play the reply. In end mode the loop returns
// after the qualifying turn's farewell; in continue mode it runs until
// the context is canceled.
func (l *Local) Run(ctx context.Context) error {
	opening, err := l.orch.Opening(ctx)
	if err != nil {
		return err
	}
	l.logger.Info("agent", "text", opening.ReplyText)
	if err := l.player.PlayWAV(opening.ReplyAudio); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pcm, err := l.recordUtterance(ctx)
		if errors.Is(err, vad.ErrNoSpeech) {
			l.logger.Info("nothing recorded, listening again")
			continue
		}
		if err != nil {
			return err
		}

		turn, err := l.orch.ProcessUtterance(ctx, audio.EncodeWAV(pcm, l.captureCfg))
		if errors.Is(err, ErrEmptyTranscript) {
			l.logger.Info("no speech detected, listening again")
			continue
		}
		if err != nil {
			return err
		}

		l.logger.Info("you said", "text", turn.UserText)
		l.logger.Info("agent", "text", turn.ReplyText, "state", turn.State)
		if err := l.player.PlayWAV(turn.ReplyAudio); err != nil {
			return err
		}

		if turn.Lead != nil && l.orch.Flow().Mode() == dialog.ModeEnd {
			return nil
		}
	}
}

// recordUtterance blocks on the frame source until the endpointer
// declares an endpoint, then hands back the buffered speech.
func (l *Local) recordUtterance(ctx context.Context) ([]byte, error) {
	frame := make([]byte, l.frameBytes)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := l.source.ReadFrame(frame); err != nil {
			return nil, err
		}
		done, err := l.endpointer.Feed(frame)
		if err != nil {
			return nil, err
		}
		if done {
			return l.endpointer.Take()
		}
	}
}
