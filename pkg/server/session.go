package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/agent"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/vad"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/llm"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/stt"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/tts"
)

// Session drives one conversation over one WebSocket connection. All
// inbound messages are handled to completion, in order, on the single
// session goroutine; the write mutex only exists because shutdown
// notices arrive from the tracker.
type Session struct {
	id         string
	conn       *websocket.Conn
	orch       *agent.Orchestrator
	classifier vad.Classifier
	params     vad.Params
	captureCfg audio.Config
	metrics    *Metrics
	logger     *slog.Logger

	writeMu      sync.Mutex
	writeTimeout time.Duration
}

// NewSession wraps an accepted connection.
func NewSession(id string, conn *websocket.Conn, orch *agent.Orchestrator, classifier vad.Classifier, params vad.Params, captureCfg audio.Config, metrics *Metrics, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:           id,
		conn:         conn,
		orch:         orch,
		classifier:   classifier,
		params:       params,
		captureCfg:   captureCfg,
		metrics:      metrics,
		logger:       logger.With("session_id", id),
		writeTimeout: 10 * time.Second,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Tell sends an informational message; safe to call from other
// goroutines (shutdown notices).
func (s *Session) Tell(message string) error {
	return s.send(tellMsg(message))
}

// Run speaks the opening prompt and then serves inbound messages until
// the client disconnects, the context is canceled, or a gateway failure
// exhausts its retries.
func (s *Session) Run(ctx context.Context) error {
	if err := s.speakOpening(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		msg, err := DecodeClientMessage(data)
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				s.metrics.RecordTurn("rejected")
				if err := s.send(errorMsg(de.Code, de.Message)); err != nil {
					return err
				}
				continue
			}
			return err
		}

		switch m := msg.(type) {
		case ClientAudio:
			if err := s.handleAudio(ctx, m); err != nil {
				return err
			}
		case ClientReset:
			if err := s.handleReset(ctx); err != nil {
				return err
			}
		}
	}
}

// speakOpening emits the connect sequence: current state, then the first
// prompt with its synthesis window.
func (s *Session) speakOpening(ctx context.Context) error {
	if err := s.send(stateMsg(string(s.orch.Flow().State()))); err != nil {
		return err
	}
	turn, err := s.orch.Opening(ctx)
	if err != nil {
		return s.gatewayFailure(err)
	}
	return s.speak(turn)
}

func (s *Session) handleAudio(ctx context.Context, msg ClientAudio) error {
	clip, err := base64.StdEncoding.DecodeString(msg.B64)
	if err != nil {
		s.metrics.RecordTurn("rejected")
		return s.send(errorMsg(CodeMalformed, "invalid base64 audio"))
	}

	pcm, clipCfg, err := audio.DecodeWAV(clip)
	if err != nil {
		s.metrics.RecordTurn("rejected")
		return s.send(errorMsg(CodeMalformed, "invalid wav audio"))
	}

	if !vad.GateClip(pcm, clipCfg, s.captureCfg, s.classifier, s.params) {
		s.metrics.RecordTurn("no_speech")
		return s.send(vadMsg("no_speech"))
	}

	text, err := s.orch.Transcribe(ctx, clip)
	if err != nil {
		return s.gatewayFailure(err)
	}
	if text == "" {
		s.metrics.RecordTurn("empty_transcript")
		return s.send(vadMsg("empty_transcript"))
	}

	if err := s.send(userTextMsg(text)); err != nil {
		return err
	}

	turn, err := s.orch.ProcessText(ctx, text)
	if err != nil {
		return s.gatewayFailure(err)
	}

	if err := s.speakTurn(turn); err != nil {
		return err
	}

	if turn.Lead != nil {
		s.metrics.RecordLead()
		if err := s.send(leadMsg(turn.Lead.Fields)); err != nil {
			return err
		}
	}
	s.metrics.RecordTurn("ok")
	return nil
}

func (s *Session) handleReset(ctx context.Context) error {
	s.orch.Reset()
	s.logger.Info("session reset")
	if err := s.send(tellMsg("reset_ok")); err != nil {
		return err
	}
	return s.speakOpening(ctx)
}

// speakTurn emits the full per-turn reply: new state, text, then the
// synthesis window.
func (s *Session) speakTurn(turn *agent.Turn) error {
	if err := s.send(stateMsg(string(turn.State))); err != nil {
		return err
	}
	return s.speak(turn)
}

func (s *Session) speak(turn *agent.Turn) error {
	if err := s.send(agentTextMsg(turn.ReplyText)); err != nil {
		return err
	}
	if err := s.send(speakingMsg(true)); err != nil {
		return err
	}
	if err := s.send(ttsAudioMsg(base64.StdEncoding.EncodeToString(turn.ReplyAudio))); err != nil {
		return err
	}
	return s.send(speakingMsg(false))
}

// gatewayFailure reports the failure to the client, counts it, and
// propagates it so the session ends. Retries already ran inside the
// orchestrator.
func (s *Session) gatewayFailure(err error) error {
	gateway := gatewayName(err)
	s.metrics.RecordGatewayError(gateway)
	s.logger.Error("gateway failure", "gateway", gateway, "error", err)
	_ = s.send(errorMsg("", err.Error()))
	return err
}

func gatewayName(err error) string {
	var terr *stt.TranscriptionError
	var gerr *llm.GenerationError
	var serr *tts.SynthesisError
	switch {
	case errors.As(err, &terr):
		return "stt"
	case errors.As(err, &gerr):
		return "llm"
	case errors.As(err, &serr):
		return "tts"
	default:
		return "unknown"
	}
}

func (s *Session) send(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteJSON(v)
}
