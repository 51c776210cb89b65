package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/agent"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/lead"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/vad"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/llm"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/stt"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/tts"
)

const maxInboundMessageBytes = 20 << 20 // whole-utterance WAV clips

// Gateways bundles the external backends every session talks to.
type Gateways struct {
	Transcriber stt.Transcriber
	Responder   llm.Responder
	Synthesizer tts.Synthesizer
}

// WSHandler upgrades /ws requests and runs one Session per connection,
// each with its own orchestrator and endpointer state.
type WSHandler struct {
	gateways   Gateways
	store      *lead.Store
	agentCfg   agent.Config
	captureCfg audio.Config
	vadParams  vad.Params
	threshold  float64
	tracker    *Tracker
	metrics    *Metrics
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler builds the WebSocket entry point.
func NewWSHandler(gateways Gateways, store *lead.Store, agentCfg agent.Config, captureCfg audio.Config, vadParams vad.Params, threshold float64, tracker *Tracker, metrics *Metrics, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		gateways:   gateways,
		store:      store,
		agentCfg:   agentCfg,
		captureCfg: captureCfg,
		vadParams:  vadParams,
		threshold:  threshold,
		tracker:    tracker,
		metrics:    metrics,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxInboundMessageBytes)

	sessionID := uuid.NewString()
	orch := agent.New(h.gateways.Transcriber, h.gateways.Responder, h.gateways.Synthesizer, h.store, h.logger, h.agentCfg)
	classifier := vad.NewEnergyClassifier(h.captureCfg, h.threshold)
	sess := NewSession(sessionID, conn, orch, classifier, h.vadParams, h.captureCfg, h.metrics, h.logger)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	unregister := h.tracker.Register(sessionID, Handle{
		Cancel: func() {
			cancel()
			_ = conn.Close()
		},
		Tell: sess.Tell,
	})
	defer unregister()

	h.metrics.RecordSessionStart()
	h.logger.Info("session connected", "session_id", sessionID, "remote_addr", r.RemoteAddr)

	status := "ok"
	if err := sess.Run(ctx); err != nil && ctx.Err() == nil {
		status = "error"
		h.logger.Warn("session ended with error", "session_id", sessionID, "error", err)
	}
	h.metrics.RecordSessionEnd(status)
	h.logger.Info("session closed", "session_id", sessionID, "status", status)
	_ = conn.Close()
}
