package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/agent"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/lead"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/vad"
)

// Options configures the agent server.
type Options struct {
	Addr            string
	Gateways        Gateways
	Store           *lead.Store
	AgentConfig     agent.Config
	CaptureConfig   audio.Config
	VADParams       vad.Params
	EnergyThreshold float64
	MetricsNS       string
	Logger          *slog.Logger
}

// Server hosts the WebSocket gateway and the surrounding HTTP surface.
type Server struct {
	httpServer *http.Server
	tracker    *Tracker
	metrics    *Metrics
	store      *lead.Store
	logger     *slog.Logger
}

// New assembles the server and its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracker := NewTracker()
	metrics := NewMetrics(opts.MetricsNS)

	s := &Server{
		tracker: tracker,
		metrics: metrics,
		store:   opts.Store,
		logger:  logger,
	}

	wsHandler := NewWSHandler(opts.Gateways, opts.Store, opts.AgentConfig, opts.CaptureConfig, opts.VADParams, opts.EnergyThreshold, tracker, metrics, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/leads", s.handleLeads)
	mux.Handle("/metrics", metrics.Handler())

	var handler http.Handler = mux
	handler = Recover(logger)(handler)
	handler = AccessLog(logger)(handler)
	handler = RequestID(handler)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown notifies live sessions, cancels them, waits for the drain,
// then stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if n := s.tracker.TellAll("server_shutting_down"); n > 0 {
		s.logger.Info("notified live sessions", "count", n)
	}
	s.tracker.CancelAll()
	if !s.tracker.Wait(ctx) {
		s.logger.Warn("session drain timed out", "remaining", s.tracker.Count())
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.tracker.Count(),
	})
}

// handleLeads serves the captured lead collection read-only.
func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	records, err := s.store.Load()
	if err != nil {
		s.logger.Error("lead load failed", "error", err)
		http.Error(w, "lead store unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
