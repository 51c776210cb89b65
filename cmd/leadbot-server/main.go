package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shahid-ali2134/voice-lead-bot/internal/config"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/agent"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/lead"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/server"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/llm"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/stt"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/tts"
)

type serverDeps struct {
	loadConfig   func() (config.Config, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultServerDeps() serverDeps {
	return serverDeps{
		loadConfig: config.LoadFromEnv,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildServer(cfg config.Config, logger *slog.Logger) *server.Server {
	return server.New(server.Options{
		Addr: cfg.Addr,
		Gateways: server.Gateways{
			Transcriber: stt.NewWhisper(cfg.WhisperURL, cfg.WhisperModel, cfg.WhisperLanguage),
			Responder:   llm.NewOllama(cfg.OllamaURL, cfg.OllamaModel),
			Synthesizer: tts.NewElevenLabs(cfg.ElevenAPIKey, cfg.ElevenVoiceID, cfg.ElevenModelID),
		},
		Store: lead.NewStore(cfg.LeadsFile),
		AgentConfig: agent.Config{
			Mode:           cfg.Mode,
			MaxReplyChars:  cfg.MaxReplyChars,
			GatewayTimeout: cfg.GatewayTimeout,
			GatewayRetries: cfg.GatewayRetries,
		},
		CaptureConfig:   audio.Config{SampleRate: cfg.SampleRate, Channels: 1, BitsPerSample: 16},
		VADParams:       cfg.VADParams(),
		EnergyThreshold: cfg.EnergyThreshold,
		MetricsNS:       cfg.MetricsNS,
		Logger:          logger,
	})
}

func runServer(ctx context.Context, logger *slog.Logger, deps serverDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	srv := buildServer(cfg, logger)

	listenErrCh := make(chan error, 1)
	go func() {
		listenErrCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps serverDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := runServer(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "leadbot-server: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultServerDeps()))
}
