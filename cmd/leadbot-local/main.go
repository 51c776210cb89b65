package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shahid-ali2134/voice-lead-bot/internal/config"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/agent"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/lead"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/vad"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/llm"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/stt"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/tts"
)

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	captureCfg := audio.Config{SampleRate: cfg.SampleRate, Channels: 1, BitsPerSample: 16}

	mic, speaker, cleanup, err := initAudio(captureCfg)
	if err != nil {
		return err
	}
	defer cleanup()

	orch := agent.New(
		stt.NewWhisper(cfg.WhisperURL, cfg.WhisperModel, cfg.WhisperLanguage),
		llm.NewOllama(cfg.OllamaURL, cfg.OllamaModel),
		tts.NewElevenLabs(cfg.ElevenAPIKey, cfg.ElevenVoiceID, cfg.ElevenModelID),
		lead.NewStore(cfg.LeadsFile),
		logger,
		agent.Config{
			Mode:           cfg.Mode,
			MaxReplyChars:  cfg.MaxReplyChars,
			GatewayTimeout: cfg.GatewayTimeout,
			GatewayRetries: cfg.GatewayRetries,
		},
	)

	params := cfg.VADParams()
	endpointer := vad.NewEndpointer(vad.NewEnergyClassifier(captureCfg, cfg.EnergyThreshold), params)
	local := agent.NewLocal(orch, endpointer, captureCfg, params, mic, speaker, logger)

	logger.Info("voice agent running, start speaking")
	if err := local.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("conversation finished")
	return nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		fmt.Fprintf(os.Stderr, "leadbot-local: %v\n", err)
		os.Exit(1)
	}
}
