// Package config loads the agent configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/dialog"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/vad"
)

// Config is everything the server and local binaries need.
type Config struct {
	Addr      string
	MetricsNS string

	Mode      dialog.Mode
	LeadsFile string

	// Capture format.
	SampleRate int

	// Endpointer tuning.
	FrameDurationMs     int
	MinSpeechFrames     int
	SilenceTolerance    int
	MinClipSpeechFrames int
	EnergyThreshold     float64

	// Gateway backends.
	WhisperURL      string
	WhisperModel    string
	WhisperLanguage string
	OllamaURL       string
	OllamaModel     string
	ElevenAPIKey    string
	ElevenVoiceID   string
	ElevenModelID   string

	// Orchestration limits.
	MaxReplyChars  int
	GatewayTimeout time.Duration
	GatewayRetries uint64

	ShutdownGracePeriod time.Duration
}

// VADParams packs the endpointer tuning.
func (c Config) VADParams() vad.Params {
	return vad.Params{
		FrameDurationMs:     c.FrameDurationMs,
		MinSpeechFrames:     c.MinSpeechFrames,
		SilenceTolerance:    c.SilenceTolerance,
		MinClipSpeechFrames: c.MinClipSpeechFrames,
	}
}

// LoadFromEnv reads configuration from the process environment. A .env
// file in the working directory is merged in first; existing variables
// win.
func LoadFromEnv() (Config, error) {
	_ = godotenv.Load()

	defaults := vad.DefaultParams()
	cfg := Config{
		Addr:                envOr("LEADBOT_ADDR", ":8765"),
		MetricsNS:           envOr("LEADBOT_METRICS_NAMESPACE", "leadbot"),
		Mode:                dialog.Mode(envOr("LEADBOT_MODE", string(dialog.ModeEnd))),
		LeadsFile:           envOr("LEADBOT_LEADS_FILE", "leads.json"),
		SampleRate:          envIntOr("LEADBOT_SAMPLE_RATE", 16000),
		FrameDurationMs:     envIntOr("LEADBOT_FRAME_MS", defaults.FrameDurationMs),
		MinSpeechFrames:     envIntOr("LEADBOT_MIN_SPEECH_FRAMES", defaults.MinSpeechFrames),
		SilenceTolerance:    envIntOr("LEADBOT_SILENCE_TOLERANCE", defaults.SilenceTolerance),
		MinClipSpeechFrames: envIntOr("LEADBOT_MIN_CLIP_SPEECH_FRAMES", defaults.MinClipSpeechFrames),
		EnergyThreshold:     envFloat64Or("LEADBOT_ENERGY_THRESHOLD", vad.DefaultEnergyThreshold),
		WhisperURL:          envOr("LEADBOT_WHISPER_URL", "http://localhost:9000"),
		WhisperModel:        envOr("LEADBOT_WHISPER_MODEL", ""),
		WhisperLanguage:     envOr("LEADBOT_WHISPER_LANGUAGE", ""),
		OllamaURL:           envOr("LEADBOT_OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:         envOr("LEADBOT_OLLAMA_MODEL", "llama3"),
		ElevenAPIKey:        os.Getenv("ELEVENLABS_API_KEY"),
		ElevenVoiceID:       envOr("ELEVENLABS_VOICE_ID", "Xb7hH8MSUJpSbSDYk0k2"),
		ElevenModelID:       envOr("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),
		MaxReplyChars:       envIntOr("LEADBOT_MAX_REPLY_CHARS", 300),
		GatewayTimeout:      envDurationOr("LEADBOT_GATEWAY_TIMEOUT", 30*time.Second),
		GatewayRetries:      uint64(envIntOr("LEADBOT_GATEWAY_RETRIES", 2)),
		ShutdownGracePeriod: envDurationOr("LEADBOT_SHUTDOWN_GRACE_PERIOD", 15*time.Second),
	}

	switch cfg.Mode {
	case dialog.ModeEnd, dialog.ModeContinue:
	default:
		return Config{}, fmt.Errorf("LEADBOT_MODE must be one of end|continue")
	}
	if cfg.SampleRate <= 0 {
		return Config{}, fmt.Errorf("LEADBOT_SAMPLE_RATE must be > 0")
	}
	validFrame := false
	for _, ms := range vad.ValidFrameDurationsMs {
		if cfg.FrameDurationMs == ms {
			validFrame = true
		}
	}
	if !validFrame {
		return Config{}, fmt.Errorf("LEADBOT_FRAME_MS must be one of 10|20|30")
	}
	if cfg.MinSpeechFrames < 0 {
		return Config{}, fmt.Errorf("LEADBOT_MIN_SPEECH_FRAMES must be >= 0")
	}
	if cfg.SilenceTolerance <= 0 {
		return Config{}, fmt.Errorf("LEADBOT_SILENCE_TOLERANCE must be > 0")
	}
	if cfg.MinClipSpeechFrames <= 0 {
		return Config{}, fmt.Errorf("LEADBOT_MIN_CLIP_SPEECH_FRAMES must be > 0")
	}
	if cfg.EnergyThreshold <= 0 || cfg.EnergyThreshold >= 1 {
		return Config{}, fmt.Errorf("LEADBOT_ENERGY_THRESHOLD must be in (0, 1)")
	}
	if cfg.LeadsFile == "" {
		return Config{}, fmt.Errorf("LEADBOT_LEADS_FILE must not be empty")
	}
	if cfg.MaxReplyChars <= 0 {
		return Config{}, fmt.Errorf("LEADBOT_MAX_REPLY_CHARS must be > 0")
	}
	if cfg.GatewayTimeout <= 0 {
		return Config{}, fmt.Errorf("LEADBOT_GATEWAY_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("LEADBOT_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat64Or(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
