package main

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/audio"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/tts"
)

// initAudio sets up microphone capture and speaker playback. The cleanup
// func releases both devices; call it on every exit path.
func initAudio(captureCfg audio.Config) (*micReader, *speakerPlayer, func(), error) {
	malgoConfig := malgo.ContextConfig{}
	malgoConfig.ThreadPriority = malgo.ThreadPriorityRealtime

	malgoCtx, err := malgo.InitContext(nil, malgoConfig, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init audio context: %w", err)
	}

	mic, err := newMicReader(malgoCtx.Context, captureCfg)
	if err != nil {
		malgoCtx.Uninit()
		return nil, nil, nil, err
	}

	playCfg := tts.PlaybackConfig
	otoOpts := &oto.NewContextOptions{
		SampleRate:   playCfg.SampleRate,
		ChannelCount: playCfg.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	otoCtx, ready, err := oto.NewContext(otoOpts)
	if err != nil {
		mic.Close()
		malgoCtx.Uninit()
		return nil, nil, nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready

	speaker := &speakerPlayer{otoCtx: otoCtx, cfg: playCfg}

	cleanup := func() {
		mic.Close()
		malgoCtx.Uninit()
	}
	return mic, speaker, cleanup, nil
}

// micReader captures PCM from the default microphone and hands it out
// frame by frame.
type micReader struct {
	device *malgo.Device
	buf    []byte
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
}

func newMicReader(ctx malgo.Context, cfg audio.Config) (*micReader, error) {
	m := &micReader{
		buf: make([]byte, 0, cfg.BytesPerSecond()),
	}
	m.cond = sync.NewCond(&m.mu)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			m.mu.Lock()
			m.buf = append(m.buf, pInputSamples...)
			m.mu.Unlock()
			m.cond.Signal()
		},
	}

	device, err := malgo.InitDevice(ctx, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("init microphone: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("start microphone: %w", err)
	}
	return m, nil
}

// ReadFrame blocks until the frame is completely filled.
func (m *micReader) ReadFrame(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.buf) < len(frame) {
		if m.closed {
			return fmt.Errorf("microphone closed")
		}
		m.cond.Wait()
	}

	copy(frame, m.buf[:len(frame)])
	m.buf = m.buf[len(frame):]
	return nil
}

func (m *micReader) Close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()

	if m.device != nil {
		m.device.Stop()
		m.device.Uninit()
	}
}

// speakerPlayer renders WAV clips through the speaker, blocking until
// playback completes.
type speakerPlayer struct {
	otoCtx *oto.Context
	cfg    audio.Config
}

func (s *speakerPlayer) PlayWAV(wav []byte) error {
	pcm, cfg, err := audio.DecodeWAV(wav)
	if err != nil {
		return fmt.Errorf("decode reply audio: %w", err)
	}
	if cfg != s.cfg {
		return fmt.Errorf("reply audio is %d Hz/%d ch, speaker expects %d Hz/%d ch",
			cfg.SampleRate, cfg.Channels, s.cfg.SampleRate, s.cfg.Channels)
	}

	player := s.otoCtx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return player.Close()
}
