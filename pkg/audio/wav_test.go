package audio

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	pcm := make([]byte, cfg.BytesForDurationMs(90))
	for i := range pcm {
		pcm[i] = byte(i)
	}

	wav := EncodeWAV(pcm, cfg)
	got, gotCfg, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if gotCfg != cfg {
		t.Fatalf("config = %+v, want %+v", gotCfg, cfg)
	}
	if !bytes.Equal(got, pcm) {
		t.Fatalf("pcm mismatch: got %d bytes, want %d", len(got), len(pcm))
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	for _, raw := range [][]byte{
		nil,
		[]byte("not audio at all"),
		[]byte("RIFF\x00\x00\x00\x00WAVE"),
	} {
		if _, _, err := DecodeWAV(raw); err == nil {
			t.Fatalf("DecodeWAV(%q) expected error", raw)
		}
	}
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	cfg := Config{SampleRate: 22050, Channels: 1, BitsPerSample: 16}
	pcm := []byte{1, 2, 3, 4}
	wav := EncodeWAV(pcm, cfg)

	// Splice a LIST chunk between fmt and data.
	fmtEnd := 12 + 8 + 16
	var spliced bytes.Buffer
	spliced.Write(wav[:fmtEnd])
	spliced.WriteString("LIST")
	spliced.Write([]byte{4, 0, 0, 0})
	spliced.WriteString("INFO")
	spliced.Write(wav[fmtEnd:])

	got, gotCfg, err := DecodeWAV(spliced.Bytes())
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if gotCfg.SampleRate != 22050 {
		t.Fatalf("sample rate = %d", gotCfg.SampleRate)
	}
	if !bytes.Equal(got, pcm) {
		t.Fatalf("pcm = %v, want %v", got, pcm)
	}
}

func TestConfigDurationMath(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.BytesPerSecond(); got != 32000 {
		t.Fatalf("BytesPerSecond() = %d, want 32000", got)
	}
	if got := cfg.BytesForDurationMs(30); got != 960 {
		t.Fatalf("BytesForDurationMs(30) = %d, want 960", got)
	}
	if got := cfg.DurationMs(960); got != 30 {
		t.Fatalf("DurationMs(960) = %d, want 30", got)
	}
}

func TestRMSEnergy(t *testing.T) {
	if got := RMSEnergy(nil); got != 0 {
		t.Fatalf("RMSEnergy(nil) = %v, want 0", got)
	}

	silence := make([]byte, 320)
	if got := RMSEnergy(silence); got != 0 {
		t.Fatalf("RMSEnergy(silence) = %v, want 0", got)
	}

	loud := make([]byte, 320)
	for i := 0; i+1 < len(loud); i += 2 {
		loud[i] = 0xFF
		loud[i+1] = 0x3F // ~0.5 full scale
	}
	got := RMSEnergy(loud)
	if got < 0.45 || got > 0.55 {
		t.Fatalf("RMSEnergy(loud) = %v, want ~0.5", got)
	}
}
