package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeWAV wraps raw PCM in a minimal RIFF/WAVE container.
func EncodeWAV(pcm []byte, cfg Config) []byte {
	var buf bytes.Buffer

	dataLen := uint32(len(pcm))
	blockAlign := uint16(cfg.Channels * cfg.BitsPerSample / 8)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(cfg.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(cfg.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(cfg.BytesPerSecond()))
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, uint16(cfg.BitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)

	return buf.Bytes()
}

// DecodeWAV parses a RIFF/WAVE container and returns the raw PCM payload
// and its format. Chunks other than "fmt " and "data" are skipped.
func DecodeWAV(data []byte) ([]byte, Config, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, Config{}, fmt.Errorf("wav: not a RIFF/WAVE stream")
	}

	var cfg Config
	var pcm []byte
	haveFmt := false

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			// Truncated chunk: take what is there for data, stop otherwise.
			if id == "data" {
				pcm = data[body:]
				break
			}
			return nil, Config{}, fmt.Errorf("wav: truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, Config{}, fmt.Errorf("wav: fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, Config{}, fmt.Errorf("wav: unsupported audio format %d (want PCM)", format)
			}
			cfg.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			cfg.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			cfg.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are word-aligned.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt {
		return nil, Config{}, fmt.Errorf("wav: missing fmt chunk")
	}
	if pcm == nil {
		return nil, Config{}, fmt.Errorf("wav: missing data chunk")
	}
	return pcm, cfg, nil
}
