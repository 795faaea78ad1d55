package providers

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Audio is mono PCM audio as float samples in [-1, 1].
type Audio struct {
	Samples    []float32
	SampleRate int
}

// Peak returns the largest absolute sample value.
func (a Audio) Peak() float64 {
	var peak float64
	for _, s := range a.Samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	return peak
}

// Duration returns the audio length in seconds.
func (a Audio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// ErrBadWAV is returned for WAV data that cannot be decoded.
var ErrBadWAV = errors.New("unsupported or malformed WAV data")

// EncodeWAV renders a as a 16-bit PCM mono WAV file.
func EncodeWAV(a Audio) []byte {
	dataLen := len(a.Samples) * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataLen)

	le := binary.LittleEndian
	buf.WriteString("RIFF")
	binary.Write(&buf, le, uint32(36+dataLen))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, le, uint32(16))             // fmt chunk size
	binary.Write(&buf, le, uint16(1))              // PCM
	binary.Write(&buf, le, uint16(1))              // mono
	binary.Write(&buf, le, uint32(a.SampleRate))   // sample rate
	binary.Write(&buf, le, uint32(a.SampleRate*2)) // byte rate
	binary.Write(&buf, le, uint16(2))              // block align
	binary.Write(&buf, le, uint16(16))             // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, le, uint32(dataLen))

	for _, s := range a.Samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		binary.Write(&buf, le, int16(v*math.MaxInt16))
	}
	return buf.Bytes()
}

// DecodeWAV parses 16-bit PCM WAV data. Multi-channel audio is downmixed.
func DecodeWAV(data []byte) (Audio, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Audio{}, ErrBadWAV
	}
	le := binary.LittleEndian

	var channels, bits int
	var rate int
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(le.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(data) {
			end = len(data) // streamed WAVs often carry a bogus data size
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return Audio{}, ErrBadWAV
			}
			if format := le.Uint16(data[body:]); format != 1 {
				return Audio{}, fmt.Errorf("%w: format %d", ErrBadWAV, format)
			}
			channels = int(le.Uint16(data[body+2:]))
			rate = int(le.Uint32(data[body+4:]))
			bits = int(le.Uint16(data[body+14:]))
		case "data":
			if channels == 0 || bits != 16 {
				return Audio{}, fmt.Errorf("%w: %d-bit %d-channel", ErrBadWAV, bits, channels)
			}
			pcm := data[body:end]
			frames := len(pcm) / (2 * channels)
			samples := make([]float32, frames)
			for i := 0; i < frames; i++ {
				var sum float32
				for c := 0; c < channels; c++ {
					off := (i*channels + c) * 2
					sum += float32(int16(le.Uint16(pcm[off:]))) / math.MaxInt16
				}
				samples[i] = sum / float32(channels)
			}
			return Audio{Samples: samples, SampleRate: rate}, nil
		}

		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}
	return Audio{}, fmt.Errorf("%w: no data chunk", ErrBadWAV)
}
