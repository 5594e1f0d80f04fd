// Package wavio decodes the WAV payloads embedded in sample archives and
// encodes the final mixdown.
//
// Integer PCM goes through go-audio/wav. Microsoft ADPCM, which most archives
// use, and 32-bit float are expanded here since go-audio/wav reads neither.
package wavio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Decode expands a WAV payload into interleaved float samples in [-1, 1).
func Decode(data []byte) (*audio.FloatBuffer, error) {
	info, err := Probe(data)
	if err != nil {
		return nil, err
	}

	format := &audio.Format{NumChannels: info.Channels, SampleRate: info.SampleRate}

	switch info.Tag {
	case TagPCM, TagExtensible:
		return decodePCM(data, info, format)

	case TagMSADPCM:
		pcm, err := decodeADPCM(info)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(pcm))
		for i, s := range pcm {
			out[i] = float64(s) / 32768
		}
		return &audio.FloatBuffer{Format: format, Data: out}, nil

	case TagFloat:
		if info.BitsPerSample != 32 {
			return nil, fmt.Errorf("%w: %d-bit float", ErrUnsupported, info.BitsPerSample)
		}
		n := len(info.data) / 4
		n -= n % info.Channels
		out := make([]float64, n)
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(info.data[i*4:])))
		}
		return &audio.FloatBuffer{Format: format, Data: out}, nil
	}

	return nil, fmt.Errorf("%w: format tag %s", ErrUnsupported, info.TagName())
}

func decodePCM(data []byte, info Info, format *audio.Format) (*audio.FloatBuffer, error) {
	switch info.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit pcm", ErrUnsupported, info.BitsPerSample)
	}

	// go-audio/wav treats a zero-duration file as invalid.
	if info.Frames == 0 {
		return &audio.FloatBuffer{Format: format, Data: []float64{}}, nil
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: rejected by wav decoder", ErrInvalidWAV)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding pcm: %w", err)
	}

	bits := info.BitsPerSample
	scale := float64(int64(1) << (bits - 1))
	n := len(buf.Data)
	n -= n % info.Channels
	out := make([]float64, n)
	for i := range out {
		v := buf.Data[i]
		if bits == 8 {
			// 8-bit WAV samples are unsigned.
			v -= 128
		}
		out[i] = float64(v) / scale
	}
	return &audio.FloatBuffer{Format: format, Data: out}, nil
}
