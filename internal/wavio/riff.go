package wavio

import (
	"errors"
	"fmt"

	"github.com/minicodemonkey/dxrender/internal/binread"
)

// ErrInvalidWAV is returned for payloads that are not RIFF/WAVE files.
var ErrInvalidWAV = errors.New("wavio: invalid wav data")

// ErrUnsupported is returned for WAV encodings the decoder cannot handle.
var ErrUnsupported = errors.New("wavio: unsupported wav encoding")

// Format tags found in the fmt chunk.
const (
	TagPCM        uint16 = 0x0001
	TagMSADPCM    uint16 = 0x0002
	TagFloat      uint16 = 0x0003
	TagExtensible uint16 = 0xFFFE
)

// Info describes a WAV payload without decoding its samples.
type Info struct {
	Tag           uint16
	Channels      int
	SampleRate    int
	BitsPerSample int
	BlockAlign    int
	Frames        int

	extra []byte // fmt chunk bytes past the first 16
	data  []byte // data chunk payload
}

// TagName returns a short name for the format tag.
func (i Info) TagName() string {
	switch i.Tag {
	case TagPCM:
		return "pcm"
	case TagMSADPCM:
		return "ms-adpcm"
	case TagFloat:
		return "float"
	case TagExtensible:
		return "extensible"
	default:
		return fmt.Sprintf("0x%04x", i.Tag)
	}
}

// Probe walks the RIFF chunks of a WAV payload and reports its format.
func Probe(data []byte) (Info, error) {
	var info Info

	r := binread.NewReader(data)
	riff, err := r.Bytes(4)
	if err != nil {
		return info, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}
	if _, err := r.Uint32(); err != nil {
		return info, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}
	wave, err := r.Bytes(4)
	if err != nil {
		return info, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}
	if string(riff) != "RIFF" || string(wave) != "WAVE" {
		return info, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var haveFmt, haveData bool
	for r.Remaining() >= 8 && !(haveFmt && haveData) {
		id, _ := r.Bytes(4)
		size, _ := r.Uint32()

		// Writers sometimes store a data size larger than what follows.
		n := int(size)
		if int64(size) > int64(r.Remaining()) {
			n = r.Remaining()
		}
		body, _ := r.Bytes(n)
		if size%2 == 1 && r.Remaining() > 0 {
			_ = r.Skip(1)
		}

		switch string(id) {
		case "fmt ":
			if len(body) < 16 {
				return info, fmt.Errorf("%w: fmt chunk of %d bytes", ErrInvalidWAV, len(body))
			}
			fr := binread.NewReader(body)
			tag, _ := fr.Uint16()
			channels, _ := fr.Uint16()
			rate, _ := fr.Uint32()
			_, _ = fr.Uint32() // byte rate
			align, _ := fr.Uint16()
			bits, _ := fr.Uint16()
			info.Tag = tag
			info.Channels = int(channels)
			info.SampleRate = int(rate)
			info.BlockAlign = int(align)
			info.BitsPerSample = int(bits)
			if len(body) > 18 {
				info.extra = body[18:]
			}
			haveFmt = true
		case "data":
			info.data = body
			haveData = true
		}
	}

	if !haveFmt {
		return info, fmt.Errorf("%w: no fmt chunk", ErrInvalidWAV)
	}
	if !haveData {
		return info, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
	}
	if info.Channels < 1 || info.SampleRate < 1 {
		return info, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidWAV, info.Channels, info.SampleRate)
	}

	info.Frames = info.frameCount()
	return info, nil
}

func (i Info) frameCount() int {
	switch i.Tag {
	case TagMSADPCM:
		return adpcmFrameCount(i)
	default:
		if i.BlockAlign <= 0 {
			return 0
		}
		return len(i.data) / i.BlockAlign
	}
}
