package wavio

import (
	"encoding/binary"
	"fmt"
)

// Microsoft ADPCM tables (fixed by the format).
var (
	adpcmAdaptation = [16]int{230, 230, 230, 230, 307, 409, 512, 614, 768, 614, 512, 409, 307, 230, 230, 230}

	adpcmDefaultCoefs = [][2]int{
		{256, 0}, {512, -256}, {0, 0}, {192, 64}, {240, 0}, {460, -208}, {392, -232},
	}
)

type adpcmParams struct {
	samplesPerBlock int
	coefs           [][2]int
}

func adpcmParamsFor(i Info) (adpcmParams, error) {
	p := adpcmParams{coefs: adpcmDefaultCoefs}

	ch := i.Channels
	if ch < 1 || ch > 2 {
		return p, fmt.Errorf("%w: ms-adpcm with %d channels", ErrUnsupported, ch)
	}
	if i.BlockAlign < 7*ch {
		return p, fmt.Errorf("%w: ms-adpcm block align %d", ErrInvalidWAV, i.BlockAlign)
	}
	p.samplesPerBlock = (i.BlockAlign-7*ch)*8/(4*ch) + 2

	if len(i.extra) >= 4 {
		if spb := int(binary.LittleEndian.Uint16(i.extra[0:2])); spb > 0 {
			p.samplesPerBlock = spb
		}
		n := int(binary.LittleEndian.Uint16(i.extra[2:4]))
		if n > 0 && len(i.extra) >= 4+n*4 {
			p.coefs = make([][2]int, n)
			for k := range p.coefs {
				off := 4 + k*4
				p.coefs[k][0] = int(int16(binary.LittleEndian.Uint16(i.extra[off:])))
				p.coefs[k][1] = int(int16(binary.LittleEndian.Uint16(i.extra[off+2:])))
			}
		}
	}
	return p, nil
}

func adpcmFrameCount(i Info) int {
	p, err := adpcmParamsFor(i)
	if err != nil {
		return 0
	}
	full := len(i.data) / i.BlockAlign
	frames := full * p.samplesPerBlock
	if rest := len(i.data) % i.BlockAlign; rest >= 7*i.Channels {
		frames += min(p.samplesPerBlock, 2+(rest-7*i.Channels)*2/i.Channels)
	}
	return frames
}

type adpcmChannel struct {
	coef1, coef2 int
	delta        int
	s1, s2       int
}

func (c *adpcmChannel) expand(nibble byte) int16 {
	signed := int(nibble)
	if signed&0x8 != 0 {
		signed -= 16
	}

	pred := (c.s1*c.coef1 + c.s2*c.coef2) >> 8
	pred += signed * c.delta
	if pred > 32767 {
		pred = 32767
	} else if pred < -32768 {
		pred = -32768
	}

	c.s2 = c.s1
	c.s1 = pred

	c.delta = (adpcmAdaptation[nibble] * c.delta) >> 8
	if c.delta < 16 {
		c.delta = 16
	}
	return int16(pred)
}

// decodeADPCM expands Microsoft ADPCM blocks into interleaved 16-bit samples.
// A trailing partial block is decoded as far as its bytes allow.
func decodeADPCM(i Info) ([]int16, error) {
	p, err := adpcmParamsFor(i)
	if err != nil {
		return nil, err
	}

	ch := i.Channels
	out := make([]int16, 0, adpcmFrameCount(i)*ch)

	for start := 0; start < len(i.data); start += i.BlockAlign {
		block := i.data[start:min(start+i.BlockAlign, len(i.data))]
		if len(block) < 7*ch {
			break
		}

		state := make([]adpcmChannel, ch)
		pos := 0
		for c := 0; c < ch; c++ {
			idx := int(block[pos])
			pos++
			if idx >= len(p.coefs) {
				return nil, fmt.Errorf("%w: ms-adpcm predictor %d of %d", ErrInvalidWAV, idx, len(p.coefs))
			}
			state[c].coef1, state[c].coef2 = p.coefs[idx][0], p.coefs[idx][1]
		}
		for c := 0; c < ch; c++ {
			state[c].delta = int(int16(binary.LittleEndian.Uint16(block[pos:])))
			pos += 2
		}
		for c := 0; c < ch; c++ {
			state[c].s1 = int(int16(binary.LittleEndian.Uint16(block[pos:])))
			pos += 2
		}
		for c := 0; c < ch; c++ {
			state[c].s2 = int(int16(binary.LittleEndian.Uint16(block[pos:])))
			pos += 2
		}

		// The header carries the first two frames, oldest first.
		for c := 0; c < ch; c++ {
			out = append(out, int16(state[c].s2))
		}
		for c := 0; c < ch; c++ {
			out = append(out, int16(state[c].s1))
		}

		remaining := (p.samplesPerBlock - 2) * ch
		c := 0
		for _, b := range block[pos:] {
			for _, nibble := range [2]byte{b >> 4, b & 0x0F} {
				if remaining == 0 {
					break
				}
				out = append(out, state[c].expand(nibble))
				c = (c + 1) % ch
				remaining--
			}
		}
	}

	return out, nil
}
