package wavio

import (
	"errors"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WritePCM16 writes interleaved 16-bit samples as a PCM WAV file.
func WritePCM16(w io.WriteSeeker, samples []int, sampleRate, channels int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, channels, int(TagPCM))
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// EncodePCM16 returns interleaved 16-bit samples as WAV file bytes.
func EncodePCM16(samples []int, sampleRate, channels int) ([]byte, error) {
	sb := &SeekBuffer{}
	if err := WritePCM16(sb, samples, sampleRate, channels); err != nil {
		return nil, err
	}
	return sb.Bytes(), nil
}

// SeekBuffer is an in-memory io.WriteSeeker. The WAV encoder seeks back to
// patch chunk sizes once all samples are written.
type SeekBuffer struct {
	buf []byte
	pos int
}

// Write implements io.Writer, overwriting or extending at the cursor.
func (b *SeekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, end, max(end, 2*cap(b.buf)))
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:end]
		}
	}
	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (b *SeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("wavio: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("wavio: negative position")
	}
	b.pos = int(abs)
	return abs, nil
}

// Bytes returns the written content.
func (b *SeekBuffer) Bytes() []byte {
	return b.buf
}
