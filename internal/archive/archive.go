// Package archive reads .2dx sample archives.
//
// An archive is a header followed by a table of slot offsets. Each slot starts
// with a "2DX9" header and embeds a complete, independently decodable WAV file.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/minicodemonkey/dxrender/internal/binread"
)

const (
	countOffset = 0x14
	tableOffset = 0x48

	// SlotMagic tags the header of every slot.
	SlotMagic = "2DX9"

	// slotHeaderSize is the header length written by Encode. Parse does not
	// depend on it; it follows each slot's data offset instead.
	slotHeaderSize = 24

	// KindBackground marks the slot that carries the backing track.
	KindBackground int16 = 0
	// KindSample is the value ordinary key sounds usually carry.
	KindSample int16 = -1
)

// ErrCorrupt is returned when a slot header is malformed.
var ErrCorrupt = errors.New("archive: corrupt slot")

// Slot describes one entry of the slot table.
type Slot struct {
	Index      int // 1-based
	Offset     uint32
	DataOffset uint32
	DataSize   int32
	Kind       int16
}

// IsBackground reports whether the slot is flagged as the background sample.
func (s Slot) IsBackground() bool {
	return s.Kind == KindBackground
}

// Clip is a slot together with its embedded WAV payload.
type Clip struct {
	Slot Slot
	Data []byte
}

// Archive is the parsed content of a .2dx file.
type Archive struct {
	Clips []Clip

	// Background is the 1-based index of the background slot. When several
	// slots are flagged the last one wins. When none is flagged it defaults
	// to 1.
	Background int

	// BackgroundSlots lists every slot flagged as background, in table order.
	BackgroundSlots []int
}

// Len returns the number of clips.
func (a *Archive) Len() int {
	return len(a.Clips)
}

// Clip returns the clip with the given 1-based index.
func (a *Archive) Clip(index int) (Clip, bool) {
	if index < 1 || index > len(a.Clips) {
		return Clip{}, false
	}
	return a.Clips[index-1], true
}

// Parse reads every slot of a .2dx archive.
func Parse(data []byte) (*Archive, error) {
	r := binread.NewReader(data)

	if err := r.Seek(countOffset); err != nil {
		return nil, fmt.Errorf("reading slot count: %w", err)
	}
	count, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("reading slot count: %w", err)
	}

	// Every table entry takes 4 bytes, so a count larger than the buffer can
	// hold is truncated before we allocate anything for it.
	if int64(count)*4 > int64(len(data)) {
		return nil, fmt.Errorf("%w: slot table of %d entries exceeds %d bytes", binread.ErrTruncated, count, len(data))
	}

	a := &Archive{
		Clips:      make([]Clip, 0, count),
		Background: 1,
	}

	for i := 0; i < int(count); i++ {
		index := i + 1

		if err := r.Seek(int64(tableOffset + i*4)); err != nil {
			return nil, fmt.Errorf("slot %d table entry: %w", index, err)
		}
		offset, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("slot %d table entry: %w", index, err)
		}

		clip, err := readSlot(r, index, offset)
		if err != nil {
			return nil, err
		}

		if clip.Slot.IsBackground() {
			a.Background = index
			a.BackgroundSlots = append(a.BackgroundSlots, index)
		}
		a.Clips = append(a.Clips, clip)
	}

	return a, nil
}

func readSlot(r *binread.Reader, index int, offset uint32) (Clip, error) {
	if err := r.Seek(int64(offset)); err != nil {
		return Clip{}, fmt.Errorf("slot %d at 0x%x: %w", index, offset, err)
	}

	magic, err := r.Bytes(4)
	if err != nil {
		return Clip{}, fmt.Errorf("slot %d at 0x%x: %w", index, offset, err)
	}
	if string(magic) != SlotMagic {
		return Clip{}, fmt.Errorf("%w: slot %d at 0x%x has magic %q", ErrCorrupt, index, offset, magic)
	}

	slot := Slot{Index: index, Offset: offset}
	if slot.DataOffset, err = r.Uint32(); err != nil {
		return Clip{}, fmt.Errorf("slot %d data offset: %w", index, err)
	}
	if slot.DataSize, err = r.Int32(); err != nil {
		return Clip{}, fmt.Errorf("slot %d data size: %w", index, err)
	}
	if err := r.Skip(2); err != nil {
		return Clip{}, fmt.Errorf("slot %d header: %w", index, err)
	}
	if slot.Kind, err = r.Int16(); err != nil {
		return Clip{}, fmt.Errorf("slot %d kind: %w", index, err)
	}

	if slot.DataSize < 0 {
		return Clip{}, fmt.Errorf("%w: slot %d has negative data size %d", ErrCorrupt, index, slot.DataSize)
	}

	start := int64(offset) + int64(slot.DataOffset)
	if err := r.Seek(start); err != nil {
		return Clip{}, fmt.Errorf("slot %d payload: %w", index, err)
	}
	payload, err := r.Bytes(int(slot.DataSize))
	if err != nil {
		return Clip{}, fmt.Errorf("slot %d payload: %w", index, err)
	}

	return Clip{Slot: slot, Data: payload}, nil
}

// Encode builds an archive from WAV payloads. background is the 1-based index
// of the slot to flag as background; 0 flags none.
func Encode(payloads [][]byte, background int) []byte {
	headerSize := tableOffset + 4*len(payloads)

	size := headerSize
	for _, p := range payloads {
		size += slotHeaderSize + len(p)
	}

	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0x10:], uint32(headerSize))
	binary.LittleEndian.PutUint32(buf[countOffset:], uint32(len(payloads)))

	pos := headerSize
	for i, p := range payloads {
		binary.LittleEndian.PutUint32(buf[tableOffset+i*4:], uint32(pos))

		slot := buf[pos:]
		copy(slot[0:4], SlotMagic)
		binary.LittleEndian.PutUint32(slot[4:8], slotHeaderSize)
		binary.LittleEndian.PutUint32(slot[8:12], uint32(len(p)))
		binary.LittleEndian.PutUint16(slot[12:14], 0x3231)

		kind := KindSample
		if i+1 == background {
			kind = KindBackground
		}
		binary.LittleEndian.PutUint16(slot[14:16], uint16(kind))

		copy(slot[slotHeaderSize:], p)
		pos += slotHeaderSize + len(p)
	}

	return buf
}
