package chart

import "encoding/binary"

// Encode writes instructions in the given layout. LayoutAuto writes the new layout.
func Encode(layout Layout, ins []Instruction) []byte {
	if layout == LayoutAuto {
		layout = LayoutNew
	}
	size := layout.RecordSize()
	buf := make([]byte, len(ins)*size)
	for i, in := range ins {
		rec := buf[i*size:]
		binary.LittleEndian.PutUint32(rec[0:4], in.Offset)
		binary.LittleEndian.PutUint16(rec[4:6], uint16(in.Command))
		binary.LittleEndian.PutUint16(rec[6:8], in.Value)
		if layout == LayoutNew {
			binary.LittleEndian.PutUint32(rec[8:12], in.Length)
		}
	}
	return buf
}

// Value packs a high nibble and a low byte into an instruction value word.
func Value(hi, lo uint8) uint16 {
	return uint16(hi&0x0F)<<12 | uint16(lo)
}
