package binread

import (
	"errors"
	"testing"
)

func TestReaderValues(t *testing.T) {
	data := []byte{
		0x34, 0x12, // uint16
		0xFE, 0xFF, // int16 -2
		0x78, 0x56, 0x34, 0x12, // uint32
		0xFF, 0xFF, 0xFF, 0xFF, // int32 -1
		1, 0, 0, 0, 0, 0, 0, 0, // uint64
	}
	r := NewReader(data)

	u16, err := r.Uint16()
	if err != nil || u16 != 0x1234 {
		t.Errorf("Uint16 = %#x, %v", u16, err)
	}
	i16, err := r.Int16()
	if err != nil || i16 != -2 {
		t.Errorf("Int16 = %d, %v", i16, err)
	}
	u32, err := r.Uint32()
	if err != nil || u32 != 0x12345678 {
		t.Errorf("Uint32 = %#x, %v", u32, err)
	}
	i32, err := r.Int32()
	if err != nil || i32 != -1 {
		t.Errorf("Int32 = %d, %v", i32, err)
	}
	u64, err := r.Uint64()
	if err != nil || u64 != 1 {
		t.Errorf("Uint64 = %d, %v", u64, err)
	}
	if !r.EOF() {
		t.Errorf("expected EOF at pos %d", r.Pos())
	}
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})

	if _, err := r.Uint32(); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
	// A failed read must not move the cursor.
	if r.Pos() != 0 {
		t.Errorf("expected pos 0 after failed read, got %d", r.Pos())
	}
	if err := r.Seek(4); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated seeking past end, got %v", err)
	}
	if err := r.Seek(3); err != nil {
		t.Errorf("seeking to end should succeed: %v", err)
	}
	if _, err := r.Bytes(1); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestBytesReturnsCopy(t *testing.T) {
	data := []byte{9, 8, 7}
	r := NewReader(data)
	b, err := r.Bytes(3)
	if err != nil {
		t.Fatal(err)
	}
	b[0] = 0
	if data[0] != 9 {
		t.Error("Bytes must not alias the source buffer")
	}
}
