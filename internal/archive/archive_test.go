package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/minicodemonkey/dxrender/internal/binread"
)

func TestParseRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("RIFF-background-payload"),
		[]byte("RIFF-key"),
		{},
		bytes.Repeat([]byte{0xAB}, 1000),
	}

	a, err := Parse(Encode(payloads, 1))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if a.Len() != len(payloads) {
		t.Fatalf("expected %d clips, got %d", len(payloads), a.Len())
	}
	for i, want := range payloads {
		clip, ok := a.Clip(i + 1)
		if !ok {
			t.Fatalf("clip %d missing", i+1)
		}
		if clip.Slot.Index != i+1 {
			t.Errorf("clip %d has index %d", i+1, clip.Slot.Index)
		}
		if !bytes.Equal(clip.Data, want) {
			t.Errorf("clip %d payload mismatch: got %q, want %q", i+1, clip.Data, want)
		}
		if clip.Slot.DataOffset != slotHeaderSize {
			t.Errorf("clip %d data offset = %d", i+1, clip.Slot.DataOffset)
		}
	}
	if a.Background != 1 {
		t.Errorf("expected background 1, got %d", a.Background)
	}
}

func TestParseBackgroundNotFirst(t *testing.T) {
	a, err := Parse(Encode([][]byte{[]byte("a"), []byte("b"), []byte("c")}, 3))
	if err != nil {
		t.Fatal(err)
	}
	if a.Background != 3 {
		t.Errorf("expected background 3, got %d", a.Background)
	}
	if len(a.BackgroundSlots) != 1 || a.BackgroundSlots[0] != 3 {
		t.Errorf("unexpected background slots %v", a.BackgroundSlots)
	}
}

func TestParseNoBackgroundDefaultsToFirst(t *testing.T) {
	a, err := Parse(Encode([][]byte{[]byte("a"), []byte("b")}, 0))
	if err != nil {
		t.Fatal(err)
	}
	if a.Background != 1 {
		t.Errorf("expected default background 1, got %d", a.Background)
	}
	if len(a.BackgroundSlots) != 0 {
		t.Errorf("expected no background slots, got %v", a.BackgroundSlots)
	}
}

func TestParseMultipleBackgroundsLastWins(t *testing.T) {
	data := Encode([][]byte{[]byte("a"), []byte("b"), []byte("c")}, 1)
	// Flag slot 3 as background as well.
	third := binary.LittleEndian.Uint32(data[tableOffset+8:])
	binary.LittleEndian.PutUint16(data[third+14:], 0)

	a, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if a.Background != 3 {
		t.Errorf("expected last background slot 3, got %d", a.Background)
	}
	if len(a.BackgroundSlots) != 2 {
		t.Errorf("expected 2 background candidates, got %v", a.BackgroundSlots)
	}
}

func TestParseBadMagic(t *testing.T) {
	data := Encode([][]byte{[]byte("a"), []byte("b")}, 1)
	second := binary.LittleEndian.Uint32(data[tableOffset+4:])
	copy(data[second:], "2DX8")

	_, err := Parse(data)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestParseTruncated(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{
			name:   "empty buffer",
			mutate: func(b []byte) []byte { return nil },
		},
		{
			name: "table entry past end",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint32(b[tableOffset:], uint32(len(b)+16))
				return b
			},
		},
		{
			name: "payload past end",
			mutate: func(b []byte) []byte {
				return b[:len(b)-1]
			},
		},
		{
			name: "count larger than buffer",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint32(b[countOffset:], 0xFFFFFF)
				return b
			},
		},
		{
			name: "header cut inside slot table",
			mutate: func(b []byte) []byte {
				return b[:tableOffset+2]
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(Encode([][]byte{[]byte("first"), []byte("second")}, 1))
			a, err := Parse(data)
			if !errors.Is(err, binread.ErrTruncated) {
				t.Errorf("expected ErrTruncated, got %v (archive %+v)", err, a)
			}
		})
	}
}

func TestParseNegativeSize(t *testing.T) {
	data := Encode([][]byte{[]byte("a")}, 1)
	first := binary.LittleEndian.Uint32(data[tableOffset:])
	binary.LittleEndian.PutUint32(data[first+8:], 0xFFFFFFFF)

	if _, err := Parse(data); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestClipOutOfRange(t *testing.T) {
	a, err := Parse(Encode([][]byte{[]byte("a")}, 1))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a.Clip(0); ok {
		t.Error("index 0 should not resolve")
	}
	if _, ok := a.Clip(2); ok {
		t.Error("index 2 should not resolve")
	}
}
