// Package chart decodes .bin chart files into playback events.
//
// A chart is a flat log of fixed-size records. Two record shapes exist: the
// old 8-byte layout (offset, command, value) and the new 12-byte layout that
// appends a hold-note length. Nothing in the file says which one is used, so
// the layout is inferred from the bytes themselves (see DetectLayout).
package chart

import (
	"errors"
	"fmt"
	"sort"

	"github.com/minicodemonkey/dxrender/internal/binread"
)

// ErrCorrupt is returned for charts that cannot be decoded.
var ErrCorrupt = errors.New("chart: corrupt chart")

// Command is a chart opcode.
type Command uint16

const (
	CmdKey          Command = 0x0145
	CmdLoadSample   Command = 0x0245
	CmdPlayBgSample Command = 0x0345
	CmdEnd          Command = 0x0645
	CmdPlaySample   Command = 0x0745
)

func (c Command) String() string {
	switch c {
	case CmdKey:
		return "KEY"
	case CmdLoadSample:
		return "LOAD_SAMPLE"
	case CmdPlayBgSample:
		return "PLAY_BG_SAMPLE"
	case CmdEnd:
		return "END"
	case CmdPlaySample:
		return "PLAY_SAMPLE"
	default:
		return fmt.Sprintf("0x%04x", uint16(c))
	}
}

// Layout identifies the record shape of a chart.
type Layout int

const (
	// LayoutAuto asks Parse to detect the layout.
	LayoutAuto Layout = iota
	// LayoutOld uses 8-byte records.
	LayoutOld
	// LayoutNew uses 12-byte records with a trailing length field.
	LayoutNew
)

func (l Layout) String() string {
	switch l {
	case LayoutAuto:
		return "auto"
	case LayoutOld:
		return "old"
	case LayoutNew:
		return "new"
	default:
		return "unknown"
	}
}

// ParseLayout converts a layout name ("auto", "old", "new") to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "auto":
		return LayoutAuto, nil
	case "old":
		return LayoutOld, nil
	case "new":
		return LayoutNew, nil
	}
	return LayoutAuto, fmt.Errorf("unknown chart layout %q (want auto, old or new)", s)
}

// RecordSize returns the size in bytes of one record.
func (l Layout) RecordSize() int {
	if l == LayoutNew {
		return 12
	}
	return 8
}

const probeOffset = 8

// DetectLayout classifies a chart by the 64-bit word at byte offset 8.
//
// In the new layout those bytes are the (zero) length of record 1 followed by
// the offset of record 2, which is zero for every chart seen so far. In the old
// layout they are the offset of record 2 and its command/value word, which is
// never zero. A new-layout chart whose second record does not start at time 0
// would be misread as old; that ambiguity is inherent to the format.
func DetectLayout(data []byte) (Layout, error) {
	r := binread.NewReader(data)
	if err := r.Seek(probeOffset); err != nil {
		return LayoutAuto, fmt.Errorf("%w: layout probe: %w", ErrCorrupt, err)
	}
	probe, err := r.Uint64()
	if err != nil {
		return LayoutAuto, fmt.Errorf("%w: layout probe: %w", ErrCorrupt, err)
	}
	if probe == 0 {
		return LayoutNew, nil
	}
	return LayoutOld, nil
}

// Sample values with special meaning in an Event.
const (
	SampleEnd  int32 = -1
	SampleNone int32 = 0
)

// Event is a resolved playback instruction.
type Event struct {
	Offset uint32 // milliseconds from chart start
	Sample int32  // 1-based archive slot, SampleEnd or SampleNone
}

// Playable reports whether the event refers to an actual sample.
func (e Event) Playable() bool {
	return e.Sample != SampleEnd && e.Sample != SampleNone
}

// Instruction is one raw record.
type Instruction struct {
	Offset  uint32
	Command Command
	Value   uint16
	Length  uint32 // new layout only
}

// ValHi returns the top 4 bits of the value word.
func (in Instruction) ValHi() uint8 { return uint8(in.Value >> 12) }

// ValLo returns the low 8 bits of the value word.
func (in Instruction) ValLo() uint8 { return uint8(in.Value & 0xFF) }

// Options controls Parse.
type Options struct {
	// Background is the 1-based sample index played by PLAY_BG_SAMPLE.
	Background int32
	// Layout forces a record layout; LayoutAuto detects it.
	Layout Layout
}

// Chart is a decoded chart.
type Chart struct {
	Layout  Layout
	Events  []Event
	Records int
	Skipped int // records with an unknown opcode

	background []int // indices into Events emitted by PLAY_BG_SAMPLE
}

// Parse decodes chart bytes into events in file order.
func Parse(data []byte, opts Options) (*Chart, error) {
	layout := opts.Layout
	if layout == LayoutAuto {
		var err error
		if layout, err = DetectLayout(data); err != nil {
			return nil, err
		}
	}

	c := &Chart{Layout: layout}
	bindings := make(map[uint8]int32)

	r := binread.NewReader(data)
	for !r.EOF() {
		pos := r.Pos()
		in, err := readInstruction(r, layout)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d at 0x%x: %w", ErrCorrupt, c.Records, pos, err)
		}
		c.Records++

		switch in.Command {
		case CmdLoadSample:
			bindings[in.ValHi()] = int32(in.ValLo())

		case CmdKey:
			sample, ok := bindings[in.ValLo()]
			if !ok {
				return nil, fmt.Errorf("%w: record %d at 0x%x plays key %d before any sample was loaded", ErrCorrupt, c.Records-1, pos, in.ValLo())
			}
			c.Events = append(c.Events, Event{Offset: in.Offset, Sample: sample})

		case CmdPlayBgSample:
			c.background = append(c.background, len(c.Events))
			c.Events = append(c.Events, Event{Offset: in.Offset, Sample: opts.Background})

		case CmdPlaySample:
			c.Events = append(c.Events, Event{Offset: in.Offset, Sample: int32(in.ValLo())})

		case CmdEnd:
			c.Events = append(c.Events, Event{Offset: in.Offset, Sample: SampleEnd})

		default:
			c.Skipped++
		}
	}

	return c, nil
}

func readInstruction(r *binread.Reader, layout Layout) (Instruction, error) {
	var in Instruction
	var err error

	if in.Offset, err = r.Uint32(); err != nil {
		return in, err
	}
	cmd, err := r.Uint16()
	if err != nil {
		return in, err
	}
	in.Command = Command(cmd)
	if in.Value, err = r.Uint16(); err != nil {
		return in, err
	}
	if layout == LayoutNew {
		if in.Length, err = r.Uint32(); err != nil {
			return in, err
		}
	}
	return in, nil
}

// ResolveBackground sets the sample of every PLAY_BG_SAMPLE event. It lets the
// chart be parsed before the archive has reported its background slot.
func (c *Chart) ResolveBackground(index int32) {
	for _, i := range c.background {
		c.Events[i].Sample = index
	}
}

// Playable returns the events that refer to a sample, in file order.
func (c *Chart) Playable() []Event {
	out := make([]Event, 0, len(c.Events))
	for _, e := range c.Events {
		if e.Playable() {
			out = append(out, e)
		}
	}
	return out
}

// EndOffset returns the offset of the first END marker.
func (c *Chart) EndOffset() (uint32, bool) {
	for _, e := range c.Events {
		if e.Sample == SampleEnd {
			return e.Offset, true
		}
	}
	return 0, false
}

// Referenced returns the distinct playable sample indices, ascending.
func (c *Chart) Referenced() []int32 {
	seen := make(map[int32]bool)
	var out []int32
	for _, e := range c.Events {
		if e.Playable() && !seen[e.Sample] {
			seen[e.Sample] = true
			out = append(out, e.Sample)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
