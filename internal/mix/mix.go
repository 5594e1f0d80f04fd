// Package mix renders playback events into a single stereo mixdown.
package mix

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/go-audio/audio"
	"golang.org/x/sync/errgroup"

	"github.com/minicodemonkey/dxrender/internal/chart"
)

var (
	// ErrMissingSample is returned when an event refers to a sample the
	// archive does not contain.
	ErrMissingSample = errors.New("mix: missing sample")

	// ErrUnsupportedFormat is returned for clips that cannot be normalized.
	ErrUnsupportedFormat = errors.New("mix: unsupported clip format")
)

// DefaultFanIn is the largest number of tracks summed in one step.
const DefaultFanIn = 128

// Source provides decoded clips by 1-based index. Mix only reads the returned
// buffers, so a Source may hand out the same cached buffer on every call.
type Source interface {
	Len() int
	Decode(index int) (*audio.FloatBuffer, error)
}

// Stage identifies a phase of the mix for progress reporting.
type Stage int

const (
	StageDecode Stage = iota
	StageMix
)

func (s Stage) String() string {
	switch s {
	case StageDecode:
		return "Decoding samples"
	case StageMix:
		return "Mixing"
	default:
		return "Unknown"
	}
}

// Progress reports how far a stage has come.
type Progress struct {
	Stage Stage
	Done  int
	Total int
}

// Options controls Mix.
type Options struct {
	Volume  float64 // linear gain, 1.0 is unity
	FanIn   int     // tracks per summation step, DefaultFanIn if zero
	Workers int     // concurrent decoders and summers, runtime.NumCPU() if zero
	Taps    int     // resampling kernel width, DefaultTaps if zero

	// Progress, if set, is called from worker goroutines and must be safe
	// for concurrent use.
	Progress func(Progress)
}

func (o Options) withDefaults() Options {
	if o.Volume == 0 {
		o.Volume = 1
	}
	if o.FanIn <= 0 {
		o.FanIn = DefaultFanIn
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Taps <= 0 {
		o.Taps = DefaultTaps
	}
	return o
}

// Result is a finished mixdown.
type Result struct {
	Samples []float64 // interleaved stereo at TargetRate
	Frames  int
	Tracks  int
}

// Duration returns the mixdown length in seconds.
func (r *Result) Duration() float64 {
	return float64(r.Frames) / TargetRate
}

// PCM16 converts the mixdown to 16-bit samples, saturating values outside the
// signed 16-bit range.
func (r *Result) PCM16() []int {
	out := make([]int, len(r.Samples))
	for i, s := range r.Samples {
		v := math.Round(s * 32768)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int(v)
	}
	return out
}

// StartFrame converts a millisecond offset to an output frame, truncating.
func StartFrame(offsetMs uint32) int {
	return int(int64(offsetMs) * TargetRate / 1000)
}

// Prepare normalizes a decoded clip to stereo at TargetRate and applies the
// volume. The result never shares storage with buf.
func Prepare(buf *audio.FloatBuffer, volume float64, taps int) ([]float64, error) {
	if buf.Format == nil {
		return nil, fmt.Errorf("%w: no format", ErrUnsupportedFormat)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, buf.Format.SampleRate)
	}

	stereo, err := Upmix(buf)
	if err != nil {
		return nil, err
	}
	if buf.Format.SampleRate != TargetRate {
		stereo = Resample(stereo, TargetChannels, buf.Format.SampleRate, TargetRate, taps)
	}
	Scale(stereo, volume)
	return stereo, nil
}

// Mix decodes, normalizes and schedules every playable event, then sums them.
// Each distinct sample is decoded once and shared by all events that play it.
// Events with SampleEnd or SampleNone are skipped.
func Mix(ctx context.Context, events []chart.Event, src Source, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	var playable []chart.Event
	slots := make(map[int32]int)
	var distinct []int32
	for i, e := range events {
		if !e.Playable() {
			continue
		}
		if e.Sample < 1 || int(e.Sample) > src.Len() {
			return nil, fmt.Errorf("%w: event %d at %dms plays sample %d, archive has %d", ErrMissingSample, i, e.Offset, e.Sample, src.Len())
		}
		if _, ok := slots[e.Sample]; !ok {
			slots[e.Sample] = len(distinct)
			distinct = append(distinct, e.Sample)
		}
		playable = append(playable, e)
	}

	prepared := make([][]float64, len(distinct))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, index := range distinct {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			buf, err := src.Decode(int(index))
			if err != nil {
				return fmt.Errorf("decoding sample %d: %w", index, err)
			}
			samples, err := Prepare(buf, opts.Volume, opts.Taps)
			if err != nil {
				return fmt.Errorf("sample %d: %w", index, err)
			}
			prepared[i] = samples
			if opts.Progress != nil {
				opts.Progress(Progress{Stage: StageDecode, Done: int(done.Add(1)), Total: len(distinct)})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tracks := make([]Track, len(playable))
	for i, e := range playable {
		tracks[i] = Track{Start: StartFrame(e.Offset), Samples: prepared[slots[e.Sample]]}
	}

	if opts.Progress != nil {
		opts.Progress(Progress{Stage: StageMix, Done: 0, Total: len(tracks)})
	}
	samples, err := Reduce(ctx, tracks, opts.FanIn, opts.Workers)
	if err != nil {
		return nil, err
	}
	if opts.Progress != nil {
		opts.Progress(Progress{Stage: StageMix, Done: len(tracks), Total: len(tracks)})
	}

	return &Result{
		Samples: samples,
		Frames:  len(samples) / TargetChannels,
		Tracks:  len(tracks),
	}, nil
}
