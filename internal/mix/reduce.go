package mix

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Track is a normalized clip scheduled on the output timeline.
type Track struct {
	Start   int       // first output frame
	Samples []float64 // interleaved stereo at TargetRate
}

// Frames returns the track length in frames.
func (t Track) Frames() int {
	return len(t.Samples) / TargetChannels
}

// End returns the frame just past the track.
func (t Track) End() int {
	return t.Start + t.Frames()
}

// Reduce sums tracks into one interleaved stereo buffer.
//
// Tracks are summed in groups of at most fanIn. Each group is summed by one
// worker into a private partial track, and the partials are grouped again
// until no more than fanIn remain; the last level is summed by the caller's
// goroutine in group order. Grouping only changes the order of floating-point
// additions, so any fanIn gives the same output to within rounding.
func Reduce(ctx context.Context, tracks []Track, fanIn, workers int) ([]float64, error) {
	if fanIn < 1 {
		fanIn = 1
	}
	if workers < 1 {
		workers = 1
	}

	level := tracks
	for fanIn > 1 && len(level) > fanIn {
		next, err := reduceLevel(ctx, level, fanIn, workers)
		if err != nil {
			return nil, err
		}
		level = next
	}

	return sumTracks(level, 0, span(level)), nil
}

func reduceLevel(ctx context.Context, level []Track, fanIn, workers int) ([]Track, error) {
	groups := (len(level) + fanIn - 1) / fanIn
	partials := make([]Track, groups)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < groups; i++ {
		group := level[i*fanIn : min((i+1)*fanIn, len(level))]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := group[0].Start
			for _, t := range group {
				start = min(start, t.Start)
			}
			partials[i] = Track{Start: start, Samples: sumTracks(group, start, span(group))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}

// sumTracks adds tracks in order into a buffer covering frames [start, end).
func sumTracks(tracks []Track, start, end int) []float64 {
	if end < start {
		end = start
	}
	out := make([]float64, (end-start)*TargetChannels)
	for _, t := range tracks {
		dst := out[(t.Start-start)*TargetChannels:]
		for j, s := range t.Samples {
			dst[j] += s
		}
	}
	return out
}

// span returns the end frame of the latest track.
func span(tracks []Track) int {
	end := 0
	for _, t := range tracks {
		end = max(end, t.End())
	}
	return end
}
