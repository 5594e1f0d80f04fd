package mix

import (
	"fmt"
	"math"

	"github.com/go-audio/audio"
)

const (
	// TargetRate is the sample rate of the mixdown.
	TargetRate = 44100
	// TargetChannels is the channel count of the mixdown.
	TargetChannels = 2

	// DefaultTaps is the resampling kernel width in input samples.
	DefaultTaps = 32

	kaiserBeta      = 8.0
	tableResolution = 512
)

// Upmix returns the samples of buf as interleaved stereo in a new slice, so
// later stages may modify the result without touching buf. Mono is
// duplicated onto both channels.
func Upmix(buf *audio.FloatBuffer) ([]float64, error) {
	switch buf.Format.NumChannels {
	case 1:
		out := make([]float64, len(buf.Data)*2)
		for i, s := range buf.Data {
			out[2*i] = s
			out[2*i+1] = s
		}
		return out, nil
	case 2:
		out := make([]float64, len(buf.Data))
		copy(out, buf.Data)
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, buf.Format.NumChannels)
}

// Resample converts interleaved samples between sample rates with a
// Kaiser-windowed sinc kernel. Where the kernel reaches past either end of
// the clip the edge frame is repeated, and the weights of each output frame
// are normalized to sum to one. A clip cut off at full level therefore ends
// at that level instead of ringing, and silence stays exactly silent. The
// output holds ceil(frames*to/from) frames.
func Resample(data []float64, channels, from, to, taps int) []float64 {
	if from == to || len(data) == 0 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}
	if taps < 2 {
		taps = DefaultTaps
	}

	frames := len(data) / channels
	outFrames := int((int64(frames)*int64(to) + int64(from) - 1) / int64(from))

	cutoff := math.Min(1, float64(to)/float64(from))
	k := newKernel(float64(taps)/2/cutoff, cutoff)
	reach := int(math.Ceil(k.width))
	step := float64(from) / float64(to)

	out := make([]float64, outFrames*channels)
	for i := 0; i < outFrames; i++ {
		t := float64(i) * step
		center := int(math.Floor(t))
		o := out[i*channels : i*channels+channels]

		var total float64
		for j := center - reach + 1; j <= center+reach; j++ {
			w := k.at(t - float64(j))
			if w == 0 {
				continue
			}
			total += w
			src := min(max(j, 0), frames-1)
			in := data[src*channels : src*channels+channels]
			for c := range o {
				o[c] += in[c] * w
			}
		}
		if total != 0 && total != 1 {
			for c := range o {
				o[c] /= total
			}
		}
	}
	return out
}

// Scale multiplies every sample by volume in place.
func Scale(data []float64, volume float64) {
	if volume == 1 {
		return
	}
	for i := range data {
		data[i] *= volume
	}
}

// kernel is a tabulated windowed sinc, sampled tableResolution times per
// input sample and linearly interpolated between entries.
type kernel struct {
	table []float64
	width float64
}

func newKernel(width, cutoff float64) *kernel {
	n := int(math.Ceil(width*tableResolution)) + 2
	k := &kernel{table: make([]float64, n), width: width}
	for i := range k.table {
		d := float64(i) / tableResolution
		k.table[i] = cutoff * sinc(cutoff*d) * kaiserWindow(d/width, kaiserBeta)
	}
	return k
}

func (k *kernel) at(d float64) float64 {
	pos := math.Abs(d) * tableResolution
	i := int(pos)
	if i+1 >= len(k.table) {
		return 0
	}
	frac := pos - float64(i)
	return k.table[i] + frac*(k.table[i+1]-k.table[i])
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-10 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// kaiserWindow computes the Kaiser window at x in [-1, 1].
func kaiserWindow(x, beta float64) float64 {
	if x <= -1 || x >= 1 {
		return 0
	}
	return bessel0(beta*math.Sqrt(1-x*x)) / bessel0(beta)
}

// bessel0 computes the modified Bessel function of the first kind, order 0.
func bessel0(x float64) float64 {
	sum := 1.0
	term := 1.0
	for k := 1; k < 50; k++ {
		term *= (x / (2 * float64(k))) * (x / (2 * float64(k)))
		sum += term
		if term < 1e-12*sum {
			break
		}
	}
	return sum
}
