package notify

import (
	"encoding/binary"
	"io"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/minicodemonkey/dxrender/internal/wavio"
)

const (
	chimeRate     = 22050
	chimeDuration = 0.4 // seconds
)

// Notifier handles audio notifications.
type Notifier struct {
	context *oto.Context
	mu      sync.Mutex
	enabled bool
	wg      sync.WaitGroup
}

var (
	globalNotifier *Notifier
	initOnce       sync.Once
	initErr        error
)

// GetNotifier returns the global notifier instance.
// This is a singleton since oto.Context should only be created once.
func GetNotifier() (*Notifier, error) {
	initOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   chimeRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			initErr = err
			return
		}
		<-ready

		globalNotifier = &Notifier{
			context: ctx,
			enabled: true,
		}
	})
	return globalNotifier, initErr
}

// SetEnabled enables or disables sound notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether sound is enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

func (n *Notifier) ready() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled && n.context != nil
}

// PlayCompletion plays the completion chime without blocking.
func (n *Notifier) PlayCompletion() {
	if !n.ready() {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.play(ChimePCM())
	}()
}

// PlayAndWait plays the completion chime and returns once it has finished,
// for callers that exit right after a render.
func (n *Notifier) PlayAndWait() {
	if !n.ready() {
		return
	}
	n.play(ChimePCM())
	n.wg.Wait()
}

func (n *Notifier) play(pcm []byte) {
	player := n.context.NewPlayer(NewPCMReader(pcm))
	defer func() {
		if err := player.Close(); err != nil {
			log.Printf("Warning: failed to close audio player: %v", err)
		}
	}()

	player.Play()

	// Wait for playback to complete
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
}

// PCMReader implements io.Reader for raw PCM data.
type PCMReader struct {
	data   []byte
	offset int
}

// NewPCMReader creates a new PCMReader.
func NewPCMReader(data []byte) *PCMReader {
	return &PCMReader{data: data}
}

// Read implements io.Reader.
func (r *PCMReader) Read(p []byte) (n int, err error) {
	if r.offset >= len(r.data) {
		return 0, io.EOF
	}
	n = copy(p, r.data[r.offset:])
	r.offset += n
	return n, nil
}

// chimeSamples synthesizes a short C major chime with a quick attack and an
// exponential decay.
func chimeSamples() []int {
	numSamples := int(float64(chimeRate) * chimeDuration)
	samples := make([]int, numSamples)

	for i := range samples {
		t := float64(i) / float64(chimeRate)

		envelope := math.Exp(-t * 4.0)
		if t < 0.01 {
			envelope = t / 0.01
		}

		sample := 0.5 * math.Sin(2*math.Pi*523.25*t)  // C5
		sample += 0.35 * math.Sin(2*math.Pi*659.26*t) // E5
		sample += 0.15 * math.Sin(2*math.Pi*783.99*t) // G5

		sample *= envelope * 0.7
		samples[i] = int(sample * 32767)
	}
	return samples
}

// ChimePCM returns the chime as 16-bit little-endian mono PCM at 22050 Hz.
func ChimePCM() []byte {
	samples := chimeSamples()
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(s)))
	}
	return buf
}

// GenerateWAV returns the chime as a complete WAV file.
func GenerateWAV() ([]byte, error) {
	return wavio.EncodePCM16(chimeSamples(), chimeRate, 1)
}
