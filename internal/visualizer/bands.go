package visualizer

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/olivier-w/callbar/internal/audio"
)

const (
	defaultUpdateInterval = 50 * time.Millisecond
	defaultFFTSize        = 1024

	// volumeGain lifts speech RMS into a visible range; 0.2 RMS saturates.
	volumeGain = 5.0
	// smoothing is the weight kept from the previous level on every update.
	smoothing = 0.7
)

// BandAnalyzer turns a live audio source into per-bar volume levels. Levels
// are loudest at the center bar and fall off toward the edges, with a little
// random variation and exponential smoothing between updates.
type BandAnalyzer struct {
	bands    int
	fftSize  int
	interval time.Duration
	rnd      func() float64
	logger   *slog.Logger
	onUpdate func()

	src     audio.Source
	node    audio.Analyser
	samples []float32
	prev    []float64
	levels  []float64
	last    time.Time
	sched   Schedule
}

// AnalyzerOption configures a [BandAnalyzer].
type AnalyzerOption func(*BandAnalyzer)

// WithUpdateInterval sets the minimum time between level updates.
func WithUpdateInterval(d time.Duration) AnalyzerOption {
	return func(b *BandAnalyzer) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithFFTSize sets how many samples each update reads.
func WithFFTSize(n int) AnalyzerOption {
	return func(b *BandAnalyzer) {
		if n > 0 {
			b.fftSize = n
		}
	}
}

// WithRand replaces the source of the per-band variation. It must return
// values in [0, 1).
func WithRand(rnd func() float64) AnalyzerOption {
	return func(b *BandAnalyzer) { b.rnd = rnd }
}

// WithLogger sets the logger used for attach failures.
func WithLogger(l *slog.Logger) AnalyzerOption {
	return func(b *BandAnalyzer) { b.logger = l }
}

// WithUpdateHook registers fn to run after every level update.
func WithUpdateHook(fn func()) AnalyzerOption {
	return func(b *BandAnalyzer) { b.onUpdate = fn }
}

// NewBandAnalyzer creates a detached analyzer producing bands levels.
func NewBandAnalyzer(bands int, opts ...AnalyzerOption) *BandAnalyzer {
	if bands < 1 {
		bands = 1
	}
	b := &BandAnalyzer{
		bands:    bands,
		fftSize:  defaultFFTSize,
		interval: defaultUpdateInterval,
		rnd:      rand.Float64,
		logger:   slog.Default(),
		prev:     make([]float64, bands),
		levels:   make([]float64, bands),
	}
	for _, o := range opts {
		o(b)
	}
	b.samples = make([]float32, b.fftSize)
	return b
}

// Attach starts analysing src, releasing whatever was attached before.
// Attaching the source already in use keeps the existing analysis node.
// A nil source detaches and zeroes the levels. Failures to attach are
// logged and leave the analyzer detached.
func (b *BandAnalyzer) Attach(src audio.Source) {
	if src != nil && src == b.src && b.node != nil {
		return
	}
	b.release()
	if src == nil {
		return
	}

	node, err := src.Analyser(b.fftSize)
	if err != nil {
		b.logger.Warn("visualizer: attach audio analyser", "err", err)
		return
	}
	b.src = src
	b.node = node
	b.last = time.Time{}
	b.sched.Start()
}

// release closes the analysis node, stops updates and zeroes the levels.
func (b *BandAnalyzer) release() {
	b.sched.Stop()
	if b.node != nil {
		b.node.Close()
	}
	b.node = nil
	b.src = nil
	for i := range b.levels {
		b.levels[i] = 0
		b.prev[i] = 0
	}
}

// Attached reports whether a source is being analysed.
func (b *BandAnalyzer) Attached() bool { return b.node != nil }

// Observe recomputes the levels if the update interval has elapsed since the
// last update, and reports whether it did.
func (b *BandAnalyzer) Observe(now time.Time) bool {
	if !b.sched.Running() || b.node == nil {
		return false
	}
	if !b.last.IsZero() && now.Sub(b.last) < b.interval {
		return false
	}
	b.last = now

	b.node.TimeDomain(b.samples)
	b.update(rms(b.samples))
	if b.onUpdate != nil {
		b.onUpdate()
	}
	return true
}

func (b *BandAnalyzer) update(rms float64) {
	overall := math.Min(1, rms*volumeGain)
	center := b.bands / 2
	for i := range b.bands {
		var norm float64
		if center > 0 {
			norm = float64(absInt(i-center)) / float64(center)
		}
		wave := math.Max(0, 1-norm*0.5)
		variation := 0.9 + b.rnd()*0.2
		target := overall * wave * variation

		level := clamp01(b.prev[i]*smoothing + target*(1-smoothing))
		b.prev[i] = level
		b.levels[i] = level
	}
}

// Levels returns a copy of the current per-bar levels. Its length is always
// the band count.
func (b *BandAnalyzer) Levels() []float64 {
	out := make([]float64, len(b.levels))
	copy(out, b.levels)
	return out
}

// Close detaches the source and stops updates. It is safe to call more than
// once.
func (b *BandAnalyzer) Close() { b.release() }

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
