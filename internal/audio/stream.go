package audio

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrStreamClosed is returned when attaching an analyser to a closed stream.
var ErrStreamClosed = errors.New("audio: stream closed")

// Analyser is an analysis node attached to a stream. It exposes the most
// recent time-domain samples and must be closed when no longer needed.
type Analyser interface {
	// TimeDomain fills dst with the latest mono samples in [-1, 1], oldest
	// first. Positions without audio yet are zero. It returns the number of
	// real samples copied.
	TimeDomain(dst []float32) int
	Close() error
}

// Source is anything an [Analyser] can be attached to.
type Source interface {
	Analyser(size int) (Analyser, error)
}

// Sink receives a copy of every chunk written to a stream, typically the
// speaker output.
type Sink interface {
	Write(pcm []int16, f Format)
}

// Stream is a live PCM stream, such as the agent's voice in a call. Written
// audio is kept in a one second ring buffer for analysis and forwarded to an
// optional sink.
type Stream struct {
	format Format
	ring   *RingBuffer
	sink   Sink

	analysers atomic.Int32

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// StreamOption configures a [Stream].
type StreamOption func(*Stream)

// WithSink forwards every written chunk to sink.
func WithSink(sink Sink) StreamOption {
	return func(s *Stream) { s.sink = sink }
}

// NewStream creates a stream carrying audio in format f.
func NewStream(f Format, opts ...StreamOption) *Stream {
	if f.Channels < 1 {
		f.Channels = 1
	}
	if f.SampleRate < 1 {
		f.SampleRate = VoiceFormat.SampleRate
	}
	s := &Stream{
		format: f,
		ring:   NewRingBuffer(f.SampleRate * f.Channels),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Format returns the stream's PCM format.
func (s *Stream) Format() Format { return s.format }

// Write appends interleaved PCM. Writes after Close are dropped.
func (s *Stream) Write(pcm []int16) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || len(pcm) == 0 {
		return
	}
	s.ring.Write(pcm)
	if s.sink != nil {
		s.sink.Write(pcm, s.format)
	}
}

// Analyser attaches a new analysis node reading the latest size mono
// samples.
func (s *Stream) Analyser(size int) (Analyser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	if size < 1 {
		size = 1
	}
	s.analysers.Add(1)
	return &analyser{
		stream:  s,
		scratch: make([]int16, size*s.format.Channels),
	}, nil
}

// OpenAnalysers returns the number of analysers attached and not yet closed.
func (s *Stream) OpenAnalysers() int {
	return int(s.analysers.Load())
}

// Done is closed once the stream is closed.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Close ends the stream. It is safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

type analyser struct {
	stream  *Stream
	scratch []int16
	once    sync.Once
}

func (a *analyser) TimeDomain(dst []float32) int {
	ch := a.stream.format.Channels
	want := len(dst) * ch
	if want > len(a.scratch) {
		a.scratch = make([]int16, want)
	}
	got := a.stream.ring.Latest(a.scratch[:want])
	frames := got / ch

	// Right-align so the newest sample is always last.
	pad := len(dst) - frames
	for i := range pad {
		dst[i] = 0
	}
	for i := range frames {
		var sum int32
		for c := range ch {
			sum += int32(a.scratch[i*ch+c])
		}
		dst[pad+i] = float32(sum) / float32(ch) / 32768
	}
	return frames
}

func (a *analyser) Close() error {
	a.once.Do(func() { a.stream.analysers.Add(-1) })
	return nil
}
