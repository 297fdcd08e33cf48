package audio

import (
	"encoding/binary"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// PlaybackFormat is the device format shared by every player in the process.
var PlaybackFormat = Format{SampleRate: 48000, Channels: 2}

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
)

func initOto() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   PlaybackFormat.SampleRate,
			ChannelCount: PlaybackFormat.Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return globalOtoCtx, otoInitErr
}

// Playback plays streamed PCM on the default output device. It implements
// [Sink] so a [Stream] can feed it directly.
type Playback struct {
	player *oto.Player
	queue  *pcmQueue
	volume float64
	mu     sync.Mutex
	closed bool
}

// NewPlayback opens a player on the shared output context.
func NewPlayback() (*Playback, error) {
	ctx, err := initOto()
	if err != nil {
		return nil, err
	}
	q := &pcmQueue{limit: PlaybackFormat.SampleRate * PlaybackFormat.Channels * 2 * 2}
	p := &Playback{
		player: ctx.NewPlayer(q),
		queue:  q,
		volume: 1,
	}
	p.player.SetVolume(p.volume)
	p.player.Play()
	return p, nil
}

// Write queues pcm for playback, converting it to the device format.
func (p *Playback) Write(pcm []int16, f Format) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}
	p.queue.push(Convert(pcm, f, PlaybackFormat))
}

// SetVolume sets volume (clamped to 0.0 - 1.0).
func (p *Playback) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.volume = v
	p.player.SetVolume(v)
}

// Volume returns the current volume.
func (p *Playback) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Close stops playback and drops queued audio.
func (p *Playback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.queue.reset()
	return p.player.Close()
}

// pcmQueue is the reader oto pulls from. An empty queue reads as silence so
// the device keeps running between utterances instead of stalling.
type pcmQueue struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (q *pcmQueue) push(pcm []int16) {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf = append(q.buf, b...)
	// Drop the oldest audio rather than let latency grow without bound.
	if over := len(q.buf) - q.limit; over > 0 {
		over += over % 4
		if over > len(q.buf) {
			over = len(q.buf)
		}
		q.buf = q.buf[over:]
	}
}

func (q *pcmQueue) reset() {
	q.mu.Lock()
	q.buf = nil
	q.mu.Unlock()
}

func (q *pcmQueue) Read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := copy(p, q.buf)
	q.buf = q.buf[n:]
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}
