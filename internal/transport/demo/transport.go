// Package demo is an offline stand-in for a real call. A scripted agent
// listens, thinks and then speaks a local audio clip, driving the same
// events a room connection would.
package demo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olivier-w/callbar/internal/audio"
	"github.com/olivier-w/callbar/internal/call"
	"github.com/olivier-w/callbar/internal/session"
)

const (
	// AgentIdentity is the room identity of the scripted agent.
	AgentIdentity = "demo-agent"
	// CallerIdentity is the room identity of the local caller.
	CallerIdentity = "caller"

	defaultListen = 2 * time.Second
	defaultThink  = 1500 * time.Millisecond
	defaultTone   = 4 * time.Second
	chunkDuration = 20 * time.Millisecond
)

// ErrSimulatedDrop is reported when a scheduled failure drops the call.
var ErrSimulatedDrop = errors.New("demo: simulated connection drop")

// Option configures a [Transport].
type Option func(*Transport)

// WithClip makes the agent speak clip instead of the synthetic tone.
func WithClip(clip *Clip) Option {
	return func(t *Transport) {
		if clip != nil && len(clip.PCM) > 0 {
			t.clip = clip
		}
	}
}

// WithSink plays the agent's voice on sink.
func WithSink(sink audio.Sink) Option {
	return func(t *Transport) { t.sink = sink }
}

// WithFailAfter drops every connection d after it is made.
func WithFailAfter(d time.Duration) Option {
	return func(t *Transport) { t.failAfter = d }
}

// WithTimings sets how long the caller speaks and the agent thinks on each
// turn.
func WithTimings(listen, think time.Duration) Option {
	return func(t *Transport) {
		t.listen, t.think = listen, think
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// Transport plays scripted calls. It implements [session.Transport].
type Transport struct {
	clip      *Clip
	sink      audio.Sink
	failAfter time.Duration
	listen    time.Duration
	think     time.Duration
	logger    *slog.Logger
}

var _ session.Transport = (*Transport)(nil)

// New creates a demo transport speaking a synthetic tone.
func New(opts ...Option) *Transport {
	t := &Transport{
		clip:   ToneClip(defaultTone),
		listen: defaultListen,
		think:  defaultThink,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Title names the agent being voiced.
func (t *Transport) Title() string { return t.clip.Title }

// Dial starts a scripted call. It never fails.
func (t *Transport) Dial(ctx context.Context, creds session.Credentials, events chan<- session.Event) (session.Conn, error) {
	ctx, cancel := context.WithCancel(ctx)
	c := &conn{
		t:      t,
		events: events,
		cancel: cancel,
		stream: audio.NewStream(t.clip.Format, audio.WithSink(t.sink)),
		logger: t.logger.With("room", creds.RoomName),
	}
	c.wg.Add(1)
	go c.run(ctx)
	return c, nil
}

type conn struct {
	t      *Transport
	events chan<- session.Event
	cancel context.CancelFunc
	stream *audio.Stream
	logger *slog.Logger
	muted  atomic.Bool
	wg     sync.WaitGroup
}

func (c *conn) emit(ctx context.Context, ev session.Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *conn) run(ctx context.Context) {
	defer c.wg.Done()
	defer c.stream.Close()

	var drop <-chan time.Time
	if c.t.failAfter > 0 {
		timer := time.NewTimer(c.t.failAfter)
		defer timer.Stop()
		drop = timer.C
	}

	if !c.emit(ctx, session.EventConnected{}) || !c.emit(ctx, session.EventAgentAudio{Stream: c.stream}) {
		return
	}
	c.logger.Info("demo: call started", "clip", c.t.clip.Title, "duration", c.t.clip.Duration())

	for turn := 1; ; turn++ {
		caller := []string{CallerIdentity}
		if c.muted.Load() {
			caller = nil
		}
		if !c.emit(ctx, session.EventActiveSpeakers{Identities: caller}) {
			return
		}
		if !c.wait(ctx, drop, c.t.listen) {
			return
		}

		if !c.emit(ctx, session.EventActiveSpeakers{}) || !c.emit(ctx, session.EventState{State: call.Thinking}) {
			return
		}
		if !c.wait(ctx, drop, c.t.think) {
			return
		}

		if !c.emit(ctx, session.EventActiveSpeakers{Identities: []string{AgentIdentity}}) {
			return
		}
		c.logger.Debug("demo: agent speaking", "turn", turn)
		if !c.speak(ctx, drop) {
			return
		}
	}
}

// wait sleeps for d. It reports false when the call ended or dropped
// meanwhile.
func (c *conn) wait(ctx context.Context, drop <-chan time.Time, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-drop:
		c.dropCall(ctx)
		return false
	case <-ctx.Done():
		return false
	}
}

// speak writes the clip into the stream in real time.
func (c *conn) speak(ctx context.Context, drop <-chan time.Time) bool {
	clip := c.t.clip
	chunk := int(chunkDuration.Seconds()*float64(clip.Format.SampleRate)) * clip.Format.Channels
	ticker := time.NewTicker(chunkDuration)
	defer ticker.Stop()

	for off := 0; off < len(clip.PCM); off += chunk {
		end := min(off+chunk, len(clip.PCM))
		c.stream.Write(clip.PCM[off:end])
		select {
		case <-ticker.C:
		case <-drop:
			c.dropCall(ctx)
			return false
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (c *conn) dropCall(ctx context.Context) {
	c.logger.Warn("demo: dropping call", "after", c.t.failAfter)
	c.emit(ctx, session.EventDisconnected{Err: ErrSimulatedDrop})
}

// SetMicrophoneEnabled records the mute state. A muted caller stays silent
// on the next turn.
func (c *conn) SetMicrophoneEnabled(enabled bool) error {
	c.muted.Store(!enabled)
	return nil
}

// Close ends the scripted call and waits for it to stop.
func (c *conn) Close() error {
	c.cancel()
	c.wg.Wait()
	return nil
}
