package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/olivier-w/callbar/internal/audio"
	"github.com/olivier-w/callbar/internal/call"
	"github.com/olivier-w/callbar/internal/observe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxDisconnects is how many consecutive drops end a call.
	DefaultMaxDisconnects = 3

	commandBuffer = 16
	eventBuffer   = 32
	updateBuffer  = 32
)

// DefaultBackoff waits two seconds per reconnect attempt.
func DefaultBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 2 * time.Second
}

// Update is a snapshot of the call, published after every change.
type Update struct {
	State call.State
	// Err explains the error state and is nil otherwise.
	Err error
	// Stream is the agent's voice, or nil while there is none.
	Stream *audio.Stream
	// StreamChanged is set when Stream differs from the previous update.
	StreamChanged bool
	Muted         bool
	// Reconnects counts consecutive drops in the current call.
	Reconnects int
}

type commandKind uint8

const (
	cmdConnect commandKind = iota
	cmdDisconnect
	cmdMute
)

type command struct {
	kind  commandKind
	muted bool
}

type taggedEvent struct {
	gen uint64
	ev  Event
}

type dialResult struct {
	gen     uint64
	joining bool
	creds   Credentials
	conn    Conn
	err     error
	kind    string
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithAssistant sets the assistant calls are placed to.
func WithAssistant(id string) Option {
	return func(o *Orchestrator) { o.assistantID = strings.TrimSpace(id) }
}

// WithParticipantName sets how the caller appears in the room.
func WithParticipantName(name string) Option {
	return func(o *Orchestrator) { o.participant = name }
}

// WithBackoff sets the wait before reconnect attempt n (starting at 1).
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.backoff = fn
		}
	}
}

// WithMaxDisconnects sets how many consecutive drops end a call.
func WithMaxDisconnects(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxDisconnects = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics records call metrics on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator owns the lifecycle of a call. All state lives in the goroutine
// running [Orchestrator.Run]; callers talk to it through the command methods
// and read [Orchestrator.Updates].
type Orchestrator struct {
	sessions       Creator
	transport      Transport
	assistantID    string
	participant    string
	backoff        func(int) time.Duration
	maxDisconnects int
	logger         *slog.Logger
	metrics        *observe.Metrics

	cmds    chan command
	events  chan taggedEvent
	results chan dialResult
	retries chan uint64
	updates chan Update
	done    chan struct{}

	// Owned by Run.
	ctx         context.Context
	gen         uint64
	state       call.State
	err         error
	stream      *audio.Stream
	streamDirty bool
	muted       bool
	disconnects int
	creds       Credentials
	haveCreds   bool
	conn        Conn
	cancel      context.CancelFunc
}

// NewOrchestrator creates an idle orchestrator. Nothing happens until Run is
// called.
func NewOrchestrator(sessions Creator, transport Transport, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sessions:       sessions,
		transport:      transport,
		participant:    DefaultParticipantName,
		backoff:        DefaultBackoff,
		maxDisconnects: DefaultMaxDisconnects,
		logger:         slog.Default(),
		cmds:           make(chan command, commandBuffer),
		events:         make(chan taggedEvent, eventBuffer),
		results:        make(chan dialResult),
		retries:        make(chan uint64),
		updates:        make(chan Update, updateBuffer),
		done:           make(chan struct{}),
		state:          call.Idle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Updates delivers a snapshot after every change. It is closed when Run
// returns.
func (o *Orchestrator) Updates() <-chan Update { return o.updates }

// Connect starts a call. It is ignored while a call is being set up or is
// live; from any other state it starts over with a fresh session.
func (o *Orchestrator) Connect() { o.send(command{kind: cmdConnect}) }

// Disconnect ends the call and returns to idle.
func (o *Orchestrator) Disconnect() { o.send(command{kind: cmdDisconnect}) }

// SetMuted stops or resumes sending the microphone. It may be called before
// a call starts.
func (o *Orchestrator) SetMuted(muted bool) { o.send(command{kind: cmdMute, muted: muted}) }

func (o *Orchestrator) send(c command) {
	select {
	case o.cmds <- c:
	case <-o.done:
	}
}

// Run processes commands and connection events until ctx is cancelled. Any
// live connection is closed before it returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.ctx = ctx
	defer close(o.done)
	defer close(o.updates)
	defer o.teardown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-o.cmds:
			o.handleCommand(c)
		case t := <-o.events:
			if t.gen == o.gen {
				o.handleEvent(t.ev)
			}
		case r := <-o.results:
			o.handleDial(r)
		case gen := <-o.retries:
			if gen == o.gen {
				o.dial()
			}
		}
	}
}

func (o *Orchestrator) handleCommand(c command) {
	switch c.kind {
	case cmdConnect:
		if o.state == call.Connecting || o.state == call.Initializing || o.state.Active() {
			o.logger.Debug("session: connect ignored", "state", o.state)
			return
		}
		o.startCall()
	case cmdDisconnect:
		o.teardown()
		o.disconnects = 0
		o.haveCreds = false
		o.logger.Info("session: call ended")
		o.setState(call.Idle, nil)
	case cmdMute:
		o.setMuted(c.muted)
	}
}

func (o *Orchestrator) startCall() {
	o.teardown()
	o.disconnects = 0
	o.haveCreds = false

	if o.assistantID == "" {
		o.metrics.RecordError(o.ctx, observe.KindConfig)
		o.logger.Warn("session: cannot connect", "err", ErrMissingAssistantID)
		o.setState(call.Error, ErrMissingAssistantID)
		return
	}
	o.logger.Info("session: connecting", "assistant", o.assistantID)
	o.setState(call.Connecting, nil)
	o.dial()
}

// dial connects in the background and reports through o.results. A session
// is created first unless credentials from this call are still held.
func (o *Orchestrator) dial() {
	if o.cancel != nil {
		o.cancel()
	}
	actx, cancel := context.WithCancel(o.ctx)
	o.cancel = cancel

	gen := o.gen
	creds, have := o.creds, o.haveCreds
	events := make(chan Event, eventBuffer)
	go o.forward(actx, gen, events)

	go func() {
		sctx, span := observe.StartSpan(actx, "session.dial", trace.WithAttributes(
			attribute.String("assistant", o.assistantID),
			attribute.Bool("reconnect", have),
		))
		var err error
		defer func() { observe.EndSpan(span, err) }()
		log := observe.Logger(sctx, o.logger)

		if !have {
			start := time.Now()
			var c Credentials
			c, err = o.sessions.CreateSession(sctx, o.assistantID, o.participant)
			o.metrics.RecordSessionCreate(actx, time.Since(start), err)
			if err != nil {
				o.deliver(actx, dialResult{gen: gen, err: err, kind: observe.KindSession})
				return
			}
			creds = c
			log.Debug("session: created", "room", creds.RoomName)
		}
		if !o.deliver(actx, dialResult{gen: gen, joining: true}) {
			return
		}

		var conn Conn
		conn, err = o.transport.Dial(actx, creds, events)
		if err != nil {
			o.deliver(actx, dialResult{gen: gen, err: err, kind: observe.KindTransport})
			return
		}
		log.Debug("session: joined", "room", creds.RoomName)
		o.deliver(actx, dialResult{gen: gen, creds: creds, conn: conn})
	}()
}

// deliver hands r to Run. A connection nobody is waiting for is closed.
func (o *Orchestrator) deliver(ctx context.Context, r dialResult) bool {
	select {
	case o.results <- r:
		return true
	case <-ctx.Done():
		if r.conn != nil {
			r.conn.Close()
		}
		return false
	}
}

func (o *Orchestrator) forward(ctx context.Context, gen uint64, events <-chan Event) {
	for {
		select {
		case ev := <-events:
			select {
			case o.events <- taggedEvent{gen: gen, ev: ev}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) handleDial(r dialResult) {
	if r.gen != o.gen {
		if r.conn != nil {
			r.conn.Close()
		}
		return
	}

	switch {
	case r.joining:
		if o.state == call.Connecting {
			o.setState(call.Initializing, nil)
		}
	case r.err != nil:
		o.metrics.RecordError(o.ctx, r.kind)
		if o.disconnects > 0 {
			o.logger.Warn("session: reconnect failed", "attempt", o.disconnects, "err", r.err)
			o.dropped()
			return
		}
		o.logger.Error("session: connect failed", "err", r.err)
		o.teardown()
		o.setState(call.Error, r.err)
	default:
		o.creds, o.haveCreds = r.creds, true
		o.conn = r.conn
		if o.muted {
			if err := o.conn.SetMicrophoneEnabled(false); err != nil {
				o.logger.Warn("session: mute microphone", "err", err)
			}
		}
		o.logger.Info("session: connected", "room", r.creds.RoomName)
		o.setState(call.Connected, nil)
	}
}

func (o *Orchestrator) handleEvent(ev Event) {
	switch ev := ev.(type) {
	case EventConnected:
		if o.state == call.Connecting || o.state == call.Initializing {
			o.setState(call.Connected, nil)
		}
	case EventDisconnected:
		o.logger.Warn("session: disconnected", "err", ev.Err)
		o.dropped()
	case EventFailed:
		o.logger.Error("session: connection failed", "err", ev.Err)
		o.metrics.RecordError(o.ctx, observe.KindTransport)
		o.dropped()
	case EventActiveSpeakers:
		if o.state.Active() {
			o.setState(speakerState(ev.Identities), nil)
		}
	case EventState:
		if o.state.Active() && ev.State.Active() {
			o.setState(ev.State, nil)
		}
	case EventAgentAudio:
		if ev.Stream != o.stream {
			o.stream = ev.Stream
			o.streamDirty = true
			o.publish()
		}
	}
}

// dropped handles a connection lost without being asked to. The call is
// retried with the same credentials until maxDisconnects drops in a row.
func (o *Orchestrator) dropped() {
	o.teardown()
	o.setState(call.Disconnected, nil)

	o.disconnects++
	if o.disconnects >= o.maxDisconnects {
		o.logger.Error("session: giving up", "disconnects", o.disconnects)
		o.setState(call.Error, ErrConnectionLost)
		return
	}

	delay := o.backoff(o.disconnects)
	o.metrics.RecordReconnect(o.ctx, o.disconnects)
	o.logger.Info("session: reconnecting", "attempt", o.disconnects, "delay", delay)
	o.setState(call.Connecting, nil)

	wctx, cancel := context.WithCancel(o.ctx)
	o.cancel = cancel
	gen := o.gen
	go func() {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
			select {
			case o.retries <- gen:
			case <-wctx.Done():
			}
		case <-wctx.Done():
		}
	}()
}

// teardown invalidates everything belonging to the current attempt: pending
// dials, retry timers, forwarded events and the live connection.
func (o *Orchestrator) teardown() {
	o.gen++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	if o.conn != nil {
		if err := o.conn.Close(); err != nil {
			o.logger.Warn("session: close connection", "err", err)
		}
		o.conn = nil
	}
	if o.stream != nil {
		o.stream = nil
		o.streamDirty = true
	}
}

func (o *Orchestrator) setMuted(muted bool) {
	if muted == o.muted {
		return
	}
	o.muted = muted
	if o.conn != nil {
		if err := o.conn.SetMicrophoneEnabled(!muted); err != nil {
			o.logger.Warn("session: toggle microphone", "muted", muted, "err", err)
		}
	}
	o.publish()
}

func (o *Orchestrator) setState(s call.State, err error) {
	if s == o.state && err == nil && o.err == nil && !o.streamDirty {
		return
	}
	if s != o.state {
		o.metrics.RecordTransition(o.ctx, s.String())
		o.logger.Debug("session: state", "from", o.state, "to", s)
	}
	o.state, o.err = s, err
	o.publish()
}

func (o *Orchestrator) publish() {
	u := Update{
		State:         o.state,
		Err:           o.err,
		Stream:        o.stream,
		StreamChanged: o.streamDirty,
		Muted:         o.muted,
		Reconnects:    o.disconnects,
	}
	o.streamDirty = false
	select {
	case o.updates <- u:
	case <-o.ctx.Done():
	}
}

// IsAgent reports whether a room identity belongs to the assistant.
func IsAgent(identity string) bool {
	return strings.Contains(identity, "agent")
}

// speakerState maps the loudest active speaker to a call state.
func speakerState(identities []string) call.State {
	if len(identities) == 0 {
		return call.Connected
	}
	if IsAgent(identities[0]) {
		return call.Speaking
	}
	return call.Listening
}
