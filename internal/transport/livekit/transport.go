// Package livekit carries calls over a LiveKit room. The agent's audio track
// is decoded into an [audio.Stream] for playback and analysis, and the local
// microphone is published as an Opus track.
package livekit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/olivier-w/callbar/internal/audio"
	"github.com/olivier-w/callbar/internal/session"
)

// errRoomClosed is reported when the server ends the room connection.
var errRoomClosed = errors.New("livekit: room disconnected")

// microphone is the capture device feeding the published track.
type microphone interface {
	Frames() <-chan []int16
	Close() error
}

// sampleWriter is the local track microphone packets are written to.
type sampleWriter interface {
	WriteSample(sample media.Sample, opts *lksdk.SampleWriteOptions) error
}

// Option configures a [Transport].
type Option func(*Transport)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// WithSink plays the agent's audio on sink.
func WithSink(sink audio.Sink) Option {
	return func(t *Transport) { t.sink = sink }
}

// WithMicrophone controls whether the local microphone is published.
// It is on by default.
func WithMicrophone(enabled bool) Option {
	return func(t *Transport) { t.publishMic = enabled }
}

// Transport joins LiveKit rooms. It implements [session.Transport].
type Transport struct {
	logger     *slog.Logger
	sink       audio.Sink
	publishMic bool
	openMic    func() (microphone, error)
}

var _ session.Transport = (*Transport)(nil)

// New creates a transport.
func New(opts ...Option) *Transport {
	t := &Transport{
		logger:     slog.Default(),
		publishMic: true,
		openMic: func() (microphone, error) {
			return audio.OpenMicrophone(voiceFormat, frameSize)
		},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Dial joins the room described by creds.
func (t *Transport) Dial(ctx context.Context, creds session.Credentials, events chan<- session.Event) (session.Conn, error) {
	c := &conn{
		ctx:     ctx,
		events:  events,
		logger:  t.logger.With("room", creds.RoomName),
		sink:    t.sink,
		streams: make(map[string]*audio.Stream),
	}

	cb := &lksdk.RoomCallback{
		OnDisconnected:          c.onDisconnected,
		OnActiveSpeakersChanged: c.onActiveSpeakersChanged,
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed:   c.onTrackSubscribed,
			OnTrackUnsubscribed: c.onTrackUnsubscribed,
		},
	}
	room, err := lksdk.ConnectToRoomWithToken(creds.URL, creds.Token, cb)
	if err != nil {
		return nil, fmt.Errorf("livekit: join room: %w", err)
	}
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()

	if t.publishMic {
		if err := c.publishMicrophone(t.openMic); err != nil {
			c.Close()
			return nil, err
		}
	}
	c.logger.Info("livekit: joined room")
	c.emit(session.EventConnected{})
	return c, nil
}

// conn is one joined room.
type conn struct {
	ctx    context.Context
	events chan<- session.Event
	logger *slog.Logger
	sink   audio.Sink

	muted  atomic.Bool
	closed atomic.Bool
	once   sync.Once

	mu      sync.Mutex
	room    *lksdk.Room
	streams map[string]*audio.Stream
	mic     microphone
	micPub  *lksdk.LocalTrackPublication
}

func (c *conn) emit(ev session.Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

func (c *conn) onDisconnected() {
	if c.closed.Load() {
		return
	}
	c.logger.Warn("livekit: room disconnected")
	c.emit(session.EventDisconnected{Err: errRoomClosed})
}

func (c *conn) onActiveSpeakersChanged(speakers []lksdk.Participant) {
	ids := make([]string, 0, len(speakers))
	for _, p := range speakers {
		ids = append(ids, p.Identity())
	}
	c.emit(session.EventActiveSpeakers{Identities: ids})
}

func (c *conn) onTrackSubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if track.Kind() != webrtc.RTPCodecTypeAudio || !session.IsAgent(rp.Identity()) {
		return
	}
	dec, err := newOpusDecoder()
	if err != nil {
		c.logger.Error("livekit: agent audio", "err", err)
		return
	}

	stream := audio.NewStream(voiceFormat, audio.WithSink(c.sink))
	c.mu.Lock()
	if old := c.streams[pub.SID()]; old != nil {
		old.Close()
	}
	c.streams[pub.SID()] = stream
	c.mu.Unlock()

	c.logger.Info("livekit: agent audio subscribed", "participant", rp.Identity(), "track", pub.SID())
	go c.readAgentAudio(track, dec, stream)
	c.emit(session.EventAgentAudio{Stream: stream})
}

func (c *conn) onTrackUnsubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	c.mu.Lock()
	stream := c.streams[pub.SID()]
	delete(c.streams, pub.SID())
	c.mu.Unlock()
	if stream == nil {
		return
	}
	stream.Close()
	c.logger.Info("livekit: agent audio unsubscribed", "participant", rp.Identity())
	c.emit(session.EventAgentAudio{})
}

// readAgentAudio decodes the agent's track into stream until the track ends.
func (c *conn) readAgentAudio(track *webrtc.TrackRemote, dec *opusDecoder, stream *audio.Stream) {
	defer stream.Close()
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) && !c.closed.Load() {
				c.logger.Warn("livekit: read agent audio", "err", err)
			}
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}
		pcm, err := dec.decode(pkt.Payload)
		if err != nil {
			c.logger.Debug("livekit: drop packet", "seq", pkt.SequenceNumber, "err", err)
			continue
		}
		stream.Write(pcm)
	}
}

// publishMicrophone publishes an Opus track fed from the capture device.
func (c *conn) publishMicrophone(open func() (microphone, error)) error {
	enc, err := newOpusEncoder()
	if err != nil {
		return err
	}
	track, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: opusSampleRate,
		Channels:  opusChannels,
	})
	if err != nil {
		return fmt.Errorf("livekit: create microphone track: %w", err)
	}

	c.mu.Lock()
	room := c.room
	c.mu.Unlock()
	pub, err := room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Name:   "microphone",
		Source: livekit.TrackSource_MICROPHONE,
	})
	if err != nil {
		return fmt.Errorf("livekit: publish microphone: %w", err)
	}

	mic, err := open()
	if err != nil {
		return fmt.Errorf("livekit: open microphone: %w", err)
	}
	c.mu.Lock()
	c.mic = mic
	c.micPub = pub
	c.mu.Unlock()
	if c.muted.Load() {
		pub.SetMuted(true)
	}

	go c.sendMicrophone(mic, enc, track)
	return nil
}

// sendMicrophone encodes captured frames onto the track. Frames captured
// while muted are dropped.
func (c *conn) sendMicrophone(mic microphone, enc *opusEncoder, track sampleWriter) {
	for frame := range mic.Frames() {
		if c.muted.Load() {
			continue
		}
		packet, err := enc.encode(frame)
		if err != nil {
			c.logger.Debug("livekit: encode microphone", "err", err)
			continue
		}
		if err := track.WriteSample(media.Sample{Data: packet, Duration: frameDuration}, nil); err != nil {
			if c.closed.Load() {
				return
			}
			c.logger.Debug("livekit: write microphone", "err", err)
		}
	}
}

// SetMicrophoneEnabled starts or stops sending the microphone.
func (c *conn) SetMicrophoneEnabled(enabled bool) error {
	c.muted.Store(!enabled)
	c.mu.Lock()
	pub := c.micPub
	c.mu.Unlock()
	if pub != nil {
		pub.SetMuted(!enabled)
	}
	return nil
}

// Close leaves the room and releases the microphone and agent streams.
func (c *conn) Close() error {
	var err error
	c.once.Do(func() {
		c.closed.Store(true)

		c.mu.Lock()
		room, mic := c.room, c.mic
		streams := c.streams
		c.streams = map[string]*audio.Stream{}
		c.mu.Unlock()

		if mic != nil {
			err = mic.Close()
		}
		if room != nil {
			room.Disconnect()
		}
		for _, s := range streams {
			s.Close()
		}
		c.logger.Info("livekit: left room")
	})
	return err
}
