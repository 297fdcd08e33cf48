package demo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/olivier-w/callbar/internal/audio"
	"github.com/olivier-w/callbar/internal/call"
	"github.com/olivier-w/callbar/internal/session"
)

func quickTransport(opts ...Option) *Transport {
	opts = append([]Option{
		WithClip(ToneClip(100 * time.Millisecond)),
		WithTimings(10*time.Millisecond, 10*time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return New(opts...)
}

func nextEvent(t *testing.T, events <-chan session.Event) session.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return nil
}

func TestScriptedTurn(t *testing.T) {
	tr := quickTransport()
	events := make(chan session.Event, 16)
	conn, err := tr.Dial(context.Background(), session.Credentials{RoomName: "demo"}, events)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, ok := nextEvent(t, events).(session.EventConnected); !ok {
		t.Fatal("expected connected first")
	}
	ev, ok := nextEvent(t, events).(session.EventAgentAudio)
	if !ok || ev.Stream == nil {
		t.Fatal("expected the agent stream")
	}
	stream := ev.Stream

	speakers := nextEvent(t, events).(session.EventActiveSpeakers)
	if len(speakers.Identities) != 1 || speakers.Identities[0] != CallerIdentity {
		t.Fatalf("expected the caller to speak, got %v", speakers.Identities)
	}
	if s := nextEvent(t, events).(session.EventActiveSpeakers); len(s.Identities) != 0 {
		t.Fatalf("expected silence before thinking, got %v", s.Identities)
	}
	if s := nextEvent(t, events).(session.EventState); s.State != call.Thinking {
		t.Fatalf("expected thinking, got %v", s.State)
	}
	speakers = nextEvent(t, events).(session.EventActiveSpeakers)
	if len(speakers.Identities) != 1 || !session.IsAgent(speakers.Identities[0]) {
		t.Fatalf("expected the agent to speak, got %v", speakers.Identities)
	}

	// The next turn starts once the clip has played.
	if _, ok := nextEvent(t, events).(session.EventActiveSpeakers); !ok {
		t.Fatal("expected a second turn")
	}
	tap, err := stream.Analyser(256)
	if err != nil {
		t.Fatalf("Analyser: %v", err)
	}
	defer tap.Close()
	samples := make([]float32, 256)
	if n := tap.TimeDomain(samples); n != 256 {
		t.Fatalf("expected the clip in the stream, got %d samples", n)
	}
}

func TestMutedCallerStaysSilent(t *testing.T) {
	tr := quickTransport()
	// Unbuffered so the script cannot reach the first turn before the mute.
	events := make(chan session.Event)
	conn, _ := tr.Dial(context.Background(), session.Credentials{}, events)
	defer conn.Close()
	conn.SetMicrophoneEnabled(false)

	nextEvent(t, events) // connected
	nextEvent(t, events) // agent audio
	if s := nextEvent(t, events).(session.EventActiveSpeakers); len(s.Identities) != 0 {
		t.Fatalf("expected no caller while muted, got %v", s.Identities)
	}
}

func TestFailAfterDropsCall(t *testing.T) {
	tr := quickTransport(WithFailAfter(30 * time.Millisecond))
	events := make(chan session.Event, 64)
	conn, _ := tr.Dial(context.Background(), session.Credentials{}, events)
	defer conn.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if d, ok := ev.(session.EventDisconnected); ok {
				if !errors.Is(d.Err, ErrSimulatedDrop) {
					t.Fatalf("expected simulated drop, got %v", d.Err)
				}
				return
			}
		case <-deadline:
			t.Fatal("expected the call to drop")
		}
	}
}

func TestCloseStopsScriptAndStream(t *testing.T) {
	tr := quickTransport(WithTimings(time.Hour, time.Hour))
	events := make(chan session.Event, 16)
	conn, _ := tr.Dial(context.Background(), session.Credentials{}, events)

	nextEvent(t, events)
	stream := nextEvent(t, events).(session.EventAgentAudio).Stream

	done := make(chan struct{})
	go func() {
		conn.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not stop the script")
	}
	if _, err := stream.Analyser(16); !errors.Is(err, audio.ErrStreamClosed) {
		t.Fatalf("expected the stream closed, got %v", err)
	}
}
