package session

import (
	"context"

	"github.com/olivier-w/callbar/internal/audio"
	"github.com/olivier-w/callbar/internal/call"
)

// Transport joins calls. Every Dial opens an independent connection.
//
// Implementations deliver [Event] values on events for the lifetime of the
// connection. Sends must select on ctx so that a torn down connection never
// blocks; ctx stays valid until the connection is closed.
type Transport interface {
	Dial(ctx context.Context, creds Credentials, events chan<- Event) (Conn, error)
}

// Conn is one live call connection.
type Conn interface {
	SetMicrophoneEnabled(enabled bool) error
	Close() error
}

// Event is something a connection reports.
type Event interface{ isEvent() }

// EventConnected reports that the room is joined.
type EventConnected struct{}

// EventDisconnected reports that the connection dropped without being asked
// to.
type EventDisconnected struct{ Err error }

// EventFailed reports a fatal connection error. It is handled like a drop.
type EventFailed struct{ Err error }

// EventActiveSpeakers lists the identities currently speaking, loudest
// first.
type EventActiveSpeakers struct{ Identities []string }

// EventAgentAudio carries the agent's voice. A nil Stream means the agent's
// track went away.
type EventAgentAudio struct{ Stream *audio.Stream }

// EventState lets a transport report a state the room has no signal for,
// such as thinking.
type EventState struct{ State call.State }

func (EventConnected) isEvent()      {}
func (EventDisconnected) isEvent()   {}
func (EventFailed) isEvent()         {}
func (EventActiveSpeakers) isEvent() {}
func (EventAgentAudio) isEvent()     {}
func (EventState) isEvent()          {}
