// Package call defines the connection states shared by the session
// orchestrator, the transports and the visualizer.
package call

import "fmt"

// State is the connection state of a voice call. Exactly one state is active
// at a time and only the session orchestrator changes it.
type State uint8

const (
	Idle State = iota
	Connecting
	Initializing
	Connected
	Speaking
	Listening
	Thinking
	Error
	Disconnected
)

var stateNames = [...]string{
	Idle:         "idle",
	Connecting:   "connecting",
	Initializing: "initializing",
	Connected:    "connected",
	Speaking:     "speaking",
	Listening:    "listening",
	Thinking:     "thinking",
	Error:        "error",
	Disconnected: "disconnected",
}

// String returns the lower-case name of the state.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// ParseState is the inverse of [State.String].
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return Idle, fmt.Errorf("call: unknown state %q", name)
}

// Active reports whether the call has a live room: connected or one of the
// conversational states layered on top of it.
func (s State) Active() bool {
	switch s {
	case Connected, Speaking, Listening, Thinking:
		return true
	}
	return false
}

// Expanded reports whether the call panel is open in this state. The panel
// collapses back to the trigger only when nothing is happening.
func (s State) Expanded() bool {
	return s != Idle && s != Disconnected
}
