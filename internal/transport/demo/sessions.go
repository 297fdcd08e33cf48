package demo

import (
	"context"
	"time"

	"github.com/olivier-w/callbar/internal/session"
)

const defaultSetupDelay = 400 * time.Millisecond

// Sessions hands out local credentials in place of the session service. It
// implements [session.Creator].
type Sessions struct {
	// Delay is how long creating a session takes.
	Delay time.Duration
}

var _ session.Creator = (*Sessions)(nil)

// NewSessions creates a session source with a short setup delay.
func NewSessions() *Sessions {
	return &Sessions{Delay: defaultSetupDelay}
}

// CreateSession returns credentials for a local room named after the
// assistant and participant.
func (s *Sessions) CreateSession(ctx context.Context, assistantID, participantName string) (session.Credentials, error) {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return session.Credentials{}, ctx.Err()
		case <-t.C:
		}
	}
	return session.Credentials{
		Token:    "demo",
		URL:      "demo://local",
		RoomName: "demo-" + assistantID + "-" + participantName,
	}, nil
}
