package visualizer

import (
	"testing"
	"time"

	"github.com/olivier-w/callbar/internal/call"
)

func TestAnimatorAdvancesOncePerInterval(t *testing.T) {
	a := NewAnimator(15)
	a.SetState(call.Connecting)
	start := time.Unix(100, 0)

	if a.Advance(start) {
		t.Fatal("first tick should only arm the schedule")
	}
	if a.Advance(start.Add(149 * time.Millisecond)) {
		t.Fatal("expected no advance before the interval")
	}
	if !a.Advance(start.Add(150 * time.Millisecond)) {
		t.Fatal("expected advance at the interval")
	}
	if a.Cursor() != 1 {
		t.Fatalf("expected cursor 1, got %d", a.Cursor())
	}
}

func TestAnimatorKeepsFixedRate(t *testing.T) {
	a := NewAnimator(15)
	a.SetState(call.Listening)
	start := time.Unix(0, 0)
	a.Advance(start)

	// Late ticks do not push later deadlines back.
	a.Advance(start.Add(230 * time.Millisecond))
	if a.Advance(start.Add(390 * time.Millisecond)) {
		t.Fatal("expected no advance before the second deadline")
	}
	if !a.Advance(start.Add(400 * time.Millisecond)) {
		t.Fatal("expected advance on the fixed-rate deadline")
	}
	if a.Cursor() != 2 {
		t.Fatalf("expected cursor 2, got %d", a.Cursor())
	}
}

func TestAnimatorSnapsAfterStall(t *testing.T) {
	a := NewAnimator(15)
	a.SetState(call.Listening)
	start := time.Unix(0, 0)
	a.Advance(start)

	if !a.Advance(start.Add(5 * time.Second)) {
		t.Fatal("expected advance after stall")
	}
	if a.Cursor() != 1 {
		t.Fatalf("expected a single step after a stall, got cursor %d", a.Cursor())
	}
	if a.Advance(start.Add(5*time.Second + 100*time.Millisecond)) {
		t.Fatal("expected deadline to restart from the stalled tick")
	}
}

func TestAnimatorCursorWraps(t *testing.T) {
	a := NewAnimator(15)
	a.SetState(call.Connecting)
	n := len(a.Sequence())
	now := time.Unix(0, 0)
	a.Advance(now)
	for range n {
		now = now.Add(150 * time.Millisecond)
		a.Advance(now)
	}
	if a.Cursor() != 0 {
		t.Fatalf("expected cursor to wrap to 0, got %d", a.Cursor())
	}
}

func TestAnimatorRegenerateResetsCursor(t *testing.T) {
	a := NewAnimator(15)
	a.SetState(call.Listening)
	now := time.Unix(0, 0)
	a.Advance(now)
	for range 3 {
		now = now.Add(200 * time.Millisecond)
		a.Advance(now)
	}
	if a.Cursor() == 0 {
		t.Fatal("expected cursor to have moved")
	}

	gen := a.Generation()
	a.Regenerate()
	if a.Cursor() != 0 {
		t.Fatalf("expected cursor reset to 0, got %d", a.Cursor())
	}
	if a.Generation() == gen {
		t.Fatal("expected a new playback generation")
	}
	if a.Advance(now.Add(time.Second)) {
		t.Fatal("expected the restarted schedule to arm before advancing")
	}
}

func TestAnimatorSetStateSameStateIsNoop(t *testing.T) {
	a := NewAnimator(15)
	a.SetState(call.Thinking)
	gen := a.Generation()
	if a.SetState(call.Thinking) {
		t.Fatal("expected no change for the same state")
	}
	if a.Generation() != gen {
		t.Fatal("expected schedule to keep running")
	}
}

func TestAnimatorHighlightedFollowsSequence(t *testing.T) {
	a := NewAnimator(15)
	a.SetState(call.Connecting)
	if h := a.Highlighted(); len(h) != 1 || h[0] != 7 {
		t.Fatalf("expected [7], got %v", h)
	}
	now := time.Unix(0, 0)
	a.Advance(now)
	a.Advance(now.Add(150 * time.Millisecond))
	if h := a.Highlighted(); len(h) != 2 || h[0] != 6 || h[1] != 8 {
		t.Fatalf("expected [6 8], got %v", h)
	}
}

func TestAnimatorStopHaltsAdvance(t *testing.T) {
	a := NewAnimator(15)
	a.SetState(call.Thinking)
	a.Stop()
	a.Stop()
	now := time.Unix(0, 0)
	a.Advance(now)
	if a.Advance(now.Add(time.Second)) {
		t.Fatal("expected stopped animator to stay put")
	}
}

func TestScheduleDropsStaleGenerations(t *testing.T) {
	var s Schedule
	if s.Live(0) {
		t.Fatal("expected idle schedule to have no live generation")
	}
	first := s.Start()
	second := s.Start()
	if s.Live(first) {
		t.Fatal("expected restart to cancel the first run")
	}
	if !s.Live(second) {
		t.Fatal("expected the new run to be live")
	}
	s.Stop()
	s.Stop()
	if s.Live(second) || s.Running() {
		t.Fatal("expected stop to cancel the run")
	}
}
