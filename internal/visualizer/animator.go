package visualizer

import (
	"time"

	"github.com/olivier-w/callbar/internal/call"
)

// Animator plays the scripted sequence for the current call state. It owns the
// frame cursor and advances it on a fixed-rate schedule.
type Animator struct {
	state   call.State
	columns int
	seq     Sequence
	cursor  int
	next    time.Time
	sched   Schedule
	rnd     func() float64
}

// NewAnimator creates an animator for columns bars in the idle state.
func NewAnimator(columns int) *Animator {
	if columns < 1 {
		columns = 1
	}
	a := &Animator{columns: columns, state: call.Idle}
	a.Regenerate()
	return a
}

// SetState switches to state and regenerates the sequence. It reports
// whether anything changed; setting the current state is a no-op.
func (a *Animator) SetState(state call.State) bool {
	if state == a.state {
		return false
	}
	a.state = state
	a.Regenerate()
	return true
}

// Regenerate rebuilds the sequence for the current inputs, rewinds the cursor
// to the first frame and restarts playback. The previous schedule is
// invalidated before the new one starts.
func (a *Animator) Regenerate() {
	a.sched.Stop()
	if a.rnd != nil {
		a.seq = generateSequence(a.state, a.columns, a.rnd)
	} else {
		a.seq = GenerateSequence(a.state, a.columns)
	}
	a.cursor = 0
	a.next = time.Time{}
	a.sched.Start()
}

// Advance moves to the next frame once the state's interval has elapsed and
// reports whether the cursor moved. Deadlines advance by whole intervals so
// the cadence does not drift; after a stall longer than one interval the
// deadline restarts from now instead of bursting through missed frames.
func (a *Animator) Advance(now time.Time) bool {
	if !a.sched.Running() {
		return false
	}
	iv := Interval(a.state)
	if a.next.IsZero() {
		a.next = now.Add(iv)
		return false
	}
	if now.Before(a.next) {
		return false
	}
	a.cursor = (a.cursor + 1) % len(a.seq)
	a.next = a.next.Add(iv)
	if !now.Before(a.next) {
		a.next = now.Add(iv)
	}
	return true
}

// Highlighted returns the bar indices lit in the current frame.
func (a *Animator) Highlighted() Frame {
	if len(a.seq) == 0 {
		return nil
	}
	return a.seq[a.cursor]
}

// Cursor returns the index of the current frame.
func (a *Animator) Cursor() int { return a.cursor }

// Sequence returns the sequence being played.
func (a *Animator) Sequence() Sequence { return a.seq }

// State returns the state the sequence was generated for.
func (a *Animator) State() call.State { return a.state }

// Generation identifies the current playback run.
func (a *Animator) Generation() uint64 { return a.sched.Generation() }

// Stop ends playback. It is safe to call repeatedly.
func (a *Animator) Stop() { a.sched.Stop() }
