package visualizer

import (
	"time"

	"github.com/olivier-w/callbar/internal/audio"
	"github.com/olivier-w/callbar/internal/call"
)

// Engine combines the scripted animation and the live band levels into bar
// heights. It is driven by a render clock: the owner calls [Engine.Tick] on
// every frame whose generation is still [Engine.Live].
type Engine struct {
	count  int
	state  call.State
	stream audio.Source

	anim  *Animator
	bands *BandAnalyzer
	clock Schedule
}

// NewEngine creates an engine for count bars in the idle state.
func NewEngine(count int, opts ...AnalyzerOption) *Engine {
	if count < 1 {
		count = DefaultBarCount
	}
	return &Engine{
		count: count,
		state: call.Idle,
		anim:  NewAnimator(count),
		bands: NewBandAnalyzer(count, opts...),
	}
}

// SetState feeds a new call state. The animation sequence is regenerated
// before the next tick and the render clock restarts, so frames scheduled for
// the old state are dropped. It reports whether the state changed.
func (e *Engine) SetState(s call.State) bool {
	if !e.anim.SetState(s) {
		return false
	}
	e.state = s
	e.restartClock()
	return true
}

// AttachStream analyses src from now on. A nil src detaches and the band
// levels fall back to zero. It reports whether the source changed.
func (e *Engine) AttachStream(src audio.Source) bool {
	if src == e.stream {
		return false
	}
	e.stream = src
	e.bands.Attach(src)
	e.restartClock()
	return true
}

func (e *Engine) restartClock() {
	if e.state.Expanded() {
		e.clock.Start()
		return
	}
	e.clock.Stop()
}

// Generation identifies the current render clock run.
func (e *Engine) Generation() uint64 { return e.clock.Generation() }

// Running reports whether the render clock should keep ticking.
func (e *Engine) Running() bool { return e.clock.Running() }

// Live reports whether a frame scheduled under gen is still current.
func (e *Engine) Live(gen uint64) bool { return e.clock.Live(gen) }

// Tick advances the animation and samples the audio if their intervals have
// elapsed. It reports whether the bars may have changed.
func (e *Engine) Tick(now time.Time) bool {
	if !e.clock.Running() {
		return false
	}
	moved := e.anim.Advance(now)
	sampled := e.bands.Observe(now)
	return moved || sampled
}

// Bars renders the current bar heights.
func (e *Engine) Bars() []Bar {
	return RenderBars(e.state, e.anim.Highlighted(), e.bands.Levels(), e.bands.Attached(), e.count)
}

// State returns the last state fed to the engine.
func (e *Engine) State() call.State { return e.state }

// Count returns the number of bars.
func (e *Engine) Count() int { return e.count }

// Levels returns the current band levels.
func (e *Engine) Levels() []float64 { return e.bands.Levels() }

// Highlighted returns the bars lit by the current animation frame.
func (e *Engine) Highlighted() Frame { return e.anim.Highlighted() }

// Close stops both periodic activities and releases the audio analyser.
func (e *Engine) Close() {
	e.clock.Stop()
	e.anim.Stop()
	e.bands.Close()
	e.stream = nil
}
