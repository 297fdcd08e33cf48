package visualizer

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/olivier-w/callbar/internal/call"
)

// DefaultBarCount is the number of bars in the call panel. Odd counts give a
// true center bar.
const DefaultBarCount = 15

const (
	listeningFrames = 30
	thinkingFrames  = 15
)

// Frame lists the bar indices highlighted during one animation step.
// Duplicates are harmless.
type Frame []int

// Sequence is a looping list of frames. It is never empty.
type Sequence []Frame

// GenerateSequence builds the scripted animation for state over columns bars.
// The thinking sequence is random on purpose, so two calls may differ.
func GenerateSequence(state call.State, columns int) Sequence {
	return generateSequence(state, columns, rand.Float64)
}

func generateSequence(state call.State, columns int, rnd func() float64) Sequence {
	if columns < 1 {
		columns = 1
	}
	// Even counts have no true center; integer division leans left.
	center := columns / 2

	switch state {
	case call.Connecting, call.Initializing:
		return ringSequence(center, columns)
	case call.Listening:
		return breathingSequence(center, columns)
	case call.Thinking:
		return flickerSequence(center, columns, rnd)
	default:
		all := make(Frame, columns)
		for i := range all {
			all[i] = i
		}
		return Sequence{all}
	}
}

// ringSequence pulses outward one ring at a time, contracts back and ends on
// the center bar.
func ringSequence(center, columns int) Sequence {
	seq := make(Sequence, 0, 2*center+1)
	ring := func(radius int) Frame {
		var f Frame
		if left := center - radius; left >= 0 {
			f = append(f, left)
		}
		if right := center + radius; right < columns {
			f = append(f, right)
		}
		return f
	}

	seq = append(seq, Frame{center})
	for r := 1; r <= center; r++ {
		seq = append(seq, ring(r))
	}
	for r := center - 1; r > 0; r-- {
		seq = append(seq, ring(r))
	}
	return append(seq, Frame{center})
}

// breathingSequence is one sine cycle over the bars next to the center.
func breathingSequence(center, columns int) Sequence {
	seq := make(Sequence, listeningFrames)
	for f := range listeningFrames {
		phase := float64(f) / listeningFrames * 2 * math.Pi
		intensity := (math.Sin(phase) + 1) / 2

		frame := Frame{center}
		if intensity > 0.3 {
			frame = appendInRange(frame, columns, center-1, center+1)
		}
		if intensity > 0.7 {
			frame = appendInRange(frame, columns, center-2, center+2)
		}
		seq[f] = frame
	}
	return seq
}

// flickerSequence lights bars at random, weighted toward the center.
func flickerSequence(center, columns int, rnd func() float64) Sequence {
	seq := make(Sequence, thinkingFrames)
	for f := range thinkingFrames {
		var frame Frame
		if rnd() > 0.3 {
			frame = append(frame, center)
		}
		for i := range columns {
			p := 0.6 - float64(absInt(i-center))/float64(columns)
			if rnd() < p {
				frame = append(frame, i)
			}
		}
		seq[f] = frame
	}
	return seq
}

func appendInRange(f Frame, columns int, idx ...int) Frame {
	for _, i := range idx {
		if i >= 0 && i < columns {
			f = append(f, i)
		}
	}
	return f
}

// Interval is how long each frame of state's sequence stays on screen.
func Interval(state call.State) time.Duration {
	switch state {
	case call.Thinking:
		return 100 * time.Millisecond
	case call.Connecting, call.Initializing:
		return 150 * time.Millisecond
	default:
		return 200 * time.Millisecond
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
