package visualizer

import "github.com/olivier-w/callbar/internal/call"

// Bar heights in pixels. Terminal rendering divides by [PixelsPerRow].
const (
	MinHeight        = 6.0
	MaxAudioHeight   = 28.0
	ListeningHeight  = 14.0
	ConnectingHeight = 22.0
	ThinkingHeight   = 24.0

	audioHeightGain = 70.0
)

// Style is the visual category of a bar.
type Style uint8

const (
	StyleIdle Style = iota
	StyleActive
	StyleInactive
	StyleConnecting
	StyleThinking
	StyleInactiveLight
)

func (s Style) String() string {
	switch s {
	case StyleActive:
		return "active"
	case StyleInactive:
		return "inactive"
	case StyleConnecting:
		return "connecting"
	case StyleThinking:
		return "thinking"
	case StyleInactiveLight:
		return "inactive-light"
	default:
		return "idle"
	}
}

// Bar is the rendered state of one bar.
type Bar struct {
	Height float64
	Style  Style
	// Audio is set when the height follows live audio rather than the
	// scripted animation.
	Audio bool
}

// RenderBars computes count bars for state. While the agent speaks and a
// stream is present, heights follow volumes; otherwise they follow the
// highlighted indices of the current animation frame. Missing volume entries
// count as silence.
func RenderBars(state call.State, highlighted []int, volumes []float64, hasStream bool, count int) []Bar {
	bars := make([]Bar, count)

	if state == call.Speaking && hasStream {
		for i := range bars {
			var v float64
			if i < len(volumes) {
				v = volumes[i]
			}
			bars[i] = Bar{
				Height: clamp(v*audioHeightGain, MinHeight, MaxAudioHeight),
				Style:  StyleActive,
				Audio:  true,
			}
		}
		return bars
	}

	lit := make([]bool, count)
	for _, idx := range highlighted {
		if idx >= 0 && idx < count {
			lit[idx] = true
		}
	}

	for i := range bars {
		on := lit[i]
		switch state {
		case call.Listening:
			bars[i] = pick(on, Bar{ListeningHeight, StyleActive, false}, Bar{MinHeight, StyleInactive, false})
		case call.Connecting, call.Initializing:
			bars[i] = pick(on, Bar{ConnectingHeight, StyleConnecting, false}, Bar{MinHeight, StyleInactiveLight, false})
		case call.Thinking:
			bars[i] = pick(on, Bar{ThinkingHeight, StyleThinking, false}, Bar{MinHeight, StyleInactiveLight, false})
		default:
			bars[i] = Bar{Height: MinHeight, Style: StyleIdle}
		}
	}
	return bars
}

func pick(on bool, lit, dark Bar) Bar {
	if on {
		return lit
	}
	return dark
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
