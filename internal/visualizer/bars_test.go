package visualizer

import (
	"testing"

	"github.com/olivier-w/callbar/internal/call"
)

func TestRenderBarsIdle(t *testing.T) {
	for _, state := range []call.State{call.Idle, call.Connected, call.Error, call.Disconnected} {
		bars := RenderBars(state, []int{0, 1, 2}, []float64{1, 1, 1}, true, 15)
		if len(bars) != 15 {
			t.Fatalf("expected 15 bars, got %d", len(bars))
		}
		for i, b := range bars {
			if b.Height != MinHeight || b.Style != StyleIdle || b.Audio {
				t.Fatalf("%v bar %d: expected idle minimum, got %+v", state, i, b)
			}
		}
	}
}

func TestRenderBarsSpeakingFollowsVolume(t *testing.T) {
	volumes := []float64{1, 0, 0.2, 0.05}
	bars := RenderBars(call.Speaking, nil, volumes, true, 5)

	want := []float64{MaxAudioHeight, MinHeight, 14, MinHeight, MinHeight}
	for i, b := range bars {
		if b.Style != StyleActive || !b.Audio {
			t.Fatalf("bar %d: expected active audio bar, got %+v", i, b)
		}
		if diff := b.Height - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("bar %d: expected height %f, got %f", i, want[i], b.Height)
		}
	}
}

func TestRenderBarsSpeakingWithoutStream(t *testing.T) {
	bars := RenderBars(call.Speaking, []int{7}, []float64{1}, false, 15)
	for i, b := range bars {
		if b.Height != MinHeight || b.Style != StyleIdle {
			t.Fatalf("bar %d: expected idle fallback, got %+v", i, b)
		}
	}
}

func TestRenderBarsScriptedStates(t *testing.T) {
	tests := []struct {
		state     call.State
		litHeight float64
		litStyle  Style
		darkStyle Style
	}{
		{call.Listening, ListeningHeight, StyleActive, StyleInactive},
		{call.Connecting, ConnectingHeight, StyleConnecting, StyleInactiveLight},
		{call.Initializing, ConnectingHeight, StyleConnecting, StyleInactiveLight},
		{call.Thinking, ThinkingHeight, StyleThinking, StyleInactiveLight},
	}
	for _, tt := range tests {
		bars := RenderBars(tt.state, []int{2, 2, 4}, nil, true, 5)
		for i, b := range bars {
			lit := i == 2 || i == 4
			switch {
			case lit && (b.Height != tt.litHeight || b.Style != tt.litStyle):
				t.Fatalf("%v bar %d: expected lit %v/%v, got %+v", tt.state, i, tt.litHeight, tt.litStyle, b)
			case !lit && (b.Height != MinHeight || b.Style != tt.darkStyle):
				t.Fatalf("%v bar %d: expected dark %v, got %+v", tt.state, i, tt.darkStyle, b)
			}
		}
	}
}

func TestRenderBarsIgnoresOutOfRangeIndices(t *testing.T) {
	bars := RenderBars(call.Listening, []int{-1, 5, 99}, nil, false, 5)
	for i, b := range bars {
		if b.Height != MinHeight {
			t.Fatalf("bar %d: expected no highlight, got %+v", i, b)
		}
	}
}

func TestStyleString(t *testing.T) {
	if StyleInactiveLight.String() != "inactive-light" || StyleIdle.String() != "idle" {
		t.Fatalf("unexpected style names %q %q", StyleInactiveLight, StyleIdle)
	}
}
