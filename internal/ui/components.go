package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/olivier-w/callbar/internal/call"
)

func stateLabel(s call.State) string {
	switch s {
	case call.Connecting:
		return "connecting"
	case call.Initializing:
		return "joining call"
	case call.Connected:
		return "connected"
	case call.Speaking:
		return "agent speaking"
	case call.Listening:
		return "listening"
	case call.Thinking:
		return "thinking"
	case call.Error:
		return "call failed"
	case call.Disconnected:
		return "disconnected"
	}
	return "ready"
}

// busy reports whether the trigger shows a spinner.
func busy(s call.State) bool {
	return s == call.Connecting || s == call.Initializing
}

func renderTrigger(st styles, s call.State, name, spin string) string {
	switch {
	case busy(s):
		return st.trigger.Render(spin + stateLabel(s))
	case s.Expanded():
		return st.active.Render("■ end call")
	}
	return st.trigger.Render("● call " + name)
}

func renderMuteBadge(st styles, muted bool) string {
	if muted {
		return st.muted.Render("✕ mic muted")
	}
	return st.badge.Render("● mic on")
}

func renderVolume(bar progress.Model, vol float64) string {
	if vol < 0 {
		vol = 0
	}
	if vol > 1 {
		vol = 1
	}
	return "vol " + bar.ViewAs(vol)
}

// wrap breaks text into lines at most width cells wide on word boundaries.
func wrap(text string, width int) []string {
	if width < 1 {
		return []string{text}
	}
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 || len(lines) == 0 {
		lines = append(lines, line.String())
	}
	return lines
}

func spaces(n int) string {
	if n < 0 {
		n = 0
	}
	return strings.Repeat(" ", n)
}
