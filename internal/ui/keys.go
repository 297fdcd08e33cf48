package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/callbar/internal/call"
)

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

func isTrigger(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "enter", " ":
		return true
	}
	return false
}

func helpText(state call.State, hasVolume bool) string {
	var s string
	switch {
	case state == call.Error:
		s = "enter retry  e close"
	case state.Expanded():
		s = "e end  m mute"
	default:
		s = "enter call  m mute"
	}
	if hasVolume {
		s += "  +/- volume"
	}
	s += "  q quit"
	return s
}
