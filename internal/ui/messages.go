package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/callbar/internal/session"
	"github.com/olivier-w/callbar/internal/visualizer"
)

// frameInterval is the render clock period.
const frameInterval = time.Second / visualizer.RenderFPS

// frameMsg is one render clock tick. gen ties it to the engine run that
// scheduled it.
type frameMsg struct {
	gen uint64
	at  time.Time
}

type updateMsg session.Update

type updatesClosedMsg struct{}

func frameCmd(gen uint64) tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg{gen: gen, at: t}
	})
}

func waitForUpdate(ch <-chan session.Update) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}
