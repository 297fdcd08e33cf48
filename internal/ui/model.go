package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/olivier-w/callbar/internal/audio"
	"github.com/olivier-w/callbar/internal/call"
	"github.com/olivier-w/callbar/internal/config"
	"github.com/olivier-w/callbar/internal/observe"
	"github.com/olivier-w/callbar/internal/session"
	"github.com/olivier-w/callbar/internal/util"
	"github.com/olivier-w/callbar/internal/visualizer"
)

const (
	volumeStep    = 0.05
	minPanelWidth = 30
)

// Caller is the part of the session orchestrator the UI drives.
type Caller interface {
	Connect()
	Disconnect()
	SetMuted(muted bool)
	Updates() <-chan session.Update
}

// VolumeControl adjusts the agent's playback volume.
type VolumeControl interface {
	Volume() float64
	SetVolume(v float64)
}

// Option configures a [Model].
type Option func(*Model)

// WithVolume enables the volume keys.
func WithVolume(v VolumeControl) Option {
	return func(m *Model) { m.volume = v }
}

// WithAgentName overrides the name shown on the trigger. It defaults to the
// assistant id.
func WithAgentName(name string) Option {
	return func(m *Model) {
		if name != "" {
			m.name = name
		}
	}
}

// WithMetrics records analyser updates.
func WithMetrics(met *observe.Metrics) Option {
	return func(m *Model) { m.metrics = met }
}

// WithClock replaces time.Now for the call timer.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// Model is the Bubbletea model for the call widget.
type Model struct {
	cfg     *config.WidgetConfig
	caller  Caller
	updates <-chan session.Update
	volume  VolumeControl
	metrics *observe.Metrics
	now     func() time.Time

	engine  *visualizer.Engine
	bars    *visualizer.BarView
	spinner spinner.Model
	volBar  progress.Model
	styles  styles

	name       string
	state      call.State
	err        error
	muted      bool
	reconnects int
	callStart  time.Time
	elapsed    time.Duration

	width    int
	height   int
	quitting bool
}

// New creates the widget model for cfg driving caller.
func New(cfg *config.WidgetConfig, caller Caller, opts ...Option) Model {
	m := Model{
		cfg:     cfg,
		caller:  caller,
		updates: caller.Updates(),
		now:     time.Now,
		name:    cfg.AssistantID,
		state:   call.Idle,
		styles:  newStyles(cfg),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.name == "" {
		m.name = "assistant"
	}

	met := m.metrics
	m.engine = visualizer.NewEngine(cfg.BarCount, visualizer.WithUpdateHook(func() {
		met.RecordAnalyzerUpdate(context.Background())
	}))
	m.bars = visualizer.NewBarView(cfg.BarCount, cfg.Size.BarWidth(), visualizer.NewPalette(cfg.PrimaryColor, cfg.Dark()))
	m.bars.Settle(m.engine.Bars())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle()
	m.spinner = s

	m.volBar = progress.New(
		progress.WithSolidFill(cfg.PrimaryColor),
		progress.WithoutPercentage(),
		progress.WithWidth(12),
	)
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForUpdate(m.updates),
		tea.SetWindowTitle(windowTitle(m.name, m.state)),
	}
	if m.cfg.AutoConnect {
		caller := m.caller
		cmds = append(cmds, func() tea.Msg {
			caller.Connect()
			return nil
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.handleMsg(msg)
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case updateMsg:
		return m.applyUpdate(session.Update(msg))

	case updatesClosedMsg:
		m.quitting = true
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)

	case frameMsg:
		if !m.engine.Live(msg.gen) {
			return m, nil
		}
		m.engine.Tick(msg.at)
		m.bars.Update(m.engine.Bars())
		m.tickTimer()
		return m, frameCmd(msg.gen)

	case spinner.TickMsg:
		if !busy(m.state) {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if isQuit(msg) {
		m.quitting = true
		m.engine.Close()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	}
	if isTrigger(msg) {
		m.caller.Connect()
		return m, nil
	}
	switch msg.String() {
	case "e":
		if m.state != call.Idle {
			m.caller.Disconnect()
		}
	case "m":
		m.muted = !m.muted
		m.caller.SetMuted(m.muted)
	case "+", "=", "up":
		m.adjustVolume(volumeStep)
	case "-", "down":
		m.adjustVolume(-volumeStep)
	}
	return m, nil
}

func (m *Model) adjustVolume(delta float64) {
	if m.volume == nil {
		return
	}
	m.volume.SetVolume(m.volume.Volume() + delta)
}

// applyUpdate mirrors an orchestrator snapshot into the widget and restarts
// the render clock when the engine asks for it.
func (m Model) applyUpdate(u session.Update) (Model, tea.Cmd) {
	prev := m.state
	m.state = u.State
	m.err = u.Err
	m.muted = u.Muted
	m.reconnects = u.Reconnects

	restarted := m.engine.SetState(u.State)
	if u.StreamChanged {
		var src audio.Source
		if u.Stream != nil {
			src = u.Stream
		}
		if m.engine.AttachStream(src) {
			restarted = true
		}
	}

	switch {
	case u.State.Active() && m.callStart.IsZero():
		m.callStart = m.now()
	case u.State == call.Idle || u.State == call.Error:
		m.callStart = time.Time{}
		m.elapsed = 0
	}
	m.tickTimer()

	cmds := []tea.Cmd{waitForUpdate(m.updates)}
	if restarted {
		if m.engine.Running() {
			cmds = append(cmds, frameCmd(m.engine.Generation()))
		} else {
			m.bars.Settle(m.engine.Bars())
		}
	}
	if u.State != prev {
		cmds = append(cmds, tea.SetWindowTitle(windowTitle(m.name, u.State)))
		if busy(u.State) && !busy(prev) {
			cmds = append(cmds, m.spinner.Tick)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) tickTimer() {
	if m.callStart.IsZero() {
		return
	}
	m.elapsed = m.now().Sub(m.callStart)
}

// State returns the last call state received.
func (m Model) State() call.State { return m.state }

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	align := lipgloss.Right
	if m.cfg.Position.Left() {
		align = lipgloss.Left
	}

	trigger := renderTrigger(m.styles, m.state, m.name, m.spinner.View())
	blocks := []string{trigger}
	if m.state.Expanded() {
		panel := m.panelView()
		if m.cfg.Position.Top() {
			blocks = []string{trigger, panel}
		} else {
			blocks = []string{panel, trigger}
		}
	}
	blocks = append(blocks, m.styles.help.Render(helpText(m.state, m.volume != nil)))
	content := lipgloss.JoinVertical(align, blocks...)

	if m.width <= 0 || m.height <= 0 {
		return content
	}
	vertical := lipgloss.Bottom
	if m.cfg.Position.Top() {
		vertical = lipgloss.Top
	}
	return lipgloss.Place(m.width, m.height, align, vertical, content)
}

func (m Model) panelView() string {
	w := max(m.bars.Width(), minPanelWidth)

	label := m.styles.header.Render(stateLabel(m.state))
	timer := ""
	if !m.callStart.IsZero() {
		timer = m.styles.timer.Render(util.FormatDuration(m.elapsed))
	}
	header := label + spaces(w-lipgloss.Width(label)-lipgloss.Width(timer)) + timer

	var body string
	if m.state == call.Error {
		text := "connection failed"
		if m.err != nil {
			text = m.err.Error()
		}
		lines := wrap(text, w)
		for i, l := range lines {
			lines[i] = m.styles.errText.Render(l)
		}
		body = lipgloss.PlaceVertical(m.bars.Rows(), lipgloss.Center, lipgloss.JoinVertical(lipgloss.Left, lines...))
	} else {
		body = lipgloss.PlaceHorizontal(w, lipgloss.Center, m.bars.View())
	}

	footer := renderMuteBadge(m.styles, m.muted)
	if m.reconnects > 0 && (m.state == call.Connecting || m.state == call.Disconnected) {
		footer += m.styles.label.Render(fmt.Sprintf("  reconnecting (%d)", m.reconnects))
	}
	if m.volume != nil {
		vol := renderVolume(m.volBar, m.volume.Volume())
		footer += spaces(w-lipgloss.Width(footer)-lipgloss.Width(vol)) + vol
	}

	return m.styles.panel.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", footer))
}

func windowTitle(name string, s call.State) string {
	if s == call.Idle {
		return "callbar · " + name
	}
	return "callbar · " + name + " · " + stateLabel(s)
}
