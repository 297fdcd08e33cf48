package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/olivier-w/callbar/internal/config"
)

// styles holds the lipgloss styles for one theme.
type styles struct {
	header  lipgloss.Style
	label   lipgloss.Style
	timer   lipgloss.Style
	help    lipgloss.Style
	errText lipgloss.Style
	badge   lipgloss.Style
	muted   lipgloss.Style
	panel   lipgloss.Style
	trigger lipgloss.Style
	active  lipgloss.Style
}

// colorFor picks the light or dark variant. The custom theme follows the
// terminal background.
func colorFor(theme config.Theme, light, dark string) lipgloss.TerminalColor {
	switch theme {
	case config.ThemeLight:
		return lipgloss.Color(light)
	case config.ThemeDark:
		return lipgloss.Color(dark)
	}
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func newStyles(cfg *config.WidgetConfig) styles {
	primary := lipgloss.Color(cfg.PrimaryColor)
	text := colorFor(cfg.Theme, "#1F2937", "#F9FAFB")
	secondary := colorFor(cfg.Theme, "#6B7280", "#9CA3AF")
	faint := colorFor(cfg.Theme, "#9CA3AF", "#4B5563")
	bg := colorFor(cfg.Theme, "#FFFFFF", "#1F2937")

	pad := cfg.Size.BarWidth()

	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(text),
		label:  lipgloss.NewStyle().Foreground(secondary),
		timer:  lipgloss.NewStyle().Foreground(secondary),
		help:   lipgloss.NewStyle().Foreground(faint),
		errText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")),
		badge: lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		muted: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Background(bg).
			Padding(0, 1),
		trigger: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primary).
			Padding(0, pad),
		active: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#EF4444")).
			Padding(0, pad),
	}
}
