// Package config holds the widget configuration and the layered loader that
// builds it from defaults, a YAML file, the environment and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/olivier-w/callbar/internal/session"
	"github.com/olivier-w/callbar/internal/visualizer"
)

// Position places the call panel within the terminal.
type Position string

const (
	BottomRight Position = "bottom-right"
	BottomLeft  Position = "bottom-left"
	TopRight    Position = "top-right"
	TopLeft     Position = "top-left"
)

// IsValid reports whether p is a recognised position.
func (p Position) IsValid() bool {
	switch p {
	case BottomRight, BottomLeft, TopRight, TopLeft:
		return true
	}
	return false
}

// Top reports whether the panel is anchored to the top edge.
func (p Position) Top() bool { return p == TopRight || p == TopLeft }

// Left reports whether the panel is anchored to the left edge.
func (p Position) Left() bool { return p == BottomLeft || p == TopLeft }

// Theme selects the colour scheme.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeCustom Theme = "custom"
)

// IsValid reports whether t is a recognised theme.
func (t Theme) IsValid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeCustom:
		return true
	}
	return false
}

// Size scales the trigger and the bars.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// IsValid reports whether s is a recognised size.
func (s Size) IsValid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// BarWidth is the number of terminal cells drawn per bar.
func (s Size) BarWidth() int {
	switch s {
	case SizeSmall:
		return 1
	case SizeLarge:
		return 3
	}
	return 2
}

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// DefaultBarCount is the number of bars drawn when none is configured.
const DefaultBarCount = visualizer.DefaultBarCount

// maxBarCount keeps the bar view within a sane terminal width.
const maxBarCount = 64

// WidgetConfig is the complete configuration of one call widget.
type WidgetConfig struct {
	// AssistantID names the remote agent. It is not required to load a
	// configuration; connecting without one fails with a configuration error.
	AssistantID     string   `yaml:"assistant_id"`
	BaseURL         string   `yaml:"base_url"`
	ParticipantName string   `yaml:"participant_name"`
	Position        Position `yaml:"position"`
	Theme           Theme    `yaml:"theme"`
	PrimaryColor    string   `yaml:"primary_color"`
	Size            Size     `yaml:"size"`
	AutoConnect     bool     `yaml:"auto_connect"`
	BarCount        int      `yaml:"bar_count"`

	LogLevel    LogLevel `yaml:"log_level"`
	LogFile     string   `yaml:"log_file"`
	MetricsAddr string   `yaml:"metrics_addr"`

	Demo DemoConfig `yaml:"demo"`
}

// DemoConfig selects the offline scripted transport.
type DemoConfig struct {
	Enabled bool `yaml:"enabled"`

	// File is an audio file voiced by the demo agent. Empty uses a
	// synthetic tone.
	File string `yaml:"file"`

	// FailAfter drops the connection after this long, repeatedly. Zero
	// never drops.
	FailAfter time.Duration `yaml:"fail_after"`
}

// Defaults returns the configuration used when nothing else is given.
func Defaults() *WidgetConfig {
	return &WidgetConfig{
		BaseURL:         session.DefaultBaseURL,
		ParticipantName: session.DefaultParticipantName,
		Position:        BottomRight,
		Theme:           ThemeLight,
		PrimaryColor:    visualizer.DefaultPrimaryColor,
		Size:            SizeMedium,
		BarCount:        DefaultBarCount,
		LogLevel:        LogInfo,
		LogFile:         DefaultLogFile(),
	}
}

// DefaultLogFile is callbar.log in the user cache directory, or in the
// working directory when no cache directory is known.
func DefaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "callbar.log"
	}
	return filepath.Join(dir, "callbar", "callbar.log")
}

// Dark reports whether the panel should use the dark background.
func (c *WidgetConfig) Dark() bool { return c.Theme == ThemeDark }
