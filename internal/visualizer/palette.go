package visualizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DefaultPrimaryColor is the accent used when no primary colour is configured.
const DefaultPrimaryColor = "#3B82F6"

const (
	secondaryColor = "#6B7280"
	accentColor    = "#10B981"
	lightBG        = "#FFFFFF"
	darkBG         = "#1F2937"
)

// Palette maps bar styles to terminal colours.
type Palette struct {
	colors [StyleInactiveLight + 1]lipgloss.Color
}

// NewPalette derives bar colours from the primary colour and the theme
// background. An invalid primary colour falls back to the default.
func NewPalette(primary string, dark bool) Palette {
	if !ValidHexColor(primary) {
		primary = DefaultPrimaryColor
	}
	bg := lightBG
	if dark {
		bg = darkBG
	}

	var p Palette
	p.colors[StyleIdle] = lipgloss.Color(secondaryColor)
	p.colors[StyleActive] = lipgloss.Color(primary)
	p.colors[StyleInactive] = lipgloss.Color(secondaryColor)
	p.colors[StyleConnecting] = lipgloss.Color(mixHex(primary, bg, 0.25))
	p.colors[StyleThinking] = lipgloss.Color(accentColor)
	p.colors[StyleInactiveLight] = lipgloss.Color(mixHex(secondaryColor, bg, 0.5))
	return p
}

// Color returns the colour for s.
func (p Palette) Color(s Style) lipgloss.Color {
	if int(s) >= len(p.colors) {
		return p.colors[StyleIdle]
	}
	return p.colors[s]
}

type rgb struct{ r, g, b uint8 }

// ValidHexColor reports whether s is a "#RRGGBB" colour.
func ValidHexColor(s string) bool {
	_, err := parseHex(s)
	return err == nil
}

// parseHex parses "#RRGGBB" (the leading '#' is optional).
func parseHex(s string) (rgb, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return rgb{}, fmt.Errorf("visualizer: colour %q is not #RRGGBB", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return rgb{}, fmt.Errorf("visualizer: colour %q: %w", s, err)
	}
	return rgb{r: uint8(v >> 16), g: uint8(v >> 8), b: uint8(v)}, nil
}

func (c rgb) hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.r, c.g, c.b)
}

// mixHex blends a toward b by t. Both must be valid colours.
func mixHex(a, b string, t float64) string {
	ca, _ := parseHex(a)
	cb, _ := parseHex(b)
	t = clamp01(t)
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return rgb{r: lerp(ca.r, cb.r), g: lerp(ca.g, cb.g), b: lerp(ca.b, cb.b)}.hex()
}
