package visualizer

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PixelsPerRow converts bar heights to terminal rows.
const PixelsPerRow = 4.0

// RenderFPS is the rate the view's springs are tuned for; the UI's render
// clock ticks at the same rate.
const RenderFPS = 30

var barChars = []rune(" ▁▂▃▄▅▆▇█")

// BarView draws bars as vertical columns of block characters. Displayed
// heights chase the rendered heights through springs so jumps between frames
// read as motion.
type BarView struct {
	springs  springField
	display  []float64
	styles   []Style
	barWidth int
	palette  Palette
	rows     int
}

// NewBarView creates a view for count bars, each barWidth cells wide.
func NewBarView(count, barWidth int, palette Palette) *BarView {
	if count < 1 {
		count = DefaultBarCount
	}
	if barWidth < 1 {
		barWidth = 1
	}
	v := &BarView{
		springs:  newSpringField(RenderFPS, 12.0, 0.9),
		display:  make([]float64, count),
		styles:   make([]Style, count),
		barWidth: barWidth,
		palette:  palette,
		rows:     int(MaxAudioHeight / PixelsPerRow),
	}
	v.springs.resize(count)
	return v
}

// Update steps every bar one frame toward its rendered height.
func (v *BarView) Update(bars []Bar) {
	v.fit(len(bars))
	for i, b := range bars {
		v.display[i] = v.springs.step(i, b.Height)
		v.styles[i] = b.Style
	}
}

// Settle shows bars at their rendered heights immediately.
func (v *BarView) Settle(bars []Bar) {
	v.fit(len(bars))
	targets := make([]float64, len(bars))
	for i, b := range bars {
		targets[i] = b.Height
		v.display[i] = b.Height
		v.styles[i] = b.Style
	}
	v.springs.settle(targets)
}

func (v *BarView) fit(n int) {
	if len(v.display) == n {
		return
	}
	v.display = make([]float64, n)
	v.styles = make([]Style, n)
	v.springs.resize(n)
}

// Rows returns the height of the view in terminal rows.
func (v *BarView) Rows() int { return v.rows }

// Width returns the width of the view in cells.
func (v *BarView) Width() int {
	n := len(v.display)
	if n == 0 {
		return 0
	}
	return n*v.barWidth + (n - 1)
}

// View renders the bars, top row first.
func (v *BarView) View() string {
	lines := make([]string, v.rows)
	for row := range v.rows {
		var line strings.Builder
		rowFromBottom := float64(v.rows - 1 - row)
		for i, h := range v.display {
			if i > 0 {
				line.WriteByte(' ')
			}
			ch := cellRune(h/PixelsPerRow, rowFromBottom)
			cell := strings.Repeat(string(ch), v.barWidth)
			if ch == ' ' {
				line.WriteString(cell)
				continue
			}
			line.WriteString(lipgloss.NewStyle().Foreground(v.palette.Color(v.styles[i])).Render(cell))
		}
		lines[row] = line.String()
	}
	return strings.Join(lines, "\n")
}

// cellRune picks the block glyph for a bar of level rows at the given row.
func cellRune(level, rowFromBottom float64) rune {
	switch {
	case level >= rowFromBottom+1:
		return barChars[len(barChars)-1]
	case level > rowFromBottom:
		frac := level - rowFromBottom
		return barChars[int(frac*float64(len(barChars)-1))]
	default:
		return barChars[0]
	}
}
