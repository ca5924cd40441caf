// Package render draws per-instrument charts onto persistent terminal
// surfaces. A surface is created once, receives dataset replacements and
// resizes for its whole lifetime, and is disposed exactly once — data changes
// never rebuild the surface, so view state (the zoom window) survives them.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stocktail/internal/model"
)

// cellClass selects the style a grid cell is drawn with.
type cellClass uint8

const (
	cellBlank cellClass = iota
	cellUp              // rising candle
	cellDown            // falling candle
	cellMA              // moving-average overlay
	cellAxis
)

var (
	// Red-up / green-down, as on mainland Chinese boards.
	upStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	maStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	axisStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// axisWidth is the right-hand price scale width, including a leading space.
const axisWidth = 9

// minVisible is the smallest zoom window.
const minVisible = 5

// Chart is a persistent candlestick surface with moving-average overlays and
// a right-hand price axis. One chart binds to one instrument's series.
// Not safe for concurrent use; owned by the UI loop.
type Chart struct {
	width  int
	height int

	bars    []model.KLine
	visible int // zoom window in bars; 0 = fit width

	showMA5 bool

	disposed bool
}

// NewChart creates the surface with the container's current width and a
// caller-supplied fixed height. The MA5 overlay layer is on by default.
func NewChart(width, height int) *Chart {
	return &Chart{
		width:   width,
		height:  height,
		showMA5: true,
	}
}

// SetData replaces the chart's dataset in one call. The surface and its view
// state persist; only the data changes.
func (c *Chart) SetData(bars []model.KLine) {
	if c.disposed {
		return
	}
	c.bars = make([]model.KLine, len(bars))
	copy(c.bars, bars)
}

// Resize adjusts the surface to a new container width. Height and zoom are
// left untouched.
func (c *Chart) Resize(width int) {
	if c.disposed {
		return
	}
	c.width = width
}

// Zoom narrows (delta < 0) or widens (delta > 0) the visible-bar window.
// A window of 0 means "fit all bars the plot can hold".
func (c *Chart) Zoom(delta int) {
	if c.disposed {
		return
	}
	if c.visible == 0 {
		c.visible = c.plotWidth()
	}
	c.visible += delta
	if c.visible < minVisible {
		c.visible = minVisible
	}
	if max := c.plotWidth(); c.visible >= max {
		c.visible = 0 // back to fit
	}
}

// VisibleBars reports the current zoom window, 0 meaning fit-to-width.
func (c *Chart) VisibleBars() int { return c.visible }

// Width returns the current surface width.
func (c *Chart) Width() int { return c.width }

// Height returns the fixed surface height.
func (c *Chart) Height() int { return c.height }

// Dispose releases the surface. Idempotent; a disposed chart renders nothing.
func (c *Chart) Dispose() {
	c.disposed = true
	c.bars = nil
}

// Disposed reports whether the surface has been released.
func (c *Chart) Disposed() bool { return c.disposed }

// Frame renders the surface as styled terminal rows.
func (c *Chart) Frame() []string {
	runes, classes := c.grid()
	return styleRows(runes, classes)
}

func (c *Chart) plotWidth() int {
	w := c.width - axisWidth
	if w < 0 {
		return 0
	}
	return w
}

// grid builds the unstyled cell grid: candles first, overlay on top, axis
// labels right. Returns nil when the surface is disposed or too small.
func (c *Chart) grid() ([][]rune, [][]cellClass) {
	if c.disposed || c.height < 2 || c.plotWidth() < 1 {
		return nil, nil
	}

	runes, classes := blankGrid(c.width, c.height)

	bars := c.visibleSlice()
	lo, hi := c.priceRange(bars)
	if len(bars) > 0 {
		for x, bar := range bars {
			c.drawCandle(runes, classes, x, bar, lo, hi)
		}
		if c.showMA5 {
			for x, bar := range bars {
				if bar.MA5 > 0 {
					y := c.rowFor(bar.MA5, lo, hi)
					runes[y][x] = '·'
					classes[y][x] = cellMA
				}
			}
		}
	}

	c.drawAxis(runes, classes, lo, hi, len(bars) > 0)
	return runes, classes
}

// visibleSlice returns the bars in the zoom window, newest last.
func (c *Chart) visibleSlice() []model.KLine {
	n := c.visible
	if n == 0 || n > c.plotWidth() {
		n = c.plotWidth()
	}
	if n > len(c.bars) {
		n = len(c.bars)
	}
	return c.bars[len(c.bars)-n:]
}

// priceRange spans the visible highs, lows and overlay values.
func (c *Chart) priceRange(bars []model.KLine) (lo, hi float64) {
	if len(bars) == 0 {
		return 0, 1
	}
	lo, hi = bars[0].Low, bars[0].High
	for _, b := range bars {
		if b.Low < lo {
			lo = b.Low
		}
		if b.High > hi {
			hi = b.High
		}
		if c.showMA5 && b.MA5 > 0 {
			if b.MA5 < lo {
				lo = b.MA5
			}
			if b.MA5 > hi {
				hi = b.MA5
			}
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

func (c *Chart) rowFor(price, lo, hi float64) int {
	frac := (price - lo) / (hi - lo)
	row := int(float64(c.height-1)*frac + 0.5)
	if row < 0 {
		row = 0
	}
	if row > c.height-1 {
		row = c.height - 1
	}
	return c.height - 1 - row
}

func (c *Chart) drawCandle(runes [][]rune, classes [][]cellClass, x int, bar model.KLine, lo, hi float64) {
	class := cellUp
	if bar.Close < bar.Open {
		class = cellDown
	}

	bodyHi, bodyLo := bar.Open, bar.Close
	if bodyLo > bodyHi {
		bodyHi, bodyLo = bodyLo, bodyHi
	}

	wickTop := c.rowFor(bar.High, lo, hi)
	wickBot := c.rowFor(bar.Low, lo, hi)
	bodyTop := c.rowFor(bodyHi, lo, hi)
	bodyBot := c.rowFor(bodyLo, lo, hi)

	for y := wickTop; y <= wickBot; y++ {
		runes[y][x] = '│'
		classes[y][x] = class
	}
	for y := bodyTop; y <= bodyBot; y++ {
		runes[y][x] = '█'
		classes[y][x] = class
	}
}

// drawAxis writes top/mid/bottom price labels into the axis gutter.
func (c *Chart) drawAxis(runes [][]rune, classes [][]cellClass, lo, hi float64, havePrices bool) {
	label := func(y int, price float64) {
		text := "      --"
		if havePrices {
			text = fmt.Sprintf("%8.2f", price)
		}
		if len(text) > axisWidth-1 {
			text = text[:axisWidth-1]
		}
		for i, r := range text {
			col := c.plotWidth() + 1 + i
			if col < c.width {
				runes[y][col] = r
				classes[y][col] = cellAxis
			}
		}
	}

	label(0, hi)
	label(c.height/2, lo+(hi-lo)/2)
	label(c.height-1, lo)
}

func blankGrid(width, height int) ([][]rune, [][]cellClass) {
	runes := make([][]rune, height)
	classes := make([][]cellClass, height)
	for y := range runes {
		runes[y] = make([]rune, width)
		classes[y] = make([]cellClass, width)
		for x := range runes[y] {
			runes[y][x] = ' '
		}
	}
	return runes, classes
}

// styleRows assembles styled rows, batching runs of equally classed cells.
func styleRows(runes [][]rune, classes [][]cellClass) []string {
	rows := make([]string, 0, len(runes))
	for y := range runes {
		var sb strings.Builder
		x := 0
		for x < len(runes[y]) {
			class := classes[y][x]
			start := x
			for x < len(runes[y]) && classes[y][x] == class {
				x++
			}
			segment := string(runes[y][start:x])
			switch class {
			case cellUp:
				segment = upStyle.Render(segment)
			case cellDown:
				segment = downStyle.Render(segment)
			case cellMA:
				segment = maStyle.Render(segment)
			case cellAxis:
				segment = axisStyle.Render(segment)
			}
			sb.WriteString(segment)
		}
		rows = append(rows, sb.String())
	}
	return rows
}
