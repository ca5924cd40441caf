package render

import "stocktail/internal/model"

// LineChart is a persistent single-series surface, used for equity curves.
// Same lifecycle contract as Chart: one surface per view, data swapped in
// place, disposed once.
type LineChart struct {
	width  int
	height int

	points   []model.EquityPoint
	disposed bool
}

func NewLineChart(width, height int) *LineChart {
	return &LineChart{width: width, height: height}
}

// SetPoints replaces the series in one call.
func (l *LineChart) SetPoints(points []model.EquityPoint) {
	if l.disposed {
		return
	}
	l.points = make([]model.EquityPoint, len(points))
	copy(l.points, points)
}

// Resize adjusts to a new container width; height is fixed.
func (l *LineChart) Resize(width int) {
	if l.disposed {
		return
	}
	l.width = width
}

// Dispose releases the surface. Idempotent.
func (l *LineChart) Dispose() {
	l.disposed = true
	l.points = nil
}

func (l *LineChart) Disposed() bool { return l.disposed }

// Frame renders the curve as styled terminal rows.
func (l *LineChart) Frame() []string {
	runes, classes := l.grid()
	return styleRows(runes, classes)
}

func (l *LineChart) plotWidth() int {
	w := l.width - axisWidth
	if w < 0 {
		return 0
	}
	return w
}

func (l *LineChart) grid() ([][]rune, [][]cellClass) {
	if l.disposed || l.height < 2 || l.plotWidth() < 1 {
		return nil, nil
	}

	runes, classes := blankGrid(l.width, l.height)

	points := l.points
	if len(points) > l.plotWidth() {
		points = points[len(points)-l.plotWidth():]
	}

	lo, hi := equityRange(points)
	prev := -1
	for x, p := range points {
		y := rowAt(p.Value, lo, hi, l.height)
		// Bridge the vertical gap to the previous column so the curve
		// reads as a line, not scattered points.
		if prev >= 0 && prev != y {
			step := 1
			if prev > y {
				step = -1
			}
			for fy := prev + step; fy != y; fy += step {
				runes[fy][x] = '·'
				classes[fy][x] = cellMA
			}
		}
		runes[y][x] = '•'
		classes[y][x] = cellMA
		prev = y
	}

	lineAxis(runes, classes, l, lo, hi, len(points) > 0)
	return runes, classes
}

func equityRange(points []model.EquityPoint) (lo, hi float64) {
	if len(points) == 0 {
		return 0, 1
	}
	lo, hi = points[0].Value, points[0].Value
	for _, p := range points {
		if p.Value < lo {
			lo = p.Value
		}
		if p.Value > hi {
			hi = p.Value
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

func rowAt(value, lo, hi float64, height int) int {
	frac := (value - lo) / (hi - lo)
	row := int(float64(height-1)*frac + 0.5)
	if row < 0 {
		row = 0
	}
	if row > height-1 {
		row = height - 1
	}
	return height - 1 - row
}

func lineAxis(runes [][]rune, classes [][]cellClass, l *LineChart, lo, hi float64, have bool) {
	c := &Chart{width: l.width, height: l.height}
	c.drawAxis(runes, classes, lo, hi, have)
}
