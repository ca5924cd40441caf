package render

import (
	"strings"
	"testing"

	"stocktail/internal/model"
)

func sampleBars() []model.KLine {
	return []model.KLine{
		{Date: "2024-01-01", Open: 10, High: 12, Low: 9, Close: 11, Volume: 100, MA5: 10.5},
		{Date: "2024-01-02", Open: 11, High: 13, Low: 10, Close: 10.5, Volume: 120, MA5: 10.8},
		{Date: "2024-01-03", Open: 10.5, High: 11.5, Low: 10, Close: 11.2, Volume: 90, MA5: 10.9},
	}
}

func plainFrame(rows [][]rune) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = string(r)
	}
	return out
}

func TestChartSurfacePersistsAcrossDataChanges(t *testing.T) {
	c := NewChart(40, 10)
	c.SetData(sampleBars())
	c.Zoom(-10)
	want := c.VisibleBars()
	if want == 0 {
		t.Fatal("zoom did not narrow the window")
	}

	// Replacing the dataset must not reset the view state.
	c.SetData(sampleBars()[:2])
	if got := c.VisibleBars(); got != want {
		t.Errorf("zoom window after SetData = %d, want %d", got, want)
	}
	if c.Disposed() {
		t.Error("surface disposed by a data change")
	}
}

func TestChartFrameDimensions(t *testing.T) {
	c := NewChart(40, 10)
	c.SetData(sampleBars())

	runes, _ := c.grid()
	if len(runes) != 10 {
		t.Fatalf("frame rows = %d, want 10", len(runes))
	}
	for y, row := range runes {
		if len(row) != 40 {
			t.Errorf("row %d width = %d, want 40", y, len(row))
		}
	}
}

func TestChartResizePreservesHeightAndZoom(t *testing.T) {
	c := NewChart(40, 8)
	c.SetData(sampleBars())
	c.Zoom(-20)
	zoom := c.VisibleBars()

	c.Resize(60)
	runes, _ := c.grid()
	if len(runes) != 8 {
		t.Errorf("height after resize = %d, want 8", len(runes))
	}
	if len(runes[0]) != 60 {
		t.Errorf("width after resize = %d, want 60", len(runes[0]))
	}
	if c.VisibleBars() != zoom {
		t.Errorf("zoom after resize = %d, want %d", c.VisibleBars(), zoom)
	}
}

func TestChartDrawsCandlesAndOverlay(t *testing.T) {
	c := NewChart(40, 12)
	c.SetData(sampleBars())

	runes, classes := c.grid()
	var body, wick, ma bool
	for y := range runes {
		for x := 0; x < c.plotWidth(); x++ {
			switch runes[y][x] {
			case '█':
				body = true
			case '│':
				wick = true
			case '·':
				ma = true
				if classes[y][x] != cellMA {
					t.Errorf("overlay cell at %d,%d has class %d", x, y, classes[y][x])
				}
			}
		}
	}
	if !body {
		t.Error("no candle body cells rendered")
	}
	if !wick {
		t.Error("no wick cells rendered")
	}
	if !ma {
		t.Error("no moving-average overlay rendered")
	}
}

func TestChartRisingAndFallingColors(t *testing.T) {
	bars := []model.KLine{
		{Date: "2024-01-01", Open: 10, High: 11, Low: 9, Close: 10.8, Volume: 1},
		{Date: "2024-01-02", Open: 10.8, High: 11, Low: 9.5, Close: 9.8, Volume: 1},
	}
	c := NewChart(20, 10)
	c.showMA5 = false
	c.SetData(bars)

	_, classes := c.grid()
	var sawUp, sawDown bool
	for y := range classes {
		if classes[y][0] == cellUp {
			sawUp = true
		}
		if classes[y][1] == cellDown {
			sawDown = true
		}
	}
	if !sawUp {
		t.Error("rising bar not classed as up")
	}
	if !sawDown {
		t.Error("falling bar not classed as down")
	}
}

func TestChartAxisLabels(t *testing.T) {
	c := NewChart(40, 10)
	c.SetData(sampleBars())

	runes, _ := c.grid()
	rows := plainFrame(runes)
	if !strings.Contains(rows[0], "13.00") {
		t.Errorf("top axis row %q missing high label", rows[0])
	}
	if !strings.Contains(rows[9], "9.00") {
		t.Errorf("bottom axis row %q missing low label", rows[9])
	}
}

func TestChartEmptyDatasetRendersBlankPlot(t *testing.T) {
	c := NewChart(30, 6)

	runes, _ := c.grid()
	if len(runes) != 6 {
		t.Fatalf("rows = %d, want 6", len(runes))
	}
	for y := range runes {
		for x := 0; x < c.plotWidth(); x++ {
			if runes[y][x] != ' ' {
				t.Fatalf("plot cell %d,%d = %q, want blank", x, y, runes[y][x])
			}
		}
	}
}

func TestChartDisposeIdempotent(t *testing.T) {
	c := NewChart(30, 6)
	c.SetData(sampleBars())

	c.Dispose()
	c.Dispose()
	if !c.Disposed() {
		t.Fatal("chart not disposed")
	}
	if frame := c.Frame(); len(frame) != 0 {
		t.Errorf("disposed chart rendered %d rows", len(frame))
	}

	// Post-dispose calls are ignored, not panics.
	c.SetData(sampleBars())
	c.Resize(50)
	c.Zoom(-3)
	if frame := c.Frame(); len(frame) != 0 {
		t.Errorf("disposed chart accepted data, rendered %d rows", len(frame))
	}
}

func TestChartTooNarrowRendersNothing(t *testing.T) {
	c := NewChart(4, 6)
	c.SetData(sampleBars())
	if frame := c.Frame(); len(frame) != 0 {
		t.Errorf("undersized chart rendered %d rows", len(frame))
	}
}

func TestChartZoomClamps(t *testing.T) {
	c := NewChart(40, 10)
	c.SetData(sampleBars())

	c.Zoom(-1000)
	if got := c.VisibleBars(); got != minVisible {
		t.Errorf("zoom floor = %d, want %d", got, minVisible)
	}
	c.Zoom(1000)
	if got := c.VisibleBars(); got != 0 {
		t.Errorf("zoom past full width = %d, want 0 (fit)", got)
	}
}

func TestLineChartRendersCurve(t *testing.T) {
	points := []model.EquityPoint{
		{Date: "2024-01-01", Value: 100000},
		{Date: "2024-01-02", Value: 101500},
		{Date: "2024-01-03", Value: 99800},
		{Date: "2024-01-04", Value: 103200},
	}
	l := NewLineChart(40, 8)
	l.SetPoints(points)

	runes, _ := l.grid()
	if len(runes) != 8 {
		t.Fatalf("rows = %d, want 8", len(runes))
	}
	var marks int
	for y := range runes {
		for x := range runes[y] {
			if runes[y][x] == '•' {
				marks++
			}
		}
	}
	if marks != len(points) {
		t.Errorf("point markers = %d, want %d", marks, len(points))
	}

	l.Dispose()
	l.Dispose()
	if frame := l.Frame(); len(frame) != 0 {
		t.Errorf("disposed line chart rendered %d rows", len(frame))
	}
}
