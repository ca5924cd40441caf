package watch

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stocktail/config"
	"stocktail/internal/apiclient"
	"stocktail/internal/metrics"
	"stocktail/internal/model"
	"stocktail/internal/stream"
)

func testApp(t *testing.T) *App {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := &config.Watch{
		FeedURL:     "ws://localhost:1/ws",
		APIBase:     "http://localhost:1",
		ChartHeight: 6,
	}
	a := New(cfg, log, metrics.NewWatch(), stream.New(cfg.FeedURL, log), apiclient.New(cfg.APIBase))

	// Size the surface like the terminal would.
	m, _ := a.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m.(*App)
}

func seedStocks() []model.Stock {
	return []model.Stock{
		{Code: "600001", Name: "Alpha", Price: 12, Change: 1.5, MarketCap: 300,
			KLines: []model.KLine{{Date: "2024-01-01", Open: 11, High: 12.5, Low: 10.8, Close: 12, Volume: 100}}},
		{Code: "600002", Name: "Beta", Price: 8, Change: -0.7, MarketCap: 120,
			KLines: []model.KLine{{Date: "2024-01-01", Open: 8.2, High: 8.4, Low: 7.9, Close: 8, Volume: 50}}},
	}
}

func TestFilterResultMountsAndDisposesCharts(t *testing.T) {
	a := testApp(t)

	m, _ := a.Update(stocksLoadedMsg{stocks: seedStocks()})
	a = m.(*App)

	if len(a.charts) != 2 {
		t.Fatalf("mounted charts = %d, want 2", len(a.charts))
	}
	first := a.charts["600001"]

	// Narrow the filter: 600002 leaves, 600001 survives.
	m, _ = a.Update(stocksLoadedMsg{stocks: seedStocks()[:1]})
	a = m.(*App)

	if len(a.charts) != 1 {
		t.Fatalf("charts after refilter = %d, want 1", len(a.charts))
	}
	if a.charts["600001"] != first {
		t.Error("surviving stock got a new surface instead of keeping its own")
	}
	if first.Disposed() {
		t.Error("surviving surface was disposed")
	}
}

func TestBatchUpdatesMountedCharts(t *testing.T) {
	a := testApp(t)
	m, _ := a.Update(stocksLoadedMsg{stocks: seedStocks()})
	a = m.(*App)

	batch := batchMsg{{
		Code: "600001", Price: 13, Change: 2.1,
		KLines: []model.KLine{
			{Date: "2024-01-01", Open: 11, High: 13.2, Low: 10.8, Close: 13, Volume: 140},
			{Date: "2024-01-02", Open: 13, High: 13.5, Low: 12.8, Close: 13.2, Volume: 60},
		},
	}}
	m, cmd := a.Update(batch)
	a = m.(*App)

	if cmd == nil {
		t.Fatal("batch handling did not re-arm the stream wait")
	}
	if got, _ := a.state.Stock("600001"); got.Price != 13 {
		t.Errorf("price after batch = %v, want 13", got.Price)
	}
	if n := len(a.state.Series("600001")); n != 2 {
		t.Errorf("series length after batch = %d, want 2", n)
	}
}

func TestQueryFailureSetsDismissibleNotice(t *testing.T) {
	a := testApp(t)

	m, _ := a.Update(stocksLoadedMsg{err: errFake})
	a = m.(*App)
	if a.notice == "" {
		t.Fatal("failed query produced no notice")
	}
	if a.state.Len() != 0 {
		t.Error("failed query mutated stock state")
	}

	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	a = m.(*App)
	if a.notice != "" {
		t.Error("esc did not dismiss the notice")
	}
}

func TestResizePropagatesToSurfaces(t *testing.T) {
	a := testApp(t)
	m, _ := a.Update(stocksLoadedMsg{stocks: seedStocks()})
	a = m.(*App)

	m, _ = a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	a = m.(*App)

	for code, c := range a.charts {
		if c.Width() != a.chartWidth() {
			t.Errorf("%s width = %d, want %d", code, c.Width(), a.chartWidth())
		}
		if c.Height() != a.cfg.ChartHeight {
			t.Errorf("%s height changed on resize", code)
		}
	}
}

func TestBacktestResultReusesLineSurface(t *testing.T) {
	a := testApp(t)

	res := &model.BacktestResult{
		TotalReturn: 4.2,
		WinRate:     0.6,
		Trades:      []model.Trade{{StockCode: "600001", Profit: 420}},
		EquityCurve: []model.EquityPoint{
			{Date: "2024-01-01", Value: 100000},
			{Date: "2024-02-01", Value: 104200},
		},
	}
	m, _ := a.Update(backtestDoneMsg{result: res})
	a = m.(*App)
	if a.btResult != res {
		t.Fatal("result not stored")
	}
	surface := a.btChart
	if surface == nil {
		t.Fatal("no equity surface created")
	}

	m, _ = a.Update(backtestDoneMsg{result: res})
	a = m.(*App)
	if a.btChart != surface {
		t.Error("second result rebuilt the equity surface")
	}
}

func TestViewRendersCardsAndTabs(t *testing.T) {
	a := testApp(t)
	m, _ := a.Update(stocksLoadedMsg{stocks: seedStocks()})
	a = m.(*App)

	out := a.View()
	if !strings.Contains(out, "600001") {
		t.Error("view missing stock code")
	}
	if !strings.Contains(out, "Stocks") || !strings.Contains(out, "Backtest") {
		t.Error("view missing tab bar")
	}

	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	a = m.(*App)
	if a.tab != tabEvents {
		t.Errorf("tab after '3' = %d, want events", a.tab)
	}
	if !strings.Contains(a.View(), "filter applied") {
		t.Error("events tab missing filter event")
	}
}

func TestParseBound(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"500", 500},
		{"12.5", 12.5},
		{"-3", 0},
		{"abc", 0},
	}
	for _, c := range cases {
		if got := parseBound(c.in); got != c.want {
			t.Errorf("parseBound(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestPadOrTruncKeepsStyledWidth(t *testing.T) {
	plain := strings.Repeat("x", 50)
	styled := lipgloss.NewStyle().Background(lipgloss.Color("236")).Render(plain)

	for _, in := range []string{plain, styled} {
		if got := lipgloss.Width(padOrTrunc(in, 10)); got != 10 {
			t.Errorf("truncated width = %d, want 10", got)
		}
		if got := lipgloss.Width(padOrTrunc(in, 60)); got != 60 {
			t.Errorf("padded width = %d, want 60", got)
		}
	}
}

func TestEventLogOverwritesOldest(t *testing.T) {
	l := NewEventLog(3)
	for i := 0; i < 5; i++ {
		l.Add("event %d", i)
	}
	if l.Len() != 3 {
		t.Fatalf("len = %d, want 3", l.Len())
	}
	recent := l.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("recent = %d entries, want 3", len(recent))
	}
	if recent[0].Text != "event 4" || recent[2].Text != "event 2" {
		t.Errorf("order wrong: %q .. %q", recent[0].Text, recent[2].Text)
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var errFake = fakeErr("boom")
