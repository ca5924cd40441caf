package watch

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"stocktail/internal/render"
	"stocktail/internal/stream"
)

// chromeRows is the fixed vertical chrome: header, tab bar, footer.
const chromeRows = 3

// Styles.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	headerStallStyle = lipgloss.NewStyle().Bold(true).
				Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
	headerDownStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
	tabActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	footerStyle    = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	noticeStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
	codeStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("236"))
	gainStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	lossStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}
	return a.headerBar() + "\n" + a.tabBar() + "\n" + a.viewport.View() + "\n" + a.footerBar()
}

// refresh re-renders the active tab into the viewport.
func (a *App) refresh() {
	if !a.ready {
		return
	}
	switch a.tab {
	case tabStocks:
		a.viewport.SetContent(a.renderStocks())
	case tabBacktest:
		a.viewport.SetContent(a.renderBacktest())
	case tabEvents:
		a.viewport.SetContent(a.renderEvents())
	}
}

func (a *App) headerBar() string {
	state := a.mgr.State()
	last := a.mgr.LastMessage()

	label := "LIVE"
	style := headerStyle
	switch {
	case state != stream.StateOpen:
		label = strings.ToUpper(state.String())
		style = headerDownStyle
	case last.IsZero() || a.now.Sub(last) > staleAfter:
		label = "STALLED"
		style = headerStallStyle
	}

	age := "--"
	if !last.IsZero() {
		age = a.now.Sub(last).Truncate(time.Second).String()
	}
	text := fmt.Sprintf(" stocktail  %s  stocks: %d  last msg: %s  cap filter: %s ",
		label, a.state.Len(), age, a.filterLabel())
	return style.Render(padOrTrunc(text, a.width))
}

func (a *App) filterLabel() string {
	if a.filter.MinMarketCap == 0 && a.filter.MaxMarketCap == 0 {
		return "none"
	}
	return fmt.Sprintf("%s..%s", boundLabel(a.filter.MinMarketCap), boundLabel(a.filter.MaxMarketCap))
}

func boundLabel(v float64) string {
	if v == 0 {
		return "∞"
	}
	return fmt.Sprintf("%.0f", v)
}

func (a *App) tabBar() string {
	names := []string{"1 Stocks", "2 Backtest", "3 Events"}
	parts := make([]string, len(names))
	for i, n := range names {
		if i == a.tab {
			parts[i] = tabActiveStyle.Render("[" + n + "]")
		} else {
			parts[i] = tabStyle.Render(" " + n + " ")
		}
	}
	return padOrTrunc(strings.Join(parts, " "), a.width)
}

func (a *App) footerBar() string {
	if a.notice != "" {
		return noticeStyle.Render(padOrTrunc(" "+a.notice+"  (esc to dismiss)", a.width))
	}
	help := " q quit  tab switch  / filter  up/dn select  +/- zoom  l events  e edit dates  r run"
	return footerStyle.Render(padOrTrunc(help, a.width))
}

func (a *App) renderStocks() string {
	var b strings.Builder

	b.WriteString(labelStyle.Render("  Market cap filter: "))
	b.WriteString(a.minInput.View())
	b.WriteString(dimStyle.Render(" to "))
	b.WriteString(a.maxInput.View())
	if a.loading {
		b.WriteString(dimStyle.Render("   loading..."))
	} else if a.filtering {
		b.WriteString(dimStyle.Render("   enter apply, esc cancel"))
	}
	b.WriteString("\n\n")

	stocks := a.state.Stocks()
	if len(stocks) == 0 {
		b.WriteString(dimStyle.Render("  (no stocks match the filter)"))
		b.WriteString("\n")
		return b.String()
	}

	// One card per stock: header line over the live chart surface.
	for i, s := range stocks {
		chg := gainStyle
		if s.Change < 0 {
			chg = lossStyle
		}
		head := codeStyle.Render(fmt.Sprintf("  %s %-12s", s.Code, truncName(s.Name, 12)))
		head += fmt.Sprintf(" %10.2f ", s.Price)
		head += chg.Render(fmt.Sprintf("%+7.2f%%", s.Change))
		head += dimStyle.Render(fmt.Sprintf("   cap %.0f  bars %d", s.MarketCap, len(a.state.Series(s.Code))))
		if i == a.selected {
			head = selectedStyle.Render(padOrTrunc(head, a.width))
		}
		b.WriteString(head)
		b.WriteString("\n")
		if c, ok := a.charts[s.Code]; ok {
			for _, row := range safeFrame(a.log, s.Code, c) {
				b.WriteString("  ")
				b.WriteString(row)
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// cardRows is the height of one stock card in the scroll view.
func (a *App) cardRows() int {
	return a.cfg.ChartHeight + 2
}

// followSelection scrolls the stocks view so the selected card is on screen.
func (a *App) followSelection() {
	if a.tab != tabStocks {
		return
	}
	const formRows = 2
	top := formRows + a.selected*a.cardRows()
	bottom := top + a.cardRows()
	if top < a.viewport.YOffset {
		a.viewport.SetYOffset(top)
	} else if bottom > a.viewport.YOffset+a.viewport.Height {
		a.viewport.SetYOffset(bottom - a.viewport.Height)
	}
}

func (a *App) renderBacktest() string {
	var b strings.Builder

	b.WriteString(labelStyle.Render("  Tail strategy backtest  "))
	b.WriteString(a.startInput.View())
	b.WriteString(dimStyle.Render(" to "))
	b.WriteString(a.endInput.View())
	switch {
	case a.btLoading:
		b.WriteString(dimStyle.Render("   running..."))
	case a.btEditing:
		b.WriteString(dimStyle.Render("   enter run, esc cancel"))
	default:
		b.WriteString(dimStyle.Render("   e edit, r run"))
	}
	b.WriteString("\n\n")

	if a.btResult == nil {
		b.WriteString(dimStyle.Render("  (no result yet)"))
		b.WriteString("\n")
		return b.String()
	}

	res := a.btResult
	retStyle := gainStyle
	if res.TotalReturn < 0 {
		retStyle = lossStyle
	}
	b.WriteString(fmt.Sprintf("  return: %s   win rate: %.0f%%   trades: %d\n\n",
		retStyle.Render(fmt.Sprintf("%+.2f%%", res.TotalReturn)),
		res.WinRate*100, len(res.Trades)))

	if a.btChart != nil {
		for _, row := range a.btChart.Frame() {
			b.WriteString("  ")
			b.WriteString(row)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render(fmt.Sprintf("  %-8s %-12s %-12s %10s %10s %10s",
		"CODE", "BUY", "SELL", "BUY PX", "SELL PX", "PROFIT")))
	b.WriteString("\n")
	for _, tr := range res.Trades {
		p := gainStyle
		if tr.Profit < 0 {
			p = lossStyle
		}
		b.WriteString(fmt.Sprintf("  %-8s %-12s %-12s %10.2f %10.2f ",
			tr.StockCode, tr.BuyDate, tr.SellDate, tr.BuyPrice, tr.SellPrice))
		b.WriteString(p.Render(fmt.Sprintf("%10.2f", tr.Profit)))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) renderEvents() string {
	var b strings.Builder
	events := a.events.Recent(100)
	if len(events) == 0 {
		b.WriteString(dimStyle.Render("  (no events)"))
		b.WriteString("\n")
		return b.String()
	}
	for _, e := range events {
		b.WriteString(dimStyle.Render("  " + e.At.Format("15:04:05") + "  "))
		b.WriteString(e.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// safeFrame renders one surface, isolating a panicking card so the rest of
// the dashboard stays up.
func safeFrame(log *slog.Logger, code string, c *render.Chart) (rows []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("chart render panic", "code", code, "panic", r)
			rows = []string{"(chart unavailable)"}
		}
	}()
	return c.Frame()
}

func truncName(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// padOrTrunc pads s with spaces or truncates it to width cells. Truncation
// goes through lipgloss so escape sequences in styled rows survive intact.
func padOrTrunc(s string, width int) string {
	w := lipgloss.Width(s)
	if w < width {
		return s + strings.Repeat(" ", width-w)
	}
	if w > width {
		return lipgloss.NewStyle().MaxWidth(width).Render(s)
	}
	return s
}
