// Package watch is the terminal dashboard. A single bubbletea update loop
// owns all client state; the stream manager's goroutine only feeds it
// messages, so reconcile, series writes and chart updates never race.
package watch

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"stocktail/config"
	"stocktail/internal/apiclient"
	"stocktail/internal/controller"
	"stocktail/internal/metrics"
	"stocktail/internal/model"
	"stocktail/internal/render"
	"stocktail/internal/stream"
)

// Tabs.
const (
	tabStocks = iota
	tabBacktest
	tabEvents
	tabCount
)

// staleAfter is how long the feed may be silent before the header shows
// STALLED instead of LIVE.
const staleAfter = 10 * time.Second

// Messages.
type batchMsg []model.StockUpdate
type feedClosedMsg struct{}
type tickMsg time.Time

type stocksLoadedMsg struct {
	stocks []model.Stock
	filter model.StockFilter
	err    error
}

type backtestDoneMsg struct {
	result *model.BacktestResult
	params model.BacktestParams
	err    error
}

// App is the dashboard's bubbletea model.
type App struct {
	cfg *config.Watch
	log *slog.Logger
	met *metrics.Watch

	mgr   *stream.Manager
	api   *apiclient.Client
	state *controller.State

	// One persistent surface per visible stock, plus one for the equity
	// curve. Mounted and disposed only on membership changes.
	charts  map[string]*render.Chart
	btChart *render.LineChart

	events *EventLog

	tab      int
	selected int // index into state.Stocks()

	// Filter form.
	minInput  textinput.Model
	maxInput  textinput.Model
	filter    model.StockFilter
	filtering bool // true while the form has focus
	loading   bool

	// Backtest form.
	startInput textinput.Model
	endInput   textinput.Model
	btEditing  bool
	btLoading  bool
	btResult   *model.BacktestResult

	viewport      viewport.Model
	ready         bool
	width, height int

	notice string // dismissible error banner
	now    time.Time
}

// New wires the dashboard. Connect has not been called on the manager yet;
// Init starts the stream.
func New(cfg *config.Watch, log *slog.Logger, met *metrics.Watch, mgr *stream.Manager, api *apiclient.Client) *App {
	min := textinput.New()
	min.Placeholder = "min cap"
	min.CharLimit = 12
	min.Width = 10

	max := textinput.New()
	max.Placeholder = "max cap"
	max.CharLimit = 12
	max.Width = 10

	start := textinput.New()
	start.Placeholder = "2024-01-01"
	start.CharLimit = 10
	start.Width = 12

	end := textinput.New()
	end.Placeholder = "2024-06-30"
	end.CharLimit = 10
	end.Width = 12

	a := &App{
		cfg:        cfg,
		log:        log,
		met:        met,
		mgr:        mgr,
		api:        api,
		state:      controller.New(),
		charts:     make(map[string]*render.Chart),
		events:     NewEventLog(200),
		minInput:   min,
		maxInput:   max,
		startInput: start,
		endInput:   end,
		now:        time.Now(),
	}
	a.state.OnBarUpserted = met.BarsUpserted.Inc
	a.state.OnBarRejected = met.RejectedBars.Inc

	// Transport trouble is an event-log matter, never a notice. The hooks
	// run on the stream goroutine; EventLog is safe for that.
	prevReconnect := mgr.OnReconnect
	mgr.OnReconnect = func() {
		if prevReconnect != nil {
			prevReconnect()
		}
		a.events.Add("push channel lost, retrying")
	}
	prevDropped := mgr.OnDroppedBatch
	mgr.OnDroppedBatch = func() {
		if prevDropped != nil {
			prevDropped()
		}
		a.events.Add("update batch dropped, consumer behind")
	}
	return a
}

func (a *App) Init() tea.Cmd {
	a.mgr.Connect()
	a.events.Add("stream connecting to %s", a.cfg.FeedURL)
	return tea.Batch(
		a.waitForBatch(),
		tickCmd(),
		a.loadStocks(a.filter),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForBatch bridges the manager's batch channel into the update loop.
// Re-issued after every delivery; a closed channel ends the chain.
func (a *App) waitForBatch() tea.Cmd {
	ch := a.mgr.Batches()
	return func() tea.Msg {
		batch, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return batchMsg(batch)
	}
}

// loadStocks fires the one-shot filtered snapshot query.
func (a *App) loadStocks(filter model.StockFilter) tea.Cmd {
	a.loading = true
	api := a.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stocks, err := api.Stocks(ctx, filter)
		return stocksLoadedMsg{stocks: stocks, filter: filter, err: err}
	}
}

// runBacktest fires the one-shot backtest request.
func (a *App) runBacktest(p model.BacktestParams) tea.Cmd {
	a.btLoading = true
	api := a.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result, err := api.Backtest(ctx, p)
		return backtestDoneMsg{result: result, params: p, err: err}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		vpHeight := a.height - chromeRows
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !a.ready {
			a.viewport = viewport.New(a.width, vpHeight)
			a.ready = true
		} else {
			a.viewport.Width = a.width
			a.viewport.Height = vpHeight
		}
		// Surfaces follow the container width; they are not recreated.
		for _, c := range a.charts {
			c.Resize(a.chartWidth())
		}
		if a.btChart != nil {
			a.btChart.Resize(a.chartWidth())
		}
		a.refresh()
		return a, nil

	case batchMsg:
		start := time.Now()
		changed := a.state.ApplyBatch(msg)
		a.met.ReconcileDur.Observe(time.Since(start).Seconds())
		a.met.BatchesTotal.Inc()
		a.met.RecordsTotal.Add(float64(len(msg)))
		for _, code := range changed {
			if c, ok := a.charts[code]; ok {
				c.SetData(a.state.Series(code))
			}
		}
		a.refresh()
		return a, a.waitForBatch()

	case feedClosedMsg:
		a.events.Add("stream disposed")
		a.refresh()
		return a, nil

	case tickMsg:
		a.now = time.Time(msg)
		a.refresh()
		return a, tickCmd()

	case stocksLoadedMsg:
		a.loading = false
		if msg.err != nil {
			a.notice = "stock query failed: " + msg.err.Error()
			a.events.Add("stock query failed: %v", msg.err)
			a.log.Warn("stock query failed", "err", msg.err)
			a.refresh()
			return a, nil
		}
		a.filter = msg.filter
		added, removed := a.state.ApplyFilterResult(msg.stocks)
		a.mountCharts(added, removed)
		a.met.VisibleStocks.Set(float64(a.state.Len()))
		a.events.Add("filter applied: %d stocks (+%d -%d)", a.state.Len(), len(added), len(removed))
		a.clampSelection()
		a.refresh()
		return a, nil

	case backtestDoneMsg:
		a.btLoading = false
		if msg.err != nil {
			a.notice = "backtest failed: " + msg.err.Error()
			a.events.Add("backtest failed: %v", msg.err)
			a.log.Warn("backtest failed", "err", msg.err)
			a.refresh()
			return a, nil
		}
		a.btResult = msg.result
		if a.btChart == nil {
			a.btChart = render.NewLineChart(a.chartWidth(), a.cfg.ChartHeight)
		}
		a.btChart.SetPoints(msg.result.EquityCurve)
		a.events.Add("backtest done: %d trades, return %.2f%%",
			len(msg.result.Trades), msg.result.TotalReturn)
		a.refresh()
		return a, nil
	}

	if a.ready {
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Form focus swallows most keys.
	if a.filtering {
		return a.handleFilterKey(msg)
	}
	if a.btEditing {
		return a.handleBacktestKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		a.mgr.Disconnect()
		return a, tea.Quit

	case "esc":
		a.notice = ""
		a.refresh()
		return a, nil

	case "tab":
		a.tab = (a.tab + 1) % tabCount
		a.viewport.GotoTop()
		a.refresh()
		return a, nil
	case "1":
		a.tab = tabStocks
		a.refresh()
		return a, nil
	case "2":
		a.tab = tabBacktest
		a.refresh()
		return a, nil
	case "3":
		a.tab = tabEvents
		a.refresh()
		return a, nil
	case "l":
		if a.tab == tabEvents {
			a.tab = tabStocks
		} else {
			a.tab = tabEvents
		}
		a.refresh()
		return a, nil

	case "/":
		if a.tab == tabStocks {
			a.filtering = true
			a.minInput.Focus()
			a.refresh()
		}
		return a, nil

	case "e":
		if a.tab == tabBacktest {
			a.btEditing = true
			a.startInput.Focus()
			a.refresh()
		}
		return a, nil

	case "r":
		if a.tab == tabBacktest && !a.btLoading {
			return a, a.runBacktest(a.backtestParams())
		}
		return a, nil

	case "up", "k":
		if a.tab == tabStocks && a.selected > 0 {
			a.selected--
			a.refresh()
			a.followSelection()
		}
		return a, nil
	case "down", "j":
		if a.tab == tabStocks && a.selected < a.state.Len()-1 {
			a.selected++
			a.refresh()
			a.followSelection()
		}
		return a, nil

	case "+", "=":
		a.zoomSelected(5)
		return a, nil
	case "-", "_":
		a.zoomSelected(-5)
		return a, nil
	}

	if a.ready {
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.filtering = false
		a.minInput.Blur()
		a.maxInput.Blur()
		a.refresh()
		return a, nil
	case "tab":
		if a.minInput.Focused() {
			a.minInput.Blur()
			a.maxInput.Focus()
		} else {
			a.maxInput.Blur()
			a.minInput.Focus()
		}
		a.refresh()
		return a, nil
	case "enter":
		a.filtering = false
		a.minInput.Blur()
		a.maxInput.Blur()
		filter := model.StockFilter{
			MinMarketCap: parseBound(a.minInput.Value()),
			MaxMarketCap: parseBound(a.maxInput.Value()),
		}
		a.refresh()
		return a, a.loadStocks(filter)
	}

	var cmd tea.Cmd
	if a.minInput.Focused() {
		a.minInput, cmd = a.minInput.Update(msg)
	} else {
		a.maxInput, cmd = a.maxInput.Update(msg)
	}
	a.refresh()
	return a, cmd
}

func (a *App) handleBacktestKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.btEditing = false
		a.startInput.Blur()
		a.endInput.Blur()
		a.refresh()
		return a, nil
	case "tab":
		if a.startInput.Focused() {
			a.startInput.Blur()
			a.endInput.Focus()
		} else {
			a.endInput.Blur()
			a.startInput.Focus()
		}
		a.refresh()
		return a, nil
	case "enter":
		a.btEditing = false
		a.startInput.Blur()
		a.endInput.Blur()
		if a.btLoading {
			return a, nil
		}
		return a, a.runBacktest(a.backtestParams())
	}

	var cmd tea.Cmd
	if a.startInput.Focused() {
		a.startInput, cmd = a.startInput.Update(msg)
	} else {
		a.endInput, cmd = a.endInput.Update(msg)
	}
	a.refresh()
	return a, cmd
}

// backtestParams builds the fixed-shape request from the form.
func (a *App) backtestParams() model.BacktestParams {
	start := a.startInput.Value()
	end := a.endInput.Value()
	if start == "" {
		start = a.now.AddDate(0, -6, 0).Format("2006-01-02")
	}
	if end == "" {
		end = a.now.Format("2006-01-02")
	}
	return model.BacktestParams{
		StrategyType: model.TailStrategy,
		StartDate:    start,
		EndDate:      end,
		InitialCash:  model.DefaultInitialCash,
	}
}

// mountCharts creates surfaces for newly visible stocks and disposes those
// that left. Surviving surfaces are updated in place, never rebuilt.
func (a *App) mountCharts(added, removed []string) {
	for _, code := range removed {
		if c, ok := a.charts[code]; ok {
			c.Dispose()
			delete(a.charts, code)
		}
	}
	for _, code := range added {
		c := render.NewChart(a.chartWidth(), a.cfg.ChartHeight)
		c.SetData(a.state.Series(code))
		a.charts[code] = c
	}
	// Members that survived the filter change may still have new history.
	for code, c := range a.charts {
		c.SetData(a.state.Series(code))
	}
}

func (a *App) zoomSelected(delta int) {
	stocks := a.state.Stocks()
	if a.selected >= len(stocks) {
		return
	}
	if c, ok := a.charts[stocks[a.selected].Code]; ok {
		c.Zoom(delta)
		a.refresh()
	}
}

func (a *App) clampSelection() {
	if n := a.state.Len(); a.selected >= n {
		a.selected = n - 1
	}
	if a.selected < 0 {
		a.selected = 0
	}
}

func (a *App) chartWidth() int {
	if a.width > 0 {
		return a.width - 2
	}
	return 80
}

// parseBound maps invalid or empty input to the unbounded zero value.
func parseBound(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
