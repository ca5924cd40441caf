package model

// Fixed request constants for the backtest endpoint. The client always sends
// these; strategy selection is not part of this surface.
const (
	DefaultInitialCash = 100000.0
	TailStrategy       = "tail_strategy"
)

// BacktestParams is the one-shot backtest request body.
// Dates are ISO "2006-01-02", empty string when unset.
type BacktestParams struct {
	StrategyType string  `json:"strategy_type"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	InitialCash  float64 `json:"initial_cash"`
}

// BacktestResult is received wholesale from one request; it is never merged
// or mutated, only replaced by the next successful run.
type BacktestResult struct {
	TotalReturn float64       `json:"total_return"` // percent, may be negative
	WinRate     float64       `json:"win_rate"`     // fraction 0-1
	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`
}

// Trade is one round trip in a backtest result.
type Trade struct {
	StockCode string  `json:"stock_code"`
	BuyDate   string  `json:"buy_date"`
	SellDate  string  `json:"sell_date"`
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
	Profit    float64 `json:"profit"`
}

// EquityPoint is one point on the backtest equity curve.
type EquityPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}
