package feedsim

import (
	"fmt"
	"math/rand"
	"time"

	"stocktail/internal/model"
)

const (
	backtestTrades  = 20
	backtestWinRate = 0.6
	winReturn       = 0.05  // winners gain 5%
	lossReturn      = -0.02 // losers lose 2%

	// defaultWindowDays is the trailing window used when the request leaves
	// a date empty.
	defaultWindowDays = 20
)

// RunBacktest simulates a tail-strategy run over the requested window. Trades
// are spread evenly across the window with a fixed win rate; the equity curve
// carries one point per trade day plus the endpoints.
func RunBacktest(u *Universe, params model.BacktestParams, seed int64) (*model.BacktestResult, error) {
	start, end, err := backtestWindow(params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}

	cash := params.InitialCash
	if cash <= 0 {
		cash = model.DefaultInitialCash
	}

	rng := rand.New(rand.NewSource(seed))
	days := int(end.Sub(start).Hours()/24) + 1
	trades := backtestTrades
	if trades > days {
		trades = days
	}
	if trades < 1 {
		trades = 1
	}

	codes := tradableCodes(u, rng, trades)

	equity := cash
	wins := 0
	tradeList := make([]model.Trade, 0, trades)
	curve := []model.EquityPoint{{Date: start.Format("2006-01-02"), Value: round2(equity)}}

	for i := 0; i < trades; i++ {
		day := start.AddDate(0, 0, i*days/trades)
		ret := lossReturn
		if rng.Float64() < backtestWinRate {
			ret = winReturn
			wins++
		}

		// Each trade commits a tenth of current equity.
		stake := equity * 0.1
		pnl := round2(stake * ret)
		equity += pnl

		buyPrice := round2(5 + rng.Float64()*95)
		tradeList = append(tradeList, model.Trade{
			StockCode: codes[i%len(codes)],
			BuyDate:   day.Format("2006-01-02"),
			SellDate:  day.AddDate(0, 0, 1).Format("2006-01-02"),
			BuyPrice:  buyPrice,
			SellPrice: round2(buyPrice * (1 + ret)),
			Profit:    pnl,
		})
		curve = append(curve, model.EquityPoint{
			Date:  day.Format("2006-01-02"),
			Value: round2(equity),
		})
	}
	curve = append(curve, model.EquityPoint{Date: end.Format("2006-01-02"), Value: round2(equity)})

	return &model.BacktestResult{
		TotalReturn: round2((equity - cash) / cash * 100),
		WinRate:     float64(wins) / float64(trades),
		Trades:      tradeList,
		EquityCurve: curve,
	}, nil
}

// backtestWindow resolves the requested date range. An empty end date means
// today; an empty start date means a trailing window before the end.
func backtestWindow(startDate, endDate string) (time.Time, time.Time, error) {
	end := time.Now()
	if endDate != "" {
		var err error
		end, err = time.Parse("2006-01-02", endDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad end_date %q: %w", endDate, err)
		}
	}
	start := end.AddDate(0, 0, -defaultWindowDays)
	if startDate != "" {
		var err error
		start, err = time.Parse("2006-01-02", startDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad start_date %q: %w", startDate, err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date %s before start_date %s", endDate, startDate)
	}
	return start, end, nil
}

// tradableCodes picks n codes from the universe, repeating when the universe
// is smaller than the trade count.
func tradableCodes(u *Universe, rng *rand.Rand, n int) []string {
	stocks := u.Snapshot(model.StockFilter{})
	if len(stocks) == 0 {
		return []string{"600001"}
	}
	out := make([]string, n)
	for i := range out {
		out[i] = stocks[rng.Intn(len(stocks))].Code
	}
	return out
}

