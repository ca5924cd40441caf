// Package feedsim is a demo market-data origin. It maintains a simulated
// stock universe, pushes the full universe to WebSocket clients on an
// interval, and answers the REST endpoints the dashboard calls.
package feedsim

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"stocktail/internal/indicator"
	"stocktail/internal/model"
)

// simStock holds per-symbol simulation state. The last bar of the series is
// the forming bar; intraday ticks fold into it and the moving averages carry
// its previewed value via Peek.
type simStock struct {
	stock model.Stock

	ma5  *indicator.SMA
	ma10 *indicator.SMA
	ma20 *indicator.SMA

	prevClose float64 // prior session close, for the change percentage
}

// Universe generates and mutates the simulated stock universe.
type Universe struct {
	mu     sync.RWMutex
	rng    *rand.Rand
	stocks []*simStock
}

// NewUniverse builds count stocks, each with historyDays of daily bars ending
// at the forming bar for today.
func NewUniverse(count, historyDays int, seed int64) *Universe {
	u := &Universe{rng: rand.New(rand.NewSource(seed))}
	if historyDays < 2 {
		historyDays = 2
	}
	today := time.Now()
	for i := 0; i < count; i++ {
		code := fmt.Sprintf("600%03d", i+1)
		u.stocks = append(u.stocks, u.genStock(code, historyDays, today))
	}
	return u
}

func (u *Universe) genStock(code string, days int, today time.Time) *simStock {
	base := 5 + u.rng.Float64()*95 // opening price 5..100

	bars := make([]model.KLine, 0, days)
	closes := make([]float64, 0, days)
	prev := base
	for d := days - 1; d >= 0; d-- {
		date := today.AddDate(0, 0, -d).Format("2006-01-02")
		open := prev * (1 + (u.rng.Float64()*2-1)/100)
		close := open * (1 + (u.rng.Float64()*4-2)/100)
		hi := open
		if close > hi {
			hi = close
		}
		lo := open
		if close < lo {
			lo = close
		}
		hi *= 1 + u.rng.Float64()/100
		lo *= 1 - u.rng.Float64()/100
		bars = append(bars, model.KLine{
			Date:   date,
			Open:   round2(open),
			High:   round2(hi),
			Low:    round2(lo),
			Close:  round2(close),
			Volume: float64(100_000 + u.rng.Intn(4_900_000)),
		})
		closes = append(closes, round2(close))
		prev = close
	}

	// Moving averages are seeded with every settled bar; the forming bar is
	// previewed, never fed in.
	ma5, ma10, ma20 := indicator.NewSMA(5), indicator.NewSMA(10), indicator.NewSMA(20)
	for _, c := range closes[:len(closes)-1] {
		ma5.Update(c)
		ma10.Update(c)
		ma20.Update(c)
	}
	ma5s := indicator.Series(closes, 5)
	ma10s := indicator.Series(closes, 10)
	ma20s := indicator.Series(closes, 20)
	for i := range bars {
		bars[i].MA5 = round2(ma5s[i])
		bars[i].MA10 = round2(ma10s[i])
		bars[i].MA20 = round2(ma20s[i])
	}

	last := bars[len(bars)-1]
	s := &simStock{
		stock: model.Stock{
			Code:      code,
			Name:      fmt.Sprintf("SIM%s", code[3:]),
			Price:     last.Close,
			MarketCap: round2(10 + u.rng.Float64()*1990),
			KLines:    bars,
		},
		ma5:       ma5,
		ma10:      ma10,
		ma20:      ma20,
		prevClose: bars[len(bars)-2].Close,
	}
	s.stock.Change = changePct(last.Close, s.prevClose)
	return s
}

// Tick applies one intraday move to every stock: a walk of up to ±0.5%
// folded into the forming bar, with averages previewed over the new close.
func (u *Universe) Tick() {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, s := range u.stocks {
		last := &s.stock.KLines[len(s.stock.KLines)-1]

		pct := (u.rng.Float64() - 0.5) / 100
		close := round2(last.Close * (1 + pct))
		if close < 0.01 {
			close = 0.01
		}

		last.Close = close
		if close > last.High {
			last.High = close
		}
		if close < last.Low {
			last.Low = close
		}
		last.Volume += float64(u.rng.Intn(50_000))
		last.MA5 = round2(s.ma5.Peek(close))
		last.MA10 = round2(s.ma10.Peek(close))
		last.MA20 = round2(s.ma20.Peek(close))

		s.stock.Price = close
		s.stock.Change = changePct(close, s.prevClose)
	}
}

// RollBars settles every forming bar and opens a new session dated one day
// after it. The settled close feeds the moving averages for real.
func (u *Universe) RollBars() {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, s := range u.stocks {
		last := s.stock.KLines[len(s.stock.KLines)-1]
		s.ma5.Update(last.Close)
		s.ma10.Update(last.Close)
		s.ma20.Update(last.Close)
		s.prevClose = last.Close

		day, err := time.Parse("2006-01-02", last.Date)
		if err != nil {
			day = time.Now()
		}
		next := model.KLine{
			Date:   day.AddDate(0, 0, 1).Format("2006-01-02"),
			Open:   last.Close,
			High:   last.Close,
			Low:    last.Close,
			Close:  last.Close,
			Volume: 0,
			MA5:    round2(s.ma5.Peek(last.Close)),
			MA10:   round2(s.ma10.Peek(last.Close)),
			MA20:   round2(s.ma20.Peek(last.Close)),
		}
		s.stock.KLines = append(s.stock.KLines, next)
	}
}

// Snapshot returns deep copies of every stock matching the filter.
func (u *Universe) Snapshot(filter model.StockFilter) []model.Stock {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make([]model.Stock, 0, len(u.stocks))
	for _, s := range u.stocks {
		if !filter.Matches(s.stock) {
			continue
		}
		cp := s.stock
		cp.KLines = make([]model.KLine, len(s.stock.KLines))
		copy(cp.KLines, s.stock.KLines)
		out = append(out, cp)
	}
	return out
}

// Len returns the universe size.
func (u *Universe) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.stocks)
}

// Rename overrides generated names and market caps, keyed by code. Used when
// an instrument database is available.
func (u *Universe) Rename(meta map[string]InstrumentMeta) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, s := range u.stocks {
		if m, ok := meta[s.stock.Code]; ok {
			if m.Name != "" {
				s.stock.Name = m.Name
			}
			if m.MarketCap > 0 {
				s.stock.MarketCap = m.MarketCap
			}
		}
	}
}

func changePct(close, prevClose float64) float64 {
	if prevClose == 0 {
		return 0
	}
	return round2((close - prevClose) / prevClose * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
