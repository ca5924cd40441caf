// Package controller owns the page-level client state: the filtered
// instrument set and the series store behind the chart pipeline. All methods
// must be called from one goroutine (the UI update loop); the two event
// sources — push-channel batches and one-shot query responses — are applied
// strictly in the order they fire.
package controller

import (
	"sort"

	"stocktail/internal/model"
	"stocktail/internal/reconcile"
	"stocktail/internal/series"
)

// State is the explicitly owned client state object.
type State struct {
	stocks map[string]model.Stock
	store  *series.Store

	// Hooks for instrumentation, optional.
	OnBarUpserted func()
	OnBarRejected func()
}

// New creates an empty controller state.
func New() *State {
	return &State{
		stocks: make(map[string]model.Stock),
		store:  series.NewStore(),
	}
}

// ApplyFilterResult replaces the filtered set wholesale with a filter-query
// response. Instruments no longer present are evicted from the series store;
// every instrument's bars are (re)seeded. Returns the codes added to and
// removed from the set so the UI can mount and dispose chart surfaces.
func (s *State) ApplyFilterResult(stocks []model.Stock) (added, removed []string) {
	next := make(map[string]model.Stock, len(stocks))
	for _, st := range stocks {
		next[st.Code] = st
	}

	for code := range s.stocks {
		if _, ok := next[code]; !ok {
			s.store.Drop(code)
			removed = append(removed, code)
		}
	}
	for code, st := range next {
		if _, ok := s.stocks[code]; !ok {
			added = append(added, code)
		}
		s.seedBars(code, st.KLines)
	}

	s.stocks = next
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// ApplyBatch reconciles one broadcast batch into the filtered set and feeds
// the changed instruments' bars into the series store. Returns the codes
// whose state changed, sorted.
func (s *State) ApplyBatch(batch []model.StockUpdate) []string {
	changed := reconcile.Changed(s.stocks, batch)
	s.stocks = reconcile.Merge(s.stocks, batch)

	for _, code := range changed {
		s.seedBars(code, s.stocks[code].KLines)
	}
	sort.Strings(changed)
	return changed
}

// seedBars upserts a bar sequence, counting outcomes. Invalid bars are
// rejected at the store boundary and simply skipped.
func (s *State) seedBars(code string, bars []model.KLine) {
	for _, bar := range bars {
		if err := s.store.UpsertBar(code, bar); err != nil {
			if s.OnBarRejected != nil {
				s.OnBarRejected()
			}
			continue
		}
		if s.OnBarUpserted != nil {
			s.OnBarUpserted()
		}
	}
}

// Stocks returns the filtered set as a code-sorted slice for rendering.
func (s *State) Stocks() []model.Stock {
	out := make([]model.Stock, 0, len(s.stocks))
	for _, st := range s.stocks {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Stock returns one instrument by code.
func (s *State) Stock(code string) (model.Stock, bool) {
	st, ok := s.stocks[code]
	return st, ok
}

// Series returns the ordered bar sequence for one instrument.
func (s *State) Series(code string) []model.KLine {
	return s.store.Series(code)
}

// Len returns the size of the filtered set.
func (s *State) Len() int {
	return len(s.stocks)
}
