package model

// Stock represents one tradable equity: identity, display fields and its
// recent bar history. Code is globally unique and immutable once created.
type Stock struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`     // percent
	MarketCap float64 `json:"market_cap"` // hundred-million units
	KLines    []KLine `json:"k_lines"`
}

// StockFilter bounds the visible universe by market capitalization.
// A zero bound means "no bound on that side".
type StockFilter struct {
	MinMarketCap float64
	MaxMarketCap float64
}

// Matches reports whether the stock satisfies the filter.
func (f StockFilter) Matches(s Stock) bool {
	if f.MinMarketCap > 0 && s.MarketCap < f.MinMarketCap {
		return false
	}
	if f.MaxMarketCap > 0 && s.MarketCap > f.MaxMarketCap {
		return false
	}
	return true
}
