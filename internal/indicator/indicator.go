// Package indicator provides moving-average calculations over closing prices.
//
// All indicators implement the Indicator interface, receiving closes and
// producing float64 values.
package indicator

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_5").
	Name() string

	// Update feeds a new closing price and recalculates.
	Update(close float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Peek computes what Value() would be if this close were added next,
	// WITHOUT mutating internal state. Used for the still-forming bar.
	Peek(close float64) float64
}
