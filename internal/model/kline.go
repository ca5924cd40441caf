package model

import (
	"errors"
	"fmt"
)

// KLine is one time-sampled bar for an instrument. Date is the merge key:
// ISO "2006-01-02", unique and strictly ascending within a series
// (lexical order on this format equals chronological order).
// Moving averages are computed upstream; the client only carries them.
type KLine struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	MA5    float64 `json:"ma5"`
	MA10   float64 `json:"ma10"`
	MA20   float64 `json:"ma20"`
}

// ErrInvalidBar is returned when a bar fails boundary validation.
var ErrInvalidBar = errors.New("invalid bar")

// Validate checks the fields a bar must carry before it may be stored.
// The wire format has no schema, so "missing" OHLC shows up as zero values.
func (k KLine) Validate() error {
	if k.Date == "" {
		return fmt.Errorf("%w: empty date", ErrInvalidBar)
	}
	if k.Open <= 0 || k.High <= 0 || k.Low <= 0 || k.Close <= 0 {
		return fmt.Errorf("%w: non-positive OHLC for %s", ErrInvalidBar, k.Date)
	}
	if k.High < k.Low {
		return fmt.Errorf("%w: high %.4f below low %.4f for %s", ErrInvalidBar, k.High, k.Low, k.Date)
	}
	return nil
}
