// Package series holds per-instrument ordered bar sequences for the chart
// pipeline. Bars are keyed by date; the stored sequence stays strictly
// ascending with unique keys no matter the arrival order.
package series

import (
	"sort"

	"stocktail/internal/model"
)

// Store maps instrument codes to their ordered bar sequences.
// Owned by the controller goroutine — not safe for concurrent use.
type Store struct {
	seqs map[string][]model.KLine
}

// NewStore creates an empty series store.
func NewStore() *Store {
	return &Store{seqs: make(map[string][]model.KLine)}
}

// UpsertBar inserts bar into the instrument's sequence if its date key is
// new, or replaces the bar already stored under that key. Invalid bars
// (missing date, missing OHLC, high < low) are rejected here so the renderer
// never sees them.
func (s *Store) UpsertBar(code string, bar model.KLine) error {
	if err := bar.Validate(); err != nil {
		return err
	}

	seq := s.seqs[code]
	// ISO date strings order lexically, so sort.Search works on the raw key.
	i := sort.Search(len(seq), func(i int) bool { return seq[i].Date >= bar.Date })
	if i < len(seq) && seq[i].Date == bar.Date {
		seq[i] = bar
		return nil
	}

	seq = append(seq, model.KLine{})
	copy(seq[i+1:], seq[i:])
	seq[i] = bar
	s.seqs[code] = seq
	return nil
}

// Series returns a copy of the instrument's ordered sequence for read-only
// consumption. Unknown codes yield nil.
func (s *Store) Series(code string) []model.KLine {
	seq, ok := s.seqs[code]
	if !ok {
		return nil
	}
	out := make([]model.KLine, len(seq))
	copy(out, seq)
	return out
}

// Len returns the number of bars stored for the instrument.
func (s *Store) Len(code string) int {
	return len(s.seqs[code])
}

// Drop removes the instrument's sequence entirely. Used when a filter query
// evicts an instrument from the visible set.
func (s *Store) Drop(code string) {
	delete(s.seqs, code)
}

// Codes returns the instrument codes currently holding bars, in map order.
func (s *Store) Codes() []string {
	codes := make([]string, 0, len(s.seqs))
	for code := range s.seqs {
		codes = append(codes, code)
	}
	return codes
}
