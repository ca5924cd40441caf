// Package reconcile merges full-universe broadcast batches into the client's
// filtered instrument set. Membership never changes here: broadcasts may only
// update instruments the last filter query admitted, and only the fields the
// broadcast actually carries.
package reconcile

import "stocktail/internal/model"

// Merge applies a broadcast batch to the current filtered set and returns a
// new map. For each record whose code is present in current, price, change
// and the bar sequence are taken from the record; name and market cap are
// carried over unchanged (the broadcast does not include them). Records for
// unknown codes are discarded. When a code appears more than once, the last
// occurrence wins.
//
// Merge is pure: it never mutates current or batch, and the same inputs
// always produce the same output.
func Merge(current map[string]model.Stock, batch []model.StockUpdate) map[string]model.Stock {
	next := make(map[string]model.Stock, len(current))
	for code, s := range current {
		next[code] = s
	}

	for _, u := range batch {
		existing, ok := next[u.Code]
		if !ok {
			// Growth happens only through explicit filter queries.
			continue
		}
		existing.Price = u.Price
		existing.Change = u.Change
		existing.KLines = u.KLines
		next[u.Code] = existing
	}
	return next
}

// Changed returns the codes in batch that are members of current, i.e. the
// instruments Merge would touch. Order follows the batch, duplicates removed.
func Changed(current map[string]model.Stock, batch []model.StockUpdate) []string {
	seen := make(map[string]bool, len(batch))
	var codes []string
	for _, u := range batch {
		if _, ok := current[u.Code]; !ok || seen[u.Code] {
			continue
		}
		seen[u.Code] = true
		codes = append(codes, u.Code)
	}
	return codes
}
