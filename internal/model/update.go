package model

import (
	"encoding/json"
	"fmt"
)

// StockUpdate is one partial-instrument record from a push-channel broadcast.
// The broadcast carries only price, change and the bar sequence; name and
// market cap are never on the wire and must be preserved from local state.
type StockUpdate struct {
	Code   string  `json:"code"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
	KLines []KLine `json:"k_lines"`
}

// DecodeBroadcast parses a push-channel payload into update records.
// Records that fail to decode or lack a code are dropped individually and
// counted; the whole payload is rejected only when it is not a JSON array.
func DecodeBroadcast(payload []byte) (updates []StockUpdate, dropped int, err error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(payload, &raws); err != nil {
		return nil, 0, fmt.Errorf("decode broadcast: %w", err)
	}

	updates = make([]StockUpdate, 0, len(raws))
	for _, raw := range raws {
		var u StockUpdate
		if err := json.Unmarshal(raw, &u); err != nil || u.Code == "" {
			dropped++
			continue
		}
		updates = append(updates, u)
	}
	return updates, dropped, nil
}
