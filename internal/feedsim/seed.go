package feedsim

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// InstrumentMeta is one row of instrument metadata loaded from the seed
// database, keyed by stock code.
type InstrumentMeta struct {
	Name      string
	MarketCap float64
}

// LoadInstrumentMeta reads the instruments table from a SQLite seed database.
// The table is optional infrastructure; callers treat a missing file or table
// as "run with generated names".
func LoadInstrumentMeta(dbPath string) (map[string]InstrumentMeta, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open seed: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.Query(`SELECT code, name, market_cap FROM instruments`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query instruments: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]InstrumentMeta)
	for rows.Next() {
		var code, name string
		var mcap float64
		if err := rows.Scan(&code, &name, &mcap); err != nil {
			return nil, fmt.Errorf("sqlite scan instruments: %w", err)
		}
		meta[code] = InstrumentMeta{Name: name, MarketCap: mcap}
	}
	return meta, rows.Err()
}
