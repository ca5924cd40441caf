package series

import (
	"errors"
	"testing"

	"stocktail/internal/model"
)

// bar builds a valid test bar with the given date and close.
func bar(date string, close_ float64) model.KLine {
	return model.KLine{
		Date:   date,
		Open:   close_ - 0.5,
		High:   close_ + 1,
		Low:    close_ - 1,
		Close:  close_,
		Volume: 1000,
	}
}

func TestUpsertBar_OutOfOrderWithReplace(t *testing.T) {
	// Out-of-order arrival with a replacing re-send: keys arrive as 02, 01,
	// 02 and the final sequence must be [01, 02] with the last 02 winning.
	s := NewStore()

	if err := s.UpsertBar("AAA", bar("2024-01-02", 10)); err != nil {
		t.Fatalf("upsert 1: %v", err)
	}
	if err := s.UpsertBar("AAA", bar("2024-01-01", 9)); err != nil {
		t.Fatalf("upsert 2: %v", err)
	}
	if err := s.UpsertBar("AAA", bar("2024-01-02", 11)); err != nil {
		t.Fatalf("upsert 3: %v", err)
	}

	seq := s.Series("AAA")
	if len(seq) != 2 {
		t.Fatalf("len = %d, want 2", len(seq))
	}
	if seq[0].Date != "2024-01-01" || seq[1].Date != "2024-01-02" {
		t.Errorf("order = [%s, %s]", seq[0].Date, seq[1].Date)
	}
	if seq[1].Close != 11 {
		t.Errorf("replaced bar close = %.2f, want 11 (last call wins)", seq[1].Close)
	}
}

func TestUpsertBar_KeyUniqueness(t *testing.T) {
	s := NewStore()
	keys := []string{"2024-01-03", "2024-01-01", "2024-01-02", "2024-01-01", "2024-01-03", "2024-01-02"}
	for i, k := range keys {
		if err := s.UpsertBar("AAA", bar(k, float64(10+i))); err != nil {
			t.Fatalf("upsert %q: %v", k, err)
		}
	}

	seq := s.Series("AAA")
	if len(seq) != 3 {
		t.Fatalf("len = %d, want 3 distinct keys", len(seq))
	}
	for i := 1; i < len(seq); i++ {
		if seq[i-1].Date >= seq[i].Date {
			t.Errorf("sequence not strictly ascending: %s >= %s", seq[i-1].Date, seq[i].Date)
		}
	}
	// "2024-01-02" last written at i=5 with close 15.
	if seq[1].Close != 15 {
		t.Errorf("2024-01-02 close = %.2f, want 15", seq[1].Close)
	}
}

func TestUpsertBar_RejectsInvalid(t *testing.T) {
	s := NewStore()

	invalid := model.KLine{Date: "2024-01-02", High: 11, Low: 9} // missing open/close
	err := s.UpsertBar("AAA", invalid)
	if err == nil {
		t.Fatal("expected rejection of partial bar")
	}
	if !errors.Is(err, model.ErrInvalidBar) {
		t.Errorf("error = %v, want ErrInvalidBar", err)
	}
	if s.Len("AAA") != 0 {
		t.Errorf("rejected bar was stored (len=%d)", s.Len("AAA"))
	}
}

func TestSeries_ReturnsCopy(t *testing.T) {
	s := NewStore()
	s.UpsertBar("AAA", bar("2024-01-01", 10))

	got := s.Series("AAA")
	got[0].Close = 999

	if fresh := s.Series("AAA"); fresh[0].Close != 10 {
		t.Errorf("caller mutation leaked into the store: close = %.2f", fresh[0].Close)
	}
}

func TestDrop(t *testing.T) {
	s := NewStore()
	s.UpsertBar("AAA", bar("2024-01-01", 10))
	s.UpsertBar("BBB", bar("2024-01-01", 20))

	s.Drop("AAA")

	if s.Series("AAA") != nil {
		t.Error("dropped instrument still has a series")
	}
	if s.Len("BBB") != 1 {
		t.Error("sibling instrument affected by Drop")
	}
}

func TestIsolationBetweenInstruments(t *testing.T) {
	s := NewStore()
	s.UpsertBar("AAA", bar("2024-01-01", 10))
	s.UpsertBar("BBB", bar("2024-01-02", 20))

	if s.Len("AAA") != 1 || s.Len("BBB") != 1 {
		t.Errorf("lens = %d/%d, want 1/1", s.Len("AAA"), s.Len("BBB"))
	}
	if s.Series("AAA")[0].Date != "2024-01-01" {
		t.Error("AAA sequence polluted by BBB upsert")
	}
}
