package reconcile

import (
	"reflect"
	"testing"

	"stocktail/internal/model"
)

func startingSet() map[string]model.Stock {
	return map[string]model.Stock{
		"AAA": {Code: "AAA", Name: "Alpha", MarketCap: 120, Price: 10, Change: 1},
		"BBB": {Code: "BBB", Name: "Beta", MarketCap: 80, Price: 20, Change: -1},
	}
}

func TestMerge_UpdatesMembersOnly(t *testing.T) {
	current := startingSet()
	bars := []model.KLine{{Date: "2024-01-02", Open: 10.5, High: 11.2, Low: 10.4, Close: 11, Volume: 5000}}
	batch := []model.StockUpdate{
		{Code: "AAA", Price: 11, Change: 2, KLines: bars},
		{Code: "CCC", Price: 99, Change: 5, KLines: bars},
	}

	got := Merge(current, batch)

	aaa := got["AAA"]
	if aaa.Price != 11 || aaa.Change != 2 {
		t.Errorf("AAA price/change = %.2f/%.2f, want 11/2", aaa.Price, aaa.Change)
	}
	if len(aaa.KLines) != 1 || aaa.KLines[0].Date != "2024-01-02" {
		t.Errorf("AAA bars = %+v", aaa.KLines)
	}
	if bbb := got["BBB"]; bbb.Price != 20 || bbb.Change != -1 {
		t.Errorf("BBB changed without an inbound record: %+v", bbb)
	}
	if _, ok := got["CCC"]; ok {
		t.Error("CCC inserted by stream — membership may only grow via filter queries")
	}
}

func TestMerge_PreservesUnknownFields(t *testing.T) {
	current := startingSet()
	got := Merge(current, []model.StockUpdate{{Code: "AAA", Price: 12, Change: 0.4}})

	aaa := got["AAA"]
	if aaa.Name != "Alpha" {
		t.Errorf("Name = %q, want Alpha", aaa.Name)
	}
	if aaa.MarketCap != 120 {
		t.Errorf("MarketCap = %.0f, want 120", aaa.MarketCap)
	}
}

func TestMerge_EmptyBatchReturnsEqualSet(t *testing.T) {
	current := startingSet()
	got := Merge(current, nil)
	if !reflect.DeepEqual(got, current) {
		t.Errorf("empty batch changed the set: %+v", got)
	}
}

func TestMerge_EmptyCurrentStaysEmpty(t *testing.T) {
	got := Merge(map[string]model.Stock{}, []model.StockUpdate{
		{Code: "AAA", Price: 1},
		{Code: "BBB", Price: 2},
	})
	if len(got) != 0 {
		t.Errorf("empty set grew to %d entries", len(got))
	}
}

func TestMerge_DuplicateCodeLastWins(t *testing.T) {
	got := Merge(startingSet(), []model.StockUpdate{
		{Code: "AAA", Price: 11, Change: 1},
		{Code: "AAA", Price: 12, Change: 2},
	})
	if aaa := got["AAA"]; aaa.Price != 12 || aaa.Change != 2 {
		t.Errorf("AAA = %.2f/%.2f, want last occurrence 12/2", aaa.Price, aaa.Change)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	current := startingSet()
	batch := []model.StockUpdate{{Code: "BBB", Price: 21.5, Change: 0.8}}

	first := Merge(current, batch)
	second := Merge(current, batch)
	if !reflect.DeepEqual(first, second) {
		t.Error("same inputs produced different outputs")
	}

	// Applying the already-applied batch again must also be stable.
	again := Merge(first, batch)
	if !reflect.DeepEqual(first, again) {
		t.Error("re-applying an applied batch changed the set")
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	current := startingSet()
	batch := []model.StockUpdate{{Code: "AAA", Price: 50, Change: 9}}

	Merge(current, batch)

	if current["AAA"].Price != 10 {
		t.Errorf("input set mutated: AAA price = %.2f", current["AAA"].Price)
	}
}

func TestChanged(t *testing.T) {
	current := startingSet()
	batch := []model.StockUpdate{
		{Code: "BBB"},
		{Code: "CCC"}, // not a member
		{Code: "AAA"},
		{Code: "BBB"}, // duplicate
	}

	got := Changed(current, batch)
	want := []string{"BBB", "AAA"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Changed = %v, want %v", got, want)
	}
}
