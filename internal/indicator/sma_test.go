package indicator

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMARollingWindow(t *testing.T) {
	sma := NewSMA(3)

	closes := []float64{10, 11, 12, 13, 14}
	want := []float64{0, 0, 11, 12, 13}

	for i, c := range closes {
		sma.Update(c)
		if got := sma.Value(); !almostEqual(got, want[i]) {
			t.Errorf("after close %v: Value() = %v, want %v", c, got, want[i])
		}
	}
	if !sma.Ready() {
		t.Error("SMA not ready after full window")
	}
	if name := sma.Name(); name != "SMA_3" {
		t.Errorf("Name() = %q", name)
	}
}

func TestSMAPeekDoesNotMutate(t *testing.T) {
	sma := NewSMA(3)
	for _, c := range []float64{10, 11, 12} {
		sma.Update(c)
	}

	got := sma.Peek(15)
	if want := (11.0 + 12.0 + 15.0) / 3.0; !almostEqual(got, want) {
		t.Errorf("Peek(15) = %v, want %v", got, want)
	}
	if v := sma.Value(); !almostEqual(v, 11) {
		t.Errorf("Value() changed by Peek: %v", v)
	}
}

func TestSMAPeekPartialWindow(t *testing.T) {
	sma := NewSMA(5)
	sma.Update(10)

	if got := sma.Peek(12); !almostEqual(got, 11) {
		t.Errorf("partial Peek = %v, want 11", got)
	}
}

func TestSMAReset(t *testing.T) {
	sma := NewSMA(2)
	sma.Update(10)
	sma.Update(20)

	sma.Reset()
	if sma.Ready() || sma.Value() != 0 {
		t.Errorf("Reset left state: ready=%v value=%v", sma.Ready(), sma.Value())
	}
	sma.Update(4)
	sma.Update(6)
	if got := sma.Value(); !almostEqual(got, 5) {
		t.Errorf("Value after reuse = %v, want 5", got)
	}
}

func TestSeries(t *testing.T) {
	closes := []float64{10, 12, 14, 16, 18}
	got := Series(closes, 3)
	want := []float64{10, 11, 12, 14, 16}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("Series[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
