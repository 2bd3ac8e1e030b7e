package bitset

import "testing"

func TestBitSet(t *testing.T) {
	bs := New(4)
	for _, n := range []int{0, 3, 63, 64, 200} {
		bs.Add(n)
	}
	for _, n := range []int{0, 3, 63, 64, 200} {
		if !bs.Has(n) {
			t.Errorf("expected %d to be set", n)
		}
	}
	if bs.Has(1) || bs.Has(65) || bs.Has(1000) || bs.Has(-1) {
		t.Error("unexpected member")
	}
	if bs.Len() != 5 {
		t.Errorf("Len = %d, want 5", bs.Len())
	}

	bs.Add(3)
	if bs.Len() != 5 {
		t.Errorf("re-adding changed Len to %d", bs.Len())
	}
}
