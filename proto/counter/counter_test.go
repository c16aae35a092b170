package counter

import (
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// 1. SATURATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func TestCounter_IncrementSaturates(t *testing.T) {
	// WHAT: Repeated increments never exceed 2^w - 1
	// WHY: Wrapping from strongly taken to strongly not taken would be a
	//      catastrophic misprediction on every loop exit

	for width := uint(1); width <= MaxWidth; width++ {
		var v uint8
		for i := 0; i < 300; i++ {
			v = Inc(v, width)
			if v > Max(width) {
				t.Fatalf("width %d: counter %d exceeds max %d", width, v, Max(width))
			}
		}
		if v != Max(width) {
			t.Errorf("width %d: counter = %d after 300 increments, want %d", width, v, Max(width))
		}
	}
}

func TestCounter_DecrementSaturates(t *testing.T) {
	for width := uint(1); width <= MaxWidth; width++ {
		v := Max(width)
		for i := 0; i < 300; i++ {
			v = Dec(v, width)
		}
		if v != 0 {
			t.Errorf("width %d: counter = %d after 300 decrements, want 0", width, v)
		}
	}
}

func TestCounter_AllTransitions2Bit(t *testing.T) {
	tests := []struct {
		from  uint8
		taken bool
		want  uint8
	}{
		{SN, false, SN},
		{SN, true, WN},
		{WN, false, SN},
		{WN, true, WT},
		{WT, false, WN},
		{WT, true, ST},
		{ST, false, WT},
		{ST, true, ST},
	}

	for _, tc := range tests {
		if got := Update(tc.from, 2, tc.taken); got != tc.want {
			t.Errorf("Update(%d, taken=%v) = %d, want %d", tc.from, tc.taken, got, tc.want)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// 2. THRESHOLD TESTS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func TestCounter_ThresholdHalves(t *testing.T) {
	// WHAT: Upper half predicts taken for every width
	// WHY: 3-bit local counters use the same halves rule as 2-bit counters

	for width := uint(1); width <= MaxWidth; width++ {
		for v := 0; v <= int(Max(width)); v++ {
			want := v >= 1<<(width-1)
			if got := Taken(uint8(v), width); got != want {
				t.Errorf("width %d: Taken(%d) = %v, want %v", width, v, got, want)
			}
		}
	}
}

func TestCounter_Valid(t *testing.T) {
	if !Valid(3, 2) {
		t.Error("3 should be valid for a 2-bit counter")
	}
	if Valid(4, 2) {
		t.Error("4 should be invalid for a 2-bit counter")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// 3. HISTORY TESTS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func TestHistory_Shift(t *testing.T) {
	// WHAT: After a shift the register equals (old << 1) | outcome
	// WHY: Index computation depends on exact bit placement

	h := History(0b1011)
	if got := h.Shift(true); got != 0b10111 {
		t.Errorf("Shift(true) = %b, want 10111", got)
	}
	if got := h.Shift(false); got != 0b10110 {
		t.Errorf("Shift(false) = %b, want 10110", got)
	}
}

func TestHistory_BitsMasks(t *testing.T) {
	h := History(0xFFFF_FFFF_FFFF)
	for n := uint(0); n <= 32; n++ {
		if got := h.Bits(n); got != Mask(n) {
			t.Errorf("Bits(%d) = %x, want %x", n, got, Mask(n))
		}
	}
}

func TestLocalHistory_ShiftIsPerEntry(t *testing.T) {
	l := NewLocalHistory(4)
	l.Shift(3, true)
	l.Shift(3, true)
	l.Shift(5, false)

	if got := l.Get(3, 10); got != 0b11 {
		t.Errorf("entry 3 = %b, want 11", got)
	}
	if got := l.Get(5, 10); got != 0 {
		t.Errorf("entry 5 = %b, want 0", got)
	}
	if got := l.Get(4, 10); got != 0 {
		t.Errorf("entry 4 touched by neighbour: %b", got)
	}

	l.Clear()
	if l.Get(3, 10) != 0 {
		t.Error("Clear() left history behind")
	}
}

func TestLocalHistory_GetMasks(t *testing.T) {
	l := NewLocalHistory(1)
	for i := 0; i < 16; i++ {
		l.Shift(0, true)
	}
	if got := l.Get(0, 10); got != 0x3FF {
		t.Errorf("Get(0, 10) = %x, want 3ff", got)
	}
}
