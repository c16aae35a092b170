// ═══════════════════════════════════════════════════════════════════════════════════════════════
// Saturating counters and history registers
// ═══════════════════════════════════════════════════════════════════════════════════════════════
//
// Every predictor table entry in this module is a small unsigned counter that
// clamps at 0 and at 2^width-1 instead of wrapping. The upper half of the range
// predicts taken, the lower half predicts not taken.
//
//   2-bit counter:   0 SN   1 WN   |   2 WT   3 ST
//   3-bit counter:   0 .. 3        |   4 .. 7
//
// Chooser tables reuse the same 2-bit counter with a different reading:
//
//   0 SL   1 WL   |   2 WG   3 SG      (L = favour local, G = favour global)
//
// History registers are plain shift registers. The register may grow beyond
// the width any reader cares about; readers always mask with Bits().
//
// ═══════════════════════════════════════════════════════════════════════════════════════════════

package counter

// 2-bit direction counter states.
const (
	SN uint8 = 0 // Strongly not taken
	WN uint8 = 1 // Weakly not taken
	WT uint8 = 2 // Weakly taken
	ST uint8 = 3 // Strongly taken
)

// 2-bit chooser states.
const (
	SL uint8 = 0 // Strongly favour local
	WL uint8 = 1 // Weakly favour local
	WG uint8 = 2 // Weakly favour global
	SG uint8 = 3 // Strongly favour global
)

// MaxWidth is the widest counter representable in a uint8.
const MaxWidth = 8

// Max returns the saturation value for a counter of the given width.
func Max(width uint) uint8 {
	return uint8((1 << width) - 1)
}

// Threshold returns the smallest counter value that predicts taken.
func Threshold(width uint) uint8 {
	return uint8(1 << (width - 1))
}

// Inc returns min(v+1, 2^width-1).
func Inc(v uint8, width uint) uint8 {
	if v < Max(width) {
		return v + 1
	}
	return Max(width)
}

// Dec returns max(v-1, 0).
func Dec(v uint8, width uint) uint8 {
	if v > 0 {
		return v - 1
	}
	return 0
}

// Update moves v one step toward the outcome.
func Update(v uint8, width uint, taken bool) uint8 {
	if taken {
		return Inc(v, width)
	}
	return Dec(v, width)
}

// Taken reports whether v sits in the upper half of its range.
func Taken(v uint8, width uint) bool {
	return v >= Threshold(width)
}

// Valid reports whether v lies inside the domain of a width-bit counter.
func Valid(v uint8, width uint) bool {
	return v <= Max(width)
}

// Fill seeds every entry of a table with the same value.
func Fill(table []uint8, seed uint8) {
	for i := range table {
		table[i] = seed
	}
}

// ───────────────────────────────────────────────────────────────────────────────────────────────
// History registers
// ───────────────────────────────────────────────────────────────────────────────────────────────

// History is a branch outcome shift register. The most recent outcome is bit 0.
type History uint64

// Shift returns (h << 1) | outcome.
func (h History) Shift(taken bool) History {
	return (h << 1) | History(Bit(taken))
}

// Bits returns the low n bits of the register.
func (h History) Bits(n uint) uint32 {
	return uint32(uint64(h) & ((1 << n) - 1))
}

// Mask returns 2^n - 1.
func Mask(n uint) uint32 {
	return uint32((uint64(1) << n) - 1)
}

// Bit converts an outcome to 0 or 1.
func Bit(taken bool) uint32 {
	if taken {
		return 1
	}
	return 0
}

// LocalHistory is a table of per-branch history registers, one entry for
// every index in range.
type LocalHistory []uint16

// NewLocalHistory allocates a table of 2^indexBits registers.
func NewLocalHistory(indexBits uint) LocalHistory {
	return make(LocalHistory, 1<<indexBits)
}

// Get returns the register at idx masked to width bits.
func (l LocalHistory) Get(idx uint32, width uint) uint32 {
	return uint32(l[idx]) & Mask(width)
}

// Shift shifts the outcome into the register at idx.
func (l LocalHistory) Shift(idx uint32, taken bool) {
	l[idx] = (l[idx] << 1) | uint16(Bit(taken))
}

// Clear resets every register to zero.
func (l LocalHistory) Clear() {
	for i := range l {
		l[i] = 0
	}
}
