// ═══════════════════════════════════════════════════════════════════════════
// Bimodal Branch Predictor
// ═══════════════════════════════════════════════════════════════════════════
//
// One 2-bit counter per decision point, chosen by the branch address alone:
//
//   0 = "always not taken"     2 = "usually taken"
//   1 = "usually not taken"    3 = "always taken"
//
// Each taken outcome adds 1, each not-taken outcome subtracts 1, clamped at
// both ends. No history is kept, so the predictor learns per-branch bias but
// never correlation. It is the baseline the history-based designs are
// measured against.
//
// Counters are packed four to a byte, exactly as they would sit in SRAM.
//
// ═══════════════════════════════════════════════════════════════════════════

package bimodal

import (
	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/proto/counter"
)

const (
	DefaultIndexBits = 14
	MaxIndexBits     = 24
)

// InvalidIndexBits is returned by Config.Validate.
const InvalidIndexBits = "bimodal: index bits out of range: %d"

type Config struct {
	IndexBits uint
}

func DefaultConfig() Config {
	return Config{IndexBits: DefaultIndexBits}
}

func (c Config) Validate() error {
	if c.IndexBits < 1 || c.IndexBits > MaxIndexBits {
		return curated.Errorf(InvalidIndexBits, c.IndexBits)
	}
	return nil
}

func (c Config) StorageBits() int {
	return (1 << c.IndexBits) * 2
}

type Predictor struct {
	Config Config

	// 2-bit counters, four per byte
	Counters []uint8
}

func New(cfg Config) *Predictor {
	n := (1 << cfg.IndexBits) / 4
	if n == 0 {
		n = 1
	}
	p := &Predictor{
		Config:   cfg,
		Counters: make([]uint8, n),
	}
	p.Reset()
	return p
}

// Reset starts every counter at 1 (weakly predict not taken).
// 0b01010101 sets all four counters in a byte to 1.
func (p *Predictor) Reset() {
	counter.Fill(p.Counters, 0x55)
}

// Drop the alignment bit, keep IndexBits of the address.
func (p *Predictor) index(pc uint32) (byteIdx uint32, shift uint) {
	idx := (pc >> 1) & counter.Mask(p.Config.IndexBits)
	return idx >> 2, uint(idx&3) << 1
}

// Counter returns the 2-bit counter for pc.
func (p *Predictor) Counter(pc uint32) uint8 {
	byteIdx, shift := p.index(pc)
	return (p.Counters[byteIdx] >> shift) & 0x3
}

func (p *Predictor) Predict(pc, _ uint32) bool {
	return counter.Taken(p.Counter(pc), 2)
}

func (p *Predictor) Train(pc, _ uint32, taken bool) {
	byteIdx, shift := p.index(pc)
	mask := uint8(0x3 << shift)

	next := counter.Update(p.Counter(pc), 2, taken)

	// write the new counter back without disturbing its neighbours
	p.Counters[byteIdx] = (p.Counters[byteIdx] &^ mask) | (next << shift)
}

func (p *Predictor) StorageBits() int {
	return p.Config.StorageBits()
}
