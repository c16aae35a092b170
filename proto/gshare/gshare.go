// ═══════════════════════════════════════════════════════════════════════════════════════════════
// Gshare Branch Predictor
// ═══════════════════════════════════════════════════════════════════════════════════════════════
//
// OVERVIEW:
// ─────────
// One table of 2^H two-bit saturating counters, indexed by the XOR of the low
// H bits of the branch PC and the low H bits of the global history register.
//
//   index = (pc & mask) ^ (history & mask)        mask = 2^H - 1
//
// XOR-folding PC and history into a single index captures per-branch bias and
// global correlation in one table, without per-branch storage.
//
// STATE:
//   Table:   2^H counters, seeded weakly not taken (1)
//   History: global outcome shift register, starts at 0
//
// STORAGE:
//   2^H × 2 bits + H history bits. The default H = 15 is 64K + 15 bits.
//
// ═══════════════════════════════════════════════════════════════════════════════════════════════

package gshare

import (
	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/internal/logger"
	"github.com/maemowong/bpsim/proto/counter"
)

const (
	// CounterWidth is the width of every table entry.
	CounterWidth = 2

	// Seed is the initial value of every table entry.
	Seed = counter.WN

	// DefaultHistoryBits is the history (and index) width.
	DefaultHistoryBits = 15

	// MaxHistoryBits bounds the table to 16M entries.
	MaxHistoryBits = 24
)

// InvalidHistoryBits is returned by Config.Validate.
const InvalidHistoryBits = "gshare: history bits out of range: %d"

// Config sizes the predictor.
type Config struct {
	HistoryBits uint
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{HistoryBits: DefaultHistoryBits}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.HistoryBits < 1 || c.HistoryBits > MaxHistoryBits {
		return curated.Errorf(InvalidHistoryBits, c.HistoryBits)
	}
	return nil
}

// StorageBits returns the number of state bits the configuration needs.
func (c Config) StorageBits() int {
	return (1<<c.HistoryBits)*CounterWidth + int(c.HistoryBits)
}

// Predictor is a gshare predictor. Construct with New.
type Predictor struct {
	Config  Config
	Table   []uint8
	History counter.History
}

// New allocates and seeds a predictor. The configuration must be valid.
func New(cfg Config) *Predictor {
	p := &Predictor{
		Config: cfg,
		Table:  make([]uint8, 1<<cfg.HistoryBits),
	}
	p.Reset()
	return p
}

// Reset re-seeds the table and clears the history register.
func (p *Predictor) Reset() {
	counter.Fill(p.Table, Seed)
	p.History = 0
}

// index is shared by Predict and Train so the two can never disagree.
func (p *Predictor) index(pc uint32) uint32 {
	mask := counter.Mask(p.Config.HistoryBits)
	return (pc & mask) ^ (p.History.Bits(p.Config.HistoryBits) & mask)
}

// Predict returns the direction for the branch at pc.
func (p *Predictor) Predict(pc, _ uint32) bool {
	v := p.Table[p.index(pc)]
	if !counter.Valid(v, CounterWidth) {
		logger.Logf(logger.Allow, "gshare", "undefined state of entry in table: %03b => %d", v, v)
		return false
	}
	return counter.Taken(v, CounterWidth)
}

// Train moves the indexed counter toward the outcome then shifts the outcome
// into the history register.
func (p *Predictor) Train(pc, _ uint32, taken bool) {
	idx := p.index(pc)
	v := p.Table[idx]
	if !counter.Valid(v, CounterWidth) {
		logger.Logf(logger.Allow, "gshare", "undefined state of entry in table: %03b => %d", v, v)
	} else {
		p.Table[idx] = counter.Update(v, CounterWidth, taken)
	}
	p.History = p.History.Shift(taken)
}

// StorageBits returns the number of state bits used by the predictor.
func (p *Predictor) StorageBits() int {
	return p.Config.StorageBits()
}
