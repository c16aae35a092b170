// ═══════════════════════════════════════════════════════════════════════════════════════════════
// Skewed Majority-Vote Branch Predictor
// ═══════════════════════════════════════════════════════════════════════════════════════════════
//
// OVERVIEW:
// ─────────
// Three tables of 2^n two-bit counters, each indexed by a different hash of the
// same branch address. Two branches that collide in one table almost never
// collide in the other two, so a majority vote out-votes the aliased table.
//
// SKEWING FUNCTIONS:
// ──────────────────
// The low 2n bits of the PC are split into two n-bit halves A1 (low) and A2
// (high). H is a reversible one-bit rotation that shifts right by one and
// rotates in the XOR of the LSB and MSB:
//
//   H(y[n-1..0])    = (y[n-1] ^ y[0], y[n-1], y[n-2], ..., y[1])
//   HInv(y[n-1..0]) = (y[n-2], ..., y[0], y[n-1] ^ y[n-2])
//
// The three table indices are:
//
//   f0 = H(A1)    ^ HInv(A2) ^ A2
//   f1 = H(A1)    ^ HInv(A2) ^ A1
//   f2 = HInv(A1) ^ H(A2)    ^ A2
//
// For any fixed A2 each f is a bijection of A1, so the tables never alias two
// PCs that share high bits. Aliasing only comes from A2 and it lands on a
// different entry in each table.
//
// PREDICTION:
//   Each table votes +1 (taken) or -1 (not taken). Net votes > 0 predicts taken;
//   0 or less predicts not taken.
//
// TRAINING (asymmetric):
//   Majority wrong → every counter moves toward the outcome.
//   Majority right → only the counters that individually agreed move (they are
//                    strengthened). Dissenting counters are left alone so a
//                    minority table keeps whatever signal it has for another
//                    branch aliased onto that entry.
//
// ═══════════════════════════════════════════════════════════════════════════════════════════════

package skew

import (
	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/internal/logger"
	"github.com/maemowong/bpsim/proto/counter"
)

const (
	CounterWidth = 2
	Seed         = counter.WN

	// NumTables is the number of voting tables.
	NumTables = 3

	DefaultIndexBits = 12

	// MinIndexBits is the narrowest width HInv is defined for.
	MinIndexBits = 2

	// MaxIndexBits keeps both halves inside a 32-bit PC.
	MaxIndexBits = 16
)

// InvalidIndexBits is returned by Config.Validate.
const InvalidIndexBits = "skew: index bits out of range: %d"

type Config struct {
	IndexBits uint
}

func DefaultConfig() Config {
	return Config{IndexBits: DefaultIndexBits}
}

func (c Config) Validate() error {
	if c.IndexBits < MinIndexBits || c.IndexBits > MaxIndexBits {
		return curated.Errorf(InvalidIndexBits, c.IndexBits)
	}
	return nil
}

func (c Config) StorageBits() int {
	return NumTables * (1 << c.IndexBits) * CounterWidth
}

// Predictor is a skewed majority-vote predictor. Construct with New.
type Predictor struct {
	Config Config
	Tables [NumTables][]uint8
}

func New(cfg Config) *Predictor {
	p := &Predictor{Config: cfg}
	for t := range p.Tables {
		p.Tables[t] = make([]uint8, 1<<cfg.IndexBits)
	}
	p.Reset()
	return p
}

func (p *Predictor) Reset() {
	for t := range p.Tables {
		counter.Fill(p.Tables[t], Seed)
	}
}

// H rotates y right by one within n bits, shifting in y[n-1] ^ y[0].
func H(y uint32, n uint) uint32 {
	msb := (y >> (n - 1)) & 1
	lsb := y & 1
	return ((y >> 1) | (msb^lsb)<<(n-1)) & counter.Mask(n)
}

// HInv is the inverse of H.
func HInv(y uint32, n uint) uint32 {
	msb := (y >> (n - 1)) & 1
	next := (y >> (n - 2)) & 1
	return ((y << 1) | (msb ^ next)) & counter.Mask(n)
}

// indices computes f0, f1 and f2 for pc.
func (p *Predictor) indices(pc uint32) [NumTables]uint32 {
	n := p.Config.IndexBits
	mask := counter.Mask(n)
	a1 := pc & mask
	a2 := (pc >> n) & mask

	return [NumTables]uint32{
		H(a1, n) ^ HInv(a2, n) ^ a2,
		H(a1, n) ^ HInv(a2, n) ^ a1,
		HInv(a1, n) ^ H(a2, n) ^ a2,
	}
}

// vote reads the three counters and returns the individual predictions and
// the majority. ok is false if any counter is outside its domain.
func (p *Predictor) vote(ix [NumTables]uint32) (votes [NumTables]bool, majority bool, ok bool) {
	net := 0
	for t := range p.Tables {
		v := p.Tables[t][ix[t]]
		if !counter.Valid(v, CounterWidth) {
			logger.Logf(logger.Allow, "skew", "undefined state of entry in table %d: %03b => %d", t, v, v)
			return votes, false, false
		}
		votes[t] = counter.Taken(v, CounterWidth)
		if votes[t] {
			net++
		} else {
			net--
		}
	}
	return votes, net > 0, true
}

func (p *Predictor) Predict(pc, _ uint32) bool {
	_, majority, ok := p.vote(p.indices(pc))
	if !ok {
		return false
	}
	return majority
}

func (p *Predictor) Train(pc, _ uint32, taken bool) {
	ix := p.indices(pc)
	votes, majority, ok := p.vote(ix)
	if !ok {
		return
	}

	for t := range p.Tables {
		if majority != taken || votes[t] == taken {
			p.Tables[t][ix[t]] = counter.Update(p.Tables[t][ix[t]], CounterWidth, taken)
		}
	}
}

func (p *Predictor) StorageBits() int {
	return p.Config.StorageBits()
}
