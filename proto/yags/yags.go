// ═══════════════════════════════════════════════════════════════════════════════════════════════
// YAGS-style Exception Predictor
// ═══════════════════════════════════════════════════════════════════════════════════════════════
//
// OVERVIEW:
// ─────────
// A coarse choice table supplies a default direction. Two small set-associative
// caches record the branches that keep disagreeing with that default:
//
//   NotTaken exceptions: consulted when the choice says TAKEN
//   Taken exceptions:    consulted when the choice says NOT TAKEN
//
//   choice = Choice[(pc ^ history) & choiceMask]
//
//   choice taken?  ──yes──► search NotTaken[set(pc)] for tag == pc
//                  ──no───► search Taken[set(pc)]    for tag == pc
//
//   hit  → predict from the exception entry's counter
//   miss → predict the choice
//
// The exception caches cost far less than a full per-PC table while catching
// the minority of branches whose behaviour diverges from the default.
//
// CACHE GEOMETRY:
//   2^SetBits sets × 2 ways per cache. Entry = {Tag (PC), Counter (2 bits), Valid}.
//   One LRU bit per set names the way to evict next. A trained hit or an
//   install points it away from the way just written.
//
//   set(pc) = pc & (2^SetBits - 1)
//
// TRAINING:
//   1. Look up the choice and the cache that applies to it.
//   2. Outcome agrees with the choice: leave the cache alone.
//   3. Outcome disagrees, cache hit: move the entry counter toward the
//      outcome, mark it MRU.
//   4. Outcome disagrees, cache miss: evict the LRU way, install {pc, WN},
//      flip the LRU bit.
//   5. Always move the choice counter toward the outcome.
//   6. Shift the outcome into the global history.
//
// INVARIANT:
//   At most one valid way per set holds a given tag. Installs only happen on
//   a miss, so a tag can never be installed twice into the same set.
//
// ═══════════════════════════════════════════════════════════════════════════════════════════════

package yags

import (
	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/internal/logger"
	"github.com/maemowong/bpsim/proto/counter"
)

const (
	CounterWidth = 2
	ChoiceSeed   = counter.WN
	EntrySeed    = counter.WN

	// Ways is the associativity of each exception cache.
	Ways = 2

	// TagBits is the width of a stored tag. The whole PC is the tag.
	TagBits = 32

	DefaultChoiceBits = 12
	DefaultSetBits    = 8

	MaxTableBits = 24
)

// InvalidWidth is returned by Config.Validate.
const InvalidWidth = "yags: %s out of range: %d"

// Config sizes the predictor. The choice table index is also the global
// history width.
type Config struct {
	ChoiceBits uint
	SetBits    uint
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		ChoiceBits: DefaultChoiceBits,
		SetBits:    DefaultSetBits,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ChoiceBits < 1 || c.ChoiceBits > MaxTableBits {
		return curated.Errorf(InvalidWidth, "choice bits", c.ChoiceBits)
	}
	if c.SetBits < 1 || c.SetBits > MaxTableBits {
		return curated.Errorf(InvalidWidth, "set bits", c.SetBits)
	}
	return nil
}

// StorageBits returns the number of state bits the configuration needs:
// choice table, two caches of (valid + tag + counter) entries, LRU bits and
// the history register.
func (c Config) StorageBits() int {
	sets := 1 << c.SetBits
	entry := 1 + TagBits + CounterWidth
	return (1<<c.ChoiceBits)*CounterWidth +
		2*sets*(Ways*entry+1) +
		int(c.ChoiceBits)
}

// Entry is one way of an exception cache set.
type Entry struct {
	Tag     uint32
	Counter uint8
	Valid   bool
}

// Set is one set of an exception cache.
type Set struct {
	Ways [Ways]Entry

	// LRU is the way that will be evicted on the next install
	LRU uint8
}

// Cache is one exception table.
type Cache []Set

// find returns the way holding tag, or -1.
func (s *Set) find(tag uint32) int {
	for w := range s.Ways {
		if s.Ways[w].Valid && s.Ways[w].Tag == tag {
			return w
		}
	}
	return -1
}

// touch marks way as most recently used.
func (s *Set) touch(way int) {
	s.LRU = uint8(way ^ 1)
}

// install evicts the LRU way, fills it with a fresh entry and flips the LRU
// bit. Returns the way that was filled.
func (s *Set) install(tag uint32) int {
	way := int(s.LRU)
	s.Ways[way] = Entry{Tag: tag, Counter: EntrySeed, Valid: true}
	s.LRU ^= 1
	return way
}

// Predictor is a YAGS-style exception predictor. Construct with New.
type Predictor struct {
	Config  Config
	History counter.History
	Choice  []uint8

	Taken    Cache
	NotTaken Cache
}

// New allocates and seeds a predictor. The configuration must be valid.
func New(cfg Config) *Predictor {
	p := &Predictor{
		Config:   cfg,
		Choice:   make([]uint8, 1<<cfg.ChoiceBits),
		Taken:    make(Cache, 1<<cfg.SetBits),
		NotTaken: make(Cache, 1<<cfg.SetBits),
	}
	p.Reset()
	return p
}

// Reset re-seeds the choice table and empties both caches.
func (p *Predictor) Reset() {
	counter.Fill(p.Choice, ChoiceSeed)
	for i := range p.Taken {
		p.Taken[i] = Set{}
		p.NotTaken[i] = Set{}
	}
	p.History = 0
}

type lookup struct {
	choice      uint32
	choiceTaken bool
	cache       Cache
	set         uint32
}

// lookup is shared by Predict and Train.
func (p *Predictor) lookup(pc uint32) lookup {
	var l lookup
	l.choice = (pc ^ p.History.Bits(p.Config.ChoiceBits)) & counter.Mask(p.Config.ChoiceBits)
	l.choiceTaken = counter.Taken(p.Choice[l.choice], CounterWidth)
	if l.choiceTaken {
		l.cache = p.NotTaken
	} else {
		l.cache = p.Taken
	}
	l.set = pc & counter.Mask(p.Config.SetBits)
	return l
}

// Predict returns the direction for the branch at pc.
func (p *Predictor) Predict(pc, _ uint32) bool {
	l := p.lookup(pc)

	set := &l.cache[l.set]
	if set.LRU >= Ways {
		logger.Logf(logger.Allow, "yags", "undefined LRU state in set %d: %d", l.set, set.LRU)
		return false
	}

	if way := set.find(pc); way >= 0 {
		v := set.Ways[way].Counter
		if !counter.Valid(v, CounterWidth) {
			logger.Logf(logger.Allow, "yags", "undefined state of exception entry: %03b => %d", v, v)
			return false
		}
		return counter.Taken(v, CounterWidth)
	}

	return l.choiceTaken
}

// Train updates the exception cache that applies to the current choice when
// the outcome disagrees with it, then the choice table, then the history
// register.
func (p *Predictor) Train(pc, _ uint32, taken bool) {
	l := p.lookup(pc)
	set := &l.cache[l.set]

	if set.LRU >= Ways {
		logger.Logf(logger.Allow, "yags", "undefined LRU state in set %d: %d", l.set, set.LRU)
		set.LRU = 0
	}

	if taken != l.choiceTaken {
		if way := set.find(pc); way >= 0 {
			e := &set.Ways[way]
			e.Counter = counter.Update(e.Counter, CounterWidth, taken)
			set.touch(way)
		} else {
			set.install(pc)
		}
	}

	p.Choice[l.choice] = counter.Update(p.Choice[l.choice], CounterWidth, taken)
	p.History = p.History.Shift(taken)
}

// StorageBits returns the number of state bits used by the predictor.
func (p *Predictor) StorageBits() int {
	return p.Config.StorageBits()
}
