// ═══════════════════════════════════════════════════════════════════════════════════════════════
// TAGE Branch Predictor
// ═══════════════════════════════════════════════════════════════════════════════════════════════
//
// OVERVIEW:
// ─────────
// TAGE (TAgged GEometric) keeps a tagless base table plus several tagged tables,
// each indexed by the branch PC hashed with a different length of global
// history. The history lengths grow geometrically:
//
//   Table:    0    1    2    3    4    5    6    7
//   History:  0    4    8   12   16   24   32   64
//
// Short histories capture loop counters and local patterns. Long histories
// capture correlations with branches far in the past. When several tables hit,
// the one with the longest history provides the prediction because it has seen
// the most specific context.
//
// TAGGED ENTRIES:
//   Every entry in tables 1-7 carries a partial tag of the PC. An entry only
//   counts as a hit when its tag matches, which keeps unrelated branches that
//   land on the same index from sharing a counter.
//
// BASE PREDICTOR:
//   Table 0 is untagged and indexed by PC alone. It always provides a
//   prediction, so every branch has a fallback even on first encounter.
//
// ALLOCATION:
//   A misprediction means no existing table had the right context. One new
//   entry is allocated in a table with a longer history than the provider.
//   The victim is chosen across those longer tables at their own index:
//
//     1. an invalid slot
//     2. an entry whose useful bit is clear
//     3. the oldest entry
//
// AGING:
//   Every 2^IndexBits trained branches the age of every valid entry is
//   incremented and useful bits of old entries are cleared, so entries that
//   stopped contributing eventually become replaceable.
//
// SATURATING COUNTERS:
//   3-bit counters (0-7), threshold 4. Updates use hysteresis: a counter that
//   is already saturated in the direction of the outcome moves by 2.
//
// SINGLE STREAM:
//   One predictor serves one instruction stream. Predict is a pure query; all
//   state changes happen in Train.
//
// ═══════════════════════════════════════════════════════════════════════════════════════════════

package tage

import (
	"math/bits"

	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/internal/logger"
	"github.com/maemowong/bpsim/proto/counter"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

const (
	// NumTables: base table plus 7 tagged tables.
	NumTables = 8

	// CounterWidth: 3 bits = values 0-7.
	CounterWidth = 3

	// AgeWidth: 3 bits = 8 age levels.
	AgeWidth = 3

	// MaxCounter: strongly taken.
	MaxCounter = (1 << CounterWidth) - 1 // 7

	// NeutralCounter: decision boundary, also the base table seed.
	NeutralCounter = 1 << (CounterWidth - 1) // 4

	// TakenThreshold: counter >= 4 predicts taken.
	TakenThreshold = NeutralCounter

	// MaxAge: saturation value of the age counter.
	MaxAge = (1 << AgeWidth) - 1 // 7

	// HashPrime: golden ratio prime used to spread history bits.
	HashPrime = 0x9E3779B97F4A7C15

	// AllocOnWeakThreshold/AllocOnStrongMax: a provider whose counter lies in
	// [2,5] after a misprediction was uncertain and triggers allocation.
	AllocOnWeakThreshold = 2
	AllocOnStrongMax     = 5

	// per-entry state bits besides the tag: counter + age + useful + valid
	entryStateBits = CounterWidth + AgeWidth + 1 + 1

	// HistoryRegisterBits: width of the global history register.
	HistoryRegisterBits = 64

	DefaultIndexBits = 9
	DefaultTagBits   = 9

	MaxIndexBits = 20
	MaxTagBits   = 16
)

// HistoryLengths is the geometric progression of history lengths per table.
var HistoryLengths = [NumTables]int{0, 4, 8, 12, 16, 24, 32, 64}

// InvalidWidth is returned by Config.Validate.
const InvalidWidth = "tage: %s out of range: %d"

// Config sizes the predictor.
type Config struct {
	IndexBits uint // entries per table = 2^IndexBits
	TagBits   uint // partial tag width of tables 1-7
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		IndexBits: DefaultIndexBits,
		TagBits:   DefaultTagBits,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.IndexBits < 1 || c.IndexBits > MaxIndexBits {
		return curated.Errorf(InvalidWidth, "index bits", c.IndexBits)
	}
	if c.TagBits < 1 || c.TagBits > MaxTagBits {
		return curated.Errorf(InvalidWidth, "tag bits", c.TagBits)
	}
	return nil
}

// StorageBits returns the number of state bits the configuration needs.
//
//	base:   2^I × 3
//	tagged: 7 × 2^I × (tag + counter + age + useful + valid)
//	history register
func (c Config) StorageBits() int {
	entries := 1 << c.IndexBits
	return entries*CounterWidth +
		(NumTables-1)*entries*(int(c.TagBits)+entryStateBits) +
		HistoryRegisterBits
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// STATE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Entry is one prediction entry of a tagged table.
type Entry struct {
	Tag     uint16 // Partial PC hash
	Counter uint8  // Saturating counter (3 bits used)
	Useful  bool   // Contributed to a correct prediction
	Age     uint8  // Age for replacement (3 bits used)
}

// Table is one tagged table. Valid bits live in a separate bitmap so the whole
// table can be invalidated by clearing a handful of words.
type Table struct {
	Entries    []Entry
	ValidBits  []uint64
	HistoryLen int
}

func (t *Table) valid(idx uint32) bool {
	return (t.ValidBits[idx>>6]>>(idx&63))&1 != 0
}

func (t *Table) setValid(idx uint32) {
	t.ValidBits[idx>>6] |= 1 << (idx & 63)
}

// Predictor is a TAGE predictor. Construct with New.
type Predictor struct {
	Config Config

	// Base is the untagged table 0
	Base []uint8

	// Tables[0] is unused; tagged tables are 1-7
	Tables [NumTables]Table

	History     uint64
	BranchCount uint64

	// AgingEnabled can be cleared by tests that need stable ages
	AgingEnabled bool
}

// New allocates a predictor in its reset state. The configuration must be
// valid.
func New(cfg Config) *Predictor {
	entries := 1 << cfg.IndexBits
	words := (entries + 63) / 64

	p := &Predictor{
		Config:       cfg,
		Base:         make([]uint8, entries),
		AgingEnabled: true,
	}
	for t := 1; t < NumTables; t++ {
		p.Tables[t] = Table{
			Entries:    make([]Entry, entries),
			ValidBits:  make([]uint64, words),
			HistoryLen: HistoryLengths[t],
		}
	}
	p.Reset()
	return p
}

// Reset puts every base counter at neutral, invalidates the tagged tables and
// clears history.
func (p *Predictor) Reset() {
	counter.Fill(p.Base, NeutralCounter)
	for t := 1; t < NumTables; t++ {
		for w := range p.Tables[t].ValidBits {
			p.Tables[t].ValidBits[w] = 0
		}
	}
	p.History = 0
	p.BranchCount = 0
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// HASH FUNCTIONS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// hashIndex computes the table index from PC and history.
//
//  1. Fold the PC onto IndexBits, with a table-specific shift so the same PC
//     lands on different indices in different tables.
//  2. Base table: done.
//  3. Mask history to the table's length, multiply by the golden ratio prime
//     and XOR-fold the product onto IndexBits.
//  4. XOR the two.
func hashIndex(pc uint32, history uint64, historyLen int, tableNum int, indexBits uint) uint32 {
	mask := counter.Mask(indexBits)
	pcBits := (pc ^ (pc >> (indexBits + uint(tableNum)))) & mask

	if historyLen == 0 {
		return pcBits
	}

	h := history
	if historyLen < 64 {
		h &= (uint64(1) << historyLen) - 1
	}
	h *= HashPrime

	histBits := uint32(h^(h>>indexBits)^(h>>(2*indexBits))) & mask
	return (pcBits ^ histBits) & mask
}

// hashTag XORs two slices of the PC above the alignment bits.
func hashTag(pc uint32, tagBits uint) uint16 {
	mask := counter.Mask(tagBits)
	return uint16(((pc >> 2) ^ (pc >> (2 + tagBits))) & mask)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// LOOKUP
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// lookup is the result of searching every table for one branch.
type lookup struct {
	tag      uint16
	indices  [NumTables]uint32
	hits     uint8 // bit i set if tagged table i hit
	provider int   // longest hit, 0 = base
	baseIdx  uint32
}

func (p *Predictor) lookup(pc uint32) lookup {
	var l lookup
	l.tag = hashTag(pc, p.Config.TagBits)
	l.baseIdx = hashIndex(pc, 0, 0, 0, p.Config.IndexBits)

	for i := 1; i < NumTables; i++ {
		table := &p.Tables[i]
		idx := hashIndex(pc, p.History, table.HistoryLen, i, p.Config.IndexBits)
		l.indices[i] = idx

		if table.valid(idx) && table.Entries[idx].Tag == l.tag {
			l.hits |= 1 << uint(i)
		}
	}

	// highest set bit is the longest matching history
	if l.hits != 0 {
		l.provider = 7 - bits.LeadingZeros8(l.hits)
	}
	return l
}

// counterOf returns the provider's counter.
func (p *Predictor) counterOf(l lookup) uint8 {
	if l.provider == 0 {
		return p.Base[l.baseIdx]
	}
	return p.Tables[l.provider].Entries[l.indices[l.provider]].Counter
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PREDICTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Predict returns the direction for the branch at pc.
func (p *Predictor) Predict(pc, _ uint32) bool {
	l := p.lookup(pc)
	v := p.counterOf(l)
	if v > MaxCounter {
		logger.Logf(logger.Allow, "tage", "undefined counter in table %d: %03b => %d", l.provider, v, v)
		return false
	}
	return v >= TakenThreshold
}

// Confidence returns 0 when the base table provides the prediction, 2 when a
// tagged provider is saturated and 1 otherwise.
func (p *Predictor) Confidence(pc uint32) uint8 {
	l := p.lookup(pc)
	if l.provider == 0 {
		return 0
	}
	v := p.counterOf(l)
	if v <= 1 || v >= MaxCounter-1 {
		return 2
	}
	return 1
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// TRAINING
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Train updates the base table and provider, allocates a longer entry on a
// misprediction, then shifts history and ages the tables when due.
func (p *Predictor) Train(pc, _ uint32, taken bool) {
	l := p.lookup(pc)
	v := p.counterOf(l)
	if v > MaxCounter || p.Base[l.baseIdx] > MaxCounter {
		logger.Logf(logger.Allow, "tage", "training skipped for undefined counter in table %d", l.provider)
		p.History = (p.History << 1) | uint64(counter.Bit(taken))
		p.BranchCount++
		return
	}
	predicted := v >= TakenThreshold

	// base table is always trained
	p.Base[l.baseIdx] = updateWithHysteresis(p.Base[l.baseIdx], taken)

	allocate := predicted != taken
	if l.provider > 0 {
		entry := &p.Tables[l.provider].Entries[l.indices[l.provider]]
		entry.Counter = updateWithHysteresis(entry.Counter, taken)
		if predicted == taken {
			entry.Useful = true
			entry.Age = 0
		} else {
			entry.Useful = false
			allocate = shouldAllocate(entry.Counter)
		}
	}

	if allocate && l.provider < NumTables-1 {
		p.allocate(l, taken)
	}

	p.History = (p.History << 1) | uint64(counter.Bit(taken))

	p.BranchCount++
	if p.AgingEnabled && p.BranchCount%uint64(len(p.Base)) == 0 {
		p.AgeAllEntries()
	}
}

// shouldAllocate is true when a mispredicting counter was not saturated.
func shouldAllocate(c uint8) bool {
	return c >= AllocOnWeakThreshold && c <= AllocOnStrongMax
}

// allocate writes one new entry into a table longer than the provider. Each
// candidate is looked at in its own table at the index lookup computed.
func (p *Predictor) allocate(l lookup, taken bool) {
	victim := p.findVictim(l)

	c := uint8(NeutralCounter - 1) // 3 = weak not-taken
	if taken {
		c = NeutralCounter + 1 // 5 = weak taken
	}

	idx := l.indices[victim]
	p.Tables[victim].Entries[idx] = Entry{Tag: l.tag, Counter: c}
	p.Tables[victim].setValid(idx)
}

// findVictim picks an invalid slot, else a non-useful entry, else the oldest
// entry. Ties go to the shorter history.
func (p *Predictor) findVictim(l lookup) int {
	for t := l.provider + 1; t < NumTables; t++ {
		if !p.Tables[t].valid(l.indices[t]) {
			return t
		}
	}
	for t := l.provider + 1; t < NumTables; t++ {
		if !p.Tables[t].Entries[l.indices[t]].Useful {
			return t
		}
	}

	oldest := l.provider + 1
	for t := oldest + 1; t < NumTables; t++ {
		if p.Tables[t].Entries[l.indices[t]].Age > p.Tables[oldest].Entries[l.indices[oldest]].Age {
			oldest = t
		}
	}
	return oldest
}

// updateWithHysteresis moves c toward the outcome, by 2 when c is already
// saturated in that direction, clamped to [0, MaxCounter].
func updateWithHysteresis(c uint8, taken bool) uint8 {
	v := int(c)
	delta := 1
	if (taken && v >= MaxCounter-1) || (!taken && v <= 1) {
		delta = 2
	}
	if taken {
		v += delta
	} else {
		v -= delta
	}
	if v < 0 {
		v = 0
	} else if v > MaxCounter {
		v = MaxCounter
	}
	return uint8(v)
}

// AgeAllEntries increments the age of every valid tagged entry and clears the
// useful bit of entries that have reached half the maximum age.
func (p *Predictor) AgeAllEntries() {
	for t := 1; t < NumTables; t++ {
		table := &p.Tables[t]

		for w, validMask := range table.ValidBits {
			base := w * 64
			for validMask != 0 {
				bitPos := bits.TrailingZeros64(validMask)
				entry := &table.Entries[base+bitPos]

				if entry.Age < MaxAge {
					entry.Age++
				}
				if entry.Age >= MaxAge/2 {
					entry.Useful = false
				}

				validMask &^= 1 << uint(bitPos)
			}
		}
	}
}

// StorageBits returns the number of state bits used by the predictor.
func (p *Predictor) StorageBits() int {
	return p.Config.StorageBits()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// STATISTICS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Stats summarises table occupancy. Index 0 describes the base table.
type Stats struct {
	BranchCount    uint64
	EntriesUsed    [NumTables]uint32
	UsefulEntries  [NumTables]uint32
	AverageAge     [NumTables]float32
	AverageCounter [NumTables]float32
}

// Stats walks every table and returns occupancy figures.
func (p *Predictor) Stats() Stats {
	var s Stats
	s.BranchCount = p.BranchCount

	var total uint64
	for _, v := range p.Base {
		total += uint64(v)
	}
	s.EntriesUsed[0] = uint32(len(p.Base))
	s.AverageCounter[0] = float32(total) / float32(len(p.Base))

	for t := 1; t < NumTables; t++ {
		table := &p.Tables[t]
		var totalAge, totalCounter uint64
		var valid, useful uint32

		for i := range table.Entries {
			if !table.valid(uint32(i)) {
				continue
			}
			e := &table.Entries[i]
			valid++
			totalAge += uint64(e.Age)
			totalCounter += uint64(e.Counter)
			if e.Useful {
				useful++
			}
		}

		s.EntriesUsed[t] = valid
		s.UsefulEntries[t] = useful
		if valid > 0 {
			s.AverageAge[t] = float32(totalAge) / float32(valid)
			s.AverageCounter[t] = float32(totalCounter) / float32(valid)
		}
	}
	return s
}
