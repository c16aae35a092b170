// ═══════════════════════════════════════════════════════════════════════════════════════════════
// Tournament Branch Predictor
// ═══════════════════════════════════════════════════════════════════════════════════════════════
//
// OVERVIEW:
// ─────────
// Two sub-predictors run side by side and a chooser learns which one to trust:
//
//   GLOBAL: 2-bit counters indexed by global history
//   LOCAL:  3-bit counters indexed by the branch's own history, fetched from a
//           local history table (LHT) indexed by PC
//   CHOOSER: 2-bit counters indexed by global history
//
//                 ┌──────────┐
//   history ─────►│ chooser  │──── >= WG ───► global table[history]
//                 └──────────┘
//                              └── <  WG ───► local table[LHT[pc]]
//
// CHOOSER TRAINING:
//   The chooser is only trained when the two sub-predictors disagree. When
//   they agree the outcome says nothing about which one is better, so the
//   chooser is left alone. When they disagree the chooser moves toward the one
//   that was right.
//
// PATH VARIANT:
//   NewPath builds the same structure, but the global table and chooser are
//   indexed by (phr ^ pc), where phr is a path history register. After each
//   trained branch a 2-bit footprint of pc and target is shifted into phr:
//
//     footprint = pc[2] << 1 | target[2]
//     phr       = ((phr << 2) | footprint) & (2^GHistoryBits - 1)
//
//   Path history records which branches and targets were visited, which
//   separates contexts that produce identical outcome histories.
//
// INITIAL STATE:
//   Global counters WT, local counters 3 (weakly not taken), chooser WL,
//   all history registers 0.
//
// ═══════════════════════════════════════════════════════════════════════════════════════════════

package tournament

import (
	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/internal/logger"
	"github.com/maemowong/bpsim/proto/counter"
)

const (
	GlobalWidth  = 2
	LocalWidth   = 3
	ChooserWidth = 2

	GlobalSeed  = counter.WT
	LocalSeed   = 0b011
	ChooserSeed = counter.WL

	DefaultGHistoryBits = 12
	DefaultLHistoryBits = 10
	DefaultPCIndexBits  = 10
	DefaultChooserBits  = 12

	MaxTableBits    = 24
	MaxLHistoryBits = 16
)

// InvalidWidth is returned by Config.Validate.
const InvalidWidth = "tournament: %s out of range: %d"

// Config sizes the predictor.
type Config struct {
	GHistoryBits uint // global history bits, global table index
	LHistoryBits uint // local history bits, local table index
	PCIndexBits  uint // PC bits used to index the LHT
	ChooserBits  uint // chooser table index
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		GHistoryBits: DefaultGHistoryBits,
		LHistoryBits: DefaultLHistoryBits,
		PCIndexBits:  DefaultPCIndexBits,
		ChooserBits:  DefaultChooserBits,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	check := []struct {
		name string
		v    uint
		max  uint
	}{
		{"global history bits", c.GHistoryBits, MaxTableBits},
		{"local history bits", c.LHistoryBits, MaxLHistoryBits},
		{"pc index bits", c.PCIndexBits, MaxTableBits},
		{"chooser bits", c.ChooserBits, MaxTableBits},
	}
	for _, f := range check {
		if f.v < 1 || f.v > f.max {
			return curated.Errorf(InvalidWidth, f.name, f.v)
		}
	}
	return nil
}

// StorageBits returns the number of state bits the configuration needs.
func (c Config) StorageBits() int {
	return (1<<c.ChooserBits)*ChooserWidth +
		(1<<c.PCIndexBits)*int(c.LHistoryBits) +
		(1<<c.GHistoryBits)*GlobalWidth +
		(1<<c.LHistoryBits)*LocalWidth +
		int(c.GHistoryBits)
}

// Predictor is a tournament predictor. Construct with New or NewPath.
type Predictor struct {
	Config Config

	// Path selects path-history indexing for the global table and chooser
	Path bool

	// History is the global outcome history or, for the path variant, the
	// path history register
	History counter.History

	LHT     counter.LocalHistory
	Global  []uint8
	Local   []uint8
	Chooser []uint8
}

// New allocates a tournament predictor indexed by global outcome history.
func New(cfg Config) *Predictor {
	p := &Predictor{
		Config:  cfg,
		LHT:     counter.NewLocalHistory(cfg.PCIndexBits),
		Global:  make([]uint8, 1<<cfg.GHistoryBits),
		Local:   make([]uint8, 1<<cfg.LHistoryBits),
		Chooser: make([]uint8, 1<<cfg.ChooserBits),
	}
	p.Reset()
	return p
}

// NewPath allocates a tournament predictor indexed by path history.
func NewPath(cfg Config) *Predictor {
	p := New(cfg)
	p.Path = true
	return p
}

// Reset re-seeds every table and clears all history.
func (p *Predictor) Reset() {
	counter.Fill(p.Chooser, ChooserSeed)
	counter.Fill(p.Local, LocalSeed)
	counter.Fill(p.Global, GlobalSeed)
	p.LHT.Clear()
	p.History = 0
}

func (p *Predictor) name() string {
	if p.Path {
		return "path"
	}
	return "tournament"
}

// indices holds every table index for one branch. Computed once by lookup()
// so that predict and train always use the same formula.
type indices struct {
	lht     uint32
	local   uint32
	global  uint32
	chooser uint32
}

func (p *Predictor) lookup(pc uint32) indices {
	var ix indices
	ix.lht = pc & counter.Mask(p.Config.PCIndexBits)
	ix.local = p.LHT.Get(ix.lht, p.Config.LHistoryBits)

	if p.Path {
		key := uint32(p.History) ^ pc
		ix.global = key & counter.Mask(p.Config.GHistoryBits)
		ix.chooser = key & counter.Mask(p.Config.ChooserBits)
	} else {
		ix.global = p.History.Bits(p.Config.GHistoryBits)
		ix.chooser = p.History.Bits(p.Config.ChooserBits)
	}
	return ix
}

// Predict returns the direction for the branch at pc.
func (p *Predictor) Predict(pc, _ uint32) bool {
	ix := p.lookup(pc)

	switch state := p.Chooser[ix.chooser]; state {
	case counter.SG, counter.WG:
		return counter.Taken(p.Global[ix.global], GlobalWidth)
	case counter.WL, counter.SL:
		return counter.Taken(p.Local[ix.local], LocalWidth)
	default:
		logger.Logf(logger.Allow, p.name(), "undefined state of entry in chooser: %03b => %d", state, state)
		return false
	}
}

// Train updates both sub-predictors, the chooser when they disagreed, and
// finally the history registers.
func (p *Predictor) Train(pc, target uint32, taken bool) {
	ix := p.lookup(pc)

	oldGlobal := p.Global[ix.global]
	oldLocal := p.Local[ix.local]
	globalPrediction := counter.Taken(oldGlobal, GlobalWidth)
	localPrediction := counter.Taken(oldLocal, LocalWidth)

	p.Global[ix.global] = counter.Update(oldGlobal, GlobalWidth, taken)
	p.Local[ix.local] = counter.Update(oldLocal, LocalWidth, taken)

	if globalPrediction != localPrediction {
		c := p.Chooser[ix.chooser]
		if !counter.Valid(c, ChooserWidth) {
			logger.Logf(logger.Allow, p.name(), "undefined state of entry in chooser: %03b => %d", c, c)
		} else {
			p.Chooser[ix.chooser] = counter.Update(c, ChooserWidth, globalPrediction == taken)
		}
	}

	if p.Path {
		p.History = (p.History<<2 | counter.History(Footprint(pc, target))) &
			counter.History(counter.Mask(p.Config.GHistoryBits))
	} else {
		p.History = p.History.Shift(taken)
	}
	p.LHT.Shift(ix.lht, taken)
}

// Footprint compresses a branch and its destination into the 2 bits shifted
// into the path history register.
func Footprint(pc, target uint32) uint32 {
	return ((pc>>2)&1)<<1 | (target>>2)&1
}

// StorageBits returns the number of state bits used by the predictor.
func (p *Predictor) StorageBits() int {
	return p.Config.StorageBits()
}
