package bpsim

import (
	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/internal/logger"
	"github.com/maemowong/bpsim/proto/bimodal"
	"github.com/maemowong/bpsim/proto/gshare"
	"github.com/maemowong/bpsim/proto/skew"
	"github.com/maemowong/bpsim/proto/tage"
	"github.com/maemowong/bpsim/proto/tournament"
	"github.com/maemowong/bpsim/proto/yags"
)

// Variant is implemented by every predictor design. Predict must not change
// state. The target is ignored by designs that do not use it.
type Variant interface {
	Predict(pc, target uint32) bool
	Train(pc, target uint32, taken bool)
	Reset()
	StorageBits() int
}

// static always predicts taken and has no state.
type static struct{}

func (static) Predict(_, _ uint32) bool  { return true }
func (static) Train(_, _ uint32, _ bool) {}
func (static) Reset()                    {}
func (static) StorageBits() int          { return 0 }

// Predictor is the harness facing predictor. The zero value is unconfigured:
// Predict returns not-taken and Train does nothing until Configure succeeds.
//
// A Predictor serves one instruction stream and is not safe for concurrent
// use.
type Predictor struct {
	cfg     Config
	variant Variant
}

// NewPredictor is a convenience function that returns a configured predictor.
func NewPredictor(cfg Config) (*Predictor, error) {
	p := &Predictor{}
	if err := p.Configure(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// newVariant allocates the variant named by the configuration after
// validating its sizes.
func newVariant(cfg Config) (Variant, error) {
	var err error

	switch cfg.Kind {
	case Static:
		return static{}, nil

	case Gshare:
		if err = cfg.Gshare.Validate(); err == nil {
			return gshare.New(cfg.Gshare), nil
		}

	case Tournament:
		if err = cfg.Tournament.Validate(); err == nil {
			return tournament.New(cfg.Tournament), nil
		}

	case Bimodal:
		if err = cfg.Bimodal.Validate(); err == nil {
			return bimodal.New(cfg.Bimodal), nil
		}

	case Custom:
		switch cfg.Custom {
		case YAGS:
			if err = cfg.YAGS.Validate(); err == nil {
				return yags.New(cfg.YAGS), nil
			}
		case Path:
			if err = cfg.Path.Validate(); err == nil {
				return tournament.NewPath(cfg.Path), nil
			}
		case Skew:
			if err = cfg.Skew.Validate(); err == nil {
				return skew.New(cfg.Skew), nil
			}
		case TAGE:
			if err = cfg.TAGE.Validate(); err == nil {
				return tage.New(cfg.TAGE), nil
			}
		default:
			err = curated.Errorf(UnknownDesign, cfg.Custom)
		}

	default:
		err = curated.Errorf(UnknownKind, cfg.Kind)
	}

	return nil, err
}

// Configure selects the predictor kind and sizes, allocating only the tables
// of that kind. Any previous state is discarded. On error the predictor keeps
// its previous configuration.
//
// All errors are wrapped in the ConfigurationError pattern.
func (p *Predictor) Configure(cfg Config) error {
	v, err := newVariant(cfg)
	if err != nil {
		return curated.Errorf(ConfigurationError, err)
	}

	if cfg.StorageBudget > 0 && v.StorageBits() > cfg.StorageBudget {
		return curated.Errorf(ConfigurationError,
			curated.Errorf(StorageExceeded, cfg, v.StorageBits(), cfg.StorageBudget))
	}

	p.cfg = cfg
	p.variant = v

	logger.Logf(logger.Allow, "bpsim", "configured %s (%d bits)", cfg, v.StorageBits())

	return nil
}

// Predict returns the predicted direction of the branch at pc. It does not
// change predictor state.
func (p *Predictor) Predict(pc, target uint32, isDirect bool) bool {
	if p.variant == nil {
		logger.Log(logger.Allow, "bpsim", "predict called before configure")
		return false
	}
	return p.variant.Predict(pc, target)
}

// Train updates the predictor with the resolved outcome of a branch. Only
// conditional branches change state. The call, return and direct flags are
// accepted for every kind but no current design uses them.
func (p *Predictor) Train(pc, target uint32, outcome, isConditional, isCall, isReturn, isDirect bool) {
	if !isConditional || p.variant == nil {
		return
	}
	p.variant.Train(pc, target, outcome)
}

// Reset returns every table and history register to the state Configure
// left them in.
func (p *Predictor) Reset() {
	if p.variant != nil {
		p.variant.Reset()
	}
}

// Configured is true once Configure has succeeded.
func (p *Predictor) Configured() bool {
	return p.variant != nil
}

// Config returns the active configuration.
func (p *Predictor) Config() Config {
	return p.cfg
}

// StorageBits returns the number of state bits used by the active variant.
func (p *Predictor) StorageBits() int {
	if p.variant == nil {
		return 0
	}
	return p.variant.StorageBits()
}

// Variant returns the active variant. Callers wanting design specific
// information (TAGE table occupancy, for example) can type assert on it.
func (p *Predictor) Variant() Variant {
	return p.variant
}

func (p *Predictor) String() string {
	if p.variant == nil {
		return "unconfigured"
	}
	return p.cfg.String()
}
