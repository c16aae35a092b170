package bpsim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/proto/bimodal"
	"github.com/maemowong/bpsim/proto/gshare"
	"github.com/maemowong/bpsim/proto/skew"
	"github.com/maemowong/bpsim/proto/tage"
	"github.com/maemowong/bpsim/proto/tournament"
	"github.com/maemowong/bpsim/proto/yags"
)

// DefaultStorageBudget is the state limit every default configuration fits
// inside: 64K bits plus 256 bits for history registers and similar.
const DefaultStorageBudget = 64*1024 + 256

// Config selects a predictor kind and carries the sizes of every variant.
// Only the fields of the selected kind (and design, for Custom) are used.
type Config struct {
	Kind   Kind
	Custom Design

	// StorageBudget is the maximum number of state bits the selected variant
	// may use. Zero or less disables the check.
	StorageBudget int

	Gshare     gshare.Config
	Tournament tournament.Config
	Bimodal    bimodal.Config

	YAGS yags.Config
	Path tournament.Config
	Skew skew.Config
	TAGE tage.Config
}

// DefaultConfig returns a Gshare configuration with default sizes for every
// variant.
func DefaultConfig() Config {
	return Config{
		Kind:          Gshare,
		Custom:        YAGS,
		StorageBudget: DefaultStorageBudget,
		Gshare:        gshare.DefaultConfig(),
		Tournament:    tournament.DefaultConfig(),
		Bimodal:       bimodal.DefaultConfig(),
		YAGS:          yags.DefaultConfig(),
		Path:          tournament.DefaultConfig(),
		Skew:          skew.DefaultConfig(),
		TAGE:          tage.DefaultConfig(),
	}
}

// String returns the configuration in the form accepted by ParseConfig.
func (cfg Config) String() string {
	switch cfg.Kind {
	case Gshare:
		return fmt.Sprintf("gshare:%d", cfg.Gshare.HistoryBits)
	case Tournament:
		return fmt.Sprintf("tournament:%d:%d:%d", cfg.Tournament.GHistoryBits,
			cfg.Tournament.LHistoryBits, cfg.Tournament.PCIndexBits)
	case Bimodal:
		return fmt.Sprintf("bimodal:%d", cfg.Bimodal.IndexBits)
	case Custom:
		return fmt.Sprintf("custom:%s", cfg.Custom)
	}
	return cfg.Kind.String()
}

// ParseConfig reads a predictor spec string and returns the default
// configuration adjusted by it. Accepted forms:
//
//	static
//	gshare[:<history bits>]
//	tournament[:<ghistory bits>:<lhistory bits>:<pc index bits>]
//	bimodal[:<index bits>]
//	custom[:<design>]
//
// Sizes are not validated here. That happens when the configuration is used.
func ParseConfig(spec string) (Config, error) {
	cfg := DefaultConfig()

	parts := strings.Split(strings.TrimSpace(spec), ":")
	kind, err := ParseKind(parts[0])
	if err != nil {
		return cfg, curated.Errorf(BadSpec, spec, err)
	}
	cfg.Kind = kind
	args := parts[1:]

	// widths parses every argument as a decimal width
	widths := func() ([]uint, error) {
		w := make([]uint, len(args))
		for i, a := range args {
			v, err := strconv.ParseUint(a, 10, 8)
			if err != nil {
				return nil, curated.Errorf(BadSpec, spec, fmt.Sprintf("%q is not a width", a))
			}
			w[i] = uint(v)
		}
		return w, nil
	}

	switch kind {
	case Static:
		if len(args) != 0 {
			return cfg, curated.Errorf(BadSpec, spec, "static takes no arguments")
		}

	case Gshare, Bimodal:
		if len(args) > 1 {
			return cfg, curated.Errorf(BadSpec, spec, "expected one width")
		}
		w, err := widths()
		if err != nil {
			return cfg, err
		}
		if len(w) == 1 {
			if kind == Gshare {
				cfg.Gshare.HistoryBits = w[0]
			} else {
				cfg.Bimodal.IndexBits = w[0]
			}
		}

	case Tournament:
		if len(args) != 0 && len(args) != 3 {
			return cfg, curated.Errorf(BadSpec, spec, "expected ghistory:lhistory:pcindex")
		}
		w, err := widths()
		if err != nil {
			return cfg, err
		}
		if len(w) == 3 {
			cfg.Tournament.GHistoryBits = w[0]
			cfg.Tournament.LHistoryBits = w[1]
			cfg.Tournament.PCIndexBits = w[2]
		}

	case Custom:
		if len(args) > 1 {
			return cfg, curated.Errorf(BadSpec, spec, "expected one design name")
		}
		if len(args) == 1 {
			d, err := ParseDesign(args[0])
			if err != nil {
				return cfg, curated.Errorf(BadSpec, spec, err)
			}
			cfg.Custom = d
		}
	}

	return cfg, nil
}
