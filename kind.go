package bpsim

import (
	"strings"

	"github.com/maemowong/bpsim/internal/curated"
)

// Kind selects a predictor family.
type Kind int

// List of valid Kind values.
const (
	Static Kind = iota
	Gshare
	Tournament
	Custom
	Bimodal
)

// Kinds lists every kind in display order.
var Kinds = []Kind{Static, Gshare, Tournament, Custom, Bimodal}

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Gshare:
		return "gshare"
	case Tournament:
		return "tournament"
	case Custom:
		return "custom"
	case Bimodal:
		return "bimodal"
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String(). Matching is case insensitive.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return Static, curated.Errorf(UnknownKind, s)
}

// Design selects which design the Custom kind uses.
type Design int

// List of valid Design values.
const (
	// YAGS choice table with tagged taken/not-taken exception caches
	YAGS Design = iota

	// tournament driven by path history
	Path

	// three skewed tables with a majority vote
	Skew

	// tagged geometric history lengths
	TAGE
)

// Designs lists every custom design in display order.
var Designs = []Design{YAGS, Path, Skew, TAGE}

func (d Design) String() string {
	switch d {
	case YAGS:
		return "yags"
	case Path:
		return "path"
	case Skew:
		return "skew"
	case TAGE:
		return "tage"
	}
	return "unknown"
}

// ParseDesign is the inverse of Design.String(). Matching is case insensitive.
func ParseDesign(s string) (Design, error) {
	for _, d := range Designs {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return YAGS, curated.Errorf(UnknownDesign, s)
}
