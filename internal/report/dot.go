package report

import (
	"io"

	"github.com/bradleyjkemp/memviz"

	"github.com/maemowong/bpsim/internal/curated"
)

// DotLimit is the largest predictor (in state bits) Dot will draw. Beyond
// this graphviz output stops being readable.
const DotLimit = 4096

// TooLarge is returned by Dot when the predictor exceeds DotLimit.
const TooLarge = "report: %d state bits is too large to draw (limit %d)"

// sized is implemented by every predictor variant.
type sized interface {
	StorageBits() int
}

// Dot writes a graphviz description of the predictor's tables and registers.
func Dot(w io.Writer, v sized) error {
	if bits := v.StorageBits(); bits > DotLimit {
		return curated.Errorf(TooLarge, bits, DotLimit)
	}
	memviz.Map(w, v)
	return nil
}
