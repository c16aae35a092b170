// Package report formats simulation results: plain text summaries, an HTML
// chart comparing several predictors and a graphviz dump of predictor state.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/maemowong/bpsim/internal/sim"
)

// Summary writes the conditional branch and misprediction counts followed by
// the misprediction rate as a percentage.
func Summary(w io.Writer, r sim.Result) error {
	_, err := fmt.Fprintf(w, "Branches:        %10d\nIncorrect:       %10d\nMisprediction Rate: %7.3f\n",
		r.Conditional, r.Mispredictions, 100*r.MispredictionRate())
	return err
}

// Table writes one line per result, aligned on the predictor name.
func Table(w io.Writer, results []sim.Result) error {
	width := len("predictor")
	for _, r := range results {
		if len(r.Name) > width {
			width = len(r.Name)
		}
	}

	s := &strings.Builder{}
	fmt.Fprintf(s, "%-*s %12s %12s %8s\n", width, "predictor", "branches", "incorrect", "rate")
	for _, r := range results {
		fmt.Fprintf(s, "%-*s %12d %12d %7.3f%%\n", width, r.Name,
			r.Conditional, r.Mispredictions, 100*r.MispredictionRate())
	}

	_, err := io.WriteString(w, s.String())
	return err
}

// Top writes the n most mispredicted branch addresses.
func Top(w io.Writer, r sim.Result, n int) error {
	top := r.TopMispredicted(n)
	if len(top) == 0 {
		return nil
	}

	s := &strings.Builder{}
	fmt.Fprintf(s, "most mispredicted (%d of %d addresses)\n", len(top), len(r.PerPC))
	for _, t := range top {
		share := 0.0
		if r.Mispredictions > 0 {
			share = 100 * float64(t.Misses) / float64(r.Mispredictions)
		}
		fmt.Fprintf(s, "  0x%08x %10d %6.2f%%\n", t.PC, t.Misses, share)
	}

	_, err := io.WriteString(w, s.String())
	return err
}
