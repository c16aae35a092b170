// Package sim drives predictors with branch traces and scores them.
package sim

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/maemowong/bpsim"
	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/internal/logger"
	"github.com/maemowong/bpsim/internal/trace"
)

// Predictor is the harness facing side of a predictor. *bpsim.Predictor
// implements it.
type Predictor interface {
	Predict(pc, target uint32, isDirect bool) bool
	Train(pc, target uint32, outcome, isConditional, isCall, isReturn, isDirect bool)
}

// Source supplies branch events in program order. Next returns io.EOF at the
// end of the stream.
type Source interface {
	Next() (trace.Event, error)
}

// RunError wraps a failure part way through a run. The first placeholder is
// the number of events fed before the failure.
const RunError = "sim: after %d branches: %v"

// Result of feeding one trace through one predictor.
type Result struct {
	// Name of the predictor configuration
	Name string

	// every event in the trace
	Branches uint64

	// conditional branches are the only ones scored
	Conditional    uint64
	Mispredictions uint64

	// mispredictions per branch address
	PerPC map[uint32]uint64
}

// MispredictionRate returns mispredictions as a fraction of conditional
// branches.
func (r Result) MispredictionRate() float64 {
	if r.Conditional == 0 {
		return 0
	}
	return float64(r.Mispredictions) / float64(r.Conditional)
}

// Accuracy is the complement of MispredictionRate.
func (r Result) Accuracy() float64 {
	if r.Conditional == 0 {
		return 0
	}
	return 1 - r.MispredictionRate()
}

// PCMisses pairs a branch address with its misprediction count.
type PCMisses struct {
	PC     uint32
	Misses uint64
}

// TopMispredicted returns up to n addresses with the most mispredictions,
// worst first. Ties are ordered by address.
func (r Result) TopMispredicted(n int) []PCMisses {
	top := make([]PCMisses, 0, len(r.PerPC))
	for pc, m := range r.PerPC {
		top = append(top, PCMisses{PC: pc, Misses: m})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Misses != top[j].Misses {
			return top[i].Misses > top[j].Misses
		}
		return top[i].PC < top[j].PC
	})
	if n >= 0 && len(top) > n {
		top = top[:n]
	}
	return top
}

// Run feeds every event from src through p: predict, score when the branch is
// conditional, then train. The context is checked between events.
func Run(ctx context.Context, p Predictor, src Source) (Result, error) {
	res := Result{
		PerPC: make(map[uint32]uint64),
	}
	if s, ok := p.(interface{ String() string }); ok {
		res.Name = s.String()
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, curated.Errorf(RunError, res.Branches, err)
		}

		e, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, curated.Errorf(RunError, res.Branches, err)
		}

		res.Branches++

		prediction := p.Predict(e.PC, e.Target, e.Direct)
		if e.Conditional {
			res.Conditional++
			if prediction != e.Taken {
				res.Mispredictions++
				res.PerPC[e.PC]++
			}
		}

		p.Train(e.PC, e.Target, e.Taken, e.Conditional, e.Call, e.Return, e.Direct)
	}

	return res, nil
}

// Events is a Source over a slice held in memory. Each Compare stream gets its
// own Events so the slice can be shared.
type Events struct {
	events []trace.Event
	next   int
}

// NewEvents returns a Source over events.
func NewEvents(events []trace.Event) *Events {
	return &Events{events: events}
}

// Next implements the Source interface.
func (s *Events) Next() (trace.Event, error) {
	if s.next >= len(s.events) {
		return trace.Event{}, io.EOF
	}
	e := s.events[s.next]
	s.next++
	return e, nil
}

// Compare configures one predictor per configuration and runs each over the
// same events on its own goroutine. Results are returned in configuration
// order. The first configuration or run error is returned.
func Compare(ctx context.Context, cfgs []bpsim.Config, events []trace.Event) ([]Result, error) {
	predictors := make([]*bpsim.Predictor, len(cfgs))
	for i, cfg := range cfgs {
		p, err := bpsim.NewPredictor(cfg)
		if err != nil {
			return nil, err
		}
		predictors[i] = p
	}

	results := make([]Result, len(cfgs))
	errs := make([]error, len(cfgs))

	var wg sync.WaitGroup
	for i := range predictors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Run(ctx, predictors[i], NewEvents(events))
			logger.Logf(logger.Allow, "sim", "%s: %d branches, %d mispredictions",
				results[i].Name, results[i].Branches, results[i].Mispredictions)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
