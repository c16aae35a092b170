package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/maemowong/bpsim"
	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/internal/report"
	"github.com/maemowong/bpsim/internal/sim"
	"github.com/maemowong/bpsim/internal/test"
	"github.com/maemowong/bpsim/proto/gshare"
)

func TestSummary(t *testing.T) {
	w := &test.CompareWriter{}
	r := sim.Result{Branches: 12, Conditional: 10, Mispredictions: 3}

	test.DemandSuccess(t, report.Summary(w, r))

	want := "Branches:                10\n" +
		"Incorrect:                3\n" +
		"Misprediction Rate:  30.000\n"
	if !w.Compare(want) {
		t.Errorf("unexpected summary:\n%s", w)
	}
}

func TestTable(t *testing.T) {
	w := &test.CompareWriter{}
	results := []sim.Result{
		{Name: "static", Conditional: 4, Mispredictions: 1},
		{Name: "custom:tage", Conditional: 4, Mispredictions: 0},
	}

	test.DemandSuccess(t, report.Table(w, results))

	lines := strings.Split(strings.TrimSpace(w.String()), "\n")
	test.DemandEquality(t, len(lines), 3)
	test.ExpectSuccess(t, strings.HasPrefix(lines[0], "predictor  "))
	test.ExpectSuccess(t, strings.HasSuffix(lines[1], "25.000%"))
	test.ExpectSuccess(t, strings.HasSuffix(lines[2], "0.000%"))
}

func TestTop(t *testing.T) {
	w := &test.CompareWriter{}
	r := sim.Result{
		Mispredictions: 4,
		PerPC:          map[uint32]uint64{0x400: 3, 0x800: 1},
	}

	test.DemandSuccess(t, report.Top(w, r, 1))

	want := "most mispredicted (1 of 2 addresses)\n" +
		"  0x00000400          3  75.00%\n"
	if !w.Compare(want) {
		t.Errorf("unexpected listing:\n%q", w.String())
	}

	w.Clear()
	test.DemandSuccess(t, report.Top(w, sim.Result{}, 5))
	test.ExpectSuccess(t, w.Compare(""))
}

func TestChart(t *testing.T) {
	var buf bytes.Buffer
	results := []sim.Result{
		{Name: "gshare:15", Conditional: 100, Mispredictions: 10},
		{Name: "custom:yags", Conditional: 100, Mispredictions: 7},
	}

	test.DemandSuccess(t, report.Chart(&buf, "loop.trace", results))

	html := buf.String()
	test.ExpectSuccess(t, strings.Contains(html, "<html"))
	test.ExpectSuccess(t, strings.Contains(html, "loop.trace"))
	test.ExpectSuccess(t, strings.Contains(html, "custom:yags"))
}

func TestDot(t *testing.T) {
	var buf bytes.Buffer
	p := gshare.New(gshare.Config{HistoryBits: 3})

	test.DemandSuccess(t, report.Dot(&buf, p))
	test.ExpectSuccess(t, strings.Contains(buf.String(), "digraph"))
}

func TestDot_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	p, err := bpsim.NewPredictor(bpsim.DefaultConfig())
	test.DemandSuccess(t, err)

	err = report.Dot(&buf, p.Variant())
	test.ExpectSuccess(t, curated.Is(err, report.TooLarge))
	test.ExpectEquality(t, buf.Len(), 0)
}
