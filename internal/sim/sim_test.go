package sim_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/maemowong/bpsim"
	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/internal/sim"
	"github.com/maemowong/bpsim/internal/trace"
)

func configure(spec string) *bpsim.Predictor {
	cfg, err := bpsim.ParseConfig(spec)
	Expect(err).NotTo(HaveOccurred())
	p, err := bpsim.NewPredictor(cfg)
	Expect(err).NotTo(HaveOccurred())
	return p
}

func readAll(text string) []trace.Event {
	r, err := trace.NewReader(strings.NewReader(text))
	Expect(err).NotTo(HaveOccurred())
	events, err := r.ReadAll()
	Expect(err).NotTo(HaveOccurred())
	return events
}

// loop builds a trace of a loop branch taken n-1 times then not taken,
// repeated iterations times.
func loop(pc uint32, n, iterations int) []trace.Event {
	var events []trace.Event
	for i := 0; i < iterations; i++ {
		for j := 0; j < n; j++ {
			events = append(events, trace.Event{
				PC:          pc,
				Target:      pc - 0x40,
				Taken:       j < n-1,
				Conditional: true,
				Direct:      true,
			})
		}
	}
	return events
}

// failing returns an error after a number of events.
type failing struct {
	left int
}

var errBroken = errors.New("broken source")

func (f *failing) Next() (trace.Event, error) {
	if f.left == 0 {
		return trace.Event{}, errBroken
	}
	f.left--
	return trace.Event{PC: 0x10, Taken: true, Conditional: true}, nil
}

var _ = Describe("Run", func() {
	It("should score only conditional branches", func() {
		events := readAll(`
0x100 0
0x104 0x200 1 0 1 0 1
0x108 1
0x10c 0x300 0 1 0 0 1
`)
		res, err := sim.Run(context.Background(), configure("static"), sim.NewEvents(events))
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Branches).To(BeEquivalentTo(4))
		Expect(res.Conditional).To(BeEquivalentTo(3))
		Expect(res.Mispredictions).To(BeEquivalentTo(2))
		Expect(res.PerPC).To(HaveKeyWithValue(uint32(0x100), uint64(1)))
		Expect(res.PerPC).To(HaveKeyWithValue(uint32(0x10c), uint64(1)))
		Expect(res.PerPC).NotTo(HaveKey(uint32(0x104)))
		Expect(res.Name).To(Equal("static"))
	})

	It("should compute rates from conditional branches", func() {
		res := sim.Result{Conditional: 8, Mispredictions: 2}
		Expect(res.MispredictionRate()).To(BeNumerically("~", 0.25, 1e-9))
		Expect(res.Accuracy()).To(BeNumerically("~", 0.75, 1e-9))

		Expect(sim.Result{}.MispredictionRate()).To(BeZero())
		Expect(sim.Result{}.Accuracy()).To(BeZero())
	})

	It("should rank addresses by mispredictions", func() {
		res := sim.Result{PerPC: map[uint32]uint64{
			0x40: 3, 0x10: 7, 0x30: 3, 0x20: 1,
		}}
		Expect(res.TopMispredicted(3)).To(Equal([]sim.PCMisses{
			{PC: 0x10, Misses: 7},
			{PC: 0x30, Misses: 3},
			{PC: 0x40, Misses: 3},
		}))
		Expect(res.TopMispredicted(10)).To(HaveLen(4))
		Expect(res.TopMispredicted(0)).To(BeEmpty())
	})

	It("should stop when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := sim.Run(ctx, configure("gshare"), sim.NewEvents(loop(0x400, 4, 10)))
		Expect(err).To(HaveOccurred())
		Expect(curated.Is(err, sim.RunError)).To(BeTrue())
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(res.Branches).To(BeZero())
	})

	It("should report source errors with the branch count", func() {
		res, err := sim.Run(context.Background(), configure("bimodal"), &failing{left: 5})
		Expect(curated.Is(err, sim.RunError)).To(BeTrue())
		Expect(errors.Is(err, errBroken)).To(BeTrue())
		Expect(res.Branches).To(BeEquivalentTo(5))
	})

	It("should learn a short loop with history based predictors", func() {
		events := loop(0x800, 4, 500)

		for _, spec := range []string{"gshare", "tournament", "custom:path", "custom:tage"} {
			res, err := sim.Run(context.Background(), configure(spec), sim.NewEvents(events))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.MispredictionRate()).To(BeNumerically("<", 0.05), spec)
		}
	})

	It("should do no better than a quarter wrong on the loop exit with bimodal", func() {
		res, err := sim.Run(context.Background(), configure("bimodal"), sim.NewEvents(loop(0x800, 4, 500)))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.MispredictionRate()).To(BeNumerically(">=", 0.24))
	})
})

var _ = Describe("Compare", func() {
	It("should return one result per configuration in order", func() {
		var cfgs []bpsim.Config
		for _, spec := range []string{"static", "gshare:10", "custom:skew"} {
			cfg, err := bpsim.ParseConfig(spec)
			Expect(err).NotTo(HaveOccurred())
			cfgs = append(cfgs, cfg)
		}

		events := loop(0x1000, 8, 200)
		results, err := sim.Compare(context.Background(), cfgs, events)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))

		Expect(results[0].Name).To(Equal("static"))
		Expect(results[1].Name).To(Equal("gshare:10"))
		Expect(results[2].Name).To(Equal("custom:skew"))

		for _, r := range results {
			Expect(r.Branches).To(BeEquivalentTo(len(events)))
		}

		// static misses exactly the loop exits
		Expect(results[0].Mispredictions).To(BeEquivalentTo(200))
	})

	It("should match a sequential run", func() {
		cfg, err := bpsim.ParseConfig("custom:yags")
		Expect(err).NotTo(HaveOccurred())
		events := loop(0x2000, 5, 300)

		results, err := sim.Compare(context.Background(), []bpsim.Config{cfg, cfg}, events)
		Expect(err).NotTo(HaveOccurred())

		single, err := sim.Run(context.Background(), configure("custom:yags"), sim.NewEvents(events))
		Expect(err).NotTo(HaveOccurred())

		Expect(results[0]).To(Equal(single))
		Expect(results[1]).To(Equal(single))
	})

	It("should fail on an invalid configuration", func() {
		cfg := bpsim.DefaultConfig()
		cfg.Gshare.HistoryBits = 0
		_, err := sim.Compare(context.Background(), []bpsim.Config{cfg}, nil)
		Expect(curated.Is(err, bpsim.ConfigurationError)).To(BeTrue())
	})
})
