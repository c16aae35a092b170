package bpsim_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/maemowong/bpsim"
	"github.com/maemowong/bpsim/internal/curated"
	"github.com/maemowong/bpsim/proto/gshare"
	"github.com/maemowong/bpsim/proto/skew"
	"github.com/maemowong/bpsim/proto/tage"
)

// every kind and custom design with default sizes
var allSpecs = []string{
	"static", "gshare", "tournament", "bimodal",
	"custom:yags", "custom:path", "custom:skew", "custom:tage",
}

func mustConfigure(spec string) *bpsim.Predictor {
	cfg, err := bpsim.ParseConfig(spec)
	Expect(err).NotTo(HaveOccurred())
	p, err := bpsim.NewPredictor(cfg)
	Expect(err).NotTo(HaveOccurred())
	return p
}

// feed trains n pseudo-random conditional branches drawn from a small set of
// PCs, calling Predict first when predictFirst is set.
func feed(p *bpsim.Predictor, seed int64, n int, predictFirst bool) {
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		pc := uint32(rng.Intn(512)) << 2
		target := pc + uint32(rng.Intn(64))<<2
		taken := rng.Intn(4) != 0
		if predictFirst {
			p.Predict(pc, target, true)
		}
		p.Train(pc, target, taken, true, false, false, true)
	}
}

// snapshot records the prediction for a fixed range of PCs.
func snapshot(p *bpsim.Predictor) []bool {
	out := make([]bool, 0, 1024)
	for pc := uint32(0); pc < 1024; pc++ {
		out = append(out, p.Predict(pc<<2, pc<<3, true))
	}
	return out
}

var _ = Describe("Predictor", func() {
	Describe("Configure", func() {
		It("should accept every default configuration within the budget", func() {
			for _, spec := range allSpecs {
				p := mustConfigure(spec)
				Expect(p.Configured()).To(BeTrue())
				Expect(p.StorageBits()).To(BeNumerically("<=", bpsim.DefaultStorageBudget), spec)
			}
		})

		It("should wrap width errors in a configuration error", func() {
			cfg := bpsim.DefaultConfig()
			cfg.Gshare.HistoryBits = 0

			_, err := bpsim.NewPredictor(cfg)
			Expect(curated.Is(err, bpsim.ConfigurationError)).To(BeTrue())
			Expect(curated.Has(err, gshare.InvalidHistoryBits)).To(BeTrue())
		})

		It("should reject skew tables narrower than two bits", func() {
			cfg := bpsim.DefaultConfig()
			cfg.Kind = bpsim.Custom
			cfg.Custom = bpsim.Skew
			cfg.Skew.IndexBits = 1

			_, err := bpsim.NewPredictor(cfg)
			Expect(curated.Has(err, skew.InvalidIndexBits)).To(BeTrue())
		})

		It("should reject configurations over the storage budget", func() {
			cfg := bpsim.DefaultConfig()
			cfg.Gshare.HistoryBits = 16

			_, err := bpsim.NewPredictor(cfg)
			Expect(curated.Is(err, bpsim.ConfigurationError)).To(BeTrue())
			Expect(curated.Has(err, bpsim.StorageExceeded)).To(BeTrue())
		})

		It("should skip the budget check when the budget is zero", func() {
			cfg := bpsim.DefaultConfig()
			cfg.Gshare.HistoryBits = 16
			cfg.StorageBudget = 0

			p, err := bpsim.NewPredictor(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.StorageBits()).To(Equal(1<<16*2 + 16))
		})

		It("should reject unknown kinds and designs", func() {
			cfg := bpsim.DefaultConfig()
			cfg.Kind = bpsim.Kind(42)
			_, err := bpsim.NewPredictor(cfg)
			Expect(curated.Has(err, bpsim.UnknownKind)).To(BeTrue())

			cfg.Kind = bpsim.Custom
			cfg.Custom = bpsim.Design(42)
			_, err = bpsim.NewPredictor(cfg)
			Expect(curated.Has(err, bpsim.UnknownDesign)).To(BeTrue())
		})

		It("should keep the previous configuration when configure fails", func() {
			p := mustConfigure("tournament")

			bad := bpsim.DefaultConfig()
			bad.Gshare.HistoryBits = 99
			Expect(p.Configure(bad)).To(HaveOccurred())

			Expect(p.Config().Kind).To(Equal(bpsim.Tournament))
			Expect(p.String()).To(Equal("tournament:12:10:10"))
		})

		It("should allocate only the selected variant", func() {
			p := mustConfigure("custom:tage")
			_, ok := p.Variant().(*tage.Predictor)
			Expect(ok).To(BeTrue())
		})
	})

	Describe("unconfigured", func() {
		It("should predict not taken and ignore training", func() {
			var p bpsim.Predictor
			Expect(p.Configured()).To(BeFalse())
			Expect(p.Predict(0x100, 0x200, true)).To(BeFalse())
			p.Train(0x100, 0x200, true, true, false, false, true)
			p.Reset()
			Expect(p.StorageBits()).To(Equal(0))
			Expect(p.String()).To(Equal("unconfigured"))
		})
	})

	Describe("Static", func() {
		It("should always predict taken", func() {
			p := mustConfigure("static")
			for i := 0; i < 10; i++ {
				p.Train(0x40, 0x80, false, true, false, false, true)
			}
			Expect(p.Predict(0x40, 0x80, true)).To(BeTrue())
			Expect(p.StorageBits()).To(Equal(0))
		})
	})

	Describe("Train", func() {
		It("should ignore unconditional branches", func() {
			p := mustConfigure("bimodal")
			for i := 0; i < 5; i++ {
				p.Train(0x40, 0x80, true, false, false, false, true)
			}
			Expect(p.Predict(0x40, 0x80, true)).To(BeFalse())

			p.Train(0x40, 0x80, true, true, false, false, true)
			Expect(p.Predict(0x40, 0x80, true)).To(BeTrue())
		})

		It("should reproduce the gshare two bit history scenario", func() {
			cfg := bpsim.DefaultConfig()
			cfg.Gshare.HistoryBits = 2
			p, err := bpsim.NewPredictor(cfg)
			Expect(err).NotTo(HaveOccurred())

			// index 0b10 ^ 0b00: seed 1, not taken
			Expect(p.Predict(0b10, 0, true)).To(BeFalse())

			// counter at index 2 becomes 2, history 0b01
			p.Train(0b10, 0, true, true, false, false, true)

			// index 0b10 ^ 0b01 = 0b11: still the seed value
			Expect(p.Predict(0b10, 0, true)).To(BeFalse())
		})
	})

	Describe("Predict", func() {
		It("should not change state for any kind", func() {
			for _, spec := range allSpecs {
				a := mustConfigure(spec)
				b := mustConfigure(spec)

				feed(a, 11, 3000, true)
				feed(b, 11, 3000, false)

				Expect(snapshot(a)).To(Equal(snapshot(b)), spec)
			}
		})
	})

	Describe("Reset", func() {
		It("should match a freshly configured predictor for every kind", func() {
			for _, spec := range allSpecs {
				p := mustConfigure(spec)
				feed(p, 5, 3000, false)
				p.Reset()

				fresh := mustConfigure(spec)
				Expect(snapshot(p)).To(Equal(snapshot(fresh)), spec)

				// identical behaviour after further training
				feed(p, 9, 1000, false)
				feed(fresh, 9, 1000, false)
				Expect(snapshot(p)).To(Equal(snapshot(fresh)), spec)
			}
		})
	})
})
