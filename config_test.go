package bpsim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/maemowong/bpsim"
	"github.com/maemowong/bpsim/internal/curated"
)

var _ = Describe("ParseConfig", func() {
	Describe("accepted specs", func() {
		It("should parse a bare kind with default sizes", func() {
			cfg, err := bpsim.ParseConfig("tournament")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Kind).To(Equal(bpsim.Tournament))
			Expect(cfg.Tournament).To(Equal(bpsim.DefaultConfig().Tournament))
		})

		It("should parse gshare history bits", func() {
			cfg, err := bpsim.ParseConfig("gshare:13")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Kind).To(Equal(bpsim.Gshare))
			Expect(cfg.Gshare.HistoryBits).To(BeEquivalentTo(13))
		})

		It("should parse the three tournament widths", func() {
			cfg, err := bpsim.ParseConfig("tournament:9:10:10")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Tournament.GHistoryBits).To(BeEquivalentTo(9))
			Expect(cfg.Tournament.LHistoryBits).To(BeEquivalentTo(10))
			Expect(cfg.Tournament.PCIndexBits).To(BeEquivalentTo(10))
		})

		It("should parse bimodal index bits", func() {
			cfg, err := bpsim.ParseConfig("bimodal:12")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Kind).To(Equal(bpsim.Bimodal))
			Expect(cfg.Bimodal.IndexBits).To(BeEquivalentTo(12))
		})

		It("should default custom to the YAGS design", func() {
			cfg, err := bpsim.ParseConfig("custom")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Kind).To(Equal(bpsim.Custom))
			Expect(cfg.Custom).To(Equal(bpsim.YAGS))
		})

		It("should parse a custom design name case insensitively", func() {
			cfg, err := bpsim.ParseConfig("CUSTOM:Tage")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Custom).To(Equal(bpsim.TAGE))
		})

		It("should round trip through String", func() {
			for _, spec := range []string{
				"static", "gshare:11", "tournament:12:10:8", "bimodal:10",
				"custom:yags", "custom:path", "custom:skew", "custom:tage",
			} {
				cfg, err := bpsim.ParseConfig(spec)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.String()).To(Equal(spec))
			}
		})
	})

	Describe("rejected specs", func() {
		It("should name an unknown kind", func() {
			_, err := bpsim.ParseConfig("perceptron")
			Expect(curated.Is(err, bpsim.BadSpec)).To(BeTrue())
			Expect(curated.Has(err, bpsim.UnknownKind)).To(BeTrue())
		})

		It("should name an unknown design", func() {
			_, err := bpsim.ParseConfig("custom:neural")
			Expect(curated.Is(err, bpsim.BadSpec)).To(BeTrue())
			Expect(curated.Has(err, bpsim.UnknownDesign)).To(BeTrue())
		})

		It("should reject malformed arguments", func() {
			for _, spec := range []string{
				"static:1", "gshare:x", "gshare:1:2", "tournament:1:2",
				"bimodal:-3", "custom:yags:1",
			} {
				_, err := bpsim.ParseConfig(spec)
				Expect(curated.Is(err, bpsim.BadSpec)).To(BeTrue(), spec)
			}
		})
	})
})

var _ = Describe("Kind and Design names", func() {
	It("should parse every listed kind", func() {
		for _, k := range bpsim.Kinds {
			got, err := bpsim.ParseKind(k.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(k))
		}
	})

	It("should parse every listed design", func() {
		for _, d := range bpsim.Designs {
			got, err := bpsim.ParseDesign(d.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(d))
		}
	})

	It("should report unknown values", func() {
		Expect(bpsim.Kind(99).String()).To(Equal("unknown"))
		Expect(bpsim.Design(99).String()).To(Equal("unknown"))
	})
})
