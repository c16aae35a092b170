package main

import (
	"github.com/spf13/pflag"

	"github.com/maemowong/bpsim"
)

// sizeFlags override individual table sizes after the --predictor spec has
// been parsed. Only flags given on the command line are applied.
type sizeFlags struct {
	ghistory   uint
	lhistory   uint
	pcindex    uint
	chooser    uint
	bimodal    uint
	yagsChoice uint
	yagsSets   uint
	skewIndex  uint
	tageIndex  uint
	tageTag    uint
	budget     int
}

func addSizeFlags(fs *pflag.FlagSet, f *sizeFlags) {
	def := bpsim.DefaultConfig()

	fs.UintVar(&f.ghistory, "ghistory", def.Gshare.HistoryBits, "Global history bits (gshare, tournament)")
	fs.UintVar(&f.lhistory, "lhistory", def.Tournament.LHistoryBits, "Local history bits (tournament)")
	fs.UintVar(&f.pcindex, "pcindex", def.Tournament.PCIndexBits, "PC bits indexing the local history table (tournament)")
	fs.UintVar(&f.chooser, "chooser", def.Tournament.ChooserBits, "Chooser index bits (tournament, custom:path)")
	fs.UintVar(&f.bimodal, "bimodal-bits", def.Bimodal.IndexBits, "Index bits (bimodal)")
	fs.UintVar(&f.yagsChoice, "yags-choice", def.YAGS.ChoiceBits, "Choice table bits (custom:yags)")
	fs.UintVar(&f.yagsSets, "yags-sets", def.YAGS.SetBits, "Exception cache set bits (custom:yags)")
	fs.UintVar(&f.skewIndex, "skew-index", def.Skew.IndexBits, "Per-table index bits (custom:skew)")
	fs.UintVar(&f.tageIndex, "tage-index", def.TAGE.IndexBits, "Per-table index bits (custom:tage)")
	fs.UintVar(&f.tageTag, "tage-tag", def.TAGE.TagBits, "Tag bits (custom:tage)")
	fs.IntVar(&f.budget, "budget", def.StorageBudget, "Storage budget in bits (0 = unlimited)")
}

// apply copies every flag that was set on the command line into cfg.
func (f *sizeFlags) apply(fs *pflag.FlagSet, cfg *bpsim.Config) {
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}

	set("ghistory", func() {
		cfg.Gshare.HistoryBits = f.ghistory
		cfg.Tournament.GHistoryBits = f.ghistory
		cfg.Path.GHistoryBits = f.ghistory
	})
	set("lhistory", func() {
		cfg.Tournament.LHistoryBits = f.lhistory
		cfg.Path.LHistoryBits = f.lhistory
	})
	set("pcindex", func() {
		cfg.Tournament.PCIndexBits = f.pcindex
		cfg.Path.PCIndexBits = f.pcindex
	})
	set("chooser", func() {
		cfg.Tournament.ChooserBits = f.chooser
		cfg.Path.ChooserBits = f.chooser
	})
	set("bimodal-bits", func() { cfg.Bimodal.IndexBits = f.bimodal })
	set("yags-choice", func() { cfg.YAGS.ChoiceBits = f.yagsChoice })
	set("yags-sets", func() { cfg.YAGS.SetBits = f.yagsSets })
	set("skew-index", func() { cfg.Skew.IndexBits = f.skewIndex })
	set("tage-index", func() { cfg.TAGE.IndexBits = f.tageIndex })
	set("tage-tag", func() { cfg.TAGE.TagBits = f.tageTag })
	set("budget", func() { cfg.StorageBudget = f.budget })
}

// parseConfigs parses each predictor spec and applies the size overrides.
func parseConfigs(fs *pflag.FlagSet, f *sizeFlags, specs []string) ([]bpsim.Config, error) {
	cfgs := make([]bpsim.Config, 0, len(specs))
	for _, spec := range specs {
		cfg, err := bpsim.ParseConfig(spec)
		if err != nil {
			return nil, err
		}
		f.apply(fs, &cfg)
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}
