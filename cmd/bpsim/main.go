package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/maemowong/bpsim"
	"github.com/maemowong/bpsim/internal/logger"
	"github.com/maemowong/bpsim/internal/monitor"
	"github.com/maemowong/bpsim/internal/report"
	"github.com/maemowong/bpsim/internal/sim"
	"github.com/maemowong/bpsim/internal/trace"
	"github.com/maemowong/bpsim/proto/tage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "bpsim",
		Short:        "Branch direction predictor simulator",
		SilenceUsage: true,
	}

	// shared by every command
	var verbose bool
	var statsAddr string

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Echo log entries to stderr")
	rootCmd.PersistentFlags().StringVar(&statsAddr, "statsview", "", "Serve runtime statistics on this address (eg. localhost:12600)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetEcho(os.Stderr)
		}
		if statsAddr != "" {
			monitor.Launch(os.Stderr, statsAddr)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// run command
	var runSpec string
	var runTop int
	var runSizes sizeFlags

	runCmd := &cobra.Command{
		Use:   "run [trace]",
		Short: "Run one predictor over a trace and print the misprediction rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgs, err := parseConfigs(cmd.Flags(), &runSizes, []string{runSpec})
			if err != nil {
				return err
			}

			p, err := bpsim.NewPredictor(cfgs[0])
			if err != nil {
				return err
			}

			res, err := runFile(ctx, p, args[0])
			if err != nil {
				return err
			}

			if err := report.Summary(os.Stdout, res); err != nil {
				return err
			}
			return report.Top(os.Stdout, res, runTop)
		},
	}
	runCmd.Flags().StringVarP(&runSpec, "predictor", "p", "gshare", "Predictor spec (eg. gshare:13, tournament:9:10:10, custom:tage)")
	runCmd.Flags().IntVar(&runTop, "top", 0, "List the most mispredicted branch addresses")
	addSizeFlags(runCmd.Flags(), &runSizes)

	// compare command
	var compareSpecs []string
	var chartPath string
	var compareSizes sizeFlags

	compareCmd := &cobra.Command{
		Use:   "compare [trace]",
		Short: "Run several predictors over the same trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgs, err := parseConfigs(cmd.Flags(), &compareSizes, compareSpecs)
			if err != nil {
				return err
			}

			f, err := trace.Open(args[0])
			if err != nil {
				return err
			}
			events, err := f.ReadAll()
			f.Close()
			if err != nil {
				return err
			}

			results, err := sim.Compare(ctx, cfgs, events)
			if err != nil {
				return err
			}

			if err := report.Table(os.Stdout, results); err != nil {
				return err
			}

			if chartPath != "" {
				out, err := os.Create(chartPath)
				if err != nil {
					return err
				}
				defer out.Close()
				if err := report.Chart(out, args[0], results); err != nil {
					return err
				}
				fmt.Printf("Chart written to %s\n", chartPath)
			}
			return nil
		},
	}
	compareCmd.Flags().StringSliceVarP(&compareSpecs, "predictor", "p",
		[]string{"static", "gshare", "tournament", "bimodal", "custom:yags", "custom:path", "custom:skew", "custom:tage"},
		"Predictor specs to compare")
	compareCmd.Flags().StringVar(&chartPath, "chart", "", "Write an HTML bar chart to this file")
	addSizeFlags(compareCmd.Flags(), &compareSizes)

	// inspect command
	var inspectSpec string
	var dotPath string
	var inspectSizes sizeFlags

	inspectCmd := &cobra.Command{
		Use:   "inspect [trace]",
		Short: "Run a predictor over a trace and dump its final state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgs, err := parseConfigs(cmd.Flags(), &inspectSizes, []string{inspectSpec})
			if err != nil {
				return err
			}

			p, err := bpsim.NewPredictor(cfgs[0])
			if err != nil {
				return err
			}

			res, err := runFile(ctx, p, args[0])
			if err != nil {
				return err
			}
			if err := report.Summary(os.Stdout, res); err != nil {
				return err
			}

			fmt.Printf("Storage: %d bits\n", p.StorageBits())
			if t, ok := p.Variant().(*tage.Predictor); ok {
				printTAGEStats(t.Stats())
			}

			if logger.Len() > 0 {
				fmt.Println("Log:")
				logger.Tail(os.Stdout, 20)
			}

			if dotPath != "" {
				out, err := os.Create(dotPath)
				if err != nil {
					return err
				}
				defer out.Close()
				if err := report.Dot(out, p.Variant()); err != nil {
					return err
				}
				fmt.Printf("State written to %s\n", dotPath)
			}
			return nil
		},
	}
	inspectCmd.Flags().StringVarP(&inspectSpec, "predictor", "p", "gshare:8", "Predictor spec")
	inspectCmd.Flags().StringVar(&dotPath, "dot", "", "Write a graphviz dump of the predictor state to this file")
	addSizeFlags(inspectCmd.Flags(), &inspectSizes)

	// kinds command
	kindsCmd := &cobra.Command{
		Use:   "kinds",
		Short: "List predictor kinds and their default storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := []string{"static", "gshare", "tournament", "bimodal"}
			for _, d := range bpsim.Designs {
				specs = append(specs, "custom:"+d.String())
			}

			for _, spec := range specs {
				cfg, err := bpsim.ParseConfig(spec)
				if err != nil {
					return err
				}
				p, err := bpsim.NewPredictor(cfg)
				if err != nil {
					return err
				}
				fmt.Printf("  %-22s %8d bits\n", cfg, p.StorageBits())
			}
			fmt.Printf("Budget: %d bits\n", bpsim.DefaultStorageBudget)
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, compareCmd, inspectCmd, kindsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runFile streams a trace file through the predictor.
func runFile(ctx context.Context, p *bpsim.Predictor, filename string) (sim.Result, error) {
	f, err := trace.Open(filename)
	if err != nil {
		return sim.Result{}, err
	}
	defer f.Close()

	return sim.Run(ctx, p, f)
}

func printTAGEStats(s tage.Stats) {
	fmt.Printf("TAGE after %d branches\n", s.BranchCount)
	fmt.Printf("  %5s %6s %8s %7s %8s %8s\n", "table", "hist", "entries", "useful", "avg age", "avg ctr")
	for t := 0; t < tage.NumTables; t++ {
		fmt.Printf("  %5d %6d %8d %7d %8.2f %8.2f\n", t, tage.HistoryLengths[t],
			s.EntriesUsed[t], s.UsefulEntries[t], s.AverageAge[t], s.AverageCounter[t])
	}
}
