package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/meshguard/epigenetic-policy-engine/internal/coordinator"
	"github.com/meshguard/epigenetic-policy-engine/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to a replay fixture JSON file")
	window := flag.Int("window", 100, "moving-average window size for the convergence report")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--window N]")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(2)
	}

	cfg := f.Config
	if cfg.Agent.EpsilonDecayEpisodes == 0 {
		cfg = coordinator.DefaultConfig()
	}
	c := coordinator.New(cfg)

	results := replay.Replay(c, f.ToInteractions())
	summary := replay.Summarize(results, *window)

	printSummary(f.Description, summary)
	if len(summary.WindowedErrorRates) >= 2 {
		first := summary.WindowedErrorRates[0]
		last := summary.WindowedErrorRates[len(summary.WindowedErrorRates)-1]
		if last > first {
			fmt.Fprintf(os.Stderr, "\nconvergence check FAILED: error rate rose from %.3f to %.3f\n", first, last)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region output

func printSummary(description string, s replay.Summary) {
	if description != "" {
		fmt.Printf("%s\n\n", description)
	}
	fmt.Printf("Total turns:      %d\n", s.TotalTurns)
	fmt.Printf("True positives:   %d\n", s.TruePositives)
	fmt.Printf("True negatives:   %d\n", s.TrueNegatives)
	fmt.Printf("False positives:  %d\n", s.FalsePositives)
	fmt.Printf("False negatives:  %d\n", s.FalseNegatives)
	fmt.Println()
	fmt.Println("Windowed error rate (should trend non-increasing):")
	for i, rate := range s.WindowedErrorRates {
		fmt.Printf("  window %3d: %.4f\n", i+1, rate)
	}
}

// #endregion output
