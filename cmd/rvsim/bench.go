package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/sarchlab/rvsim/benchmarks"
)

// Bench implements subcommands.Command for the "bench" command.
type Bench struct {
	csv     bool
	json    bool
	core    bool
	verbose bool
}

// Name implements subcommands.Command.Name.
func (*Bench) Name() string {
	return "bench"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Bench) Synopsis() string {
	return "run the timing microbenchmarks"
}

// Usage implements subcommands.Command.Usage.
func (*Bench) Usage() string {
	return `bench [flags] - run the timing microbenchmarks with the cycle model on.

Latencies, caches and the branch predictor come from the [timing] section of
the config; timing.enabled is implied.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (b *Bench) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&b.csv, "csv", false, "print results as CSV")
	f.BoolVar(&b.json, "json", false, "print results as a JSON report")
	f.BoolVar(&b.core, "core", false, "run only the loop, matrix and branch benchmarks")
	f.BoolVar(&b.verbose, "v", false, "log each benchmark as it finishes")
}

// Execute implements subcommands.Command.Execute.
func (b *Bench) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg, logger := env(args)
	if b.csv && b.json {
		logger.Error("-csv and -json are mutually exclusive")
		return subcommands.ExitUsageError
	}

	status, err := b.run(ctx, os.Stdout, benchmarks.HarnessConfig{
		Timing:          cfg.Timing,
		MaxInstructions: benchmarks.DefaultMaxInstructions,
		Logger:          logger,
		Verbose:         b.verbose,
	})
	if err != nil {
		logger.WithError(err).Error("benchmark run failed")
	}
	return status
}

func (b *Bench) run(ctx context.Context, w io.Writer, hc benchmarks.HarnessConfig) (subcommands.ExitStatus, error) {
	hc.Output = w
	harness := benchmarks.NewHarness(hc)
	if b.core {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	results, err := harness.RunAll(ctx)
	if err != nil {
		return subcommands.ExitFailure, err
	}

	switch {
	case b.json:
		if err := harness.PrintJSON(results); err != nil {
			return subcommands.ExitFailure, err
		}
	case b.csv:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	if benchmarks.Summarize(results).Failed > 0 {
		return subcommands.ExitFailure, nil
	}
	return subcommands.ExitSuccess, nil
}
