package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/sarchlab/rvsim/machine"
)

// Test implements subcommands.Command for the "test" command.
type Test struct {
	dir      string
	csv      bool
	parallel int
	timing   bool
}

// Name implements subcommands.Command.Name.
func (*Test) Name() string {
	return "test"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Test) Synopsis() string {
	return "run riscv-tests compliance images"
}

// Usage implements subcommands.Command.Usage.
func (*Test) Usage() string {
	return `test [flags] [image|pattern]... - run compliance images.

With no arguments, runs the rv32ui/um/ua physical-memory images found in
-dir. Arguments are image paths or glob patterns relative to -dir.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (t *Test) SetFlags(f *flag.FlagSet) {
	dir := os.Getenv("RVSIM_TESTS")
	if dir == "" {
		dir = filepath.Join("testdata", "rv_tests")
	}

	f.StringVar(&t.dir, "dir", dir, "directory holding compliance images (default from RVSIM_TESTS)")
	f.BoolVar(&t.csv, "csv", false, "print results as CSV")
	f.IntVar(&t.parallel, "parallel", 0, "images to run concurrently (overrides the config)")
	f.BoolVar(&t.timing, "timing", false, "enable the cycle model")
}

// Execute implements subcommands.Command.Execute.
func (t *Test) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	base, logger := env(args)
	cfg := base.Clone()
	if t.parallel > 0 {
		cfg.Parallel = t.parallel
	}
	cfg.Timing.Enabled = cfg.Timing.Enabled || t.timing

	images, err := t.images(f.Args())
	if err != nil {
		logger.WithError(err).Error("failed to find images")
		return subcommands.ExitUsageError
	}
	if len(images) == 0 {
		logger.WithField("dir", t.dir).Error("no compliance images found")
		return subcommands.ExitFailure
	}

	results, err := machine.RunAll(ctx, cfg, images, logger)
	if err != nil {
		logger.WithError(err).Error("test run interrupted")
		return subcommands.ExitFailure
	}

	if t.csv {
		machine.PrintCSV(os.Stdout, results)
	} else {
		machine.PrintResults(os.Stdout, results)
	}

	if _, failed := machine.Summarize(results); failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// images resolves command line arguments. Existing files are taken as is;
// anything else is a pattern under the test directory.
func (t *Test) images(args []string) ([]string, error) {
	if len(args) == 0 {
		return machine.FindImages(t.dir)
	}

	var images, patterns []string
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			images = append(images, arg)
		} else {
			patterns = append(patterns, arg)
		}
	}

	if len(patterns) > 0 {
		found, err := machine.FindImages(t.dir, patterns...)
		if err != nil {
			return nil, err
		}
		images = append(images, found...)
	}

	return images, nil
}
