package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/machine"
)

// escapeByte (Ctrl-]) ends an interactive session while stdin is raw.
const escapeByte = 0x1d

// Run implements subcommands.Command for the "run" command.
type Run struct {
	maxInstructions uint64
	timing          bool
	stats           bool
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "boot an image with the UART attached to the terminal"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <image> - boot an ELF or Intel HEX image.

Guest console output goes to stdout and stdin feeds the UART. When stdin
is a terminal it is put in raw mode; press Ctrl-] to quit.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&r.maxInstructions, "max", 0, "stop after this many instructions (0 = unlimited)")
	f.BoolVar(&r.timing, "timing", false, "enable the cycle model")
	f.BoolVar(&r.stats, "stats", false, "print execution statistics on exit")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	base, logger := env(args)
	cfg := base.Clone()
	cfg.MaxInstructions = r.maxInstructions
	cfg.Timing.Enabled = cfg.Timing.Enabled || r.timing

	m := machine.New(cfg, os.Stdout, logger)
	if _, err := m.Load(f.Arg(0)); err != nil {
		logger.WithError(err).Error("failed to load image")
		return subcommands.ExitFailure
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var in io.Reader = os.Stdin
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			logger.WithError(err).Error("failed to set raw mode")
			return subcommands.ExitFailure
		}
		defer func() { _ = term.Restore(fd, state) }()
		in = &escapeReader{r: os.Stdin, cancel: cancel}
	}

	err := runConsole(ctx, cancel, m, in)
	if r.stats {
		printStats(os.Stderr, m)
	}

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return subcommands.ExitSuccess
	case errors.Is(err, emu.ErrInstructionLimit):
		logger.WithField("instructions", m.Hart().InstructionCount()).Info("instruction limit reached")
		return subcommands.ExitSuccess
	default:
		logger.WithError(err).Error("run failed")
		return subcommands.ExitFailure
	}
}

// runConsole runs the hart and the UART receiver until the hart stops or ctx
// is cancelled.
func runConsole(ctx context.Context, cancel context.CancelFunc, m *machine.Machine, in io.Reader) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return m.Run(ctx, nil)
	})

	g.Go(func() error {
		// A blocked read on in cannot be interrupted; leave it behind once
		// the hart is done.
		done := make(chan error, 1)
		go func() { done <- m.UART().Start(ctx, in) }()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return nil
		}
	})

	return g.Wait()
}

func printStats(w io.Writer, m *machine.Machine) {
	hart := m.Hart()
	_, _ = fmt.Fprintf(w, "\r\ninstructions: %d\r\n", hart.InstructionCount())
	_, _ = fmt.Fprintf(w, "cycles:       %d\r\n", hart.CSRs().Cycles())
	_, _ = fmt.Fprintf(w, "pc:           0x%08x (%s)\r\n", hart.RegFile().PC, hart.Privilege())

	if model := m.Model(); model != nil {
		stats := model.Stats()
		_, _ = fmt.Fprintf(w, "cpi:          %.3f\r\n", stats.CPI())
		_, _ = fmt.Fprintf(w, "icache:       %d hits, %d misses\r\n", stats.ICache.Hits, stats.ICache.Misses)
		_, _ = fmt.Fprintf(w, "dcache:       %d hits, %d misses\r\n", stats.DCache.Hits, stats.DCache.Misses)
	}
}

// escapeReader passes bytes through until it sees escapeByte, then cancels
// the session and reports EOF.
type escapeReader struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (e *escapeReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	for i := 0; i < n; i++ {
		if p[i] == escapeByte {
			e.cancel()
			return i, io.EOF
		}
	}
	return n, err
}
