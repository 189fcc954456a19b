package machine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/rvsim/config"
)

// LoadStoreToHost is the to-host address used by rv32ui-p-ld_st, whose data
// section overlaps the usual location.
const LoadStoreToHost = 0x80002000

// DefaultPatterns select the user-level compliance images.
var DefaultPatterns = []string{"rv32ui-p-*", "rv32um-p-*", "rv32ua-p-*"}

// Result holds the outcome of one compliance image.
type Result struct {
	// Image is the path of the image.
	Image string
	// ToHost is the value the program wrote, 0 if it never did.
	ToHost uint32
	// Passed is true when ToHost == 1.
	Passed bool
	// Instructions is the number of steps executed, traps included.
	Instructions uint64
	// Cycles is the final mcycle value.
	Cycles uint64
	// WallTime is the host time spent running the image.
	WallTime time.Duration
	// Err is set when the image could not be loaded or never signalled.
	Err error
}

// FailedTest returns the riscv-tests case number encoded in a failing
// to-host value, or 0.
func (r Result) FailedTest() uint32 {
	if r.Passed || r.ToHost&1 == 0 {
		return 0
	}
	return r.ToHost >> 1
}

// Name returns the image file name.
func (r Result) Name() string {
	return filepath.Base(r.Image)
}

// ToHostFor returns the to-host address for an image.
func ToHostFor(image string, fallback uint32) uint32 {
	if strings.HasPrefix(filepath.Base(image), "rv32ui-p-ld_st") {
		return LoadStoreToHost
	}
	return fallback
}

// FindImages lists compliance images in dir matching patterns, skipping
// disassembly dumps and other files with an extension.
func FindImages(dir string, patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	var images []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("bad image pattern %q: %w", pattern, err)
		}

		for _, match := range matches {
			if filepath.Ext(match) != "" {
				continue
			}
			if info, err := os.Stat(match); err != nil || info.IsDir() {
				continue
			}
			images = append(images, match)
		}
	}

	sort.Strings(images)
	return images, nil
}

// RunImage runs a single image on a fresh machine.
func RunImage(ctx context.Context, cfg *config.Config, image string, logger *logrus.Logger) Result {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	result := Result{Image: image}
	m := New(cfg, io.Discard, logger)

	if _, err := m.Load(image); err != nil {
		result.Err = err
		return result
	}

	start := time.Now()
	result.ToHost, result.Err = m.RunCompliance(ctx, ToHostFor(image, cfg.ToHost))
	result.WallTime = time.Since(start)
	result.Passed = result.Err == nil && result.ToHost == 1
	result.Instructions = m.Hart().InstructionCount()
	result.Cycles = m.Hart().CSRs().Cycles()

	entry := logger.WithFields(logrus.Fields{
		"image":        result.Name(),
		"tohost":       result.ToHost,
		"instructions": result.Instructions,
		"cycles":       result.Cycles,
	})
	switch {
	case result.Passed:
		entry.Info("pass")
	case result.Err != nil:
		entry.WithError(result.Err).Warn("fail")
	default:
		entry.WithField("test", result.FailedTest()).Warn("fail")
	}

	return result
}

// RunAll runs images concurrently, at most cfg.Parallel at a time. Results
// are in image order. The returned error is non-nil only if ctx was
// cancelled.
func RunAll(ctx context.Context, cfg *config.Config, images []string, logger *logrus.Logger) ([]Result, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	results := make([]Result, len(images))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallel)

	for i, image := range images {
		i, image := i, image
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = RunImage(ctx, cfg, image, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	return results, ctx.Err()
}

// Summarize counts passing and failing results.
func Summarize(results []Result) (passed, failed int) {
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// PrintResults outputs results in a human-readable format.
func PrintResults(w io.Writer, results []Result) {
	for _, r := range results {
		status := "PASS"
		detail := ""
		switch {
		case r.Err != nil:
			status = "FAIL"
			detail = r.Err.Error()
		case !r.Passed:
			status = "FAIL"
			detail = fmt.Sprintf("test %d", r.FailedTest())
		}

		_, _ = fmt.Fprintf(w, "%-4s %-24s %10d insts %10d cycles %s\n",
			status, r.Name(), r.Instructions, r.Cycles, detail)
	}

	passed, failed := Summarize(results)
	_, _ = fmt.Fprintf(w, "\n%d passed, %d failed\n", passed, failed)
}

// PrintCSV outputs results in CSV format.
func PrintCSV(w io.Writer, results []Result) {
	_, _ = fmt.Fprintln(w, "name,passed,tohost,instructions,cycles,wall_time_ns")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s,%t,%d,%d,%d,%d\n",
			r.Name(),
			r.Passed,
			r.ToHost,
			r.Instructions,
			r.Cycles,
			r.WallTime.Nanoseconds(),
		)
	}
}
