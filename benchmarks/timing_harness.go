// Package benchmarks provides timing benchmark infrastructure for rvsim
// calibration.
package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/bus"
	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/machine"
	"github.com/sarchlab/rvsim/timing/core"
)

// Version is reported in JSON benchmark reports.
const Version = "0.1.0"

// DefaultMaxInstructions bounds a single benchmark run.
const DefaultMaxInstructions = 1_000_000

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the cycle model
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired counts every step, the exiting ecall included
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of cycles beyond one per instruction
	StallCycles uint64 `json:"stall_cycles"`

	// Redirects is the number of mispredicted next PCs
	Redirects uint64 `json:"redirects"`

	ICacheHits   uint64 `json:"icache_hits,omitempty"`
	ICacheMisses uint64 `json:"icache_misses,omitempty"`

	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// Branch predictor stats
	BranchPredictions     uint64  `json:"branch_predictions,omitempty"`
	BranchCorrect         uint64  `json:"branch_correct,omitempty"`
	BranchMispredictions  uint64  `json:"branch_mispredictions,omitempty"`
	BranchAccuracyPercent float64 `json:"branch_accuracy_percent,omitempty"`

	// ExitCode is a0 at the exiting ecall
	ExitCode uint32 `json:"exit_code"`

	// Error is set when the benchmark did not exit cleanly or exited with
	// the wrong code.
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Passed reports whether the benchmark exited with its expected code.
func (r BenchmarkResult) Passed() bool {
	return r.Error == ""
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares registers and memory after the program is loaded.
	Setup func(regFile *emu.RegFile, memory *bus.Bus) error

	// Program is RV32 machine code placed at the base of DRAM. It exits by
	// executing ecall with the result in a0.
	Program []byte

	// ExpectedExit is the expected value of a0 at exit
	ExpectedExit uint32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Timing configures the cycle model. Enabled is forced on.
	Timing core.Config

	// MaxInstructions bounds each run.
	MaxInstructions uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives per-benchmark records (default: the standard logger).
	Logger *logrus.Logger

	// Verbose logs each benchmark's statistics at info level.
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	timing := core.DefaultConfig()
	timing.Enabled = true

	return HarnessConfig{
		Timing:          timing,
		MaxInstructions: DefaultMaxInstructions,
		Output:          os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(hc HarnessConfig) *Harness {
	if hc.Output == nil {
		hc.Output = os.Stdout
	}
	if hc.Logger == nil {
		hc.Logger = logrus.StandardLogger()
	}
	if hc.MaxInstructions == 0 {
		hc.MaxInstructions = DefaultMaxInstructions
	}
	hc.Timing = hc.Timing.Clone()
	hc.Timing.Enabled = true

	return &Harness{
		config:     hc,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks in order. It stops early only when ctx is
// cancelled.
func (h *Harness) RunAll(ctx context.Context) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, h.runBenchmark(ctx, bench))
	}

	return results, nil
}

// runBenchmark executes a single benchmark on a fresh machine.
func (h *Harness) runBenchmark(ctx context.Context, bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	cfg := config.Default()
	cfg.Timing = h.config.Timing
	cfg.MaxInstructions = h.config.MaxInstructions

	m := machine.New(cfg, nil, h.config.Logger)

	start := time.Now()
	exitCode, err := h.execute(ctx, m, bench)
	result.WallTime = time.Since(start)
	result.ExitCode = exitCode

	switch {
	case err != nil:
		result.Error = err.Error()
	case exitCode != bench.ExpectedExit:
		result.Error = fmt.Sprintf("exit code %d, want %d", exitCode, bench.ExpectedExit)
	}

	stats := m.Model().Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.StallCycles = stats.Stalls
	result.Redirects = stats.Redirects
	result.ICacheHits = stats.ICache.Hits
	result.ICacheMisses = stats.ICache.Misses
	result.DCacheHits = stats.DCache.Hits
	result.DCacheMisses = stats.DCache.Misses
	result.BranchPredictions = stats.Branch.Predictions
	result.BranchCorrect = stats.Branch.Correct
	result.BranchMispredictions = stats.Branch.Mispredictions
	result.BranchAccuracyPercent = stats.Branch.Accuracy()

	entry := h.config.Logger.WithFields(logrus.Fields{
		"benchmark": result.Name,
		"cycles":    result.SimulatedCycles,
		"insts":     result.InstructionsRetired,
		"cpi":       fmt.Sprintf("%.3f", result.CPI),
	})
	switch {
	case result.Error != "":
		entry.WithField("error", result.Error).Warn("benchmark failed")
	case h.config.Verbose:
		entry.Info("benchmark done")
	default:
		entry.Debug("benchmark done")
	}

	return result
}

// execute loads bench and steps the hart until it executes ecall from
// M-mode. Any other trap is a failure.
func (h *Harness) execute(ctx context.Context, m *machine.Machine, bench Benchmark) (uint32, error) {
	prog := &loader.Program{
		EntryPoint: bus.DRAMBase,
		Segments: []loader.Segment{{
			Addr:    bus.DRAMBase,
			Data:    bench.Program,
			MemSize: uint32(len(bench.Program)),
			Flags:   loader.SegmentFlagRead | loader.SegmentFlagExecute,
		}},
	}
	if err := m.LoadProgram(prog); err != nil {
		return 0, err
	}

	hart := m.Hart()
	if bench.Setup != nil {
		if err := bench.Setup(hart.RegFile(), m.Bus()); err != nil {
			return 0, fmt.Errorf("setup: %w", err)
		}
	}

	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		step := hart.Step()
		if step.Err != nil {
			return hart.RegFile().ReadReg(RegA0), step.Err
		}
		if step.Trap == nil {
			continue
		}

		exitCode := hart.RegFile().ReadReg(RegA0)
		if step.Trap.Cause != emu.CauseEnvironmentCallFromM {
			return exitCode, fmt.Errorf("unexpected trap at 0x%08x: %w", step.PC, step.Trap)
		}
		return exitCode, nil
	}
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out, "=== rvsim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(out, "  Exit Code: %d\n", r.ExitCode)
		if r.Error != "" {
			_, _ = fmt.Fprintf(out, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(out, "  --- Timing ---")
		_, _ = fmt.Fprintf(out, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(out, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(out, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(out, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(out, "  Redirects:            %d\n", r.Redirects)

		if r.ICacheHits > 0 || r.ICacheMisses > 0 {
			_, _ = fmt.Fprintln(out, "  --- I-Cache ---")
			_, _ = fmt.Fprintf(out, "  Hits:   %d\n", r.ICacheHits)
			_, _ = fmt.Fprintf(out, "  Misses: %d\n", r.ICacheMisses)
		}

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(out, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(out, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(out, "  Misses: %d\n", r.DCacheMisses)
		}

		if r.BranchPredictions > 0 {
			_, _ = fmt.Fprintln(out, "  --- Branch Predictor ---")
			_, _ = fmt.Fprintf(out, "  Predictions:     %d\n", r.BranchPredictions)
			_, _ = fmt.Fprintf(out, "  Correct:         %d\n", r.BranchCorrect)
			_, _ = fmt.Fprintf(out, "  Mispredictions:  %d\n", r.BranchMispredictions)
			_, _ = fmt.Fprintf(out, "  Accuracy:        %.1f%%\n", r.BranchAccuracyPercent)
		}

		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,redirects,icache_hits,icache_misses,dcache_hits,dcache_misses,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.Redirects,
			r.ICacheHits,
			r.ICacheMisses,
			r.DCacheHits,
			r.DCacheMisses,
			r.ExitCode,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the cycle model used.
type BenchmarkConfig struct {
	ICacheSize        int    `json:"icache_size"`
	DCacheSize        int    `json:"dcache_size"`
	MissLatency       uint64 `json:"miss_latency"`
	MispredictPenalty uint64 `json:"mispredict_penalty"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Failed is the number of benchmarks that did not exit as expected
	Failed int `json:"failed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is total cycles over total instructions
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates results.
func Summarize(results []BenchmarkResult) ReportSummary {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		summary.TotalWallTime += r.WallTime
		if !r.Passed() {
			summary.Failed++
		}
	}

	if summary.TotalInstructions > 0 {
		summary.AverageCPI = float64(summary.TotalCycles) / float64(summary.TotalInstructions)
	}

	return summary
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	timing := h.config.Timing

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config: BenchmarkConfig{
				ICacheSize:        timing.ICache.Size,
				DCacheSize:        timing.DCache.Size,
				MissLatency:       timing.DCache.MissLatency,
				MispredictPenalty: timing.BranchPredictor.MispredictPenalty,
			},
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
