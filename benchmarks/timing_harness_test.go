package benchmarks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/benchmarks"
	"github.com/sarchlab/rvsim/bus"
	"github.com/sarchlab/rvsim/emu"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func byName(name string) benchmarks.Benchmark {
	for _, b := range benchmarks.GetMicrobenchmarks() {
		if b.Name == name {
			return b
		}
	}
	Fail("no benchmark named " + name)
	return benchmarks.Benchmark{}
}

var _ = Describe("Harness", func() {
	var (
		out     *bytes.Buffer
		config  benchmarks.HarnessConfig
		harness *benchmarks.Harness
	)

	run := func(bs ...benchmarks.Benchmark) []benchmarks.BenchmarkResult {
		harness = benchmarks.NewHarness(config)
		harness.AddBenchmarks(bs)
		results, err := harness.RunAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(len(bs)))
		return results
	}

	BeforeEach(func() {
		out = &bytes.Buffer{}
		config = benchmarks.DefaultConfig()
		config.Output = out
		config.Logger = quietLogger()
	})

	It("should run every microbenchmark to its expected exit code", func() {
		all := benchmarks.GetMicrobenchmarks()
		results := run(all...)

		for i, r := range results {
			Expect(r.Name).To(Equal(all[i].Name))
			Expect(r.Error).To(BeEmpty(), r.Name)
			Expect(r.Passed()).To(BeTrue(), r.Name)
			Expect(r.ExitCode).To(Equal(all[i].ExpectedExit), r.Name)
			Expect(r.SimulatedCycles).To(BeNumerically(">", r.InstructionsRetired), r.Name)
			Expect(r.CPI).To(BeNumerically(">", 1.0), r.Name)
		}
	})

	DescribeTable("counts every step including the exiting ecall",
		func(name string, expected uint64) {
			r := run(byName(name))[0]
			Expect(r.InstructionsRetired).To(Equal(expected))
		},
		Entry("arithmetic_sequential", "arithmetic_sequential", uint64(21)),
		Entry("dependency_chain", "dependency_chain", uint64(21)),
		Entry("memory_sequential", "memory_sequential", uint64(21)),
		Entry("function_calls", "function_calls", uint64(16)),
		Entry("branch_taken", "branch_taken", uint64(21)),
		Entry("mixed_operations", "mixed_operations", uint64(11)),
		Entry("matrix_multiply_2x2", "matrix_multiply_2x2", uint64(28)),
		Entry("loop_simulation", "loop_simulation", uint64(303)),
		Entry("atomic_increment", "atomic_increment", uint64(13)),
	)

	It("should keep sequential words in one data block", func() {
		r := run(byName("memory_sequential"))[0]

		Expect(r.DCacheMisses).To(Equal(uint64(1)))
		Expect(r.DCacheHits).To(Equal(uint64(19)))
		Expect(r.ICacheMisses).To(Equal(uint64(2)))
		Expect(r.ICacheHits).To(Equal(uint64(19)))
	})

	It("should learn the loop-closing branch", func() {
		r := run(byName("loop_simulation"))[0]

		Expect(r.BranchPredictions).To(Equal(uint64(100)))
		Expect(r.BranchCorrect).To(Equal(uint64(99)))
		Expect(r.BranchMispredictions).To(Equal(uint64(1)))
		Expect(r.Redirects).To(Equal(uint64(2)))
		Expect(r.BranchAccuracyPercent).To(BeNumerically("~", 99.0, 0.01))
	})

	It("should redirect on every first-seen taken branch", func() {
		r := run(byName("branch_taken"))[0]

		Expect(r.BranchPredictions).To(Equal(uint64(10)))
		Expect(r.BranchMispredictions).To(BeZero())
		Expect(r.Redirects).To(Equal(uint64(10)))
	})

	It("should charge the mispredict penalty per redirect", func() {
		base := run(byName("branch_taken"))[0]

		config.Timing.BranchPredictor.MispredictPenalty = 12
		slow := run(byName("branch_taken"))[0]

		Expect(slow.SimulatedCycles - base.SimulatedCycles).To(Equal(10 * uint64(10)))
	})

	It("should report a wrong exit code", func() {
		b := byName("dependency_chain")
		b.ExpectedExit = 21

		r := run(b)[0]
		Expect(r.Passed()).To(BeFalse())
		Expect(r.ExitCode).To(Equal(uint32(20)))
		Expect(r.Error).To(Equal("exit code 20, want 21"))
	})

	It("should report traps other than ecall", func() {
		r := run(benchmarks.Benchmark{
			Name:    "illegal",
			Program: benchmarks.BuildProgram(benchmarks.EncodeADDI(benchmarks.RegA0, 0, 1), 0xFFFFFFFF),
		})[0]

		Expect(r.Error).To(HavePrefix("unexpected trap at 0x80000004"))
		Expect(r.Error).To(ContainSubstring("illegal instruction"))
		Expect(r.ExitCode).To(Equal(uint32(1)))
	})

	It("should stop a runaway program at the instruction budget", func() {
		config.MaxInstructions = 100

		r := run(benchmarks.Benchmark{
			Name:    "spin",
			Program: benchmarks.BuildProgram(benchmarks.EncodeJAL(benchmarks.RegZero, 0)),
		})[0]

		Expect(r.Error).To(Equal(emu.ErrInstructionLimit.Error()))
		Expect(r.InstructionsRetired).To(Equal(uint64(100)))
	})

	It("should report setup failures", func() {
		r := run(benchmarks.Benchmark{
			Name:    "bad_setup",
			Program: benchmarks.BuildProgram(benchmarks.EncodeECALL()),
			Setup: func(*emu.RegFile, *bus.Bus) error {
				return errors.New("no scratch memory")
			},
		})[0]

		Expect(r.Error).To(Equal("setup: no scratch memory"))
	})

	It("should stop when the context is cancelled", func() {
		harness = benchmarks.NewHarness(config)
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results, err := harness.RunAll(ctx)
		Expect(err).To(MatchError(context.Canceled))
		Expect(results).To(BeEmpty())
	})

	Describe("reports", func() {
		var results []benchmarks.BenchmarkResult

		BeforeEach(func() {
			results = run(benchmarks.GetCoreBenchmarks()...)
		})

		It("should print a readable report", func() {
			harness.PrintResults(results)

			text := out.String()
			Expect(text).To(HavePrefix("=== rvsim Timing Benchmark Results ==="))
			Expect(text).To(ContainSubstring("Benchmark: loop_simulation"))
			Expect(text).To(ContainSubstring("Exit Code: 5050"))
			Expect(text).To(ContainSubstring("--- Branch Predictor ---"))
			Expect(text).NotTo(ContainSubstring("Error:"))
		})

		It("should print one CSV row per benchmark", func() {
			harness.PrintCSV(results)

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			Expect(lines).To(HaveLen(4))
			Expect(lines[0]).To(HavePrefix("name,cycles,instructions,cpi"))
			Expect(lines[1]).To(HavePrefix("loop_simulation,"))
			Expect(lines[1]).To(HaveSuffix(",5050"))
		})

		It("should print a JSON report with a summary", func() {
			Expect(harness.PrintJSON(results)).To(Succeed())

			var report benchmarks.BenchmarkReport
			Expect(json.Unmarshal(out.Bytes(), &report)).To(Succeed())
			Expect(report.Metadata.Version).To(Equal(benchmarks.Version))
			Expect(report.Metadata.Config.MispredictPenalty).To(Equal(uint64(2)))
			Expect(report.Results).To(HaveLen(3))
			Expect(report.Summary.TotalBenchmarks).To(Equal(3))
			Expect(report.Summary.Failed).To(BeZero())
			Expect(report.Summary.TotalInstructions).To(Equal(
				results[0].InstructionsRetired + results[1].InstructionsRetired + results[2].InstructionsRetired))
		})
	})

	It("should summarize failures and average CPI", func() {
		summary := benchmarks.Summarize([]benchmarks.BenchmarkResult{
			{SimulatedCycles: 30, InstructionsRetired: 10},
			{SimulatedCycles: 10, InstructionsRetired: 10, Error: "boom"},
		})

		Expect(summary.TotalBenchmarks).To(Equal(2))
		Expect(summary.Failed).To(Equal(1))
		Expect(summary.AverageCPI).To(Equal(2.0))
	})
})
