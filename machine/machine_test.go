package machine_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/machine"
)

var _ = Describe("Machine", func() {
	var (
		dir string
		cfg *config.Config
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		cfg = config.Default()
	})

	passing := func() []uint32 {
		return append([]uint32{0x00100093}, writeToHost...) // addi x1, x0, 1
	}

	Describe("RunCompliance", func() {
		It("should return the to-host value", func(ctx SpecContext) {
			m := machine.New(cfg, nil, quietLogger())
			prog, err := m.Load(writeImage(dir, "pass", passing()))
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint32(0x80000000)))

			value, err := m.RunCompliance(ctx, cfg.ToHost)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(uint32(1)))
			Expect(m.Hart().InstructionCount()).To(Equal(uint64(3)))
		})

		It("should report ErrNoSignal when the budget runs out", func(ctx SpecContext) {
			cfg.MaxInstructions = 100
			m := machine.New(cfg, nil, quietLogger())
			_, err := m.Load(writeImage(dir, "spin", []uint32{spin}))
			Expect(err).NotTo(HaveOccurred())

			_, err = m.RunCompliance(ctx, cfg.ToHost)
			Expect(errors.Is(err, machine.ErrNoSignal)).To(BeTrue())
			Expect(m.Hart().InstructionCount()).To(Equal(uint64(100)))
		})

		It("should deliver traps through mtvec", func(ctx SpecContext) {
			words := []uint32{
				0x800002B7, // lui x5, 0x80000
				0x02028293, // addi x5, x5, 32
				0x30529073, // csrw mtvec, x5
				0x00000073, // ecall
				nop, nop, nop, nop,
				0x34202373, // csrr x6, mcause
				0xFF630313, // addi x6, x6, -10
				0x80001137, // lui x2, 0x80001
				0x00612023, // sw x6, 0(x2)
				spin,
			}

			m := machine.New(cfg, nil, quietLogger())
			_, err := m.Load(writeImage(dir, "ecall", words))
			Expect(err).NotTo(HaveOccurred())

			value, err := m.RunCompliance(ctx, cfg.ToHost)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(uint32(1)))
			Expect(m.Hart().CSRs().Read(emu.CSRMEPC, emu.Machine)).To(Equal(uint32(0x8000000C)))
		})

		It("should write guest output to the console", func(ctx SpecContext) {
			words := append([]uint32{
				0x100001B7, // lui x3, 0x10000
				0x04800213, // addi x4, x0, 'H'
				0x00418023, // sb x4, 0(x3)
				0x00100093, // addi x1, x0, 1
			}, writeToHost...)

			var console bytes.Buffer
			m := machine.New(cfg, &console, quietLogger())
			_, err := m.Load(writeImage(dir, "hello", words))
			Expect(err).NotTo(HaveOccurred())

			_, err = m.RunCompliance(ctx, cfg.ToHost)
			Expect(err).NotTo(HaveOccurred())
			Expect(console.String()).To(Equal("H"))
		})

		It("should stop on cancellation", func() {
			m := machine.New(cfg, nil, quietLogger())
			Expect(m.LoadProgram(&loader.Program{EntryPoint: 0x80000000})).To(Succeed())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := m.RunCompliance(ctx, cfg.ToHost)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("Timing", func() {
		It("should leave the model off by default", func() {
			m := machine.New(cfg, nil, quietLogger())
			Expect(m.Model()).To(BeNil())
		})

		It("should charge cache and latency cycles when enabled", func(ctx SpecContext) {
			cfg.Timing.Enabled = true
			result := machine.RunImage(ctx, cfg, writeImage(dir, "rv32ui-p-timed", passing()), quietLogger())

			Expect(result.Passed).To(BeTrue())
			Expect(result.Cycles).To(BeNumerically(">", result.Instructions))
		})
	})

	Describe("RunImage", func() {
		It("should pass a program that writes 1", func(ctx SpecContext) {
			result := machine.RunImage(ctx, cfg, writeImage(dir, "rv32ui-p-ok", passing()), quietLogger())

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Passed).To(BeTrue())
			Expect(result.Name()).To(Equal("rv32ui-p-ok"))
			Expect(result.Instructions).To(Equal(uint64(3)))
			Expect(result.Cycles).To(Equal(uint64(3)))
			Expect(result.FailedTest()).To(BeZero())
		})

		It("should decode the failing test number", func(ctx SpecContext) {
			words := append([]uint32{0x00700093}, writeToHost...) // addi x1, x0, 7
			result := machine.RunImage(ctx, cfg, writeImage(dir, "rv32ui-p-bad", words), quietLogger())

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Passed).To(BeFalse())
			Expect(result.ToHost).To(Equal(uint32(7)))
			Expect(result.FailedTest()).To(Equal(uint32(3)))
		})

		It("should not pass a corrupted image", func(ctx SpecContext) {
			path := filepath.Join(dir, "rv32ui-p-corrupt")
			Expect(os.WriteFile(path, []byte("\x7fELF garbage"), 0644)).To(Succeed())

			result := machine.RunImage(ctx, cfg, path, quietLogger())
			Expect(result.Err).To(HaveOccurred())
			Expect(result.Passed).To(BeFalse())
		})
	})

	Describe("RunAll", func() {
		It("should run images in parallel and keep their order", func(ctx SpecContext) {
			cfg.Parallel = 2
			cfg.MaxInstructions = 1000
			images := []string{
				writeImage(dir, "rv32ui-p-a", passing()),
				writeImage(dir, "rv32ui-p-b", []uint32{spin}),
				writeImage(dir, "rv32ui-p-c", passing()),
			}

			results, err := machine.RunAll(ctx, cfg, images, quietLogger())
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].Passed).To(BeTrue())
			Expect(results[1].Passed).To(BeFalse())
			Expect(errors.Is(results[1].Err, machine.ErrNoSignal)).To(BeTrue())
			Expect(results[2].Name()).To(Equal("rv32ui-p-c"))

			passed, failed := machine.Summarize(results)
			Expect(passed).To(Equal(2))
			Expect(failed).To(Equal(1))
		})

		It("should return the cancellation error", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := machine.RunAll(ctx, cfg, []string{writeImage(dir, "rv32ui-p-a", passing())}, quietLogger())
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("Reports", func() {
		results := []machine.Result{
			{Image: "/x/rv32ui-p-add", ToHost: 1, Passed: true, Instructions: 10, Cycles: 12},
			{Image: "/x/rv32ui-p-sub", ToHost: 5, Instructions: 4, Cycles: 4},
		}

		It("should print a summary", func() {
			var out bytes.Buffer
			machine.PrintResults(&out, results)

			Expect(out.String()).To(ContainSubstring("PASS rv32ui-p-add"))
			Expect(out.String()).To(ContainSubstring("FAIL rv32ui-p-sub"))
			Expect(out.String()).To(ContainSubstring("test 2"))
			Expect(out.String()).To(ContainSubstring("1 passed, 1 failed"))
		})

		It("should print CSV", func() {
			var out bytes.Buffer
			machine.PrintCSV(&out, results)

			Expect(out.String()).To(HavePrefix("name,passed,tohost"))
			Expect(out.String()).To(ContainSubstring("rv32ui-p-add,true,1,10,12,0\n"))
		})
	})

	Describe("Images", func() {
		It("should use the ld_st to-host override", func() {
			Expect(machine.ToHostFor("/t/rv32ui-p-ld_st", config.DefaultToHost)).
				To(Equal(uint32(machine.LoadStoreToHost)))
			Expect(machine.ToHostFor("/t/rv32ui-p-add", config.DefaultToHost)).
				To(Equal(uint32(config.DefaultToHost)))
		})

		It("should find user-level images", func() {
			for _, name := range []string{"rv32ui-p-add", "rv32ui-p-add.dump", "rv32um-p-mul", "rv32si-p-csr"} {
				Expect(os.WriteFile(filepath.Join(dir, name), nil, 0644)).To(Succeed())
			}
			Expect(os.Mkdir(filepath.Join(dir, "rv32ua-p-dir"), 0755)).To(Succeed())

			images, err := machine.FindImages(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(images).To(Equal([]string{
				filepath.Join(dir, "rv32ui-p-add"),
				filepath.Join(dir, "rv32um-p-mul"),
			}))
		})
	})

	Describe("riscv-tests", func() {
		It("should pass every user-level image", func(ctx SpecContext) {
			testDir := os.Getenv("RVSIM_TESTS")
			if testDir == "" {
				testDir = filepath.Join("..", "testdata", "rv_tests")
			}

			images, err := machine.FindImages(testDir)
			Expect(err).NotTo(HaveOccurred())
			if len(images) == 0 {
				Skip("no compliance images in " + testDir)
			}

			results, err := machine.RunAll(ctx, config.Default(), images, quietLogger())
			Expect(err).NotTo(HaveOccurred())
			for _, r := range results {
				Expect(r.Passed).To(BeTrue(), "%s: tohost=%d err=%v", r.Name(), r.ToHost, r.Err)
			}
		}, SpecTimeout(5*time.Minute))
	})
})
