package benchmarks

import (
	"github.com/sarchlab/rvsim/bus"
	"github.com/sarchlab/rvsim/emu"
)

// DataBase is the scratch area microbenchmarks load from and store to.
const DataBase uint32 = bus.DRAMBase + 0x10000

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific CPU characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		mixedOperations(),
		matrixMultiply2x2(),
		loopSimulation(),
		atomicIncrement(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: a loop, a matrix multiply and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSimulation(),
		matrixMultiply2x2(),
		branchTaken(),
	}
}

func setBase(regFile *emu.RegFile, _ *bus.Bus) error {
	regFile.WriteReg(RegA1, DataBase)
	return nil
}

// 1. Arithmetic Sequential - Tests ALU throughput with independent operations
func arithmeticSequential() Benchmark {
	instrs := make([]uint32, 0, 21)
	for i := 0; i < 4; i++ {
		instrs = append(instrs,
			EncodeADDI(RegA0, RegA0, 1),
			EncodeADDI(RegA1, RegA1, 1),
			EncodeADDI(RegA2, RegA2, 1),
			EncodeADDI(RegA3, RegA3, 1),
			EncodeADDI(RegA4, RegA4, 1),
		)
	}
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 independent ADDIs over 5 registers - measures ALU throughput",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 4,
	}
}

// 2. Dependency Chain - Tests instruction latency with RAW hazards
func dependencyChain() Benchmark {
	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs (a0 = a0 + 1) - measures back-to-back latency",
		Program:      buildDependencyChain(20),
		ExpectedExit: 20,
	}
}

func buildDependencyChain(n int) []byte {
	instrs := make([]uint32, 0, n+1)
	for i := 0; i < n; i++ {
		instrs = append(instrs, EncodeADDI(RegA0, RegA0, 1))
	}
	instrs = append(instrs, EncodeECALL())
	return BuildProgram(instrs...)
}

// 3. Memory Sequential - Tests cache/memory performance
func memorySequential() Benchmark {
	instrs := make([]uint32, 0, 21)
	for i := int32(0); i < 10; i++ {
		instrs = append(instrs,
			EncodeSW(RegA0, RegA1, 4*i),
			EncodeLW(RegA0, RegA1, 4*i),
		)
	}
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:        "memory_sequential",
		Description: "10 store/load pairs to sequential words - measures memory latency",
		Setup: func(regFile *emu.RegFile, _ *bus.Bus) error {
			regFile.WriteReg(RegA1, DataBase)
			regFile.WriteReg(RegA0, 42)
			return nil
		},
		Program:      BuildProgram(instrs...),
		ExpectedExit: 42,
	}
}

// 4. Function Calls - Tests JAL/RET overhead
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "5 function calls (JAL + RET pairs) - measures call overhead",
		Program: BuildProgram(
			// main: call add_one 5 times
			EncodeJAL(RegRA, 24),
			EncodeJAL(RegRA, 20),
			EncodeJAL(RegRA, 16),
			EncodeJAL(RegRA, 12),
			EncodeJAL(RegRA, 8),
			EncodeECALL(),

			// add_one
			EncodeADDI(RegA0, RegA0, 1),
			EncodeRET(),
		),
		ExpectedExit: 5,
	}
}

// 5. Branch Taken - Tests taken conditional branches
func branchTaken() Benchmark {
	instrs := make([]uint32, 0, 31)
	for i := 0; i < 10; i++ {
		instrs = append(instrs,
			EncodeBEQ(RegZero, RegZero, 8),
			EncodeADDI(RegA0, RegA0, 100), // skipped
			EncodeADDI(RegA0, RegA0, 1),
		)
	}
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:         "branch_taken",
		Description:  "10 always-taken forward BEQs - measures branch redirect cost",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 10,
	}
}

// 6. Mixed Operations - ALU, M-extension, memory and a branch
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "ALU, MUL/DIV, load/store and branch mix",
		Setup:       setBase,
		Program: BuildProgram(
			EncodeADDI(RegA2, RegZero, 2),
			EncodeADDI(RegA3, RegZero, 4),
			EncodeMUL(RegA0, RegA2, RegA3), // 8
			EncodeSW(RegA0, RegA1, 0),
			EncodeADDI(RegA0, RegZero, 0),
			EncodeLW(RegA0, RegA1, 0),      // 8
			EncodeADD(RegA4, RegA0, RegA2), // 10
			EncodeSUB(RegA4, RegA4, RegA2), // 8
			EncodeDIV(RegA5, RegA4, RegA2), // 4
			EncodeBEQ(RegA4, RegA0, 8),
			EncodeADDI(RegA0, RegA0, 100), // skipped
			EncodeECALL(),
		),
		ExpectedExit: 8,
	}
}

// 7. Matrix Multiply 2x2 - loads, multiplies and stores a 2x2 product
func matrixMultiply2x2() Benchmark {
	return Benchmark{
		Name:        "matrix_multiply_2x2",
		Description: "2x2 integer matrix multiply from memory - returns the sum of C",
		Setup: func(regFile *emu.RegFile, memory *bus.Bus) error {
			regFile.WriteReg(RegA1, DataBase)
			// A = [[1 2] [3 4]], B = [[5 6] [7 8]]
			return storeWords(memory, DataBase, 1, 2, 3, 4, 5, 6, 7, 8)
		},
		Program: BuildProgram(
			EncodeLW(RegT0, RegA1, 0),
			EncodeLW(RegT1, RegA1, 4),
			EncodeLW(RegT2, RegA1, 8),
			EncodeLW(RegT3, RegA1, 12),
			EncodeLW(RegT4, RegA1, 16),
			EncodeLW(RegT5, RegA1, 20),
			EncodeLW(RegT6, RegA1, 24),
			EncodeLW(RegS0, RegA1, 28),

			// C00 = 19
			EncodeMUL(RegS1, RegT0, RegT4),
			EncodeMUL(RegS2, RegT1, RegT6),
			EncodeADD(RegS1, RegS1, RegS2),
			EncodeSW(RegS1, RegA1, 32),
			// C01 = 22
			EncodeMUL(RegS3, RegT0, RegT5),
			EncodeMUL(RegS2, RegT1, RegS0),
			EncodeADD(RegS3, RegS3, RegS2),
			EncodeSW(RegS3, RegA1, 36),
			// C10 = 43
			EncodeMUL(RegS4, RegT2, RegT4),
			EncodeMUL(RegS2, RegT3, RegT6),
			EncodeADD(RegS4, RegS4, RegS2),
			EncodeSW(RegS4, RegA1, 40),
			// C11 = 50
			EncodeMUL(RegS5, RegT2, RegT5),
			EncodeMUL(RegS2, RegT3, RegS0),
			EncodeADD(RegS5, RegS5, RegS2),
			EncodeSW(RegS5, RegA1, 44),

			EncodeADD(RegA0, RegS1, RegS3),
			EncodeADD(RegA0, RegA0, RegS4),
			EncodeADD(RegA0, RegA0, RegS5),
			EncodeECALL(),
		),
		ExpectedExit: 134,
	}
}

// 8. Loop Simulation - sums 1..100 with a backward BNE
func loopSimulation() Benchmark {
	return Benchmark{
		Name:        "loop_simulation",
		Description: "100-iteration counted loop - measures loop-closing branch prediction",
		Program: BuildProgram(
			EncodeADDI(RegA1, RegZero, 100),
			EncodeADDI(RegA0, RegZero, 0),
			// loop:
			EncodeADD(RegA0, RegA0, RegA1),
			EncodeADDI(RegA1, RegA1, -1),
			EncodeBNE(RegA1, RegZero, -8),
			EncodeECALL(),
		),
		ExpectedExit: 5050,
	}
}

// 9. Atomic Increment - back-to-back AMOADD.W on one word
func atomicIncrement() Benchmark {
	instrs := []uint32{EncodeADDI(RegA2, RegZero, 1)}
	for i := 0; i < 10; i++ {
		instrs = append(instrs, EncodeAMOADDW(RegZero, RegA1, RegA2))
	}
	instrs = append(instrs, EncodeLW(RegA0, RegA1, 0), EncodeECALL())

	return Benchmark{
		Name:         "atomic_increment",
		Description:  "10 AMOADD.W to one word - measures atomic read-modify-write cost",
		Setup:        setBase,
		Program:      BuildProgram(instrs...),
		ExpectedExit: 10,
	}
}

func storeWords(memory *bus.Bus, addr uint32, words ...uint32) error {
	for i, w := range words {
		if err := memory.Write32(addr+uint32(i)*4, w); err != nil {
			return err
		}
	}
	return nil
}
