// Package emu provides functional RV32 emulation.
package emu

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/insts"
)

// DefaultResetVector is the PC a hart starts at: the base of DRAM.
const DefaultResetVector uint32 = 0x80000000

// ErrInstructionLimit is returned by Run when the configured instruction
// budget is exhausted.
var ErrInstructionLimit = errors.New("max instructions reached")

// CycleModel decides how many cycles an instruction takes. inst is nil
// when the fetch itself faulted.
type CycleModel interface {
	Cycles(inst *insts.Instruction, pc uint32, access DataAccess) uint64
}

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// PC is the address the instruction was fetched from.
	PC uint32

	// Inst is the decoded instruction, nil if the fetch faulted.
	Inst *insts.Instruction

	// Trap is the exception taken during this step, if any.
	Trap *Exception

	// Cycles is the number of cycles charged for the step.
	Cycles uint64

	// Err is set if the step could not run.
	Err error
}

// Emulator executes RV32IMA instructions for one hart.
type Emulator struct {
	regFile *RegFile
	csrs    *CSRFile
	memory  Memory
	data    *accessRecorder
	decoder *insts.Decoder
	priv    Privilege
	hartID  uint32

	// Execution units
	alu        *ALU
	branchUnit *BranchUnit
	lsu        *LoadStoreUnit
	atomicUnit *AtomicUnit
	csrUnit    *CSRUnit
	systemUnit *SystemUnit

	cycleModel CycleModel
	logger     *logrus.Logger

	// Execution state
	resetVector      uint32
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithHartID sets the hart identifier reported by mhartid and used for
// LR/SC reservations.
func WithHartID(id uint32) EmulatorOption {
	return func(e *Emulator) {
		e.hartID = id
	}
}

// WithLogger sets the logger traps are reported to.
func WithLogger(logger *logrus.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithCycleModel sets the model that advances mcycle. Without one every
// step costs one cycle.
func WithCycleModel(model CycleModel) EmulatorOption {
	return func(e *Emulator) {
		e.cycleModel = model
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithResetVector sets the PC the hart starts at.
func WithResetVector(pc uint32) EmulatorOption {
	return func(e *Emulator) {
		e.resetVector = pc
	}
}

// NewEmulator creates a hart executing against the given memory.
func NewEmulator(memory Memory, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile:     &RegFile{},
		memory:      memory,
		decoder:     insts.NewDecoder(),
		logger:      logrus.StandardLogger(),
		resetVector: DefaultResetVector,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.csrs = NewCSRFile(e.hartID)
	e.data = &accessRecorder{Memory: memory}
	locker, _ := memory.(sync.Locker)

	// Create execution units
	e.alu = NewALU(e.regFile)
	e.branchUnit = NewBranchUnit(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile, e.data)
	e.atomicUnit = NewAtomicUnit(e.regFile, e.data, locker, e.hartID)
	e.csrUnit = NewCSRUnit(e.regFile, e.csrs)
	e.systemUnit = NewSystemUnit(e.regFile, e.csrs, &e.priv)

	e.Reset()

	return e
}

// Reset puts the hart in its reset state: registers cleared, PC at the
// reset vector, Machine mode.
func (e *Emulator) Reset() {
	e.regFile.Reset(e.resetVector)
	e.csrs.Reset()
	e.priv = Machine
	e.instructionCount = 0
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// CSRs returns the emulator's CSR bank.
func (e *Emulator) CSRs() *CSRFile {
	return e.csrs
}

// Memory returns the memory the emulator executes against.
func (e *Emulator) Memory() Memory {
	return e.memory
}

// Privilege returns the current privilege level.
func (e *Emulator) Privilege() Privilege {
	return e.priv
}

// SetPrivilege forces the current privilege level.
func (e *Emulator) SetPrivilege(p Privilege) {
	e.priv = p
}

// HartID returns the hart identifier.
func (e *Emulator) HartID() uint32 {
	return e.hartID
}

// InstructionCount returns the number of steps executed, trapped ones
// included.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Fetch reads the instruction word at PC.
func (e *Emulator) Fetch() (uint32, error) {
	pc := e.regFile.PC
	if pc%4 != 0 {
		return 0, InstructionAddressMisaligned(pc)
	}

	word, err := e.memory.Read32(pc)
	if err != nil {
		return 0, InstructionAccessFault(pc)
	}
	return word, nil
}

// Decode decodes an instruction word. Illegal encodings come back with
// insts.OpUnknown.
func (e *Emulator) Decode(word uint32) *insts.Instruction {
	return e.decoder.Decode(word)
}

// Execute executes one decoded instruction. PC is not advanced past the
// instruction; control transfers leave it at target - 4.
func (e *Emulator) Execute(inst *insts.Instruction) error {
	switch inst.Op {
	case insts.OpUnknown:
		return IllegalInstruction(inst.Raw)
	case insts.OpLUI:
		e.alu.LUI(inst)
	case insts.OpAUIPC:
		e.alu.AUIPC(inst)
	case insts.OpJAL:
		return e.branchUnit.JAL(inst)
	case insts.OpJALR:
		return e.branchUnit.JALR(inst)
	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU:
		return e.lsu.Load(inst)
	case insts.OpSB, insts.OpSH, insts.OpSW:
		return e.lsu.Store(inst)
	case insts.OpCSRRW, insts.OpCSRRS, insts.OpCSRRC,
		insts.OpCSRRWI, insts.OpCSRRSI, insts.OpCSRRCI:
		return e.csrUnit.Execute(inst, e.priv)
	case insts.OpECALL, insts.OpEBREAK, insts.OpMRET, insts.OpSRET,
		insts.OpWFI, insts.OpFENCE, insts.OpFENCEI:
		return e.systemUnit.Execute(inst)
	default:
		switch inst.Format {
		case insts.FormatR:
			e.alu.RegReg(inst)
		case insts.FormatI:
			e.alu.RegImm(inst)
		case insts.FormatB:
			e.branchUnit.Branch(inst)
		case insts.FormatAtomic:
			return e.atomicUnit.Execute(inst)
		default:
			return IllegalInstruction(inst.Raw)
		}
	}
	return nil
}

// Step runs one fetch-decode-execute cycle. A fault is taken as a trap;
// otherwise PC advances by 4 and minstret is incremented.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{PC: e.regFile.PC, Err: ErrInstructionLimit}
	}

	result := StepResult{PC: e.regFile.PC}
	e.data.reset()

	err := e.step(&result)
	if err != nil {
		result.Trap = toException(err, IllegalInstruction(0))
		e.Trap(result.Trap)
	} else {
		e.regFile.PC += 4
		e.csrs.IncrementInstret()
	}

	result.Cycles = 1
	if e.cycleModel != nil {
		result.Cycles = e.cycleModel.Cycles(result.Inst, result.PC, e.data.last)
	}
	e.csrs.AddCycles(result.Cycles)
	e.instructionCount++

	return result
}

func (e *Emulator) step(result *StepResult) error {
	word, err := e.Fetch()
	if err != nil {
		return err
	}

	inst := e.Decode(word)
	result.Inst = inst
	if inst.Op == insts.OpUnknown {
		return IllegalInstruction(word)
	}

	return e.Execute(inst)
}

// Run executes instructions until done reports true. It returns
// ErrInstructionLimit when the instruction budget runs out. Guest faults
// never stop Run; they are taken as traps.
func (e *Emulator) Run(done func() bool) error {
	for done == nil || !done() {
		if result := e.Step(); result.Err != nil {
			return result.Err
		}
	}
	return nil
}
