// Package latency provides per-instruction-class execution latencies for the
// cycle model.
package latency

import (
	"github.com/sarchlab/rvsim/insts"
)

// Class groups instructions that share a latency.
type Class uint8

// Instruction classes.
const (
	ClassUnknown Class = iota
	ClassALU
	ClassBranch
	ClassLoad
	ClassStore
	ClassMultiply
	ClassDivide
	ClassAtomic
	ClassCSR
	ClassSystem
)

var classNames = [...]string{
	ClassUnknown:  "unknown",
	ClassALU:      "alu",
	ClassBranch:   "branch",
	ClassLoad:     "load",
	ClassStore:    "store",
	ClassMultiply: "multiply",
	ClassDivide:   "divide",
	ClassAtomic:   "atomic",
	ClassCSR:      "csr",
	ClassSystem:   "system",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// ClassOf returns the latency class of an operation.
func ClassOf(op insts.Op) Class {
	switch {
	case op >= insts.OpADD && op <= insts.OpAND,
		op >= insts.OpADDI && op <= insts.OpSRAI,
		op == insts.OpLUI, op == insts.OpAUIPC:
		return ClassALU
	case op >= insts.OpMUL && op <= insts.OpMULHU:
		return ClassMultiply
	case op >= insts.OpDIV && op <= insts.OpREMU:
		return ClassDivide
	case op >= insts.OpLB && op <= insts.OpLHU:
		return ClassLoad
	case op >= insts.OpSB && op <= insts.OpSW:
		return ClassStore
	case op >= insts.OpBEQ && op <= insts.OpBGEU,
		op == insts.OpJAL, op == insts.OpJALR:
		return ClassBranch
	case op >= insts.OpFENCE && op <= insts.OpWFI:
		return ClassSystem
	case op >= insts.OpCSRRW && op <= insts.OpCSRRCI:
		return ClassCSR
	case op >= insts.OpLRW && op <= insts.OpAMOMAXUW:
		return ClassAtomic
	default:
		return ClassUnknown
	}
}

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given instruction.
// Unknown or nil instructions cost one cycle.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch ClassOf(inst.Op) {
	case ClassALU:
		return t.config.ALULatency
	case ClassBranch:
		return t.config.BranchLatency
	case ClassLoad:
		return t.config.LoadLatency
	case ClassStore:
		return t.config.StoreLatency
	case ClassMultiply:
		return t.config.MultiplyLatency
	case ClassDivide:
		return t.config.DivideLatency
	case ClassAtomic:
		return t.config.AtomicLatency
	case ClassCSR:
		return t.config.CSRLatency
	case ClassSystem:
		return t.config.SystemLatency
	default:
		return 1
	}
}

// IsMemoryOp returns true if the instruction accesses data memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch ClassOf(inst.Op) {
	case ClassLoad, ClassStore, ClassAtomic:
		return true
	default:
		return false
	}
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return ClassOf(inst.Op) == ClassLoad || inst.Op == insts.OpLRW
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return ClassOf(inst.Op) == ClassStore
}

// IsBranchOp returns true if the instruction can redirect the program counter.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return ClassOf(inst.Op) == ClassBranch
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
