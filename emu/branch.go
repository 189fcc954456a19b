// Package emu provides functional RV32 emulation.
package emu

import "github.com/sarchlab/rvsim/insts"

// BranchUnit implements RV32 conditional branches and jumps.
//
// The run loop adds 4 to the PC after every instruction that completes, so
// each handler leaves PC at target - 4.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// Taken evaluates the condition of a conditional branch.
func Taken(op insts.Op, x, y uint32) bool {
	switch op {
	case insts.OpBEQ:
		return x == y
	case insts.OpBNE:
		return x != y
	case insts.OpBLT:
		return int32(x) < int32(y)
	case insts.OpBGE:
		return int32(x) >= int32(y)
	case insts.OpBLTU:
		return x < y
	case insts.OpBGEU:
		return x >= y
	}
	return false
}

// Branch executes a conditional branch to pc + imm.
func (b *BranchUnit) Branch(inst *insts.Instruction) {
	x := b.regFile.ReadReg(inst.Rs1)
	y := b.regFile.ReadReg(inst.Rs2)
	if Taken(inst.Op, x, y) {
		b.regFile.PC += inst.Imm - 4
	}
}

// JAL jumps to pc + imm and links pc + 4 into rd.
func (b *BranchUnit) JAL(inst *insts.Instruction) error {
	pc := b.regFile.PC
	target := pc + inst.Imm
	if target%4 != 0 {
		return InstructionAddressMisaligned(target)
	}

	b.regFile.WriteReg(inst.Rd, pc+4)
	b.regFile.PC = target - 4
	return nil
}

// JALR jumps to (rs1 + imm) with bit 0 cleared and links pc + 4 into rd.
func (b *BranchUnit) JALR(inst *insts.Instruction) error {
	pc := b.regFile.PC
	// Read the base before rd is written, in case rd == rs1.
	target := (b.regFile.ReadReg(inst.Rs1) + inst.Imm) &^ 1
	if target%4 != 0 {
		return InstructionAddressMisaligned(target)
	}

	b.regFile.WriteReg(inst.Rd, pc+4)
	b.regFile.PC = target - 4
	return nil
}
