// Package emu provides functional RV32 emulation.
package emu

import "github.com/sarchlab/rvsim/insts"

// ALU implements RV32I integer and RV32M multiply/divide operations.
// All arithmetic wraps modulo 2^32.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// RegReg executes an R-type operation: rd = rs1 op rs2.
func (a *ALU) RegReg(inst *insts.Instruction) {
	x := a.regFile.ReadReg(inst.Rs1)
	y := a.regFile.ReadReg(inst.Rs2)
	a.regFile.WriteReg(inst.Rd, Compute(inst.Op, x, y))
}

// RegImm executes a register-immediate operation: rd = rs1 op imm.
func (a *ALU) RegImm(inst *insts.Instruction) {
	x := a.regFile.ReadReg(inst.Rs1)
	a.regFile.WriteReg(inst.Rd, Compute(inst.Op, x, inst.Imm))
}

// LUI loads the upper immediate: rd = imm.
func (a *ALU) LUI(inst *insts.Instruction) {
	a.regFile.WriteReg(inst.Rd, inst.Imm)
}

// AUIPC adds the upper immediate to the PC: rd = pc + imm.
func (a *ALU) AUIPC(inst *insts.Instruction) {
	a.regFile.WriteReg(inst.Rd, a.regFile.PC+inst.Imm)
}

// Compute applies an ALU operation to two operands. Register and immediate
// forms of the same operation share an implementation.
func Compute(op insts.Op, x, y uint32) uint32 {
	switch op {
	case insts.OpADD, insts.OpADDI:
		return x + y
	case insts.OpSUB:
		return x - y
	case insts.OpSLL, insts.OpSLLI:
		return x << (y & 0x1F)
	case insts.OpSRL, insts.OpSRLI:
		return x >> (y & 0x1F)
	case insts.OpSRA, insts.OpSRAI:
		return uint32(int32(x) >> (y & 0x1F))
	case insts.OpSLT, insts.OpSLTI:
		return boolToWord(int32(x) < int32(y))
	case insts.OpSLTU, insts.OpSLTIU:
		return boolToWord(x < y)
	case insts.OpXOR, insts.OpXORI:
		return x ^ y
	case insts.OpOR, insts.OpORI:
		return x | y
	case insts.OpAND, insts.OpANDI:
		return x & y
	case insts.OpMUL:
		return x * y
	case insts.OpMULH:
		return Mulh(x, y)
	case insts.OpMULHSU:
		return Mulhsu(x, y)
	case insts.OpMULHU:
		return Mulhu(x, y)
	case insts.OpDIV:
		return Div(x, y)
	case insts.OpDIVU:
		return Divu(x, y)
	case insts.OpREM:
		return Rem(x, y)
	case insts.OpREMU:
		return Remu(x, y)
	}
	return 0
}

// Mulh returns the high word of the signed x signed product.
func Mulh(x, y uint32) uint32 {
	return uint32(uint64(int64(int32(x))*int64(int32(y))) >> 32)
}

// Mulhsu returns the high word of the signed x unsigned product.
func Mulhsu(x, y uint32) uint32 {
	return uint32(uint64(int64(int32(x))*int64(y)) >> 32)
}

// Mulhu returns the high word of the unsigned x unsigned product.
func Mulhu(x, y uint32) uint32 {
	return uint32(uint64(x) * uint64(y) >> 32)
}

// Div is signed division. Division by zero yields -1 and the overflow case
// MIN / -1 yields MIN.
func Div(x, y uint32) uint32 {
	switch {
	case y == 0:
		return 0xFFFFFFFF
	case int32(x) == minInt32 && int32(y) == -1:
		return x
	}
	return uint32(int32(x) / int32(y))
}

// Divu is unsigned division. Division by zero yields all ones.
func Divu(x, y uint32) uint32 {
	if y == 0 {
		return 0xFFFFFFFF
	}
	return x / y
}

// Rem is the signed remainder. Remainder by zero yields the dividend and
// MIN % -1 yields 0.
func Rem(x, y uint32) uint32 {
	switch {
	case y == 0:
		return x
	case int32(x) == minInt32 && int32(y) == -1:
		return 0
	}
	return uint32(int32(x) % int32(y))
}

// Remu is the unsigned remainder. Remainder by zero yields the dividend.
func Remu(x, y uint32) uint32 {
	if y == 0 {
		return x
	}
	return x % y
}

const minInt32 = -1 << 31

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
