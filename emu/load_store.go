// Package emu provides functional RV32 emulation.
package emu

import "github.com/sarchlab/rvsim/insts"

// LoadStoreUnit implements RV32I loads and stores. Accesses are assembled
// from little-endian byte accesses, so no alignment is required.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory Memory) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		memory:  memory,
	}
}

// Load executes lb, lh, lw, lbu or lhu: rd = mem[rs1 + imm].
func (lsu *LoadStoreUnit) Load(inst *insts.Instruction) error {
	addr := lsu.regFile.ReadReg(inst.Rs1) + inst.Imm

	var (
		value uint32
		err   error
	)

	switch inst.Op {
	case insts.OpLB:
		value, err = lsu.read(addr, 1)
		value = insts.SignExtend(value, 8)
	case insts.OpLH:
		value, err = lsu.read(addr, 2)
		value = insts.SignExtend(value, 16)
	case insts.OpLW:
		value, err = lsu.read(addr, 4)
	case insts.OpLBU:
		value, err = lsu.read(addr, 1)
	case insts.OpLHU:
		value, err = lsu.read(addr, 2)
	}

	if err != nil {
		return err
	}

	lsu.regFile.WriteReg(inst.Rd, value)
	return nil
}

// Store executes sb, sh or sw: mem[rs1 + imm] = rs2.
func (lsu *LoadStoreUnit) Store(inst *insts.Instruction) error {
	addr := lsu.regFile.ReadReg(inst.Rs1) + inst.Imm
	value := lsu.regFile.ReadReg(inst.Rs2)

	switch inst.Op {
	case insts.OpSB:
		return lsu.write(addr, value, 1)
	case insts.OpSH:
		return lsu.write(addr, value, 2)
	default:
		return lsu.write(addr, value, 4)
	}
}

func (lsu *LoadStoreUnit) read(addr uint32, size int) (uint32, error) {
	var value uint32
	for i := 0; i < size; i++ {
		a := addr + uint32(i)
		b, err := lsu.memory.Read8(a)
		if err != nil {
			return 0, toException(err, LoadAccessFault(a))
		}
		value |= uint32(b) << (8 * i)
	}
	return value, nil
}

func (lsu *LoadStoreUnit) write(addr, value uint32, size int) error {
	for i := 0; i < size; i++ {
		a := addr + uint32(i)
		if err := lsu.memory.Write8(a, uint8(value>>(8*i))); err != nil {
			return toException(err, StoreAmoAccessFault(a))
		}
	}
	return nil
}
