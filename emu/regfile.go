// Package emu provides functional RV32 emulation.
package emu

// RegFile represents the RV32 integer register file.
// It contains 31 general-purpose registers (x1-x31), the hardwired zero
// register x0, and the program counter (PC).
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// X[0] is never written and always reads as 0.
	X [32]uint32

	// PC is the program counter.
	PC uint32
}

// ReadReg reads a register value. Register 0 returns 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	reg &= 0x1F
	if reg == 0 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to x0 are discarded.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	reg &= 0x1F
	if reg == 0 {
		return
	}
	r.X[reg] = value
}

// Reset clears all registers and sets the PC.
func (r *RegFile) Reset(pc uint32) {
	r.X = [32]uint32{}
	r.PC = pc
}
