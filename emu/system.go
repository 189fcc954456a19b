package emu

import "github.com/sarchlab/rvsim/insts"

// CSRUnit implements the Zicsr read-modify-write instructions.
type CSRUnit struct {
	regFile *RegFile
	csrs    *CSRFile
}

// NewCSRUnit creates a new CSRUnit.
func NewCSRUnit(regFile *RegFile, csrs *CSRFile) *CSRUnit {
	return &CSRUnit{regFile: regFile, csrs: csrs}
}

// Execute executes a CSR instruction at the given privilege. Any CSR access
// failure is reported as an illegal instruction carrying the raw word.
//
// csrrw/csrrwi skip the read when rd is x0. csrrs/csrrc and their
// immediate forms skip the write when the operand is zero.
func (u *CSRUnit) Execute(inst *insts.Instruction, priv Privilege) error {
	var operand uint32
	switch inst.Op {
	case insts.OpCSRRWI, insts.OpCSRRSI, insts.OpCSRRCI:
		operand = uint32(inst.Rs1)
	default:
		operand = u.regFile.ReadReg(inst.Rs1)
	}

	write := true
	read := true
	switch inst.Op {
	case insts.OpCSRRW, insts.OpCSRRWI:
		read = inst.Rd != 0
	default:
		write = inst.Rs1 != 0
	}

	var old uint32
	if read {
		v, err := u.csrs.Read(inst.CSR, priv)
		if err != nil {
			return IllegalInstruction(inst.Raw)
		}
		old = v
	}

	if write {
		var value uint32
		switch inst.Op {
		case insts.OpCSRRW, insts.OpCSRRWI:
			value = operand
		case insts.OpCSRRS, insts.OpCSRRSI:
			value = old | operand
		default:
			value = old &^ operand
		}
		if err := u.csrs.Write(inst.CSR, priv, value); err != nil {
			return IllegalInstruction(inst.Raw)
		}
	}

	u.regFile.WriteReg(inst.Rd, old)
	return nil
}

// SystemUnit implements ECALL, EBREAK, MRET, SRET, WFI and the fences.
type SystemUnit struct {
	regFile *RegFile
	csrs    *CSRFile
	priv    *Privilege
}

// NewSystemUnit creates a new SystemUnit operating on the hart's privilege.
func NewSystemUnit(regFile *RegFile, csrs *CSRFile, priv *Privilege) *SystemUnit {
	return &SystemUnit{regFile: regFile, csrs: csrs, priv: priv}
}

// Execute executes a privileged or ordering instruction.
func (u *SystemUnit) Execute(inst *insts.Instruction) error {
	switch inst.Op {
	case insts.OpECALL:
		return EnvironmentCall(*u.priv)
	case insts.OpEBREAK:
		return Breakpoint(u.regFile.PC)
	case insts.OpMRET:
		return u.mret(inst)
	case insts.OpSRET:
		return u.sret(inst)
	case insts.OpWFI:
		return u.wfi(inst)
	case insts.OpFENCE, insts.OpFENCEI:
		// Single hart, no instruction cache: nothing to order.
		return nil
	}
	return IllegalInstruction(inst.Raw)
}

func (u *SystemUnit) mret(inst *insts.Instruction) error {
	ms, err := u.csrs.MStatus(*u.priv)
	if err != nil {
		return IllegalInstruction(inst.Raw)
	}

	epc, err := u.csrs.Read(CSRMEPC, *u.priv)
	if err != nil {
		return IllegalInstruction(inst.Raw)
	}

	next := PrivilegeFromBits(ms.MPP())
	ms.SetMIE(ms.MPIE())
	ms.SetMPIE(true)
	ms.SetMPP(uint32(User))
	if next != Machine {
		ms.SetMPRV(false)
	}

	*u.priv = next
	u.regFile.PC = epc - 4
	return nil
}

func (u *SystemUnit) sret(inst *insts.Instruction) error {
	if *u.priv < Supervisor {
		return IllegalInstruction(inst.Raw)
	}

	// The supervisor fields live in mstatus; S-mode reaches them through
	// sstatus, so the machine view is taken directly here.
	ms := &u.csrs.mstatus
	if *u.priv == Supervisor && ms.TSR() {
		return IllegalInstruction(inst.Raw)
	}

	epc, err := u.csrs.Read(CSRSEPC, *u.priv)
	if err != nil {
		return IllegalInstruction(inst.Raw)
	}

	next := User
	if ms.SPP() {
		next = Supervisor
	}
	ms.SetSIE(ms.SPIE())
	ms.SetSPIE(true)
	ms.SetSPP(false)
	if next != Machine {
		ms.SetMPRV(false)
	}

	*u.priv = next
	u.regFile.PC = epc - 4
	return nil
}

func (u *SystemUnit) wfi(inst *insts.Instruction) error {
	if *u.priv != Machine && u.csrs.mstatus.TW() {
		return IllegalInstruction(inst.Raw)
	}
	// No interrupts are delivered, so waiting completes immediately.
	return nil
}
