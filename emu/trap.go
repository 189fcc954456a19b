package emu

import "github.com/sirupsen/logrus"

// Trap takes a synchronous exception. The faulting PC is saved, the trap
// cause and value are recorded, and control moves to the handler in
// mtvec. Exceptions raised in U- or S-mode whose bit is set in medeleg are
// taken in S-mode through stvec instead.
//
// The CSR updates bypass privilege checks: the hart is changing privilege
// and the handler state must be written regardless of the old level.
func (e *Emulator) Trap(exc *Exception) {
	prev := e.priv
	pc := e.regFile.PC
	cause := uint32(exc.Cause)
	ms := &e.csrs.mstatus

	e.logger.WithFields(logrus.Fields{
		"hart":  e.hartID,
		"pc":    pc,
		"cause": exc.Cause.String(),
		"tval":  exc.Value,
	}).Debug("trap")

	if prev <= Supervisor && e.csrs.readUnchecked(CSRMEDeleg)>>cause&1 == 1 {
		ms.SetSPP(prev == Supervisor)
		ms.SetSPIE(ms.SIE())
		ms.SetSIE(false)

		e.csrs.writeUnchecked(CSRSEPC, pc)
		e.csrs.writeUnchecked(CSRSCause, cause)
		e.csrs.writeUnchecked(CSRSTVal, exc.Value)

		e.priv = Supervisor
		e.regFile.PC = trapVector(e.csrs.readUnchecked(CSRSTVec), cause)
		return
	}

	ms.SetMPP(uint32(prev))
	ms.SetMPIE(ms.MIE())
	ms.SetMIE(false)

	e.csrs.writeUnchecked(CSRMEPC, pc)
	e.csrs.writeUnchecked(CSRMCause, cause)
	e.csrs.writeUnchecked(CSRMTVal, exc.Value)

	e.priv = Machine
	e.regFile.PC = trapVector(e.csrs.readUnchecked(CSRMTVec), cause)
}

// trapVector computes the handler address from an xtvec value. Mode 0 is
// direct; any other mode vectors to base + 4*cause.
func trapVector(tvec, cause uint32) uint32 {
	base := tvec &^ 0x3
	if tvec&0x3 == 0 {
		return base
	}
	return base + 4*cause
}
