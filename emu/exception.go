package emu

import (
	"errors"
	"fmt"
)

// Cause is a synchronous exception cause code as written to mcause/scause.
type Cause uint32

// Exception causes.
const (
	CauseInstructionAddressMisaligned Cause = 0
	CauseInstructionAccessFault       Cause = 1
	CauseIllegalInstruction           Cause = 2
	CauseBreakpoint                   Cause = 3
	CauseLoadAddressMisaligned        Cause = 4
	CauseLoadAccessFault              Cause = 5
	CauseStoreAmoAddressMisaligned    Cause = 6
	CauseStoreAmoAccessFault          Cause = 7
	CauseEnvironmentCallFromU         Cause = 8
	CauseEnvironmentCallFromS         Cause = 9
	CauseEnvironmentCallFromM         Cause = 11
	CauseInstructionPageFault         Cause = 12
	CauseLoadPageFault                Cause = 13
	CauseStoreAmoPageFault            Cause = 15
	CauseDoubleTrap                   Cause = 16
	CauseSoftwareCheck                Cause = 18
	CauseHardwareError                Cause = 19
)

var causeNames = map[Cause]string{
	CauseInstructionAddressMisaligned: "instruction address misaligned",
	CauseInstructionAccessFault:       "instruction access fault",
	CauseIllegalInstruction:           "illegal instruction",
	CauseBreakpoint:                   "breakpoint",
	CauseLoadAddressMisaligned:        "load address misaligned",
	CauseLoadAccessFault:              "load access fault",
	CauseStoreAmoAddressMisaligned:    "store/AMO address misaligned",
	CauseStoreAmoAccessFault:          "store/AMO access fault",
	CauseEnvironmentCallFromU:         "environment call from U-mode",
	CauseEnvironmentCallFromS:         "environment call from S-mode",
	CauseEnvironmentCallFromM:         "environment call from M-mode",
	CauseInstructionPageFault:         "instruction page fault",
	CauseLoadPageFault:                "load page fault",
	CauseStoreAmoPageFault:            "store/AMO page fault",
	CauseDoubleTrap:                   "double trap",
	CauseSoftwareCheck:                "software check",
	CauseHardwareError:                "hardware error",
}

func (c Cause) String() string {
	if name, ok := causeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cause %d", uint32(c))
}

// Exception is an architectural fault raised while executing an
// instruction. Value is the trap value written to mtval/stval: the faulting
// address for address faults, the instruction bits for illegal
// instructions and the PC for breakpoints.
type Exception struct {
	Cause Cause
	Value uint32
}

// NewException creates an exception with the given cause and trap value.
func NewException(cause Cause, value uint32) *Exception {
	return &Exception{Cause: cause, Value: value}
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s (tval=0x%08x)", e.Cause, e.Value)
}

// InstructionAddressMisaligned reports a fetch or jump target that is not
// 4-byte aligned.
func InstructionAddressMisaligned(addr uint32) *Exception {
	return NewException(CauseInstructionAddressMisaligned, addr)
}

// InstructionAccessFault reports a fetch from an unmapped address.
func InstructionAccessFault(addr uint32) *Exception {
	return NewException(CauseInstructionAccessFault, addr)
}

// IllegalInstruction reports an undecodable or forbidden instruction.
func IllegalInstruction(raw uint32) *Exception {
	return NewException(CauseIllegalInstruction, raw)
}

// Breakpoint reports an EBREAK at pc.
func Breakpoint(pc uint32) *Exception {
	return NewException(CauseBreakpoint, pc)
}

// LoadAddressMisaligned reports a misaligned load.
func LoadAddressMisaligned(addr uint32) *Exception {
	return NewException(CauseLoadAddressMisaligned, addr)
}

// LoadAccessFault reports a load from an unmapped address.
func LoadAccessFault(addr uint32) *Exception {
	return NewException(CauseLoadAccessFault, addr)
}

// StoreAmoAddressMisaligned reports a misaligned store or AMO.
func StoreAmoAddressMisaligned(addr uint32) *Exception {
	return NewException(CauseStoreAmoAddressMisaligned, addr)
}

// StoreAmoAccessFault reports a store or AMO to an unmapped or read-only
// address.
func StoreAmoAccessFault(addr uint32) *Exception {
	return NewException(CauseStoreAmoAccessFault, addr)
}

// EnvironmentCall reports an ECALL made from the given privilege level.
func EnvironmentCall(from Privilege) *Exception {
	switch from {
	case User:
		return NewException(CauseEnvironmentCallFromU, 0)
	case Supervisor:
		return NewException(CauseEnvironmentCallFromS, 0)
	default:
		return NewException(CauseEnvironmentCallFromM, 0)
	}
}

// toException returns the exception carried by err. Errors that are not
// exceptions are reported as the given fallback.
func toException(err error, fallback *Exception) *Exception {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc
	}
	return fallback
}
