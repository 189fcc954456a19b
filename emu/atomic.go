package emu

import (
	"sync"

	"github.com/sarchlab/rvsim/insts"
)

// AtomicUnit implements the RV32A load-reserved, store-conditional and AMO
// instructions. When the memory also implements sync.Locker, each
// instruction holds the lock for its whole read-modify-write.
type AtomicUnit struct {
	regFile *RegFile
	memory  Memory
	locker  sync.Locker
	hartID  uint32
}

// NewAtomicUnit creates a new AtomicUnit. locker may be nil.
func NewAtomicUnit(
	regFile *RegFile,
	memory Memory,
	locker sync.Locker,
	hartID uint32,
) *AtomicUnit {
	return &AtomicUnit{
		regFile: regFile,
		memory:  memory,
		locker:  locker,
		hartID:  hartID,
	}
}

// Execute executes one atomic instruction.
func (u *AtomicUnit) Execute(inst *insts.Instruction) error {
	if u.locker != nil {
		u.locker.Lock()
		defer u.locker.Unlock()
	}

	switch inst.Op {
	case insts.OpLRW:
		return u.loadReserved(inst)
	case insts.OpSCW:
		return u.storeConditional(inst)
	default:
		return u.amo(inst)
	}
}

func (u *AtomicUnit) loadReserved(inst *insts.Instruction) error {
	addr := u.regFile.ReadReg(inst.Rs1)
	if addr%4 != 0 {
		return LoadAddressMisaligned(addr)
	}

	value, err := u.memory.Read32(addr)
	if err != nil {
		return toException(err, LoadAccessFault(addr))
	}

	u.memory.Reserve(u.hartID, addr)
	u.regFile.WriteReg(inst.Rd, value)
	return nil
}

func (u *AtomicUnit) storeConditional(inst *insts.Instruction) error {
	addr := u.regFile.ReadReg(inst.Rs1)
	defer u.memory.InvalidateReservation(u.hartID)

	if addr%4 != 0 {
		return StoreAmoAddressMisaligned(addr)
	}

	if !u.memory.IsReserved(u.hartID, addr) {
		u.regFile.WriteReg(inst.Rd, 1)
		return nil
	}

	if err := u.memory.Write32(addr, u.regFile.ReadReg(inst.Rs2)); err != nil {
		return toException(err, StoreAmoAccessFault(addr))
	}

	u.regFile.WriteReg(inst.Rd, 0)
	return nil
}

func (u *AtomicUnit) amo(inst *insts.Instruction) error {
	addr := u.regFile.ReadReg(inst.Rs1)
	if addr%4 != 0 {
		return StoreAmoAddressMisaligned(addr)
	}

	old, err := u.memory.Read32(addr)
	if err != nil {
		// A failed AMO read is reported as a store/AMO fault.
		return StoreAmoAccessFault(addr)
	}

	src := u.regFile.ReadReg(inst.Rs2)
	if err := u.memory.Write32(addr, AMOResult(inst.Op, old, src)); err != nil {
		return toException(err, StoreAmoAccessFault(addr))
	}

	u.regFile.WriteReg(inst.Rd, old)
	return nil
}

// AMOResult computes the value an AMO writes back, given the old memory
// word and the rs2 operand.
func AMOResult(op insts.Op, old, src uint32) uint32 {
	switch op {
	case insts.OpAMOSWAPW:
		return src
	case insts.OpAMOADDW:
		return old + src
	case insts.OpAMOXORW:
		return old ^ src
	case insts.OpAMOANDW:
		return old & src
	case insts.OpAMOORW:
		return old | src
	case insts.OpAMOMINW:
		if int32(src) < int32(old) {
			return src
		}
		return old
	case insts.OpAMOMAXW:
		if int32(src) > int32(old) {
			return src
		}
		return old
	case insts.OpAMOMINUW:
		if src < old {
			return src
		}
		return old
	case insts.OpAMOMAXUW:
		if src > old {
			return src
		}
		return old
	}
	return old
}
