package emu

// Memory is the physical memory interface a hart executes against.
//
// Byte accesses never check alignment. Word accesses require 4-byte
// alignment and fail with a misaligned exception otherwise; they are
// little-endian. Failed accesses return an *Exception.
type Memory interface {
	Read8(addr uint32) (uint8, error)
	Write8(addr uint32, value uint8) error
	Read32(addr uint32) (uint32, error)
	Write32(addr uint32, value uint32) error

	// Reserve records addr as the LR.W reservation of hart.
	Reserve(hart, addr uint32)
	// InvalidateReservation drops the reservation of hart, if any.
	InvalidateReservation(hart uint32)
	// IsReserved reports whether hart holds a reservation on addr.
	IsReserved(hart, addr uint32) bool
}

// DataAccess describes the data memory access made by one instruction.
type DataAccess struct {
	Addr  uint32
	Write bool
	Valid bool
}

// accessRecorder wraps a Memory and remembers the first data access of the
// current instruction for the cycle model.
type accessRecorder struct {
	Memory
	last DataAccess
}

func (r *accessRecorder) reset() {
	r.last = DataAccess{}
}

func (r *accessRecorder) record(addr uint32, write bool) {
	if !r.last.Valid {
		r.last = DataAccess{Addr: addr, Write: write, Valid: true}
	}
}

func (r *accessRecorder) Read8(addr uint32) (uint8, error) {
	r.record(addr, false)
	return r.Memory.Read8(addr)
}

func (r *accessRecorder) Write8(addr uint32, value uint8) error {
	r.record(addr, true)
	return r.Memory.Write8(addr, value)
}

func (r *accessRecorder) Read32(addr uint32) (uint32, error) {
	r.record(addr, false)
	return r.Memory.Read32(addr)
}

func (r *accessRecorder) Write32(addr uint32, value uint32) error {
	r.record(addr, true)
	return r.Memory.Write32(addr, value)
}
