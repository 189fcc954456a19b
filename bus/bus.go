// Package bus provides the physical memory map a hart executes against.
package bus

import (
	"fmt"
	"sync"

	"github.com/sarchlab/rvsim/emu"
)

// Memory map.
const (
	ROMBase = 0x00001000
	ROMSize = 0x1000 // 4KB

	UARTBase = 0x10000000
	UARTSize = 8

	DRAMBase = 0x80000000
	DRAMSize = 8 << 20 // 8MB
)

// Device is a byte-addressed memory-mapped peripheral. Offsets are relative
// to the device's base address.
type Device interface {
	Read(offset uint32) uint8
	Write(offset uint32, value uint8)
}

var _ emu.Memory = (*Bus)(nil)

// Bus dispatches physical addresses to ROM, DRAM and the UART, and owns the
// LR/SC reservation table. It implements emu.Memory. Lock and Unlock
// serialize atomic read-modify-write sequences across harts.
type Bus struct {
	mu sync.Mutex

	rom          []byte
	dram         []byte
	uart         Device
	reservations *ReservationTable
}

// New creates a bus. uart may be nil, leaving its range unmapped.
func New(uart Device, numHarts int) *Bus {
	return &Bus{
		rom:          make([]byte, ROMSize),
		dram:         make([]byte, DRAMSize),
		uart:         uart,
		reservations: NewReservationTable(numHarts),
	}
}

// Lock acquires the bus for an atomic memory operation.
func (b *Bus) Lock() { b.mu.Lock() }

// Unlock releases the bus.
func (b *Bus) Unlock() { b.mu.Unlock() }

// Reservations returns the reservation table.
func (b *Bus) Reservations() *ReservationTable {
	return b.reservations
}

func inRange(addr, start, size uint32) bool {
	return addr >= start && addr-start < size
}

// Read8 reads a byte.
func (b *Bus) Read8(addr uint32) (uint8, error) {
	switch {
	case inRange(addr, DRAMBase, DRAMSize):
		return b.dram[addr-DRAMBase], nil
	case inRange(addr, ROMBase, ROMSize):
		return b.rom[addr-ROMBase], nil
	case b.uart != nil && inRange(addr, UARTBase, UARTSize):
		return b.uart.Read(addr - UARTBase), nil
	}
	return 0, emu.LoadAccessFault(addr)
}

// Write8 writes a byte. Writing DRAM drops every reservation on the
// containing word.
func (b *Bus) Write8(addr uint32, value uint8) error {
	switch {
	case inRange(addr, DRAMBase, DRAMSize):
		b.reservations.InvalidateAddress(addr &^ 0x3)
		b.dram[addr-DRAMBase] = value
		return nil
	case b.uart != nil && inRange(addr, UARTBase, UARTSize):
		b.uart.Write(addr-UARTBase, value)
		return nil
	}
	// ROM is read-only to the guest.
	return emu.StoreAmoAccessFault(addr)
}

// Read32 reads an aligned little-endian word.
func (b *Bus) Read32(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, emu.LoadAddressMisaligned(addr)
	}

	var value uint32
	for i := uint32(0); i < 4; i++ {
		v, err := b.Read8(addr + i)
		if err != nil {
			return 0, err
		}
		value |= uint32(v) << (8 * i)
	}
	return value, nil
}

// Write32 writes an aligned little-endian word. Either all four bytes are
// written or none.
func (b *Bus) Write32(addr uint32, value uint32) error {
	if addr%4 != 0 {
		return emu.StoreAmoAddressMisaligned(addr)
	}
	if !b.writable(addr) || !b.writable(addr+3) {
		return emu.StoreAmoAccessFault(addr)
	}

	for i := uint32(0); i < 4; i++ {
		if err := b.Write8(addr+i, uint8(value>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) writable(addr uint32) bool {
	return inRange(addr, DRAMBase, DRAMSize) ||
		(b.uart != nil && inRange(addr, UARTBase, UARTSize))
}

// Reserve records an LR.W reservation.
func (b *Bus) Reserve(hart, addr uint32) {
	b.reservations.Reserve(hart, addr)
}

// InvalidateReservation drops the reservation of hart.
func (b *Bus) InvalidateReservation(hart uint32) {
	b.reservations.Invalidate(hart)
}

// IsReserved reports whether hart holds a reservation on addr.
func (b *Bus) IsReserved(hart, addr uint32) bool {
	return b.reservations.IsReserved(hart, addr)
}

// Load copies an image into ROM or DRAM. Unlike guest stores it may write
// ROM. The whole range must fall inside one region.
func (b *Bus) Load(addr uint32, data []byte) error {
	size := uint32(len(data))

	switch {
	case inRange(addr, DRAMBase, DRAMSize) && size <= DRAMSize-(addr-DRAMBase):
		copy(b.dram[addr-DRAMBase:], data)
	case inRange(addr, ROMBase, ROMSize) && size <= ROMSize-(addr-ROMBase):
		copy(b.rom[addr-ROMBase:], data)
	default:
		return fmt.Errorf("segment 0x%08x+0x%x is outside ROM and DRAM", addr, size)
	}

	b.reservations.InvalidateRange(addr, size)
	return nil
}

// Reset clears ROM, DRAM and all reservations.
func (b *Bus) Reset() {
	clear(b.rom)
	clear(b.dram)
	b.reservations.Reset()
}
