package bus

import "sync"

type reservation struct {
	addr  uint32
	valid bool
}

// ReservationTable holds at most one reserved word address per hart.
// It is safe for concurrent use.
type ReservationTable struct {
	mu      sync.Mutex
	entries []reservation
}

// NewReservationTable creates a table for numHarts harts. The table grows
// if a higher hart id shows up.
func NewReservationTable(numHarts int) *ReservationTable {
	if numHarts < 1 {
		numHarts = 1
	}
	return &ReservationTable{entries: make([]reservation, numHarts)}
}

// Reserve sets the reservation of hart to addr, replacing any previous one.
func (t *ReservationTable) Reserve(hart, addr uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for int(hart) >= len(t.entries) {
		t.entries = append(t.entries, reservation{})
	}
	t.entries[hart] = reservation{addr: addr, valid: true}
}

// Invalidate drops the reservation of hart.
func (t *ReservationTable) Invalidate(hart uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(hart) < len(t.entries) {
		t.entries[hart].valid = false
	}
}

// IsReserved reports whether hart holds a reservation on addr.
func (t *ReservationTable) IsReserved(hart, addr uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(hart) >= len(t.entries) {
		return false
	}
	e := t.entries[hart]
	return e.valid && e.addr == addr
}

// InvalidateAddress drops the reservation of every hart holding addr.
func (t *ReservationTable) InvalidateAddress(addr uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].valid && t.entries[i].addr == addr {
			t.entries[i].valid = false
		}
	}
}

// InvalidateRange drops every reservation inside [addr, addr+size).
func (t *ReservationTable) InvalidateRange(addr, size uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].valid && t.entries[i].addr-addr < size {
			t.entries[i].valid = false
		}
	}
}

// Reset drops all reservations.
func (t *ReservationTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.entries)
}
