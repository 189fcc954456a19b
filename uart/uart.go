// Package uart models a 16550-style serial port used as the guest console.
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Register offsets.
const (
	RegRHRTHR = 0 // receive holding (read) / transmit holding (write)
	RegLSR    = 5 // line status
)

// Line status bits.
const (
	LSRDataReady = 1 << 0
	LSRTHREmpty  = 1 << 5
)

const numRegs = 8

// UART is a minimal 16550. Guest writes to THR go straight to the output
// writer, so the transmitter is always empty. Input arrives one byte at a
// time from a background reader that waits until the guest has consumed
// the previous byte.
type UART struct {
	mu   sync.Mutex
	cond *sync.Cond
	regs [numRegs]uint8
	out  io.Writer

	interrupt atomic.Bool
}

// New creates a UART that prints transmitted bytes to out.
func New(out io.Writer) *UART {
	u := &UART{out: out}
	u.cond = sync.NewCond(&u.mu)
	u.regs[RegLSR] = LSRTHREmpty
	return u
}

// Start feeds bytes from in to the receiver until in is exhausted or ctx
// is cancelled. It blocks; run it in its own goroutine. A read that is
// already in progress is not interrupted by cancellation.
func (u *UART) Start(ctx context.Context, in io.Reader) error {
	stop := context.AfterFunc(ctx, func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.cond.Broadcast()
	})
	defer stop()

	var buf [1]byte
	for {
		if _, err := io.ReadFull(in, buf[:]); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("uart input: %w", err)
		}

		if !u.receive(ctx, buf[0]) {
			return nil
		}
	}
}

// receive waits for the receiver to drain and latches b. It reports false
// if ctx was cancelled first.
func (u *UART) receive(ctx context.Context, b byte) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	for u.regs[RegLSR]&LSRDataReady != 0 {
		if ctx.Err() != nil {
			return false
		}
		u.cond.Wait()
	}

	u.regs[RegRHRTHR] = b
	u.regs[RegLSR] |= LSRDataReady
	u.interrupt.Store(true)
	return true
}

// Read reads a register. Reading RHR consumes the received byte.
func (u *UART) Read(offset uint32) uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()

	offset %= numRegs
	if offset == RegRHRTHR {
		u.regs[RegLSR] &^= LSRDataReady
		u.cond.Signal()
	}
	return u.regs[offset]
}

// Write writes a register. Writing THR transmits the byte; LSR is
// read-only.
func (u *UART) Write(offset uint32, value uint8) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch offset %= numRegs; offset {
	case RegRHRTHR:
		_, _ = u.out.Write([]byte{value})
	case RegLSR:
	default:
		u.regs[offset] = value
	}
}

// HasInterrupt reports whether a byte arrived since the last call, and
// clears the flag.
func (u *UART) HasInterrupt() bool {
	return u.interrupt.Swap(false)
}
