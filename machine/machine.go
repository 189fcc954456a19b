// Package machine assembles a bus, a UART and a hart into a runnable system
// and drives riscv-tests style compliance images.
package machine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/bus"
	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/uart"
)

// ErrNoSignal is returned when a compliance run ends without the program
// writing its to-host word.
var ErrNoSignal = errors.New("program did not write tohost")

// cancelCheckInterval is the number of steps between context checks.
const cancelCheckInterval = 4096

// Machine is a single-hart system.
type Machine struct {
	config *config.Config
	logger *logrus.Logger

	bus   *bus.Bus
	uart  *uart.UART
	hart  *emu.Emulator
	model *core.Model
}

// New builds a machine. Guest UART output goes to console, or nowhere when
// console is nil.
func New(cfg *config.Config, console io.Writer, logger *logrus.Logger) *Machine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if console == nil {
		console = io.Discard
	}

	m := &Machine{
		config: cfg,
		logger: logger,
		uart:   uart.New(console),
	}
	m.bus = bus.New(m.uart, int(cfg.HartID)+1)

	opts := []emu.EmulatorOption{
		emu.WithHartID(cfg.HartID),
		emu.WithLogger(logger),
		emu.WithMaxInstructions(cfg.MaxInstructions),
	}
	if cfg.Timing.Enabled {
		m.model = core.NewModel(cfg.Timing)
		opts = append(opts, emu.WithCycleModel(m.model))
	}
	m.hart = emu.NewEmulator(m.bus, opts...)

	return m
}

// Bus returns the system bus.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// UART returns the console device.
func (m *Machine) UART() *uart.UART { return m.uart }

// Hart returns the hart.
func (m *Machine) Hart() *emu.Emulator { return m.hart }

// Model returns the cycle model, or nil when timing is disabled.
func (m *Machine) Model() *core.Model { return m.model }

// Load reads an ELF or Intel HEX image and places it in memory.
func (m *Machine) Load(path string) (*loader.Program, error) {
	prog, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	if err := m.LoadProgram(prog); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return prog, nil
}

// LoadProgram copies prog into memory and resets the hart to its entry
// point.
func (m *Machine) LoadProgram(prog *loader.Program) error {
	if err := prog.LoadInto(m.bus); err != nil {
		return err
	}

	m.hart.Reset()
	m.hart.RegFile().PC = prog.EntryPoint
	if m.model != nil {
		m.model.Reset()
	}

	m.logger.WithFields(logrus.Fields{
		"entry":    fmt.Sprintf("0x%08x", prog.EntryPoint),
		"segments": len(prog.Segments),
		"bytes":    prog.Size(),
	}).Debug("program loaded")

	return nil
}

// Run steps the hart until done reports true, the instruction budget runs
// out, or ctx is cancelled.
func (m *Machine) Run(ctx context.Context, done func() bool) error {
	for n := 0; done == nil || !done(); n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if result := m.hart.Step(); result.Err != nil {
			return result.Err
		}
	}
	return nil
}

// RunCompliance runs until the word at toHost becomes non-zero and returns
// it. Running out of instructions yields ErrNoSignal.
func (m *Machine) RunCompliance(ctx context.Context, toHost uint32) (uint32, error) {
	var value uint32
	done := func() bool {
		v, err := m.bus.Read32(toHost)
		if err != nil {
			return false
		}
		value = v
		return v != 0
	}

	err := m.Run(ctx, done)
	if errors.Is(err, emu.ErrInstructionLimit) {
		return 0, fmt.Errorf("%w after %d instructions", ErrNoSignal, m.hart.InstructionCount())
	}
	if err != nil {
		return 0, err
	}

	return value, nil
}
