// Package core provides the cycle model driven by the functional emulator.
// It charges each retired or trapped instruction its class latency plus the
// instruction and data cache costs of the accesses it made.
package core

import (
	"fmt"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
)

// Config selects and parameterizes the cycle model.
type Config struct {
	Enabled bool                  `toml:"enabled"`
	Latency *latency.TimingConfig `toml:"latency"`
	ICache  cache.Config          `toml:"icache"`
	DCache  cache.Config          `toml:"dcache"`

	BranchPredictor BranchPredictorConfig `toml:"branch_predictor"`
}

// DefaultConfig returns a disabled model with default parameters.
func DefaultConfig() Config {
	return Config{
		Latency: latency.DefaultTimingConfig(),
		ICache:  cache.DefaultL1IConfig(),
		DCache:  cache.DefaultL1DConfig(),

		BranchPredictor: DefaultBranchPredictorConfig(),
	}
}

// Validate checks the latency table and both cache geometries.
func (c Config) Validate() error {
	if c.Latency == nil {
		return fmt.Errorf("timing latency config is missing")
	}
	if err := c.Latency.Validate(); err != nil {
		return fmt.Errorf("timing.latency: %w", err)
	}
	if err := c.ICache.Validate(); err != nil {
		return fmt.Errorf("timing.icache: %w", err)
	}
	if err := c.DCache.Validate(); err != nil {
		return fmt.Errorf("timing.dcache: %w", err)
	}
	if err := c.BranchPredictor.Validate(); err != nil {
		return fmt.Errorf("timing.branch_predictor: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c Config) Clone() Config {
	clone := c
	if c.Latency != nil {
		clone.Latency = c.Latency.Clone()
	}
	return clone
}

// Stats holds performance statistics for the model.
type Stats struct {
	// Cycles is the total number of cycles charged.
	Cycles uint64
	// Instructions is the number of instructions charged, traps included.
	Instructions uint64
	// Stalls is the number of cycles beyond one per instruction.
	Stalls uint64
	// Redirects is the number of branches whose next PC was not predicted.
	Redirects uint64

	ICache cache.Statistics
	DCache cache.Statistics
	Branch BranchPredictorStats
}

// CPI returns cycles per instruction, or 0 before the first instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// pendingBranch is a branch whose outcome is known once the next
// instruction's PC is seen.
type pendingBranch struct {
	valid bool
	pc    uint32
	pred  Prediction
}

// Model implements emu.CycleModel.
type Model struct {
	table     *latency.Table
	icache    *cache.Cache
	dcache    *cache.Cache
	predictor *BranchPredictor
	penalty   uint64

	pending pendingBranch

	cycles       uint64
	instructions uint64
	redirects    uint64
}

var _ emu.CycleModel = (*Model)(nil)

// NewModel creates a cycle model from the given configuration. A nil latency
// config falls back to the defaults.
func NewModel(config Config) *Model {
	timing := config.Latency
	if timing == nil {
		timing = latency.DefaultTimingConfig()
	}

	return &Model{
		table:     latency.NewTableWithConfig(timing),
		icache:    cache.New(config.ICache),
		dcache:    cache.New(config.DCache),
		predictor: NewBranchPredictor(config.BranchPredictor),
		penalty:   config.BranchPredictor.MispredictPenalty,
	}
}

// Cycles charges one instruction. inst is nil when the fetch itself faulted.
// A mispredicted branch is charged to the instruction that follows it, since
// only then is the branch outcome visible.
func (m *Model) Cycles(inst *insts.Instruction, pc uint32, access emu.DataAccess) uint64 {
	cycles := m.icache.Read(pc).Latency
	cycles += m.resolveBranch(pc)

	if inst != nil {
		cycles += m.table.GetLatency(inst)
	} else {
		cycles++
	}

	if access.Valid {
		cycles += m.dcache.Access(access.Addr, access.Write).Latency
	}

	if inst != nil && inst.Op == insts.OpFENCEI {
		m.icache.Flush()
	}

	if inst != nil && isPredicted(inst.Op) {
		m.pending = pendingBranch{valid: true, pc: pc, pred: m.predictor.Predict(pc)}
	}

	m.cycles += cycles
	m.instructions++

	return cycles
}

// isPredicted reports whether op goes through the branch predictor. JAL
// targets are resolved at decode.
func isPredicted(op insts.Op) bool {
	return op == insts.OpJALR || (op >= insts.OpBEQ && op <= insts.OpBGEU)
}

// resolveBranch trains the predictor with the pending branch, now that the
// next PC is known, and returns the redirect penalty.
func (m *Model) resolveBranch(next uint32) uint64 {
	if !m.pending.valid {
		return 0
	}

	branch := m.pending
	m.pending = pendingBranch{}

	taken := next != branch.pc+4
	m.predictor.Update(branch.pc, taken, next)

	correct := branch.pred.Taken == taken &&
		(!taken || (branch.pred.TargetKnown && branch.pred.Target == next))
	if correct {
		return 0
	}

	m.redirects++
	return m.penalty
}

// Stats returns performance statistics for the model.
func (m *Model) Stats() Stats {
	stats := Stats{
		Cycles:       m.cycles,
		Instructions: m.instructions,
		Redirects:    m.redirects,
		ICache:       m.icache.Stats(),
		DCache:       m.dcache.Stats(),
		Branch:       m.predictor.Stats(),
	}
	if m.cycles > m.instructions {
		stats.Stalls = m.cycles - m.instructions
	}
	return stats
}

// Reset clears all model state.
func (m *Model) Reset() {
	m.icache.Reset()
	m.dcache.Reset()
	m.predictor.Reset()
	m.pending = pendingBranch{}
	m.cycles = 0
	m.instructions = 0
	m.redirects = 0
}
