package latency

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TimingConfig holds latency values for the RV32 instruction classes.
type TimingConfig struct {
	// ALULatency covers RV32I register-register, register-immediate and
	// upper-immediate operations. Default: 1 cycle.
	ALULatency uint64 `toml:"alu"`

	// BranchLatency covers conditional branches and jumps. Default: 1 cycle.
	BranchLatency uint64 `toml:"branch"`

	// LoadLatency is the pipeline cost of a load, excluding the data cache.
	// Default: 2 cycles.
	LoadLatency uint64 `toml:"load"`

	// StoreLatency is the pipeline cost of a store, excluding the data cache.
	// Default: 1 cycle.
	StoreLatency uint64 `toml:"store"`

	// MultiplyLatency covers MUL, MULH, MULHSU and MULHU. Default: 3 cycles.
	MultiplyLatency uint64 `toml:"multiply"`

	// DivideLatency covers DIV, DIVU, REM and REMU. Default: 20 cycles.
	DivideLatency uint64 `toml:"divide"`

	// AtomicLatency covers LR.W, SC.W and the AMOs. Default: 4 cycles.
	AtomicLatency uint64 `toml:"atomic"`

	// CSRLatency covers the Zicsr instructions. Default: 2 cycles.
	CSRLatency uint64 `toml:"csr"`

	// SystemLatency covers ECALL, EBREAK, xRET, WFI and the fences.
	// Default: 3 cycles.
	SystemLatency uint64 `toml:"system"`
}

// DefaultTimingConfig returns a TimingConfig for a simple in-order core.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:      1,
		BranchLatency:   1,
		LoadLatency:     2,
		StoreLatency:    1,
		MultiplyLatency: 3,
		DivideLatency:   20,
		AtomicLatency:   4,
		CSRLatency:      2,
		SystemLatency:   3,
	}
}

// LoadConfig loads a TimingConfig from a TOML file. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	config := DefaultTimingConfig()

	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown timing config keys: %v", undecoded)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a TOML file.
func (c *TimingConfig) SaveConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	checks := []struct {
		name  string
		value uint64
	}{
		{"alu", c.ALULatency},
		{"branch", c.BranchLatency},
		{"load", c.LoadLatency},
		{"store", c.StoreLatency},
		{"multiply", c.MultiplyLatency},
		{"divide", c.DivideLatency},
		{"atomic", c.AtomicLatency},
		{"csr", c.CSRLatency},
		{"system", c.SystemLatency},
	}

	for _, check := range checks {
		if check.value == 0 {
			return fmt.Errorf("%s latency must be > 0", check.name)
		}
	}

	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
