// Package config holds the machine configuration loaded from TOML.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/timing/core"
)

// DefaultToHost is the address the riscv-tests environment writes its
// result to.
const DefaultToHost = 0x80001000

// Config is the top-level machine configuration.
type Config struct {
	// ToHost is the address polled for the test result.
	ToHost uint32 `toml:"tohost"`
	// MaxInstructions bounds a single run. 0 means unlimited.
	MaxInstructions uint64 `toml:"max_instructions"`
	// HartID is the value reported by mhartid.
	HartID uint32 `toml:"hart_id"`
	// LogLevel is a logrus level name.
	LogLevel string `toml:"log_level"`
	// Parallel is the number of images run concurrently by the harness.
	Parallel int `toml:"parallel"`

	Timing core.Config `toml:"timing"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ToHost:          DefaultToHost,
		MaxInstructions: 10_000_000,
		LogLevel:        "info",
		Parallel:        4,
		Timing:          core.DefaultConfig(),
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return c, nil
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	return f.Close()
}

// Validate checks the configuration for values the machine cannot run with.
func (c *Config) Validate() error {
	if c.ToHost%4 != 0 {
		return fmt.Errorf("tohost 0x%x is not word aligned", c.ToHost)
	}
	if c.Parallel <= 0 {
		return fmt.Errorf("parallel must be > 0")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return c.Timing.Validate()
}

// Level parses LogLevel.
func (c *Config) Level() (logrus.Level, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Logger returns a logger writing to stderr at the configured level.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := c.Level(); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Timing = c.Timing.Clone()
	return &clone
}
