// Package main provides the rvsim command line: an RV32IMA interpreter that
// boots images on a UART console and runs riscv-tests compliance images.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/config"
)

var (
	configPath = flag.String("config", "", "path to a TOML machine configuration")
	logLevel   = flag.String("log-level", "", "log level (overrides log_level in the config)")
	cpuProfile = flag.String("cpuprofile", "", "write a CPU profile to file")
	memProfile = flag.String("memprofile", "", "write a heap profile to file on exit")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(new(Run), "")
	subcommands.Register(new(Test), "")
	subcommands.Register(new(Decode), "")
	subcommands.Register(new(Bench), "")

	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rvsim: %v\n", err)
		os.Exit(int(subcommands.ExitUsageError))
	}

	logger := cfg.Logger()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	stopProfiling, err := startProfiling(*cpuProfile, *memProfile)
	if err != nil {
		logger.WithError(err).Error("profiling")
		os.Exit(int(subcommands.ExitFailure))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := subcommands.Execute(ctx, cfg, logger)
	stop()

	if err := stopProfiling(); err != nil {
		logger.WithError(err).Error("profiling")
	}

	os.Exit(int(status))
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}

	if *logLevel != "" {
		cfg.LogLevel = *logLevel
		if _, err := cfg.Level(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// env unpacks the arguments passed to subcommands.Execute.
func env(args []interface{}) (*config.Config, *logrus.Logger) {
	return args[0].(*config.Config), args[1].(*logrus.Logger)
}
