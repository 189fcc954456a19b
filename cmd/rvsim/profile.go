package main

import (
	"fmt"
	"os"
	"runtime/pprof"
)

// startProfiling starts the CPU profile if requested and returns a function
// that stops it and writes the heap profile.
func startProfiling(cpuPath, memPath string) (func() error, error) {
	var cpuFile *os.File
	if cpuPath != "" {
		f, err := os.Create(cpuPath)
		if err != nil {
			return nil, fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("could not start CPU profile: %w", err)
		}
		cpuFile = f
	}

	return func() error {
		if cpuFile != nil {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}

		if memPath == "" {
			return nil
		}

		f, err := os.Create(memPath)
		if err != nil {
			return fmt.Errorf("could not create memory profile: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("could not write memory profile: %w", err)
		}
		return nil
	}, nil
}
