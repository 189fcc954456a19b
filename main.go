// Package main provides the entry point for rvsim.
// rvsim is an RV32IMA instruction-set interpreter with a UART console and a
// riscv-tests compliance harness and an optional cycle model.
//
// For the full CLI, use: go run ./cmd/rvsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rvsim - RV32IMA Instruction-Set Interpreter")
	fmt.Println("")
	fmt.Println("Usage: rvsim [-config file.toml] [-log-level level] <command> [flags] <args>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run       Boot an ELF or Intel HEX image on the UART console")
	fmt.Println("  test      Run riscv-tests compliance images")
	fmt.Println("  decode    Decode instruction words")
	fmt.Println("  bench     Run the timing microbenchmarks")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvsim' instead.")
	}
}
