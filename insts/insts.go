// Package insts provides RISC-V instruction definitions and decoding.
//
// This package decodes RV32 machine code into structured instruction
// representations. It supports:
//   - RV32I base integer instructions, including FENCE and FENCE.I
//   - RV32M multiply and divide
//   - RV32A word-sized atomics (LR.W, SC.W, AMO*.W)
//   - Zicsr CSR access instructions
//   - Privileged ECALL, EBREAK, MRET, SRET and WFI
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x00208033) // add x0, x1, x2
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Rs2: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
package insts
