package insts

import "fmt"

var opNames = map[Op]string{
	OpADD: "add", OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu",
	OpXOR: "xor", OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and",

	OpMUL: "mul", OpMULH: "mulh", OpMULHSU: "mulhsu", OpMULHU: "mulhu",
	OpDIV: "div", OpDIVU: "divu", OpREM: "rem", OpREMU: "remu",

	OpADDI: "addi", OpSLTI: "slti", OpSLTIU: "sltiu", OpXORI: "xori",
	OpORI: "ori", OpANDI: "andi", OpSLLI: "slli", OpSRLI: "srli", OpSRAI: "srai",

	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLBU: "lbu", OpLHU: "lhu",
	OpSB: "sb", OpSH: "sh", OpSW: "sw",

	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge", OpBLTU: "bltu", OpBGEU: "bgeu",

	OpJAL: "jal", OpJALR: "jalr", OpLUI: "lui", OpAUIPC: "auipc",
	OpFENCE: "fence", OpFENCEI: "fence.i",

	OpECALL: "ecall", OpEBREAK: "ebreak", OpSRET: "sret", OpMRET: "mret", OpWFI: "wfi",

	OpCSRRW: "csrrw", OpCSRRS: "csrrs", OpCSRRC: "csrrc",
	OpCSRRWI: "csrrwi", OpCSRRSI: "csrrsi", OpCSRRCI: "csrrci",

	OpLRW: "lr.w", OpSCW: "sc.w", OpAMOSWAPW: "amoswap.w", OpAMOADDW: "amoadd.w",
	OpAMOXORW: "amoxor.w", OpAMOANDW: "amoand.w", OpAMOORW: "amoor.w",
	OpAMOMINW: "amomin.w", OpAMOMAXW: "amomax.w", OpAMOMINUW: "amominu.w", OpAMOMAXUW: "amomaxu.w",
}

// String returns the assembler mnemonic.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "unknown"
}

// String returns the shape name.
func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatB:
		return "B"
	case FormatJ:
		return "J"
	case FormatU:
		return "U"
	case FormatAtomic:
		return "Atomic"
	default:
		return "unknown"
	}
}

// String renders the instruction in a compact assembler-like form.
func (inst *Instruction) String() string {
	imm := int32(inst.Imm)

	switch inst.Format {
	case FormatR:
		return fmt.Sprintf("%s x%d, x%d, x%d", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
	case FormatI:
		switch inst.Op {
		case OpLB, OpLH, OpLW, OpLBU, OpLHU, OpJALR:
			return fmt.Sprintf("%s x%d, %d(x%d)", inst.Op, inst.Rd, imm, inst.Rs1)
		case OpCSRRW, OpCSRRS, OpCSRRC:
			return fmt.Sprintf("%s x%d, 0x%03x, x%d", inst.Op, inst.Rd, inst.CSR, inst.Rs1)
		case OpCSRRWI, OpCSRRSI, OpCSRRCI:
			return fmt.Sprintf("%s x%d, 0x%03x, %d", inst.Op, inst.Rd, inst.CSR, inst.Rs1)
		case OpECALL, OpEBREAK, OpSRET, OpMRET, OpWFI, OpFENCE, OpFENCEI:
			return inst.Op.String()
		}
		return fmt.Sprintf("%s x%d, x%d, %d", inst.Op, inst.Rd, inst.Rs1, imm)
	case FormatS:
		return fmt.Sprintf("%s x%d, %d(x%d)", inst.Op, inst.Rs2, imm, inst.Rs1)
	case FormatB:
		return fmt.Sprintf("%s x%d, x%d, %d", inst.Op, inst.Rs1, inst.Rs2, imm)
	case FormatJ:
		return fmt.Sprintf("%s x%d, %d", inst.Op, inst.Rd, imm)
	case FormatU:
		return fmt.Sprintf("%s x%d, 0x%x", inst.Op, inst.Rd, inst.Imm>>12)
	case FormatAtomic:
		if inst.Op == OpLRW {
			return fmt.Sprintf("%s x%d, (x%d)", inst.Op, inst.Rd, inst.Rs1)
		}
		return fmt.Sprintf("%s x%d, x%d, (x%d)", inst.Op, inst.Rd, inst.Rs2, inst.Rs1)
	}
	return fmt.Sprintf("unknown 0x%08x", inst.Raw)
}
