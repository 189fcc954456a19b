// Package insts provides RISC-V instruction definitions and decoding.
package insts

// Op represents a RISC-V operation (one per mnemonic).
type Op uint16

// RV32 opcodes.
const (
	OpUnknown Op = iota

	// RV32I register-register
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	// RV32M
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	// RV32I register-immediate
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	// Loads
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU

	// Stores
	OpSB
	OpSH
	OpSW

	// Branches
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	// Jumps and upper immediates
	OpJAL
	OpJALR
	OpLUI
	OpAUIPC

	// Memory ordering
	OpFENCE
	OpFENCEI

	// System
	OpECALL
	OpEBREAK
	OpSRET
	OpMRET
	OpWFI

	// Zicsr
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI

	// RV32A
	OpLRW
	OpSCW
	OpAMOSWAPW
	OpAMOADDW
	OpAMOXORW
	OpAMOANDW
	OpAMOORW
	OpAMOMINW
	OpAMOMAXW
	OpAMOMINUW
	OpAMOMAXUW
)

// Format represents an instruction encoding shape.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // Register-register
	FormatI              // Register-immediate, loads, JALR, system
	FormatS              // Stores
	FormatB              // Conditional branches
	FormatJ              // JAL
	FormatU              // LUI, AUIPC
	FormatAtomic         // LR/SC/AMO
)

// Major opcodes (inst[6:0]).
const (
	opcodeLoad    = 0b0000011
	opcodeMiscMem = 0b0001111
	opcodeOpImm   = 0b0010011
	opcodeAUIPC   = 0b0010111
	opcodeStore   = 0b0100011
	opcodeAMO     = 0b0101111
	opcodeOp      = 0b0110011
	opcodeLUI     = 0b0110111
	opcodeBranch  = 0b1100011
	opcodeJALR    = 0b1100111
	opcodeJAL     = 0b1101111
	opcodeSystem  = 0b1110011
)

// Instruction represents a decoded RISC-V instruction.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Encoding shape

	// Raw is the undecoded instruction word.
	Raw uint32

	Rd  uint8 // Destination register
	Rs1 uint8 // First source register (zimm for CSR immediate forms)
	Rs2 uint8 // Second source register

	// Imm is the sign-extended immediate. For shift-immediates it holds the
	// 5-bit shift amount.
	Imm uint32

	// CSR is the control and status register index for Zicsr instructions.
	CSR uint16

	// Aq and Rl are the atomic ordering constraint bits.
	Aq bool
	Rl bool
}

// Decoder decodes RV32 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RISC-V instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. Illegal encodings come back
// with Op == OpUnknown and Format == FormatUnknown; the raw word is kept for
// diagnostics. Decoding never touches memory.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Op:     OpUnknown,
		Format: FormatUnknown,
		Raw:    word,
		Rd:     uint8((word >> 7) & 0x1F),
		Rs1:    uint8((word >> 15) & 0x1F),
		Rs2:    uint8((word >> 20) & 0x1F),
	}

	switch word & 0x7F {
	case opcodeOp:
		d.decodeOp(word, inst)
	case opcodeOpImm:
		d.decodeOpImm(word, inst)
	case opcodeLoad:
		d.decodeLoad(word, inst)
	case opcodeStore:
		d.decodeStore(word, inst)
	case opcodeBranch:
		d.decodeBranch(word, inst)
	case opcodeJAL:
		inst.Format = FormatJ
		inst.Op = OpJAL
		inst.Imm = ImmJ(word)
	case opcodeJALR:
		if funct3(word) == 0 {
			d.setI(word, inst, OpJALR)
		}
	case opcodeLUI:
		inst.Format = FormatU
		inst.Op = OpLUI
		inst.Imm = ImmU(word)
	case opcodeAUIPC:
		inst.Format = FormatU
		inst.Op = OpAUIPC
		inst.Imm = ImmU(word)
	case opcodeMiscMem:
		d.decodeMiscMem(word, inst)
	case opcodeSystem:
		d.decodeSystem(word, inst)
	case opcodeAMO:
		d.decodeAtomic(word, inst)
	}

	if inst.Op == OpUnknown {
		inst.Format = FormatUnknown
	}

	return inst
}

func funct3(word uint32) uint32 { return (word >> 12) & 0x7 }
func funct7(word uint32) uint32 { return (word >> 25) & 0x7F }

func (d *Decoder) setI(word uint32, inst *Instruction, op Op) {
	inst.Format = FormatI
	inst.Op = op
	inst.Imm = ImmI(word)
}

// decodeOp decodes register-register ALU and RV32M instructions.
// Format: funct7 | rs2 | rs1 | funct3 | rd | 0110011
func (d *Decoder) decodeOp(word uint32, inst *Instruction) {
	var op Op

	switch f7, f3 := funct7(word), funct3(word); f7 {
	case 0x00:
		op = [8]Op{OpADD, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpOR, OpAND}[f3]
	case 0x01:
		op = [8]Op{OpMUL, OpMULH, OpMULHSU, OpMULHU, OpDIV, OpDIVU, OpREM, OpREMU}[f3]
	case 0x20:
		switch f3 {
		case 0x0:
			op = OpSUB
		case 0x5:
			op = OpSRA
		}
	}

	if op != OpUnknown {
		inst.Format = FormatR
		inst.Op = op
	}
}

// decodeOpImm decodes register-immediate ALU instructions.
// Shift-immediates require imm[11:5] to be 0x00 (SLLI/SRLI) or 0x20 (SRAI).
func (d *Decoder) decodeOpImm(word uint32, inst *Instruction) {
	hi := funct7(word)

	switch funct3(word) {
	case 0x0:
		d.setI(word, inst, OpADDI)
	case 0x2:
		d.setI(word, inst, OpSLTI)
	case 0x3:
		d.setI(word, inst, OpSLTIU)
	case 0x4:
		d.setI(word, inst, OpXORI)
	case 0x6:
		d.setI(word, inst, OpORI)
	case 0x7:
		d.setI(word, inst, OpANDI)
	case 0x1:
		if hi == 0x00 {
			d.setI(word, inst, OpSLLI)
			inst.Imm &= 0x1F
		}
	case 0x5:
		switch hi {
		case 0x00:
			d.setI(word, inst, OpSRLI)
			inst.Imm &= 0x1F
		case 0x20:
			d.setI(word, inst, OpSRAI)
			inst.Imm &= 0x1F
		}
	}
}

func (d *Decoder) decodeLoad(word uint32, inst *Instruction) {
	switch funct3(word) {
	case 0x0:
		d.setI(word, inst, OpLB)
	case 0x1:
		d.setI(word, inst, OpLH)
	case 0x2:
		d.setI(word, inst, OpLW)
	case 0x4:
		d.setI(word, inst, OpLBU)
	case 0x5:
		d.setI(word, inst, OpLHU)
	}
}

func (d *Decoder) decodeStore(word uint32, inst *Instruction) {
	var op Op

	switch funct3(word) {
	case 0x0:
		op = OpSB
	case 0x1:
		op = OpSH
	case 0x2:
		op = OpSW
	default:
		return
	}

	inst.Format = FormatS
	inst.Op = op
	inst.Imm = ImmS(word)
}

func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	var op Op

	switch funct3(word) {
	case 0x0:
		op = OpBEQ
	case 0x1:
		op = OpBNE
	case 0x4:
		op = OpBLT
	case 0x5:
		op = OpBGE
	case 0x6:
		op = OpBLTU
	case 0x7:
		op = OpBGEU
	default:
		return
	}

	inst.Format = FormatB
	inst.Op = op
	inst.Imm = ImmB(word)
}

func (d *Decoder) decodeMiscMem(word uint32, inst *Instruction) {
	switch funct3(word) {
	case 0x0:
		d.setI(word, inst, OpFENCE)
	case 0x1:
		d.setI(word, inst, OpFENCEI)
	}
}

// decodeSystem decodes privileged and Zicsr instructions. With funct3 == 0
// the CSR field acts as a selector and rs1/rd must both be zero.
func (d *Decoder) decodeSystem(word uint32, inst *Instruction) {
	csr := uint16(word >> 20)
	f3 := funct3(word)

	if f3 == 0 {
		if inst.Rs1 != 0 || inst.Rd != 0 {
			return
		}

		var op Op
		switch csr {
		case 0x000:
			op = OpECALL
		case 0x001:
			op = OpEBREAK
		case 0x102:
			op = OpSRET
		case 0x302:
			op = OpMRET
		case 0x105:
			op = OpWFI
		default:
			return
		}

		inst.Format = FormatI
		inst.Op = op
		inst.CSR = csr
		return
	}

	var op Op
	switch f3 {
	case 0x1:
		op = OpCSRRW
	case 0x2:
		op = OpCSRRS
	case 0x3:
		op = OpCSRRC
	case 0x5:
		op = OpCSRRWI
	case 0x6:
		op = OpCSRRSI
	case 0x7:
		op = OpCSRRCI
	default:
		return
	}

	inst.Format = FormatI
	inst.Op = op
	inst.CSR = csr
	inst.Imm = uint32(csr)
}

// decodeAtomic decodes RV32A instructions. Only word-sized (funct3 == 0b010)
// operations exist.
// Format: funct5 | aq | rl | rs2 | rs1 | 010 | rd | 0101111
func (d *Decoder) decodeAtomic(word uint32, inst *Instruction) {
	if funct3(word) != 0b010 {
		return
	}

	var op Op
	switch funct5 := (word >> 27) & 0x1F; funct5 {
	case 0b00010:
		if inst.Rs2 != 0 {
			return
		}
		op = OpLRW
	case 0b00011:
		op = OpSCW
	case 0b00001:
		op = OpAMOSWAPW
	case 0b00000:
		op = OpAMOADDW
	case 0b00100:
		op = OpAMOXORW
	case 0b01100:
		op = OpAMOANDW
	case 0b01000:
		op = OpAMOORW
	case 0b10000:
		op = OpAMOMINW
	case 0b10100:
		op = OpAMOMAXW
	case 0b11000:
		op = OpAMOMINUW
	case 0b11100:
		op = OpAMOMAXUW
	default:
		return
	}

	inst.Format = FormatAtomic
	inst.Op = op
	inst.Aq = (word>>26)&0x1 == 1
	inst.Rl = (word>>25)&0x1 == 1
}
