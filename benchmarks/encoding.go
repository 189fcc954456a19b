package benchmarks

import "encoding/binary"

// ABI register numbers used by the microbenchmarks.
const (
	RegZero uint8 = 0
	RegRA   uint8 = 1
	RegT0   uint8 = 5
	RegT1   uint8 = 6
	RegT2   uint8 = 7
	RegS0   uint8 = 8
	RegS1   uint8 = 9
	RegA0   uint8 = 10
	RegA1   uint8 = 11
	RegA2   uint8 = 12
	RegA3   uint8 = 13
	RegA4   uint8 = 14
	RegA5   uint8 = 15
	RegS2   uint8 = 18
	RegS3   uint8 = 19
	RegS4   uint8 = 20
	RegS5   uint8 = 21
	RegT3   uint8 = 28
	RegT4   uint8 = 29
	RegT5   uint8 = 30
	RegT6   uint8 = 31
)

const (
	opcodeOp     = 0b0110011
	opcodeOpImm  = 0b0010011
	opcodeLoad   = 0b0000011
	opcodeStore  = 0b0100011
	opcodeBranch = 0b1100011
	opcodeJAL    = 0b1101111
	opcodeJALR   = 0b1100111
	opcodeLUI    = 0b0110111
	opcodeAMO    = 0b0101111
	opcodeSystem = 0b1110011
)

// BuildProgram assembles instruction words into a little-endian byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, len(instrs)*4)
	for i, inst := range instrs {
		binary.LittleEndian.PutUint32(program[i*4:], inst)
	}
	return program
}

func encodeR(funct7, funct3 uint32, rd, rs1, rs2 uint8) uint32 {
	return funct7<<25 |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		funct3<<12 |
		uint32(rd&0x1F)<<7 |
		opcodeOp
}

func encodeI(opcode, funct3 uint32, rd, rs1 uint8, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 |
		uint32(rs1&0x1F)<<15 |
		funct3<<12 |
		uint32(rd&0x1F)<<7 |
		opcode
}

func encodeS(funct3 uint32, rs1, rs2 uint8, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7F)<<25 |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		funct3<<12 |
		(u&0x1F)<<7 |
		opcodeStore
}

func encodeB(funct3 uint32, rs1, rs2 uint8, offset int32) uint32 {
	u := uint32(offset)
	return (u>>12&0x1)<<31 |
		(u>>5&0x3F)<<25 |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		funct3<<12 |
		(u>>1&0xF)<<8 |
		(u>>11&0x1)<<7 |
		opcodeBranch
}

// EncodeADDI encodes addi rd, rs1, imm.
func EncodeADDI(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(opcodeOpImm, 0b000, rd, rs1, imm)
}

// EncodeADD encodes add rd, rs1, rs2.
func EncodeADD(rd, rs1, rs2 uint8) uint32 {
	return encodeR(0x00, 0b000, rd, rs1, rs2)
}

// EncodeSUB encodes sub rd, rs1, rs2.
func EncodeSUB(rd, rs1, rs2 uint8) uint32 {
	return encodeR(0x20, 0b000, rd, rs1, rs2)
}

// EncodeMUL encodes mul rd, rs1, rs2.
func EncodeMUL(rd, rs1, rs2 uint8) uint32 {
	return encodeR(0x01, 0b000, rd, rs1, rs2)
}

// EncodeDIV encodes div rd, rs1, rs2.
func EncodeDIV(rd, rs1, rs2 uint8) uint32 {
	return encodeR(0x01, 0b100, rd, rs1, rs2)
}

// EncodeLW encodes lw rd, imm(rs1).
func EncodeLW(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(opcodeLoad, 0b010, rd, rs1, imm)
}

// EncodeSW encodes sw rs2, imm(rs1).
func EncodeSW(rs2, rs1 uint8, imm int32) uint32 {
	return encodeS(0b010, rs1, rs2, imm)
}

// EncodeBEQ encodes beq rs1, rs2, offset. offset is relative to the branch.
func EncodeBEQ(rs1, rs2 uint8, offset int32) uint32 {
	return encodeB(0b000, rs1, rs2, offset)
}

// EncodeBNE encodes bne rs1, rs2, offset.
func EncodeBNE(rs1, rs2 uint8, offset int32) uint32 {
	return encodeB(0b001, rs1, rs2, offset)
}

// EncodeJAL encodes jal rd, offset.
func EncodeJAL(rd uint8, offset int32) uint32 {
	u := uint32(offset)
	return (u>>20&0x1)<<31 |
		(u>>1&0x3FF)<<21 |
		(u>>11&0x1)<<20 |
		(u>>12&0xFF)<<12 |
		uint32(rd&0x1F)<<7 |
		opcodeJAL
}

// EncodeJALR encodes jalr rd, imm(rs1).
func EncodeJALR(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(opcodeJALR, 0b000, rd, rs1, imm)
}

// EncodeRET encodes ret (jalr x0, 0(ra)).
func EncodeRET() uint32 {
	return EncodeJALR(RegZero, RegRA, 0)
}

// EncodeLUI encodes lui rd, imm20.
func EncodeLUI(rd uint8, imm20 uint32) uint32 {
	return (imm20&0xFFFFF)<<12 | uint32(rd&0x1F)<<7 | opcodeLUI
}

// EncodeAMOADDW encodes amoadd.w rd, rs2, (rs1) with aq and rl clear.
func EncodeAMOADDW(rd, rs1, rs2 uint8) uint32 {
	return uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		0b010<<12 |
		uint32(rd&0x1F)<<7 |
		opcodeAMO
}

// EncodeECALL encodes ecall.
func EncodeECALL() uint32 {
	return opcodeSystem
}
