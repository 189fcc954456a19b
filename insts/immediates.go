package insts

// SignExtend sign-extends the low bits of v to 32 bits.
func SignExtend(v uint32, bits uint) uint32 {
	shift := 32 - bits
	return uint32(int32(v<<shift) >> shift)
}

// ImmI extracts the I-type immediate: inst[31:20], sign-extended.
func ImmI(word uint32) uint32 {
	return uint32(int32(word) >> 20)
}

// ImmS extracts the S-type immediate: inst[31:25] | inst[11:7], sign-extended.
func ImmS(word uint32) uint32 {
	hi := (word >> 25) & 0x7F
	lo := (word >> 7) & 0x1F
	return SignExtend(hi<<5|lo, 12)
}

// ImmB extracts the B-type immediate.
// Layout: inst[31]=imm[12], inst[7]=imm[11], inst[30:25]=imm[10:5],
// inst[11:8]=imm[4:1], imm[0]=0.
func ImmB(word uint32) uint32 {
	imm := (word>>31)&0x1<<12 |
		(word>>7)&0x1<<11 |
		(word>>25)&0x3F<<5 |
		(word>>8)&0xF<<1
	return SignExtend(imm, 13)
}

// ImmJ extracts the J-type immediate.
// Layout: inst[31]=imm[20], inst[19:12]=imm[19:12], inst[20]=imm[11],
// inst[30:21]=imm[10:1], imm[0]=0.
func ImmJ(word uint32) uint32 {
	imm := (word>>31)&0x1<<20 |
		(word>>12)&0xFF<<12 |
		(word>>20)&0x1<<11 |
		(word>>21)&0x3FF<<1
	return SignExtend(imm, 21)
}

// ImmU extracts the U-type immediate: inst[31:12] with the low 12 bits zero.
func ImmU(word uint32) uint32 {
	return word & 0xFFFFF000
}
