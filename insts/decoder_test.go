package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("R-type", func() {
		// add x3, x1, x2 -> 0x002081B3
		It("should decode ADD", func() {
			inst := decoder.Decode(0x002081B3)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
		})

		It("should decode SUB and SRA by funct7", func() {
			Expect(decoder.Decode(0x407302B3).Op).To(Equal(insts.OpSUB))
			Expect(decoder.Decode(0x4062D233).Op).To(Equal(insts.OpSRA))
		})

		It("should decode RV32M operations", func() {
			Expect(decoder.Decode(0x023120B3).Op).To(Equal(insts.OpMULHSU))

			inst := decoder.Decode(0x02C5F533) // remu x10, x11, x12
			Expect(inst.Op).To(Equal(insts.OpREMU))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Rs1).To(Equal(uint8(11)))
			Expect(inst.Rs2).To(Equal(uint8(12)))
		})

		It("should reject an unknown funct7", func() {
			inst := decoder.Decode(0x082081B3) // funct7 = 0x04
			Expect(inst.Op).To(Equal(insts.OpUnknown))
			Expect(inst.Format).To(Equal(insts.FormatUnknown))
			Expect(inst.Raw).To(Equal(uint32(0x082081B3)))
		})
	})

	Describe("I-type", func() {
		It("should decode ADDI with a sign-extended immediate", func() {
			inst := decoder.Decode(0xFFF10093)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(uint32(0xFFFFFFFF)))
		})

		It("should decode shift-immediates with the shift amount only", func() {
			inst := decoder.Decode(0x40315093) // srai x1, x2, 3
			Expect(inst.Op).To(Equal(insts.OpSRAI))
			Expect(inst.Imm).To(Equal(uint32(3)))

			inst = decoder.Decode(0x01F11093) // slli x1, x2, 31
			Expect(inst.Op).To(Equal(insts.OpSLLI))
			Expect(inst.Imm).To(Equal(uint32(31)))
		})

		It("should reject shift-immediates with bad high bits", func() {
			Expect(decoder.Decode(0x40311093).Op).To(Equal(insts.OpUnknown)) // slli with 0x20
			Expect(decoder.Decode(0x20315093).Op).To(Equal(insts.OpUnknown)) // srli with 0x10
		})

		It("should decode loads", func() {
			inst := decoder.Decode(0xFFC32283) // lw x5, -4(x6)
			Expect(inst.Op).To(Equal(insts.OpLW))
			Expect(inst.Imm).To(Equal(uint32(0xFFFFFFFC)))

			Expect(decoder.Decode(0x00235283).Op).To(Equal(insts.OpLHU))
		})

		It("should reject loads with reserved funct3", func() {
			Expect(decoder.Decode(0x00036283).Op).To(Equal(insts.OpUnknown)) // funct3 = 6
		})

		It("should decode JALR", func() {
			inst := decoder.Decode(0x004280E7)
			Expect(inst.Op).To(Equal(insts.OpJALR))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(5)))
			Expect(inst.Imm).To(Equal(uint32(4)))
		})

		It("should decode FENCE and FENCE.I", func() {
			Expect(decoder.Decode(0x0FF0000F).Op).To(Equal(insts.OpFENCE))
			Expect(decoder.Decode(0x0000100F).Op).To(Equal(insts.OpFENCEI))
		})
	})

	Describe("S-type and B-type", func() {
		It("should decode SW", func() {
			inst := decoder.Decode(0xFE712C23)
			Expect(inst.Op).To(Equal(insts.OpSW))
			Expect(inst.Format).To(Equal(insts.FormatS))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Rs2).To(Equal(uint8(7)))
			Expect(inst.Imm).To(Equal(uint32(0xFFFFFFF8)))
		})

		It("should decode BEQ and BNE", func() {
			inst := decoder.Decode(0x00208463)
			Expect(inst.Op).To(Equal(insts.OpBEQ))
			Expect(inst.Format).To(Equal(insts.FormatB))
			Expect(inst.Imm).To(Equal(uint32(8)))

			inst = decoder.Decode(0x80209063)
			Expect(inst.Op).To(Equal(insts.OpBNE))
			Expect(int32(inst.Imm)).To(Equal(int32(-4096)))
		})

		It("should reject branches with reserved funct3", func() {
			Expect(decoder.Decode(0x0020A463).Op).To(Equal(insts.OpUnknown)) // funct3 = 2
		})
	})

	Describe("J-type and U-type", func() {
		It("should decode JAL", func() {
			inst := decoder.Decode(0x001000EF)
			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Format).To(Equal(insts.FormatJ))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(uint32(2048)))
		})

		It("should decode LUI and AUIPC", func() {
			inst := decoder.Decode(0xDEADB2B7)
			Expect(inst.Op).To(Equal(insts.OpLUI))
			Expect(inst.Format).To(Equal(insts.FormatU))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Imm).To(Equal(uint32(0xDEADB000)))

			inst = decoder.Decode(0x00001317)
			Expect(inst.Op).To(Equal(insts.OpAUIPC))
			Expect(inst.Imm).To(Equal(uint32(0x1000)))
		})
	})

	Describe("System", func() {
		It("should distinguish privileged instructions by the CSR field", func() {
			Expect(decoder.Decode(0x00000073).Op).To(Equal(insts.OpECALL))
			Expect(decoder.Decode(0x00100073).Op).To(Equal(insts.OpEBREAK))
			Expect(decoder.Decode(0x30200073).Op).To(Equal(insts.OpMRET))
			Expect(decoder.Decode(0x10200073).Op).To(Equal(insts.OpSRET))
			Expect(decoder.Decode(0x10500073).Op).To(Equal(insts.OpWFI))
		})

		It("should reject privileged selectors with non-zero rd", func() {
			Expect(decoder.Decode(0x000000F3).Op).To(Equal(insts.OpUnknown)) // ecall with rd = 1
			Expect(decoder.Decode(0x7B200073).Op).To(Equal(insts.OpUnknown)) // dret is not supported
		})

		It("should decode CSR instructions", func() {
			inst := decoder.Decode(0x300110F3) // csrrw x1, mstatus, x2
			Expect(inst.Op).To(Equal(insts.OpCSRRW))
			Expect(inst.CSR).To(Equal(uint16(0x300)))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))

			inst = decoder.Decode(0x3042E1F3) // csrrsi x3, mie, 5
			Expect(inst.Op).To(Equal(insts.OpCSRRSI))
			Expect(inst.CSR).To(Equal(uint16(0x304)))
			Expect(inst.Rs1).To(Equal(uint8(5)))
		})
	})

	Describe("Atomic", func() {
		It("should decode LR.W with ordering bits", func() {
			inst := decoder.Decode(0x140322AF)
			Expect(inst.Op).To(Equal(insts.OpLRW))
			Expect(inst.Format).To(Equal(insts.FormatAtomic))
			Expect(inst.Aq).To(BeTrue())
			Expect(inst.Rl).To(BeFalse())
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(6)))
		})

		It("should decode SC.W and AMO operations", func() {
			inst := decoder.Decode(0x1A7322AF)
			Expect(inst.Op).To(Equal(insts.OpSCW))
			Expect(inst.Rl).To(BeTrue())
			Expect(inst.Rs2).To(Equal(uint8(7)))

			Expect(decoder.Decode(0xE021A0AF).Op).To(Equal(insts.OpAMOMAXUW))
		})

		It("should reject non-word atomics", func() {
			Expect(decoder.Decode(0x0021B0AF).Op).To(Equal(insts.OpUnknown))
		})
	})

	It("should reject unknown opcodes", func() {
		Expect(decoder.Decode(0x00000000).Op).To(Equal(insts.OpUnknown))
		Expect(decoder.Decode(0xFFFFFFFF).Op).To(Equal(insts.OpUnknown))
	})

	It("should render mnemonics", func() {
		Expect(decoder.Decode(0x002081B3).String()).To(Equal("add x3, x1, x2"))
		Expect(decoder.Decode(0xFFC32283).String()).To(Equal("lw x5, -4(x6)"))
		Expect(insts.OpAMOMAXUW.String()).To(Equal("amomaxu.w"))
	})
})
