package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
)

var _ = Describe("RegFile", func() {
	var regFile *emu.RegFile

	BeforeEach(func() {
		regFile = &emu.RegFile{}
	})

	It("should read back written values for x1-x31", func() {
		for r := uint8(1); r < 32; r++ {
			regFile.WriteReg(r, 0xDEAD0000|uint32(r))
		}
		for r := uint8(1); r < 32; r++ {
			Expect(regFile.ReadReg(r)).To(Equal(0xDEAD0000 | uint32(r)))
		}
	})

	It("should hardwire x0 to zero", func() {
		regFile.WriteReg(0, 0xFFFFFFFF)
		Expect(regFile.ReadReg(0)).To(Equal(uint32(0)))
		Expect(regFile.X[0]).To(Equal(uint32(0)))
	})

	It("should clear registers and set the PC on reset", func() {
		regFile.WriteReg(5, 42)
		regFile.Reset(0x80000000)
		Expect(regFile.ReadReg(5)).To(BeZero())
		Expect(regFile.PC).To(Equal(uint32(0x80000000)))
	})
})

var _ = Describe("MStatus", func() {
	var ms emu.MStatus

	BeforeEach(func() {
		ms = emu.MStatus(0)
	})

	It("should round-trip single-bit fields without touching others", func() {
		ms.SetMPP(3)
		ms.SetMIE(true)
		Expect(ms.MIE()).To(BeTrue())
		Expect(uint32(ms)).To(Equal(uint32(1<<3 | 3<<11)))

		ms.SetSPP(true)
		Expect(ms.SPP()).To(BeTrue())
		Expect(ms.MIE()).To(BeTrue())
		Expect(ms.MPP()).To(Equal(uint32(3)))

		ms.SetMIE(false)
		Expect(ms.MIE()).To(BeFalse())
		Expect(ms.SPP()).To(BeTrue())
	})

	It("should round-trip two-bit fields", func() {
		ms = emu.MStatus(0xFFFFFFFF)
		ms.SetMPP(1)
		Expect(ms.MPP()).To(Equal(uint32(1)))
		Expect(uint32(ms)).To(Equal(uint32(0xFFFFFFFF &^ (2 << 11))))

		ms.SetFS(2)
		ms.SetVS(1)
		ms.SetXS(0)
		Expect(ms.FS()).To(Equal(uint32(2)))
		Expect(ms.VS()).To(Equal(uint32(1)))
		Expect(ms.XS()).To(Equal(uint32(0)))
		Expect(ms.MPP()).To(Equal(uint32(1)))
	})

	It("should place fields at their architectural bit positions", func() {
		ms.SetSIE(true)
		ms.SetSPIE(true)
		ms.SetMPIE(true)
		ms.SetMPRV(true)
		ms.SetTW(true)
		ms.SetTSR(true)
		ms.SetSD(true)
		Expect(uint32(ms)).To(Equal(uint32(1<<1 | 1<<5 | 1<<7 | 1<<17 | 1<<21 | 1<<22 | 1<<31)))
	})
})

var _ = Describe("Privilege", func() {
	It("should order levels for access checks", func() {
		Expect(emu.User < emu.Supervisor).To(BeTrue())
		Expect(emu.Supervisor < emu.Machine).To(BeTrue())
	})

	It("should map the reserved MPP encoding to Machine", func() {
		Expect(emu.PrivilegeFromBits(0)).To(Equal(emu.User))
		Expect(emu.PrivilegeFromBits(1)).To(Equal(emu.Supervisor))
		Expect(emu.PrivilegeFromBits(2)).To(Equal(emu.Machine))
		Expect(emu.PrivilegeFromBits(3)).To(Equal(emu.Machine))
	})
})
