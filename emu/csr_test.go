package emu_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
)

func expectIllegal(err error) {
	var exc *emu.Exception
	ExpectWithOffset(1, errors.As(err, &exc)).To(BeTrue())
	ExpectWithOffset(1, exc.Cause).To(Equal(emu.CauseIllegalInstruction))
}

var _ = Describe("CSRFile", func() {
	var csrs *emu.CSRFile

	BeforeEach(func() {
		csrs = emu.NewCSRFile(7)
	})

	Describe("privilege checks", func() {
		It("should reject access below the register's privilege tier", func() {
			_, err := csrs.Read(emu.CSRMScratch, emu.Supervisor)
			expectIllegal(err)
			expectIllegal(csrs.Write(emu.CSRMScratch, emu.User, 1))
			expectIllegal(csrs.Write(emu.CSRSScratch, emu.User, 1))
		})

		It("should allow access at or above the tier", func() {
			Expect(csrs.Write(emu.CSRSScratch, emu.Supervisor, 1)).To(Succeed())
			Expect(csrs.Write(emu.CSRSScratch, emu.Machine, 2)).To(Succeed())
			Expect(csrs.Read(emu.CSRSScratch, emu.Supervisor)).To(Equal(uint32(2)))
		})

		It("should reject writes to read-only registers at any privilege", func() {
			expectIllegal(csrs.Write(emu.CSRMHartID, emu.Machine, 1))
			expectIllegal(csrs.Write(emu.CSRCycle, emu.Machine, 1))
			Expect(csrs.Read(emu.CSRMHartID, emu.Machine)).To(Equal(uint32(7)))
		})

		It("should let user mode read the counter shadows", func() {
			Expect(csrs.Read(emu.CSRCycle, emu.User)).To(Equal(uint32(0)))
			Expect(csrs.Read(emu.CSRInstretH, emu.User)).To(Equal(uint32(0)))
		})
	})

	Describe("special registers", func() {
		It("should start with MPP set to Machine", func() {
			ms, err := csrs.MStatusValue(emu.Machine)
			Expect(err).NotTo(HaveOccurred())
			Expect(ms.MPP()).To(Equal(uint32(3)))
		})

		It("should mask mstatus writes", func() {
			Expect(csrs.Write(emu.CSRMStatus, emu.Machine, 0xFFFFFFFF)).To(Succeed())
			Expect(csrs.Read(emu.CSRMStatus, emu.Machine)).To(Equal(emu.MStatusMask))
		})

		It("should expose the supervisor subset of mstatus as sstatus", func() {
			ms, err := csrs.MStatus(emu.Machine)
			Expect(err).NotTo(HaveOccurred())
			ms.SetMIE(true)
			ms.SetSIE(true)

			v, err := csrs.Read(emu.CSRSStatus, emu.Supervisor)
			Expect(err).NotTo(HaveOccurred())
			Expect(v & (1 << 3)).To(BeZero())
			Expect(v & (1 << 1)).NotTo(BeZero())

			Expect(csrs.Write(emu.CSRSStatus, emu.Supervisor, 0)).To(Succeed())
			after, _ := csrs.MStatusValue(emu.Machine)
			Expect(after.SIE()).To(BeFalse())
			Expect(after.MIE()).To(BeTrue())
			Expect(after.MPP()).To(Equal(uint32(3)))
		})

		It("should mask mie and present sie as a view of it", func() {
			Expect(csrs.Write(emu.CSRMIE, emu.Machine, 0xFFFFFFFF)).To(Succeed())
			Expect(csrs.Read(emu.CSRMIE, emu.Machine)).To(Equal(emu.MIEMask))
			Expect(csrs.Read(emu.CSRSIE, emu.Supervisor)).To(Equal(emu.SIEMask))

			Expect(csrs.Write(emu.CSRSIE, emu.Supervisor, 0)).To(Succeed())
			Expect(csrs.Read(emu.CSRMIE, emu.Machine)).To(Equal(emu.MIEMask &^ emu.SIEMask))
		})

		It("should read tselect as all ones", func() {
			Expect(csrs.Write(emu.CSRTSelect, emu.Machine, 0)).To(Succeed())
			Expect(csrs.Read(emu.CSRTSelect, emu.Machine)).To(Equal(uint32(0xFFFFFFFF)))
		})

		It("should ignore writes to misa", func() {
			Expect(csrs.Write(emu.CSRMISA, emu.Machine, 0)).To(Succeed())
			Expect(csrs.Read(emu.CSRMISA, emu.Machine)).To(Equal(emu.MISAValue))
		})

		It("should clear the low bits of mepc and sepc", func() {
			Expect(csrs.Write(emu.CSRMEPC, emu.Machine, 0x80000007)).To(Succeed())
			Expect(csrs.Read(emu.CSRMEPC, emu.Machine)).To(Equal(uint32(0x80000004)))
			Expect(csrs.Write(emu.CSRSEPC, emu.Supervisor, 0x80000003)).To(Succeed())
			Expect(csrs.Read(emu.CSRSEPC, emu.Supervisor)).To(Equal(uint32(0x80000000)))
		})
	})

	Describe("counters", func() {
		It("should increment minstret as a 64-bit counter", func() {
			Expect(csrs.Write(emu.CSRMInstret, emu.Machine, 0xFFFFFFFF)).To(Succeed())
			csrs.IncrementInstret() // suppressed after the write
			Expect(csrs.Instret()).To(Equal(uint64(0xFFFFFFFF)))

			csrs.IncrementInstret()
			Expect(csrs.Read(emu.CSRMInstret, emu.Machine)).To(Equal(uint32(0)))
			Expect(csrs.Read(emu.CSRMInstretH, emu.Machine)).To(Equal(uint32(1)))
			Expect(csrs.Read(emu.CSRInstretH, emu.User)).To(Equal(uint32(1)))
		})

		It("should suppress exactly one cycle update after a write", func() {
			Expect(csrs.Write(emu.CSRMCycle, emu.Machine, 10)).To(Succeed())
			csrs.AddCycles(5)
			Expect(csrs.Cycles()).To(Equal(uint64(10)))
			csrs.AddCycles(5)
			Expect(csrs.Cycles()).To(Equal(uint64(15)))
			Expect(csrs.Read(emu.CSRCycle, emu.User)).To(Equal(uint32(15)))
		})
	})

	It("should gate the mstatus accessors like the CSR itself", func() {
		_, err := csrs.MStatus(emu.Supervisor)
		expectIllegal(err)
		_, err = csrs.MStatusValue(emu.User)
		expectIllegal(err)
	})
})
