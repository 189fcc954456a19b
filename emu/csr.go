package emu

// CSR addresses.
const (
	CSRSStatus    uint16 = 0x100
	CSRSIE        uint16 = 0x104
	CSRSTVec      uint16 = 0x105
	CSRSCounterEn uint16 = 0x106
	CSRSScratch   uint16 = 0x140
	CSRSEPC       uint16 = 0x141
	CSRSCause     uint16 = 0x142
	CSRSTVal      uint16 = 0x143
	CSRSIP        uint16 = 0x144
	CSRSATP       uint16 = 0x180

	CSRMStatus    uint16 = 0x300
	CSRMISA       uint16 = 0x301
	CSRMEDeleg    uint16 = 0x302
	CSRMIDeleg    uint16 = 0x303
	CSRMIE        uint16 = 0x304
	CSRMTVec      uint16 = 0x305
	CSRMCounterEn uint16 = 0x306
	CSRMStatusH   uint16 = 0x310
	CSRMScratch   uint16 = 0x340
	CSRMEPC       uint16 = 0x341
	CSRMCause     uint16 = 0x342
	CSRMTVal      uint16 = 0x343
	CSRMIP        uint16 = 0x344
	CSRPMPCfg0    uint16 = 0x3A0
	CSRPMPAddr0   uint16 = 0x3B0

	CSRTSelect uint16 = 0x7A0

	CSRMCycle    uint16 = 0xB00
	CSRMInstret  uint16 = 0xB02
	CSRMCycleH   uint16 = 0xB80
	CSRMInstretH uint16 = 0xB82

	CSRCycle    uint16 = 0xC00
	CSRTime     uint16 = 0xC01
	CSRInstret  uint16 = 0xC02
	CSRCycleH   uint16 = 0xC80
	CSRTimeH    uint16 = 0xC81
	CSRInstretH uint16 = 0xC82

	CSRMVendorID uint16 = 0xF11
	CSRMArchID   uint16 = 0xF12
	CSRMImpID    uint16 = 0xF13
	CSRMHartID   uint16 = 0xF14
)

// Read and write masks.
const (
	MStatusMask  uint32 = 0x81FFFFEA
	MStatusHMask uint32 = 0x000006F0
	SStatusMask  uint32 = 0x818DE762
	MIEMask      uint32 = 0xFFFF2AAA
	MIPMask      uint32 = 0xFFFF2AAA
	SIEMask      uint32 = 0xFFFF2222
	SIPMask      uint32 = 0xFFFF2222
)

// MISAValue reports RV32 with the A, I, M, S and U extensions.
const MISAValue uint32 = 0b01<<30 | 1<<20 | 1<<18 | 1<<12 | 1<<8 | 1<<0

const numCSRs = 4096

// CSRFile is the control and status register bank of one hart.
//
// Read and Write enforce the privilege encoded in bits 9:8 of the address
// and reject writes to the read-only range (bits 11:10 == 0b11). The
// unchecked accessors are reserved for the trap engine.
type CSRFile struct {
	regs    [numCSRs]uint32
	mstatus MStatus
	hartID  uint32

	// Set by an explicit write to the counter so that the automatic
	// increment of the same step does not clobber it.
	instretWritten bool
	cycleWritten   bool
}

// NewCSRFile creates a CSR bank in its reset state.
func NewCSRFile(hartID uint32) *CSRFile {
	c := &CSRFile{hartID: hartID}
	c.Reset()
	return c
}

// Reset restores the reset state: every register zero except mstatus.MPP,
// which starts at Machine.
func (c *CSRFile) Reset() {
	c.regs = [numCSRs]uint32{}
	c.mstatus = 0
	c.mstatus.SetMPP(uint32(Machine))
	c.instretWritten = false
	c.cycleWritten = false
}

// HartID returns the value of mhartid.
func (c *CSRFile) HartID() uint32 {
	return c.hartID
}

// RequiredPrivilege returns the lowest privilege allowed to access addr.
func RequiredPrivilege(addr uint16) Privilege {
	return Privilege((addr >> 8) & 0x3)
}

// IsReadOnly reports whether addr lies in a read-only CSR range.
func IsReadOnly(addr uint16) bool {
	return (addr>>10)&0x3 == 0x3
}

func (c *CSRFile) check(addr uint16, priv Privilege) error {
	if addr >= numCSRs || priv < RequiredPrivilege(addr) {
		return IllegalInstruction(0)
	}
	return nil
}

// Read reads a CSR at the given privilege level.
func (c *CSRFile) Read(addr uint16, priv Privilege) (uint32, error) {
	if err := c.check(addr, priv); err != nil {
		return 0, err
	}
	return c.readUnchecked(addr), nil
}

// Write writes a CSR at the given privilege level.
func (c *CSRFile) Write(addr uint16, priv Privilege, value uint32) error {
	if err := c.check(addr, priv); err != nil {
		return err
	}
	if IsReadOnly(addr) {
		return IllegalInstruction(0)
	}
	c.writeUnchecked(addr, value)
	return nil
}

// MStatus returns the live mstatus for modification. It fails like a CSR
// access to mstatus at the given privilege.
func (c *CSRFile) MStatus(priv Privilege) (*MStatus, error) {
	if err := c.check(CSRMStatus, priv); err != nil {
		return nil, err
	}
	return &c.mstatus, nil
}

// MStatusValue returns a copy of mstatus, checked like MStatus.
func (c *CSRFile) MStatusValue(priv Privilege) (MStatus, error) {
	if err := c.check(CSRMStatus, priv); err != nil {
		return 0, err
	}
	return c.mstatus, nil
}

// IncrementInstret advances the 64-bit minstret counter by one, unless it
// was written since the previous increment.
func (c *CSRFile) IncrementInstret() {
	if c.instretWritten {
		c.instretWritten = false
		return
	}
	c.add64(CSRMInstret, CSRMInstretH, 1)
}

// AddCycles advances the 64-bit mcycle counter, unless it was written since
// the previous advance.
func (c *CSRFile) AddCycles(n uint64) {
	if c.cycleWritten {
		c.cycleWritten = false
		return
	}
	c.add64(CSRMCycle, CSRMCycleH, n)
}

// Instret returns the 64-bit retired instruction counter.
func (c *CSRFile) Instret() uint64 {
	return c.get64(CSRMInstret, CSRMInstretH)
}

// Cycles returns the 64-bit cycle counter.
func (c *CSRFile) Cycles() uint64 {
	return c.get64(CSRMCycle, CSRMCycleH)
}

func (c *CSRFile) get64(lo, hi uint16) uint64 {
	return uint64(c.regs[hi])<<32 | uint64(c.regs[lo])
}

func (c *CSRFile) add64(lo, hi uint16, n uint64) {
	v := c.get64(lo, hi) + n
	c.regs[lo] = uint32(v)
	c.regs[hi] = uint32(v >> 32)
}

func (c *CSRFile) readUnchecked(addr uint16) uint32 {
	switch addr {
	case CSRMStatus:
		return uint32(c.mstatus) & MStatusMask
	case CSRMStatusH:
		return c.regs[addr] & MStatusHMask
	case CSRSStatus:
		return uint32(c.mstatus) & SStatusMask
	case CSRMIE:
		return c.regs[CSRMIE] & MIEMask
	case CSRMIP:
		return c.regs[CSRMIP] & MIPMask
	case CSRSIE:
		return c.regs[CSRMIE] & SIEMask
	case CSRSIP:
		return c.regs[CSRMIP] & SIPMask
	case CSRMISA:
		return MISAValue
	case CSRMHartID:
		return c.hartID
	case CSRTSelect:
		return 0xFFFFFFFF
	case CSRCycle, CSRTime:
		return c.regs[CSRMCycle]
	case CSRCycleH, CSRTimeH:
		return c.regs[CSRMCycleH]
	case CSRInstret:
		return c.regs[CSRMInstret]
	case CSRInstretH:
		return c.regs[CSRMInstretH]
	}
	return c.regs[addr]
}

func (c *CSRFile) writeUnchecked(addr uint16, value uint32) {
	switch addr {
	case CSRMStatus:
		c.mstatus = MStatus(uint32(c.mstatus)&^MStatusMask | value&MStatusMask)
	case CSRMStatusH:
		c.regs[addr] = value & MStatusHMask
	case CSRSStatus:
		c.mstatus = MStatus(uint32(c.mstatus)&^SStatusMask | value&SStatusMask)
	case CSRMIE:
		c.regs[CSRMIE] = value & MIEMask
	case CSRMIP:
		c.regs[CSRMIP] = value & MIPMask
	case CSRSIE:
		c.regs[CSRMIE] = c.regs[CSRMIE]&^SIEMask | value&SIEMask
	case CSRSIP:
		c.regs[CSRMIP] = c.regs[CSRMIP]&^SIPMask | value&SIPMask
	case CSRMISA, CSRTSelect:
		// WARL: writes are ignored.
	case CSRMEPC, CSRSEPC:
		c.regs[addr] = value &^ 0x3
	case CSRMInstret, CSRMInstretH:
		c.regs[addr] = value
		c.instretWritten = true
	case CSRMCycle, CSRMCycleH:
		c.regs[addr] = value
		c.cycleWritten = true
	default:
		c.regs[addr] = value
	}
}
