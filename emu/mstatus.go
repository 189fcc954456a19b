package emu

// MStatus is the packed machine status word. Each accessor reads or writes
// one field and leaves every other bit untouched.
type MStatus uint32

// mstatus field positions.
const (
	mstatusSIE   = 1
	mstatusMIE   = 3
	mstatusSPIE  = 5
	mstatusUBE   = 6
	mstatusMPIE  = 7
	mstatusSPP   = 8
	mstatusVS    = 9  // 2 bits
	mstatusMPP   = 11 // 2 bits
	mstatusFS    = 13 // 2 bits
	mstatusXS    = 15 // 2 bits
	mstatusMPRV  = 17
	mstatusSUM   = 18
	mstatusMXR   = 19
	mstatusTVM   = 20
	mstatusTW    = 21
	mstatusTSR   = 22
	mstatusSPELP = 23
	mstatusSDT   = 24
	mstatusSD    = 31
)

func (m MStatus) bit(pos uint) bool {
	return uint32(m)>>pos&1 == 1
}

func (m *MStatus) setBit(pos uint, v bool) {
	if v {
		*m |= 1 << pos
	} else {
		*m &^= 1 << pos
	}
}

func (m MStatus) field(pos uint) uint32 {
	return uint32(m) >> pos & 0x3
}

func (m *MStatus) setField(pos uint, v uint32) {
	*m = MStatus(uint32(*m)&^(0x3<<pos) | (v&0x3)<<pos)
}

// SIE is the supervisor global interrupt enable.
func (m MStatus) SIE() bool      { return m.bit(mstatusSIE) }
func (m *MStatus) SetSIE(v bool) { m.setBit(mstatusSIE, v) }

// MIE is the machine global interrupt enable.
func (m MStatus) MIE() bool      { return m.bit(mstatusMIE) }
func (m *MStatus) SetMIE(v bool) { m.setBit(mstatusMIE, v) }

// SPIE holds SIE from before the last trap into S-mode.
func (m MStatus) SPIE() bool      { return m.bit(mstatusSPIE) }
func (m *MStatus) SetSPIE(v bool) { m.setBit(mstatusSPIE, v) }

// UBE selects big-endian data accesses in U-mode.
func (m MStatus) UBE() bool      { return m.bit(mstatusUBE) }
func (m *MStatus) SetUBE(v bool) { m.setBit(mstatusUBE, v) }

// MPIE holds MIE from before the last trap into M-mode.
func (m MStatus) MPIE() bool      { return m.bit(mstatusMPIE) }
func (m *MStatus) SetMPIE(v bool) { m.setBit(mstatusMPIE, v) }

// SPP is set when the last trap into S-mode came from S-mode.
func (m MStatus) SPP() bool      { return m.bit(mstatusSPP) }
func (m *MStatus) SetSPP(v bool) { m.setBit(mstatusSPP, v) }

// VS is the vector extension state.
func (m MStatus) VS() uint32      { return m.field(mstatusVS) }
func (m *MStatus) SetVS(v uint32) { m.setField(mstatusVS, v) }

// MPP is the privilege level held before the last trap into M-mode.
func (m MStatus) MPP() uint32      { return m.field(mstatusMPP) }
func (m *MStatus) SetMPP(v uint32) { m.setField(mstatusMPP, v) }

// FS is the floating-point unit state.
func (m MStatus) FS() uint32      { return m.field(mstatusFS) }
func (m *MStatus) SetFS(v uint32) { m.setField(mstatusFS, v) }

// XS is the user extension state.
func (m MStatus) XS() uint32      { return m.field(mstatusXS) }
func (m *MStatus) SetXS(v uint32) { m.setField(mstatusXS, v) }

// MPRV makes loads and stores use the privilege in MPP.
func (m MStatus) MPRV() bool      { return m.bit(mstatusMPRV) }
func (m *MStatus) SetMPRV(v bool) { m.setBit(mstatusMPRV, v) }

// SUM permits supervisor access to user pages.
func (m MStatus) SUM() bool      { return m.bit(mstatusSUM) }
func (m *MStatus) SetSUM(v bool) { m.setBit(mstatusSUM, v) }

// MXR makes executable pages readable.
func (m MStatus) MXR() bool      { return m.bit(mstatusMXR) }
func (m *MStatus) SetMXR(v bool) { m.setBit(mstatusMXR, v) }

// TVM traps satp accesses and SFENCE.VMA in S-mode.
func (m MStatus) TVM() bool      { return m.bit(mstatusTVM) }
func (m *MStatus) SetTVM(v bool) { m.setBit(mstatusTVM, v) }

// TW traps WFI below M-mode.
func (m MStatus) TW() bool      { return m.bit(mstatusTW) }
func (m *MStatus) SetTW(v bool) { m.setBit(mstatusTW, v) }

// TSR traps SRET in S-mode.
func (m MStatus) TSR() bool      { return m.bit(mstatusTSR) }
func (m *MStatus) SetTSR(v bool) { m.setBit(mstatusTSR, v) }

// SPELP is the supervisor expected landing pad state.
func (m MStatus) SPELP() bool      { return m.bit(mstatusSPELP) }
func (m *MStatus) SetSPELP(v bool) { m.setBit(mstatusSPELP, v) }

// SDT is the supervisor double-trap flag.
func (m MStatus) SDT() bool      { return m.bit(mstatusSDT) }
func (m *MStatus) SetSDT(v bool) { m.setBit(mstatusSDT, v) }

// SD summarizes dirty FS/VS/XS state.
func (m MStatus) SD() bool      { return m.bit(mstatusSD) }
func (m *MStatus) SetSD(v bool) { m.setBit(mstatusSD, v) }
