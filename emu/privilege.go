package emu

// Privilege is a RISC-V privilege level. Levels are ordered so that a
// numeric comparison decides access.
type Privilege uint8

// Privilege levels. Level 2 is reserved.
const (
	User       Privilege = 0
	Supervisor Privilege = 1
	Machine    Privilege = 3
)

// PrivilegeFromBits converts a 2-bit privilege field (for example
// mstatus.MPP) into a level. The reserved encoding maps to Machine.
func PrivilegeFromBits(bits uint32) Privilege {
	switch bits & 0x3 {
	case 0:
		return User
	case 1:
		return Supervisor
	default:
		return Machine
	}
}

func (p Privilege) String() string {
	switch p {
	case User:
		return "U"
	case Supervisor:
		return "S"
	case Machine:
		return "M"
	default:
		return "reserved"
	}
}
