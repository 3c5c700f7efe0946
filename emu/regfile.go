// Package emu provides functional RISC-V emulation: register file and
// CSRs (C1), main memory (C6), ALU/branch/load-store helpers, the
// executor (C3), and a non-pipelined reference CPU variant (Simple-LT).
package emu

// CSR addresses (12-bit), per the machine-mode subset named in spec §3/§6.3.
const (
	CSRMStatus  uint16 = 0x300
	CSRMIE      uint16 = 0x304
	CSRMTVec    uint16 = 0x305
	CSRMEPC     uint16 = 0x341
	CSRMCause   uint16 = 0x342
	CSRMIP      uint16 = 0x344
	CSRMCycle   uint16 = 0xB00
	CSRMInstret uint16 = 0xB02
)

// mstatus/mie/mip bit positions used by this simulator.
const (
	MStatusMIE = 1 << 3 // mstatus.MIE: global interrupt enable
	MIEMTIE    = 1 << 7 // mie.MTIE: timer interrupt enable
	MIPMTIP    = 1 << 7 // mip.MTIP: timer interrupt pending
	MIPMEIP    = 1 << 11 // mip.MEIP: external interrupt pending
)

// CSRFile holds the fixed set of control/status registers named in §3.
type CSRFile struct {
	MStatus  uint64
	MIE      uint64
	MIP      uint64
	MTVec    uint64
	MEPC     uint64
	MCause   uint64
	MCycle   uint64
	MInstret uint64
}

// Read returns the CSR value at addr and whether addr names a known CSR.
func (c *CSRFile) Read(addr uint16) (uint64, bool) {
	switch addr {
	case CSRMStatus:
		return c.MStatus, true
	case CSRMIE:
		return c.MIE, true
	case CSRMTVec:
		return c.MTVec, true
	case CSRMEPC:
		return c.MEPC, true
	case CSRMCause:
		return c.MCause, true
	case CSRMIP:
		return c.MIP, true
	case CSRMCycle:
		return c.MCycle, true
	case CSRMInstret:
		return c.MInstret, true
	default:
		return 0, false
	}
}

// Write stores val at the CSR named by addr and reports whether addr was
// recognized.
func (c *CSRFile) Write(addr uint16, val uint64) bool {
	switch addr {
	case CSRMStatus:
		c.MStatus = val
	case CSRMIE:
		c.MIE = val
	case CSRMTVec:
		c.MTVec = val
	case CSRMEPC:
		c.MEPC = val
	case CSRMCause:
		c.MCause = val
	case CSRMIP:
		c.MIP = val
	case CSRMCycle:
		c.MCycle = val
	case CSRMInstret:
		c.MInstret = val
	default:
		return false
	}
	return true
}

// RegFile represents the RISC-V integer register file: 32 general-purpose
// registers, the program counter, and the machine-mode CSR set. XLEN
// selects the architectural width (32 or 64); values above XLEN bits are
// kept zero in the backing uint64.
type RegFile struct {
	// X holds general-purpose registers x0-x31. x0 is hardwired to 0:
	// WriteReg ignores writes to it and ReadReg always returns 0 for it.
	X [32]uint64

	// PC is the program counter.
	PC uint64

	CSR CSRFile

	// XLEN is the architectural width in bits, 32 or 64.
	XLEN int
}

// NewRegFile creates a register file for the given XLEN (32 or 64; any
// other value defaults to 32).
func NewRegFile(xlen int) *RegFile {
	if xlen != 64 {
		xlen = 32
	}
	return &RegFile{XLEN: xlen}
}

// ReadReg reads a register value. Register 0 always reads as 0.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg == 0 {
		return 0
	}
	return r.mask(r.X[reg])
}

// WriteReg writes a value to a register. Writes to register 0 are
// silently discarded (I1: x0 is always 0 after any write).
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg == 0 {
		return
	}
	r.X[reg] = r.mask(value)
}

// mask truncates a value to XLEN bits, matching RV32's 32-bit registers.
func (r *RegFile) mask(v uint64) uint64 {
	if r.XLEN == 32 {
		return uint64(uint32(v))
	}
	return v
}

// ShiftMask returns the shift-amount mask for this XLEN: 5 bits for RV32,
// 6 bits for RV64 (§4.5).
func (r *RegFile) ShiftMask() uint64 {
	if r.XLEN == 64 {
		return 0x3F
	}
	return 0x1F
}
