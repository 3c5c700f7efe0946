package emu

// Interrupt cause codes, placed in the low bits of mcause with the top
// bit set to mark the trap as an interrupt (spec §4.8, §6.3).
const (
	CauseMachineTimer    uint64 = 7
	CauseMachineExternal uint64 = 11
)

// interruptBit returns the mcause interrupt flag for the given XLEN: bit 31
// for RV32, bit 63 for RV64 (§4.8 step 3).
func interruptBit(xlen int) uint64 {
	if xlen == 32 {
		return 1 << 31
	}
	return 1 << 63
}

// mieMEIE is the mie bit that enables the machine external interrupt.
const mieMEIE = 1 << 11

// DefaultIRQLatencyCycles is the number of stall cycles billed for taking
// an interrupt when no timing configuration overrides it (spec §4.8).
const DefaultIRQLatencyCycles = 2

// PendingInterrupt reports whether an interrupt should be taken this
// cycle and, if so, its cause. Interrupts are masked globally by
// mstatus.MIE and individually by mie (MTIE for the timer, MEIE for the
// external source); a pending source whose mie bit is clear does not fire
// (spec §4.8 step 1).
func PendingInterrupt(csr *CSRFile) (take bool, cause uint64) {
	if csr.MStatus&MStatusMIE == 0 {
		return false, 0
	}
	if csr.MIE&MIEMTIE != 0 && csr.MIP&MIPMTIP != 0 {
		return true, CauseMachineTimer
	}
	if csr.MIE&mieMEIE != 0 && csr.MIP&MIPMEIP != 0 {
		return true, CauseMachineExternal
	}
	return false, 0
}

// DeliverInterrupt performs the trap-entry sequence described in spec
// §4.8 steps 2-4: save PC to mepc, set mcause, disable further interrupts,
// and return the new PC (mtvec, direct mode only — the simulator does not
// implement vectored mode).
func DeliverInterrupt(regs *RegFile, cause, pc uint64) uint64 {
	csr := &regs.CSR
	csr.MEPC = pc
	csr.MCause = interruptBit(regs.XLEN) | cause
	csr.MStatus &^= MStatusMIE
	return csr.MTVec
}
