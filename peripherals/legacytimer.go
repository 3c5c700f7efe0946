package peripherals

import "github.com/sarchlab/riscv-vp/bus"

// Flat register offsets for the legacy timer window (spec §6.2).
const (
	legacyMTimeLoOff    = 0x0
	legacyMTimeHiOff    = 0x4
	legacyMTimeCmpLoOff = 0x8
	legacyMTimeCmpHiOff = 0xC
)

// LegacyTimer is a flat-register view onto a CLINT's mtime/mtimecmp,
// exposing each half as its own 32-bit word instead of CLINT's two
// 64-bit-addressable registers. It shares the CLINT's counter rather than
// keeping a second one, for firmware written against the simulator's
// older, non-standard timer interface.
type LegacyTimer struct {
	clint *CLINT
}

// NewLegacyTimer creates a flat-register view over clint.
func NewLegacyTimer(clint *CLINT) *LegacyTimer {
	return &LegacyTimer{clint: clint}
}

// Transport implements bus.Target.
func (l *LegacyTimer) Transport(tx *bus.Transaction) int64 {
	if tx.Len != 4 {
		tx.Status = bus.StatusBurstError
		return 0
	}

	switch tx.Addr {
	case legacyMTimeLoOff:
		l.clint.SetMTime(halfWord(tx, l.clint.MTime(), 0))
	case legacyMTimeHiOff:
		l.clint.SetMTime(halfWord(tx, l.clint.MTime(), 32))
	case legacyMTimeCmpLoOff:
		l.clint.SetMTimeCmp(halfWord(tx, l.clint.MTimeCmp(), 0))
	case legacyMTimeCmpHiOff:
		l.clint.SetMTimeCmp(halfWord(tx, l.clint.MTimeCmp(), 32))
	default:
		tx.Status = bus.StatusAddressError
		return 0
	}

	tx.Status = bus.StatusOK
	return 0
}

func halfWord(tx *bus.Transaction, cur uint64, shift uint) uint64 {
	if tx.Cmd == bus.CmdWrite {
		word := bytesToLE(tx.Data)
		mask := uint64(0xFFFFFFFF) << shift
		return (cur &^ mask) | (word << shift)
	}
	putLE(tx.Data, (cur>>shift)&0xFFFFFFFF)
	return cur
}
