// Package peripherals implements the memory-mapped devices named in §6.2:
// the CLINT timer, the PLIC interrupt controller, the DMA engine, and the
// trace/UART/syscall-hook byte sinks. Each device is a bus.Target, wired
// into the fabric's address map alongside main memory.
package peripherals

import (
	"github.com/sarchlab/riscv-vp/bus"
	"github.com/sarchlab/riscv-vp/emu"
)

// Register offsets within the CLINT window (spec §6.2).
const (
	clintMTimeCmpOff = 0x4000
	clintMTimeOff    = 0xBFF8
)

// TickNs is the simulated interval between mtime increments (spec §4.9).
const TickNs = 1000

// CLINT is the core-local interrupt controller (C7): a free-running mtime
// counter compared against mtimecmp, driving mip.MTIP level-high while
// mtime >= mtimecmp.
type CLINT struct {
	csr *emu.CSRFile

	mtime    uint64
	mtimecmp uint64
	accumNs  int64
}

// NewCLINT creates a CLINT wired to update the given hart's CSR file.
func NewCLINT(csr *emu.CSRFile) *CLINT {
	return &CLINT{csr: csr}
}

// Tick advances simulated time by elapsedNs, incrementing mtime once per
// TickNs and refreshing mip.MTIP.
func (c *CLINT) Tick(elapsedNs int64) {
	if elapsedNs <= 0 {
		return
	}
	c.accumNs += elapsedNs
	for c.accumNs >= TickNs {
		c.accumNs -= TickNs
		c.mtime++
	}
	c.updateIRQ()
}

func (c *CLINT) updateIRQ() {
	if c.mtime >= c.mtimecmp {
		c.csr.MIP |= emu.MIPMTIP
	} else {
		c.csr.MIP &^= emu.MIPMTIP
	}
}

// MTime returns the current counter value, used by tests checking the
// timer-IRQ scenario.
func (c *CLINT) MTime() uint64 { return c.mtime }

// MTimeCmp returns the current compare value.
func (c *CLINT) MTimeCmp() uint64 { return c.mtimecmp }

// SetMTime sets the counter value directly, used by the legacy timer's
// flat register view.
func (c *CLINT) SetMTime(v uint64) {
	c.mtime = v
	c.updateIRQ()
}

// SetMTimeCmp sets the compare value directly, used by the legacy timer's
// flat register view.
func (c *CLINT) SetMTimeCmp(v uint64) {
	c.mtimecmp = v
	c.updateIRQ()
}

// Transport implements bus.Target. A 32-bit access reads or writes the
// half of the register named by the offset; a 64-bit access reads or
// writes the whole value (spec §4.9).
func (c *CLINT) Transport(tx *bus.Transaction) int64 {
	switch tx.Len {
	case 4:
		c.transport32(tx)
	case 8:
		c.transport64(tx)
	default:
		tx.Status = bus.StatusBurstError
		return 0
	}
	tx.Status = bus.StatusOK
	c.updateIRQ()
	return 0
}

func (c *CLINT) transport64(tx *bus.Transaction) {
	switch tx.Addr {
	case clintMTimeCmpOff:
		if tx.Cmd == bus.CmdWrite {
			c.mtimecmp = bytesToLE(tx.Data)
		} else {
			putLE(tx.Data, c.mtimecmp)
		}
	case clintMTimeOff:
		if tx.Cmd == bus.CmdWrite {
			c.mtime = bytesToLE(tx.Data)
		} else {
			putLE(tx.Data, c.mtime)
		}
	}
}

func (c *CLINT) transport32(tx *bus.Transaction) {
	switch tx.Addr {
	case clintMTimeCmpOff:
		c.mtimecmp = access32(tx, c.mtimecmp, 0)
	case clintMTimeCmpOff + 4:
		c.mtimecmp = access32(tx, c.mtimecmp, 32)
	case clintMTimeOff:
		c.mtime = access32(tx, c.mtime, 0)
	case clintMTimeOff + 4:
		c.mtime = access32(tx, c.mtime, 32)
	}
}

// access32 reads or writes the 32-bit half of cur at the given bit shift
// (0 or 32), returning the updated 64-bit value.
func access32(tx *bus.Transaction, cur uint64, shift uint) uint64 {
	if tx.Cmd == bus.CmdWrite {
		word := uint64(bytesToLE(tx.Data))
		mask := uint64(0xFFFFFFFF) << shift
		return (cur &^ mask) | (word << shift)
	}
	putLE(tx.Data, (cur>>shift)&0xFFFFFFFF)
	return cur
}

func bytesToLE(b []byte) uint64 {
	var v uint64
	for i, x := range b {
		v |= uint64(x) << (8 * i)
	}
	return v
}

func putLE(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
}
