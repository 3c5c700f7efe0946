package peripherals

import (
	"github.com/sarchlab/riscv-vp/bus"
	"github.com/sarchlab/riscv-vp/emu"
)

// MaxSources is the number of interrupt sources the PLIC tracks (spec
// §4.9, §6.2).
const MaxSources = 32

// Register map offsets within the PLIC window (spec §6.2).
const (
	plicPrioritiesOff = 0x0000
	plicPendingOff    = 0x1000
	plicEnableOff     = 0x2000
	plicThresholdOff  = 0x200000
	plicClaimOff      = 0x200004
)

// PLIC is the platform-level interrupt controller (C8): per-source
// priority and enable bits, pending bits, a threshold, and a claim/complete
// register that hands one pending source at a time to the hart.
type PLIC struct {
	csr *emu.CSRFile

	priorities [MaxSources]uint32
	pending    uint32
	enabled    uint32
	threshold  uint32
}

// NewPLIC creates a PLIC wired to update the given hart's CSR file.
func NewPLIC(csr *emu.CSRFile) *PLIC {
	return &PLIC{csr: csr}
}

// Raise sets a source's pending bit, for peripherals that assert an
// interrupt line through the PLIC rather than directly into mip.
func (p *PLIC) Raise(source uint32) {
	if source == 0 || source >= MaxSources {
		return
	}
	p.pending |= 1 << source
	p.updateIRQ()
}

func (p *PLIC) updateIRQ() {
	if p.highestPending() != 0 {
		p.csr.MIP |= emu.MIPMEIP
	} else {
		p.csr.MIP &^= emu.MIPMEIP
	}
}

// highestPending returns the highest-priority pending-and-enabled source
// whose priority exceeds threshold, or 0 if none qualifies.
func (p *PLIC) highestPending() uint32 {
	var best, bestPriority uint32
	for i := uint32(1); i < MaxSources; i++ {
		bit := uint32(1) << i
		if p.pending&bit == 0 || p.enabled&bit == 0 {
			continue
		}
		priority := p.priorities[i]
		if priority > p.threshold && priority > bestPriority {
			best, bestPriority = i, priority
		}
	}
	return best
}

// Transport implements bus.Target (spec §4.9). Claim returns the highest
// priority pending-and-enabled source and clears its pending bit; no
// separate claimed-source state is kept. A write to the same offset with
// a source id completes it by clearing that source's pending bit. Every
// access re-evaluates mip.MEIP.
func (p *PLIC) Transport(tx *bus.Transaction) int64 {
	if tx.Len != 4 {
		tx.Status = bus.StatusBurstError
		return 0
	}
	off := tx.Addr

	switch {
	case off < plicPendingOff:
		idx := off / 4
		if idx >= MaxSources {
			tx.Status = bus.StatusAddressError
			return 0
		}
		if tx.Cmd == bus.CmdWrite {
			p.priorities[idx] = bytesToWord32(tx.Data)
		} else {
			putWord32(tx.Data, p.priorities[idx])
		}
	case off == plicPendingOff:
		if tx.Cmd == bus.CmdRead {
			putWord32(tx.Data, p.pending)
		}
	case off == plicEnableOff:
		if tx.Cmd == bus.CmdWrite {
			p.enabled = bytesToWord32(tx.Data)
		} else {
			putWord32(tx.Data, p.enabled)
		}
	case off == plicThresholdOff:
		if tx.Cmd == bus.CmdWrite {
			p.threshold = bytesToWord32(tx.Data)
		} else {
			putWord32(tx.Data, p.threshold)
		}
	case off == plicClaimOff:
		if tx.Cmd == bus.CmdRead {
			source := p.highestPending()
			if source != 0 {
				p.pending &^= 1 << source
			}
			putWord32(tx.Data, source)
		} else {
			source := bytesToWord32(tx.Data)
			p.pending &^= 1 << source
		}
	default:
		tx.Status = bus.StatusAddressError
		return 0
	}

	p.updateIRQ()
	tx.Status = bus.StatusOK
	return 0
}

func bytesToWord32(b []byte) uint32 { return uint32(bytesToLE(b)) }

func putWord32(b []byte, v uint32) { putLE(b, uint64(v)) }
