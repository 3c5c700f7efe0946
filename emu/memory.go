package emu

import (
	"github.com/sarchlab/riscv-vp/bus"
)

// Memory is the main memory target (C6): a contiguous byte array backing
// a window of the address space, with an optional DMI fast path.
type Memory struct {
	base uint64
	data []byte

	latencyNs int64

	dmiDisabled bool
	dmiGranted  bool
	dmiStart    uint64
	dmiEnd      uint64

	fabric *bus.Fabric
}

// DefaultMemorySize is the backing window size used when none is given.
const DefaultMemorySize = 256 * 1024 * 1024

// NewMemory creates main memory covering [base, base+size).
func NewMemory(base, size uint64) *Memory {
	return &Memory{
		base: base,
		data: make([]byte, size),
	}
}

// SetLatency sets the per-access latency reported on transactions and DMI
// grants (§4.2).
func (m *Memory) SetLatency(ns int64) { m.latencyNs = ns }

// DisableDMI prevents this memory from granting DMI regions, honoring the
// DISABLE_DMI environment toggle (§6.1).
func (m *Memory) DisableDMI() { m.dmiDisabled = true }

// AttachFabric records the fabric this memory is installed on, so writes
// that invalidate a granted DMI region can broadcast through it.
func (m *Memory) AttachFabric(f *bus.Fabric) { m.fabric = f }

// LoadImage copies bytes into memory starting at addr, growing the backing
// array if necessary. Used by the Intel HEX loader.
func (m *Memory) LoadImage(addr uint64, data []byte) {
	for i, b := range data {
		m.writeByte(addr+uint64(i), b)
	}
}

func (m *Memory) inRange(addr uint64) (int, bool) {
	if addr < m.base {
		return 0, false
	}
	off := addr - m.base
	if off >= uint64(len(m.data)) {
		return 0, false
	}
	return int(off), true
}

func (m *Memory) writeByte(addr uint64, v byte) {
	off, ok := m.inRange(addr)
	if !ok {
		// HEX images may legitimately load outside the initial window;
		// grow on demand rather than silently dropping bytes.
		needed := addr - m.base + 1
		if addr < m.base {
			return
		}
		if needed > uint64(len(m.data)) {
			grown := make([]byte, needed)
			copy(grown, m.data)
			m.data = grown
		}
		off = int(addr - m.base)
	}
	m.data[off] = v
}

// Transport implements bus.Target.
func (m *Memory) Transport(tx *bus.Transaction) int64 {
	if tx.Len <= 0 || tx.Len > 8 || (tx.Len&(tx.Len-1)) != 0 {
		tx.Status = bus.StatusBurstError
		return 0
	}

	startOff, ok := m.inRange(tx.Addr)
	_, okEnd := m.inRange(tx.Addr + uint64(tx.Len) - 1)
	if !ok || !okEnd {
		tx.Status = bus.StatusAddressError
		return 0
	}

	switch tx.Cmd {
	case bus.CmdRead:
		copy(tx.Data, m.data[startOff:startOff+tx.Len])
	case bus.CmdWrite:
		copy(m.data[startOff:startOff+tx.Len], tx.Data)
		m.checkInvalidate(tx.Addr, tx.Addr+uint64(tx.Len))
	}

	tx.Status = bus.StatusOK
	return m.latencyNs
}

func (m *Memory) checkInvalidate(start, end uint64) {
	if !m.dmiGranted {
		return
	}
	if end <= m.dmiStart || start >= m.dmiEnd {
		return
	}
	m.dmiGranted = false
	if m.fabric != nil {
		m.fabric.BroadcastInvalidate(m.dmiStart, m.dmiEnd)
	}
}

// GetDMI implements bus.DMIProvider. It grants the entire backing window
// unless DMI has been disabled by configuration.
func (m *Memory) GetDMI(addr uint64) bus.DMIDescriptor {
	if m.dmiDisabled {
		return bus.DMIDescriptor{}
	}
	if _, ok := m.inRange(addr); !ok {
		return bus.DMIDescriptor{}
	}
	m.dmiGranted = true
	m.dmiStart = m.base
	m.dmiEnd = m.base + uint64(len(m.data))
	return bus.DMIDescriptor{
		Pointer:   m.data,
		Start:     m.dmiStart,
		End:       m.dmiEnd,
		ReadOK:    true,
		WriteOK:   true,
		LatencyNs: m.latencyNs,
		Valid:     true,
	}
}
