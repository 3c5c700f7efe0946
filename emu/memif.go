package emu

import (
	"fmt"

	"github.com/sarchlab/riscv-vp/bus"
)

// MemoryInterface is the memory interface (C4): byte/half/word/double
// load and store against the bus fabric.
type MemoryInterface struct {
	fabric bus.Target
}

// NewMemoryInterface creates a memory interface bound to the given bus
// target (normally the bus fabric).
func NewMemoryInterface(fabric bus.Target) *MemoryInterface {
	return &MemoryInterface{fabric: fabric}
}

// Read loads size bytes (1, 2, 4, or 8) at addr and returns them as an
// unsigned word.
func (mi *MemoryInterface) Read(addr uint64, size int) (uint64, error) {
	buf := make([]byte, size)
	tx := &bus.Transaction{Cmd: bus.CmdRead, Addr: addr, Data: buf, Len: size}
	mi.fabric.Transport(tx)
	if tx.Status != bus.StatusOK {
		return 0, fmt.Errorf("memory read at 0x%x: %s", addr, tx.Status)
	}
	return bytesToLE(buf), nil
}

// Read64 loads 8 bytes at addr and returns them as an unsigned doubleword.
func (mi *MemoryInterface) Read64(addr uint64) (uint64, error) {
	return mi.Read(addr, 8)
}

// Write stores the low size bytes of word at addr.
func (mi *MemoryInterface) Write(addr uint64, word uint64, size int) error {
	buf := leBytes(word, size)
	tx := &bus.Transaction{Cmd: bus.CmdWrite, Addr: addr, Data: buf, Len: size}
	mi.fabric.Transport(tx)
	if tx.Status != bus.StatusOK {
		return fmt.Errorf("memory write at 0x%x: %s", addr, tx.Status)
	}
	return nil
}

// Write64 stores all 8 bytes of dword at addr.
func (mi *MemoryInterface) Write64(addr uint64, dword uint64) error {
	return mi.Write(addr, dword, 8)
}

func bytesToLE(b []byte) uint64 {
	var v uint64
	for i, x := range b {
		v |= uint64(x) << (8 * i)
	}
	return v
}

func leBytes(v uint64, n int) []byte {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
