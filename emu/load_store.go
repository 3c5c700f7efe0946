package emu

import (
	"fmt"

	"github.com/sarchlab/riscv-vp/insts"
)

// LoadStoreUnit implements RISC-V load and store operations (C3), sign- or
// zero-extending loaded values to XLEN per funct3 (spec §4.5).
type LoadStoreUnit struct {
	regFile *RegFile
	mem     *MemoryInterface
}

// NewLoadStoreUnit creates a LoadStoreUnit bound to the given register
// file and memory interface.
func NewLoadStoreUnit(regFile *RegFile, mem *MemoryInterface) *LoadStoreUnit {
	return &LoadStoreUnit{regFile: regFile, mem: mem}
}

// Load executes a load instruction at the given effective address and
// returns the XLEN-width value to write into rd.
func (lsu *LoadStoreUnit) Load(op insts.Op, addr uint64) (uint64, error) {
	switch op {
	case insts.OpLB:
		v, err := lsu.mem.Read(addr, 1)
		return signExtendN(v, 8), err
	case insts.OpLBU:
		return lsu.mem.Read(addr, 1)
	case insts.OpLH:
		v, err := lsu.mem.Read(addr, 2)
		return signExtendN(v, 16), err
	case insts.OpLHU:
		return lsu.mem.Read(addr, 2)
	case insts.OpLW:
		v, err := lsu.mem.Read(addr, 4)
		if lsu.regFile.XLEN == 64 {
			return signExtendN(v, 32), err
		}
		return v, err
	case insts.OpLWU:
		return lsu.mem.Read(addr, 4)
	case insts.OpLD:
		return lsu.mem.Read64(addr)
	default:
		return 0, fmt.Errorf("not a load op: %v", op)
	}
}

// Store executes a store instruction at the given effective address.
func (lsu *LoadStoreUnit) Store(op insts.Op, addr uint64, value uint64) error {
	switch op {
	case insts.OpSB:
		return lsu.mem.Write(addr, value, 1)
	case insts.OpSH:
		return lsu.mem.Write(addr, value, 2)
	case insts.OpSW:
		return lsu.mem.Write(addr, value, 4)
	case insts.OpSD:
		return lsu.mem.Write64(addr, value)
	default:
		return fmt.Errorf("not a store op: %v", op)
	}
}

// StoreSize returns the byte width of a store op, used by the store
// buffer (§3, §4.7).
func StoreSize(op insts.Op) int {
	switch op {
	case insts.OpSB:
		return 1
	case insts.OpSH:
		return 2
	case insts.OpSW:
		return 4
	case insts.OpSD:
		return 8
	default:
		return 0
	}
}

func signExtendN(v uint64, bits int) uint64 {
	shift := 64 - bits
	return uint64(int64(v<<shift) >> shift)
}
