package emu

import "github.com/sarchlab/riscv-vp/insts"

// BranchUnit evaluates the six RISC-V branch conditions (C3).
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit bound to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// Taken reports whether a branch instruction's condition holds for the
// given operand values.
func (b *BranchUnit) Taken(op insts.Op, rs1, rs2 uint64) bool {
	signed := b.regFile.XLEN == 32
	s := func(v uint64) int64 {
		if signed {
			return int64(int32(uint32(v)))
		}
		return int64(v)
	}

	switch op {
	case insts.OpBEQ:
		return rs1 == rs2
	case insts.OpBNE:
		return rs1 != rs2
	case insts.OpBLT:
		return s(rs1) < s(rs2)
	case insts.OpBGE:
		return s(rs1) >= s(rs2)
	case insts.OpBLTU:
		return rs1 < rs2
	case insts.OpBGEU:
		return rs1 >= rs2
	default:
		return false
	}
}
