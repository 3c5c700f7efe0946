package emu

import "github.com/sarchlab/riscv-vp/insts"

// ALU implements the RISC-V base integer, word (RV64), and multiply/divide
// arithmetic and logic operations (C3).
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU bound to the given register file (for shift
// masking and XLEN awareness only; it never reads or writes registers
// itself).
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Exec evaluates a base-integer or muldiv ALU op on two operands. For the
// shift ops, rs2 is the shift amount; Exec masks it to the register
// file's ShiftMask itself.
func (a *ALU) Exec(op insts.Op, rs1, rs2 uint64) uint64 {
	shmask := a.regFile.ShiftMask()

	switch op {
	case insts.OpADD, insts.OpADDI:
		return a.trunc(rs1 + rs2)
	case insts.OpSUB:
		return a.trunc(rs1 - rs2)
	case insts.OpSLL, insts.OpSLLI:
		return a.trunc(rs1 << (rs2 & shmask))
	case insts.OpSRL, insts.OpSRLI:
		return a.trunc(a.zext(rs1) >> (rs2 & shmask))
	case insts.OpSRA, insts.OpSRAI:
		return a.trunc(uint64(a.sext(rs1) >> (rs2 & shmask)))
	case insts.OpSLT, insts.OpSLTI:
		if a.sext(rs1) < a.sext(rs2) {
			return 1
		}
		return 0
	case insts.OpSLTU, insts.OpSLTIU:
		if a.zext(rs1) < a.zext(rs2) {
			return 1
		}
		return 0
	case insts.OpXOR, insts.OpXORI:
		return a.trunc(rs1 ^ rs2)
	case insts.OpOR, insts.OpORI:
		return a.trunc(rs1 | rs2)
	case insts.OpAND, insts.OpANDI:
		return a.trunc(rs1 & rs2)

	case insts.OpADDW, insts.OpADDIW:
		return signExtendWord(uint32(rs1 + rs2))
	case insts.OpSUBW:
		return signExtendWord(uint32(rs1 - rs2))
	case insts.OpSLLW, insts.OpSLLIW:
		return signExtendWord(uint32(rs1) << (rs2 & 0x1F))
	case insts.OpSRLW, insts.OpSRLIW:
		return signExtendWord(uint32(rs1) >> (rs2 & 0x1F))
	case insts.OpSRAW, insts.OpSRAIW:
		return signExtendWord(uint32(int32(uint32(rs1)) >> (rs2 & 0x1F)))

	case insts.OpMUL:
		return a.trunc(rs1 * rs2)
	case insts.OpMULH:
		return a.trunc(uint64(mulHigh(a.sext(rs1), a.sext(rs2))))
	case insts.OpMULHU:
		return a.trunc(mulHighU(a.zext(rs1), a.zext(rs2)))
	case insts.OpMULHSU:
		return a.trunc(uint64(mulHighSU(a.sext(rs1), a.zext(rs2))))
	case insts.OpDIV:
		return a.trunc(uint64(divSigned(a.sext(rs1), a.sext(rs2))))
	case insts.OpDIVU:
		return a.trunc(divUnsigned(a.zext(rs1), a.zext(rs2)))
	case insts.OpREM:
		return a.trunc(uint64(remSigned(a.sext(rs1), a.sext(rs2))))
	case insts.OpREMU:
		return a.trunc(remUnsigned(a.zext(rs1), a.zext(rs2)))

	case insts.OpMULW:
		return signExtendWord(uint32(rs1) * uint32(rs2))
	case insts.OpDIVW:
		return signExtendWord(uint32(divSigned32(int32(uint32(rs1)), int32(uint32(rs2)))))
	case insts.OpDIVUW:
		return signExtendWord(divUnsigned32(uint32(rs1), uint32(rs2)))
	case insts.OpREMW:
		return signExtendWord(uint32(remSigned32(int32(uint32(rs1)), int32(uint32(rs2)))))
	case insts.OpREMUW:
		return signExtendWord(remUnsigned32(uint32(rs1), uint32(rs2)))
	}

	return 0
}

func (a *ALU) trunc(v uint64) uint64 {
	if a.regFile.XLEN == 32 {
		return uint64(uint32(v))
	}
	return v
}

func (a *ALU) zext(v uint64) uint64 {
	if a.regFile.XLEN == 32 {
		return uint64(uint32(v))
	}
	return v
}

func (a *ALU) sext(v uint64) int64 {
	if a.regFile.XLEN == 32 {
		return int64(int32(uint32(v)))
	}
	return int64(v)
}

func signExtendWord(v uint32) uint64 {
	return uint64(int64(int32(v)))
}

func mulHigh(a, b int64) int64 {
	hi, _ := bitsMul64(a, b)
	return hi
}

func mulHighU(a, b uint64) uint64 {
	hi, _ := bitsMulU64(a, b)
	return hi
}

func mulHighSU(a int64, b uint64) int64 {
	neg := a < 0
	ua := uint64(a)
	if neg {
		ua = uint64(-a)
	}
	hi, lo := bitsMulU64(ua, b)
	if !neg {
		return int64(hi)
	}
	// two's complement negate of the 128-bit product
	lo = ^lo + 1
	hi = ^hi
	if lo == 0 {
		hi++
	}
	return int64(hi)
}

// bitsMul64 returns the signed 128-bit product of a and b as (hi, lo).
func bitsMul64(a, b int64) (hi, lo int64) {
	neg := (a < 0) != (b < 0)
	ua, ub := uint64(a), uint64(b)
	if a < 0 {
		ua = uint64(-a)
	}
	if b < 0 {
		ub = uint64(-b)
	}
	uhi, ulo := bitsMulU64(ua, ub)
	if !neg {
		return int64(uhi), int64(ulo)
	}
	ulo = ^ulo + 1
	uhi = ^uhi
	if ulo == 0 {
		uhi++
	}
	return int64(uhi), int64(ulo)
}

// bitsMulU64 returns the unsigned 128-bit product of a and b as (hi, lo).
func bitsMulU64(a, b uint64) (hi, lo uint64) {
	const mask32 = 0xFFFFFFFF
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	t0 := aLo * bLo
	t1 := aHi*bLo + t0>>32
	t2 := aLo*bHi + t1&mask32
	hi = aHi*bHi + t1>>32 + t2>>32
	lo = t2<<32 | t0&mask32
	return hi, lo
}

func divSigned(a, b int64) int64 {
	if b == 0 {
		return -1
	}
	if a == -1<<63 && b == -1 {
		return a
	}
	return a / b
}

func divUnsigned(a, b uint64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}
	return a / b
}

func remSigned(a, b int64) int64 {
	if b == 0 {
		return a
	}
	if a == -1<<63 && b == -1 {
		return 0
	}
	return a % b
}

func remUnsigned(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return a % b
}

func divSigned32(a, b int32) int32 {
	if b == 0 {
		return -1
	}
	if a == -1<<31 && b == -1 {
		return a
	}
	return a / b
}

func divUnsigned32(a, b uint32) uint32 {
	if b == 0 {
		return ^uint32(0)
	}
	return a / b
}

func remSigned32(a, b int32) int32 {
	if b == 0 {
		return a
	}
	if a == -1<<31 && b == -1 {
		return 0
	}
	return a % b
}

func remUnsigned32(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}
