// Package insts provides RISC-V instruction definitions and decoding.
package insts

// Decoder decodes RISC-V machine code into instructions. It is purely
// combinational: the same word always decodes to the same Instruction,
// independent of any machine state (spec §4.4).
type Decoder struct {
	// XLEN selects whether the 64-bit-only word ops (the OP-IMM-32 and
	// OP-32 opcodes: ADDIW, ADDW, ...) decode normally or fall through to
	// ClassUnknown. Loads and stores of every width, LD/LWU/SD and their
	// compressed forms included, decode under either XLEN. XLEN is either
	// 32 or 64.
	XLEN int
}

// NewDecoder creates a RISC-V instruction decoder for the given XLEN (32 or
// 64). An XLEN of 0 defaults to 32.
func NewDecoder(xlen int) *Decoder {
	if xlen != 64 {
		xlen = 32
	}
	return &Decoder{XLEN: xlen}
}

// Decode decodes a 32-bit fetch word (or, for compressed instructions, a
// word whose low 16 bits hold the instruction) at the given PC.
//
// Decoding attempts the instruction classes in order: base integer,
// compressed, muldiv, atomic, system (spec §4.4) — in practice this order
// is realized by dispatching on the low 2 bits first (compressed vs. not)
// and then on the 7-bit opcode field, which already segregates MULDIV
// (OP/OP-32 with funct7 bit 0 set) and ATOMIC (AMO opcode) from the base
// integer opcodes that share their major opcode.
func (d *Decoder) Decode(word uint32, pc uint64) *Instruction {
	if word&0x3 != 0x3 {
		return d.decodeCompressed(uint16(word), pc)
	}
	return d.decode32(word, pc)
}

func signExtend(v uint32, bits int) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift)) >> shift
}

func (d *Decoder) decode32(word uint32, pc uint64) *Instruction {
	inst := &Instruction{Raw: word, PC: pc, Class: ClassBaseI}

	opcode := uint8(word & 0x7F)
	rd := uint8((word >> 7) & 0x1F)
	funct3 := uint8((word >> 12) & 0x7)
	rs1 := uint8((word >> 15) & 0x1F)
	rs2 := uint8((word >> 20) & 0x1F)
	funct7 := uint8((word >> 25) & 0x7F)

	inst.Opcode = opcode
	inst.Funct3 = funct3
	inst.Funct7 = funct7
	inst.Rs1 = rs1
	inst.Rs2 = rs2
	inst.Rd = rd

	switch opcode {
	case 0x37: // LUI
		inst.Op = OpLUI
		inst.Imm = int64(int32(word & 0xFFFFF000))
	case 0x17: // AUIPC
		inst.Op = OpAUIPC
		inst.Imm = int64(int32(word & 0xFFFFF000))
	case 0x6F: // JAL
		inst.Op = OpJAL
		imm := ((word>>31)&1)<<20 | ((word>>12)&0xFF)<<12 | ((word>>20)&1)<<11 | ((word>>21)&0x3FF)<<1
		inst.Imm = signExtend(imm, 21)
	case 0x67: // JALR
		inst.Op = OpJALR
		inst.Imm = signExtend(word>>20, 12)
	case 0x63: // branches
		inst.Rd = 0
		imm := ((word>>31)&1)<<12 | ((word>>7)&1)<<11 | ((word>>25)&0x3F)<<5 | ((word>>8)&0xF)<<1
		inst.Imm = signExtend(imm, 13)
		switch funct3 {
		case 0b000:
			inst.Op = OpBEQ
		case 0b001:
			inst.Op = OpBNE
		case 0b100:
			inst.Op = OpBLT
		case 0b101:
			inst.Op = OpBGE
		case 0b110:
			inst.Op = OpBLTU
		case 0b111:
			inst.Op = OpBGEU
		default:
			inst.Op = OpUnknown
			inst.Class = ClassUnknown
		}
	case 0x03: // loads
		inst.Imm = signExtend(word>>20, 12)
		switch funct3 {
		case 0b000:
			inst.Op = OpLB
		case 0b001:
			inst.Op = OpLH
		case 0b010:
			inst.Op = OpLW
		case 0b011:
			inst.Op = OpLD
		case 0b100:
			inst.Op = OpLBU
		case 0b101:
			inst.Op = OpLHU
		case 0b110:
			inst.Op = OpLWU
		default:
			inst.Op = OpUnknown
			inst.Class = ClassUnknown
		}
	case 0x23: // stores
		inst.Rd = 0
		imm := ((word >> 25) << 5) | ((word >> 7) & 0x1F)
		inst.Imm = signExtend(imm, 12)
		switch funct3 {
		case 0b000:
			inst.Op = OpSB
		case 0b001:
			inst.Op = OpSH
		case 0b010:
			inst.Op = OpSW
		case 0b011:
			inst.Op = OpSD
		default:
			inst.Op = OpUnknown
			inst.Class = ClassUnknown
		}
	case 0x13: // OP-IMM
		inst.Imm = signExtend(word>>20, 12)
		shamtBits := 5
		if d.XLEN == 64 {
			shamtBits = 6
		}
		shamtMask := uint32(1<<shamtBits) - 1
		switch funct3 {
		case 0b000:
			inst.Op = OpADDI
		case 0b010:
			inst.Op = OpSLTI
		case 0b011:
			inst.Op = OpSLTIU
		case 0b100:
			inst.Op = OpXORI
		case 0b110:
			inst.Op = OpORI
		case 0b111:
			inst.Op = OpANDI
		case 0b001:
			inst.Op = OpSLLI
			inst.Imm = int64((word >> 20) & shamtMask)
		case 0b101:
			inst.Imm = int64((word >> 20) & shamtMask)
			if (word>>25)&0x20 != 0 || (funct7&0x20) != 0 {
				inst.Op = OpSRAI
			} else {
				inst.Op = OpSRLI
			}
		default:
			inst.Op = OpUnknown
			inst.Class = ClassUnknown
		}
	case 0x1B: // OP-IMM-32 (RV64 only)
		inst.Imm = signExtend(word>>20, 12)
		if d.XLEN != 64 {
			inst.Op = OpUnknown
			inst.Class = ClassUnknown
			break
		}
		switch funct3 {
		case 0b000:
			inst.Op = OpADDIW
		case 0b001:
			inst.Op = OpSLLIW
			inst.Imm = int64((word >> 20) & 0x1F)
		case 0b101:
			inst.Imm = int64((word >> 20) & 0x1F)
			if funct7 == 0x20 {
				inst.Op = OpSRAIW
			} else {
				inst.Op = OpSRLIW
			}
		default:
			inst.Op = OpUnknown
			inst.Class = ClassUnknown
		}
	case 0x33: // OP (register-register), base or MULDIV
		if funct7 == 0x01 {
			inst.Class = ClassMuldiv
			inst.Op = decodeMulDivOp(funct3, false)
			break
		}
		inst.Op = decodeAluRegOp(funct3, funct7)
	case 0x3B: // OP-32 (RV64 only), base or MULDIV
		if d.XLEN != 64 {
			inst.Op = OpUnknown
			inst.Class = ClassUnknown
			break
		}
		if funct7 == 0x01 {
			inst.Class = ClassMuldiv
			inst.Op = decodeMulDivOp(funct3, true)
			break
		}
		switch funct3 {
		case 0b000:
			if funct7 == 0x20 {
				inst.Op = OpSUBW
			} else {
				inst.Op = OpADDW
			}
		case 0b001:
			inst.Op = OpSLLW
		case 0b101:
			if funct7 == 0x20 {
				inst.Op = OpSRAW
			} else {
				inst.Op = OpSRLW
			}
		default:
			inst.Op = OpUnknown
			inst.Class = ClassUnknown
		}
	case 0x0F: // FENCE / FENCE.I
		inst.Op = OpFENCE
		inst.Rd, inst.Rs1 = 0, 0
	case 0x73: // SYSTEM
		inst.Class = ClassSystem
		inst.Csr = uint16(word >> 20)
		switch funct3 {
		case 0b000:
			switch word >> 20 {
			case 0x000:
				inst.Op = OpECALL
			case 0x001:
				inst.Op = OpEBREAK
			case 0x302:
				inst.Op = OpMRET
			default:
				inst.Op = OpUnknown
				inst.Class = ClassUnknown
			}
		case 0b001:
			inst.Op = OpCSRRW
		case 0b010:
			inst.Op = OpCSRRS
		case 0b011:
			inst.Op = OpCSRRC
		case 0b101:
			inst.Op = OpCSRRWI
		case 0b110:
			inst.Op = OpCSRRSI
		case 0b111:
			inst.Op = OpCSRRCI
		default:
			inst.Op = OpUnknown
			inst.Class = ClassUnknown
		}
	case 0x2F: // AMO (atomic)
		inst.Class = ClassAtomic
		inst.Aq = (funct7>>1)&1 != 0
		inst.Rl = funct7&1 != 0
		inst.Op = decodeAtomicOp(funct3, funct7>>2)
	default:
		inst.Op = OpUnknown
		inst.Class = ClassUnknown
	}

	return inst
}

func decodeAluRegOp(funct3, funct7 uint8) Op {
	switch funct3 {
	case 0b000:
		if funct7 == 0x20 {
			return OpSUB
		}
		return OpADD
	case 0b001:
		return OpSLL
	case 0b010:
		return OpSLT
	case 0b011:
		return OpSLTU
	case 0b100:
		return OpXOR
	case 0b101:
		if funct7 == 0x20 {
			return OpSRA
		}
		return OpSRL
	case 0b110:
		return OpOR
	case 0b111:
		return OpAND
	}
	return OpUnknown
}

func decodeMulDivOp(funct3 uint8, word bool) Op {
	if word {
		switch funct3 {
		case 0b000:
			return OpMULW
		case 0b100:
			return OpDIVW
		case 0b101:
			return OpDIVUW
		case 0b110:
			return OpREMW
		case 0b111:
			return OpREMUW
		}
		return OpUnknown
	}
	switch funct3 {
	case 0b000:
		return OpMUL
	case 0b001:
		return OpMULH
	case 0b010:
		return OpMULHSU
	case 0b011:
		return OpMULHU
	case 0b100:
		return OpDIV
	case 0b101:
		return OpDIVU
	case 0b110:
		return OpREM
	case 0b111:
		return OpREMU
	}
	return OpUnknown
}

// decodeAtomicOp decodes funct5 (funct7 >> 2) for AMO instructions;
// funct3 selects word (0b010) vs doubleword (0b011) width.
func decodeAtomicOp(funct3, funct5 uint8) Op {
	word := funct3 == 0b010
	switch funct5 {
	case 0b00010:
		if word {
			return OpLRW
		}
		return OpLRD
	case 0b00011:
		if word {
			return OpSCW
		}
		return OpSCD
	case 0b00001:
		if word {
			return OpAMOSWAPW
		}
		return OpAMOSWAPD
	case 0b00000:
		if word {
			return OpAMOADDW
		}
		return OpAMOADDD
	case 0b00100:
		if word {
			return OpAMOXORW
		}
		return OpAMOXORD
	case 0b01100:
		if word {
			return OpAMOANDW
		}
		return OpAMOANDD
	case 0b01000:
		if word {
			return OpAMOORW
		}
		return OpAMOORD
	case 0b10000:
		if word {
			return OpAMOMINW
		}
		return OpAMOMIND
	case 0b10100:
		if word {
			return OpAMOMAXW
		}
		return OpAMOMAXD
	case 0b11000:
		if word {
			return OpAMOMINUW
		}
		return OpAMOMINUD
	case 0b11100:
		if word {
			return OpAMOMAXUW
		}
		return OpAMOMAXUD
	}
	return OpUnknown
}

const rvcRegOffset = 8

// decodeCompressed decodes a 16-bit "C" extension instruction. Only the
// subset commonly emitted by compiler-generated code is covered: loads and
// stores of SP-relative and register-relative words/doublewords, ADDI/LI/
// LUI/MV/ADD/AND/OR/XOR/SUB family, branches, and unconditional jumps.
// Anything outside that subset decodes to ClassUnknown and the executor
// treats it as a NOP (spec §4.5), which is always safe but not always
// faithful to the source program.
func (d *Decoder) decodeCompressed(word uint16, pc uint64) *Instruction {
	inst := &Instruction{Raw: uint32(word), PC: pc, Class: ClassCompressed, Compressed: true}

	quadrant := word & 0x3
	funct3 := (word >> 13) & 0x7

	switch {
	case word == 0: // illegal all-zero encoding
		inst.Op = OpUnknown
		inst.Class = ClassUnknown

	case quadrant == 0b00 && funct3 == 0b000: // C.ADDI4SPN
		imm := (word>>7)&0x30 | (word>>1)&0x3C0 | (word>>4)&0x4 | (word>>2)&0x8
		inst.Op = OpADDI
		inst.Rd = uint8((word>>2)&0x7) + rvcRegOffset
		inst.Rs1 = 2
		inst.Imm = int64(imm)

	case quadrant == 0b00 && funct3 == 0b010: // C.LW
		imm := (word>>7)&0x38 | (word>>4)&0x4 | (word<<1)&0x40
		inst.Op = OpLW
		inst.Rd = uint8((word>>2)&0x7) + rvcRegOffset
		inst.Rs1 = uint8((word>>7)&0x7) + rvcRegOffset
		inst.Imm = int64(imm)

	case quadrant == 0b00 && funct3 == 0b011: // C.LD (RV64)
		imm := (word>>7)&0x38 | (word<<1)&0xC0
		inst.Op = OpLD
		inst.Rd = uint8((word>>2)&0x7) + rvcRegOffset
		inst.Rs1 = uint8((word>>7)&0x7) + rvcRegOffset
		inst.Imm = int64(imm)

	case quadrant == 0b00 && funct3 == 0b110: // C.SW
		imm := (word>>7)&0x38 | (word>>4)&0x4 | (word<<1)&0x40
		inst.Op = OpSW
		inst.Rs1 = uint8((word>>7)&0x7) + rvcRegOffset
		inst.Rs2 = uint8((word>>2)&0x7) + rvcRegOffset
		inst.Imm = int64(imm)

	case quadrant == 0b00 && funct3 == 0b111: // C.SD (RV64)
		imm := (word>>7)&0x38 | (word<<1)&0xC0
		inst.Op = OpSD
		inst.Rs1 = uint8((word>>7)&0x7) + rvcRegOffset
		inst.Rs2 = uint8((word>>2)&0x7) + rvcRegOffset
		inst.Imm = int64(imm)

	case quadrant == 0b01 && funct3 == 0b000: // C.NOP / C.ADDI
		rd := uint8((word >> 7) & 0x1F)
		imm := (word>>7)&0x20 | (word>>2)&0x1F
		inst.Op = OpADDI
		inst.Rd = rd
		inst.Rs1 = rd
		inst.Imm = signExtend(uint32(imm), 6)

	case quadrant == 0b01 && funct3 == 0b001: // C.JAL (RV32) treated as JAL x1
		imm := extractCJImm(word)
		inst.Op = OpJAL
		inst.Rd = 1
		inst.Imm = imm

	case quadrant == 0b01 && funct3 == 0b010: // C.LI
		rd := uint8((word >> 7) & 0x1F)
		imm := (word>>7)&0x20 | (word>>2)&0x1F
		inst.Op = OpADDI
		inst.Rd = rd
		inst.Rs1 = 0
		inst.Imm = signExtend(uint32(imm), 6)

	case quadrant == 0b01 && funct3 == 0b011: // C.ADDI16SP / C.LUI
		rd := uint8((word >> 7) & 0x1F)
		if rd == 2 {
			imm := (word>>3)&0x200 | (word>>2)&0x10 | (word<<1)&0x40 | (word<<4)&0x180 | (word<<3)&0x20
			inst.Op = OpADDI
			inst.Rd = 2
			inst.Rs1 = 2
			inst.Imm = signExtend(uint32(imm), 10)
		} else {
			imm := (uint32(word)>>7&0x20 | uint32(word)>>2&0x1F) << 12
			inst.Op = OpLUI
			inst.Rd = rd
			inst.Imm = signExtend(imm, 18)
		}

	case quadrant == 0b01 && funct3 == 0b100: // C.SRLI/C.SRAI/C.ANDI/C.SUB/C.XOR/C.OR/C.AND
		rd := uint8((word>>7)&0x7) + rvcRegOffset
		rs2 := uint8((word>>2)&0x7) + rvcRegOffset
		switch (word >> 10) & 0x3 {
		case 0b00:
			inst.Op = OpSRLI
			inst.Rd, inst.Rs1 = rd, rd
			inst.Imm = int64((word>>12)&0x10 | (word>>2)&0xF)
		case 0b01:
			inst.Op = OpSRAI
			inst.Rd, inst.Rs1 = rd, rd
			inst.Imm = int64((word>>12)&0x10 | (word>>2)&0xF)
		case 0b10:
			inst.Op = OpANDI
			inst.Rd, inst.Rs1 = rd, rd
			inst.Imm = signExtend(uint32((word>>12)&0x10|(word>>2)&0xF), 6)
		default:
			switch (word >> 5) & 0x3 {
			case 0b00:
				inst.Op = OpSUB
			case 0b01:
				inst.Op = OpXOR
			case 0b10:
				inst.Op = OpOR
			default:
				inst.Op = OpAND
			}
			inst.Rd, inst.Rs1, inst.Rs2 = rd, rd, rs2
		}

	case quadrant == 0b01 && funct3 == 0b101: // C.J
		inst.Op = OpJAL
		inst.Rd = 0
		inst.Imm = extractCJImm(word)

	case quadrant == 0b01 && (funct3 == 0b110 || funct3 == 0b111): // C.BEQZ/C.BNEZ
		rs1 := uint8((word>>7)&0x7) + rvcRegOffset
		imm := (word>>4)&0x100 | (word>>7)&0x18 | (word<<1)&0xC0 | (word>>2)&0x6 | (word<<3)&0x20
		inst.Rs1 = rs1
		inst.Rs2 = 0
		inst.Imm = signExtend(uint32(imm), 9)
		if funct3 == 0b110 {
			inst.Op = OpBEQ
		} else {
			inst.Op = OpBNE
		}

	case quadrant == 0b10 && funct3 == 0b000: // C.SLLI
		rd := uint8((word >> 7) & 0x1F)
		inst.Op = OpSLLI
		inst.Rd, inst.Rs1 = rd, rd
		inst.Imm = int64((word>>12)&0x10 | (word>>2)&0x1F)

	case quadrant == 0b10 && funct3 == 0b010: // C.LWSP
		imm := (word>>7)&0x20 | (word>>2)&0x1C | (word<<4)&0xC0
		inst.Op = OpLW
		inst.Rd = uint8((word >> 7) & 0x1F)
		inst.Rs1 = 2
		inst.Imm = int64(imm)

	case quadrant == 0b10 && funct3 == 0b011: // C.LDSP (RV64)
		imm := (word>>7)&0x18 | (word>>2)&0x1C0 | (word<<4)&0x20
		inst.Op = OpLD
		inst.Rd = uint8((word >> 7) & 0x1F)
		inst.Rs1 = 2
		inst.Imm = int64(imm)

	case quadrant == 0b10 && funct3 == 0b100: // C.JR/C.MV/C.EBREAK/C.JALR/C.ADD
		rd := uint8((word >> 7) & 0x1F)
		rs2 := uint8((word >> 2) & 0x1F)
		bit12 := (word >> 12) & 1
		switch {
		case bit12 == 0 && rs2 == 0: // C.JR
			inst.Op = OpJALR
			inst.Rd = 0
			inst.Rs1 = rd
			inst.Imm = 0
		case bit12 == 0: // C.MV
			inst.Op = OpADD
			inst.Rd = rd
			inst.Rs1 = 0
			inst.Rs2 = rs2
		case bit12 == 1 && rd == 0 && rs2 == 0: // C.EBREAK
			inst.Class = ClassSystem
			inst.Op = OpEBREAK
		case rs2 == 0: // C.JALR
			inst.Op = OpJALR
			inst.Rd = 1
			inst.Rs1 = rd
			inst.Imm = 0
		default: // C.ADD
			inst.Op = OpADD
			inst.Rd = rd
			inst.Rs1 = rd
			inst.Rs2 = rs2
		}

	case quadrant == 0b10 && funct3 == 0b110: // C.SWSP
		imm := (word>>7)&0x3C | (word>>1)&0xC0
		inst.Op = OpSW
		inst.Rs1 = 2
		inst.Rs2 = uint8((word >> 2) & 0x1F)
		inst.Imm = int64(imm)

	case quadrant == 0b10 && funct3 == 0b111: // C.SDSP (RV64)
		imm := (word>>7)&0x38 | (word>>1)&0x1C0
		inst.Op = OpSD
		inst.Rs1 = 2
		inst.Rs2 = uint8((word >> 2) & 0x1F)
		inst.Imm = int64(imm)

	default:
		inst.Op = OpUnknown
		inst.Class = ClassUnknown
	}

	return inst
}

// extractCJImm pulls the 11-bit sign-extended offset shared by C.J/C.JAL.
func extractCJImm(word uint16) int64 {
	imm := (word>>1)&0x800 | (word>>7)&0x10 | (word>>1)&0x300 | (word<<2)&0x400 |
		(word>>1)&0x40 | (word<<1)&0x80 | (word>>2)&0xE | (word<<3)&0x20
	return signExtend(uint32(imm), 12)
}
