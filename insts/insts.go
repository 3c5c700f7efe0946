// Package insts provides RISC-V instruction definitions and decoding.
//
// This package implements decoding of RV32/RV64 machine code into a
// structured instruction representation. It supports:
//   - The base integer ISA (RV32I/RV64I): ALU, load/store, branch, jump, U-type
//   - The "C" compressed extension (16-bit encodings)
//   - The "M" multiply/divide extension
//   - The "A" atomic extension (LR/SC, AMO*)
//   - A narrow "system" class covering ECALL/EBREAK/MRET and CSR access
//
// Usage:
//
//	decoder := insts.NewDecoder(32)
//	inst := decoder.Decode(0x00A28293, 0x1000) // addi t0, t0, 10
package insts

// Op represents a decoded RISC-V operation.
type Op uint16

// Decoded operations. Only the operations this simulator's executor needs
// to distinguish are enumerated; anything decode can't classify becomes
// OpUnknown and is executed as a NOP.
const (
	OpUnknown Op = iota

	// Base integer register-register.
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	// Base integer register-immediate.
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	// RV64-only register-register / register-immediate word ops.
	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW
	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW

	// Upper immediate.
	OpLUI
	OpAUIPC

	// Loads / stores.
	OpLB
	OpLH
	OpLW
	OpLD
	OpLBU
	OpLHU
	OpLWU
	OpSB
	OpSH
	OpSW
	OpSD

	// Control flow.
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpJAL
	OpJALR

	// System.
	OpECALL
	OpEBREAK
	OpMRET
	OpFENCE
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI

	// M extension.
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU
	OpMULW
	OpDIVW
	OpDIVUW
	OpREMW
	OpREMUW

	// A extension.
	OpLRW
	OpSCW
	OpLRD
	OpSCD
	OpAMOSWAPW
	OpAMOADDW
	OpAMOANDW
	OpAMOORW
	OpAMOXORW
	OpAMOMAXW
	OpAMOMINW
	OpAMOMAXUW
	OpAMOMINUW
	OpAMOSWAPD
	OpAMOADDD
	OpAMOANDD
	OpAMOORD
	OpAMOXORD
	OpAMOMAXD
	OpAMOMIND
	OpAMOMAXUD
	OpAMOMINUD
)

// Class identifies which ISA sub-extension an instruction decoded from, per
// the decoder's attempt order (base, compressed, muldiv, atomic, system).
type Class uint8

// Instruction classes, matching the data model in spec §3.
const (
	ClassUnknown   Class = iota
	ClassBaseI           // RV32I/RV64I base integer
	ClassCompressed      // "C" extension, 16-bit encodings
	ClassMuldiv          // "M" extension
	ClassAtomic          // "A" extension
	ClassSystem          // ECALL/EBREAK/MRET/FENCE/CSR*
)

// Instruction is a decoded RISC-V instruction record (spec §3).
type Instruction struct {
	Raw   uint32 // the raw instruction word (low 16 bits valid for compressed)
	PC    uint64 // PC this instruction was fetched from
	Class Class

	Op Op

	Rd, Rs1, Rs2 uint8
	Funct3       uint8
	Funct7       uint8
	Opcode       uint8
	Csr          uint16

	// Imm is sign-extended to 64 bits by the decoder; the executor masks
	// to XLEN as needed.
	Imm int64

	// Compressed is true when this instruction was decoded from a 16-bit
	// word (low two bits of Raw != 0b11); Simple-LT advances PC by 2
	// instead of 4 for such instructions, while the 6-stage pipeline
	// always advances by 4.
	Compressed bool

	// AqRl carries the acquire/release bits for the "A" extension.
	Aq, Rl bool
}
