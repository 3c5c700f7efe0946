package emu

import "github.com/sarchlab/riscv-vp/insts"

// TraceSink receives bytes written by the ECALL "write" syscall when
// fd == 1, and by any instruction-driven byte output. Peripherals such as
// the UART and trace targets (C10) implement this.
type TraceSink interface {
	WriteByte(b byte)
}

// ECALL a7 values the executor recognizes (spec §4.5). Any other a7 value
// is a no-op: the instruction retires without effect.
const (
	ecallExitLegacy = 1
	ecallExit       = 93
	ecallWrite      = 64
)

// Result is the outcome of computing one instruction: everything that can
// be decided without committing architectural state. Callers (Simple-LT,
// the 2-stage core, and the 6-stage pipeline's Commit stage) apply the
// Commit-stage effects separately so that in-order retirement and branch
// flush semantics stay centralized in the pipeline, not the executor.
type Result struct {
	HasRd  bool
	Rd     uint8
	RdValue uint64

	IsBranch    bool
	BranchTaken bool
	Target      uint64 // valid when BranchTaken, or for JAL/JALR/MRET

	IsLoad  bool
	IsStore bool
	Addr    uint64
	StoreData uint64
	StoreSize int

	IsSystem bool
	Halt     bool
	ExitCode uint64
	TraceBytes []byte

	CsrWrite bool
	CsrAddr  uint16
	CsrValue uint64

	IsMret bool

	Breakpoint bool

	Err error
}

// Executor implements the RISC-V executor (C3): it evaluates a decoded
// instruction's ALU, branch, address, load, ECALL, and CSR semantics
// against the register file, but defers architectural writeback (rd,
// memory stores, CSR updates, PC redirection) to the caller's commit
// point.
type Executor struct {
	regs *RegFile
	alu  *ALU
	br   *BranchUnit
	lsu  *LoadStoreUnit
	mem  *MemoryInterface
}

// NewExecutor creates an Executor wired to the given register file and
// memory interface.
func NewExecutor(regs *RegFile, mem *MemoryInterface) *Executor {
	return &Executor{
		regs: regs,
		alu:  NewALU(regs),
		br:   NewBranchUnit(regs),
		lsu:  NewLoadStoreUnit(regs, mem),
		mem:  mem,
	}
}

// Compute evaluates inst against the current register file contents and
// returns the pending Result. It performs loads (reads have no
// architectural side effect worth deferring) but never stores, writes rd,
// or touches CSRs.
func (e *Executor) Compute(inst *insts.Instruction) *Result {
	r := &Result{}

	rs1 := e.regs.ReadReg(inst.Rs1)
	rs2 := e.regs.ReadReg(inst.Rs2)
	pc := inst.PC
	seqLen := uint64(4)
	if inst.Compressed {
		seqLen = 2
	}

	switch inst.Class {
	case insts.ClassBaseI, insts.ClassCompressed:
		switch inst.Op {
		case insts.OpLUI:
			r.HasRd, r.Rd, r.RdValue = true, inst.Rd, uint64(inst.Imm)
		case insts.OpAUIPC:
			r.HasRd, r.Rd, r.RdValue = true, inst.Rd, pc+uint64(inst.Imm)
		case insts.OpJAL:
			r.HasRd, r.Rd, r.RdValue = true, inst.Rd, pc+seqLen
			r.IsBranch, r.BranchTaken, r.Target = true, true, pc+uint64(inst.Imm)
		case insts.OpJALR:
			r.HasRd, r.Rd, r.RdValue = true, inst.Rd, pc+seqLen
			r.IsBranch, r.BranchTaken = true, true
			r.Target = (rs1 + uint64(inst.Imm)) &^ 1
		case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU:
			r.IsBranch = true
			if e.br.Taken(inst.Op, rs1, rs2) {
				r.BranchTaken = true
				r.Target = pc + uint64(inst.Imm)
			}
		case insts.OpLB, insts.OpLBU, insts.OpLH, insts.OpLHU, insts.OpLW, insts.OpLWU, insts.OpLD:
			addr := rs1 + uint64(inst.Imm)
			r.IsLoad, r.Addr = true, addr
			v, err := e.lsu.Load(inst.Op, addr)
			r.Err = err
			r.HasRd, r.Rd, r.RdValue = true, inst.Rd, v
		case insts.OpSB, insts.OpSH, insts.OpSW, insts.OpSD:
			r.IsStore = true
			r.Addr = rs1 + uint64(inst.Imm)
			r.StoreData = rs2
			r.StoreSize = StoreSize(inst.Op)
		default:
			r.HasRd, r.Rd = true, inst.Rd
			imm := uint64(inst.Imm)
			r.RdValue = e.alu.Exec(inst.Op, rs1, imm)
			if !isImmediateOp(inst.Op) {
				r.RdValue = e.alu.Exec(inst.Op, rs1, rs2)
			}
		}

	case insts.ClassMuldiv:
		r.HasRd, r.Rd = true, inst.Rd
		r.RdValue = e.alu.Exec(inst.Op, rs1, rs2)

	case insts.ClassAtomic:
		e.computeAtomic(inst, rs1, rs2, r)

	case insts.ClassSystem:
		e.computeSystem(inst, rs1, r)

	default: // ClassUnknown decodes as NOP
	}

	return r
}

func isImmediateOp(op insts.Op) bool {
	switch op {
	case insts.OpADDI, insts.OpSLTI, insts.OpSLTIU, insts.OpXORI, insts.OpORI, insts.OpANDI,
		insts.OpSLLI, insts.OpSRLI, insts.OpSRAI,
		insts.OpADDIW, insts.OpSLLIW, insts.OpSRLIW, insts.OpSRAIW:
		return true
	}
	return false
}

func (e *Executor) computeAtomic(inst *insts.Instruction, rs1, rs2 uint64, r *Result) {
	isDouble := inst.Op == insts.OpLRD || inst.Op == insts.OpSCD ||
		(inst.Op >= insts.OpAMOSWAPD && inst.Op <= insts.OpAMOMINUD)
	size := 4
	loadOp := insts.OpLW
	if isDouble {
		size = 8
		loadOp = insts.OpLD
	}

	switch inst.Op {
	case insts.OpLRW, insts.OpLRD:
		v, err := e.lsu.Load(loadOp, rs1)
		r.Err = err
		r.HasRd, r.Rd, r.RdValue = true, inst.Rd, v
		return
	case insts.OpSCW, insts.OpSCD:
		// Single-hart simulation: a reservation can never be lost between
		// LR and SC, so SC always succeeds.
		r.IsStore, r.Addr, r.StoreData, r.StoreSize = true, rs1, rs2, size
		r.HasRd, r.Rd, r.RdValue = true, inst.Rd, 0
		return
	}

	old, err := e.lsu.Load(loadOp, rs1)
	r.Err = err
	var result uint64
	switch inst.Op {
	case insts.OpAMOSWAPW, insts.OpAMOSWAPD:
		result = rs2
	case insts.OpAMOADDW, insts.OpAMOADDD:
		result = old + rs2
	case insts.OpAMOANDW, insts.OpAMOANDD:
		result = old & rs2
	case insts.OpAMOORW, insts.OpAMOORD:
		result = old | rs2
	case insts.OpAMOXORW, insts.OpAMOXORD:
		result = old ^ rs2
	case insts.OpAMOMAXW, insts.OpAMOMAXUW, insts.OpAMOMAXD, insts.OpAMOMAXUD:
		if unsignedCompare(inst.Op) {
			result = maxU(old, rs2)
		} else {
			result = uint64(maxI(signExtendForWidth(old, size), signExtendForWidth(rs2, size)))
		}
	case insts.OpAMOMINW, insts.OpAMOMINUW, insts.OpAMOMIND, insts.OpAMOMINUD:
		if unsignedCompare(inst.Op) {
			result = minU(old, rs2)
		} else {
			result = uint64(minI(signExtendForWidth(old, size), signExtendForWidth(rs2, size)))
		}
	}

	r.HasRd, r.Rd, r.RdValue = true, inst.Rd, old
	r.IsStore, r.Addr, r.StoreData, r.StoreSize = true, rs1, result, size
}

func unsignedCompare(op insts.Op) bool {
	switch op {
	case insts.OpAMOMAXUW, insts.OpAMOMINUW, insts.OpAMOMAXUD, insts.OpAMOMINUD:
		return true
	}
	return false
}

func signExtendForWidth(v uint64, size int) int64 {
	if size == 4 {
		return int64(int32(uint32(v)))
	}
	return int64(v)
}

func maxU(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
func minU(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
func maxI(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
func minI(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func (e *Executor) computeSystem(inst *insts.Instruction, rs1 uint64, r *Result) {
	r.IsSystem = true

	switch inst.Op {
	case insts.OpFENCE:
		// no-op: single-hart, no cache hierarchy to order.

	case insts.OpEBREAK:
		r.Breakpoint = true

	case insts.OpECALL:
		a7 := e.regs.ReadReg(17)
		switch a7 {
		case ecallExitLegacy, ecallExit:
			r.Halt = true
			r.ExitCode = e.regs.ReadReg(10)
		case ecallWrite:
			fd := e.regs.ReadReg(10)
			ptr := e.regs.ReadReg(11)
			length := e.regs.ReadReg(12)
			if fd == 1 {
				buf := make([]byte, 0, length)
				for i := uint64(0); i < length; i++ {
					b, err := e.lsu.Load(insts.OpLBU, ptr+i)
					if err != nil {
						break
					}
					buf = append(buf, byte(b))
				}
				r.TraceBytes = buf
			}
		}

	case insts.OpMRET:
		r.IsMret = true
		r.IsBranch = true
		r.BranchTaken = true
		r.Target = e.regs.CSR.MEPC

	case insts.OpCSRRW, insts.OpCSRRS, insts.OpCSRRC, insts.OpCSRRWI, insts.OpCSRRSI, insts.OpCSRRCI:
		old, _ := e.regs.CSR.Read(inst.Csr)
		r.HasRd, r.Rd, r.RdValue = true, inst.Rd, old

		var operand uint64
		immForm := inst.Op == insts.OpCSRRWI || inst.Op == insts.OpCSRRSI || inst.Op == insts.OpCSRRCI
		if immForm {
			operand = uint64(inst.Rs1)
		} else {
			operand = rs1
		}

		var newVal uint64
		switch inst.Op {
		case insts.OpCSRRW, insts.OpCSRRWI:
			newVal = operand
		case insts.OpCSRRS, insts.OpCSRRSI:
			newVal = old | operand
		case insts.OpCSRRC, insts.OpCSRRCI:
			newVal = old &^ operand
		}
		r.CsrWrite, r.CsrAddr, r.CsrValue = true, inst.Csr, newVal
	}
}

// Commit applies a previously computed Result in full: writes rd,
// performs the deferred store directly, updates CSR state, and drains
// trace bytes. Non-pipelined and 2-stage cores call this immediately
// after Compute, since neither has a store buffer to defer through.
func (e *Executor) Commit(r *Result, trace TraceSink) error {
	if r.IsStore {
		if err := e.CommitStore(r.Addr, r.StoreData, r.StoreSize); err != nil {
			return err
		}
	}
	e.CommitRegisterAndCSR(r, trace)
	return nil
}

// CommitRegisterAndCSR applies everything about a Result except the
// store: rd writeback, CSR writeback, MRET's MIE re-enable, and trace
// byte draining. The 6-stage pipeline calls this from its Commit stage
// and performs the store itself via CommitStore, through the store
// buffer, once the entry retires.
func (e *Executor) CommitRegisterAndCSR(r *Result, trace TraceSink) {
	if r.HasRd && r.Rd != 0 {
		e.regs.WriteReg(r.Rd, r.RdValue)
	}
	if r.CsrWrite {
		e.regs.CSR.Write(r.CsrAddr, r.CsrValue)
	}
	if r.IsMret {
		e.regs.CSR.MStatus |= MStatusMIE
	}
	if len(r.TraceBytes) > 0 && trace != nil {
		for _, b := range r.TraceBytes {
			trace.WriteByte(b)
		}
	}
	e.regs.CSR.MInstret++
}

// CommitStore issues the actual bus write for a retired store.
func (e *Executor) CommitStore(addr, data uint64, size int) error {
	return e.lsu.Store(storeOpForSize(size), addr, data)
}

func storeOpForSize(size int) insts.Op {
	switch size {
	case 1:
		return insts.OpSB
	case 2:
		return insts.OpSH
	case 4:
		return insts.OpSW
	default:
		return insts.OpSD
	}
}

// RegFile exposes the executor's bound register file, used by callers
// that need direct read access (e.g. CSR dump, debug inspection).
func (e *Executor) RegFile() *RegFile { return e.regs }
