// Package latency provides instruction timing models for the pipelined
// RISC-V CPU variants. Latency values are configurable via TimingConfig.
package latency

import (
	"github.com/sarchlab/riscv-vp/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{config: DefaultTimingConfig()}
}

// NewTableWithConfig creates a new latency table with custom timing
// configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{config: config}
}

// GetLatency returns the execution latency in cycles for the given
// instruction, excluding any bus transaction time for loads/stores. The
// memory interface discards the delay a bus target returns, so that time
// is not billed to any cycle count.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Class {
	case insts.ClassMuldiv:
		switch inst.Op {
		case insts.OpMUL, insts.OpMULH, insts.OpMULHU, insts.OpMULHSU, insts.OpMULW:
			return t.config.MulLatency
		default:
			return t.config.DivLatencyMax
		}
	}

	switch inst.Op {
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU,
		insts.OpJAL, insts.OpJALR, insts.OpMRET:
		return t.config.BranchLatency

	case insts.OpLB, insts.OpLBU, insts.OpLH, insts.OpLHU, insts.OpLW, insts.OpLWU, insts.OpLD:
		return t.config.LoadLatency

	case insts.OpSB, insts.OpSH, insts.OpSW, insts.OpSD:
		return t.config.StoreLatency

	case insts.OpECALL, insts.OpEBREAK:
		return t.config.SyscallLatency

	default:
		return t.config.ALULatency
	}
}

// IsMemoryOp reports whether the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp reports whether the instruction is a load.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpLB, insts.OpLBU, insts.OpLH, insts.OpLHU, insts.OpLW, insts.OpLWU, insts.OpLD:
		return true
	}
	return false
}

// IsStoreOp reports whether the instruction is a store.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpSB, insts.OpSH, insts.OpSW, insts.OpSD:
		return true
	}
	return false
}

// IsBranchOp reports whether the instruction redirects control flow.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU,
		insts.OpJAL, insts.OpJALR, insts.OpMRET:
		return true
	}
	return false
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
