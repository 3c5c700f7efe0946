// Package emu provides functional RISC-V emulation: register file and
// CSRs (C1), main memory (C6), ALU/branch/load-store/executor helpers
// (C3), and a non-pipelined reference CPU variant, Simple-LT.
package emu

import (
	"fmt"

	"github.com/sarchlab/riscv-vp/bus"
	"github.com/sarchlab/riscv-vp/insts"
)

// StepResult reports what happened during one Step call.
type StepResult struct {
	Halted     bool
	ExitCode   uint64
	Breakpoint bool
	Err        error
}

// Emulator is the Simple-LT core: a loosely-timed, non-pipelined
// fetch-decode-execute-commit loop that executes one instruction per
// Step call with no timing model of its own. It exists as the reference
// variant other cores (2-stage, 6-stage) are checked against.
type Emulator struct {
	regs    *RegFile
	fabric  *bus.Fabric
	decoder *insts.Decoder
	memIf   *MemoryInterface
	exec    *Executor
	trace   TraceSink

	instructionCount uint64
	maxInstructions  uint64

	halted   bool
	exitCode uint64
	stepErr  error
}

// EmulatorOption configures an Emulator at construction time.
type EmulatorOption func(*Emulator)

// WithXLEN selects the register width and decode mode (32 or 64).
func WithXLEN(xlen int) EmulatorOption {
	return func(e *Emulator) {
		e.regs = NewRegFile(xlen)
		e.decoder = insts.NewDecoder(xlen)
		e.exec = NewExecutor(e.regs, e.memIf)
	}
}

// WithEntryPoint sets the initial PC.
func WithEntryPoint(pc uint64) EmulatorOption {
	return func(e *Emulator) { e.regs.PC = pc }
}

// WithStackPointer sets the initial stack pointer (x2).
func WithStackPointer(sp uint64) EmulatorOption {
	return func(e *Emulator) { e.regs.WriteReg(2, sp) }
}

// WithTraceSink sets the sink that receives ECALL "write" (fd=1) bytes.
func WithTraceSink(sink TraceSink) EmulatorOption {
	return func(e *Emulator) { e.trace = sink }
}

// WithMaxInstructions caps the number of instructions executed. Zero
// means unlimited.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) { e.maxInstructions = max }
}

// NewEmulator creates a Simple-LT core wired to the given bus fabric.
func NewEmulator(fabric *bus.Fabric, opts ...EmulatorOption) *Emulator {
	regs := NewRegFile(32)
	memIf := NewMemoryInterface(fabric)

	e := &Emulator{
		regs:    regs,
		fabric:  fabric,
		decoder: insts.NewDecoder(32),
		memIf:   memIf,
	}
	e.exec = NewExecutor(regs, memIf)

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile { return e.regs }

// InstructionCount returns the number of instructions retired so far.
func (e *Emulator) InstructionCount() uint64 { return e.instructionCount }

// Instructions is an alias for InstructionCount, letting the simulator
// kernel (C14) enforce an instruction cap uniformly across CPU variants.
func (e *Emulator) Instructions() uint64 { return e.instructionCount }

// SetTraceSink installs the sink that receives ECALL "write" (fd=1)
// bytes.
func (e *Emulator) SetTraceSink(sink TraceSink) { e.trace = sink }

// SetPC sets the program counter.
func (e *Emulator) SetPC(pc uint64) { e.regs.PC = pc }

// Halted reports whether the emulator has stopped.
func (e *Emulator) Halted() bool { return e.halted }

// ExitCode returns the halt exit code.
func (e *Emulator) ExitCode() uint64 { return e.exitCode }

// Err returns the error that stopped the emulator, if Step failed rather
// than the program halting normally.
func (e *Emulator) Err() error { return e.stepErr }

// RunCycles steps the emulator for up to n instructions (Simple-LT has no
// timing model, so one Step is billed as one cycle), returning true if
// still running afterward. This gives Simple-LT the same stepping shape
// as the 2-stage and 6-stage cores so the simulator kernel (C14) can drive
// any of the three variants interchangeably.
func (e *Emulator) RunCycles(n uint64) bool {
	for i := uint64(0); i < n && !e.halted; i++ {
		result := e.Step()
		if result.Err != nil {
			e.halted = true
			e.stepErr = result.Err
			return false
		}
		if result.Halted {
			e.halted = true
			e.exitCode = result.ExitCode
			return false
		}
	}
	return !e.halted
}

// Step fetches, decodes, executes, and commits exactly one instruction,
// taking a pending interrupt first if one is unmasked (spec §4.8).
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: fmt.Errorf("max instructions reached")}
	}

	if take, cause := PendingInterrupt(&e.regs.CSR); take {
		e.regs.PC = DeliverInterrupt(e.regs, cause, e.regs.PC)
		return StepResult{}
	}

	word, err := e.memIf.Read(e.regs.PC, 4)
	if err != nil {
		return StepResult{Err: err}
	}

	inst := e.decoder.Decode(uint32(word), e.regs.PC)
	result := e.exec.Compute(inst)
	if result.Err != nil {
		return StepResult{Err: result.Err}
	}

	if err := e.exec.Commit(result, e.trace); err != nil {
		return StepResult{Err: err}
	}

	e.instructionCount++

	if result.Breakpoint {
		return StepResult{Breakpoint: true}
	}
	if result.Halt {
		return StepResult{Halted: true, ExitCode: result.ExitCode}
	}

	if result.IsBranch && result.BranchTaken {
		e.regs.PC = result.Target
	} else if inst.Compressed {
		e.regs.PC += 2
	} else {
		e.regs.PC += 4
	}

	if e.fabric.Halted() {
		return StepResult{Halted: true, ExitCode: e.fabric.ExitCode()}
	}

	return StepResult{}
}

// Run executes instructions until the program halts or an error occurs,
// returning the exit code (and the error, if any).
func (e *Emulator) Run() (uint64, error) {
	for {
		result := e.Step()
		if result.Err != nil {
			return 0, result.Err
		}
		if result.Breakpoint {
			continue
		}
		if result.Halted {
			return result.ExitCode, nil
		}
	}
}
