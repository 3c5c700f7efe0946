// Package core provides the 2-stage pipelined CPU core model (C11):
// IF and EX joined by a single double-buffered latch, matching the
// _next/_reg commit-at-clock-edge idiom used throughout this simulator's
// timing models.
package core

import (
	"github.com/sarchlab/riscv-vp/bus"
	"github.com/sarchlab/riscv-vp/emu"
	"github.com/sarchlab/riscv-vp/insts"
	"github.com/sarchlab/riscv-vp/timing/latency"
)

// Stats holds performance statistics for the core.
type Stats struct {
	Cycles       uint64
	Instructions uint64
	Stalls       uint64
	Flushes      uint64
}

// CPI returns cycles per instruction, or 0 if no instructions retired.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

type latch struct {
	valid bool
	pc    uint64
	word  uint32
}

// Core is the 2-stage pipeline (spec §4.6): on each Tick, EX executes the
// instruction already in the latch while IF fetches the next one into the
// latch's next-state half; the two are swapped at the simulated clock
// edge.
type Core struct {
	regs    *emu.RegFile
	fabric  *bus.Fabric
	memIf   *emu.MemoryInterface
	decoder *insts.Decoder
	exec    *emu.Executor
	trace   emu.TraceSink
	lat     *latency.Table

	reg, next latch

	stats  Stats
	halted bool
	exitCode uint64
}

// NewCore creates a 2-stage core wired to the given bus fabric.
func NewCore(regs *emu.RegFile, fabric *bus.Fabric, lat *latency.Table) *Core {
	memIf := emu.NewMemoryInterface(fabric)
	return &Core{
		regs:    regs,
		fabric:  fabric,
		memIf:   memIf,
		decoder: insts.NewDecoder(regs.XLEN),
		exec:    emu.NewExecutor(regs, memIf),
		lat:     lat,
	}
}

// SetTraceSink installs the sink that receives ECALL "write" (fd=1)
// bytes.
func (c *Core) SetTraceSink(sink emu.TraceSink) { c.trace = sink }

// SetPC sets the program counter and invalidates the pending fetch latch.
func (c *Core) SetPC(pc uint64) {
	c.regs.PC = pc
	c.reg = latch{}
	c.next = latch{}
}

// Halted reports whether the core has stopped (exit syscall or to-host
// write observed by the bus fabric).
func (c *Core) Halted() bool { return c.halted }

// ExitCode returns the halt exit code.
func (c *Core) ExitCode() uint64 { return c.exitCode }

// Stats returns a copy of the core's performance counters.
func (c *Core) Stats() Stats { return c.stats }

// Instructions returns the number of instructions retired so far, letting
// the simulator kernel (C14) enforce an instruction cap uniformly across
// CPU variants.
func (c *Core) Instructions() uint64 { return c.stats.Instructions }

// Tick executes one clock cycle: commit the latch, run EX on it, then run
// IF to refill the latch's next state.
func (c *Core) Tick() {
	if c.halted {
		return
	}
	c.stats.Cycles++

	c.reg = c.next
	c.next = latch{}

	if take, cause := emu.PendingInterrupt(&c.regs.CSR); take {
		c.regs.PC = emu.DeliverInterrupt(c.regs, cause, c.regs.PC)
		c.reg = latch{}
		c.stats.Flushes++
		c.stats.Stalls += c.lat.Config().IRQLatencyCycles
		return
	}

	flush := false

	if c.reg.valid {
		inst := c.decoder.Decode(c.reg.word, c.reg.pc)
		result := c.exec.Compute(inst)
		if extra := c.lat.GetLatency(inst) - 1; extra > 0 {
			c.stats.Cycles += extra
			c.stats.Stalls += extra
		}
		if result.Err == nil {
			_ = c.exec.Commit(result, c.trace)
			c.stats.Instructions++

			switch {
			case result.Breakpoint:
				// retire normally; a debug stub would trap here.
			case result.Halt:
				c.halted = true
				c.exitCode = result.ExitCode
				return
			case result.IsBranch && result.BranchTaken:
				c.regs.PC = result.Target
				flush = true
				c.stats.Flushes++
			}
		}
	}

	if c.fabric.Halted() {
		c.halted = true
		c.exitCode = c.fabric.ExitCode()
		return
	}

	if flush {
		c.next = latch{}
		return
	}

	c.fetch()
}

func (c *Core) fetch() {
	pc := c.regs.PC
	word, err := c.memIf.Read(pc, 4)
	if err != nil {
		c.halted = true
		return
	}
	c.next = latch{valid: true, pc: pc, word: uint32(word)}

	if word&0x3 != 0x3 {
		c.regs.PC += 2
	} else {
		c.regs.PC += 4
	}
}

// Run ticks the core until it halts, returning the exit code.
func (c *Core) Run() uint64 {
	for !c.halted {
		c.Tick()
	}
	return c.exitCode
}

// RunCycles ticks the core for up to the given number of cycles,
// returning true if still running afterward.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !c.halted; i++ {
		c.Tick()
	}
	return !c.halted
}
