package pipeline

import (
	"github.com/sarchlab/riscv-vp/bus"
	"github.com/sarchlab/riscv-vp/emu"
	"github.com/sarchlab/riscv-vp/insts"
	"github.com/sarchlab/riscv-vp/timing/latency"
)

// DefaultROBSize and DefaultStoreBufferSize match spec §4.7's N≈32,
// M≈8 sizing.
const (
	DefaultROBSize         = 32
	DefaultStoreBufferSize = 8
)

// Stats holds performance statistics for the 6-stage pipeline.
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

// PipelineOption configures a Pipeline at construction time.
type PipelineOption func(*Pipeline)

// WithTraceSink installs the sink that receives ECALL "write" (fd=1)
// bytes.
func WithTraceSink(sink emu.TraceSink) PipelineOption {
	return func(p *Pipeline) { p.trace = sink }
}

// WithROBSize overrides the reorder buffer capacity (default
// DefaultROBSize).
func WithROBSize(n int) PipelineOption {
	return func(p *Pipeline) { p.rob = NewROB(n) }
}

// WithStoreBufferSize overrides the store buffer capacity (default
// DefaultStoreBufferSize).
func WithStoreBufferSize(m int) PipelineOption {
	return func(p *Pipeline) { p.sb = NewStoreBuffer(m) }
}

// Pipeline is the 6-stage in-order pipeline (C12): PCGen -> IF -> ID ->
// IS -> EX -> Commit, with a scoreboard interlock at Issue and a
// reorder buffer plus store buffer decoupling Commit from EX (spec
// §4.7).
type Pipeline struct {
	regs    *emu.RegFile
	fabric  *bus.Fabric
	memIf   *emu.MemoryInterface
	decoder *insts.Decoder
	exec    *emu.Executor
	trace   emu.TraceSink
	lat     *latency.Table

	rob        *ROB
	sb         *StoreBuffer
	scoreboard Scoreboard

	pcgenReg, pcgenNext pcgenLatch
	ifidReg, ifidNext   ifidLatch
	idisReg, idisNext   idisLatch
	isexReg, isexNext   isexLatch

	redirectPending bool
	redirectTarget  uint64
	flushUpstream   bool
	stallFetch      bool
	stallIssue      bool

	stats    Stats
	halted   bool
	exitCode uint64
}

// NewPipeline creates a 6-stage pipeline wired to the given bus fabric.
func NewPipeline(regs *emu.RegFile, fabric *bus.Fabric, lat *latency.Table, opts ...PipelineOption) *Pipeline {
	memIf := emu.NewMemoryInterface(fabric)
	p := &Pipeline{
		regs:    regs,
		fabric:  fabric,
		memIf:   memIf,
		decoder: insts.NewDecoder(regs.XLEN),
		exec:    emu.NewExecutor(regs, memIf),
		lat:     lat,
		rob:     NewROB(DefaultROBSize),
		sb:      NewStoreBuffer(DefaultStoreBufferSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetTraceSink installs the sink that receives ECALL "write" (fd=1)
// bytes.
func (p *Pipeline) SetTraceSink(sink emu.TraceSink) { p.trace = sink }

// SetPC sets the program counter and clears every latch, the ROB, and
// the store buffer.
func (p *Pipeline) SetPC(pc uint64) {
	p.regs.PC = pc
	p.pcgenReg = pcgenLatch{valid: true, pc: pc}
	p.pcgenNext = pcgenLatch{}
	p.ifidReg, p.ifidNext = ifidLatch{}, ifidLatch{}
	p.idisReg, p.idisNext = idisLatch{}, idisLatch{}
	p.isexReg, p.isexNext = isexLatch{}, isexLatch{}
	p.rob = NewROB(len(p.rob.entries))
	p.sb = NewStoreBuffer(cap(p.sb.entries))
	p.scoreboard = Scoreboard{}
}

// Halted reports whether the pipeline has stopped.
func (p *Pipeline) Halted() bool { return p.halted }

// ExitCode returns the halt exit code.
func (p *Pipeline) ExitCode() uint64 { return p.exitCode }

// Stats returns a copy of the pipeline's performance counters.
func (p *Pipeline) Stats() Stats { return p.stats }

// ROBOccupancy returns the number of in-flight ROB entries, used by
// tests checking invariants I3/I5 against the store buffer.
func (p *Pipeline) ROBOccupancy() int { return p.rob.count }

// Instructions returns the number of instructions retired so far, letting
// the simulator kernel (C14) enforce an instruction cap uniformly across
// CPU variants.
func (p *Pipeline) Instructions() uint64 { return p.stats.Instructions }

// Tick runs one clock cycle, executing stages in reverse program order
// (Commit -> EX -> IS -> ID -> IF -> PCGen) per spec §5's ordering
// guarantee: each stage reads the latch committed at the previous edge
// and writes the next-state latch, so no stage's write this cycle can
// race an earlier stage's read.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}
	p.stats.Cycles++

	if p.rob.Empty() {
		if take, cause := emu.PendingInterrupt(&p.regs.CSR); take {
			// With the ROB empty, the oldest unretired instruction is the
			// one furthest along in the front-end latches; mepc names it.
			epc := p.pcgenReg.pc
			if p.ifidReg.valid {
				epc = p.ifidReg.pc
			}
			if p.idisReg.valid {
				epc = p.idisReg.pc
			}
			p.redirectPending = true
			p.redirectTarget = emu.DeliverInterrupt(p.regs, cause, epc)
			p.flushUpstream = true
			p.stats.Flushes++
			p.stats.Stalls += p.lat.Config().IRQLatencyCycles
		}
	}

	p.stallFetch = false
	p.stallIssue = false

	p.commitStep()
	if p.halted {
		return
	}
	p.exStep()
	if p.halted {
		return
	}
	p.isStep()
	p.idStep()
	p.ifStep()
	p.pcgenStep()

	p.pcgenReg = p.pcgenNext
	p.ifidReg = p.ifidNext
	p.idisReg = p.idisNext
	p.isexReg = p.isexNext
	p.flushUpstream = false

	if p.fabric.Halted() {
		p.halted = true
		p.exitCode = p.fabric.ExitCode()
	}
}

// Run ticks the pipeline until it halts, returning the exit code.
func (p *Pipeline) Run() uint64 {
	for !p.halted {
		p.Tick()
	}
	return p.exitCode
}

// RunCycles ticks the pipeline for up to the given number of cycles,
// returning true if still running afterward.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}
