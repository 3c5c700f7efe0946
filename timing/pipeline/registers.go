// Package pipeline provides the 6-stage pipelined CPU core model (C12):
// PCGen -> IF -> ID -> IS -> EX -> Commit, with a scoreboard-interlocked
// Issue stage and a reorder buffer / store buffer sitting between EX and
// Commit.
package pipeline

import (
	"github.com/sarchlab/riscv-vp/emu"
	"github.com/sarchlab/riscv-vp/insts"
)

// pcgenLatch carries the PC that IF should fetch next.
type pcgenLatch struct {
	valid bool
	pc    uint64
}

// ifidLatch carries a fetched instruction word from IF to ID.
type ifidLatch struct {
	valid bool
	pc    uint64
	word  uint32
}

// idisLatch carries a decoded instruction from ID to IS.
type idisLatch struct {
	valid bool
	pc    uint64
	inst  *insts.Instruction
}

// isexLatch carries an issued instruction, its operand values, and its
// allocated ROB index from IS to EX.
type isexLatch struct {
	valid    bool
	pc       uint64
	inst     *insts.Instruction
	rs1Val   uint64
	rs2Val   uint64
	robIndex int
}

// ROBEntry is one reorder buffer slot (spec §3). Result carries the
// destination register's value for convenience; Res carries the full
// executor Result so Commit can also apply CSR writes, ECALL effects,
// and trace bytes for entries that have no destination register.
type ROBEntry struct {
	Valid     bool
	Ready     bool
	DestReg   uint8
	Result    uint64
	IsStore   bool
	IsBranch  bool
	Exception bool
	PC        uint64
	Res       *emu.Result
}

// ROB is a ring buffer of N entries enforcing strict FIFO, in-order
// retirement.
type ROB struct {
	entries []ROBEntry
	head    int
	tail    int
	count   int
}

// NewROB creates a reorder buffer with capacity n.
func NewROB(n int) *ROB {
	return &ROB{entries: make([]ROBEntry, n)}
}

// Full reports whether the ROB has no room for a new allocation.
func (r *ROB) Full() bool { return r.count == len(r.entries) }

// Empty reports whether the ROB has no in-flight entries.
func (r *ROB) Empty() bool { return r.count == 0 }

// Allocate reserves the next ROB slot for an instruction entering IS,
// returning its index. Fails if the ROB is full.
func (r *ROB) Allocate(pc uint64, destReg uint8, isStore, isBranch bool) (int, bool) {
	if r.Full() {
		return 0, false
	}
	idx := r.tail
	r.entries[idx] = ROBEntry{
		Valid:    true,
		DestReg:  destReg,
		IsStore:  isStore,
		IsBranch: isBranch,
		PC:       pc,
	}
	r.tail = (r.tail + 1) % len(r.entries)
	r.count++
	return idx, true
}

// Complete marks an entry's result ready, called from EX.
func (r *ROB) Complete(idx int, result uint64, exception bool, res *emu.Result) {
	r.entries[idx].Ready = true
	r.entries[idx].Result = result
	r.entries[idx].Exception = exception
	r.entries[idx].Res = res
}

// Head returns the oldest entry and whether it exists.
func (r *ROB) Head() (ROBEntry, bool) {
	if r.Empty() {
		return ROBEntry{}, false
	}
	return r.entries[r.head], true
}

// HeadIndex returns the ring index of the oldest entry.
func (r *ROB) HeadIndex() int { return r.head }

// Retire pops the oldest entry once Commit has applied its effects.
func (r *ROB) Retire() {
	r.entries[r.head] = ROBEntry{}
	r.head = (r.head + 1) % len(r.entries)
	r.count--
}

// StoreBufferEntry is one pending store, keyed by the ROB index that owns
// it (spec §3).
type StoreBufferEntry struct {
	Valid    bool
	Address  uint64
	Data     uint64
	Size     int
	RobIndex int
}

// StoreBuffer is a small FIFO of pending stores awaiting their owning
// ROB entry's retirement.
type StoreBuffer struct {
	entries []StoreBufferEntry
}

// NewStoreBuffer creates a store buffer with capacity m.
func NewStoreBuffer(m int) *StoreBuffer {
	return &StoreBuffer{entries: make([]StoreBufferEntry, 0, m)}
}

// Push records a pending store for the given ROB index. Fails if the
// buffer is at capacity.
func (s *StoreBuffer) Push(addr, data uint64, size, robIndex int) bool {
	if len(s.entries) == cap(s.entries) {
		return false
	}
	s.entries = append(s.entries, StoreBufferEntry{
		Valid: true, Address: addr, Data: data, Size: size, RobIndex: robIndex,
	})
	return true
}

// TakeByRobIndex removes and returns the entry for the given ROB index,
// called at commit time.
func (s *StoreBuffer) TakeByRobIndex(robIndex int) (StoreBufferEntry, bool) {
	for i, e := range s.entries {
		if e.Valid && e.RobIndex == robIndex {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return e, true
		}
	}
	return StoreBufferEntry{}, false
}

// Empty reports whether any stores are pending.
func (s *StoreBuffer) Empty() bool { return len(s.entries) == 0 }
