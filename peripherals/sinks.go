package peripherals

import (
	"io"

	"github.com/sarchlab/riscv-vp/bus"
)

// ByteSink is a write-only single-register device (spec §4.9, C10): every
// write's low byte is forwarded to an io.Writer, and reads return 0.
// Trace and UART are both instances of this shape, differing only in the
// stream they're bound to.
type ByteSink struct {
	w io.Writer
}

// NewByteSink creates a byte sink writing to w.
func NewByteSink(w io.Writer) *ByteSink {
	return &ByteSink{w: w}
}

// SetWriter redirects subsequent writes to w, for wiring TRACE_STDOUT
// after construction.
func (s *ByteSink) SetWriter(w io.Writer) { s.w = w }

// Transport implements bus.Target.
func (s *ByteSink) Transport(tx *bus.Transaction) int64 {
	if tx.Cmd == bus.CmdWrite && len(tx.Data) > 0 {
		s.w.Write(tx.Data[:1])
	}
	tx.Status = bus.StatusOK
	return 0
}

// WriteByte implements emu.TraceSink, letting a ByteSink double as the
// sink for ECALL "write" bytes as well as its memory-mapped register.
func (s *ByteSink) WriteByte(b byte) {
	s.w.Write([]byte{b})
}

// syscallHookOff are the four word offsets the syscall hook records
// (spec §6.2: syscall_num +0, arg +4, char +8, status +C).
const (
	syscallHookNumberOff = 0x0
	syscallHookArgOff    = 0x4
	syscallHookCharOff   = 0x8
	syscallHookStatusOff = 0xC
)

// SyscallHook is the syscall-hook register block (C10): writes to offset
// 0/4/8/C record the last syscall number, argument, output character, and
// status word seen, for a debugger or test harness to poll.
type SyscallHook struct {
	sink                io.Writer
	number, arg, status uint32
	lastChar            byte
}

// NewSyscallHook creates a syscall hook that forwards offset-8 character
// writes to sink.
func NewSyscallHook(sink io.Writer) *SyscallHook {
	return &SyscallHook{sink: sink}
}

// Number returns the last value written to offset 0.
func (h *SyscallHook) Number() uint32 { return h.number }

// Arg returns the last value written to offset 4.
func (h *SyscallHook) Arg() uint32 { return h.arg }

// LastChar returns the last value written to offset 8.
func (h *SyscallHook) LastChar() byte { return h.lastChar }

// Status returns the last value written to offset 0xC.
func (h *SyscallHook) Status() uint32 { return h.status }

// Transport implements bus.Target.
func (h *SyscallHook) Transport(tx *bus.Transaction) int64 {
	if tx.Cmd != bus.CmdWrite {
		tx.Status = bus.StatusOK
		return 0
	}
	switch tx.Addr {
	case syscallHookNumberOff:
		h.number = bytesToWord32(tx.Data)
	case syscallHookArgOff:
		h.arg = bytesToWord32(tx.Data)
	case syscallHookCharOff:
		if len(tx.Data) > 0 {
			h.lastChar = tx.Data[0]
			h.sink.Write(tx.Data[:1])
		}
	case syscallHookStatusOff:
		h.status = bytesToWord32(tx.Data)
	}
	tx.Status = bus.StatusOK
	return 0
}
