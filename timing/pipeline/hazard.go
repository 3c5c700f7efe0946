package pipeline

// Scoreboard is the 6-stage pipeline's register busy-bit vector (spec
// §4.7): bit i is 1 iff some in-flight instruction with rd==i, i>0, has
// not yet retired. Issue stalls while either source operand's bit is
// set; there is no forwarding network, so a dependent instruction simply
// waits until the producer commits and clears its bit.
type Scoreboard struct {
	busy uint32
}

// Busy reports whether reg has an outstanding writer in flight. Register
// 0 is never busy: writes to it are always discarded.
func (s *Scoreboard) Busy(reg uint8) bool {
	if reg == 0 {
		return false
	}
	return s.busy&(1<<reg) != 0
}

// SetBusy marks reg as having an outstanding writer, called at Issue.
func (s *Scoreboard) SetBusy(reg uint8) {
	if reg == 0 {
		return
	}
	s.busy |= 1 << reg
}

// Clear marks reg as no longer having an outstanding writer, called at
// Commit once the owning instruction retires.
func (s *Scoreboard) Clear(reg uint8) {
	if reg == 0 {
		return
	}
	s.busy &^= 1 << reg
}

// AnyBusy reports whether the scoreboard has any outstanding writers.
func (s *Scoreboard) AnyBusy() bool { return s.busy != 0 }
