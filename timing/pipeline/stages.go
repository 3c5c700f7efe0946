package pipeline

// pcgenStep computes the next fetch PC (spec §4.7 PCGen): adopt a pending
// redirect, hold while stalled, or advance by 4. The 6-stage pipeline
// does not special-case compressed instruction lengths; PCGen commits to
// a PC before the word it names has even been fetched.
func (p *Pipeline) pcgenStep() {
	switch {
	case p.redirectPending:
		p.pcgenNext = pcgenLatch{valid: true, pc: p.redirectTarget}
		p.redirectPending = false
	case p.stallFetch || p.stallIssue:
		p.pcgenNext = p.pcgenReg
	default:
		p.pcgenNext = pcgenLatch{valid: true, pc: p.pcgenReg.pc + 4}
	}
}

// ifStep fetches the instruction word named by the incoming PC latch,
// unless a DMA transfer holds the bus (spec §4.1, §4.7).
func (p *Pipeline) ifStep() {
	if p.flushUpstream {
		p.ifidNext = ifidLatch{}
		return
	}
	if p.stallIssue {
		p.ifidNext = p.ifidReg
		return
	}
	if p.fabric.DMAInFlight() {
		p.stallFetch = true
		p.stats.Stalls++
		p.ifidNext = p.ifidReg
		return
	}
	if !p.pcgenReg.valid {
		p.ifidNext = ifidLatch{}
		return
	}

	word, err := p.memIf.Read(p.pcgenReg.pc, 4)
	if err != nil {
		p.halted = true
		return
	}
	p.ifidNext = ifidLatch{valid: true, pc: p.pcgenReg.pc, word: uint32(word)}
}

// idStep decodes the fetched word. rd is left zero for store and branch
// formats by the base decoder itself, since those encodings carry no rd
// field.
func (p *Pipeline) idStep() {
	if p.flushUpstream {
		p.idisNext = idisLatch{}
		return
	}
	if p.stallIssue {
		p.idisNext = p.idisReg
		return
	}
	if !p.ifidReg.valid {
		p.idisNext = idisLatch{}
		return
	}
	inst := p.decoder.Decode(p.ifidReg.word, p.ifidReg.pc)
	p.idisNext = idisLatch{valid: true, pc: p.ifidReg.pc, inst: inst}
}

// isStep is the Issue stage (spec §4.7 IS): scoreboard hazard check,
// ROB-full check, ROB allocation, and scoreboard bit set.
func (p *Pipeline) isStep() {
	if p.flushUpstream {
		p.isexNext = isexLatch{}
		return
	}
	if !p.idisReg.valid {
		p.isexNext = isexLatch{}
		return
	}

	inst := p.idisReg.inst
	if p.scoreboard.Busy(inst.Rs1) || p.scoreboard.Busy(inst.Rs2) || p.rob.Full() {
		p.stallIssue = true
		p.stats.Stalls++
		p.isexNext = isexLatch{}
		return
	}

	isStore := p.lat.IsStoreOp(inst)
	isBranch := p.lat.IsBranchOp(inst)
	idx, ok := p.rob.Allocate(inst.PC, inst.Rd, isStore, isBranch)
	if !ok {
		p.stallIssue = true
		p.stats.Stalls++
		p.isexNext = isexLatch{}
		return
	}

	if inst.Rd != 0 {
		p.scoreboard.SetBusy(inst.Rd)
	}

	p.isexNext = isexLatch{
		valid:    true,
		pc:       inst.PC,
		inst:     inst,
		rs1Val:   p.regs.ReadReg(inst.Rs1),
		rs2Val:   p.regs.ReadReg(inst.Rs2),
		robIndex: idx,
	}
}

// exStep is the Execute stage (spec §4.7 EX): ALU/address/branch
// resolution, load reads performed directly against memory, stores
// queued into the store buffer, and branch redirects signaled for the
// next clock edge. Register, CSR, and store effects are deferred to
// Commit via the completed ROB entry.
func (p *Pipeline) exStep() {
	if !p.isexReg.valid {
		return
	}

	inst := p.isexReg.inst
	res := p.exec.Compute(inst)

	if extra := p.lat.GetLatency(inst) - 1; extra > 0 {
		p.stats.Cycles += extra
		p.stats.Stalls += extra
	}

	if res.IsStore {
		if !p.sb.Push(res.Addr, res.StoreData, res.StoreSize, p.isexReg.robIndex) {
			// Store buffer full: spec leaves this unmodeled at M≈8; treat as
			// a fatal condition rather than silently dropping the store.
			p.halted = true
			p.exitCode = 1
			return
		}
	}

	if res.IsBranch && res.BranchTaken {
		p.redirectPending = true
		p.redirectTarget = res.Target
		p.flushUpstream = true
		p.stats.Flushes++
	}

	var rdValue uint64
	if res.HasRd {
		rdValue = res.RdValue
	}
	p.rob.Complete(p.isexReg.robIndex, rdValue, res.Err != nil, res)
}

// commitStep is the Commit stage (spec §4.7): if the ROB head is ready,
// apply its store (if any) through the store buffer, write rd and clear
// its scoreboard bit, and retire. Exactly one instruction retires per
// cycle.
func (p *Pipeline) commitStep() {
	head, ok := p.rob.Head()
	if !ok || !head.Ready {
		return
	}

	if head.Exception {
		p.rob.Retire()
		p.halted = true
		p.exitCode = 1
		return
	}

	if head.IsStore {
		if entry, found := p.sb.TakeByRobIndex(p.rob.HeadIndex()); found {
			if err := p.exec.CommitStore(entry.Address, entry.Data, entry.Size); err != nil {
				p.rob.Retire()
				p.halted = true
				p.exitCode = 1
				return
			}
		}
	}

	if head.Res != nil {
		p.exec.CommitRegisterAndCSR(head.Res, p.trace)
		if head.Res.Halt {
			p.stats.Instructions++
			p.rob.Retire()
			p.halted = true
			p.exitCode = head.Res.ExitCode
			return
		}
	}

	if head.DestReg != 0 {
		p.scoreboard.Clear(head.DestReg)
	}

	p.stats.Instructions++
	p.rob.Retire()
}
