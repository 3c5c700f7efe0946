package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/riscv-vp/emu"
)

var _ = Describe("DeliverInterrupt", func() {
	It("sets mcause's interrupt bit at bit 31 for an RV32 register file", func() {
		regs := emu.NewRegFile(32)
		regs.CSR.MStatus = emu.MStatusMIE

		mtvec := emu.DeliverInterrupt(regs, emu.CauseMachineTimer, 0x1000)

		Expect(mtvec).To(Equal(uint64(0)))
		Expect(regs.CSR.MCause).To(Equal(uint64(1)<<31 | emu.CauseMachineTimer))
		Expect(regs.CSR.MEPC).To(Equal(uint64(0x1000)))
		Expect(regs.CSR.MStatus & emu.MStatusMIE).To(BeZero())
	})

	It("sets mcause's interrupt bit at bit 63 for an RV64 register file", func() {
		regs := emu.NewRegFile(64)

		emu.DeliverInterrupt(regs, emu.CauseMachineExternal, 0x2000)

		Expect(regs.CSR.MCause).To(Equal(uint64(1)<<63 | emu.CauseMachineExternal))
	})

	It("keeps mcause's interrupt bit on CSR readback under RV32 (I3: mcause stays nonzero in the sign bit)", func() {
		regs := emu.NewRegFile(32)

		emu.DeliverInterrupt(regs, emu.CauseMachineTimer, 0)

		val, ok := regs.CSR.Read(emu.CSRMCause)
		Expect(ok).To(BeTrue())
		Expect(regs.ReadReg(0)).To(Equal(uint64(0))) // sanity: x0 unaffected
		Expect(val & (1 << 31)).NotTo(BeZero())
	})
})
