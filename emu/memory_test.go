package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/riscv-vp/bus"
	"github.com/sarchlab/riscv-vp/emu"
)

var _ = Describe("Memory", func() {
	var mem *emu.Memory

	BeforeEach(func() {
		mem = emu.NewMemory(bus.MemoryBase, 4096)
	})

	It("writes and reads back a word", func() {
		wtx := &bus.Transaction{Cmd: bus.CmdWrite, Addr: bus.MemoryBase + 0x10, Data: []byte{1, 2, 3, 4}, Len: 4}
		mem.Transport(wtx)
		Expect(wtx.Status).To(Equal(bus.StatusOK))

		rtx := &bus.Transaction{Cmd: bus.CmdRead, Addr: bus.MemoryBase + 0x10, Data: make([]byte, 4), Len: 4}
		mem.Transport(rtx)

		Expect(rtx.Status).To(Equal(bus.StatusOK))
		Expect(rtx.Data).To(Equal([]byte{1, 2, 3, 4}))
	})

	It("rejects a burst size above 8 bytes", func() {
		tx := &bus.Transaction{Cmd: bus.CmdRead, Addr: bus.MemoryBase, Data: make([]byte, 16), Len: 16}
		mem.Transport(tx)

		Expect(tx.Status).To(Equal(bus.StatusBurstError))
	})

	It("rejects a non-power-of-two burst size", func() {
		tx := &bus.Transaction{Cmd: bus.CmdRead, Addr: bus.MemoryBase, Data: make([]byte, 3), Len: 3}
		mem.Transport(tx)

		Expect(tx.Status).To(Equal(bus.StatusBurstError))
	})

	It("rejects an access below the backing window's base", func() {
		tx := &bus.Transaction{Cmd: bus.CmdRead, Addr: bus.MemoryBase - 4, Data: make([]byte, 4), Len: 4}
		mem.Transport(tx)

		Expect(tx.Status).To(Equal(bus.StatusAddressError))
	})

	It("grows the backing array when an image loads past the initial window", func() {
		mem.LoadImage(bus.MemoryBase+8192, []byte{0xAB})

		tx := &bus.Transaction{Cmd: bus.CmdRead, Addr: bus.MemoryBase + 8192, Data: make([]byte, 1), Len: 1}
		mem.Transport(tx)

		Expect(tx.Status).To(Equal(bus.StatusOK))
		Expect(tx.Data[0]).To(Equal(byte(0xAB)))
	})

	It("grants a DMI descriptor covering the whole window unless disabled", func() {
		desc := mem.GetDMI(bus.MemoryBase)
		Expect(desc.Valid).To(BeTrue())
		Expect(desc.Start).To(Equal(uint64(bus.MemoryBase)))

		mem.DisableDMI()
		desc = mem.GetDMI(bus.MemoryBase)
		Expect(desc.Valid).To(BeFalse())
	})

	It("broadcasts invalidation through the attached fabric when a granted DMI region is written", func() {
		fabric := bus.NewFabric(mem)
		mem.AttachFabric(fabric)

		var invalidated bool
		fabric.RegisterDMIListener(dmiListenerFunc(func(start, end uint64) { invalidated = true }))

		desc := mem.GetDMI(bus.MemoryBase)
		Expect(desc.Valid).To(BeTrue())

		wtx := &bus.Transaction{Cmd: bus.CmdWrite, Addr: bus.MemoryBase, Data: []byte{1}, Len: 1}
		mem.Transport(wtx)

		Expect(invalidated).To(BeTrue())
	})
})

type dmiListenerFunc func(start, end uint64)

func (f dmiListenerFunc) InvalidateDMI(start, end uint64) { f(start, end) }
