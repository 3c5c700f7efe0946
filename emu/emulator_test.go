package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/riscv-vp/bus"
	"github.com/sarchlab/riscv-vp/emu"
)

// encode packs little-endian 32-bit words into bytes, the shape
// Memory.LoadImage expects.
func encode(words ...uint32) []byte {
	b := make([]byte, 0, 4*len(words))
	for _, w := range words {
		b = append(b, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return b
}

func newEmulatorWithImage(words ...uint32) (*emu.Emulator, *emu.Memory) {
	mem := emu.NewMemory(bus.MemoryBase, emu.DefaultMemorySize)
	fabric := bus.NewFabric(mem)
	mem.AttachFabric(fabric)

	mem.LoadImage(bus.MemoryBase, encode(words...))

	e := emu.NewEmulator(fabric, emu.WithEntryPoint(bus.MemoryBase))
	return e, mem
}

var _ = Describe("Emulator (Simple-LT)", func() {
	It("runs addi/addi/ecall to a normal halt with the exit-syscall code", func() {
		e, _ := newEmulatorWithImage(
			0x02A00513, // addi x10, x0, 42
			0x05D00893, // addi x17, x0, 93
			0x00000073, // ecall
		)

		exitCode, err := e.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(exitCode).To(Equal(uint64(42)))
		Expect(e.RegFile().ReadReg(10)).To(Equal(uint64(42)))
	})

	It("takes an always-true branch back to its own address", func() {
		e, _ := newEmulatorWithImage(
			0x00000063, // beq x0, x0, 0 (infinite self-loop)
		)

		for i := 0; i < 1000; i++ {
			result := e.Step()
			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Halted).To(BeFalse())
		}
		Expect(e.RegFile().PC).To(Equal(uint64(bus.MemoryBase)))
	})

	It("stores a word and loads it back before halting", func() {
		e, _ := newEmulatorWithImage(
			0x0FF00513, // addi x10, x0, 255
			0x10002337, // lui x6, 0x10002 (x6 = bus.MemoryBase+0x2000)
			0x00A32023, // sw x10, 0(x6)
			0x00032583, // lw x11, 0(x6)
			0x05D00893, // addi x17, x0, 93
			0x00000073, // ecall
		)
		exitCode, err := e.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(exitCode).To(Equal(uint64(255)))
		Expect(e.RegFile().ReadReg(11)).To(Equal(uint64(255)))
	})

	It("stops the emulator when the instruction cap is reached", func() {
		mem := emu.NewMemory(bus.MemoryBase, emu.DefaultMemorySize)
		fabric := bus.NewFabric(mem)
		mem.AttachFabric(fabric)
		mem.LoadImage(bus.MemoryBase, encode(0x00000063)) // beq x0,x0,0

		e := emu.NewEmulator(fabric, emu.WithEntryPoint(bus.MemoryBase), emu.WithMaxInstructions(5))

		Expect(e.RunCycles(100)).To(BeFalse())
		Expect(e.Err()).To(HaveOccurred())
		Expect(e.InstructionCount()).To(Equal(uint64(5)))
	})

	It("reports a 32-bit register file when constructed with WithXLEN(32)", func() {
		e, _ := newEmulatorWithImage(0x00000013) // addi x0, x0, 0 (nop)
		_ = e

		e2 := emu.NewEmulator(bus.NewFabric(emu.NewMemory(bus.MemoryBase, 4096)), emu.WithXLEN(32))
		Expect(e2.RegFile().XLEN).To(Equal(32))
	})
})
