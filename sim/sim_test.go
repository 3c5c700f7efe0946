package sim_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/riscv-vp/bus"
	"github.com/sarchlab/riscv-vp/loader"
	"github.com/sarchlab/riscv-vp/sim"
)

func TestSim(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sim Suite")
}

// encode little-endian words into bytes, the shape loader.Segment.Data
// expects.
func encode(words ...uint32) []byte {
	b := make([]byte, 0, 4*len(words))
	for _, w := range words {
		b = append(b, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return b
}

// progBase is where the test programs are loaded: past the UART window
// that the simulator maps over the first 256 bytes at bus.MemoryBase.
const progBase = bus.MemoryBase + 0x1000

// exitProgram builds a loader.Program that loads addi x10,x0,42; addi
// x17,x0,93; ecall at progBase, which halts with exit code 42
// (x10, the RISC-V exit-syscall convention's a0) once the ecall retires.
func exitProgram() *loader.Program {
	return &loader.Program{
		EntryPoint:    progBase,
		HasEntryPoint: true,
		Segments: []loader.Segment{
			{Addr: progBase, Data: encode(
				0x02A00513, // addi x10, x0, 42
				0x05D00893, // addi x17, x0, 93
				0x00000073, // ecall
			)},
		},
	}
}

var _ = Describe("Simulator", func() {
	DescribeTable("runs the exit-syscall smoke program to completion on every CPU variant",
		func(variant sim.Variant) {
			vp, err := sim.New(sim.Config{Variant: variant})
			Expect(err).NotTo(HaveOccurred())

			vp.LoadProgram(exitProgram())
			exitCode, reason := vp.Run()

			Expect(reason).To(Equal(sim.StopHalted))
			Expect(exitCode).To(Equal(uint64(42)))
		},
		Entry("Simple-LT", sim.VariantSimpleLT),
		Entry("2-stage", sim.VariantTwoStage),
		Entry("6-stage", sim.VariantSixStage),
	)

	It("stops at the instruction cap without halting normally", func() {
		loop := &loader.Program{
			EntryPoint:    progBase,
			HasEntryPoint: true,
			Segments: []loader.Segment{
				{Addr: progBase, Data: encode(
					0x00000063, // beq x0, x0, 0 (always-taken zero-offset branch, infinite loop)
				)},
			},
		}

		vp, err := sim.New(sim.Config{Variant: sim.VariantSixStage, MaxInstructions: 50})
		Expect(err).NotTo(HaveOccurred())
		vp.LoadProgram(loop)

		_, reason := vp.Run()
		Expect(reason).To(Equal(sim.StopMaxInstructions))
	})

	It("routes DMA transfers through the bus and clears dma_in_flight once the copy returns", func() {
		vp, err := sim.New(sim.Config{Variant: sim.VariantSixStage})
		Expect(err).NotTo(HaveOccurred())

		mem := vp.Memory()
		src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		mem.LoadImage(bus.MemoryBase+0x100, src)

		tx := func(addr uint64, v uint32) {
			data := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
			b := &bus.Transaction{Cmd: bus.CmdWrite, Addr: addr, Data: data, Len: 4}
			vp.DMA().Transport(b)
		}
		tx(0x0, uint32(bus.MemoryBase+0x100))
		tx(0x4, uint32(bus.MemoryBase+0x200))
		tx(0x8, uint32(len(src)))
		tx(0xC, 1)

		Expect(vp.Fabric().DMAInFlight()).To(BeFalse())

		for i, want := range src {
			data := make([]byte, 1)
			readTx := &bus.Transaction{Cmd: bus.CmdRead, Addr: bus.MemoryBase + 0x200 + uint64(i), Data: data, Len: 1}
			vp.Fabric().Transport(readTx)
			Expect(readTx.Status).To(Equal(bus.StatusOK))
			Expect(data[0]).To(Equal(want))
		}
	})
})
