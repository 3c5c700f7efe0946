package insts_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/riscv-vp/insts"
)

func TestInsts(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Insts Suite")
}

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder(64)
	})

	Describe("OP-IMM", func() {
		// addi x5, x6, 100 -> 0x06430293
		It("decodes ADDI x5, x6, 100", func() {
			inst := decoder.Decode(0x06430293, 0x1000)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Class).To(Equal(insts.ClassBaseI))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(6)))
			Expect(inst.Imm).To(Equal(int64(100)))
			Expect(inst.Compressed).To(BeFalse())
		})

		// addi x0, x0, -1 -> imm=-1 sign-extends to all-ones.
		It("sign-extends a negative immediate", func() {
			inst := decoder.Decode(0xFFF00013, 0x1000)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Imm).To(Equal(int64(-1)))
		})
	})

	Describe("OP (register-register)", func() {
		// add x3, x1, x2 -> 0x002081B3
		It("decodes ADD x3, x1, x2", func() {
			inst := decoder.Decode(0x002081B3, 0x2000)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
		})

		// sub x3, x1, x2 -> 0x402081B3 (funct7=0x20 distinguishes from ADD)
		It("decodes SUB x3, x1, x2", func() {
			inst := decoder.Decode(0x402081B3, 0x2000)

			Expect(inst.Op).To(Equal(insts.OpSUB))
			Expect(inst.Rd).To(Equal(uint8(3)))
		})

		// mul x3, x1, x2 -> 0x022081B3 (funct7=0x01 routes OP into MULDIV)
		It("decodes MUL x3, x1, x2 as ClassMuldiv", func() {
			inst := decoder.Decode(0x022081B3, 0x2000)

			Expect(inst.Op).To(Equal(insts.OpMUL))
			Expect(inst.Class).To(Equal(insts.ClassMuldiv))
		})
	})

	Describe("loads and stores", func() {
		// lw x7, 8(x8) -> 0x00842383
		It("decodes LW x7, 8(x8)", func() {
			inst := decoder.Decode(0x00842383, 0x3000)

			Expect(inst.Op).To(Equal(insts.OpLW))
			Expect(inst.Rd).To(Equal(uint8(7)))
			Expect(inst.Rs1).To(Equal(uint8(8)))
			Expect(inst.Imm).To(Equal(int64(8)))
		})

		// sw x9, 12(x10) -> 0x00952623
		It("decodes SW x9, 12(x10) with Rd forced to zero", func() {
			inst := decoder.Decode(0x00952623, 0x3000)

			Expect(inst.Op).To(Equal(insts.OpSW))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Rs2).To(Equal(uint8(9)))
			Expect(inst.Imm).To(Equal(int64(12)))
			Expect(inst.Rd).To(Equal(uint8(0)))
		})
	})

	Describe("control flow", func() {
		// bne x5, x6, 16 -> 0x00629863
		It("decodes BNE x5, x6, 16", func() {
			inst := decoder.Decode(0x00629863, 0x4000)

			Expect(inst.Op).To(Equal(insts.OpBNE))
			Expect(inst.Rs1).To(Equal(uint8(5)))
			Expect(inst.Rs2).To(Equal(uint8(6)))
			Expect(inst.Imm).To(Equal(int64(16)))
		})

		// jal x1, 256 -> 0x100000EF
		It("decodes JAL x1, 256", func() {
			inst := decoder.Decode(0x100000EF, 0x5000)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(int64(256)))
		})

		// jalr x1, 4(x5) -> 0x004280E7
		It("decodes JALR x1, 4(x5)", func() {
			inst := decoder.Decode(0x004280E7, 0x5000)

			Expect(inst.Op).To(Equal(insts.OpJALR))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(5)))
			Expect(inst.Imm).To(Equal(int64(4)))
		})
	})

	Describe("upper immediate", func() {
		// lui x10, 0x12345 -> 0x12345537
		It("decodes LUI x10, 0x12345", func() {
			inst := decoder.Decode(0x12345537, 0x6000)

			Expect(inst.Op).To(Equal(insts.OpLUI))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Imm).To(Equal(int64(0x12345000)))
		})
	})

	Describe("system", func() {
		It("decodes ECALL", func() {
			inst := decoder.Decode(0x00000073, 0x7000)

			Expect(inst.Op).To(Equal(insts.OpECALL))
			Expect(inst.Class).To(Equal(insts.ClassSystem))
		})

		It("decodes EBREAK", func() {
			inst := decoder.Decode(0x00100073, 0x7000)

			Expect(inst.Op).To(Equal(insts.OpEBREAK))
		})

		// csrrw x5, 0x300, x6 -> 0x300312F3
		It("decodes CSRRW x5, mstatus, x6", func() {
			inst := decoder.Decode(0x300312F3, 0x7000)

			Expect(inst.Op).To(Equal(insts.OpCSRRW))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(6)))
			Expect(inst.Csr).To(Equal(uint16(0x300)))
		})
	})

	Describe("atomics", func() {
		// lr.w x5, (x6) -> 0x100322AF
		It("decodes LR.W x5, (x6) as ClassAtomic", func() {
			inst := decoder.Decode(0x100322AF, 0x8000)

			Expect(inst.Op).To(Equal(insts.OpLRW))
			Expect(inst.Class).To(Equal(insts.ClassAtomic))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(6)))
		})
	})

	Describe("compressed instructions", func() {
		// c.addi x5, 5 -> 0x0295
		It("decodes C.ADDI x5, 5 as a 16-bit ADDI", func() {
			inst := decoder.Decode(0x0295, 0x9000)

			Expect(inst.Compressed).To(BeTrue())
			Expect(inst.Class).To(Equal(insts.ClassCompressed))
			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(5)))
			Expect(inst.Imm).To(Equal(int64(5)))
		})

		// c.li x5, 10 -> 0x42A9
		It("decodes C.LI x5, 10", func() {
			inst := decoder.Decode(0x42A9, 0x9000)

			Expect(inst.Compressed).To(BeTrue())
			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(0)))
			Expect(inst.Imm).To(Equal(int64(10)))
		})

		It("treats the all-zero word as illegal", func() {
			inst := decoder.Decode(0x0000, 0x9000)

			Expect(inst.Class).To(Equal(insts.ClassUnknown))
		})
	})

	Describe("RV32 vs RV64 gating", func() {
		It("rejects ADDIW under a 32-bit decoder", func() {
			d32 := insts.NewDecoder(32)
			// addiw x5, x6, 1 -> opcode 0x1B, same bit layout as ADDI.
			inst := d32.Decode(0x0013029B, 0x1000)

			Expect(inst.Class).To(Equal(insts.ClassUnknown))
		})

		It("accepts ADDIW under a 64-bit decoder", func() {
			inst := decoder.Decode(0x0013029B, 0x1000)

			Expect(inst.Op).To(Equal(insts.OpADDIW))
		})
	})
})
