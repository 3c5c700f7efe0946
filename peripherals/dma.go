package peripherals

import "github.com/sarchlab/riscv-vp/bus"

// Register offsets within the DMA window (spec §6.2).
const (
	dmaSrcOff     = 0x0
	dmaDstOff     = 0x4
	dmaLenOff     = 0x8
	dmaControlOff = 0xC
)

// dmaStartBit is control bit 0; writing it with the value 1 starts a
// transfer (spec §4.9).
const dmaStartBit = 1

// chunkSize is the largest single bus transfer the DMA engine issues per
// step. Main memory's Transport rejects transactions wider than 8 bytes
// (spec §4.2's burst-size limit), so a transfer is driven as a sequence of
// chunk reads covering the whole source buffer followed by a sequence of
// chunk writes covering the destination, rather than the single oversized
// read-then-write a literal reading of §4.9 suggests. Chunks start at the
// programmed src/dst and are not aligned.
const chunkSize = 8

// DMA is the programmed memory-to-memory copy engine (C9): four registers
// (src, dst, len, control) and a bus-master port used to read the source
// buffer and write it to the destination while the fabric's dma_in_flight
// flag holds the pipeline's IF stage in a stall.
type DMA struct {
	fabric *bus.Fabric

	src, dst, length, control uint32
}

// NewDMA creates a DMA engine that issues transfers through fabric.
func NewDMA(fabric *bus.Fabric) *DMA {
	return &DMA{fabric: fabric}
}

// Transport implements bus.Target for the DMA's register block.
func (d *DMA) Transport(tx *bus.Transaction) int64 {
	if tx.Len != 4 {
		tx.Status = bus.StatusBurstError
		return 0
	}

	switch tx.Addr {
	case dmaSrcOff:
		d.src = rwWord(tx, d.src)
	case dmaDstOff:
		d.dst = rwWord(tx, d.dst)
	case dmaLenOff:
		d.length = rwWord(tx, d.length)
	case dmaControlOff:
		if tx.Cmd == bus.CmdWrite {
			d.control = bytesToWord32(tx.Data)
			if d.control&dmaStartBit != 0 {
				d.run()
			}
		} else {
			putWord32(tx.Data, d.control)
		}
	default:
		tx.Status = bus.StatusAddressError
		return 0
	}

	tx.Status = bus.StatusOK
	return 0
}

func rwWord(tx *bus.Transaction, cur uint32) uint32 {
	if tx.Cmd == bus.CmdWrite {
		return bytesToWord32(tx.Data)
	}
	putWord32(tx.Data, cur)
	return cur
}

// run performs the programmed copy: a chunked bus read from src into a
// scratch buffer, then a chunked bus write of that buffer to dst. The
// fabric's dma_in_flight flag is held for the whole operation so the
// pipeline's IF stage stalls rather than interleaving fetches with the
// transfer (spec §4.1, §4.9).
func (d *DMA) run() {
	d.fabric.SetDMAInFlight(true)
	defer d.fabric.SetDMAInFlight(false)

	buf := make([]byte, d.length)
	if !d.transferChunks(bus.CmdRead, uint64(d.src), buf) {
		d.control &^= dmaStartBit
		return
	}
	if !d.transferChunks(bus.CmdWrite, uint64(d.dst), buf) {
		d.control &^= dmaStartBit
		return
	}
	d.control &^= dmaStartBit
}

// transferChunks issues a sequence of chunkSize-or-smaller bus
// transactions covering buf, stopping and returning false on the first
// non-OK response (spec §4.9: "any non-OK response aborts the transfer").
func (d *DMA) transferChunks(cmd bus.Cmd, addr uint64, buf []byte) bool {
	for off := 0; off < len(buf); {
		n := chunkLen(len(buf) - off)
		tx := &bus.Transaction{Cmd: cmd, Addr: addr + uint64(off), Data: buf[off : off+n], Len: n}
		d.fabric.Transport(tx)
		if tx.Status != bus.StatusOK {
			return false
		}
		off += n
	}
	return true
}

// chunkLen picks the largest power-of-two transfer size, capped at
// chunkSize, that does not exceed remaining. Main memory's Transport
// rejects non-power-of-two lengths, so a trailing remainder steps down
// through smaller powers of two (e.g. 7 bytes go as 4, then 2, then 1).
func chunkLen(remaining int) int {
	for n := chunkSize; n > 1; n >>= 1 {
		if remaining >= n {
			return n
		}
	}
	return 1
}
