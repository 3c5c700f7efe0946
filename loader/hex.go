// Package loader provides Intel HEX image loading for RISC-V firmware
// images.
package loader

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// recordType is the Intel HEX record type field (the low byte after the
// byte count and address fields).
type recordType byte

const (
	recData                  recordType = 0x00
	recEndOfFile              recordType = 0x01
	recExtendedSegmentAddress recordType = 0x02
	recStartSegmentAddress    recordType = 0x03
	recExtendedLinearAddress  recordType = 0x04
	recStartLinearAddress     recordType = 0x05
)

// Segment is one contiguous run of bytes destined for a fixed load
// address, as produced by a single HEX data record (or a run of them at
// contiguous addresses).
type Segment struct {
	Addr uint64
	Data []byte
}

// Program is a loaded HEX image ready to be copied into memory.
type Program struct {
	// EntryPoint is the address extracted from a Start Linear/Segment
	// Address record, if the file contained one. Callers that already
	// know the entry point (e.g. from a fixed reset vector) may ignore
	// this and use HasEntryPoint to decide.
	EntryPoint    uint64
	HasEntryPoint bool

	Segments []Segment
}

// Load reads an Intel HEX file and returns the decoded image. It
// understands record types 00 (data), 01 (end of file), 02 (extended
// segment address), 03 (start segment address), 04 (extended linear
// address), and 05 (start linear address); any other record type is an
// error.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening hex image: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// Decode parses Intel HEX records from r.
func Decode(r io.Reader) (*Program, error) {
	prog := &Program{}
	scanner := bufio.NewScanner(r)

	var upperBase uint64 // set by records 02/04, added to a data record's 16-bit address
	var pendingAddr uint64
	var pendingData []byte
	lineNo := 0
	done := false

	flush := func() {
		if len(pendingData) > 0 {
			prog.Segments = append(prog.Segments, Segment{Addr: pendingAddr, Data: pendingData})
			pendingData = nil
		}
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		if done {
			break
		}

		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("hex image line %d: %w", lineNo, err)
		}

		switch rec.typ {
		case recData:
			addr := upperBase + uint64(rec.addr)
			if len(pendingData) > 0 && addr == pendingAddr+uint64(len(pendingData)) {
				pendingData = append(pendingData, rec.data...)
			} else {
				flush()
				pendingAddr = addr
				pendingData = append([]byte(nil), rec.data...)
			}

		case recEndOfFile:
			done = true

		case recExtendedSegmentAddress:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("hex image line %d: bad extended segment address length", lineNo)
			}
			upperBase = (uint64(rec.data[0])<<8 | uint64(rec.data[1])) << 4

		case recExtendedLinearAddress:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("hex image line %d: bad extended linear address length", lineNo)
			}
			upperBase = (uint64(rec.data[0])<<8 | uint64(rec.data[1])) << 16

		case recStartSegmentAddress:
			if len(rec.data) != 4 {
				return nil, fmt.Errorf("hex image line %d: bad start segment address length", lineNo)
			}
			prog.EntryPoint = beU32(rec.data)
			prog.HasEntryPoint = true

		case recStartLinearAddress:
			if len(rec.data) != 4 {
				return nil, fmt.Errorf("hex image line %d: bad start linear address length", lineNo)
			}
			prog.EntryPoint = beU32(rec.data)
			prog.HasEntryPoint = true

		default:
			return nil, fmt.Errorf("hex image line %d: unsupported record type 0x%02x", lineNo, rec.typ)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading hex image: %w", err)
	}

	flush()
	return prog, nil
}

type hexRecord struct {
	typ  recordType
	addr uint16
	data []byte
}

func parseLine(line string) (hexRecord, error) {
	if line[0] != ':' {
		return hexRecord{}, fmt.Errorf("missing leading ':'")
	}
	body, err := hex.DecodeString(line[1:])
	if err != nil {
		return hexRecord{}, fmt.Errorf("invalid hex digits: %w", err)
	}
	if len(body) < 5 {
		return hexRecord{}, fmt.Errorf("record too short")
	}

	count := int(body[0])
	if len(body) != count+5 {
		return hexRecord{}, fmt.Errorf("byte count %d does not match record length %d", count, len(body)-5)
	}

	sum := byte(0)
	for _, b := range body {
		sum += b
	}
	if sum != 0 {
		return hexRecord{}, fmt.Errorf("checksum mismatch")
	}

	return hexRecord{
		typ:  recordType(body[3]),
		addr: uint16(body[1])<<8 | uint16(body[2]),
		data: body[4 : 4+count],
	}, nil
}

func beU32(b []byte) uint64 {
	return uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3])
}
