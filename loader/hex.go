package loader

import (
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"
)

// LoadHex parses an Intel HEX image. Segments whose address lies below base
// are relocated by base, so plain 16-bit record offsets land in DRAM. The
// entry point is the start linear address record if present, base
// otherwise.
func LoadHex(r io.Reader, base uint32) (*Program, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("failed to parse Intel HEX: %w", err)
	}

	prog := &Program{EntryPoint: base}
	if start, ok := mem.GetStartAddress(); ok {
		prog.EntryPoint = start
	}

	for _, seg := range mem.GetDataSegments() {
		addr := seg.Address
		if addr < base {
			addr += base
		}

		prog.Segments = append(prog.Segments, Segment{
			Addr:    addr,
			Data:    seg.Data,
			MemSize: uint32(len(seg.Data)),
			Flags:   SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		})
	}

	return prog, nil
}
