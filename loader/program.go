// Package loader reads RV32 program images (ELF or Intel HEX) into
// segments ready to be copied into guest memory.
package loader

import (
	"bufio"
	"fmt"
	"os"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// DefaultBase is where Intel HEX records without an extended address are
// placed: the base of DRAM.
const DefaultBase uint32 = 0x80000000

// Segment represents a loadable chunk of a program image.
type Segment struct {
	// Addr is the physical address where this segment should be loaded.
	Addr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program image.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments.
	Segments []Segment
}

// Target is the memory a program is copied into.
type Target interface {
	Load(addr uint32, data []byte) error
}

// LoadInto copies every segment into t, zero-filling up to MemSize.
func (p *Program) LoadInto(t Target) error {
	for _, seg := range p.Segments {
		data := seg.Data
		if seg.MemSize > uint32(len(data)) {
			data = make([]byte, seg.MemSize)
			copy(data, seg.Data)
		}

		if err := t.Load(seg.Addr, data); err != nil {
			return fmt.Errorf("failed to load segment at 0x%x: %w", seg.Addr, err)
		}
	}
	return nil
}

// Size returns the total in-memory size of all segments.
func (p *Program) Size() uint64 {
	var total uint64
	for _, seg := range p.Segments {
		total += uint64(max(seg.MemSize, uint32(len(seg.Data))))
	}
	return total
}

// Load reads an image file. ELF files are recognized by their magic
// number; anything starting with ':' is parsed as Intel HEX.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	head, _ := r.Peek(4)

	if len(head) > 0 && head[0] == ':' {
		prog, err := LoadHex(r, DefaultBase)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return prog, nil
	}

	return LoadELF(path)
}
