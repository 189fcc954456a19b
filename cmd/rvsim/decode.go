package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
)

// Decode implements subcommands.Command for the "decode" command.
type Decode struct {
	image   string
	verbose bool
}

// Name implements subcommands.Command.Name.
func (*Decode) Name() string {
	return "decode"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Decode) Synopsis() string {
	return "decode instruction words or the executable segments of an image"
}

// Usage implements subcommands.Command.Usage.
func (*Decode) Usage() string {
	return `decode [flags] <word>... | -image <path> - print decoded instructions.

Words are hexadecimal, with or without a 0x prefix.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *Decode) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.image, "image", "", "disassemble the executable segments of this ELF or HEX image")
	f.BoolVar(&d.verbose, "v", false, "print every decoded field")
}

// Execute implements subcommands.Command.Execute.
func (d *Decode) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	_, logger := env(args)

	if d.image != "" {
		prog, err := loader.Load(d.image)
		if err != nil {
			logger.WithError(err).Error("failed to load image")
			return subcommands.ExitFailure
		}
		d.disassemble(os.Stdout, prog)
		return subcommands.ExitSuccess
	}

	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	decoder := insts.NewDecoder()
	for _, arg := range f.Args() {
		word, err := parseWord(arg)
		if err != nil {
			logger.WithError(err).Error("bad instruction word")
			return subcommands.ExitUsageError
		}
		d.print(os.Stdout, 0, false, decoder.Decode(word))
	}

	return subcommands.ExitSuccess
}

func (d *Decode) disassemble(w io.Writer, prog *loader.Program) {
	decoder := insts.NewDecoder()

	for _, seg := range prog.Segments {
		if seg.Flags&loader.SegmentFlagExecute == 0 {
			continue
		}
		for off := 0; off+4 <= len(seg.Data); off += 4 {
			word := binary.LittleEndian.Uint32(seg.Data[off:])
			d.print(w, seg.Addr+uint32(off), true, decoder.Decode(word))
		}
	}
}

func (d *Decode) print(w io.Writer, addr uint32, withAddr bool, inst *insts.Instruction) {
	if withAddr {
		_, _ = fmt.Fprintf(w, "%08x:  ", addr)
	}
	_, _ = fmt.Fprintf(w, "%08x  %s\n", inst.Raw, inst)

	if d.verbose && inst.Op != insts.OpUnknown {
		_, _ = fmt.Fprintf(w, "    %s\n", fields(inst))
	}
}

// fields renders the operand fields of a decoded instruction.
func fields(inst *insts.Instruction) string {
	parts := []string{
		"op=" + inst.Op.String(),
		"format=" + inst.Format.String(),
		fmt.Sprintf("rd=%d", inst.Rd),
		fmt.Sprintf("rs1=%d", inst.Rs1),
		fmt.Sprintf("rs2=%d", inst.Rs2),
		fmt.Sprintf("imm=0x%08x", inst.Imm),
	}

	switch {
	case inst.Op >= insts.OpCSRRW && inst.Op <= insts.OpCSRRCI:
		parts = append(parts, fmt.Sprintf("csr=0x%03x", inst.CSR))
	case inst.Format == insts.FormatAtomic:
		parts = append(parts, fmt.Sprintf("aq=%t", inst.Aq), fmt.Sprintf("rl=%t", inst.Rl))
	}

	return strings.Join(parts, " ")
}

func parseWord(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	s = strings.ReplaceAll(s, "_", "")

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return uint32(v), nil
}
