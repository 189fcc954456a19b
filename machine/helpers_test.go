package machine_test

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

const (
	nop  = 0x00000013 // addi x0, x0, 0
	spin = 0x0000006F // jal x0, 0
)

// writeToHost stores x1 to 0x80001000 and spins.
var writeToHost = []uint32{
	0x80001137, // lui x2, 0x80001
	0x00112023, // sw x1, 0(x2)
	spin,
}

func hexRecord(addr uint16, typ byte, data []byte) string {
	sum := byte(len(data)) + byte(addr>>8) + byte(addr) + typ
	for _, b := range data {
		sum += b
	}
	return fmt.Sprintf(":%02X%04X%02X%X%02X\n", len(data), addr, typ, data, ^sum+1)
}

// writeImage writes words as an Intel HEX image linked at 0x80000000.
func writeImage(dir, name string, words []uint32) string {
	image := make([]byte, 4*len(words))
	for i, word := range words {
		binary.LittleEndian.PutUint32(image[4*i:], word)
	}

	var sb strings.Builder
	sb.WriteString(hexRecord(0, 0x04, []byte{0x80, 0x00}))
	for off := 0; off < len(image); off += 16 {
		end := min(off+16, len(image))
		sb.WriteString(hexRecord(uint16(off), 0x00, image[off:end]))
	}
	sb.WriteString(hexRecord(0, 0x05, []byte{0x80, 0x00, 0x00, 0x00}))
	sb.WriteString(":00000001FF\n")

	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(sb.String()), 0644)).To(Succeed())
	return path
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
