package uart_test

import (
	"bytes"
	"context"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/uart"
)

var _ = Describe("UART", func() {
	var (
		out *bytes.Buffer
		u   *uart.UART
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		u = uart.New(out)
	})

	dataReady := func() bool {
		return u.Read(uart.RegLSR)&uart.LSRDataReady != 0
	}

	It("should report an empty transmitter and no data at reset", func() {
		Expect(u.Read(uart.RegLSR)).To(Equal(uint8(uart.LSRTHREmpty)))
		Expect(u.HasInterrupt()).To(BeFalse())
	})

	It("should print bytes written to THR", func() {
		for _, c := range []byte("hi\n") {
			u.Write(uart.RegRHRTHR, c)
		}
		Expect(out.String()).To(Equal("hi\n"))
	})

	It("should keep LSR read-only and other registers writable", func() {
		u.Write(uart.RegLSR, 0)
		u.Write(3, 0x03)
		Expect(u.Read(uart.RegLSR)).To(Equal(uint8(uart.LSRTHREmpty)))
		Expect(u.Read(3)).To(Equal(uint8(0x03)))
	})

	It("should deliver input one byte at a time", func(ctx SpecContext) {
		done := make(chan error, 1)
		go func() { done <- u.Start(ctx, strings.NewReader("ok")) }()

		Eventually(dataReady).Should(BeTrue())
		Expect(u.HasInterrupt()).To(BeTrue())
		Expect(u.HasInterrupt()).To(BeFalse())
		Consistently(func() uint8 {
			return u.Read(uart.RegLSR) & uart.LSRDataReady
		}, "50ms").Should(Equal(uint8(uart.LSRDataReady)))

		Expect(u.Read(uart.RegRHRTHR)).To(Equal(uint8('o')))
		Eventually(dataReady).Should(BeTrue())
		Expect(u.Read(uart.RegRHRTHR)).To(Equal(uint8('k')))
		Expect(dataReady()).To(BeFalse())

		Eventually(done).Should(Receive(BeNil()))
	}, SpecTimeout(5e9))

	It("should return when cancelled while the receiver is full", func() {
		ctx, cancel := context.WithCancel(context.Background())
		pr, pw := io.Pipe()
		done := make(chan error, 1)
		go func() { done <- u.Start(ctx, pr) }()

		go func() { _, _ = pw.Write([]byte("ab")) }()
		Eventually(dataReady).Should(BeTrue())

		cancel()
		Eventually(done).Should(Receive(BeNil()))
		_ = pw.Close()
	})
})
