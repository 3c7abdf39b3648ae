package lineproto_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"playerctld/internal/lineproto"
)

var _ = Describe("LineBuffer", func() {
	var b lineproto.LineBuffer

	BeforeEach(func() {
		b = lineproto.LineBuffer{}
	})

	It("splits on newline and strips a trailing CR", func() {
		b.Append([]byte("ping\nstatus\r\n"))

		var got []string
		Expect(b.Lines(func(line []byte) { got = append(got, string(line)) })).To(Succeed())
		Expect(got).To(Equal([]string{"ping", "status"}))
	})

	It("holds a partial line across calls", func() {
		b.Append([]byte("pin"))
		var got []string
		Expect(b.Lines(func(line []byte) { got = append(got, string(line)) })).To(Succeed())
		Expect(got).To(BeEmpty())

		b.Append([]byte("g\n"))
		Expect(b.Lines(func(line []byte) { got = append(got, string(line)) })).To(Succeed())
		Expect(got).To(Equal([]string{"ping"}))
	})

	It("compacts the unconsumed tail and restores room", func() {
		b.Append([]byte("one\ntwo"))

		var got []string
		Expect(b.Lines(func(line []byte) { got = append(got, string(line)) })).To(Succeed())
		Expect(got).To(Equal([]string{"one"}))
		Expect(b.Room()).To(Equal(lineproto.Capacity - len("two")))

		b.Append([]byte("\n"))
		got = nil
		Expect(b.Lines(func(line []byte) { got = append(got, string(line)) })).To(Succeed())
		Expect(got).To(Equal([]string{"two"}))
		Expect(b.Room()).To(Equal(lineproto.Capacity))
	})

	It("reports ErrLineTooLong when the buffer fills without a newline", func() {
		b.Append(bytes.Repeat([]byte("x"), lineproto.Capacity))
		err := b.Lines(func(line []byte) { Fail("no complete line should be found") })
		Expect(err).To(MatchError(lineproto.ErrLineTooLong))
	})

	It("does not overflow when a full buffer's last byte is the newline", func() {
		payload := append(bytes.Repeat([]byte("x"), lineproto.Capacity-1), '\n')
		b.Append(payload)

		var got int
		Expect(b.Lines(func(line []byte) { got = len(line) })).To(Succeed())
		Expect(got).To(Equal(lineproto.Capacity - 1))
	})

	It("shrinks Room as data accumulates", func() {
		Expect(b.Room()).To(Equal(lineproto.Capacity))
		b.Append([]byte("abc"))
		Expect(b.Room()).To(Equal(lineproto.Capacity - 3))
	})
})
