/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package carbon_test

import (
	"context"
	"net"
	"time"

	. "github.com/nabbar/carbon"
	. "github.com/nabbar/carbon/config"
	. "github.com/nabbar/carbon/resolver"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handle", func() {
	It("formats its debug string as Carbon(<buffered>/<capacity>)", func() {
		h, _ := New(Default().WithMaxMetricsBuffered(5))
		defer h.Close()

		Expect(h.String()).To(Equal("Carbon(0/5)"))
		h.AddValue("a.b", 1)
		Expect(h.String()).To(Equal("Carbon(1/5)"))
	})

	It("panics on a timestamp before the unix epoch", func() {
		h, _ := New(Default())
		defer h.Close()
		Expect(func() {
			h.AddValueAt("a.b", 1, time.Unix(-5, 0).UTC())
		}).To(Panic())
	})

	It("panics on a name containing whitespace", func() {
		h, _ := New(Default())
		defer h.Close()
		Expect(func() {
			h.AddValue("a b", 1)
		}).To(Panic())
	})

	It("shares the channel across Clone'd handles", func() {
		h, _ := New(Default().WithMaxMetricsBuffered(5))
		defer h.Close()

		clone := h.Clone()
		defer clone.Close()

		h.AddValue("a.b", 1)
		clone.AddValue("a.b", 2)

		Expect(h.String()).To(Equal("Carbon(2/5)"))
	})
})

var _ = Describe("Init", func() {
	It("ConnectTo spawns a pool engine delivering metrics end-to-end", func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		defer l.Close()

		received := make(chan string, 1)
		go func() {
			sc, err := l.Accept()
			if err != nil {
				return
			}
			defer sc.Close()
			buf := make([]byte, 1024)
			n, _ := sc.Read(buf)
			received <- string(buf[:n])
		}()

		h, i := New(Default().WithWriteTimeout(time.Second))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		src := Static(NewAddressSet(l.Addr()))
		_, err = i.ConnectTo(ctx, src, nil)
		Expect(err).ToNot(HaveOccurred())

		h.AddValueAt("app.requests", 5, time.Unix(100, 0).UTC())

		Eventually(received, 2*time.Second).Should(Receive(Equal("app.requests 5 100\n")))
		h.Close()
	})

	It("rejects an invalid config before spawning anything", func() {
		_, i := New(Default().WithWatermarks(0, 10))
		_, err := i.ConnectTo(context.Background(), Static(NewAddressSet()), nil)
		Expect(err).To(HaveOccurred())
	})
})
