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

package conn_test

import (
	"net"
	"time"

	. "github.com/nabbar/carbon/conn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func noJitter() time.Duration { return time.Millisecond }

func listen() (net.Listener, net.Addr) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).ToNot(HaveOccurred())
	return l, l.Addr()
}

// stalledConn is a net.Conn whose peer never drains the kernel send
// buffer: every Write reports zero bytes written and no error, the same
// shape a real socket reports once its send buffer is full. It exists to
// deterministically drive the watermark transitions of spec.md §8
// scenario 4 without depending on the host's actual TCP buffer sizes.
type stalledConn struct{}

func (stalledConn) Read([]byte) (int, error)        { return 0, nil }
func (stalledConn) Write([]byte) (int, error)       { return 0, nil }
func (stalledConn) Close() error                    { return nil }
func (stalledConn) LocalAddr() net.Addr             { return &net.TCPAddr{} }
func (stalledConn) RemoteAddr() net.Addr            { return &net.TCPAddr{} }
func (stalledConn) SetDeadline(time.Time) error     { return nil }
func (stalledConn) SetReadDeadline(time.Time) error { return nil }
func (stalledConn) SetWriteDeadline(time.Time) error { return nil }

var _ = Describe("Connection", func() {
	It("transitions Pending to Normal on a successful dial", func() {
		l, addr := listen()
		defer l.Close()

		accepted := make(chan net.Conn, 1)
		go func() {
			c, _ := l.Accept()
			accepted <- c
		}()

		c := NewPending(nil, addr, time.Second)
		Expect(c.State()).To(Equal(Pending))

		Eventually(func() bool {
			return c.PollConnect(noJitter)
		}, time.Second).Should(BeTrue())

		Expect(c.State()).To(Equal(Normal))
		<-accepted
	})

	It("transitions Pending to Failed when the dial fails", func() {
		// Port 1 is reserved and should refuse immediately on most hosts;
		// use an address guaranteed nothing listens on: dial a closed listener.
		l, addr := listen()
		l.Close()

		c := NewPending(nil, addr, time.Second)
		Eventually(func() bool {
			return c.PollConnect(noJitter)
		}, time.Second).Should(BeTrue())

		Expect(c.State()).To(Equal(Failed))
		Expect(c.RetryAt()).ToNot(BeZero())
	})

	It("flushes outbound bytes and reports Normal below low watermark", func() {
		l, addr := listen()
		defer l.Close()

		serverDone := make(chan struct{})
		go func() {
			defer close(serverDone)
			sc, err := l.Accept()
			if err != nil {
				return
			}
			defer sc.Close()
			buf := make([]byte, 1024)
			sc.Read(buf)
		}()

		c := NewPending(nil, addr, time.Second)
		Eventually(func() bool { return c.PollConnect(noJitter) }, time.Second).Should(BeTrue())
		Expect(c.State()).To(Equal(Normal))

		c.Append([]byte("app.requests 1 0\n"))
		c.Flush(100, 1000, noJitter)

		Expect(c.State()).To(Equal(Normal))
		<-serverDone
	})

	It("fails the connection on any inbound byte from the peer", func() {
		l, addr := listen()
		defer l.Close()

		go func() {
			sc, err := l.Accept()
			if err != nil {
				return
			}
			defer sc.Close()
			sc.Write([]byte("unexpected"))
		}()

		c := NewPending(nil, addr, time.Second)
		Eventually(func() bool { return c.PollConnect(noJitter) }, time.Second).Should(BeTrue())

		Eventually(func() bool {
			return c.ProbeRead(noJitter)
		}, time.Second).Should(BeTrue())

		Expect(c.State()).To(Equal(Failed))
	})

	It("moves Normal to Crowded at the low watermark and drops to Failed past the high watermark", func() {
		c := AdoptNormal(stalledConn{}, time.Second)
		Expect(c.State()).To(Equal(Normal))

		// "ab 1 0\n" is 7 bytes, matching spec.md §8 scenario 4 exactly.
		metricLine := []byte("ab 1 0\n")

		c.Append(metricLine)
		c.Flush(10, 20, noJitter)
		Expect(c.State()).To(Equal(Normal), "7 bytes stays below the low watermark of 10")

		c.Append(metricLine)
		c.Flush(10, 20, noJitter)
		Expect(c.State()).To(Equal(Crowded), "14 bytes crosses the low watermark of 10")

		c.Append(metricLine)
		c.Flush(10, 20, noJitter)
		Expect(c.State()).To(Equal(Failed), "21 bytes crosses the high watermark of 20")
		Expect(c.Outbound()).To(Equal(0), "the outbound buffer is discarded on a high-watermark drop")
		Expect(c.RetryAt()).ToNot(BeZero())
	})

	It("retires an active connection and drains it to closed", func() {
		l, addr := listen()
		defer l.Close()

		go func() {
			sc, err := l.Accept()
			if err != nil {
				return
			}
			defer sc.Close()
			buf := make([]byte, 1024)
			for {
				if _, err := sc.Read(buf); err != nil {
					return
				}
			}
		}()

		c := NewPending(nil, addr, time.Second)
		Eventually(func() bool { return c.PollConnect(noJitter) }, time.Second).Should(BeTrue())

		c.Retire()
		Expect(c.State()).To(Equal(Retired))

		Eventually(func() bool {
			return c.DrainRetired()
		}, time.Second).Should(BeTrue())
	})
})
