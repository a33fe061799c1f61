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

package pool_test

import (
	"context"
	"net"
	"time"

	. "github.com/nabbar/carbon/config"
	. "github.com/nabbar/carbon/metric"
	. "github.com/nabbar/carbon/pool"
	"github.com/nabbar/carbon/queue"
	. "github.com/nabbar/carbon/resolver"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func mustListen() net.Listener {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).ToNot(HaveOccurred())
	return l
}

func tcpAddrOf(l net.Listener) net.Addr {
	return l.Addr()
}

var _ = Describe("Engine", func() {
	It("delivers a metric to the single resolved address", func() {
		l := mustListen()
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

		cfg := Default().WithWriteTimeout(time.Second)
		q := queue.New(10)
		q.Retain()

		src := Static(NewAddressSet(tcpAddrOf(l)))
		e := New(cfg, q, src, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go e.Run(ctx)

		Eventually(func() bool {
			return q.Enqueue(New("app.requests", 5, time.Unix(100, 0).UTC())) == false
		}, time.Second).Should(BeTrue())

		Eventually(received, 2*time.Second).Should(Receive(Equal("app.requests 5 100\n")))
	})

	It("drains the channel and terminates gracefully once producers release", func() {
		l := mustListen()
		defer l.Close()

		go func() {
			sc, err := l.Accept()
			if err != nil {
				return
			}
			defer sc.Close()
			buf := make([]byte, 4096)
			for {
				if _, err := sc.Read(buf); err != nil {
					return
				}
			}
		}()

		cfg := Default().WithWriteTimeout(time.Second)
		q := queue.New(10)
		q.Retain()

		src := Static(NewAddressSet(tcpAddrOf(l)))
		e := New(cfg, q, src, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		errCh := make(chan error, 1)
		go func() { errCh <- e.Run(ctx) }()

		q.Enqueue(New("a.b", 1, time.Unix(0, 0).UTC()))
		q.Enqueue(New("a.b", 2, time.Unix(1, 0).UTC()))
		q.Enqueue(New("a.b", 3, time.Unix(2, 0).UTC()))
		q.Release()

		Eventually(errCh, 3*time.Second).Should(Receive(BeNil()))
	})

	It("exposes its Prometheus registry", func() {
		l := mustListen()
		defer l.Close()
		l.Close() // nothing listens; connect attempts fail into Failed

		cfg := Default().WithReconnectDelayMinMax(5*time.Millisecond, 10*time.Millisecond)
		q := queue.New(10)
		q.Retain()

		src := Static(NewAddressSet(tcpAddrOf(l)))
		e := New(cfg, q, src, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go e.Run(ctx)

		Expect(e.Metrics()).ToNot(BeNil())
	})
})
