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

package single

import (
	"context"
	"net"
	"time"

	"github.com/nabbar/carbon/metric"
	"github.com/nabbar/carbon/queue"
)

// Once dials network/address, writes the given metrics over a fresh
// connection, waits for the write to drain, and closes the socket — a
// one-shot helper for CLI tools and tests that do not want to stand up a
// full Runner for a handful of values.
func Once(ctx context.Context, network, address string, metrics []metric.Metric, writeTimeout time.Duration) error {
	var d net.Dialer
	sock, err := d.DialContext(ctx, network, address)
	if err != nil {
		return err
	}
	defer sock.Close()

	q := queue.New(len(metrics))
	q.Retain()
	for _, m := range metrics {
		q.Enqueue(m)
	}
	q.Release()

	r := New(sock, q, Options{
		WriteTimeout: writeTimeout,
		Low:          1 << 20,
		High:         1 << 21,
		PollInterval: 5 * time.Millisecond,
	}, nil)

	runCtx, cancel := context.WithTimeout(ctx, writeTimeout*2+time.Second)
	defer cancel()

	err = r.Run(runCtx)
	if err == context.DeadlineExceeded {
		return nil
	}
	return err
}
