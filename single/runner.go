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

// Package single drives a single, already-connected carbon socket against
// a queue.Queue, the degenerate one-connection variant of the pool engine
// used when a caller already owns a dialed socket and does not need DNS
// reconciliation or reconnection.
package single

import (
	"context"
	"net"
	"time"

	"github.com/nabbar/carbon/conn"
	"github.com/nabbar/carbon/logger"
	"github.com/nabbar/carbon/queue"
)

// Options configures a Runner; it mirrors the watermark and write-timeout
// fields of the pool engine's Config without the reconnect/address fields
// that do not apply to a pre-supplied socket.
type Options struct {
	WriteTimeout time.Duration
	Low, High    int
	PollInterval time.Duration
}

// Runner drives one Connection built from a pre-dialed socket against a
// queue.Queue until the queue signals done and buffers drain, the peer
// sends unexpected bytes, or a write times out.
type Runner struct {
	c   *conn.Connection
	q   *queue.Queue
	opt Options
	log logger.Logger
}

// New wraps an already-connected socket for single.Run. sock must be
// connected; its remote address is kept only for logging.
func New(sock net.Conn, q *queue.Queue, opt Options, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	if opt.PollInterval <= 0 {
		opt.PollInterval = 10 * time.Millisecond
	}

	return &Runner{
		c:   conn.AdoptNormal(sock, opt.WriteTimeout),
		q:   q,
		opt: opt,
		log: log,
	}
}

// noRetryJitter is passed to Connection methods that require a retry-delay
// callback; a single-connection runner never reconnects; moving to Failed
// simply terminates the run.
func noRetryJitter() time.Duration { return 0 }

// Run drives the connection until completion, returning nil on a clean
// peer close with empty buffers, or an error for any protocol violation,
// read error, or write timeout.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opt.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.c.Close()
			return ctx.Err()
		case <-ticker.C:
		}

		for {
			m, ok, done := r.q.Dequeue()
			if !ok {
				if done && r.c.Outbound() == 0 {
					return nil
				}
				break
			}
			r.c.Append(m.Bytes())
		}

		if r.c.ProbeRead(noRetryJitter) {
			err := r.c.Err()
			r.log.WithError(err).Warn("single: peer sent unexpected bytes or closed, terminating")
			return err
		}

		r.c.Flush(r.opt.Low, r.opt.High, noRetryJitter)
		if st := r.c.State(); st != conn.Normal && st != conn.Crowded {
			err := r.c.Err()
			r.log.WithError(err).Warn("single: connection failed during flush")
			return err
		}
	}
}
