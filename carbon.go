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

// Package carbon is a client library for delivering Graphite/Carbon
// plain-text metrics over TCP to one or more backend hosts. Applications
// submit metrics through a cheap, fire-and-forget, thread-safe Handle; a
// background engine (spawned by Init.ConnectTo or Init.FromConnection)
// owns the TCP connections, DNS reconciliation, reconnection and
// backpressure described in the sub-packages.
package carbon

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/nabbar/carbon/config"
	"github.com/nabbar/carbon/logger"
	"github.com/nabbar/carbon/metric"
	"github.com/nabbar/carbon/pool"
	"github.com/nabbar/carbon/queue"
	"github.com/nabbar/carbon/resolver"
	"github.com/nabbar/carbon/single"
)

// Handle is the cloneable, thread-safe front end producers use to submit
// metrics. It never blocks and never returns an error for a routine
// overload; the only failure modes it exposes are programmer-error
// panics (§4.5 of the design: a bad timestamp or a name containing
// whitespace).
type Handle interface {
	// AddValue enqueues (name, value) stamped with the current time,
	// equivalent to AddValueAt(name, value, time.Now()).
	AddValue(name string, value float64)
	// AddValueAt enqueues (name, value) stamped with at. Panics if at
	// predates the Unix epoch or if name contains whitespace.
	AddValueAt(name string, value float64, at time.Time)
	// String renders "Carbon(<buffered>/<capacity>)" for debugging.
	String() string
	// Clone returns a new Handle sharing the same channel and config,
	// retaining an additional sender reference.
	Clone() Handle
	// Close releases this handle's sender reference.
	Close()
}

// Init spawns the background engine that actually owns the network
// connections; it is returned separately from Handle because only one
// goroutine is expected to call one of its two methods, exactly once.
type Init interface {
	// ConnectTo spawns the pool engine against an address-set source,
	// reconciling DNS changes and reconnecting with jitter until ctx is
	// cancelled or every producer handle is released and drained.
	ConnectTo(ctx context.Context, src resolver.Source, log logger.Logger) (*pool.Engine, error)
	// FromConnection spawns the single-connection runner against an
	// already-dialed socket, the degenerate non-pooled variant.
	FromConnection(ctx context.Context, sock net.Conn, log logger.Logger) error
}

type handle struct {
	q   *queue.Queue
	cfg config.Config
}

type initializer struct {
	q   *queue.Queue
	cfg config.Config
}

// New builds a Handle/Init pair sharing one bounded channel and cfg. The
// returned handle retains one sender reference; call Close when done with
// it (or Clone to share further).
func New(cfg config.Config) (Handle, Init) {
	q := queue.New(cfg.MaxMetricsBuffered)
	q.Retain()

	h := &handle{q: q, cfg: cfg}
	i := &initializer{q: q, cfg: cfg}
	return h, i
}

func (h *handle) AddValue(name string, value float64) {
	h.AddValueAt(name, value, time.Now())
}

func (h *handle) AddValueAt(name string, value float64, at time.Time) {
	m := metric.New(name, value, at)
	h.q.Enqueue(m)
}

func (h *handle) String() string {
	buffered, capacity := h.q.Stats()
	return fmt.Sprintf("Carbon(%d/%d)", buffered, capacity)
}

func (h *handle) Clone() Handle {
	h.q.Retain()
	return &handle{q: h.q, cfg: h.cfg}
}

func (h *handle) Close() {
	h.q.Release()
}

func (i *initializer) ConnectTo(ctx context.Context, src resolver.Source, log logger.Logger) (*pool.Engine, error) {
	if err := i.cfg.Validate(); err != nil {
		return nil, err
	}

	e := pool.New(i.cfg, i.q, src, log)
	go func() {
		_ = e.Run(ctx)
	}()
	return e, nil
}

func (i *initializer) FromConnection(ctx context.Context, sock net.Conn, log logger.Logger) error {
	if err := i.cfg.Validate(); err != nil {
		return err
	}

	r := single.New(sock, i.q, single.Options{
		WriteTimeout: i.cfg.WriteTimeout,
		Low:          i.cfg.Watermarks.Low,
		High:         i.cfg.Watermarks.High,
	}, log)

	go func() {
		_ = r.Run(ctx)
	}()
	return nil
}
