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

// Package pool implements the connection-pool networking engine: the
// state machine that owns a dynamic set of TCP connections driven by a
// stream of resolved address sets, interleaving outbound flushes with
// reconnection timers and write-timeout deadlines.
package pool

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/nabbar/carbon/conn"
	"github.com/nabbar/carbon/config"
	liberr "github.com/nabbar/carbon/errors"
	"github.com/nabbar/carbon/logger"
	"github.com/nabbar/carbon/queue"
	"github.com/nabbar/carbon/resolver"
)

// farFuture stands in for "nothing outstanding" when computing the next
// wake-up deadline.
const farFuture = 24 * time.Hour

// pollInterval caps how long loop sleeps between reconciliation passes.
// Pending dials, newly queued metrics and socket state have no wake-up
// channel of their own, so they are picked up on this cadence.
const pollInterval = 10 * time.Millisecond

// Engine owns every Connection and the channel receiver for one pool. It
// is driven exclusively by its own Run goroutine: no other goroutine ever
// touches its queues, satisfying the single-threaded cooperative model
// the reconciliation algorithm requires.
type Engine struct {
	id  string
	cfg config.Config
	q   *queue.Queue
	src resolver.Source
	dl  *net.Dialer
	log logger.Logger

	metrics *metricsCollector

	curAddr    resolver.AddressSet
	haveCurSet bool

	pending []*conn.Connection
	normal  []*conn.Connection
	crowded []*conn.Connection
	retired []*conn.Connection
	failed  []*conn.Connection
}

// New builds an Engine. cfg and q are shared by reference with the
// producer handle; src supplies the infinite address-set stream.
func New(cfg config.Config, q *queue.Queue, src resolver.Source, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	id := uuid.NewString()
	return &Engine{
		id:      id,
		cfg:     cfg,
		q:       q,
		src:     src,
		dl:      &net.Dialer{},
		log:     log.WithField("pool", id),
		metrics: newMetricsCollector(id),
	}
}

// Metrics returns the Prometheus registry this engine publishes its
// connection-state gauges and channel-depth gauge to, so a caller can
// gather it alongside its own metrics.
func (e *Engine) Metrics() *prometheus.Registry {
	return e.metrics.Registry()
}

func (e *Engine) jitter() time.Duration {
	return e.cfg.ReconnectDelay.Delay()
}

// Run drives the engine until the context is cancelled (forcible
// shutdown: every socket is dropped, buffered data lost) or until every
// producer handle has been released and all outbound buffers have
// drained (graceful shutdown, returns nil).
func (e *Engine) Run(ctx context.Context) error {
	grp, gctx := errgroup.WithContext(ctx)
	lctx, stop := context.WithCancel(gctx)

	grp.Go(func() error {
		defer stop()
		return e.loop(lctx)
	})

	grp.Go(func() error {
		<-lctx.Done()
		return nil
	})

	return grp.Wait()
}

// loop wakes on an address-set update, on ctx cancellation, or on its
// timer, which is re-armed after every pass to the next deadline but never
// further out than pollInterval. Each wake runs one full reconciliation
// pass; sockets stay non-blocking rather than getting goroutines of their
// own.
func (e *Engine) loop(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.forceClose()
			return ctx.Err()

		case set, ok := <-e.src.Updates():
			if !ok {
				if err := e.src.Err(); err != nil {
					cerr := liberr.New(liberr.CodeAddressStream, "pool: address source terminated with error", err)
					e.log.WithError(cerr).Error("pool: address source terminated with error")
					return cerr
				}
				cerr := liberr.New(liberr.CodeAddressStream, "pool: address stream ended, violating its infinite-stream contract")
				e.log.WithError(cerr).Error("pool: address stream ended")
				return cerr
			}
			e.ingestAddresses(set)

		case <-timer.C:
		}

		if done := e.reconcile(); done {
			return nil
		}

		next := e.nextDeadline()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		wait := time.Until(next)
		if wait > pollInterval {
			wait = pollInterval
		}
		timer.Reset(wait)
	}
}

// ingestAddresses performs step 1 of the reconciliation loop.
func (e *Engine) ingestAddresses(set resolver.AddressSet) {
	if !e.haveCurSet {
		e.haveCurSet = true
		e.curAddr = set
		set.Each(func(a net.Addr) {
			e.pending = append(e.pending, conn.NewPending(e.dl, a, e.cfg.WriteTimeout))
		})
		return
	}

	removed, added := e.curAddr.Compare(set)
	e.curAddr = set

	removedSet := resolver.NewAddressSet(removed...)

	e.pending = dropByAddr(e.pending, removedSet, func(c *conn.Connection) { c.DiscardPending() })

	var stillActive []*conn.Connection
	for _, c := range e.normal {
		if removedSet.Contains(c.Addr()) {
			c.Retire()
			e.retired = append(e.retired, c)
		} else {
			stillActive = append(stillActive, c)
		}
	}
	e.normal = stillActive

	stillActive = nil
	for _, c := range e.crowded {
		if removedSet.Contains(c.Addr()) {
			c.Retire()
			e.retired = append(e.retired, c)
		} else {
			stillActive = append(stillActive, c)
		}
	}
	e.crowded = stillActive

	e.failed = filterByAddr(e.failed, removedSet)

	for _, a := range added {
		e.pending = append(e.pending, conn.NewPending(e.dl, a, e.cfg.WriteTimeout))
	}
}

// reconcile runs one pass of steps 2-7 of the loop (step 8 is
// nextDeadline, called by loop) and reports whether the engine should
// terminate (graceful shutdown complete).
func (e *Engine) reconcile() (done bool) {
	// 2. progress pending connects.
	var stillPending []*conn.Connection
	for _, c := range e.pending {
		if c.PollConnect(e.jitter) {
			switch c.State() {
			case conn.Normal:
				e.normal = append(e.normal, c)
			case conn.Failed:
				e.logFailed(c)
				e.failed = append(e.failed, c)
			}
		} else {
			stillPending = append(stillPending, c)
		}
	}
	e.pending = stillPending

	// 3. read-side drain for normal/crowded.
	e.normal = e.probeRead(e.normal)
	e.crowded = e.probeRead(e.crowded)

	// 4. flush crowded.
	var stillCrowded []*conn.Connection
	for _, c := range e.crowded {
		c.Flush(e.cfg.Watermarks.Low, e.cfg.Watermarks.High, e.jitter)
		switch c.State() {
		case conn.Normal:
			e.normal = append(e.normal, c)
		case conn.Crowded:
			stillCrowded = append(stillCrowded, c)
		case conn.Failed:
			e.logFailed(c)
			e.failed = append(e.failed, c)
		}
	}
	e.crowded = stillCrowded

	// 5. admit new metrics, multicast invariant.
	if len(e.normal) > 0 {
		for {
			m, ok, _ := e.q.Dequeue()
			if !ok {
				break
			}
			for _, c := range e.normal {
				c.Append(m.Bytes())
			}
			for _, c := range e.crowded {
				c.Append(m.Bytes())
			}
		}
	}

	// 6. flush normal.
	var stillNormal []*conn.Connection
	for _, c := range e.normal {
		c.Flush(e.cfg.Watermarks.Low, e.cfg.Watermarks.High, e.jitter)
		switch c.State() {
		case conn.Normal:
			stillNormal = append(stillNormal, c)
		case conn.Crowded:
			e.crowded = append(e.crowded, c)
		case conn.Failed:
			e.logFailed(c)
			e.failed = append(e.failed, c)
		}
	}
	e.normal = stillNormal

	// retired: drain and drop closed ones.
	var stillRetired []*conn.Connection
	for _, c := range e.retired {
		if !c.DrainRetired() {
			stillRetired = append(stillRetired, c)
		}
	}
	e.retired = stillRetired

	// 7. retry failed.
	now := time.Now()
	var stillFailed []*conn.Connection
	for _, c := range e.failed {
		if !c.RetryAt().After(now) {
			e.pending = append(e.pending, c.Reconnect(e.dl))
		} else {
			stillFailed = append(stillFailed, c)
		}
	}
	e.failed = stillFailed

	e.metrics.observe(len(e.pending), len(e.normal), len(e.crowded), len(e.retired), len(e.failed), e.q.Buffered())

	if e.q.Closed() && e.q.Buffered() == 0 {
		return e.outboundEmpty()
	}

	return false
}

func (e *Engine) outboundEmpty() bool {
	for _, c := range e.normal {
		if c.Outbound() > 0 {
			return false
		}
	}
	for _, c := range e.crowded {
		if c.Outbound() > 0 {
			return false
		}
	}
	for _, c := range e.retired {
		if c.Outbound() > 0 {
			return false
		}
	}
	return true
}

func (e *Engine) probeRead(list []*conn.Connection) []*conn.Connection {
	var kept []*conn.Connection
	for _, c := range list {
		if c.ProbeRead(e.jitter) {
			e.logFailed(c)
			e.failed = append(e.failed, c)
		} else {
			kept = append(kept, c)
		}
	}
	return kept
}

// logFailed records why a connection just transitioned to Failed, using
// the coded error it carries (dial failure, read error, write timeout, or
// watermark overflow) so operators can distinguish the cause from the log
// alone.
func (e *Engine) logFailed(c *conn.Connection) {
	e.log.WithField("addr", c.Addr().String()).WithError(c.Err()).Warn("pool: connection failed")
}

// nextDeadline implements step 8: the minimum across every failed
// retry_at and every normal/crowded write deadline, defaulting to a
// sentinel far in the future when nothing is outstanding.
func (e *Engine) nextDeadline() time.Time {
	next := time.Now().Add(farFuture)

	for _, c := range e.failed {
		if c.RetryAt().Before(next) {
			next = c.RetryAt()
		}
	}
	for _, c := range e.normal {
		if d := c.Deadline(); !d.IsZero() && d.Before(next) {
			next = d
		}
	}
	for _, c := range e.crowded {
		if d := c.Deadline(); !d.IsZero() && d.Before(next) {
			next = d
		}
	}

	return next
}

// forceClose implements the forcible-shutdown path of Run: every
// connection, regardless of lifecycle state, is torn down immediately
// and any unflushed outbound bytes are discarded.
func (e *Engine) forceClose() {
	for _, list := range [][]*conn.Connection{e.pending, e.normal, e.crowded, e.retired, e.failed} {
		for _, c := range list {
			c.Close()
		}
	}
}

func dropByAddr(list []*conn.Connection, addrs resolver.AddressSet, onDrop func(*conn.Connection)) []*conn.Connection {
	var kept []*conn.Connection
	for _, c := range list {
		if addrs.Contains(c.Addr()) {
			onDrop(c)
		} else {
			kept = append(kept, c)
		}
	}
	return kept
}

func filterByAddr(list []*conn.Connection, addrs resolver.AddressSet) []*conn.Connection {
	var kept []*conn.Connection
	for _, c := range list {
		if !addrs.Contains(c.Addr()) {
			kept = append(kept, c)
		}
	}
	return kept
}
