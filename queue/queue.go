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

// Package queue implements the bounded, lossy, multi-producer
// single-consumer channel that decouples metric producers from the pool
// engine: a buffered Go channel of metric.Metric paired with an atomic
// counter producers check before enqueueing, so an overloaded engine
// sheds load instead of blocking callers.
package queue

import (
	"sync"
	"sync/atomic"

	"github.com/nabbar/carbon/metric"
)

// Queue is a bounded, lossy FIFO of metric.Metric. Enqueue never blocks and
// never fails visibly; once the number of buffered items exceeds capacity,
// further enqueues are silently dropped until the consumer catches up.
type Queue struct {
	capacity int64
	buffered atomic.Int64

	ch chan metric.Metric

	closeOnce sync.Once
	senders   atomic.Int64
}

// New returns a Queue with the given capacity. A capacity of zero still
// accepts bursts of up to one item in flight, per the strict `>` (not `>=`)
// overflow predicate.
func New(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		capacity: int64(capacity),
		ch:       make(chan metric.Metric, capacity+1),
	}
}

// Capacity returns the configured maximum buffered-item count.
func (q *Queue) Capacity() int {
	return int(q.capacity)
}

// Buffered returns the current number of items believed to be queued. This
// is a best-effort snapshot: concurrent enqueue/dequeue activity may move
// it between the moment it is read and the moment it is used.
func (q *Queue) Buffered() int {
	return int(q.buffered.Load())
}

// Retain registers a new sender (producer handle). Call once per handle
// created via Clone-style sharing; balance with Release.
func (q *Queue) Retain() {
	q.senders.Add(1)
}

// Release drops one sender. Once every retained sender has called Release,
// the underlying channel is closed; the consumer observes this as `done`
// once it also drains whatever was still buffered.
func (q *Queue) Release() {
	if q.senders.Add(-1) <= 0 {
		q.closeOnce.Do(func() {
			close(q.ch)
		})
	}
}

// Enqueue attempts to append m. It reads the counter first: if the queue
// already holds more than capacity items, m is silently dropped (the
// channel may still hold up to capacity+1 items under the benign race this
// predicate allows). Otherwise the counter is incremented and m is queued.
func (q *Queue) Enqueue(m metric.Metric) (dropped bool) {
	if q.buffered.Load() > q.capacity {
		return true
	}

	select {
	case q.ch <- m:
		q.buffered.Add(1)
		return false
	default:
		return true
	}
}

// Dequeue returns the next metric if one is ready, and whether the queue
// has been permanently closed and drained (every sender released, nothing
// left buffered) — the signal the engine uses to begin graceful shutdown.
func (q *Queue) Dequeue() (m metric.Metric, ok bool, done bool) {
	select {
	case v, open := <-q.ch:
		if !open {
			return metric.Metric{}, false, true
		}
		q.buffered.Add(-1)
		return v, true, false
	default:
		return metric.Metric{}, false, false
	}
}

// Ready exposes the underlying receive channel for select-based consumers
// that want to wake on channel readiness alongside other event sources
// (address-stream updates, socket readiness, timers). A closed, drained
// channel yields the zero Metric with ok=false, matching Dequeue's done
// signal.
func (q *Queue) Ready() <-chan metric.Metric {
	return q.ch
}

// Stats returns the pair (current_buffered, capacity) for debug formatting.
func (q *Queue) Stats() (buffered, capacity int) {
	return q.Buffered(), q.Capacity()
}

// Closed reports whether every retained sender has released, without
// consuming from the channel. Combined with Buffered() == 0 this lets a
// consumer that is not currently draining (because admission is paused)
// detect graceful-shutdown readiness without stealing a metric out of
// band from the admission step.
func (q *Queue) Closed() bool {
	return q.senders.Load() <= 0
}
