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

// Package config holds the immutable, shared-by-reference configuration
// consumed by both the producer handle and the pool engine: write
// timeout, per-connection watermarks, channel capacity, and reconnect
// jitter bounds.
package config

import (
	"math/rand"
	"time"

	liberr "github.com/nabbar/carbon/errors"
)

// Watermarks bounds a connection's outbound buffer: Low is the buffering
// target at which a connection is still considered lightly loaded, High
// is the hard cap past which the connection is dropped.
type Watermarks struct {
	Low, High int
}

// Jitter is the inclusive [Min,Max] range a Failed connection's retry_at
// is drawn from, uniformly at random.
type Jitter struct {
	Min, Max time.Duration
}

// Delay returns a uniformly random duration in [Min,Max].
func (j Jitter) Delay() time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	span := j.Max - j.Min
	return j.Min + time.Duration(rand.Int63n(int64(span)+1))
}

// Config is the immutable set of tunables shared by reference between
// every producer handle clone and the engine that consumes the channel
// they feed.
type Config struct {
	WriteTimeout       time.Duration
	Watermarks         Watermarks
	MaxMetricsBuffered int
	ReconnectDelay     Jitter
}

// Default returns the library's documented defaults: a 10s write timeout,
// (60_000, 1_048_576)-byte watermarks, a 10_000-item channel, and a
// [50ms, 150ms] reconnect jitter window.
func Default() Config {
	return Config{
		WriteTimeout:       10 * time.Second,
		Watermarks:         Watermarks{Low: 60_000, High: 1_048_576},
		MaxMetricsBuffered: 10_000,
		ReconnectDelay:     Jitter{Min: 50 * time.Millisecond, Max: 150 * time.Millisecond},
	}
}

// WithWriteTimeout returns a copy of c with WriteTimeout set.
func (c Config) WithWriteTimeout(d time.Duration) Config {
	c.WriteTimeout = d
	return c
}

// WithWatermarks returns a copy of c with the (low, high) watermark pair
// set.
func (c Config) WithWatermarks(low, high int) Config {
	c.Watermarks = Watermarks{Low: low, High: high}
	return c
}

// WithMaxMetricsBuffered returns a copy of c with the channel capacity
// set.
func (c Config) WithMaxMetricsBuffered(n int) Config {
	c.MaxMetricsBuffered = n
	return c
}

// WithReconnectDelay is the convenience setter: it derives the jitter
// range as [d/2, d*3/2] around a single target delay d.
func (c Config) WithReconnectDelay(d time.Duration) Config {
	c.ReconnectDelay = Jitter{Min: d / 2, Max: d + d/2}
	return c
}

// WithReconnectDelayMinMax returns a copy of c with an explicit [min, max]
// jitter range.
func (c Config) WithReconnectDelayMinMax(min, max time.Duration) Config {
	c.ReconnectDelay = Jitter{Min: min, Max: max}
	return c
}

// Validate checks the invariants the spec requires of a Config:
// 0 < low <= high, min <= max, and a non-negative buffer capacity.
func (c Config) Validate() error {
	if c.Watermarks.Low <= 0 || c.Watermarks.Low > c.Watermarks.High {
		return liberr.New(liberr.CodeConfigInvalid, "watermarks must satisfy 0 < low <= high")
	}
	if c.ReconnectDelay.Min > c.ReconnectDelay.Max {
		return liberr.New(liberr.CodeConfigInvalid, "reconnect delay min must be <= max")
	}
	if c.MaxMetricsBuffered < 0 {
		return liberr.New(liberr.CodeConfigInvalid, "max metrics buffered must be >= 0")
	}
	return nil
}
