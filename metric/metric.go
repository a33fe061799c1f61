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

// Package metric formats a single data point into the Graphite plain-text
// wire line "<name> <value> <unix_seconds>\n" and enforces the protocol's
// one-line invariant before the bytes ever reach a connection.
package metric

import (
	"strconv"
	"time"
)

// epoch is the earliest timestamp a Metric may carry.
var epoch = time.Unix(0, 0).UTC()

// Metric is an immutable, pre-encoded Graphite line ready to be appended to
// a connection's outbound buffer. Its byte count is fixed at creation; it
// is never mutated afterward.
type Metric struct {
	line []byte
}

// Bytes returns the encoded wire line, including its single trailing
// newline. Callers must not modify the returned slice.
func (m Metric) Bytes() []byte {
	return m.line
}

// Len reports the number of bytes the metric occupies on the wire.
func (m Metric) Len() int {
	return len(m.line)
}

// New formats name/value/at into a Metric, panicking if the name contains
// whitespace (a corrupt identifier would desynchronize every reader on the
// wire) or if at predates the Unix epoch (a caller bug, not a runtime
// condition to recover from).
func New(name string, value float64, at time.Time) Metric {
	if at.Before(epoch) {
		panic("metric: timestamp before unix epoch")
	}

	secs := int64(at.Sub(epoch) / time.Second)

	buf := make([]byte, 0, len(name)+32)
	buf = append(buf, name...)
	buf = append(buf, ' ')
	buf = strconv.AppendFloat(buf, value, 'f', -1, 64)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, secs, 10)
	buf = append(buf, '\n')

	assertInvariant(buf)

	return Metric{line: buf}
}

// assertInvariant panics unless buf contains exactly two space bytes and
// exactly one newline byte, with the newline as the final byte and no other
// whitespace anywhere else in the buffer.
func assertInvariant(buf []byte) {
	spaces, newlines := 0, 0

	for i, b := range buf {
		switch b {
		case ' ':
			spaces++
		case '\n':
			newlines++
			if i != len(buf)-1 {
				panic("metric: embedded newline corrupts the wire protocol")
			}
		case '\t', '\r', '\v', '\f':
			panic("metric: embedded whitespace corrupts the wire protocol")
		}
	}

	if spaces != 2 || newlines != 1 {
		panic("metric: line does not satisfy the space/newline invariant")
	}
}
