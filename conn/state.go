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

// Package conn implements a single carbon TCP connection and its state
// machine: a connect-in-flight Pending entry, a writable Normal/Crowded
// pair governed by outbound-buffer watermarks, a drain-only Retired state,
// and a Failed state recording when to retry.
package conn

// State is the lifecycle stage of a Connection.
type State uint8

const (
	// Pending means a connect attempt is in flight.
	Pending State = iota
	// Normal means the connection is writable and below the low watermark.
	Normal
	// Crowded means the connection is writable but at or above the low
	// watermark; it still receives new metrics to preserve the multicast
	// invariant.
	Crowded
	// Retired means writing is disabled; only the existing outbound buffer
	// is flushed before the socket closes.
	Retired
	// Failed means there is no live socket; retryAt records when the next
	// connect attempt is due.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Normal:
		return "normal"
	case Crowded:
		return "crowded"
	case Retired:
		return "retired"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
