/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package errors provides coded, traceable, hierarchical errors for the
// carbon client, modeled on the error-code convention of
// github.com/nabbar/golib/errors: every failure carries a CodeError
// classifying the failure kind plus an optional chain of parent errors.
package errors

// CodeError classifies a failure the same way an HTTP status code does:
// a small, stable, numeric vocabulary that callers can switch on without
// string-matching messages.
type CodeError uint16

const (
	// UnknownError is used as a fallback when no specific code applies.
	UnknownError CodeError = 0

	// CodeConfigInvalid is returned when a Config fails validation (e.g.
	// watermarks or reconnect-delay bounds inverted).
	CodeConfigInvalid CodeError = 100

	// CodeMetricInvalid classifies a formatted metric line that violates
	// the carbon wire invariant (exactly two spaces, one newline). The
	// metric package panics with a plain message on such a line and does
	// not return this code.
	CodeMetricInvalid CodeError = 101

	// CodeConnect is returned when a TCP connect attempt fails.
	CodeConnect CodeError = 200

	// CodeRead is returned for read errors, unexpected inbound bytes, or
	// peer close on a write-only carbon connection.
	CodeRead CodeError = 201

	// CodeWriteTimeout is returned when a connection makes no write
	// progress within the configured write_timeout, or when a write to
	// the socket fails outright.
	CodeWriteTimeout CodeError = 202

	// CodeOverflow is returned when a connection's outbound buffer
	// crosses the high watermark and is dropped.
	CodeOverflow CodeError = 203

	// CodeClosed classifies operations attempted on a closed connection
	// or a shut-down engine. No function in this module returns it:
	// conn and pool report closure through other codes or ctx.Err().
	CodeClosed CodeError = 204

	// CodeAddressStream is returned when the address-set source ends or
	// errors; ending is a programming error, erroring terminates the pool.
	CodeAddressStream CodeError = 300
)

// String returns a short human label for the code, used in log fields and
// error messages.
func (c CodeError) String() string {
	switch c {
	case CodeConfigInvalid:
		return "config-invalid"
	case CodeMetricInvalid:
		return "metric-invalid"
	case CodeConnect:
		return "connect"
	case CodeRead:
		return "read"
	case CodeWriteTimeout:
		return "write-timeout"
	case CodeOverflow:
		return "overflow"
	case CodeClosed:
		return "closed"
	case CodeAddressStream:
		return "address-stream"
	default:
		return "unknown"
	}
}

// Uint16 returns the raw numeric code.
func (c CodeError) Uint16() uint16 {
	return uint16(c)
}
