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

package conn

import (
	"bytes"
	"net"
	"time"

	liberr "github.com/nabbar/carbon/errors"
)

// sentinelFar stands in for "no deadline armed": an empty outbound buffer
// has nothing to time out on.
const sentinelFar = 24 * time.Hour

// pollWindow is how long a read probe or a write may wait on the socket
// before giving up for this pass. A deadline of exactly time.Now() would
// make the runtime fail the call before it touches the socket at all.
const pollWindow = time.Millisecond

// ErrProtocolViolation is returned when the peer sends bytes on a
// write-only carbon socket. A read error or peer close is reported with
// its own CodeRead error.
var ErrProtocolViolation = liberr.New(liberr.CodeRead, "conn: unexpected inbound data on a write-only connection")

// Connection owns one TCP socket (once dialed), its outbound byte buffer,
// and the write-deadline bookkeeping the pool engine's flush step drives.
type Connection struct {
	addr  net.Addr
	state State

	sock net.Conn
	out  bytes.Buffer

	deadline     time.Time
	retryAt      time.Time
	writeTimeout time.Duration

	dialResult chan dialOutcome
	dialCancel func()

	readBuf [256]byte

	lastErr error
}

type dialOutcome struct {
	sock net.Conn
	err  error
}

// NewPending starts an asynchronous connect to addr and returns a
// Connection in the Pending state. dialer defaults to net.Dialer if nil.
// writeTimeout is the duration Flush arms on write progress once the
// connection reaches Normal.
func NewPending(dialer *net.Dialer, addr net.Addr, writeTimeout time.Duration) *Connection {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if dialer.Timeout == 0 && writeTimeout > 0 {
		// The spec leaves connect unbounded, noting pending entries can
		// otherwise linger forever; bound it by write_timeout instead.
		dialer = &net.Dialer{Timeout: writeTimeout}
	}

	c := &Connection{
		addr:         addr,
		state:        Pending,
		writeTimeout: writeTimeout,
		dialResult:   make(chan dialOutcome, 1),
	}

	done := make(chan struct{})
	c.dialCancel = func() { close(done) }

	go func() {
		sock, err := dialer.Dial(addr.Network(), addr.String())
		select {
		case c.dialResult <- dialOutcome{sock: sock, err: err}:
		case <-done:
			if sock != nil {
				_ = sock.Close()
			}
		}
	}()

	return c
}

// AdoptNormal wraps an already-connected socket directly into the Normal
// state, used by the single-connection runner which receives a socket the
// caller dialed itself rather than driving its own connect.
func AdoptNormal(sock net.Conn, writeTimeout time.Duration) *Connection {
	return &Connection{
		addr:         sock.RemoteAddr(),
		state:        Normal,
		sock:         sock,
		writeTimeout: writeTimeout,
		deadline:     time.Now().Add(sentinelFar),
	}
}

// Addr returns the remote address this connection targets.
func (c *Connection) Addr() net.Addr { return c.addr }

// State returns the current lifecycle stage.
func (c *Connection) State() State { return c.state }

// RetryAt returns when a Failed connection should be retried.
func (c *Connection) RetryAt() time.Time { return c.retryAt }

// Deadline returns the armed write-timeout deadline, or the zero Time if
// none is armed.
func (c *Connection) Deadline() time.Time {
	if c.deadline.IsZero() || c.deadline.Sub(time.Now()) > sentinelFar-time.Second {
		return time.Time{}
	}
	return c.deadline
}

// Outbound reports the number of bytes currently queued to be written.
func (c *Connection) Outbound() int { return c.out.Len() }

// Err returns the coded error that drove this connection into Failed, or
// nil if it has never failed (or was reset by a fresh dial).
func (c *Connection) Err() error { return c.lastErr }

// PollConnect checks whether a Pending connect has resolved. ready is true
// once the connection has left Pending (either into Normal or Failed).
func (c *Connection) PollConnect(reconnectDelay func() time.Duration) (ready bool) {
	if c.state != Pending {
		return true
	}

	select {
	case res := <-c.dialResult:
		if res.err != nil {
			c.state = Failed
			c.lastErr = liberr.New(liberr.CodeConnect, "conn: dial failed", res.err)
			c.retryAt = time.Now().Add(reconnectDelay())
			return true
		}
		c.sock = res.sock
		c.state = Normal
		c.lastErr = nil
		c.deadline = time.Now().Add(sentinelFar)
		return true
	default:
		return false
	}
}

// DiscardPending cancels an in-flight connect, used when the target
// address is removed from the resolved set before the dial completes.
func (c *Connection) DiscardPending() {
	if c.state == Pending && c.dialCancel != nil {
		c.dialCancel()
	}
}

// Append appends a metric's wire bytes to the outbound buffer. Valid only
// while Normal or Crowded; the multicast invariant requires every live
// connection receive identical bytes.
func (c *Connection) Append(b []byte) {
	c.out.Write(b)
}

// ProbeRead performs a read bounded by pollWindow to detect inbound bytes, a
// read error, or peer close — all of which are protocol violations on a
// write-only carbon socket and force the connection to Failed.
func (c *Connection) ProbeRead(reconnectDelay func() time.Duration) (failed bool) {
	if c.sock == nil {
		return false
	}

	_ = c.sock.SetReadDeadline(time.Now().Add(pollWindow))
	n, err := c.sock.Read(c.readBuf[:])
	_ = c.sock.SetReadDeadline(time.Time{})

	if n > 0 {
		c.fail(ErrProtocolViolation, reconnectDelay)
		return true
	}

	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return false
		}
		c.fail(liberr.New(liberr.CodeRead, "conn: read error or peer close", err), reconnectDelay)
		return true
	}

	return false
}

// Flush writes as much of the outbound buffer as the socket accepts
// within pollWindow, updates the write-deadline per the arm-on-progress
// rule, and sets the resulting watermark-relative state given low/high.
// Flush returns nothing; the caller (pool engine) reads the new state via
// State and acts on it (e.g. moving queues).
func (c *Connection) Flush(low, high int, reconnectDelay func() time.Duration) {
	if c.sock == nil || c.state == Failed {
		return
	}

	wrote := false

	if c.out.Len() > 0 {
		// Arm a short write deadline so a peer that stops reading
		// (kernel send buffer full) never blocks this single-threaded
		// engine goroutine: the write returns within pollWindow with a
		// timeout error instead of hanging, and isTemporary treats that
		// as "no further progress this pass" rather than a hard failure.
		_ = c.sock.SetWriteDeadline(time.Now().Add(pollWindow))
		n, err := c.sock.Write(c.out.Bytes())
		_ = c.sock.SetWriteDeadline(time.Time{})
		if n > 0 {
			c.out.Next(n)
			wrote = true
		}
		if err != nil && !isTemporary(err) {
			c.fail(liberr.New(liberr.CodeWriteTimeout, "conn: write failed", err), reconnectDelay)
			return
		}
	}

	if c.out.Len() == 0 {
		c.deadline = time.Now().Add(sentinelFar)
	} else if wrote {
		c.deadline = time.Now().Add(c.writeTimeout)
	} else if time.Now().After(c.deadline) {
		c.fail(liberr.New(liberr.CodeWriteTimeout, "conn: no write progress within write_timeout"), reconnectDelay)
		return
	}

	switch {
	case c.out.Len() > high:
		c.fail(liberr.New(liberr.CodeOverflow, "conn: outbound buffer crossed the high watermark"), reconnectDelay)
	case c.out.Len() < low:
		c.state = Normal
	default:
		c.state = Crowded
	}
}

func (c *Connection) fail(err error, reconnectDelay func() time.Duration) {
	if c.sock != nil {
		_ = c.sock.Close()
		c.sock = nil
	}
	c.out.Reset()
	c.state = Failed
	c.lastErr = err
	c.retryAt = time.Now().Add(reconnectDelay())
}

// Retire transitions an active connection to Retired: it stops accepting
// new metrics and only drains whatever remains buffered.
func (c *Connection) Retire() {
	if c.state == Normal || c.state == Crowded {
		c.state = Retired
	}
}

// DrainRetired flushes a Retired connection's remaining buffer and closes
// the socket once empty, reporting whether it is now fully closed.
func (c *Connection) DrainRetired() (closed bool) {
	if c.state != Retired {
		return false
	}
	if c.sock == nil {
		return true
	}
	if c.out.Len() > 0 {
		_ = c.sock.SetWriteDeadline(time.Now().Add(pollWindow))
		n, _ := c.sock.Write(c.out.Bytes())
		_ = c.sock.SetWriteDeadline(time.Time{})
		if n > 0 {
			c.out.Next(n)
		}
	}
	if c.out.Len() == 0 {
		_ = c.sock.Close()
		c.sock = nil
		return true
	}
	return false
}

// Reconnect moves a Failed connection back into Pending, starting a new
// asynchronous dial.
func (c *Connection) Reconnect(dialer *net.Dialer) *Connection {
	return NewPending(dialer, c.addr, c.writeTimeout)
}

// Close unconditionally tears the connection down: it cancels an
// in-flight dial if one is outstanding and closes the socket if one is
// open, discarding any unflushed outbound bytes. Used by forcible
// (context-cancelled) shutdown, where un-flushed data is expected to be
// lost regardless of lifecycle state.
func (c *Connection) Close() {
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	if c.sock != nil {
		_ = c.sock.Close()
		c.sock = nil
	}
	c.out.Reset()
}

func isTemporary(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
