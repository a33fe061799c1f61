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

package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	liberr "github.com/nabbar/carbon/errors"
)

// Source is an infinite producer of AddressSet snapshots. Ending the
// stream (closing Updates without a prior Err) is a contract violation:
// callers that drive a pool engine treat it as fatal. Errors from Err
// terminate the consuming engine.
type Source interface {
	// Updates returns the channel of address-set snapshots. Each value
	// wholly replaces the previous one.
	Updates() <-chan AddressSet
	// Err returns the terminal error once the source has stopped
	// producing updates, or nil while it is still running.
	Err() error
	// Close stops the source and releases any resolver resources.
	Close() error
}

// dnsSource polls a hostname at a fixed interval using net.Resolver and
// publishes the resulting address set whenever it changes.
type dnsSource struct {
	updates chan AddressSet
	cancel  context.CancelFunc
	errCh   chan error
	err     error
}

// NewDNS starts a Source that resolves host:port by periodically looking
// up host's A/AAAA records via res (net.DefaultResolver if nil) every
// interval, pairing each resolved IP with port.
func NewDNS(ctx context.Context, res *net.Resolver, host string, port int, interval time.Duration) Source {
	if res == nil {
		res = net.DefaultResolver
	}

	cctx, cancel := context.WithCancel(ctx)
	d := &dnsSource{
		updates: make(chan AddressSet, 1),
		cancel:  cancel,
		errCh:   make(chan error, 1),
	}

	go d.run(cctx, res, host, port, interval)

	return d
}

func (d *dnsSource) run(ctx context.Context, res *net.Resolver, host string, port int, interval time.Duration) {
	defer close(d.updates)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last AddressSet

	lookup := func() error {
		ips, err := res.LookupIPAddr(ctx, host)
		if err != nil {
			return liberr.New(liberr.CodeAddressStream, fmt.Sprintf("resolver: lookup %q failed", host), err)
		}

		addrs := make([]net.Addr, 0, len(ips))
		for _, ip := range ips {
			addrs = append(addrs, &net.TCPAddr{IP: ip.IP, Port: port, Zone: ip.Zone})
		}

		next := NewAddressSet(addrs...)
		removed, added := last.Compare(next)
		if len(removed) == 0 && len(added) == 0 && last.m != nil {
			return nil
		}
		last = next

		select {
		case d.updates <- next:
		case <-ctx.Done():
		}
		return nil
	}

	if err := lookup(); err != nil {
		d.errCh <- err
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lookup(); err != nil {
				d.errCh <- err
				return
			}
		}
	}
}

func (d *dnsSource) Updates() <-chan AddressSet {
	return d.updates
}

func (d *dnsSource) Err() error {
	select {
	case err := <-d.errCh:
		d.err = err
		return d.err
	default:
		return d.err
	}
}

func (d *dnsSource) Close() error {
	d.cancel()
	return nil
}

// Static returns a Source that publishes a single fixed AddressSet once
// and then holds the stream open without further updates, useful for
// tests and for callers that manage their own address list.
func Static(set AddressSet) Source {
	ch := make(chan AddressSet, 1)
	ch <- set
	return &staticSource{updates: ch}
}

type staticSource struct {
	updates chan AddressSet
}

func (s *staticSource) Updates() <-chan AddressSet { return s.updates }
func (s *staticSource) Err() error                 { return nil }
func (s *staticSource) Close() error               { close(s.updates); return nil }
