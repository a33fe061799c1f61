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

// Package resolver supplies the pool engine with an ever-updating set of
// socket addresses, abstracting away how those addresses are discovered:
// a periodic DNS lookup in the provided implementation, or anything else
// that can produce an infinite stream of AddressSet values.
package resolver

import "net"

// AddressSet is an immutable, unordered set of socket addresses, one
// snapshot of the pool engine's dial targets.
type AddressSet struct {
	m map[string]net.Addr
}

// NewAddressSet builds an AddressSet from a slice of addresses, de-duplicating
// by string representation.
func NewAddressSet(addrs ...net.Addr) AddressSet {
	m := make(map[string]net.Addr, len(addrs))
	for _, a := range addrs {
		m[a.String()] = a
	}
	return AddressSet{m: m}
}

// Len reports the number of distinct addresses in the set.
func (s AddressSet) Len() int {
	return len(s.m)
}

// Each calls fn once per member address. Iteration order is unspecified.
func (s AddressSet) Each(fn func(net.Addr)) {
	for _, a := range s.m {
		fn(a)
	}
}

// Contains reports whether addr (compared by string form) is a member.
func (s AddressSet) Contains(addr net.Addr) bool {
	_, ok := s.m[addr.String()]
	return ok
}

// Compare returns the addresses present in other but not in s (added) and
// the addresses present in s but not in other (removed), mirroring the
// resolver source's set-difference contract the engine reconciles against.
func (s AddressSet) Compare(other AddressSet) (removed, added []net.Addr) {
	for k, a := range s.m {
		if _, ok := other.m[k]; !ok {
			removed = append(removed, a)
		}
	}
	for k, a := range other.m {
		if _, ok := s.m[k]; !ok {
			added = append(added, a)
		}
	}
	return removed, added
}
