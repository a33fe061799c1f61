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

package metric_test

import (
	"time"

	. "github.com/nabbar/carbon/metric"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Metric", func() {
	It("encodes name, value and unix seconds as a single line", func() {
		at := time.Unix(1_700_000_000, 0).UTC()
		m := New("app.requests", 42, at)
		Expect(string(m.Bytes())).To(Equal("app.requests 42 1700000000\n"))
	})

	It("formats fractional values without trailing zeros", func() {
		at := time.Unix(0, 0).UTC()
		m := New("app.latency", 3.5, at)
		Expect(string(m.Bytes())).To(Equal("app.latency 3.5 0\n"))
	})

	It("reports Len consistent with Bytes", func() {
		m := New("app.count", 1, time.Unix(10, 0).UTC())
		Expect(m.Len()).To(Equal(len(m.Bytes())))
	})

	It("panics on a name containing a space", func() {
		Expect(func() {
			New("app requests", 1, time.Unix(0, 0).UTC())
		}).To(Panic())
	})

	It("panics on a name containing a newline", func() {
		Expect(func() {
			New("app\nrequests", 1, time.Unix(0, 0).UTC())
		}).To(Panic())
	})

	It("panics on a name containing a tab", func() {
		Expect(func() {
			New("app\trequests", 1, time.Unix(0, 0).UTC())
		}).To(Panic())
	})

	It("panics when the timestamp predates the unix epoch", func() {
		Expect(func() {
			New("app.requests", 1, time.Unix(-1, 0).UTC())
		}).To(Panic())
	})

	It("accepts the unix epoch itself", func() {
		Expect(func() {
			New("app.requests", 1, time.Unix(0, 0).UTC())
		}).ToNot(Panic())
	})
})
