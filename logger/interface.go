/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
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

package logger

import "github.com/sirupsen/logrus"

// Logger is the structured, levelled logger used by the pool engine and
// the single-connection runner. Fields attached with
// WithField/WithFields are carried into every subsequent call on the
// returned Logger, the same chaining convention logrus itself uses.
type Logger interface {
	SetLevel(lvl Level)
	GetLevel() Level

	WithField(key string, val interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	Trace(args ...interface{})
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

// New returns a Logger backed by a dedicated logrus instance, starting at
// the given level and writing with logrus' default text formatter, which
// renders attached fields as key=value pairs.
func New(lvl Level) Logger {
	l := logrus.New()
	l.SetLevel(lvl.logrus())

	return &log{
		l: l,
		e: logrus.NewEntry(l),
	}
}

// Discard returns a Logger that drops every record, used as the default
// when a caller does not configure one explicitly.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return &log{l: l, e: logrus.NewEntry(l)}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
