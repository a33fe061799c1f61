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

type log struct {
	l *logrus.Logger
	e *logrus.Entry
}

func (o *log) SetLevel(lvl Level) {
	o.l.SetLevel(lvl.logrus())
}

func (o *log) GetLevel() Level {
	switch o.l.GetLevel() {
	case logrus.ErrorLevel:
		return ErrorLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.DebugLevel:
		return DebugLevel
	case logrus.TraceLevel:
		return TraceLevel
	default:
		return InfoLevel
	}
}

func (o *log) WithField(key string, val interface{}) Logger {
	return &log{l: o.l, e: o.e.WithField(key, val)}
}

func (o *log) WithFields(fields map[string]interface{}) Logger {
	return &log{l: o.l, e: o.e.WithFields(fields)}
}

func (o *log) WithError(err error) Logger {
	return &log{l: o.l, e: o.e.WithError(err)}
}

func (o *log) Trace(args ...interface{}) { o.e.Trace(args...) }
func (o *log) Debug(args ...interface{}) { o.e.Debug(args...) }
func (o *log) Info(args ...interface{})  { o.e.Info(args...) }
func (o *log) Warn(args ...interface{})  { o.e.Warn(args...) }
func (o *log) Error(args ...interface{}) { o.e.Error(args...) }
