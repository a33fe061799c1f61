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

package errors

import (
	"fmt"
	"strings"
)

type ers struct {
	c CodeError
	e string
	p []Error
}

func (e *ers) Error() string {
	if len(e.p) == 0 {
		return e.e
	}

	var s = make([]string, 0, len(e.p)+1)
	s = append(s, e.e)
	for _, p := range e.p {
		s = append(s, p.Error())
	}
	return strings.Join(s, ": ")
}

func (e *ers) IsCode(code CodeError) bool {
	return e.c == code
}

func (e *ers) HasCode(code CodeError) bool {
	if e.IsCode(code) {
		return true
	}
	for _, p := range e.p {
		if p.HasCode(code) {
			return true
		}
	}
	return false
}

func (e *ers) Code() CodeError {
	return e.c
}

func (e *ers) Add(parent ...error) {
	for _, v := range parent {
		if v == nil {
			continue
		}
		if er, ok := v.(Error); ok {
			e.p = append(e.p, er)
		} else {
			e.p = append(e.p, &ers{c: UnknownError, e: v.Error()})
		}
	}
}

func (e *ers) HasParent() bool {
	return len(e.p) > 0
}

func (e *ers) Unwrap() []error {
	res := make([]error, 0, len(e.p))
	for _, p := range e.p {
		res = append(res, p)
	}
	return res
}

// New creates a new Error with the given code and message, optionally
// wrapping parent errors.
func New(code CodeError, message string, parent ...error) Error {
	e := &ers{c: code, e: message}
	e.Add(parent...)
	return e
}

// Newf creates a new Error with a message built by fmt.Sprintf.
func Newf(code CodeError, pattern string, args ...any) Error {
	return &ers{c: code, e: fmt.Sprintf(pattern, args...)}
}

// Make converts an error to an Error, wrapping it with code UnknownError if
// it isn't already one. Returns nil for a nil input.
func Make(e error) Error {
	if e == nil {
		return nil
	}
	if err := Get(e); err != nil {
		return err
	}
	return &ers{c: UnknownError, e: e.Error()}
}
