/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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
 */

package errors

import (
	"strings"
)

// Error is an error that carries a numeric Code plus an optional chain
// of parent causes, so call sites can test "was this a permission error"
// without string matching on the message.
type Error interface {
	error
	Code() CodeError
	HasCode(code CodeError) bool
	Add(parents ...error)
	Is(err error) bool
}

type ers struct {
	c CodeError
	m string
	p []Error
}

func newError(code CodeError, message string, parents ...error) Error {
	e := &ers{c: code, m: message}
	e.Add(parents...)
	return e
}

// New builds a bare Error with UnknownError code — used for wrapping a
// plain error returned by a third-party library with no natural code.
func New(message string, parents ...error) Error {
	return newError(UnknownError, message, parents...)
}

func (e *ers) Error() string {
	return e.m
}

func (e *ers) Code() CodeError {
	return e.c
}

func (e *ers) HasCode(code CodeError) bool {
	if e.c == code {
		return true
	}
	for _, p := range e.p {
		if p.HasCode(code) {
			return true
		}
	}
	return false
}

func (e *ers) Add(parents ...error) {
	for _, v := range parents {
		if v == nil {
			continue
		}
		if er, ok := v.(Error); ok {
			e.p = append(e.p, er)
		} else {
			e.p = append(e.p, &ers{c: UnknownError, m: v.Error()})
		}
	}
}

// Cause walks the parent chain and returns the deepest error, the one
// whose message is the raw text from the library or syscall that first
// raised it rather than one of this module's fixed per-code messages.
// Callers that need to pattern-match a raw FTP reply (the purge state
// machine's expected-error classification) use this instead of Error().
func Cause(err error) error {
	e, ok := err.(Error)
	if !ok {
		return err
	}
	if er, ok := e.(*ers); ok && len(er.p) > 0 {
		return Cause(er.p[0])
	}
	return e
}

func (e *ers) Is(err error) bool {
	if err == nil {
		return false
	}
	if er, ok := err.(Error); ok {
		return e.c != UnknownError && e.c == er.Code()
	}
	return strings.EqualFold(e.m, err.Error())
}
