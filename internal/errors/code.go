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

// Package errors provides a lightweight, HTTP-status-like error code
// hierarchy shared by every package in this module, modeled on
// github.com/nabbar/golib/errors.
package errors

import (
	"strconv"
	"sync"
)

// CodeError is a numeric error code, namespaced per package by the
// MinPkg* constants below.
type CodeError uint16

const (
	UnknownError   CodeError = 0
	UnknownMessage           = "unknown error"
	NullMessage              = ""
)

// Per-package code ranges. Each package that raises errors owns one
// range and registers its own message function in its errors.go.
const (
	MinPkgFTPSession = 100
	MinPkgIndex      = 200
	MinPkgExclusion  = 300
	MinPkgScanner    = 400
	MinPkgWorker     = 500
	MinPkgPurge      = 600
	MinPkgConfig     = 700
	MinPkgCryptPass  = 800
	MinPkgDeploy     = 900

	MinAvailable = 1000
)

type Message func(code CodeError) string

var (
	mu      sync.RWMutex
	idMsgFct = make(map[CodeError]Message)
)

// RegisterIdFctMessage registers the message function for every code at or
// above min. Packages call this once from init() with their own min
// constant and getMessage switch.
func RegisterIdFctMessage(min CodeError, fct Message) {
	mu.Lock()
	defer mu.Unlock()
	idMsgFct[min] = fct
}

// ExistInMapMessage reports whether a message function is already
// registered for the given minimum code — used to panic on collision
// the way the teacher's packages do in their init().
func ExistInMapMessage(min CodeError) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := idMsgFct[min]
	return ok
}

func findRange(c CodeError) CodeError {
	mu.RLock()
	defer mu.RUnlock()

	var best CodeError
	var found bool
	for min := range idMsgFct {
		if c >= min && (!found || min > best) {
			best = min
			found = true
		}
	}
	if !found {
		return UnknownError
	}
	return best
}

func (c CodeError) Uint16() uint16 { return uint16(c) }
func (c CodeError) Int() int       { return int(c) }
func (c CodeError) String() string { return strconv.Itoa(c.Int()) }

// Message returns the human-readable message registered for this code,
// or UnknownMessage if none was registered.
func (c CodeError) Message() string {
	if c == UnknownError {
		return UnknownMessage
	}

	mu.RLock()
	fct, ok := idMsgFct[findRange(c)]
	mu.RUnlock()

	if ok {
		if m := fct(c); m != "" {
			return m
		}
	}
	return UnknownMessage
}

// Error builds a new Error value from this code, chaining any parent
// errors given.
func (c CodeError) Error(parents ...error) Error {
	return newError(c, c.Message(), parents...)
}
