/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package ftpsession

import (
	"fmt"

	liberr "github.com/nabbar/ftpdeploy/internal/errors"
)

const (
	ErrorConfigMissingHost liberr.CodeError = iota + liberr.MinPkgFTPSession
	ErrorConnection
	ErrorPermission
	ErrorNetwork
	ErrorLocal
)

func init() {
	if liberr.ExistInMapMessage(ErrorConfigMissingHost) {
		panic(fmt.Errorf("error code collision with package ftpsession"))
	}
	liberr.RegisterIdFctMessage(ErrorConfigMissingHost, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorConfigMissingHost:
		return "ftp session: host is missing"
	case ErrorConnection:
		return "ftp session: could not connect"
	case ErrorPermission:
		return "ftp session: permission error"
	case ErrorNetwork:
		return "ftp session: network error"
	case ErrorLocal:
		return "ftp session: local file error"
	}
	return liberr.NullMessage
}

// Kind classifies an underlying error the way spec §7 requires: workers
// and the purge state machine branch on Kind instead of matching strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindPermission
	KindNetwork
	KindLocal
)

// Classify maps a raw error from the ftp library (or the local filesystem)
// to a Kind. FTP 5xx replies implement net/textproto's *textproto.Error
// (jlaffaye/ftp returns these) with Code in [500,599].
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if isPermErr(err) {
		return KindPermission
	}
	if isNetErr(err) {
		return KindNetwork
	}
	return KindUnknown
}
