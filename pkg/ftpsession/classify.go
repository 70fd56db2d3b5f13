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
	"errors"
	"net"
	"net/textproto"
	"strings"
)

// isPermErr reports whether err is an FTP reply in the 5xx range, the
// wire-level signal for "no permission" / "not found" (550), as opposed
// to a transport failure.
func isPermErr(err error) bool {
	var pe *textproto.Error
	if errors.As(err, &pe) {
		return pe.Code >= 500 && pe.Code < 600
	}
	return false
}

// isNetErr reports whether err is a transport-level failure: a dropped
// connection, a dial timeout, or any net.Error.
func isNetErr(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}

// IsNotFound reports whether err is a 550 reply, whatever its message
// text. Session operations treat it as "missing" or "already gone"
// rather than a hard failure.
func IsNotFound(err error) bool {
	var pe *textproto.Error
	if errors.As(err, &pe) {
		return pe.Code == 550
	}
	return false
}

// shouldEnsureParent reports whether err is the wire signal Store's
// ensureParentOnFailure branch should treat as "the remote directory
// doesn't exist yet": a 550 or 553 reply, or a message mentioning the
// file couldn't be created because a path component is missing. Servers
// disagree on exact code and wording for this case, so both the code
// and the message are checked.
func shouldEnsureParent(err error) bool {
	var pe *textproto.Error
	if errors.As(err, &pe) && (pe.Code == 550 || pe.Code == 553) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not create file") || strings.Contains(msg, "no such file or directory")
}
