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

package index

import (
	"fmt"

	liberr "github.com/nabbar/ftpdeploy/internal/errors"
)

const (
	ErrorDownloadFailed liberr.CodeError = iota + liberr.MinPkgIndex
	ErrorLocalIO
	ErrorUploadFailed
)

func init() {
	if liberr.ExistInMapMessage(ErrorDownloadFailed) {
		panic(fmt.Errorf("error code collision with package index"))
	}
	liberr.RegisterIdFctMessage(ErrorDownloadFailed, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorDownloadFailed:
		return "index: remote index could not be downloaded"
	case ErrorLocalIO:
		return "index: local index file error"
	case ErrorUploadFailed:
		return "index: remote index upload failed after all retries"
	}
	return liberr.NullMessage
}
