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

package purge_test

import (
	stderrors "errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	liberr "github.com/nabbar/ftpdeploy/internal/errors"
	"github.com/nabbar/ftpdeploy/internal/queue"
	"github.com/nabbar/ftpdeploy/pkg/ftpsession"
	"github.com/nabbar/ftpdeploy/pkg/purge"
	"github.com/nabbar/ftpdeploy/pkg/types"
)

// fakeConn is a purge.Conn double driven entirely by call counts, so the
// state machine's retry/relist transitions can be exercised without a
// live FTP server.
type fakeConn struct {
	mu sync.Mutex

	rmdirCalls   int
	rmdirFailFor int // Rmdir fails this many calls before succeeding
	rmdirPaths   []string

	deleteCalls   int
	deleteFailFor int // <=0 means DeleteFile always fails
	deletePaths   []string

	listCalls  int
	listPaths  []string
	listResult []ftpsession.Entry

	closeCalls int
}

func (f *fakeConn) DeleteFile(remote string) liberr.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	f.deletePaths = append(f.deletePaths, remote)
	if f.deleteFailFor <= 0 || f.deleteCalls <= f.deleteFailFor {
		return ftpsession.ErrorNetwork.Error(stderrors.New("connection reset by peer"))
	}
	return nil
}

func (f *fakeConn) List(remote string, extended bool) ([]ftpsession.Entry, liberr.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.listPaths = append(f.listPaths, remote)
	return f.listResult, nil
}

func (f *fakeConn) Rmdir(remote string, verifyAbsent bool) liberr.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rmdirCalls++
	f.rmdirPaths = append(f.rmdirPaths, remote)
	if f.rmdirCalls <= f.rmdirFailFor {
		return ftpsession.ErrorPermission.Error(stderrors.New("directory not empty"))
	}
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
}

var _ = Describe("Engine", func() {
	It("flips a directory to re-listing after the 6th failed rmdir, then removes it", func() {
		// maxDirectoryRetries is 5: the directory state requeues itself on
		// retries 1..5 and only re-lists on the 6th failure (spec §4.5).
		conn := &fakeConn{rmdirFailFor: 6}

		e := &purge.Engine{Threads: 1, NewSession: func() purge.Conn { return conn }}

		q := queue.New[types.PurgeTask]()
		q.Put(types.PurgeTask{Path: "/stale", Type: types.PurgeDirectory})
		e.Run(q)

		Expect(conn.rmdirCalls).To(Equal(7))
		Expect(conn.listCalls).To(Equal(1))
		Expect(conn.listPaths).To(ConsistOf("/stale"))

		dirs, files := e.Counts()
		Expect(dirs).To(Equal(1))
		Expect(files).To(Equal(0))
	})

	It("re-lists the file's parent directory when delete fails with a network error", func() {
		// handleFile treats a network-class failure (e.g. the connection
		// dropping mid-delete) as a signal the listing this file came from
		// may be stale, and re-enumerates the parent directory instead of
		// giving up on the file outright.
		conn := &fakeConn{deleteFailFor: -1, rmdirFailFor: 0}

		e := &purge.Engine{Threads: 1, NewSession: func() purge.Conn { return conn }}

		q := queue.New[types.PurgeTask]()
		q.Put(types.PurgeTask{Path: "/dir/stuck.txt", Type: types.PurgeFile})
		e.Run(q)

		Expect(conn.deleteCalls).To(Equal(10))
		Expect(conn.listCalls).To(Equal(1))
		Expect(conn.listPaths).To(ConsistOf("/dir"))
		Expect(conn.rmdirCalls).To(Equal(1))

		dirs, files := e.Counts()
		Expect(dirs).To(Equal(1))
		Expect(files).To(Equal(0))
	})
})
