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

// Package ftpsession wraps github.com/jlaffaye/ftp with the lazy-connect,
// retrying operations the deployment engine needs: store with
// create-parent-on-550 retry, delete-or-rmdir, rmdir with existence
// verification, and a directory listing that tolerates servers without
// MLSD.
package ftpsession

import (
	"bytes"
	"io"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	libftp "github.com/jlaffaye/ftp"

	liberr "github.com/nabbar/ftpdeploy/internal/errors"
)

// Entry is one remote directory entry as returned by List.
type Entry struct {
	Name string
	Dir  bool
}

// ProgressFunc is called with cumulative bytes written during Store,
// mirroring the teacher's file/progress callback shape (spec §4.6).
type ProgressFunc func(written int64)

// Session is one FTP control connection, connected lazily on first use.
// An operation reuses the cached connection without checking it and does
// not reconnect if the server has dropped it; after Close, the next
// operation dials again.
type Session struct {
	mu  sync.Mutex
	cfg *Config
	cli *atomic.Value
}

// New builds a Session bound to cfg. No network I/O happens until the
// first operation.
func New(cfg *Config) *Session {
	return &Session{cfg: cfg, cli: new(atomic.Value)}
}

func (s *Session) getClient() *libftp.ServerConn {
	if i := s.cli.Load(); i != nil {
		if c, ok := i.(*libftp.ServerConn); ok {
			return c
		}
	}
	return nil
}

func (s *Session) setClient(c *libftp.ServerConn) {
	s.cli.Store(c)
}

// Connect dials and authenticates if not already connected, and verifies
// an existing connection with a NOOP before reusing it.
func (s *Session) Connect() liberr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cli := s.getClient(); cli != nil {
		if err := cli.NoOp(); err == nil {
			return nil
		}
		_ = cli.Quit()
	}

	cli, err := s.cfg.dial()
	if err != nil {
		return err
	}

	s.setClient(cli)
	return nil
}

func (s *Session) client() (*libftp.ServerConn, liberr.Error) {
	if cli := s.getClient(); cli != nil {
		return cli, nil
	}
	if err := s.Connect(); err != nil {
		return nil, err
	}
	if cli := s.getClient(); cli != nil {
		return cli, nil
	}
	return nil, ErrorConnection.Error(nil)
}

// Close quits the control connection, if any. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cli := s.getClient(); cli != nil {
		_ = cli.Quit()
		s.setClient(nil)
	}
}

// Rename issues RNFR/RNTO for a move or an atomic publish-then-rename.
func (s *Session) Rename(from, to string) liberr.Error {
	cli, err := s.client()
	if err != nil {
		return err
	}
	if e := cli.Rename(from, to); e != nil {
		return wrap(e)
	}
	return nil
}

// Mkdir creates one remote directory. Callers that need the full parent
// chain should walk it themselves or rely on Store's ensureParent retry.
func (s *Session) Mkdir(remote string) liberr.Error {
	cli, err := s.client()
	if err != nil {
		return err
	}
	if e := cli.MakeDir(remote); e != nil {
		if IsNotFound(e) || isExistsErr(e) {
			return nil
		}
		return wrap(e)
	}
	return nil
}

// mkdirAll walks every ancestor of remote (shallowest first) and creates
// it, tolerating "already exists" replies.
func (s *Session) mkdirAll(remote string) liberr.Error {
	dir := path.Dir(remote)
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}

	var parts []string
	for d := dir; d != "/" && d != "." && d != ""; d = path.Dir(d) {
		parts = append([]string{d}, parts...)
	}

	for _, p := range parts {
		if err := s.Mkdir(p); err != nil {
			return err
		}
	}
	return nil
}

// Store uploads local content to remote. When ensureParentOnFailure is
// true and the first STOR fails with a 550 (missing directory), it
// creates the full parent chain and retries exactly once, matching
// spec §4.6's upload-worker contract.
func (s *Session) Store(remote string, r io.Reader, ensureParentOnFailure bool, progress ProgressFunc) liberr.Error {
	cli, err := s.client()
	if err != nil {
		return err
	}

	pr := wrapProgress(r, progress)

	if e := cli.Stor(remote, pr); e != nil {
		if ensureParentOnFailure && shouldEnsureParent(e) {
			if mkErr := s.mkdirAll(remote); mkErr != nil {
				return mkErr
			}
			pr.reset()
			cli2, err2 := s.client()
			if err2 != nil {
				return err2
			}
			if e2 := cli2.Stor(remote, pr); e2 != nil {
				return wrap(e2)
			}
			return nil
		}
		return wrap(e)
	}
	return nil
}

// Retrieve downloads remote and returns its full content, or (nil, nil)
// if the server reports it missing (550).
func (s *Session) Retrieve(remote string) ([]byte, liberr.Error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	resp, e := cli.Retr(remote)
	if e != nil {
		if IsNotFound(e) {
			return nil, nil
		}
		return nil, wrap(e)
	}
	defer resp.Close()

	buf := new(bytes.Buffer)
	if _, ce := io.Copy(buf, resp); ce != nil {
		return nil, ErrorNetwork.Error(ce)
	}
	return buf.Bytes(), nil
}

// DeleteFile removes a single remote file. A 550 (already gone) is
// treated as success, matching the teacher's idempotent-delete idiom.
func (s *Session) DeleteFile(remote string) liberr.Error {
	cli, err := s.client()
	if err != nil {
		return err
	}
	if e := cli.Delete(remote); e != nil {
		if IsNotFound(e) {
			return nil
		}
		return wrap(e)
	}
	return nil
}

// DeleteFileOrDir removes remote whether it is a file or a directory: it
// tries Delete first and falls back to RemoveDir on a permission-class
// failure, since the caller (a worker-pool remove job) uses one job kind
// for both files and directories.
func (s *Session) DeleteFileOrDir(remote string) liberr.Error {
	cli, err := s.client()
	if err != nil {
		return err
	}

	if e := cli.Delete(remote); e == nil {
		return nil
	} else if IsNotFound(e) {
		return nil
	} else if !isPermErr(e) {
		return wrap(e)
	}

	if e := cli.RemoveDir(remote); e != nil {
		if IsNotFound(e) {
			return nil
		}
		return wrap(e)
	}
	return nil
}

// Rmdir removes an empty remote directory. When verifyAbsent is true it
// confirms the directory is actually gone afterwards by listing it and
// expecting a 550, the behavior spec §4.5's purge directory-state needs
// to be sure a concurrent writer didn't repopulate it mid-delete.
func (s *Session) Rmdir(remote string, verifyAbsent bool) liberr.Error {
	cli, err := s.client()
	if err != nil {
		return err
	}

	if e := cli.RemoveDir(remote); e != nil && !IsNotFound(e) {
		return wrap(e)
	}

	if !verifyAbsent {
		return nil
	}

	if _, e := cli.List(remote); e == nil {
		return ErrorPermission.Error(nil)
	} else if !IsNotFound(e) {
		return wrap(e)
	}
	return nil
}

// List returns the entries under remote. When extended is true, entry
// kind (file vs directory) is populated from MLSD (falling back to LIST
// parsing internally, a fallback github.com/jlaffaye/ftp performs on our
// behalf); when false, a plain NLST name-only listing is used.
func (s *Session) List(remote string, extended bool) ([]Entry, liberr.Error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	if !extended {
		names, e := cli.NameList(remote)
		if e != nil {
			if IsNotFound(e) {
				return nil, nil
			}
			return nil, wrap(e)
		}
		out := make([]Entry, 0, len(names))
		for _, n := range names {
			out = append(out, Entry{Name: path.Base(n)})
		}
		return out, nil
	}

	entries, e := cli.List(remote)
	if e != nil {
		if IsNotFound(e) {
			return nil, nil
		}
		return nil, wrap(e)
	}

	out := make([]Entry, 0, len(entries))
	for _, en := range entries {
		name := en.Name
		if name == "." || name == ".." {
			continue
		}
		out = append(out, Entry{Name: name, Dir: en.Type == libftp.EntryTypeFolder})
	}
	return out, nil
}

func wrap(e error) liberr.Error {
	switch {
	case isPermErr(e):
		return ErrorPermission.Error(e)
	case isNetErr(e):
		return ErrorNetwork.Error(e)
	default:
		return ErrorConnection.Error(e)
	}
}

func isExistsErr(e error) bool {
	return strings.Contains(strings.ToLower(e.Error()), "exist")
}

// progressReader reports cumulative bytes read to a ProgressFunc and can
// be reset to re-read the same source for the parent-creation retry.
type progressReader struct {
	r        io.ReadSeeker
	fallback io.Reader
	fn       ProgressFunc
	total    int64
}

func wrapProgress(r io.Reader, fn ProgressFunc) *progressReader {
	pr := &progressReader{fallback: r, fn: fn}
	if rs, ok := r.(io.ReadSeeker); ok {
		pr.r = rs
	}
	return pr
}

func (p *progressReader) Read(buf []byte) (int, error) {
	src := p.fallback
	if p.r != nil {
		src = p.r
	}
	n, err := src.Read(buf)
	if n > 0 {
		p.total += int64(n)
		if p.fn != nil {
			p.fn(p.total)
		}
	}
	return n, err
}

func (p *progressReader) reset() {
	p.total = 0
	if p.r != nil {
		_, _ = p.r.Seek(0, io.SeekStart)
	}
}
