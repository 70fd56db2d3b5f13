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

// Package index maintains the persistent, bzip2-compressed deployment
// index: a line-oriented "<fingerprint-or-None> <path>" table with
// current/backup rotation semantics and append-on-success writes from
// concurrent upload workers.
package index

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	dsbz2 "github.com/dsnet/compress/bzip2"

	liberr "github.com/nabbar/ftpdeploy/internal/errors"
	"github.com/nabbar/ftpdeploy/pkg/ftpsession"
	"github.com/nabbar/ftpdeploy/pkg/types"
)

// FileName and BackupFileName are the current/backup index file names,
// relative to the local root and the remote root respectively.
const (
	FileName       = "/.deployment-index"
	BackupFileName = "/.deployment-index.backup"
)

// ReadResult is the outcome of the read protocol (spec §4.4).
type ReadResult struct {
	// Remove is true unless a local backup existed, meaning a prior run
	// crashed mid-write and unknown-remote files must not be deleted.
	Remove   bool
	Contents map[types.Path]types.Fingerprint
}

// Index owns the single current-index file workers append to under a
// mutex, and the ScanResult it consults to resolve a path's fingerprint
// at write time.
type Index struct {
	mu sync.Mutex

	localDir string
	current  string
	backup   string

	file   *os.File
	writer io.WriteCloser

	hashes *types.ScanResult
}

// New binds an Index to localDir (the deployment's local root) and the
// ScanResult produced by the scanner, which Write consults for the
// fingerprint of each path it is told to carry forward.
func New(localDir string, hashes *types.ScanResult) *Index {
	return &Index{
		localDir: localDir,
		current:  localDir + FileName,
		backup:   localDir + BackupFileName,
		hashes:   hashes,
	}
}

// Read executes the read protocol: rotate an orphaned current to
// backup, read the backup if present, otherwise download the remote
// copy. A download failure (for any reason other than the file simply
// not existing) is fatal. A payload that does not decompress as bzip2 is
// parsed as plain text lines; a non-UTF-8 payload is treated as "upload
// everything": empty contents, Remove=true.
func (ix *Index) Read(session *ftpsession.Session, remoteRoot string) (ReadResult, liberr.Error) {
	if _, err := os.Stat(ix.current); err == nil {
		if _, err := os.Stat(ix.backup); err != nil {
			if rerr := os.Rename(ix.current, ix.backup); rerr != nil {
				return ReadResult{}, ErrorLocalIO.Error(rerr)
			}
		}
	}

	var (
		data   []byte
		remove bool
	)

	if b, err := os.ReadFile(ix.backup); err == nil {
		data = b
		remove = false
	} else {
		remove = true
		content, ferr := session.Retrieve(remoteRoot + FileName)
		if ferr != nil {
			return ReadResult{}, ErrorDownloadFailed.Error(ferr)
		}
		data = content
	}

	if len(data) == 0 {
		return ReadResult{Remove: remove, Contents: map[types.Path]types.Fingerprint{}}, nil
	}

	raw, decErr := decompress(data)
	if decErr != nil {
		raw = data
	}

	if !utf8.Valid(raw) {
		return ReadResult{Remove: true, Contents: map[types.Path]types.Fingerprint{}}, nil
	}

	return ReadResult{Remove: remove, Contents: parseLines(raw)}, nil
}

func decompress(data []byte) ([]byte, error) {
	return io.ReadAll(bzip2.NewReader(bytes.NewReader(data)))
}

func parseLines(raw []byte) map[types.Path]types.Fingerprint {
	contents := make(map[types.Path]types.Fingerprint)

	scanLines := bufio.NewScanner(bytes.NewReader(raw))
	scanLines.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanLines.Scan() {
		line := scanLines.Text()
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ' ')
		if idx < 0 {
			continue
		}
		fp, path := line[:idx], line[idx+1:]
		if fp == "None" {
			contents[path] = types.FingerprintDir
		} else {
			contents[path] = types.NewFingerprint(fp)
		}
	}
	return contents
}

// Write records path's current fingerprint (as known to the ScanResult
// this Index was built with) in the current index file, rotating an
// existing current file to backup (replacing any backup already there)
// and opening a fresh one on first write. Safe for concurrent use by
// multiple upload workers.
func (ix *Index) Write(path types.Path) liberr.Error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.writer == nil {
		if _, err := os.Stat(ix.current); err == nil {
			if rerr := os.Rename(ix.current, ix.backup); rerr != nil {
				return ErrorLocalIO.Error(rerr)
			}
		}

		f, err := os.OpenFile(ix.current, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			return ErrorLocalIO.Error(err)
		}
		w, werr := dsbz2.NewWriter(f, nil)
		if werr != nil {
			_ = f.Close()
			return ErrorLocalIO.Error(werr)
		}
		ix.file = f
		ix.writer = w
	}

	fp, _ := ix.hashes.Get(path)
	fingerprint := "None"
	if fp != nil {
		fingerprint = *fp
	}

	if _, err := io.WriteString(ix.writer, fingerprint+" "+path+"\n"); err != nil {
		return ErrorLocalIO.Error(err)
	}
	return nil
}

// RemoveBackup deletes the local backup file, if any. Called once any
// delta has been written this run, since the prior state has now been
// fully carried forward or superseded.
func (ix *Index) RemoveBackup() liberr.Error {
	if err := os.Remove(ix.backup); err != nil && !os.IsNotExist(err) {
		return ErrorLocalIO.Error(err)
	}
	return nil
}

// Upload closes the writer, then STORs the current file to the remote
// as .deployment-index, retrying up to attempts times with a fresh
// session on each failure. On success the local current file is removed.
func (ix *Index) Upload(session *ftpsession.Session, remoteRoot string, attempts int) liberr.Error {
	ix.mu.Lock()
	w := ix.writer
	f := ix.file
	ix.writer = nil
	ix.file = nil
	ix.mu.Unlock()

	if w != nil {
		if err := w.Close(); err != nil {
			return ErrorLocalIO.Error(err)
		}
	}
	if f != nil {
		if err := f.Close(); err != nil {
			return ErrorLocalIO.Error(err)
		}
	}

	content, err := os.ReadFile(ix.current)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ErrorLocalIO.Error(err)
	}

	if attempts <= 0 {
		attempts = 10
	}

	var lastErr liberr.Error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			session.Close()
			time.Sleep(time.Second)
		}
		if serr := session.Store(remoteRoot+FileName, bytes.NewReader(content), false, nil); serr != nil {
			lastErr = serr
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return ErrorUploadFailed.Error(lastErr)
	}

	if rerr := os.Remove(ix.current); rerr != nil && !os.IsNotExist(rerr) {
		return ErrorLocalIO.Error(rerr)
	}
	return nil
}
