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

// Package scanner walks one or more local roots with two cooperating
// worker pools — a directory lister and a SHA-256 hasher — and produces
// a ScanResult covering every non-ignored file and its ancestor
// directories.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/nabbar/ftpdeploy/internal/applog"
	liberr "github.com/nabbar/ftpdeploy/internal/errors"
	"github.com/nabbar/ftpdeploy/internal/queue"
	"github.com/nabbar/ftpdeploy/pkg/checksum"
	"github.com/nabbar/ftpdeploy/pkg/exclusion"
	"github.com/nabbar/ftpdeploy/pkg/types"
)

// Options controls pool sizing and hashing block size. Threads <= 0
// falls back to runtime.NumCPU(), matching spec §5's "CPU count for
// scanner inner pools".
type Options struct {
	Threads   int
	BlockSize int
}

type dirTask struct {
	path string
	root string
}

type fileTask struct {
	path string
	root string
}

// Scan walks every root concurrently and returns the merged ScanResult.
// It respects ctx cancellation: on Done() it stops both pools and
// returns ErrorCancelled without waiting for the full 10s grace period
// the orchestrator itself is responsible for enforcing around this call.
func Scan(ctx context.Context, roots []string, excl *exclusion.Exclusion, opt Options, log *applog.Logger) (*types.ScanResult, liberr.Error) {
	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	blockSize := opt.BlockSize
	if blockSize <= 0 {
		blockSize = checksum.DefaultBlockSize
	}

	result := types.NewScanResult()

	// The directory-listing and hashing pools share the same join-counted
	// FIFO the worker and purge pools use (internal/queue): a task that
	// discovers more work (a subdirectory, a file to hash) Puts the child
	// before its own TaskDone, so Join only unblocks once every dequeued
	// task, including ones discovered mid-scan, has been retired.
	dq := queue.New[dirTask]()
	fq := queue.New[fileTask]()

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			dq.Stop()
			fq.Stop()
		})
	}

	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			return nil, ErrorRootNotFound.Error(err)
		}
		dq.Put(dirTask{path: root, root: root})
	}

	var wg sync.WaitGroup

	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runDirWorker(ctx, dq, fq, excl, result, log, stop)
		}()
	}
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runHashWorker(ctx, fq, result, blockSize, log, stop)
		}()
	}

	done := make(chan struct{})
	go func() {
		dq.Join()
		fq.Join()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		stop()
		<-done
		wg.Wait()
		return result, ErrorCancelled.Error(ctx.Err())
	}

	stop()
	wg.Wait()

	for _, p := range result.Keys() {
		result.EnsureAncestors(p)
	}

	return result, nil
}

func runDirWorker(ctx context.Context, dq *queue.Queue[dirTask], fq *queue.Queue[fileTask], excl *exclusion.Exclusion, result *types.ScanResult, log *applog.Logger, stop func()) {
	for {
		if ctx.Err() != nil {
			stop()
			return
		}

		t, ok := dq.Get()
		if !ok {
			return
		}

		processDir(t, dq, fq, excl, result, log)
		dq.TaskDone()
	}
}

func processDir(t dirTask, dq *queue.Queue[dirTask], fq *queue.Queue[fileTask], excl *exclusion.Exclusion, result *types.ScanResult, log *applog.Logger) {
	entries, err := os.ReadDir(t.path)
	if err != nil {
		if log != nil {
			log.With(map[string]interface{}{"path": t.path}).Warn("scanner: could not list directory: ", err)
		}
		return
	}

	for _, e := range entries {
		full := filepath.ToSlash(filepath.Join(t.path, e.Name()))

		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			target, terr := os.Stat(full)
			if terr != nil {
				continue
			}
			isDir = target.IsDir()
		}

		rel := relativePath(full, t.root)

		if isDir {
			pattern, ignored := excl.IsIgnoredAbsolute(full)
			if ignored {
				if pattern == full {
					result.Set(rel, types.FingerprintDir)
				}
				continue
			}
			result.Set(rel, types.FingerprintDir)
			dq.Put(dirTask{path: full, root: t.root})
			continue
		}

		if _, ignored := excl.IsIgnoredAbsolute(full); ignored {
			continue
		}
		fq.Put(fileTask{path: full, root: t.root})
	}
}

func runHashWorker(ctx context.Context, fq *queue.Queue[fileTask], result *types.ScanResult, blockSize int, log *applog.Logger, stop func()) {
	for {
		if ctx.Err() != nil {
			stop()
			return
		}

		t, ok := fq.Get()
		if !ok {
			return
		}

		digest, err := checksum.File(t.path, blockSize)
		if err != nil {
			if log != nil {
				log.With(map[string]interface{}{"path": t.path}).Warn("scanner: could not hash file: ", err)
			}
			fq.TaskDone()
			continue
		}

		rel := relativePath(t.path, t.root)
		result.Set(rel, types.NewFingerprint(digest))
		fq.TaskDone()
	}
}

func relativePath(full, root string) string {
	rel := strings.TrimPrefix(full, root)
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return rel
}
