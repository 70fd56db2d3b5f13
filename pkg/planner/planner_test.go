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

package planner_test

import (
	"testing"

	"github.com/nabbar/ftpdeploy/pkg/exclusion"
	"github.com/nabbar/ftpdeploy/pkg/index"
	"github.com/nabbar/ftpdeploy/pkg/planner"
	"github.com/nabbar/ftpdeploy/pkg/types"
)

func TestCompute_UnchangedFileIsWrittenThroughNotUploaded(t *testing.T) {
	dir := t.TempDir()
	scan := types.NewScanResult()
	scan.Set("/a.txt", types.NewFingerprint("abc123"))

	prior := index.ReadResult{
		Remove:   true,
		Contents: map[types.Path]types.Fingerprint{"/a.txt": types.NewFingerprint("abc123")},
	}

	ix := index.New(dir, scan)
	excl := exclusion.New([]string{dir}, nil, nil)

	plan, err := planner.Compute(scan, prior, ix, excl)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Upload) != 0 {
		t.Fatalf("expected no uploads, got %v", plan.Upload)
	}
}

func TestCompute_ChangedFingerprintIsUploaded(t *testing.T) {
	dir := t.TempDir()
	scan := types.NewScanResult()
	scan.Set("/a.txt", types.NewFingerprint("newhash"))

	prior := index.ReadResult{
		Remove:   true,
		Contents: map[types.Path]types.Fingerprint{"/a.txt": types.NewFingerprint("oldhash")},
	}

	ix := index.New(dir, scan)
	excl := exclusion.New([]string{dir}, nil, nil)

	plan, err := planner.Compute(scan, prior, ix, excl)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Upload) != 1 || plan.Upload[0].Path != "/a.txt" {
		t.Fatalf("expected one upload for /a.txt, got %v", plan.Upload)
	}
	if !plan.Extensions["txt"] {
		t.Fatalf("expected txt extension recorded")
	}
}

func TestCompute_RemovedPathIsQueuedForDeleteWhenRemoveIsTrue(t *testing.T) {
	dir := t.TempDir()
	scan := types.NewScanResult()

	prior := index.ReadResult{
		Remove:   true,
		Contents: map[types.Path]types.Fingerprint{"/gone.txt": types.NewFingerprint("x")},
	}

	ix := index.New(dir, scan)
	excl := exclusion.New([]string{dir}, nil, nil)

	plan, err := planner.Compute(scan, prior, ix, excl)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Remove) != 1 || plan.Remove[0].Path != "/gone.txt" {
		t.Fatalf("expected /gone.txt queued for removal, got %v", plan.Remove)
	}
}

func TestCompute_RemoveFalseSkipsDeletesAndRecordsPriorSize(t *testing.T) {
	dir := t.TempDir()
	scan := types.NewScanResult()

	prior := index.ReadResult{
		Remove:   false,
		Contents: map[types.Path]types.Fingerprint{"/gone.txt": types.NewFingerprint("x")},
	}

	ix := index.New(dir, scan)
	excl := exclusion.New([]string{dir}, nil, nil)

	plan, err := planner.Compute(scan, prior, ix, excl)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Remove) != 0 {
		t.Fatalf("expected no deletes when remove=false, got %v", plan.Remove)
	}
	if plan.PriorSize != 1 {
		t.Fatalf("expected PriorSize=1, got %d", plan.PriorSize)
	}
}

func TestCompute_IgnoredPriorPathIsNotQueuedForDelete(t *testing.T) {
	dir := t.TempDir()
	scan := types.NewScanResult()

	prior := index.ReadResult{
		Remove:   true,
		Contents: map[types.Path]types.Fingerprint{"/.deployment-index": types.NewFingerprint("x")},
	}

	ix := index.New(dir, scan)
	excl := exclusion.New([]string{dir}, nil, nil)

	plan, err := planner.Compute(scan, prior, ix, excl)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Remove) != 0 {
		t.Fatalf("expected index file itself not queued for delete, got %v", plan.Remove)
	}
}
