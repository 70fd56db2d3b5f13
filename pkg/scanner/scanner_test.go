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

package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nabbar/ftpdeploy/pkg/exclusion"
	"github.com/nabbar/ftpdeploy/pkg/scanner"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScan_FindsFilesAndAncestorDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "world")

	excl := exclusion.New([]string{filepath.ToSlash(root)}, nil, nil)
	result, err := scanner.Scan(context.Background(), []string{filepath.ToSlash(root)}, excl, scanner.Options{Threads: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if result.Len() != 3 {
		t.Fatalf("expected 3 entries (2 files + 1 dir), got %d: %v", result.Len(), result.Keys())
	}

	if fp, ok := result.Get("/a.txt"); !ok || fp == nil {
		t.Fatalf("expected /a.txt with a fingerprint, got %v %v", fp, ok)
	}
	if fp, ok := result.Get("/sub"); !ok || fp != nil {
		t.Fatalf("expected /sub as a directory (null fingerprint), got %v %v", fp, ok)
	}
	if fp, ok := result.Get("/sub/b.txt"); !ok || fp == nil {
		t.Fatalf("expected /sub/b.txt with a fingerprint, got %v %v", fp, ok)
	}
}

func TestScan_ExcludedDirectoryExactMatchNotDescended(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "vendor", "lib.php"), "x")

	excl := exclusion.New([]string{filepath.ToSlash(root)}, []string{"/vendor"}, nil)
	result, err := scanner.Scan(context.Background(), []string{filepath.ToSlash(root)}, excl, scanner.Options{Threads: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := result.Get("/vendor/lib.php"); ok {
		t.Fatalf("expected vendor contents not to be descended into")
	}
	if fp, ok := result.Get("/vendor"); !ok || fp != nil {
		t.Fatalf("expected /vendor recorded as a directory placeholder, got %v %v", fp, ok)
	}
}

func TestScan_UnknownRootFails(t *testing.T) {
	excl := exclusion.New([]string{"/nonexistent-root-xyz"}, nil, nil)
	_, err := scanner.Scan(context.Background(), []string{"/nonexistent-root-xyz"}, excl, scanner.Options{}, nil)
	if err == nil {
		t.Fatalf("expected an error for a missing root")
	}
}
