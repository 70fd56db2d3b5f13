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

// Package types holds the value types shared across the deployment engine:
// Path, Fingerprint, ScanResult, Job, PurgeTask, Mapping and Counter.
package types

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Path is a forward-slash, root-relative string beginning with "/".
type Path = string

// Fingerprint is the hex SHA-256 of a file's content. A nil pointer
// (FingerprintDir) marks a directory entry.
type Fingerprint = *string

// FingerprintDir is the sentinel fingerprint value for directory entries.
var FingerprintDir Fingerprint = nil

// NewFingerprint wraps a hex digest for storage in a ScanResult/IndexRecord.
func NewFingerprint(hex string) Fingerprint {
	v := hex
	return &v
}

// ScanResult is the ordered mapping from Path to Fingerprint-or-null
// produced by the scanner (spec §3). Keys() returns paths in lexicographic
// order, the order invariant the scanner and index both rely on.
type ScanResult struct {
	mu sync.Mutex
	m  map[Path]Fingerprint
}

func NewScanResult() *ScanResult {
	return &ScanResult{m: make(map[Path]Fingerprint)}
}

func (s *ScanResult) Set(p Path, f Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p] = f
}

func (s *ScanResult) Get(p Path) (Fingerprint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.m[p]
	return f, ok
}

func (s *ScanResult) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Keys returns every path currently held, sorted lexicographically.
func (s *ScanResult) Keys() []Path {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]Path, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnsureAncestors inserts a null (directory) entry for each missing strict
// ancestor of p, walking up from p's parent towards root (excluded) and
// stopping at the first ancestor already present; the ancestors above
// that one are not checked.
// This is the invariant from spec §3/§8: every file path's ancestor chain
// must appear in the ScanResult.
func (s *ScanResult) EnsureAncestors(p Path) {
	dir := parentOf(p)
	for dir != "" && dir != "/" {
		s.mu.Lock()
		_, exists := s.m[dir]
		if !exists {
			s.m[dir] = FingerprintDir
		}
		s.mu.Unlock()

		if exists {
			break
		}
		dir = parentOf(dir)
	}
}

func parentOf(p Path) Path {
	p = strings.TrimSuffix(p, "/")
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return ""
	}
	return p[:idx]
}

// JobKind distinguishes an upload job from a remove job (spec §3).
type JobKind int

const (
	JobUpload JobKind = iota
	JobRemove
)

func (k JobKind) String() string {
	if k == JobUpload {
		return "upload"
	}
	return "remove"
}

// Job is one unit of work for the upload/remove worker pool.
type Job struct {
	Path  Path
	Retry int
	Kind  JobKind
}

// PurgeNodeType is the per-node state used by the purge FSM (spec §4.5).
type PurgeNodeType int

const (
	PurgeUnknown PurgeNodeType = iota
	PurgeFile
	PurgeListing
	PurgeDirectory
)

// PurgeTask is one (path, state) entry in the purge engine's queue.
type PurgeTask struct {
	Path Path
	Type PurgeNodeType
}

// Mapping translates a remote-path prefix to a local-path prefix (the
// composer vendor-directory case, spec §3/GLOSSARY). Longest prefix wins
// (spec §9 REDESIGN FLAGS), not Python dict insertion order.
type Mapping struct {
	mu      sync.RWMutex
	entries []mappingEntry
}

type mappingEntry struct {
	remote string
	local  string
}

func NewMapping() *Mapping {
	return &Mapping{}
}

// MappingEntry is a read-only snapshot of one Mapping row.
type MappingEntry struct {
	Remote string
	Local  string
}

// Entries returns every mapping row, longest remote prefix first. Used by
// the exclusion matcher to decide whether a pattern needs re-anchoring.
func (m *Mapping) Entries() []MappingEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]MappingEntry, len(m.entries))
	for i, e := range m.entries {
		out[i] = MappingEntry{Remote: e.remote, Local: e.local}
	}
	return out
}

func (m *Mapping) Add(remotePrefix, localPrefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, mappingEntry{remote: remotePrefix, local: localPrefix})
	sort.Slice(m.entries, func(i, j int) bool {
		return len(m.entries[i].remote) > len(m.entries[j].remote)
	})
}

// Resolve returns the local on-disk path for a remote-relative path,
// applying the longest matching prefix. ok is false if no mapping matches.
func (m *Mapping) Resolve(path Path) (local string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if strings.HasPrefix(path, e.remote) {
			return e.local + strings.TrimPrefix(path, e.remote), true
		}
	}
	return "", false
}

// Counter is a shared "m of N" progress indicator (spec §3). N is fixed at
// phase start; Next increments and returns the current position, formatted
// to the display width derived from N.
type Counter struct {
	mu    sync.Mutex
	total int
	count int
}

func NewCounter() *Counter {
	return &Counter{count: 1}
}

func (c *Counter) Reset(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = total
	c.count = 1
}

// Next increments and returns the formatted "m of N" string.
func (c *Counter) Next() string {
	c.mu.Lock()
	n := c.count
	c.count++
	total := c.total
	c.mu.Unlock()

	return pad(n, total) + " of " + strconv.Itoa(total)
}

func pad(n, total int) string {
	s := strconv.Itoa(n)
	t := strconv.Itoa(total)
	for len(s) < len(t) {
		s = " " + s
	}
	return s
}
