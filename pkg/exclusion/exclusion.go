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

// Package exclusion decides whether an absolute or relative path is
// ignored by the scanner and planner, honoring literal, root-anchored,
// substring and glob patterns plus the composer path-remapping table.
package exclusion

import (
	"regexp"
	"strings"

	"github.com/nabbar/ftpdeploy/pkg/index"
	"github.com/nabbar/ftpdeploy/pkg/types"
)

// FtpConfigPrefix is an always-ignored built-in excluding sibling
// .ftp-*.json config files (spec §4.3). The index's own current/backup
// file names are pulled from pkg/index so the two packages can't drift.
const FtpConfigPrefix = "/.ftp-"

type patternKind int

const (
	kindSubstring patternKind = iota
	kindRoot
	kindRegex
)

type compiled struct {
	kind    patternKind
	literal string
	re      *regexp.Regexp
}

// Exclusion matches paths against a normalized pattern list built once
// from the ignored-pattern list, the deployment roots, and the composer
// path mapping.
type Exclusion struct {
	roots    []string
	patterns []compiled
}

var driveLetter = regexp.MustCompile(`(?i)^[a-z]+:/`)

// New builds an Exclusion. roots are absolute local directories; ignored
// is the raw pattern list from configuration; mapping is the composer
// remote-to-local prefix table (may be nil).
func New(roots []string, ignored []string, mapping *types.Mapping) *Exclusion {
	all := make([]string, 0, len(ignored)+3)
	all = append(all, ignored...)
	all = append(all, index.FileName, index.BackupFileName, FtpConfigPrefix)

	var entries []types.MappingEntry
	if mapping != nil {
		entries = mapping.Entries()
	}

	formatted := make([]string, 0, len(all)*len(roots)+len(all))
	for _, pattern := range all {
		if local, ok := lookupMapping(entries, pattern); ok {
			for _, root := range roots {
				if !strings.HasPrefix(local, root) {
					formatted = append(formatted, root+pattern)
				}
			}
		} else if strings.HasPrefix(pattern, "/") {
			for _, root := range roots {
				formatted = append(formatted, root+pattern)
			}
		} else {
			formatted = append(formatted, pattern)
		}
	}

	patterns := make([]compiled, 0, len(formatted))
	for _, pattern := range formatted {
		patterns = append(patterns, compile(pattern))
	}

	return &Exclusion{roots: roots, patterns: patterns}
}

func lookupMapping(entries []types.MappingEntry, pattern string) (string, bool) {
	for _, e := range entries {
		if e.Remote == pattern {
			return e.Local, true
		}
	}
	return "", false
}

func compile(pattern string) compiled {
	if strings.Contains(pattern, "*") {
		expr := "(?is)" + regexp.QuoteMeta(pattern)
		expr = strings.ReplaceAll(expr, regexp.QuoteMeta("*"), ".*")
		if re, err := regexp.Compile(expr); err == nil {
			return compiled{kind: kindRegex, literal: pattern, re: re}
		}
		// fall through to substring matching if the pattern is not a
		// valid regex once escaped.
	}

	isRoot := strings.HasPrefix(pattern, "/") || driveLetter.MatchString(pattern)
	if isRoot {
		return compiled{kind: kindRoot, literal: pattern}
	}
	return compiled{kind: kindSubstring, literal: pattern}
}

// IsIgnoredAbsolute returns the matching pattern and true if path (an
// absolute, forward-slash path) is excluded. Patterns are tested in list
// order, the declaration order of ignored patterns, and the first match
// wins: a regex pattern matches via Search semantics, a root-anchored one
// via prefix, and anything else via substring containment.
func (x *Exclusion) IsIgnoredAbsolute(path string) (string, bool) {
	for _, p := range x.patterns {
		switch p.kind {
		case kindRegex:
			if p.re.MatchString(path) {
				return p.literal, true
			}
		case kindRoot:
			if strings.HasPrefix(path, p.literal) {
				return p.literal, true
			}
		default:
			if strings.Contains(path, p.literal) {
				return p.literal, true
			}
		}
	}
	return "", false
}

// IsIgnoredRelative tests the concatenation of each root with a
// root-relative path; used by the planner to avoid proposing deletion of
// index-internal files.
func (x *Exclusion) IsIgnoredRelative(path string) bool {
	for _, root := range x.roots {
		if _, ok := x.IsIgnoredAbsolute(root + path); ok {
			return true
		}
	}
	return false
}
