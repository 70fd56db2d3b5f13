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

// Package planner diffs a scan against the prior index to produce an
// upload queue, a delete queue, and the set of file extensions touched
// by the upload queue (consulted by purge_partial substitution).
package planner

import (
	"path/filepath"
	"strings"

	liberr "github.com/nabbar/ftpdeploy/internal/errors"
	"github.com/nabbar/ftpdeploy/pkg/exclusion"
	"github.com/nabbar/ftpdeploy/pkg/index"
	"github.com/nabbar/ftpdeploy/pkg/types"
)

// Plan is the result of diffing a ScanResult against the prior index.
type Plan struct {
	Upload     []types.Job
	Remove     []types.Job
	Extensions map[string]bool

	// PriorSize is the count of entries the prior index held, used only
	// as a progress-display offset when Remove is not authoritative
	// this run (spec §4.7 step 7).
	PriorSize int
}

// Compute builds a Plan from scan and prior, writing every unchanged
// path forward into ix so it survives into the new index without being
// re-uploaded.
func Compute(scan *types.ScanResult, prior index.ReadResult, ix *index.Index, excl *exclusion.Exclusion) (*Plan, liberr.Error) {
	plan := &Plan{Extensions: make(map[string]bool)}

	for _, path := range scan.Keys() {
		fp, _ := scan.Get(path)
		priorFp, existed := prior.Contents[path]

		if existed && sameFingerprint(fp, priorFp) {
			if err := ix.Write(path); err != nil {
				return nil, err
			}
			continue
		}

		plan.Upload = append(plan.Upload, types.Job{Path: path, Kind: types.JobUpload})
		if ext := extensionOf(path); ext != "" {
			plan.Extensions[ext] = true
		}
	}

	if !prior.Remove {
		if err := ix.RemoveBackup(); err != nil {
			return nil, err
		}
	}

	if prior.Remove {
		for path := range prior.Contents {
			if _, stillPresent := scan.Get(path); stillPresent {
				continue
			}
			if excl.IsIgnoredRelative(path) {
				continue
			}
			plan.Remove = append(plan.Remove, types.Job{Path: path, Kind: types.JobRemove})
		}
	} else {
		plan.PriorSize = len(prior.Contents)
	}

	return plan, nil
}

func sameFingerprint(a, b types.Fingerprint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func extensionOf(path types.Path) string {
	ext := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
