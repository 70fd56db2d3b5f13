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

// Package worker runs the upload/remove pool: N FTP workers, each owning
// a dedicated session, consuming a shared job queue with per-job retry
// and a failure sink for jobs that exhaust their retry budget.
package worker

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nabbar/ftpdeploy/internal/applog"
	"github.com/nabbar/ftpdeploy/internal/queue"
	"github.com/nabbar/ftpdeploy/pkg/ftpsession"
	"github.com/nabbar/ftpdeploy/pkg/index"
	"github.com/nabbar/ftpdeploy/pkg/types"
)

// progressLogInterval bounds how often an in-flight upload's percent
// complete is logged, matching the worker.py throttle (spec §4.6).
const progressLogInterval = 2 * time.Second

// progressThreshold is the strict size above which Store gets a
// progress callback at all (spec §8 boundary: exactly 1 MiB does not).
const progressThreshold = 1024 * 1024

// Phase names the monitor thread reports against a worker that has
// stalled (spec §4.6).
type Phase string

const (
	PhaseInit   Phase = "init"
	PhaseFetch  Phase = "fetch"
	PhaseUpload Phase = "upload"
	PhaseIndex  Phase = "index"
	PhaseDelete Phase = "delete"
	PhaseDone   Phase = "done"
	PhaseError  Phase = "error"
	PhaseClose  Phase = "close"
)

// Pool runs Threads workers against Queue, each with its own Session
// built from NewSession.
type Pool struct {
	Threads    int
	RetryCount int
	LocalRoot  string
	RemoteRoot string
	Mapping    *types.Mapping
	Index      *index.Index
	NewSession func() *ftpsession.Session
	Log        *applog.Logger

	Failed []string

	mu      sync.Mutex
	phase   []atomicPhase
	counter *types.Counter
}

type atomicPhase struct {
	mu sync.Mutex
	p  Phase
	t  time.Time
}

func (a *atomicPhase) set(p Phase) {
	a.mu.Lock()
	a.p = p
	a.t = time.Now()
	a.mu.Unlock()
}

func (a *atomicPhase) get() (Phase, time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.p, a.t
}

// Run drains q to completion, running Threads concurrent workers, and
// returns once every job (including re-enqueued retries) has been
// accounted for. counter is the shared "m of N" display Reset by the
// caller for this phase.
func (p *Pool) Run(q *queue.Queue[types.Job], counter *types.Counter) {
	threads := p.Threads
	if threads <= 0 {
		threads = 1
	}
	p.counter = counter
	p.phase = make([]atomicPhase, threads)

	// the only work a job adds is its own requeued retry, Put before that
	// job's TaskDone, so once every dequeued job (including requeued
	// retries) has a matching TaskDone, nothing further will arrive: safe
	// to stop the queue and
	// let idle Get() calls return.
	go func() {
		q.Join()
		q.Stop()
	}()

	stopMonitor := make(chan struct{})
	go p.monitor(stopMonitor)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runOne(id, q)
		}(i)
	}
	wg.Wait()
	close(stopMonitor)
}

func (p *Pool) monitor(stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	last := make([]Phase, len(p.phase))
	lastChange := make([]time.Time, len(p.phase))

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for i := range p.phase {
				ph, t := p.phase[i].get()
				if ph == last[i] && !lastChange[i].IsZero() && time.Since(lastChange[i]) > 5*time.Second {
					if p.Log != nil {
						p.Log.With(map[string]interface{}{"worker": i, "phase": ph}).Warn("worker stalled")
					}
				}
				if ph != last[i] {
					last[i] = ph
					lastChange[i] = t
				}
			}
		}
	}
}

func (p *Pool) runOne(id int, q *queue.Queue[types.Job]) {
	p.phase[id].set(PhaseInit)
	sess := p.NewSession()
	defer func() {
		p.phase[id].set(PhaseClose)
		sess.Close()
	}()

	for {
		job, ok := q.Get()
		if !ok {
			return
		}

		p.phase[id].set(PhaseFetch)
		err := p.process(id, sess, job)
		if err != nil {
			if job.Retry < p.RetryCount {
				job.Retry++
				q.Put(job)
			} else {
				p.mu.Lock()
				p.Failed = append(p.Failed, fmt.Sprintf("%s %s (%s)", job.Kind, job.Path, err.Error()))
				p.mu.Unlock()
			}
			p.phase[id].set(PhaseError)
			sess.Close()
		} else {
			p.phase[id].set(PhaseDone)
		}
		q.TaskDone()
	}
}

func (p *Pool) process(id int, sess *ftpsession.Session, job types.Job) error {
	if job.Kind == types.JobRemove {
		label := p.counter.Next()
		if p.Log != nil {
			p.Log.Info(fmt.Sprintf("Removing (%s) %s", label, job.Path))
		}
		if err := sess.DeleteFileOrDir(p.RemoteRoot + job.Path); err != nil {
			return err
		}
		return nil
	}

	return p.upload(id, sess, job)
}

func (p *Pool) upload(id int, sess *ftpsession.Session, job types.Job) error {
	local, mapped := p.Mapping.Resolve(job.Path)
	if !mapped {
		local = p.LocalRoot + job.Path
	}

	info, statErr := os.Stat(local)
	if statErr != nil {
		return ErrorLocalSource.Error(statErr)
	}

	remote := p.RemoteRoot + job.Path

	if info.IsDir() {
		p.phase[id].set(PhaseUpload)
		if err := sess.Mkdir(remote); err != nil {
			return err
		}
		p.phase[id].set(PhaseIndex)
		return p.Index.Write(job.Path)
	}

	label := p.counter.Next()
	prefix := fmt.Sprintf("Uploading (%s) %s", label, job.Path)
	if job.Retry > 0 {
		prefix = fmt.Sprintf("Retrying to upload (%d of %d) %s", job.Retry, p.RetryCount, job.Path)
	}
	if p.Log != nil {
		p.Log.Info(prefix)
	}

	f, openErr := os.Open(local)
	if openErr != nil {
		return ErrorLocalSource.Error(openErr)
	}
	defer f.Close()

	var progress ftpsession.ProgressFunc
	if info.Size() > progressThreshold {
		progress = throttledProgress(p.Log, prefix, info.Size())
	}

	p.phase[id].set(PhaseUpload)
	if err := sess.Store(remote, f, true, progress); err != nil {
		return err
	}

	p.phase[id].set(PhaseIndex)
	return p.Index.Write(job.Path)
}

func throttledProgress(log *applog.Logger, prefix string, total int64) ftpsession.ProgressFunc {
	var (
		mu      sync.Mutex
		last    int
		nextLog time.Time
	)
	return func(written int64) {
		percent := int(written * 100 / total)
		if percent > 100 {
			percent = 100
		}

		mu.Lock()
		defer mu.Unlock()

		if percent == last {
			return
		}
		last = percent
		if time.Now().Before(nextLog) {
			return
		}
		nextLog = time.Now().Add(progressLogInterval)
		if log != nil {
			log.Info(fmt.Sprintf("%s [%d%%]", prefix, percent))
		}
	}
}
