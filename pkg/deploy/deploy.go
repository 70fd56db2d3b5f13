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

// Package deploy sequences the whole run: scan, read index, plan,
// upload, remove, upload index, purge (spec §4.7). It is the only
// package that owns a Config, an Index, a Counter and the failure sink
// all at once; every collaborator below it is handed just the pieces
// it needs, per spec §9's "re-architect singletons as constructor
// injection" note.
package deploy

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/nabbar/ftpdeploy/internal/applog"
	"github.com/nabbar/ftpdeploy/internal/config"
	"github.com/nabbar/ftpdeploy/internal/cryptpass"
	liberr "github.com/nabbar/ftpdeploy/internal/errors"
	"github.com/nabbar/ftpdeploy/internal/queue"
	"github.com/nabbar/ftpdeploy/pkg/exclusion"
	"github.com/nabbar/ftpdeploy/pkg/ftpsession"
	"github.com/nabbar/ftpdeploy/pkg/index"
	"github.com/nabbar/ftpdeploy/pkg/planner"
	"github.com/nabbar/ftpdeploy/pkg/purge"
	"github.com/nabbar/ftpdeploy/pkg/scanner"
	"github.com/nabbar/ftpdeploy/pkg/types"
	"github.com/nabbar/ftpdeploy/pkg/worker"
)

// Options carries the CLI flags that alter orchestrator behavior for a
// single run (spec §6 CLI surface).
type Options struct {
	Skip                 bool
	PurgePartial         bool
	PurgeOnly            bool
	PurgeSkip            bool
	ThreadsOverride      int
	PurgeThreadsOverride int
	BindOverride         string
	Force                bool
	DryRun               bool
	ClearComposer        bool

	// Passphrase decrypts connection.password_encrypted when set; an
	// empty passphrase with an encrypted password is a ConfigError.
	Passphrase string
}

// Orchestrator runs one deployment per spec §4.7 step 1-12.
type Orchestrator struct {
	Config   *config.Config
	Options  Options
	Log      *applog.Logger
	Composer Composer
}

// New builds an Orchestrator. composer may be nil; a nil Composer is
// treated as NoopComposer when config.Composer names a path.
func New(cfg *config.Config, opt Options, log *applog.Logger, composer Composer) *Orchestrator {
	return &Orchestrator{Config: cfg, Options: opt, Log: log, Composer: composer}
}

// Run executes the full sequence described by spec §4.7. A non-nil
// error with ErrorFailureSink means the run completed but left jobs
// behind in the failure sink; every other error is a hard stop.
func (o *Orchestrator) Run(ctx context.Context) liberr.Error {
	cfg := o.Config

	if o.Options.DryRun {
		o.info("dry-run: no mutation of the index or remote tree will be performed")
	}

	localRoot := cfg.Local
	if !filepath.IsAbs(localRoot) {
		localRoot = filepath.Join(cfg.Dir, localRoot)
	}
	localRoot = filepath.ToSlash(localRoot)
	remoteRoot := cfg.Connection.Root

	newSession, sessCfgErr := o.sessionFactory()
	if sessCfgErr != nil {
		return sessCfgErr
	}

	threads := cfg.Connection.Threads
	if o.Options.ThreadsOverride > 0 {
		threads = o.Options.ThreadsOverride
	}
	purgeThreads := cfg.PurgeThreads
	if o.Options.PurgeThreadsOverride > 0 {
		purgeThreads = o.Options.PurgeThreadsOverride
	}
	if purgeThreads <= 0 {
		purgeThreads = threads
	}

	if o.Options.PurgeOnly {
		return o.runPurgePhase(newSession, remoteRoot, cfg.Purge, purgeThreads)
	}

	mapping := types.NewMapping()
	roots := []string{localRoot}
	ignored := append([]string{}, cfg.Ignore...)

	if cfg.Composer != "" && !o.Options.ClearComposer {
		composer := o.Composer
		if composer == nil {
			composer = NoopComposer{}
		}
		remotePrefix, localPrefix, cerr := composer.Process(ctx)
		if cerr != nil {
			return ErrorComposer.Error(cerr)
		}
		if localPrefix != "" {
			roots = append(roots, filepath.ToSlash(filepath.Dir(localPrefix)))
			mapping.Add(remotePrefix, localPrefix)
			ignored = append(ignored, remotePrefix, "composer.json", "composer.lock")
		}
	}

	excl := exclusion.New(roots, ignored, mapping)

	if !o.Options.Skip {
		if err := runCommands(cfg.Dir, cfg.Before, o.Log); err != nil {
			return err
		}
	}

	scanResult, serr := scanner.Scan(ctx, roots, excl, scanner.Options{Threads: threads, BlockSize: cfg.BlockSize}, o.Log)
	if serr != nil {
		return serr
	}

	ix := index.New(localRoot, scanResult)

	var prior index.ReadResult
	if o.Options.Force {
		prior = index.ReadResult{Remove: true, Contents: map[types.Path]types.Fingerprint{}}
	} else {
		r, rerr := o.readIndex(newSession, ix, remoteRoot)
		if rerr != nil {
			return rerr
		}
		prior = r
	}

	plan, perr := planner.Compute(scanResult, prior, ix, excl)
	if perr != nil {
		return perr
	}

	var failed []string

	if !o.Options.DryRun {
		if len(plan.Upload) > 0 {
			failed = append(failed, o.runJobs(newSession, mapping, ix, localRoot, remoteRoot, threads, plan.Upload, len(plan.Upload))...)
		}
		if len(plan.Remove) > 0 {
			failed = append(failed, o.runJobs(newSession, mapping, ix, localRoot, remoteRoot, threads, plan.Remove, len(plan.Remove)+plan.PriorSize)...)
		}

		if uerr := o.uploadIndex(newSession, ix, remoteRoot); uerr != nil {
			return uerr
		}
	}

	if !o.Options.PurgeSkip && !o.Options.DryRun {
		purgeList := o.effectivePurgeList(plan.Extensions)
		if perr := o.runPurgePhase(newSession, remoteRoot, purgeList, purgeThreads); perr != nil {
			failed = append(failed, perr.Error())
		}
	}

	if !o.Options.Skip {
		if err := runCommands(cfg.Dir, cfg.After, o.Log); err != nil {
			return err
		}
	}

	if len(failed) > 0 {
		for _, f := range failed {
			o.Log.Error(f)
		}
		return ErrorFailureSink.Error(nil)
	}
	return nil
}

func (o *Orchestrator) sessionFactory() (func() *ftpsession.Session, liberr.Error) {
	cfg := o.Config

	password := cfg.Connection.Password
	if cfg.Connection.PasswordEncrypted != "" {
		if o.Options.Passphrase == "" {
			return nil, config.ErrorValidation.Error(fmt.Errorf("connection.password_encrypted is set but no passphrase was supplied"))
		}
		p, derr := cryptpass.Decrypt(o.Options.Passphrase, cfg.Connection.PasswordEncrypted, cfg.Connection.PasswordSalt)
		if derr != nil {
			return nil, derr
		}
		password = p
	}

	bind := cfg.Connection.Bind
	if o.Options.BindOverride != "" {
		bind = o.Options.BindOverride
	}
	bindAddr, berr := config.ResolveBindAddress(bind)
	if berr != nil {
		return nil, berr
	}

	tlsMode := ""
	if cfg.Connection.Secure {
		if cfg.Connection.Implicit {
			tlsMode = "implicit"
		} else {
			tlsMode = "explicit"
		}
	}

	sessCfg := &ftpsession.Config{
		Hostname:       fmt.Sprintf("%s:%d", cfg.Connection.Host, cfg.Connection.Port),
		Login:          cfg.Connection.User,
		Password:       password,
		ConnTimeout:    time.Duration(cfg.Timeout) * time.Second,
		DisablePassive: !cfg.Connection.Passive,
		TLSMode:        tlsMode,
		BindAddress:    bindAddr,
	}

	return func() *ftpsession.Session {
		return ftpsession.New(sessCfg)
	}, nil
}

func (o *Orchestrator) readIndex(newSession func() *ftpsession.Session, ix *index.Index, remoteRoot string) (index.ReadResult, liberr.Error) {
	sess := newSession()
	defer sess.Close()

	if err := sess.Connect(); err != nil {
		return index.ReadResult{}, err
	}
	return ix.Read(sess, remoteRoot)
}

func (o *Orchestrator) uploadIndex(newSession func() *ftpsession.Session, ix *index.Index, remoteRoot string) liberr.Error {
	sess := newSession()
	defer sess.Close()

	if err := sess.Connect(); err != nil {
		return err
	}
	return ix.Upload(sess, remoteRoot, 10)
}

func (o *Orchestrator) runJobs(newSession func() *ftpsession.Session, mapping *types.Mapping, ix *index.Index, localRoot, remoteRoot string, threads int, jobs []types.Job, total int) []string {
	counter := types.NewCounter()
	counter.Reset(total)

	q := queue.New[types.Job]()
	for _, j := range jobs {
		q.Put(j)
	}

	pool := &worker.Pool{
		Threads:    threads,
		RetryCount: o.Config.RetryCount,
		LocalRoot:  localRoot,
		RemoteRoot: remoteRoot,
		Mapping:    mapping,
		Index:      ix,
		NewSession: newSession,
		Log:        o.Log,
	}
	pool.Run(q, counter)
	return pool.Failed
}

// effectivePurgeList resolves spec §4.7 step 10's purge_partial
// substitution: when enabled and at least one extension touched this
// run maps in purge_partial, the full purge list is replaced by the
// mapped subset.
func (o *Orchestrator) effectivePurgeList(extensions map[string]bool) []string {
	if !o.Options.PurgePartial {
		return o.Config.Purge
	}

	substituted := make([]string, 0, len(extensions))
	matched := false
	for ext := range extensions {
		if p, ok := o.Config.PurgePartial[ext]; ok {
			substituted = append(substituted, p)
			matched = true
		}
	}
	if !matched {
		return o.Config.Purge
	}
	return substituted
}

// runPurgePhase stages each configured purge path (rename-and-recreate
// on permission error, scavenging sibling abandoned temps) and hands
// the collected temps to the purge engine (spec §4.7 step 10, §4.5).
func (o *Orchestrator) runPurgePhase(newSession func() *ftpsession.Session, remoteRoot string, purgeList []string, threads int) liberr.Error {
	if len(purgeList) == 0 {
		return nil
	}

	staging := newSession()
	if err := staging.Connect(); err != nil {
		staging.Close()
		return err
	}

	q := queue.New[types.PurgeTask]()
	pending := 0

	for _, p := range purgeList {
		remote := remoteRoot + p

		if err := staging.DeleteFile(remote); err != nil && err.HasCode(ftpsession.ErrorPermission) {
			tmp := fmt.Sprintf("%s_%d.tmp", remote, time.Now().Unix())
			if rerr := staging.Rename(remote, tmp); rerr == nil {
				q.Put(types.PurgeTask{Path: tmp, Type: types.PurgeUnknown})
				pending++
				_ = staging.Mkdir(remote)
			}
		}

		parent := path.Dir(remote)
		base := path.Base(remote)
		re := regexp.MustCompile("^" + regexp.QuoteMeta(base) + `_[0-9]+\.tmp$`)

		if entries, lerr := staging.List(parent, false); lerr == nil {
			for _, en := range entries {
				if !en.Dir && re.MatchString(en.Name) {
					q.Put(types.PurgeTask{Path: parent + "/" + en.Name, Type: types.PurgeUnknown})
					pending++
				}
			}
		}
	}
	staging.Close()

	if pending == 0 {
		return nil
	}

	engine := &purge.Engine{Threads: threads, NewSession: func() purge.Conn { return newSession() }, Log: o.Log}
	engine.Run(q)

	dirs, files := engine.Counts()
	o.info(fmt.Sprintf("purge complete: %d directories, %d files removed", dirs, files))
	return nil
}

func (o *Orchestrator) info(msg string) {
	if o.Log != nil {
		o.Log.Info(msg)
	}
}
