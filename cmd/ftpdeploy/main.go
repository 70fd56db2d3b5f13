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

// Command ftpdeploy is the orchestrator entry point (spec §6): a thin
// cobra command that resolves the config file, builds the collaborators
// and delegates everything else to pkg/deploy.Orchestrator.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	spfcbr "github.com/spf13/cobra"

	"github.com/nabbar/ftpdeploy/internal/applog"
	"github.com/nabbar/ftpdeploy/internal/config"
	liberr "github.com/nabbar/ftpdeploy/internal/errors"
	"github.com/nabbar/ftpdeploy/pkg/deploy"
)

type flags struct {
	skip             bool
	purgePartial     bool
	purgeOnly        bool
	purgeSkip        bool
	threads          int
	purgeThreads     int
	bind             string
	force            bool
	dryRun           bool
	clearComposer    bool
	useEncryption    bool
	decrypt          bool
	decryptInPlace   bool
	sharedPassphrase string
	sshAgent         bool
	sshKey           string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *spfcbr.Command {
	f := &flags{}

	cmd := &spfcbr.Command{
		Use:   "ftpdeploy <name>",
		Short: "Incremental FTP deployment engine",
		Long:  "ftpdeploy synchronizes a local directory tree to an FTP destination, uploading only changed files and purging configured remote areas.",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			return run(args[0], f)
		},
	}

	// purge-partial/purge-only/purge-skip/purge-threads have two-letter
	// mnemonics in spec §6 ("-pp", "-po", ...); pflag shorthands are a
	// single rune, so these are registered as long flags only.
	flagset := cmd.Flags()
	flagset.BoolVarP(&f.skip, "skip", "s", false, "skip before/after commands")
	flagset.BoolVar(&f.purgePartial, "purge-partial", false, "substitute purge_partial for purge when extensions match")
	flagset.BoolVar(&f.purgeOnly, "purge-only", false, "skip straight to the purge phase")
	flagset.BoolVar(&f.purgeSkip, "purge-skip", false, "skip the purge phase")
	flagset.IntVarP(&f.threads, "threads", "t", 0, "override connection.threads")
	flagset.IntVar(&f.purgeThreads, "purge-threads", 0, "override purge_threads")
	flagset.StringVarP(&f.bind, "bind", "b", "", "override connection.bind")
	flagset.BoolVarP(&f.force, "force", "f", false, "ignore the existing index")
	flagset.BoolVar(&f.dryRun, "dry-run", false, "report without mutating index or remote")
	flagset.BoolVar(&f.clearComposer, "clear-composer", false, "ignore the composer collaborator this run")
	flagset.BoolVar(&f.useEncryption, "use-encryption", false, "encrypt the plaintext password on first run")
	flagset.BoolVarP(&f.decrypt, "decrypt", "d", false, "decrypt the stored password")
	flagset.BoolVar(&f.decryptInPlace, "decrypt-in-place", false, "rewrite the config file with the decrypted password")
	flagset.StringVar(&f.sharedPassphrase, "shared-passphrase", "", "passphrase for password encryption/decryption")
	flagset.BoolVar(&f.sshAgent, "ssh-agent", false, "source the passphrase from an ssh-agent")
	flagset.StringVar(&f.sshKey, "ssh-key", "", "ssh key identity to query the agent for")

	return cmd
}

func run(name string, f *flags) error {
	path, perr := config.Resolve(name, name)
	if perr != nil {
		return perr
	}
	cfg, cerr := config.Load(path)
	if cerr != nil {
		return cerr
	}

	passphrase := f.sharedPassphrase
	if (f.useEncryption || f.decrypt) && passphrase == "" {
		if f.sshAgent || f.sshKey != "" {
			return notSupported("ssh-agent passphrase retrieval")
		}
		p, rerr := promptPassphrase()
		if rerr != nil {
			return rerr
		}
		passphrase = p
	}

	if f.useEncryption {
		return encryptPassword(path, cfg, passphrase)
	}
	if f.decrypt {
		return decryptPassword(path, cfg, passphrase, f.decryptInPlace)
	}

	var logPath string
	if cfg.FileLog {
		localRoot := cfg.Local
		if !filepath.IsAbs(localRoot) {
			localRoot = filepath.Join(cfg.Dir, localRoot)
		}
		logPath = filepath.Join(localRoot, filepath.Base(path)+".log")
	}
	log := applog.New(logPath)

	opt := deploy.Options{
		Skip:                 f.skip,
		PurgePartial:         f.purgePartial,
		PurgeOnly:            f.purgeOnly,
		PurgeSkip:            f.purgeSkip,
		ThreadsOverride:      f.threads,
		PurgeThreadsOverride: f.purgeThreads,
		BindOverride:         f.bind,
		Force:                f.force,
		DryRun:               f.dryRun,
		ClearComposer:        f.clearComposer,
		Passphrase:           passphrase,
	}

	ctx, cancel := rootContext()
	defer cancel()

	orch := deploy.New(cfg, opt, log, nil)
	if err := orch.Run(ctx); err != nil {
		log.Error(err.Error())
		return err
	}
	return nil
}

func notSupported(feature string) liberr.Error {
	return ErrorNotSupported.Error(fmt.Errorf("%s is not supported in this build", feature))
}
