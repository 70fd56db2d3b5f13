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

package deploy

import (
	"context"
	"os/exec"
	"time"

	"github.com/nabbar/ftpdeploy/internal/applog"
	liberr "github.com/nabbar/ftpdeploy/internal/errors"
)

// commandTimeout bounds each before/after command, matching spec §5.
const commandTimeout = 60 * time.Second

// runCommands executes each shell command in order, capturing combined
// output into log the way the original process.Process.execute
// captured STDOUT (spec §9 supplement 3). The first failing command
// aborts the remaining ones.
func runCommands(dir string, commands []string, log *applog.Logger) liberr.Error {
	for _, c := range commands {
		if c == "" {
			continue
		}
		if err := runCommand(dir, c, log); err != nil {
			return err
		}
	}
	return nil
}

func runCommand(dir, command string, log *applog.Logger) liberr.Error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if log != nil {
		log.With(map[string]interface{}{"command": command}).Info(string(out))
	}
	if err != nil {
		return ErrorCommand.Error(err)
	}
	return nil
}
