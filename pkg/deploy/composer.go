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

import "context"

// Composer is the dependency-installer collaborator named in spec §1 as
// an out-of-scope external component: the orchestrator only knows it by
// this interface. Process runs the installer and reports the vendor
// tree it produced as a (remote-prefix, local-prefix) pair that becomes
// a second scanning root plus a Mapping entry (spec §4.7 step 4).
type Composer interface {
	Process(ctx context.Context) (remotePrefix, localPrefix string, err error)
}

// NoopComposer satisfies Composer without materializing anything; it is
// the default when config.Composer is empty, and a drop-in placeholder
// when it is set but no real installer is wired into this build.
type NoopComposer struct{}

func (NoopComposer) Process(ctx context.Context) (string, string, error) {
	return "", "", nil
}
