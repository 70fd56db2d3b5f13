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

package main

import (
	"fmt"
	"os"
	"syscall"

	libterm "golang.org/x/term"

	"github.com/nabbar/ftpdeploy/internal/config"
	"github.com/nabbar/ftpdeploy/internal/cryptpass"
	liberr "github.com/nabbar/ftpdeploy/internal/errors"
)

// promptPassphrase reads a passphrase from the terminal without echo,
// matching the teacher's interactive-prompt dependency (golang.org/x/term
// in go.mod) rather than reading it off stdin in cleartext.
func promptPassphrase() (string, liberr.Error) {
	fmt.Fprint(os.Stderr, "passphrase: ")
	b, err := libterm.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", ErrorConfig.Error(err)
	}
	return string(b), nil
}

// encryptPassword implements --use-encryption: derive password_encrypted
// and password_salt from the plaintext password, clear the plaintext, and
// persist the file (spec §9 supplement 4).
func encryptPassword(path string, cfg *config.Config, passphrase string) liberr.Error {
	if cfg.Connection.Password == "" {
		return ErrorConfig.Error(fmt.Errorf("connection.password is empty, nothing to encrypt"))
	}

	ciphertext, salt, err := cryptpass.Encrypt(passphrase, cfg.Connection.Password)
	if err != nil {
		return err
	}

	cfg.Connection.PasswordEncrypted = ciphertext
	cfg.Connection.PasswordSalt = salt
	cfg.Connection.Password = ""

	return config.Save(cfg, path)
}

// decryptPassword implements -d/--decrypt and --decrypt-in-place: recover
// the plaintext password from password_encrypted/password_salt, optionally
// rewriting the config file with the plaintext restored.
func decryptPassword(path string, cfg *config.Config, passphrase string, inPlace bool) liberr.Error {
	if cfg.Connection.PasswordEncrypted == "" {
		return ErrorConfig.Error(fmt.Errorf("connection.password_encrypted is empty, nothing to decrypt"))
	}

	plain, err := cryptpass.Decrypt(passphrase, cfg.Connection.PasswordEncrypted, cfg.Connection.PasswordSalt)
	if err != nil {
		return err
	}

	if !inPlace {
		fmt.Println(plain)
		return nil
	}

	cfg.Connection.Password = plain
	cfg.Connection.PasswordEncrypted = ""
	cfg.Connection.PasswordSalt = ""
	return config.Save(cfg, path)
}
