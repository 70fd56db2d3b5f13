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

// Package cryptpass encrypts and decrypts connection.password with a
// passphrase (spec §9 supplement 4), using AES-256-GCM the way the
// teacher's crypt package does, but deriving the key per call from a
// PBKDF2-SHA256 passphrase stretch instead of the teacher's
// package-level SetKeyByte/SetKeyHex globals — those globals are the
// kind of singleton state spec §9's DESIGN NOTES flags for replacement
// by explicit construction, and a shared deploy config's password salt
// is naturally per-call state, not process-global.
package cryptpass

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/pbkdf2"

	liberr "github.com/nabbar/ftpdeploy/internal/errors"
)

const (
	saltSize   = 16
	nonceSize  = 12
	keySize    = 32
	iterations = 480000
)

// Encrypt derives a key from passphrase and a fresh random salt, then
// seals plaintext with AES-256-GCM. Returns the ciphertext (nonce
// prepended) and the salt, both hex-encoded, for storage as
// connection.password_encrypted / connection.password_salt.
func Encrypt(passphrase, plaintext string) (ciphertextHex, saltHex string, err liberr.Error) {
	salt := make([]byte, saltSize)
	if _, e := io.ReadFull(rand.Reader, salt); e != nil {
		return "", "", ErrorRandom.Error(e)
	}

	nonce := make([]byte, nonceSize)
	if _, e := io.ReadFull(rand.Reader, nonce); e != nil {
		return "", "", ErrorRandom.Error(e)
	}

	aesgcm, cerr := newCipher(passphrase, salt)
	if cerr != nil {
		return "", "", cerr
	}

	sealed := aesgcm.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(append(nonce, sealed...)), hex.EncodeToString(salt), nil
}

// Decrypt reverses Encrypt given the same passphrase and the stored
// salt. A wrong passphrase or corrupt ciphertext surfaces as
// ErrorDecrypt (spec §7 DecryptionFailedError), which callers treat as
// "prompt again".
func Decrypt(passphrase, ciphertextHex, saltHex string) (string, liberr.Error) {
	salt, e := hex.DecodeString(saltHex)
	if e != nil {
		return "", ErrorEncoding.Error(e)
	}
	raw, e := hex.DecodeString(ciphertextHex)
	if e != nil {
		return "", ErrorEncoding.Error(e)
	}
	if len(raw) < nonceSize {
		return "", ErrorEncoding.Error(nil)
	}
	nonce, sealed := raw[:nonceSize], raw[nonceSize:]

	aesgcm, cerr := newCipher(passphrase, salt)
	if cerr != nil {
		return "", cerr
	}

	plain, e := aesgcm.Open(nil, nonce, sealed, nil)
	if e != nil {
		return "", ErrorDecrypt.Error(e)
	}
	return string(plain), nil
}

func newCipher(passphrase string, salt []byte) (cipher.AEAD, liberr.Error) {
	key := pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrorCipher.Error(err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrorCipher.Error(err)
	}
	return aesgcm, nil
}
