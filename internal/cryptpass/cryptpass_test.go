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

package cryptpass_test

import (
	"testing"

	"github.com/nabbar/ftpdeploy/internal/cryptpass"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	ciphertext, salt, err := cryptpass.Encrypt("correct horse battery staple", "s3cr3t-ftp-password")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if ciphertext == "" || salt == "" {
		t.Fatal("expected non-empty ciphertext and salt")
	}

	plain, derr := cryptpass.Decrypt("correct horse battery staple", ciphertext, salt)
	if derr != nil {
		t.Fatalf("Decrypt: %v", derr)
	}
	if plain != "s3cr3t-ftp-password" {
		t.Fatalf("got %q want %q", plain, "s3cr3t-ftp-password")
	}
}

func TestEncrypt_IsRandomizedPerCall(t *testing.T) {
	a, saltA, err := cryptpass.Encrypt("pw", "same-plaintext")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, saltB, err := cryptpass.Encrypt("pw", "same-plaintext")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if a == b {
		t.Fatal("expected distinct ciphertexts across calls (fresh nonce)")
	}
	if saltA == saltB {
		t.Fatal("expected distinct salts across calls")
	}
}

func TestDecrypt_WrongPassphraseFails(t *testing.T) {
	ciphertext, salt, err := cryptpass.Encrypt("right-passphrase", "payload")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, derr := cryptpass.Decrypt("wrong-passphrase", ciphertext, salt); derr == nil {
		t.Fatal("expected Decrypt with the wrong passphrase to fail")
	}
}

func TestDecrypt_CorruptCiphertextFails(t *testing.T) {
	ciphertext, salt, err := cryptpass.Encrypt("pw", "payload")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	corrupt := ciphertext[:len(ciphertext)-2] + "00"
	if _, derr := cryptpass.Decrypt("pw", corrupt, salt); derr == nil {
		t.Fatal("expected Decrypt of tampered ciphertext to fail")
	}
}

func TestDecrypt_InvalidHexEncoding(t *testing.T) {
	if _, err := cryptpass.Decrypt("pw", "not-hex!!", "not-hex!!"); err == nil {
		t.Fatal("expected Decrypt to reject invalid hex encoding")
	}
}

func TestDecrypt_TruncatedCiphertextShorterThanNonce(t *testing.T) {
	_, salt, err := cryptpass.Encrypt("pw", "payload")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, derr := cryptpass.Decrypt("pw", "aabb", salt); derr == nil {
		t.Fatal("expected Decrypt to reject a ciphertext shorter than the nonce")
	}
}
