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

package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nabbar/ftpdeploy/internal/config"
)

func writeConfig(t *testing.T, dir, name string, body map[string]interface{}) string {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, b, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

func baseConnection() map[string]interface{} {
	return map[string]interface{}{
		"host": "ftp.example.com",
		"user": "deployer",
		"root": "/var/www",
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "deploy", map[string]interface{}{
		"local":      "build",
		"connection": baseConnection(),
	})

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.RetryCount != 10 {
		t.Fatalf("got RetryCount %d want 10", cfg.RetryCount)
	}
	if cfg.Timeout != 10 {
		t.Fatalf("got Timeout %d want 10", cfg.Timeout)
	}
	if cfg.BlockSize != 1024*1024 {
		t.Fatalf("got BlockSize %d want %d", cfg.BlockSize, 1024*1024)
	}
	if cfg.Connection.Port != 21 {
		t.Fatalf("got Connection.Port %d want 21", cfg.Connection.Port)
	}
	if cfg.Dir != dir {
		t.Fatalf("got Dir %q want %q", cfg.Dir, dir)
	}
}

func TestLoad_MissingRequiredFieldFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "deploy", map[string]interface{}{
		"connection": map[string]interface{}{
			"user": "deployer",
			"root": "/var/www",
			// host intentionally omitted
		},
	})

	if _, err := config.Load(path); err == nil {
		t.Fatal("expected Load to fail validation with connection.host missing")
	}
}

func TestLoad_RootSlashNormalizesToEmpty(t *testing.T) {
	dir := t.TempDir()
	conn := baseConnection()
	conn["root"] = "/"
	path := writeConfig(t, dir, "deploy", map[string]interface{}{
		"connection": conn,
	})

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Connection.Root != "" {
		t.Fatalf("got Root %q want empty string for bare \"/\"", cfg.Connection.Root)
	}
}

func TestLoad_EnvOverridesTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "deploy", map[string]interface{}{
		"connection": baseConnection(),
	})

	t.Setenv("FTPDEPLOY_CONNECTION_HOST", "override.example.com")
	t.Setenv("FTPDEPLOY_CONNECTION_USER", "override-user")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Connection.Host != "override.example.com" {
		t.Fatalf("got Host %q want override.example.com", cfg.Connection.Host)
	}
	if cfg.Connection.User != "override-user" {
		t.Fatalf("got User %q want override-user", cfg.Connection.User)
	}
}

func TestLoad_MalformedJSONFails(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "deploy")
	if err := os.WriteFile(p, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := config.Load(p); err == nil {
		t.Fatal("expected Load to reject malformed JSON")
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected Load to fail for a nonexistent path")
	}
}

func TestResolve_PrefersExplicitPath(t *testing.T) {
	dir := t.TempDir()
	explicit := writeConfig(t, dir, "custom.json", map[string]interface{}{"local": "build"})
	writeConfig(t, dir, "deploy", map[string]interface{}{"local": "other"})

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	got, rerr := config.Resolve(explicit, "")
	if rerr != nil {
		t.Fatalf("Resolve: %v", rerr)
	}
	if got != explicit {
		t.Fatalf("got %q want %q", got, explicit)
	}
}

func TestResolve_FallsBackToDeployInCWD(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "deploy", map[string]interface{}{"local": "build"})

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	got, rerr := config.Resolve("", "")
	if rerr != nil {
		t.Fatalf("Resolve: %v", rerr)
	}
	if got != "deploy" {
		t.Fatalf("got %q want \"deploy\"", got)
	}
}

func TestResolve_FallsBackToAliasFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".ftp-staging.json", map[string]interface{}{"local": "build"})

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	got, rerr := config.Resolve("", "staging")
	if rerr != nil {
		t.Fatalf("Resolve: %v", rerr)
	}
	if got != ".ftp-staging.json" {
		t.Fatalf("got %q want \".ftp-staging.json\"", got)
	}
}

func TestResolve_NoCandidateFails(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	if _, rerr := config.Resolve("", "unknown-alias"); rerr == nil {
		t.Fatal("expected Resolve to fail when no candidate file exists")
	}
}

func TestSave_RoundTripsThroughLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "deploy", map[string]interface{}{
		"connection": baseConnection(),
	})

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg.Connection.PasswordEncrypted = "deadbeef"
	cfg.Connection.Password = ""
	if serr := config.Save(cfg, path); serr != nil {
		t.Fatalf("Save: %v", serr)
	}

	reloaded, rerr := config.Load(path)
	if rerr != nil {
		t.Fatalf("Load after Save: %v", rerr)
	}
	if reloaded.Connection.PasswordEncrypted != "deadbeef" {
		t.Fatalf("got PasswordEncrypted %q want deadbeef", reloaded.Connection.PasswordEncrypted)
	}
}

func TestResolveBindAddress_EmptyIsEmpty(t *testing.T) {
	got, err := config.ResolveBindAddress("")
	if err != nil {
		t.Fatalf("ResolveBindAddress: %v", err)
	}
	if got != "" {
		t.Fatalf("got %q want empty string", got)
	}
}

func TestResolveBindAddress_LiteralIPPassesThrough(t *testing.T) {
	got, err := config.ResolveBindAddress("127.0.0.1")
	if err != nil {
		t.Fatalf("ResolveBindAddress: %v", err)
	}
	if got != "127.0.0.1" {
		t.Fatalf("got %q want 127.0.0.1", got)
	}
}

func TestResolveBindAddress_UnknownInterfaceFails(t *testing.T) {
	if _, err := config.ResolveBindAddress("not-a-real-interface-xyz"); err == nil {
		t.Fatal("expected ResolveBindAddress to fail for an unknown interface name")
	}
}
