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

// Package config loads the JSON deployment file (spec §6), decodes it with
// mapstructure the way ftpclient.Config does, validates required fields
// with go-playground/validator, and layers FTPDEPLOY_-prefixed environment
// overrides on top via viper.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"

	libval "github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	liberr "github.com/nabbar/ftpdeploy/internal/errors"
)

const (
	defaultRetryCount = 10
	defaultTimeout    = 10
	defaultBlockSize  = 1024 * 1024
	defaultPort       = 21

	envPrefix = "FTPDEPLOY"
)

// Connection holds the server block of the configuration file.
type Connection struct {
	Threads             int    `mapstructure:"threads" json:"threads"`
	Secure              bool   `mapstructure:"secure" json:"secure"`
	Implicit            bool   `mapstructure:"implicit" json:"implicit"`
	Passive             bool   `mapstructure:"passive" json:"passive"`
	PassiveWorkaround   bool   `mapstructure:"passive_workaround" json:"passive_workaround"`
	ConnectionLimitWait int    `mapstructure:"connection_limit_wait" json:"connection_limit_wait"`
	Host                string `mapstructure:"host" json:"host" validate:"required"`
	Port                int    `mapstructure:"port" json:"port"`
	User                string `mapstructure:"user" json:"user" validate:"required"`
	Password            string `mapstructure:"password" json:"password"`
	PasswordEncrypted   string `mapstructure:"password_encrypted" json:"password_encrypted"`
	PasswordSalt        string `mapstructure:"password_salt" json:"password_salt"`
	PasswordEncryption  bool   `mapstructure:"password_encryption" json:"password_encryption"`
	Root                string `mapstructure:"root" json:"root" validate:"required"`
	Bind                string `mapstructure:"bind" json:"bind"`
}

// Config is the decoded form of the JSON deployment file (spec §6).
type Config struct {
	Local        string            `mapstructure:"local" json:"local"`
	Connection   Connection        `mapstructure:"connection" json:"connection" validate:"required"`
	RetryCount   int               `mapstructure:"retry_count" json:"retry_count"`
	Timeout      int               `mapstructure:"timeout" json:"timeout"`
	Ignore       []string          `mapstructure:"ignore" json:"ignore"`
	Purge        []string          `mapstructure:"purge" json:"purge"`
	PurgePartial map[string]string `mapstructure:"purge_partial" json:"purge_partial"`
	PurgeThreads int               `mapstructure:"purge_threads" json:"purge_threads"`
	FileLog      bool              `mapstructure:"file_log" json:"file_log"`
	BlockSize    int               `mapstructure:"block_size" json:"block_size"`
	Composer     string            `mapstructure:"composer" json:"composer"`
	Before       []string          `mapstructure:"before" json:"before"`
	After        []string          `mapstructure:"after" json:"after"`

	// Dir is the directory the config file was loaded from; Local and
	// Composer are resolved relative to it.
	Dir string `mapstructure:"-" json:"-"`
}

// Resolve finds the configuration file per spec §6: an explicit path, a
// file named "deploy" in the current directory, or ".ftp-<alias>.json".
// A plain os.Stat probe suffices here, so no third-party path-resolution
// library is wired in (DESIGN.md).
func Resolve(explicit, alias string) (string, liberr.Error) {
	candidates := make([]string, 0, 3)
	if explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, "deploy")
	if alias != "" {
		candidates = append(candidates, fmt.Sprintf(".ftp-%s.json", alias))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", ErrorNotFound.Error(nil)
}

// Load reads, decodes, applies environment overrides to, and validates
// the configuration file at path.
func Load(path string) (*Config, liberr.Error) {
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, ErrorNotFound.Error(readErr)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, ErrorDecode.Error(err)
	}

	cfg := &Config{
		RetryCount: defaultRetryCount,
		Timeout:    defaultTimeout,
		BlockSize:  defaultBlockSize,
	}
	cfg.Connection.Port = defaultPort

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, ErrorDecode.Error(err)
	}
	if err = dec.Decode(generic); err != nil {
		return nil, ErrorDecode.Error(err)
	}

	cfg.Dir = filepath.Dir(path)
	applyEnvOverrides(cfg)

	if err := libval.New().Struct(cfg); err != nil {
		e := ErrorValidation.Error(nil)
		if verrs, ok := err.(libval.ValidationErrors); ok {
			for _, v := range verrs {
				e.Add(liberr.New("config field '" + v.Namespace() + "' failed constraint '" + v.Tag() + "'"))
			}
			return nil, e
		}
		return nil, ErrorValidation.Error(err)
	}

	if cfg.Connection.Root == "/" {
		cfg.Connection.Root = ""
	}

	return cfg, nil
}

// Save rewrites path with cfg's current content, used by the --use-encryption
// and --decrypt-in-place CLI utility modes after they mutate the password
// fields. Unknown keys the original file held that don't map to a Config
// field are not preserved.
func Save(cfg *Config, path string) liberr.Error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return ErrorDecode.Error(err)
	}
	if err = os.WriteFile(path, b, 0644); err != nil {
		return ErrorNotFound.Error(err)
	}
	return nil
}

// applyEnvOverrides layers FTPDEPLOY_CONNECTION_HOST-style environment
// variables on top of the decoded file, matching the teacher's viper-based
// config packages (config/viper.go).
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if h := v.GetString("connection_host"); h != "" {
		cfg.Connection.Host = h
	}
	if u := v.GetString("connection_user"); u != "" {
		cfg.Connection.User = u
	}
	if p := v.GetString("connection_password"); p != "" {
		cfg.Connection.Password = p
	}
	if r := v.GetString("connection_root"); r != "" {
		cfg.Connection.Root = r
	}
}

// ResolveBindAddress turns connection.bind into a literal IPv4 address:
// a dotted-quad is returned unchanged, otherwise it is looked up as a
// local interface name (spec §9 supplement 2 — a portable replacement for
// the original's ipconfig/ip-addr shell-out, which is out of scope).
func ResolveBindAddress(bind string) (string, liberr.Error) {
	if bind == "" {
		return "", nil
	}
	if ip := net.ParseIP(bind); ip != nil {
		return ip.String(), nil
	}

	iface, err := net.InterfaceByName(bind)
	if err != nil {
		return "", ErrorValidation.Error(err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", ErrorValidation.Error(err)
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}
	return "", ErrorValidation.Error(fmt.Errorf("interface %q has no IPv4 address", bind))
}
