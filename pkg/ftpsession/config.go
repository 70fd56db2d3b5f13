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

package ftpsession

import (
	"crypto/tls"
	"net"
	"time"

	libval "github.com/go-playground/validator/v10"
	libftp "github.com/jlaffaye/ftp"

	liberr "github.com/nabbar/ftpdeploy/internal/errors"
)

// Config mirrors the connection fields spec §2/§6 puts under the server
// block: host/port, credentials, passive/TLS toggles and the bind address
// a multi-homed deploy host may need to pin egress to.
type Config struct {
	Hostname string `mapstructure:"hostname" json:"hostname" validate:"required,hostname_port"`

	Login    string `mapstructure:"login" json:"login"`
	Password string `mapstructure:"password" json:"password"`

	ConnTimeout time.Duration `mapstructure:"conn_timeout" json:"conn_timeout"`

	// DisablePassive forces active-mode style negotiation by disabling
	// EPSV; the underlying client remains passive-only (no PORT support),
	// a known limitation of the ftp library this package wraps.
	DisablePassive bool `mapstructure:"disable_passive" json:"disable_passive"`
	DisableMLSD    bool `mapstructure:"disable_mlsd" json:"disable_mlsd"`

	// TLSMode selects plain ("") / explicit ("explicit") / implicit
	// ("implicit") TLS, per spec §2's ftps configuration knob.
	TLSMode            string `mapstructure:"tls_mode" json:"tls_mode" validate:"omitempty,oneof=explicit implicit"`
	TLSInsecureSkipVerify bool `mapstructure:"tls_insecure_skip_verify" json:"tls_insecure_skip_verify"`

	// BindAddress is a local IP (or interface name, resolved by the config
	// loader per spec §9 supplement) to source the control connection from.
	BindAddress string `mapstructure:"bind_address" json:"bind_address"`
}

// Validate checks the struct tags via go-playground/validator, matching
// the teacher's ftpclient.Config.Validate shape.
func (c *Config) Validate() liberr.Error {
	if err := libval.New().Struct(c); err != nil {
		e := ErrorConfigMissingHost.Error(nil)
		if verrs, ok := err.(libval.ValidationErrors); ok {
			for _, v := range verrs {
				e.Add(liberr.New("config field '" + v.Namespace() + "' failed constraint '" + v.Tag() + "'"))
			}
			return e
		}
		return ErrorConfigMissingHost.Error(err)
	}
	return nil
}

func (c *Config) dialOptions() []libftp.DialOption {
	opts := make([]libftp.DialOption, 0, 8)

	if c.ConnTimeout > 0 {
		opts = append(opts, libftp.DialWithTimeout(c.ConnTimeout))
	}
	if c.DisablePassive {
		opts = append(opts, libftp.DialWithDisabledEPSV(true))
	}
	if c.DisableMLSD {
		opts = append(opts, libftp.DialWithDisabledMLSD(true))
	}

	switch c.TLSMode {
	case "explicit":
		opts = append(opts, libftp.DialWithExplicitTLS(&tls.Config{InsecureSkipVerify: c.TLSInsecureSkipVerify}))
	case "implicit":
		opts = append(opts, libftp.DialWithTLS(&tls.Config{InsecureSkipVerify: c.TLSInsecureSkipVerify}))
	}

	if c.BindAddress != "" {
		d := &net.Dialer{LocalAddr: &net.TCPAddr{IP: net.ParseIP(c.BindAddress)}}
		opts = append(opts, libftp.DialWithDialFunc(d.Dial))
	}

	return opts
}

func (c *Config) dial() (*libftp.ServerConn, liberr.Error) {
	cli, err := libftp.Dial(c.Hostname, c.dialOptions()...)
	if err != nil {
		return nil, ErrorConnection.Error(err)
	}

	if c.Login == "" && c.Password == "" {
		return cli, nil
	}
	if err = cli.Login(c.Login, c.Password); err != nil {
		_ = cli.Quit()
		return nil, ErrorPermission.Error(err)
	}
	return cli, nil
}
