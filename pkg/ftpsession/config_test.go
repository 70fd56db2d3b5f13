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

package ftpsession_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/nabbar/ftpdeploy/pkg/ftpsession"
)

var _ = Describe("Config", func() {
	It("rejects a missing hostname", func() {
		cfg := &Config{Login: "u", Password: "p"}
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("accepts a host:port hostname", func() {
		cfg := &Config{Hostname: "ftp.example.com:21"}
		Expect(cfg.Validate()).ToNot(HaveOccurred())
	})

	It("rejects an unknown tls_mode", func() {
		cfg := &Config{Hostname: "ftp.example.com:21", TLSMode: "bogus"}
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("accepts explicit and implicit tls_mode", func() {
		for _, m := range []string{"", "explicit", "implicit"} {
			cfg := &Config{Hostname: "ftp.example.com:21", TLSMode: m}
			Expect(cfg.Validate()).ToNot(HaveOccurred())
		}
	})

	It("carries connection timeout and passive/mlsd toggles", func() {
		cfg := &Config{
			Hostname:       "ftp.example.com:21",
			ConnTimeout:    30 * time.Second,
			DisablePassive: true,
			DisableMLSD:    true,
		}
		Expect(cfg.Validate()).ToNot(HaveOccurred())
		Expect(cfg.ConnTimeout).To(Equal(30 * time.Second))
	})
})
