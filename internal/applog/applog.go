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

// Package applog wraps logrus with an optional file hook driven by the
// config's file_log flag. Callers attach structured fields (phase, worker,
// path) to an entry through With.
package applog

import (
	"os"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	l *logrus.Logger
}

// New builds a Logger writing to stderr. When filePath is non-empty, every
// entry is duplicated to that file (best-effort: a failure to open it is
// logged once and otherwise ignored, matching the teacher's hookfile
// fallback behavior).
func New(filePath string) *Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stderr)

	if filePath != "" {
		if f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			l.AddHook(&fileHook{file: f, formatter: l.Formatter})
		} else {
			l.WithError(err).Warn("could not open file_log target, logging to stderr only")
		}
	}

	return &Logger{l: l}
}

func (g *Logger) With(fields logrus.Fields) *logrus.Entry {
	return g.l.WithFields(fields)
}

func (g *Logger) Info(args ...interface{})  { g.l.Info(args...) }
func (g *Logger) Warn(args ...interface{})  { g.l.Warn(args...) }
func (g *Logger) Error(args ...interface{}) { g.l.Error(args...) }
func (g *Logger) Fatal(args ...interface{}) { g.l.Error(args...) }

type fileHook struct {
	file      *os.File
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.file.Write(b)
	return err
}
