// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package ui

import (
	"fmt"
	"io"
	"os"
)

// UI is the console surface the commands write to. Printf goes to
// stdout, Warnf to stderr, and Debugf to stderr only when debug
// output was requested.
type UI interface {
	Printf(str string, args ...interface{})
	Warnf(str string, args ...interface{})
	Debugf(str string, args ...interface{})
}

type TTY struct {
	debug  bool
	stdout io.Writer
	stderr io.Writer
}

var _ UI = TTY{}

func NewTTY(debug bool) TTY {
	return TTY{debug, os.Stdout, os.Stderr}
}

// NewCustomWriterTTY is used by tests to capture what would have been
// written to stdout/stderr.
func NewCustomWriterTTY(debug bool, stdout, stderr io.Writer) TTY {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return TTY{debug, stdout, stderr}
}

func (t TTY) Printf(str string, args ...interface{}) {
	fmt.Fprintf(t.stdout, str, args...)
}

func (t TTY) Warnf(str string, args ...interface{}) {
	fmt.Fprintf(t.stderr, str, args...)
}

func (t TTY) Debugf(str string, args ...interface{}) {
	if t.debug {
		fmt.Fprintf(t.stderr, str, args...)
	}
}
