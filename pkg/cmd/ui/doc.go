// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

/*
Package ui provides a thin abstraction over console output for the
cloudformer commands (typically, a tty device).
*/
package ui
