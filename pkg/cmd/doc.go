// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

/*
Package cmd is home to the full set of cloudformer's "commands" -- instances
of cobra.Command (not to be confused with ./cmd which contains the
bootstrapping for executing cloudformer in various environments).

A cobra.Command is the starting point of execution.

For a list of commands run:

	$ cloudformer help

The default command is "compile".
*/
package cmd
