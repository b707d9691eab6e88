// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

/*
Package filepos provides the concept of Position: a source name (usually a file)
and line number within that source.

File positions are crucial when reporting errors to the user. Not every
Position points within a file (e.g. values built in memory). The zero value
of Position (can be created using NewUnknownPosition()) represents this case.
*/
package filepos
