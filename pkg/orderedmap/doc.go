// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

/*
Package orderedmap provides a map implementation where the order of keys is
maintained (unlike the native Go map).

Compiled templates are rendered as JSON documents whose sections and resource
properties must appear in the order they were authored; this flavor of map is
what keeps that output deterministic and stable.
*/
package orderedmap
