// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package version

// Version can be set via:
// -ldflags="-X 'github.com/beanbaginc/cloudformer/pkg/version.Version=$TAG'"
var Version = "2.0.0"
