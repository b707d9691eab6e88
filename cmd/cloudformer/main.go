// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	uierrs "github.com/cppforlife/go-cli-ui/errors"

	"github.com/beanbaginc/cloudformer/pkg/cmd"
)

func main() {
	command := cmd.NewDefaultCloudFormerCmd()

	err := command.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cloudformer: Error: %s\n", uierrs.NewMultiLineError(err))
		os.Exit(1)
	}
}
