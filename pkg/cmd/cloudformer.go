// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package cmd

import (
	"github.com/cppforlife/cobrautil"
	"github.com/spf13/cobra"

	"github.com/beanbaginc/cloudformer/pkg/version"
)

type CloudFormerOptions struct{}

func NewDefaultCloudFormerOptions() *CloudFormerOptions {
	return &CloudFormerOptions{}
}

func NewDefaultCloudFormerCmd() *cobra.Command {
	return NewCloudFormerCmd(NewDefaultCloudFormerOptions())
}

func NewCloudFormerCmd(o *CloudFormerOptions) *cobra.Command {
	cmd := NewCompileCmd(NewCompileOptions())

	cmd.Use = "cloudformer"
	cmd.Aliases = nil
	cmd.Version = version.Version
	cmd.Short = "cloudformer compiles stack templates"
	cmd.Long = `cloudformer compiles YAML stack templates into provisioning-ready JSON documents.

Running cloudformer with no subcommand compiles, same as 'cloudformer compile'.`

	// Affects children as well
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	// Disable docs header
	cmd.DisableAutoGenTag = true

	cmd.AddCommand(NewVersionCmd(NewVersionOptions()))
	cmd.AddCommand(NewCompileCmd(NewCompileOptions())) // also reachable by name
	cmd.AddCommand(NewDepsCmd(NewDepsOptions()))
	cmd.AddCommand(NewParamsCmd(NewParamsOptions()))
	cmd.AddCommand(NewWebsiteCmd(NewWebsiteOptions()))

	// Reconfigure Commands
	cobrautil.VisitCommands(cmd, cobrautil.ReconfigureCmdWithSubcmd,
		cobrautil.DisallowExtraArgs, cobrautil.WrapRunEForCmd(cobrautil.ResolveFlagsForCmd))

	return cmd
}
