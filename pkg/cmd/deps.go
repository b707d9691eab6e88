// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cmdui "github.com/beanbaginc/cloudformer/pkg/cmd/ui"
	"github.com/beanbaginc/cloudformer/pkg/template"
)

type DepsOptions struct {
	FilePath string
	Target   string
}

func NewDepsOptions() *DepsOptions {
	return &DepsOptions{}
}

func NewDepsCmd(o *DepsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Print a Makefile dependency line for a template",
		RunE: func(_ *cobra.Command, _ []string) error {
			return o.Run(cmdui.NewTTY(false))
		},
	}
	cmd.Flags().StringVarP(&o.FilePath, "file", "f", "", "Template file to inspect")
	cmd.Flags().StringVar(&o.Target, "target", "", "Makefile target the dependency line describes")
	return cmd
}

// Run prints "target: template imports... embeds...", suitable for
// inclusion in a Makefile so compiled documents rebuild when any file
// the template pulls in changes.
func (o *DepsOptions) Run(ui cmdui.UI) error {
	if o.FilePath == "" {
		return fmt.Errorf("Expected a template file (-f)")
	}
	if o.Target == "" {
		return fmt.Errorf("Expected a Makefile target (--target)")
	}

	reader := template.NewReader()
	err := reader.LoadFile(o.FilePath)
	if err != nil {
		return err
	}

	deps := []string{o.FilePath}
	deps = append(deps, reader.State.ImportedFiles...)
	deps = append(deps, reader.State.EmbeddedFiles...)

	ui.Printf("%s: %s\n", o.Target, strings.Join(deps, " "))
	return nil
}
