// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	goversion "github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	cmdui "github.com/beanbaginc/cloudformer/pkg/cmd/ui"
	"github.com/beanbaginc/cloudformer/pkg/config"
	"github.com/beanbaginc/cloudformer/pkg/template"
)

type CompileOptions struct {
	FilePath       string
	OutputPath     string
	ConfigPath     string
	ForAMIs        bool
	Watch          bool
	RequireVersion string
	Debug          bool
}

func NewCompileOptions() *CompileOptions {
	return &CompileOptions{}
}

func NewCompileCmd(o *CompileOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a template into a provisioning-ready JSON document",
		RunE: func(_ *cobra.Command, _ []string) error {
			return o.Run(cmdui.NewTTY(o.Debug))
		},
	}
	cmd.Flags().StringVarP(&o.FilePath, "file", "f", "-", "Template file to compile ('-' for stdin)")
	cmd.Flags().StringVarP(&o.OutputPath, "output", "o", "", "File to write the compiled document to (default stdout)")
	cmd.Flags().StringVar(&o.ConfigPath, "config", "", "Config file (default $CLOUDFORMER_CONFIG, then ~/.cloudformer.toml)")
	cmd.Flags().BoolVar(&o.ForAMIs, "for-amis", false, "Compile for an AMI build")
	cmd.Flags().BoolVar(&o.Watch, "watch", false, "Recompile whenever the template or a file it pulls in changes")
	cmd.Flags().StringVar(&o.RequireVersion, "require-version", "", "Fail unless the template's Meta Version satisfies this constraint")
	cmd.Flags().BoolVar(&o.Debug, "debug", false, "Print debug output")
	return cmd
}

func (o *CompileOptions) Run(ui cmdui.UI) error {
	t1 := time.Now()

	defer func() {
		ui.Debugf("total: %s\n", time.Since(t1))
	}()

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}

	var constraints goversion.Constraints
	if o.RequireVersion != "" {
		constraints, err = goversion.NewConstraint(o.RequireVersion)
		if err != nil {
			return fmt.Errorf("Parsing --require-version constraint '%s': %s", o.RequireVersion, err)
		}
	}

	outputPath := o.outputPath(cfg)

	if o.Watch {
		return o.watchLoop(ui, outputPath, constraints)
	}

	_, err = o.compileOnce(ui, outputPath, constraints)
	return err
}

// outputPath decides where the compiled document goes: an explicit -o
// wins, then the config file's output_dir, then stdout (empty).
func (o *CompileOptions) outputPath(cfg config.Config) string {
	if o.OutputPath != "" {
		return o.OutputPath
	}
	if cfg.OutputDir != "" && o.FilePath != "-" {
		base := filepath.Base(o.FilePath)
		name := base[:len(base)-len(filepath.Ext(base))] + ".json"
		return filepath.Join(cfg.OutputDir, name)
	}
	return ""
}

// compileOnce compiles the template a single time. It returns the files
// involved so watch mode knows what to keep an eye on; on a failed
// compile that is just the template itself.
func (o *CompileOptions) compileOnce(ui cmdui.UI, outputPath string,
	constraints goversion.Constraints) ([]string, error) {

	t1 := time.Now()

	defer func() {
		ui.Debugf("compile: %s\n", time.Since(t1))
	}()

	files := []string{}
	if o.FilePath != "-" {
		files = append(files, o.FilePath)
	}

	compiler := template.NewCompiler(o.ForAMIs)

	if o.FilePath == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return files, fmt.Errorf("Reading template from stdin: %s", err)
		}
		err = compiler.LoadString(string(data))
		if err != nil {
			return files, err
		}
	} else {
		err := compiler.LoadFile(o.FilePath)
		if err != nil {
			return files, err
		}
		files = append(files, o.dependentFiles(compiler)...)
	}

	if constraints != nil {
		err := checkTemplateVersion(compiler, constraints, o.RequireVersion)
		if err != nil {
			return files, err
		}
	}

	data, err := compiler.ToJSON()
	if err != nil {
		return files, err
	}

	if outputPath == "" {
		ui.Printf("%s\n", data)
		return files, nil
	}

	err = os.MkdirAll(filepath.Dir(outputPath), 0755)
	if err != nil {
		return files, fmt.Errorf("Creating output directory: %s", err)
	}
	err = os.WriteFile(outputPath, data, 0644)
	if err != nil {
		return files, fmt.Errorf("Writing to '%s': %s", outputPath, err)
	}

	ui.Debugf("wrote %s\n", outputPath)
	return files, nil
}

// dependentFiles resolves the template's imported and embedded file
// names against the template's directory.
func (o *CompileOptions) dependentFiles(compiler *template.Compiler) []string {
	dir := filepath.Dir(o.FilePath)

	var files []string
	for _, name := range compiler.ImportedFiles {
		files = append(files, resolveDependentFile(dir, name))
	}
	for _, name := range compiler.EmbeddedFiles {
		files = append(files, resolveDependentFile(dir, name))
	}
	return files
}

func resolveDependentFile(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func checkTemplateVersion(compiler *template.Compiler,
	constraints goversion.Constraints, constraintStr string) error {

	value, found := compiler.Meta.Get("Version")
	if !found {
		return fmt.Errorf("Template does not set Meta Version (--require-version '%s')",
			constraintStr)
	}

	version, err := goversion.NewVersion(fmt.Sprintf("%v", value))
	if err != nil {
		return fmt.Errorf("Parsing template version '%v': %s", value, err)
	}

	if !constraints.Check(version) {
		return fmt.Errorf("Template version '%s' does not satisfy '%s'",
			version, constraintStr)
	}
	return nil
}

func (o *CompileOptions) watchLoop(ui cmdui.UI, outputPath string,
	constraints goversion.Constraints) error {

	if o.FilePath == "-" {
		return fmt.Errorf("Expected a template file to watch (stdin cannot be watched)")
	}

	for {
		files, err := o.compileOnce(ui, outputPath, constraints)
		if err != nil {
			ui.Warnf("Error: %s\n", err)
		}

		err = waitForChange(ui, files)
		if err != nil {
			return err
		}

		// Editors often replace the file rather than write it in place.
		// Give the new one a moment to land before re-reading.
		time.Sleep(100 * time.Millisecond)
	}
}

func waitForChange(ui cmdui.UI, files []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("Starting file watcher: %s", err)
	}

	defer watcher.Close()

	added := 0
	for _, file := range files {
		err := watcher.Add(file)
		if err != nil {
			ui.Warnf("Cannot watch '%s': %s\n", file, err)
			continue
		}
		added++
	}
	if added == 0 {
		return fmt.Errorf("Expected at least one watchable file")
	}

	for {
		select {
		case event := <-watcher.Events:
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Rename == fsnotify.Rename ||
				event.Op&fsnotify.Remove == fsnotify.Remove {
				ui.Debugf("%s changed\n", event.Name)
				return nil
			}
		case err := <-watcher.Errors:
			ui.Warnf("Watcher error: %s\n", err)
		}
	}
}
