// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"strings"

	"github.com/cppforlife/go-cli-ui/ui"
	uitable "github.com/cppforlife/go-cli-ui/ui/table"
	"github.com/spf13/cobra"

	"github.com/beanbaginc/cloudformer/pkg/config"
	"github.com/beanbaginc/cloudformer/pkg/orderedmap"
	"github.com/beanbaginc/cloudformer/pkg/template"
)

type ParamsOptions struct {
	FilePath   string
	ConfigPath string
	ForAMIs    bool
	Show       bool
	Values     []string
}

func NewParamsOptions() *ParamsOptions {
	return &ParamsOptions{}
}

func NewParamsCmd(o *ParamsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show a template's parameters or collect values for them",
		RunE: func(_ *cobra.Command, _ []string) error {
			confUI := ui.NewConfUI(ui.NewNoopLogger())
			defer confUI.Flush()
			return o.Run(confUI)
		},
	}
	cmd.Flags().StringVarP(&o.FilePath, "file", "f", "", "Template file to compile")
	cmd.Flags().StringVar(&o.ConfigPath, "config", "", "Config file (default $CLOUDFORMER_CONFIG, then ~/.cloudformer.toml)")
	cmd.Flags().BoolVar(&o.ForAMIs, "for-amis", false, "Compile for an AMI build")
	cmd.Flags().BoolVar(&o.Show, "show", false, "List the parameters instead of collecting values")
	cmd.Flags().StringArrayVar(&o.Values, "param", nil, "Set a parameter, as key=value (can be repeated)")
	return cmd
}

// Run compiles the template and either lists its parameters (--show) or
// collects a value for each one, prompting for anything not covered by
// --param flags or the config file's defaults. Collected values print as
// key=value lines in template order.
func (o *ParamsOptions) Run(confUI ui.UI) error {
	if o.FilePath == "" {
		return fmt.Errorf("Expected a template file (-f)")
	}

	compiler := template.NewCompiler(o.ForAMIs)
	err := compiler.LoadFile(o.FilePath)
	if err != nil {
		return err
	}

	params := templateParams(compiler)

	if o.Show {
		o.showParams(confUI, params)
		return nil
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}

	values, err := parseParamValues(o.Values)
	if err != nil {
		return err
	}
	for key, value := range cfg.Params {
		if _, found := values[key]; !found {
			values[key] = value
		}
	}

	for _, param := range params {
		if _, found := values[param.Name]; found {
			continue
		}
		value, err := promptParam(confUI, param)
		if err != nil {
			return err
		}
		if value != "" {
			values[param.Name] = value
		}
	}

	for _, param := range params {
		if value, found := values[param.Name]; found {
			confUI.PrintLinef("%s=%s", param.Name, value)
		}
	}
	return nil
}

func (o *ParamsOptions) showParams(confUI ui.UI, params []templateParam) {
	paramsTable := uitable.Table{
		Title:   fmt.Sprintf("Parameters in '%s'", o.FilePath),
		Content: "parameters",

		Header: []uitable.Header{
			uitable.NewHeader("Name"),
			uitable.NewHeader("Type"),
			uitable.NewHeader("Required"),
			uitable.NewHeader("Default"),
			uitable.NewHeader("Lookup"),
		},
	}

	for _, param := range params {
		paramsTable.Rows = append(paramsTable.Rows, []uitable.Value{
			uitable.NewValueString(param.Name),
			uitable.NewValueString(param.Type),
			uitable.NewValueBool(param.Required),
			uitable.NewValueString(param.Default),
			uitable.NewValueString(param.Lookup),
		})
	}

	confUI.PrintTable(paramsTable)
}

// promptParam asks the user for one parameter value, showing the
// description and any default. An empty answer takes the default;
// required parameters are asked again until something is given.
func promptParam(confUI ui.UI, param templateParam) (string, error) {
	confUI.PrintLinef("")
	if param.Description != "" {
		confUI.PrintLinef("%s", param.Description)
	}

	label := param.Name
	if param.Default != "" {
		label = fmt.Sprintf("%s [%s]", param.Name, param.Default)
	}

	for {
		var value string
		var err error

		if param.NoEcho {
			value, err = confUI.AskForPassword(label)
		} else {
			value, err = confUI.AskForText(label)
		}
		if err != nil {
			return "", err
		}

		if value == "" {
			value = param.Default
		}
		if value != "" || !param.Required {
			return value, nil
		}
	}
}

type templateParam struct {
	Name        string
	Type        string
	Description string
	Default     string
	NoEcho      bool
	Required    bool
	Lookup      string
}

// templateParams flattens a compiled template's Parameters section into
// rows, folding in the required flags and stack lookups the compiler
// split out of it.
func templateParams(compiler *template.Compiler) []templateParam {
	value, _ := compiler.Doc.Get("Parameters")
	paramsMap, ok := value.(*orderedmap.Map)
	if !ok {
		return nil
	}

	var params []templateParam
	paramsMap.Iterate(func(nameValue, paramValue interface{}) {
		name, ok := nameValue.(string)
		if !ok {
			return
		}

		param := templateParam{
			Name:     name,
			Required: compiler.RequiredParams[name],
		}

		if info, ok := paramValue.(*orderedmap.Map); ok {
			param.Type = stringValue(info, "Type")
			param.Description = stringValue(info, "Description")
			param.Default = stringValue(info, "Default")
			param.NoEcho = strings.EqualFold(stringValue(info, "NoEcho"), "true")
		}

		if lookup, found := compiler.StackParamLookups[name]; found {
			param.Lookup = fmt.Sprintf("%s/%s", lookup.StackName, lookup.OutputName)
		}

		params = append(params, param)
	})

	return params
}

func stringValue(m *orderedmap.Map, key string) string {
	if value, found := m.Get(key); found {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return ""
}

func parseParamValues(values []string) (map[string]string, error) {
	result := map[string]string{}

	for _, kv := range values {
		pieces := strings.SplitN(kv, "=", 2)
		if len(pieces) != 2 || pieces[0] == "" {
			return nil, fmt.Errorf("Expected parameter in format key=value, but was '%s'", kv)
		}
		result[pieces[0]] = pieces[1]
	}

	return result, nil
}
