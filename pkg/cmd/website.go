// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/beanbaginc/cloudformer/pkg/template"
	"github.com/beanbaginc/cloudformer/pkg/website"
)

type WebsiteOptions struct {
	ListenAddr      string
	RedirectToHTTPS bool
}

func NewWebsiteOptions() *WebsiteOptions {
	return &WebsiteOptions{}
}

func NewWebsiteCmd(o *WebsiteOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "website",
		Short: "Start the template compile HTTP server",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVar(&o.ListenAddr, "listen-addr", "localhost:8080", "Listen address")
	cmd.Flags().BoolVar(&o.RedirectToHTTPS, "redirect-to-https", true, "Redirect to HTTPs address")
	return cmd
}

func (o *WebsiteOptions) Server() *website.Server {
	opts := website.ServerOpts{
		ListenAddr:      o.ListenAddr,
		RedirectToHTTPS: o.RedirectToHTTPS,
		CompileFunc:     o.compileTemplate,
		ErrorFunc:       o.compileErr,
	}
	return website.NewServer(opts)
}

func (o *WebsiteOptions) Run() error {
	return o.Server().Run()
}

func (o *WebsiteOptions) compileTemplate(data []byte, forAMIs bool) ([]byte, error) {
	compiler := template.NewCompiler(forAMIs)
	err := compiler.LoadString(string(data))
	if err != nil {
		return nil, err
	}
	return compiler.ToJSON()
}

type compileErrResponse struct {
	Errors string `json:"errors"`
}

func (*WebsiteOptions) compileErr(err error) ([]byte, error) {
	return json.Marshal(compileErrResponse{Errors: err.Error()})
}
