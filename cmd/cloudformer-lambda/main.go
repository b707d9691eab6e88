// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/beanbaginc/cloudformer/pkg/cmd"
)

// albAdapter bridges ALB target group events to the compile service's
// regular http.Handler so the same mux serves both deployments.
type albAdapter struct {
	RequestAccessor
	handler http.Handler
}

func (a *albAdapter) Handle(event events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
	req, err := a.ProxyEventToHTTPRequest(event)
	if err != nil {
		return events.ALBTargetGroupResponse{StatusCode: http.StatusBadRequest},
			fmt.Errorf("Converting ALB event to a request: %v", err)
	}

	w := NewProxyResponseWriter()
	a.handler.ServeHTTP(w, req)

	resp, err := w.GetProxyResponse()
	if err != nil {
		return events.ALBTargetGroupResponse{StatusCode: http.StatusInternalServerError},
			fmt.Errorf("Converting response for ALB: %v", err)
	}

	return resp, nil
}

func main() {
	opts := cmd.NewWebsiteOptions()
	adapter := &albAdapter{handler: opts.Server().Mux()}
	lambda.Start(adapter.Handle)
}
