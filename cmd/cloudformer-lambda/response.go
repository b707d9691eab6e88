// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

const defaultStatusCode = -1

// ProxyResponseWriter implements http.ResponseWriter and remembers what
// the handler wrote so it can be replayed as an ALB target group
// response.
type ProxyResponseWriter struct {
	headers http.Header
	body    bytes.Buffer
	status  int
}

var _ http.ResponseWriter = &ProxyResponseWriter{}

func NewProxyResponseWriter() *ProxyResponseWriter {
	return &ProxyResponseWriter{
		headers: make(http.Header),
		status:  defaultStatusCode,
	}
}

func (r *ProxyResponseWriter) Header() http.Header {
	return r.headers
}

func (r *ProxyResponseWriter) Write(body []byte) (int, error) {
	if r.status == defaultStatusCode {
		r.status = http.StatusOK
	}

	// Handlers that never set a content type get one sniffed from the body
	if r.headers.Get("Content-Type") == "" {
		r.headers.Add("Content-Type", http.DetectContentType(body))
	}

	return r.body.Write(body)
}

func (r *ProxyResponseWriter) WriteHeader(status int) {
	r.status = status
}

// GetProxyResponse converts the recorded response into an ALB response.
// It errors if the handler never wrote anything.
func (r *ProxyResponseWriter) GetProxyResponse() (events.ALBTargetGroupResponse, error) {
	if r.status == defaultStatusCode {
		return events.ALBTargetGroupResponse{}, errors.New("Status code not set on response")
	}

	var output string
	isBase64 := false

	bodyBytes := r.body.Bytes()
	if utf8.Valid(bodyBytes) {
		output = string(bodyBytes)
	} else {
		output = base64.StdEncoding.EncodeToString(bodyBytes)
		isBase64 = true
	}

	headers := make(map[string]string)
	for h := range r.headers {
		headers[h] = strings.Join(r.headers[h], ",")
	}

	return events.ALBTargetGroupResponse{
		StatusCode:        r.status,
		StatusDescription: fmt.Sprintf("%d %s", r.status, http.StatusText(r.status)),
		Headers:           headers,
		Body:              output,
		IsBase64Encoded:   isBase64,
	}, nil
}
