// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

/*
Package filetests houses a test harness for compiling templates and asserting
the expected output.
*/
package filetests

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beanbaginc/cloudformer/pkg/template"
)

// EvaluateTemplate is the processing desired from a source template to the final result.
type EvaluateTemplate func(src string) (string, *TestErr)

// FileTests contain a suite of test cases, each described in a separate file, verifying the behavior of templates.
//
// Test cases:
// - are found within the directory at "PathToTests"
// - conventionally have a .tpltest extension
// - top-half is the template; bottom-half is the expected output; divided by `+++` and a blank line.
//
// Types of template tests:
// - expected output starting with `ERR:` indicate that expected output is an error message
// - otherwise expected output is the compiled document; trailing whitespace is ignored on both sides
//
// For example:
//
//	Resources:
//	    MyServer:
//	        Type: AWS::EC2::Instance
//	+++
//
//	{
//	    "AWSTemplateFormatVersion": "2010-09-09",
//	    "Resources": {
//	        "MyServer": {
//	            "Type": "AWS::EC2::Instance"
//	        }
//	    }
//	}
type FileTests struct {
	PathToTests string
	ForAMIs     bool
	EvalFunc    EvaluateTemplate
}

// Run runs each test: enumerates each file within FileTests.PathToTests; splits and compiles using
// FileTests.EvalFunc.
func (f FileTests) Run(t *testing.T) {
	var files []string

	err := filepath.Walk(f.PathToTests, func(walkedPath string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}
		files = append(files, walkedPath)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to enumerate filetests: %s", err)
	}

	if f.EvalFunc == nil {
		f.EvalFunc = f.DefaultEvalTemplate
	}

	for _, filePath := range files {
		t.Run(filePath, func(t *testing.T) {
			contents, err := os.ReadFile(filePath)
			if err != nil {
				t.Fatal(err)
			}

			pieces := strings.SplitN(string(contents), "\n+++\n\n", 2)

			if len(pieces) != 2 {
				t.Fatalf("expected file %s to include +++ separator", filePath)
			}
			expectedStr := pieces[1]

			result, testErr := f.EvalFunc(pieces[0])

			switch {
			case strings.HasPrefix(expectedStr, "ERR:"):
				if testErr == nil {
					err = fmt.Errorf("expected compile error, but did not receive it")
				} else {
					resultStr := TrimTrailingMultilineWhitespace(testErr.UserErr().Error())

					expectedStr = strings.TrimPrefix(expectedStr, "ERR:")
					expectedStr = strings.TrimPrefix(expectedStr, " ")
					expectedStr = TrimTrailingMultilineWhitespace(expectedStr)
					err = f.expectEquals(resultStr, expectedStr)
				}
			default:
				if testErr == nil {
					err = f.expectEquals(
						TrimTrailingMultilineWhitespace(result),
						TrimTrailingMultilineWhitespace(expectedStr))
				} else {
					err = testErr.TestErr()
				}
			}

			if err != nil {
				t.Fatalf("%s", err)
			}
		})
	}
}

// TestErr captures an error result from a single test.
type TestErr struct {
	realErr error
	testErr error
}

// NewTestErr creates a new TestErr
func NewTestErr(realErr, testErr error) *TestErr {
	return &TestErr{realErr, testErr}
}

// UserErr yields the error returned to the user
func (e TestErr) UserErr() error { return e.realErr }

// TestErr yields the error wrapped with helpful test context
func (e TestErr) TestErr() error { return e.testErr }

func (f FileTests) expectEquals(resultStr, expectedStr string) error {
	if resultStr != expectedStr {
		return fmt.Errorf("not equal\n\n### result %d chars:\n>>>%s<<<\n###expected %d chars:\n>>>%s<<<", len(resultStr), resultStr, len(expectedStr), expectedStr)
	}
	return nil
}

// DefaultEvalTemplate compiles the template "src" into its provisioning
// document.
func (f FileTests) DefaultEvalTemplate(src string) (string, *TestErr) {
	compiler := template.NewCompiler(f.ForAMIs)

	err := compiler.LoadString(src)
	if err != nil {
		return "", NewTestErr(err, fmt.Errorf("compile error (did you include the \"ERR:\" marker in the output?): %v", err))
	}

	data, err := compiler.ToJSON()
	if err != nil {
		return "", NewTestErr(err, fmt.Errorf("marshal error: %v", err))
	}
	return string(data), nil
}

// TrimTrailingMultilineWhitespace returns a string with trailing whitespace trimmed from every line as well
// as trimmed trailing empty lines
func TrimTrailingMultilineWhitespace(s string) string {
	var trimmedLines []string
	for _, line := range strings.Split(s, "\n") {
		trimmedLine := strings.TrimRight(line, "\t ")
		trimmedLines = append(trimmedLines, trimmedLine)
	}
	multiline := strings.Join(trimmedLines, "\n")
	return strings.TrimRight(multiline, "\n")
}
