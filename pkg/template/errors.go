// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package template

import (
	"fmt"

	"github.com/beanbaginc/cloudformer/pkg/filepos"
)

// SyntaxError reports malformed inline template syntax inside a scalar,
// such as unbalanced block braces or a misplaced Else.
type SyntaxError struct {
	Desc     string
	Position *filepos.Position
}

func NewSyntaxError(desc string, pos *filepos.Position) *SyntaxError {
	return &SyntaxError{Desc: desc, Position: pos}
}

func (e *SyntaxError) Error() string { return describeAt(e.Desc, e.Position) }

// MacroNotFoundError reports a macro invocation naming a macro path that
// does not exist (or names an entry with no content).
type MacroNotFoundError struct {
	Path string
}

func NewMacroNotFoundError(path string) *MacroNotFoundError {
	return &MacroNotFoundError{Path: path}
}

func (e *MacroNotFoundError) Error() string {
	return fmt.Sprintf(`"%s" is not a valid macro`, e.Path)
}

// StructureError reports a document whose shape cannot be compiled, such as
// a non-mapping template document or a second template document in one
// stream.
type StructureError struct {
	Desc     string
	Position *filepos.Position
}

func NewStructureError(desc string, pos *filepos.Position) *StructureError {
	return &StructureError{Desc: desc, Position: pos}
}

func (e *StructureError) Error() string { return describeAt(e.Desc, e.Position) }

// InvalidTagError reports a stack tag whose value did not resolve to a
// plain string.
type InvalidTagError struct {
	Name  string
	Value interface{}
}

func NewInvalidTagError(name string, value interface{}) *InvalidTagError {
	return &InvalidTagError{Name: name, Value: value}
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf(`Invalid value "%v" for tag "%s" found in the stack metadata`,
		e.Value, e.Name)
}

func describeAt(desc string, pos *filepos.Position) string {
	if pos.IsKnown() || (pos != nil && pos.GetFile() != "") {
		return fmt.Sprintf("%s (%s)", desc, pos.AsCompactString())
	}
	return desc
}
