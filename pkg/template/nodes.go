// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package template

import (
	"encoding/json"
)

// VarReference is a placeholder for a variable that was referenced before
// its value was known. Placeholders may resolve later (when a macro
// parameter or an imported variable supplies the value); one that never
// resolves renders in the compiled document in its source form.
type VarReference struct {
	Name string
}

var _ json.Marshaler = VarReference{}

func (r VarReference) MarshalJSON() ([]byte, error) {
	return json.Marshal("$${" + r.Name + "}")
}

// FragmentList holds the pieces of a scalar that still contains unresolved
// variable references. Once every reference resolves, adjacent string
// fragments fold back together (or, if non-string content remains, the
// pieces are joined); until then they stay separate so resolution can
// revisit them.
type FragmentList []interface{}

// RawList is a list whose items keep their positions: function parameters,
// block contents and array literals. It is never folded into a join.
type RawList []interface{}

// CondExpr wraps a parsed condition expression until the compile step
// hoists it into the document's Conditions section under a generated name.
type CondExpr struct {
	Expr interface{}
}

var _ json.Marshaler = CondExpr{}

func (c CondExpr) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Expr)
}
