// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package template

import (
	"fmt"
	"strings"

	"github.com/beanbaginc/cloudformer/pkg/orderedmap"
)

// parseCondition parses the expression text of an If or ElseIf call.
//
// Grammar, loosest binding first:
//
//	or      = and {"||" and}
//	and     = cmp {"&&" cmp}
//	cmp     = operand [("==" | "!=") operand]
//	operand = "(" or ")" | quoted string | reference | variable | bareword
//
// "==" maps to Fn::Equals, "!=" to Fn::Not around Fn::Equals, "&&" to
// Fn::And and "||" to Fn::Or. Chained boolean operators nest pairwise to
// the left. Variables resolve immediately when known; unknown ones stay as
// references for a later pass. An expression using any operator comes back
// wrapped as a condition expression so the compiler can hoist it into the
// document's Conditions section; a lone operand comes back bare.
func (p *StringParser) parseCondition(text string) (interface{}, error) {
	cp := &condParser{state: p.state, parser: p, input: text}

	expr, sawOp, err := cp.parseOr()
	if err != nil {
		return nil, err
	}

	cp.skipSpace()
	if cp.off < len(cp.input) {
		return nil, NewSyntaxError(
			fmt.Sprintf("Unexpected %q in the condition", cp.input[cp.off:]), p.pos)
	}

	if !sawOp {
		return expr, nil
	}
	return CondExpr{Expr: expr}, nil
}

type condParser struct {
	state  *State
	parser *StringParser
	input  string
	off    int
}

func (cp *condParser) parseOr() (interface{}, bool, error) {
	left, sawOp, err := cp.parseAnd()
	if err != nil {
		return nil, false, err
	}

	for cp.matchOp("||") {
		right, _, err := cp.parseAnd()
		if err != nil {
			return nil, false, err
		}
		m := orderedmap.NewMap()
		m.Set("Fn::Or", RawList{left, right})
		left = m
		sawOp = true
	}
	return left, sawOp, nil
}

func (cp *condParser) parseAnd() (interface{}, bool, error) {
	left, sawOp, err := cp.parseCmp()
	if err != nil {
		return nil, false, err
	}

	for cp.matchOp("&&") {
		right, _, err := cp.parseCmp()
		if err != nil {
			return nil, false, err
		}
		m := orderedmap.NewMap()
		m.Set("Fn::And", RawList{left, right})
		left = m
		sawOp = true
	}
	return left, sawOp, nil
}

func (cp *condParser) parseCmp() (interface{}, bool, error) {
	left, sawOp, err := cp.parseOperand()
	if err != nil {
		return nil, false, err
	}

	switch {
	case cp.matchOp("=="):
		right, _, err := cp.parseOperand()
		if err != nil {
			return nil, false, err
		}
		m := orderedmap.NewMap()
		m.Set("Fn::Equals", RawList{left, right})
		return m, true, nil

	case cp.matchOp("!="):
		right, _, err := cp.parseOperand()
		if err != nil {
			return nil, false, err
		}
		eq := orderedmap.NewMap()
		eq.Set("Fn::Equals", RawList{left, right})
		m := orderedmap.NewMap()
		m.Set("Fn::Not", RawList{eq})
		return m, true, nil
	}

	return left, sawOp, nil
}

func (cp *condParser) parseOperand() (interface{}, bool, error) {
	cp.skipSpace()
	if cp.off >= len(cp.input) {
		return nil, false, NewSyntaxError("Expected a value in the condition", cp.parser.pos)
	}

	c := cp.input[cp.off]
	switch {
	case c == '(':
		cp.off++
		expr, sawOp, err := cp.parseOr()
		if err != nil {
			return nil, false, err
		}
		cp.skipSpace()
		if cp.off >= len(cp.input) || cp.input[cp.off] != ')' {
			return nil, false, NewSyntaxError("Unbalanced parentheses in the condition", cp.parser.pos)
		}
		cp.off++
		return expr, sawOp, nil

	case c == '\'' || c == '"':
		end := strings.IndexByte(cp.input[cp.off+1:], c)
		if end < 0 {
			return nil, false, NewSyntaxError("Unterminated string in the condition", cp.parser.pos)
		}
		value := cp.input[cp.off+1 : cp.off+1+end]
		cp.off += end + 2
		return value, false, nil

	case strings.HasPrefix(cp.input[cp.off:], "@@"):
		name, isVar, length, ok := matchRefToken(cp.input[cp.off:])
		if !ok {
			return nil, false, NewSyntaxError("Invalid reference in the condition", cp.parser.pos)
		}
		cp.off += length
		ref := orderedmap.NewMap()
		if isVar {
			ref.Set("Ref", VarReference{Name: name})
		} else {
			ref.Set("Ref", name)
		}
		return ref, false, nil

	case strings.HasPrefix(cp.input[cp.off:], "$$"):
		name, length, ok := matchVarToken(cp.input[cp.off:])
		if !ok {
			return nil, false, NewSyntaxError("Invalid variable in the condition", cp.parser.pos)
		}
		cp.off += length
		if value, found := cp.state.Resolve(name, nil); found {
			return value, false, nil
		}
		cp.state.noteUnresolved(name)
		return VarReference{Name: name}, false, nil

	default:
		end := cp.off
		for end < len(cp.input) && !isCondDelim(cp.input[end]) {
			end++
		}
		if end == cp.off {
			return nil, false, NewSyntaxError(
				fmt.Sprintf("Unexpected %q in the condition", string(c)), cp.parser.pos)
		}
		word := cp.input[cp.off:end]
		cp.off = end
		return word, false, nil
	}
}

func (cp *condParser) matchOp(op string) bool {
	cp.skipSpace()
	if strings.HasPrefix(cp.input[cp.off:], op) {
		cp.off += len(op)
		return true
	}
	return false
}

func (cp *condParser) skipSpace() {
	cp.off = skipSpaces(cp.input, cp.off)
}

func isCondDelim(c byte) bool {
	switch c {
	case ' ', '\t', '(', ')', '|', '&', '=', '!', '\'', '"':
		return true
	}
	return false
}
