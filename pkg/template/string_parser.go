// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package template

import (
	"fmt"
	"strings"

	"github.com/beanbaginc/cloudformer/pkg/filepos"
	"github.com/beanbaginc/cloudformer/pkg/orderedmap"
)

// base64Sentinel, alone on the first line of a scalar, marks the rest of
// the scalar's content for base64 encoding by the provisioning service.
const base64Sentinel = "__base64__"

// StringParser expands the inline template language found inside scalar
// strings: function calls ("<% Name(params) %>", optionally opening a
// block with "{"), close markers ("<% } %>"), resource and parameter
// references ("@@Name", "@@{Name}") and variable interpolations ("$$name",
// "$${dotted.path}").
//
// Parsing is line oriented but stateful across the lines of one scalar: a
// stack of open block functions persists between lines, so a block opened
// on one line can be closed several lines later.
type StringParser struct {
	state *State
	pos   *filepos.Position
}

func NewStringParser(state *State, pos *filepos.Position) *StringParser {
	return &StringParser{state: state, pos: pos}
}

// ParseString parses one scalar's content. The result is a plain string, a
// reference/function mapping, or a list of fragments pending resolution.
// Multiple resolved fragments come back wrapped in a join.
func (p *StringParser) ParseString(s string) (interface{}, error) {
	if s == "" {
		return "", nil
	}

	lines := splitLines(s)

	wrapBase64 := false
	if strings.TrimSpace(lines[0]) == base64Sentinel {
		wrapBase64 = true
		lines = lines[1:]
	}

	stack := &parseStack{parser: p}
	stack.push(&parseFrame{stack: stack, popCount: 1})

	for _, line := range lines {
		err := p.parseLine(line, stack)
		if err != nil {
			return nil, err
		}
	}

	if stack.len() > 1 {
		return nil, NewSyntaxError("Unbalanced braces in template", p.pos)
	}

	root := stack.current()
	result, err := root.normalizeContent(root)
	if err != nil {
		return nil, err
	}

	if items, ok := result.([]interface{}); ok && len(items) == 0 {
		result = ""
	}

	if wrapBase64 {
		m := orderedmap.NewMap()
		m.Set("Fn::Base64", result)
		return m, nil
	}
	return result, nil
}

func (p *StringParser) parseLine(line string, stack *parseStack) error {
	prev := 0
	i := 0

	for i < len(line) {
		c := line[i]
		if c != '<' && c != '@' && c != '$' {
			i++
			continue
		}

		var length int
		var handle func() error

		switch c {
		case '<':
			tok, ok := matchFuncToken(line[i:])
			if !ok {
				i++
				continue
			}
			length = tok.length
			if tok.isClose {
				handle = func() error { return p.handleClose(stack) }
			} else {
				handle = func() error { return p.handleFunc(tok, stack) }
			}

		case '@':
			name, isVar, refLen, ok := matchRefToken(line[i:])
			if !ok {
				i++
				continue
			}
			length = refLen
			handle = func() error {
				ref := orderedmap.NewMap()
				if isVar {
					ref.Set("Ref", VarReference{Name: name})
				} else {
					ref.Set("Ref", name)
				}
				_, err := stack.current().addContent(ref)
				return err
			}

		case '$':
			name, varLen, ok := matchVarToken(line[i:])
			if !ok {
				i++
				continue
			}
			length = varLen
			handle = func() error {
				_, err := stack.current().addContent(VarReference{Name: name})
				return err
			}
		}

		if i > prev {
			_, err := stack.current().addContent(line[prev:i])
			if err != nil {
				return err
			}
		}

		err := handle()
		if err != nil {
			return err
		}

		prev = i + length
		i = prev
	}

	if prev < len(line) {
		_, err := stack.current().addContent(line[prev:])
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *StringParser) handleFunc(tok funcToken, stack *parseStack) error {
	switch tok.name {
	case "If", "ElseIf", "Else":
		return p.handleCondFunc(tok, stack)
	}

	params, err := p.parseParams(tok.params)
	if err != nil {
		return err
	}

	frame := &parseFrame{
		stack:    stack,
		funcName: tok.name,
		params:   params,
		isBlock:  tok.opensBlock,
		popCount: 1,
	}

	pushable, err := stack.current().addContent(frame)
	if err != nil {
		return err
	}
	if pushable && tok.opensBlock {
		stack.push(frame)
	}
	return nil
}

func (p *StringParser) handleCondFunc(tok funcToken, stack *parseStack) error {
	if !tok.opensBlock {
		return NewSyntaxError(
			fmt.Sprintf("Found %s without an opening brace", tok.name), p.pos)
	}

	switch tok.name {
	case "ElseIf":
		if !stack.current().isIf {
			return NewSyntaxError("Found ElseIf without a matching If or ElseIf", p.pos)
		}
	case "Else":
		if !stack.current().isIf {
			return NewSyntaxError("Found Else without a matching If", p.pos)
		}
	}

	var params []interface{}
	if tok.name != "Else" {
		condText := strings.TrimSpace(tok.params)
		if condText == "" {
			return NewSyntaxError(
				fmt.Sprintf("Found %s without a condition", tok.name), p.pos)
		}
		cond, err := p.parseCondition(condText)
		if err != nil {
			return err
		}
		params = []interface{}{cond}
	}

	frame := &parseFrame{
		stack:    stack,
		funcName: tok.name,
		params:   params,
		isBlock:  true,
		popCount: 1,
		isIf:     tok.name != "Else",
		isElseIf: tok.name == "ElseIf",
	}

	pushable, err := stack.current().addContent(frame)
	if err != nil {
		return err
	}
	if pushable {
		stack.push(frame)
	}
	return nil
}

func (p *StringParser) handleClose(stack *parseStack) error {
	pops := stack.current().popCount
	for i := 0; i < pops; i++ {
		if stack.len() <= 1 {
			return NewSyntaxError("Unbalanced braces in template", p.pos)
		}
		stack.pop()
	}
	return nil
}

// parseParams splits a function's raw parameter text on top-level commas
// and parses each piece: quoted strings keep their exact content, array
// literals parse recursively, and anything else runs back through the
// inline token scanner.
func (p *StringParser) parseParams(text string) ([]interface{}, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var params []interface{}
	for _, part := range splitTopLevel(text) {
		value, err := p.parseParamValue(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		params = append(params, value)
	}
	return params, nil
}

func (p *StringParser) parseParamValue(s string) (interface{}, error) {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return s[1 : len(s)-1], nil
		}
		if first == '[' && last == ']' {
			inner := s[1 : len(s)-1]
			items := RawList{}
			if strings.TrimSpace(inner) == "" {
				return items, nil
			}
			for _, part := range splitTopLevel(inner) {
				value, err := p.parseParamValue(strings.TrimSpace(part))
				if err != nil {
					return nil, err
				}
				items = append(items, value)
			}
			return items, nil
		}
	}
	return p.parseInline(s)
}

// parseInline scans free text for reference, variable and function tokens.
// A single fragment comes back bare; several collapse against the known
// variables first.
func (p *StringParser) parseInline(s string) (interface{}, error) {
	if s == "" {
		return "", nil
	}

	stack := &parseStack{parser: p}
	root := &parseFrame{stack: stack, popCount: 1}
	stack.push(root)

	err := p.parseLine(s, stack)
	if err != nil {
		return nil, err
	}

	parts := make([]interface{}, 0, len(root.contents))
	for _, c := range root.contents {
		if cf, ok := c.(*parseFrame); ok {
			sv, err := cf.serialize()
			if err != nil {
				return nil, err
			}
			parts = append(parts, sv)
			continue
		}
		parts = append(parts, c)
	}

	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	}

	collapsed := p.state.collapseFragments(parts, nil, true)
	if len(collapsed) == 1 {
		return collapsed[0], nil
	}
	if hasUnresolved(collapsed) {
		return FragmentList(collapsed), nil
	}
	return collapsed, nil
}

// parseStack tracks open block functions while scanning the lines of one
// scalar. The bottom frame collects the scalar's root content.
type parseStack struct {
	parser *StringParser
	frames []*parseFrame
}

func (s *parseStack) current() *parseFrame { return s.frames[len(s.frames)-1] }
func (s *parseStack) push(f *parseFrame)   { s.frames = append(s.frames, f) }
func (s *parseStack) pop()                 { s.frames = s.frames[:len(s.frames)-1] }
func (s *parseStack) len() int             { return len(s.frames) }

// parseFrame is one open item on the parse stack: the scalar's root
// content, or a function call collecting parameters and block contents.
type parseFrame struct {
	stack *parseStack

	funcName string // "" for the root content frame
	params   []interface{}
	isBlock  bool

	// popCount is how many frames one close marker unwinds. An ElseIf
	// nests an If one level deeper while sharing the chain's single close
	// marker, so its popCount is its parent's plus one.
	popCount int

	contents []interface{}

	// Conditionals collect content into two buckets instead of contents.
	isIf          bool
	isElseIf      bool
	trueContents  []interface{}
	falseContents []interface{}
	inFalse       bool
}

// addContent appends parsed content to the frame, returning whether the
// content is a function frame that may be pushed onto the stack.
func (f *parseFrame) addContent(content interface{}) (bool, error) {
	if f.isIf {
		if cf, ok := content.(*parseFrame); ok && (cf.funcName == "Else" || cf.isElseIf) {
			if len(f.trueContents) == 0 {
				return false, NewSyntaxError(
					fmt.Sprintf(`Found %s without a "true" value in the If`, cf.funcName),
					f.stack.parser.pos)
			}
			if len(f.falseContents) > 0 {
				return false, NewSyntaxError(
					fmt.Sprintf("Found %s after an Else", cf.funcName),
					f.stack.parser.pos)
			}

			f.inFalse = true

			if cf.funcName == "Else" {
				return false, nil
			}

			cf.popCount = f.popCount + 1
		}

		if f.inFalse {
			f.falseContents = append(f.falseContents, content)
		} else {
			f.trueContents = append(f.trueContents, content)
		}
		return true, nil
	}

	f.contents = append(f.contents, content)
	_, isFrame := content.(*parseFrame)
	return isFrame, nil
}

func (f *parseFrame) serialize() (interface{}, error) {
	switch {
	case f.funcName == "":
		result := []interface{}{}
		for _, c := range f.contents {
			n, err := f.normalizeContent(c)
			if err != nil {
				return nil, err
			}
			result = append(result, n)
		}
		return result, nil

	case f.isIf:
		args := RawList{}
		args = append(args, f.params...)

		trueVal, err := f.normalizeContent(append([]interface{}{}, f.trueContents...))
		if err != nil {
			return nil, err
		}
		if !isEmptyList(trueVal) {
			args = append(args, trueVal)
		}

		falseVal, err := f.normalizeContent(append([]interface{}{}, f.falseContents...))
		if err != nil {
			return nil, err
		}
		if !isEmptyContent(falseVal) {
			args = append(args, falseVal)
		}

		m := orderedmap.NewMap()
		m.Set("Fn::If", args)
		return m, nil

	case f.isBlock:
		items := RawList{}
		items = append(items, f.params...)
		for _, c := range f.contents {
			n, err := f.normalizeContent(c)
			if err != nil {
				return nil, err
			}
			items = append(items, n)
		}
		m := orderedmap.NewMap()
		m.Set("Fn::"+f.funcName, items)
		return m, nil

	default:
		var value interface{}
		switch len(f.params) {
		case 0:
			value = ""
		case 1:
			value = f.params[0]
		default:
			value = RawList(f.params)
		}
		m := orderedmap.NewMap()
		m.Set("Fn::"+f.funcName, value)
		return m, nil
	}
}

// normalizeContent serializes nested frames and folds fragment lists:
// known variables resolve into their neighbors, a single fragment comes
// back bare, several resolved fragments wrap in a join, and fragments
// still holding unresolved references stay marked for later resolution.
func (f *parseFrame) normalizeContent(content interface{}) (interface{}, error) {
	if cf, ok := content.(*parseFrame); ok {
		var err error
		content, err = cf.serialize()
		if err != nil {
			return nil, err
		}
	}

	items, ok := content.([]interface{})
	if !ok {
		return content, nil
	}

	normalized := make([]interface{}, 0, len(items))
	for _, item := range items {
		n, err := f.normalizeContent(item)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, n)
	}

	state := f.stack.parser.state
	collapsed := state.collapseFragments(normalized, nil, true)

	resolved := make([]interface{}, 0, len(collapsed))
	for _, item := range collapsed {
		r, err := state.resolveTree(item, resolveOpts{})
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}

	switch {
	case len(resolved) == 1:
		return resolved[0], nil
	case len(resolved) > 1 && hasUnresolved(resolved):
		return FragmentList(resolved), nil
	case len(resolved) > 1:
		return joinFragments(resolved), nil
	default:
		return resolved, nil
	}
}

func joinFragments(items []interface{}) *orderedmap.Map {
	m := orderedmap.NewMap()
	m.Set("Fn::Join", []interface{}{"", items})
	return m
}

func hasUnresolved(items []interface{}) bool {
	for _, item := range items {
		if _, ok := item.(VarReference); ok {
			return true
		}
	}
	return false
}

func isEmptyList(v interface{}) bool {
	items, ok := v.([]interface{})
	return ok && len(items) == 0
}

func isEmptyContent(v interface{}) bool {
	if v == nil || v == "" {
		return true
	}
	return isEmptyList(v)
}

type funcToken struct {
	name       string
	params     string
	hasParams  bool
	opensBlock bool
	isClose    bool
	length     int
}

func matchFuncToken(s string) (funcToken, bool) {
	var tok funcToken
	if !strings.HasPrefix(s, "<%") {
		return tok, false
	}

	i := skipSpaces(s, 2)

	if i < len(s) && s[i] == '}' {
		i = skipSpaces(s, i+1)
		if !strings.HasPrefix(s[i:], "%>") {
			return tok, false
		}
		i += 2
		if i < len(s) && s[i] == '\n' {
			i++
		}
		tok.isClose = true
		tok.length = i
		return tok, true
	}

	start := i
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	if i == start {
		return tok, false
	}
	tok.name = s[start:i]

	i = skipSpaces(s, i)
	if i < len(s) && s[i] == '(' {
		end, ok := findCloseParen(s, i+1)
		if !ok {
			return tok, false
		}
		tok.params = s[i+1 : end]
		tok.hasParams = true
		i = skipSpaces(s, end+1)
	}

	if i < len(s) && s[i] == '{' {
		tok.opensBlock = true
		i = skipSpaces(s, i+1)
	}

	if !strings.HasPrefix(s[i:], "%>") {
		return tok, false
	}
	i += 2
	if i < len(s) && s[i] == '\n' {
		i++
	}
	tok.length = i
	return tok, true
}

func matchRefToken(s string) (name string, isVar bool, length int, ok bool) {
	if !strings.HasPrefix(s, "@@") {
		return "", false, 0, false
	}

	i := 2
	braced := i < len(s) && s[i] == '{'
	if braced {
		i++
	}

	if strings.HasPrefix(s[i:], "$$") {
		i += 2
		var end int
		if braced {
			end = scanWhile(s, i, isVarPathChar)
		} else {
			end = scanWhile(s, i, isVarNameChar)
		}
		if end == i {
			return "", false, 0, false
		}
		name = s[i:end]
		isVar = true
		i = end
	} else {
		end := scanWhile(s, i, isRefNameChar)
		if end == i {
			return "", false, 0, false
		}
		name = s[i:end]
		i = end
	}

	if braced {
		if i >= len(s) || s[i] != '}' {
			return "", false, 0, false
		}
		i++
	}
	return name, isVar, i, true
}

func matchVarToken(s string) (name string, length int, ok bool) {
	if !strings.HasPrefix(s, "$$") {
		return "", 0, false
	}

	i := 2
	if i < len(s) && s[i] == '{' {
		i++
		end := scanWhile(s, i, isVarPathChar)
		if end == i || end >= len(s) || s[end] != '}' {
			return "", 0, false
		}
		return s[i:end], end + 1, true
	}

	end := scanWhile(s, i, isVarNameChar)
	if end == i {
		return "", 0, false
	}
	return s[i:end], end, true
}

// findCloseParen scans for the ")" matching an already-consumed "(",
// honoring nested parens and quoted strings.
func findCloseParen(s string, from int) (int, bool) {
	depth := 1
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// splitTopLevel splits on commas that sit outside quotes, parens and
// brackets.
func splitTopLevel(s string) []string {
	var parts []string
	var parenDepth, bracketDepth int
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			parenDepth++
		case c == ')':
			parenDepth--
		case c == '[':
			bracketDepth++
		case c == ']':
			bracketDepth--
		case c == ',' && parenDepth == 0 && bracketDepth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func splitLines(s string) []string {
	var lines []string
	for len(s) > 0 {
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:idx+1])
		s = s[idx+1:]
	}
	return lines
}

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func scanWhile(s string, i int, pred func(byte) bool) int {
	for i < len(s) && pred(s[i]) {
		i++
	}
	return i
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isRefNameChar(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9') || c == ':' || c == '_'
}

func isVarNameChar(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9') || c == '_'
}

func isVarPathChar(c byte) bool {
	return isVarNameChar(c) || c == '.'
}
