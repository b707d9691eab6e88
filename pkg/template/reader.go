// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package template

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/beanbaginc/cloudformer/pkg/filepos"
	"github.com/beanbaginc/cloudformer/pkg/orderedmap"
)

// importsKey is the top-level key whose value pulls other template files'
// variables and macros into the current state. It never survives into the
// document.
const importsKey = "__imports__"

// Reader loads a template file's stream of documents.
//
// Templates function much like any standard YAML document, with a few
// additions and changes:
//
//   - The order of keys within a mapping is preserved from the loaded
//     file.
//
//   - Integers, booleans and floats are kept as their source strings, as
//     the provisioning format expects.
//
//   - Every string runs through the inline template language: multi-line
//     strings become Fn::Join'd fragments, "@@MyRefName" expands into
//     {"Ref": "MyRefName"}, "<% MyFuncName(...) %>" into
//     {"Fn::MyFuncName": ...}, and "$$myvar"/"$${my.var}" interpolate
//     defined variables.
//
//   - Documents tagged "!vars" define variables, entry by entry in
//     declaration order. Documents tagged "!macros" define macros callable
//     through "!call-macro". Both may be nested namespaces addressed by
//     dotted paths.
//
//   - "!tags" converts a mapping into the provisioning format's list of
//     {Key, Value} entries.
//
//   - "!import" loads the named files' variables and macros. "!embed-file"
//     inlines another file's content as a parsed multi-line string.
//
//   - A "<" key splices its mapping value into the surrounding mapping,
//     like a YAML merge key but compatible with "!call-macro". Standard
//     "<<" merge keys work as well.
//
// The processed default document lands in Doc; everything else accumulates
// in State.
type Reader struct {
	Doc   *orderedmap.Map
	State *State

	filename   string
	baseDir    string
	sawDefault bool
}

func NewReader() *Reader {
	return &Reader{
		Doc:   orderedmap.NewMap(),
		State: NewState(),
	}
}

// LoadFile loads a template from disk. Imports and embeds inside the
// template resolve relative to its directory.
func (r *Reader) LoadFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	r.filename = filename
	r.baseDir = filepath.Dir(filename)
	return r.LoadString(string(data))
}

// LoadString loads a template from a string, document by document in
// stream order, so imports and definitions are visible to everything
// after them.
func (r *Reader) LoadString(s string) error {
	dec := yaml.NewDecoder(strings.NewReader(s))

	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return NewStructureError(err.Error(), filepos.NewUnknownPositionInFile(r.filename))
		}
		if len(doc.Content) == 0 {
			continue
		}

		root := doc.Content[0]
		switch root.Tag {
		case "!vars":
			err = r.loadVarsDoc(root)
		case "!macros":
			err = r.loadMacrosDoc(root)
		default:
			err = r.loadDefaultDoc(root)
		}
		if err != nil {
			return err
		}
	}
}

func (r *Reader) loadVarsDoc(root *yaml.Node) error {
	if isEmptyDocNode(root) {
		return nil
	}
	if root.Kind != yaml.MappingNode {
		return NewStructureError("Variables document must be a mapping", r.nodePos(root))
	}

	// Entries define strictly in order: each value resolves against the
	// variables known so far, including earlier entries of this same
	// document.
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, err := r.constructNode(root.Content[i])
		if err != nil {
			return err
		}
		value, err := r.constructNode(root.Content[i+1])
		if err != nil {
			return err
		}
		resolved, err := r.State.resolveTree(value, resolveOpts{resolveVars: true})
		if err != nil {
			return err
		}
		r.State.Variables.Set(key, resolved)
	}
	return nil
}

func (r *Reader) loadMacrosDoc(root *yaml.Node) error {
	if isEmptyDocNode(root) {
		return nil
	}
	if root.Kind != yaml.MappingNode {
		return NewStructureError("Macros document must be a mapping", r.nodePos(root))
	}

	// Macro content stores as constructed, unevaluated. Variables already
	// defined at this point fold into it; anything unknown stays a
	// reference until the macro is called.
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, err := r.constructNode(root.Content[i])
		if err != nil {
			return err
		}
		value, err := r.constructNode(root.Content[i+1])
		if err != nil {
			return err
		}
		r.State.Macros.Set(key, value)
	}
	return nil
}

func (r *Reader) loadDefaultDoc(root *yaml.Node) error {
	if r.sawDefault {
		return NewStructureError("Multiple template documents are not allowed", r.nodePos(root))
	}
	if root.Kind != yaml.MappingNode {
		return NewStructureError("Template document must be a mapping", r.nodePos(root))
	}
	r.sawDefault = true

	constructed, err := r.constructMapping(root)
	if err != nil {
		return err
	}
	constructed.Delete(importsKey)

	resolved, err := r.State.resolveTree(constructed, resolveOpts{resolveVars: true})
	if err != nil {
		return err
	}
	r.Doc = resolved.(*orderedmap.Map)
	return nil
}

func (r *Reader) constructNode(node *yaml.Node) (interface{}, error) {
	switch node.Tag {
	case "!call-macro":
		return r.constructCallMacro(node)
	case "!tags":
		return r.constructTags(node)
	case "!import":
		return nil, r.constructImport(node)
	case "!embed-file":
		return r.constructEmbedFile(node)
	}

	switch node.Kind {
	case yaml.AliasNode:
		return r.constructNode(node.Alias)

	case yaml.ScalarNode:
		return r.constructScalar(node)

	case yaml.SequenceNode:
		items := make([]interface{}, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := r.constructNode(child)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		return items, nil

	case yaml.MappingNode:
		return r.constructMapping(node)

	default:
		return nil, NewStructureError(
			fmt.Sprintf("Unsupported node kind %d", node.Kind), r.nodePos(node))
	}
}

func (r *Reader) constructScalar(node *yaml.Node) (interface{}, error) {
	switch node.Tag {
	case "!!null":
		return nil, nil
	case "!!int", "!!bool", "!!float", "!!timestamp":
		// The provisioning format wants strings. The source text is kept
		// as written, so 1.0 stays "1.0".
		return node.Value, nil
	case "!!str":
		parser := NewStringParser(r.State, r.nodePos(node))
		return parser.ParseString(node.Value)
	default:
		return nil, NewStructureError(
			fmt.Sprintf("Unsupported tag %q", node.Tag), r.nodePos(node))
	}
}

func (r *Reader) constructMapping(node *yaml.Node) (*orderedmap.Map, error) {
	result := orderedmap.NewMap()

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Tag == "!!merge" {
			if err := r.mergeInto(result, valueNode); err != nil {
				return nil, err
			}
			continue
		}

		key, err := r.constructNode(keyNode)
		if err != nil {
			return nil, err
		}
		value, err := r.constructNode(valueNode)
		if err != nil {
			return nil, err
		}

		// The "<" merge sentinel splices the value's keys into this
		// mapping, commonly to inject an entire macro result.
		if key == "<" {
			spliced, ok := value.(*orderedmap.Map)
			if !ok {
				return nil, NewStructureError(
					`Merge key "<" requires a mapping value`, r.nodePos(valueNode))
			}
			spliced.Iterate(func(k, v interface{}) {
				result.Set(k, v)
			})
			continue
		}

		result.Set(key, value)
	}
	return result, nil
}

// mergeInto handles standard "<<" merge keys: the value may be a mapping,
// an alias to one, or a sequence of either.
func (r *Reader) mergeInto(result *orderedmap.Map, valueNode *yaml.Node) error {
	if valueNode.Kind == yaml.SequenceNode {
		for _, child := range valueNode.Content {
			if err := r.mergeInto(result, child); err != nil {
				return err
			}
		}
		return nil
	}

	value, err := r.constructNode(valueNode)
	if err != nil {
		return err
	}
	m, ok := value.(*orderedmap.Map)
	if !ok {
		return NewStructureError(
			`Merge key "<<" requires a mapping value`, r.nodePos(valueNode))
	}
	m.Iterate(func(k, v interface{}) {
		result.Set(k, v)
	})
	return nil
}

func (r *Reader) constructCallMacro(node *yaml.Node) (interface{}, error) {
	if node.Kind != yaml.MappingNode {
		return nil, NewStructureError("!call-macro requires a mapping", r.nodePos(node))
	}

	values, err := r.constructMapping(node)
	if err != nil {
		return nil, err
	}

	nameValue, found := values.Get("macro")
	if !found {
		return nil, NewStructureError(`!call-macro requires a "macro" key`, r.nodePos(node))
	}
	values.Delete("macro")

	name, ok := nameValue.(string)
	if !ok {
		return nil, NewStructureError(`!call-macro requires a "macro" name`, r.nodePos(node))
	}

	return r.State.ExpandMacro(name, values)
}

func (r *Reader) constructTags(node *yaml.Node) (interface{}, error) {
	if node.Kind != yaml.MappingNode {
		return nil, NewStructureError("!tags requires a mapping", r.nodePos(node))
	}

	values, err := r.constructMapping(node)
	if err != nil {
		return nil, err
	}

	tags := make([]interface{}, 0, values.Len())
	values.Iterate(func(key, value interface{}) {
		tag := orderedmap.NewMap()
		tag.Set("Key", key)
		tag.Set("Value", value)
		tags = append(tags, tag)
	})
	return tags, nil
}

func (r *Reader) constructImport(node *yaml.Node) error {
	filenames := strings.Fields(node.Value)

	for _, filename := range filenames {
		r.State.AddImportedFile(filename)
	}

	for _, filename := range filenames {
		sub := NewReader()
		err := sub.LoadFile(r.resolvePath(filename))
		if err != nil {
			return NewStructureError(
				fmt.Sprintf("Unable to import template %q: %s", filename, err),
				r.nodePos(node))
		}
		r.State.Update(sub.State)
	}
	return nil
}

func (r *Reader) constructEmbedFile(node *yaml.Node) (interface{}, error) {
	filename := strings.TrimSpace(node.Value)

	data, err := os.ReadFile(r.resolvePath(filename))
	if err != nil {
		return nil, NewStructureError(
			fmt.Sprintf("Unable to embed file %q: %s", filename, err),
			r.nodePos(node))
	}
	r.State.AddEmbeddedFile(filename)

	parser := NewStringParser(r.State, r.nodePos(node))
	return parser.ParseString(string(data))
}

func (r *Reader) resolvePath(filename string) string {
	if r.baseDir != "" && !filepath.IsAbs(filename) {
		return filepath.Join(r.baseDir, filename)
	}
	return filename
}

func (r *Reader) nodePos(node *yaml.Node) *filepos.Position {
	if node != nil && node.Line > 0 {
		return filepos.NewPositionInFile(node.Line, r.filename)
	}
	return filepos.NewUnknownPositionInFile(r.filename)
}

func isEmptyDocNode(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Value == ""
}
