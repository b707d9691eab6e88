// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package template

import (
	"fmt"
	"strings"

	"github.com/beanbaginc/cloudformer/pkg/orderedmap"
)

// State carries everything accumulated while reading templates: defined
// variables and macros, files pulled in through imports and embeds, and
// the names of variables referenced before any definition was seen.
//
// One State is shared by every document in a template file. Imported files
// read into their own State, which is then merged into the importer's.
type State struct {
	Variables *orderedmap.Map
	Macros    *orderedmap.Map

	ImportedFiles []string
	EmbeddedFiles []string

	UnresolvedVariables map[string]struct{}

	ifConditions  *orderedmap.Map
	ifCondCounter int

	importedSeen map[string]struct{}
	embeddedSeen map[string]struct{}
}

func NewState() *State {
	return &State{
		Variables:           orderedmap.NewMap(),
		Macros:              orderedmap.NewMap(),
		UnresolvedVariables: map[string]struct{}{},
		ifConditions:        orderedmap.NewMap(),
		importedSeen:        map[string]struct{}{},
		embeddedSeen:        map[string]struct{}{},
	}
}

// Resolve walks a dotted path through nested maps in the given table,
// which defaults to the state's variables.
func (s *State) Resolve(path string, table *orderedmap.Map) (interface{}, bool) {
	if table == nil {
		table = s.Variables
	}

	var current interface{} = table
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(*orderedmap.Map)
		if !ok {
			return nil, false
		}
		value, found := m.Get(part)
		if !found {
			return nil, false
		}
		current = value
	}
	return current, true
}

// ExpandMacro resolves a macro's content against an ephemeral scope built
// from the current variables, the macro's default parameters and the
// call's own parameters, in that order. The state's variables are never
// touched.
func (s *State) ExpandMacro(path string, overrides *orderedmap.Map) (interface{}, error) {
	value, found := s.Resolve(path, s.Macros)
	if !found {
		return nil, NewMacroNotFoundError(path)
	}
	macro, ok := value.(*orderedmap.Map)
	if !ok {
		return nil, NewMacroNotFoundError(path)
	}
	content, found := macro.Get("content")
	if !found {
		return nil, NewMacroNotFoundError(path)
	}

	scope := orderedmap.NewMap()
	s.Variables.Iterate(func(key, value interface{}) {
		scope.Set(key, value)
	})
	if defaults, found := macro.Get("defaultParams"); found {
		if dm, ok := defaults.(*orderedmap.Map); ok {
			dm.Iterate(func(key, value interface{}) {
				scope.Set(key, value)
			})
		}
	}
	if overrides != nil {
		overrides.Iterate(func(key, value interface{}) {
			scope.Set(key, value)
		})
	}

	return s.resolveTree(content, resolveOpts{variables: scope, resolveVars: true})
}

// Update merges another state into this one. The other state's variables
// and macros win on conflict.
func (s *State) Update(other *State) {
	other.Variables.Iterate(func(key, value interface{}) {
		s.Variables.Set(key, value)
	})
	other.Macros.Iterate(func(key, value interface{}) {
		s.Macros.Set(key, value)
	})
	for _, name := range other.ImportedFiles {
		s.AddImportedFile(name)
	}
	for _, name := range other.EmbeddedFiles {
		s.AddEmbeddedFile(name)
	}
	for name := range other.UnresolvedVariables {
		s.UnresolvedVariables[name] = struct{}{}
	}
}

func (s *State) AddImportedFile(name string) {
	if _, seen := s.importedSeen[name]; seen {
		return
	}
	s.importedSeen[name] = struct{}{}
	s.ImportedFiles = append(s.ImportedFiles, name)
}

func (s *State) AddEmbeddedFile(name string) {
	if _, seen := s.embeddedSeen[name]; seen {
		return
	}
	s.embeddedSeen[name] = struct{}{}
	s.EmbeddedFiles = append(s.EmbeddedFiles, name)
}

func (s *State) noteUnresolved(name string) {
	s.UnresolvedVariables[name] = struct{}{}
}

type resolveOpts struct {
	// variables overrides the state's variable table for this walk, used
	// when expanding a macro against its call scope.
	variables *orderedmap.Map

	// resolveVars resolves bare variable references. Opportunistic
	// resolution while collapsing fragment lists happens regardless.
	resolveVars bool

	// resolveConds hoists condition expressions: each one is replaced by
	// a generated name and recorded for the document's Conditions
	// section.
	resolveConds bool
}

// resolveTree rebuilds a parsed tree, resolving what it can at this stage
// and keeping the rest marked for a later pass.
func (s *State) resolveTree(node interface{}, opts resolveOpts) (interface{}, error) {
	switch typed := node.(type) {
	case *orderedmap.Map:
		result := orderedmap.NewMap()
		err := typed.IterateErr(func(key, value interface{}) error {
			resolvedKey, err := s.resolveTree(key, opts)
			if err != nil {
				return err
			}
			resolvedValue, err := s.resolveTree(value, opts)
			if err != nil {
				return err
			}
			result.Set(resolvedKey, resolvedValue)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return result, nil

	case RawList:
		// Positional lists resolve item by item. Neighbors never merge,
		// so function parameters and array items keep their slots.
		collapsed := s.collapseFragments(typed, opts.variables, false)
		result := make(RawList, 0, len(collapsed))
		for _, item := range collapsed {
			resolved, err := s.resolveTree(item, opts)
			if err != nil {
				return nil, err
			}
			result = append(result, resolved)
		}
		return result, nil

	case FragmentList:
		collapsed := s.collapseFragments(typed, opts.variables, true)
		resolved := make([]interface{}, 0, len(collapsed))
		for _, item := range collapsed {
			r, err := s.resolveTree(item, opts)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, r)
		}

		if !hasUnresolved(resolved) {
			if allStrings(resolved) {
				var b strings.Builder
				for _, item := range resolved {
					b.WriteString(item.(string))
				}
				return b.String(), nil
			}
			if len(resolved) == 1 {
				return resolved[0], nil
			}
			return joinFragments(resolved), nil
		}
		return FragmentList(resolved), nil

	case []interface{}:
		result := make([]interface{}, 0, len(typed))
		for _, item := range typed {
			resolved, err := s.resolveTree(item, opts)
			if err != nil {
				return nil, err
			}
			result = append(result, resolved)
		}
		return result, nil

	case VarReference:
		if !opts.resolveVars {
			return typed, nil
		}
		value, found := s.Resolve(typed.Name, opts.variables)
		if !found {
			s.noteUnresolved(typed.Name)
			return typed, nil
		}
		delete(s.UnresolvedVariables, typed.Name)
		return value, nil

	case CondExpr:
		inner, err := s.resolveTree(typed.Expr, opts)
		if err != nil {
			return nil, err
		}
		if opts.resolveConds {
			s.ifCondCounter++
			name := fmt.Sprintf("IfCondition%d", s.ifCondCounter)
			s.ifConditions.Set(name, inner)
			return name, nil
		}
		return CondExpr{Expr: inner}, nil

	default:
		return node, nil
	}
}

// collapseFragments resolves the variable references sitting directly in a
// list. When merging is on, a string produced by a resolved reference
// joins its string neighbors, folding "a$$x/b" style fragments back into
// one string. Literal neighbors never merge with each other.
func (s *State) collapseFragments(items []interface{}, vars *orderedmap.Map, canMerge bool) []interface{} {
	result := make([]interface{}, 0, len(items))
	mergeNext := false

	for _, item := range items {
		mergeAfter := false

		if ref, ok := item.(VarReference); ok {
			if value, found := s.Resolve(ref.Name, vars); found {
				item = value
				delete(s.UnresolvedVariables, ref.Name)
				mergeNext = canMerge
				mergeAfter = canMerge
			} else {
				s.noteUnresolved(ref.Name)
			}
		}

		if str, ok := item.(string); ok {
			if mergeNext && len(result) > 0 {
				if prev, ok := result[len(result)-1].(string); ok {
					result[len(result)-1] = prev + str
					mergeNext = mergeAfter
					continue
				}
			}
			result = append(result, str)
			mergeNext = mergeAfter
			continue
		}

		result = append(result, item)
		mergeNext = false
	}
	return result
}

func allStrings(items []interface{}) bool {
	for _, item := range items {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}
