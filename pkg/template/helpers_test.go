// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package template_test

import (
	"strings"
	"testing"

	"github.com/k14s/difflib"
	"github.com/stretchr/testify/require"

	"github.com/beanbaginc/cloudformer/pkg/orderedmap"
	"github.com/beanbaginc/cloudformer/pkg/template"
)

// mapWith builds an ordered map from alternating key/value arguments.
func mapWith(pairs ...interface{}) *orderedmap.Map {
	m := orderedmap.NewMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

func joinOf(items ...interface{}) *orderedmap.Map {
	return mapWith("Fn::Join", []interface{}{"", items})
}

func loadString(t *testing.T, s string) *template.Reader {
	t.Helper()
	reader := template.NewReader()
	err := reader.LoadString(s)
	require.NoError(t, err)
	return reader
}

func docValue(t *testing.T, m *orderedmap.Map, key string) interface{} {
	t.Helper()
	value, found := m.Get(key)
	require.True(t, found, "missing key %q", key)
	return value
}

func requireEqualStrings(t *testing.T, expected, actual string) {
	t.Helper()
	if expected != actual {
		diff := difflib.PPDiff(strings.Split(expected, "\n"), strings.Split(actual, "\n"))
		t.Fatalf("Not equal; diff expected...actual:\n%s", diff)
	}
}
