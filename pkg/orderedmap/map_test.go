// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package orderedmap_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/beanbaginc/cloudformer/pkg/orderedmap"
)

func TestMapKeepsInsertionOrder(t *testing.T) {
	m := orderedmap.NewMap()
	m.Set("zebra", 1)
	m.Set("apple", 2)
	m.Set("mango", 3)

	expected := []interface{}{"zebra", "apple", "mango"}
	if !reflect.DeepEqual(m.Keys(), expected) {
		t.Errorf("Keys out of order. Got: %v, Expected: %v", m.Keys(), expected)
	}

	m.Set("apple", 20)
	if !reflect.DeepEqual(m.Keys(), expected) {
		t.Errorf("Overwriting moved a key. Got: %v, Expected: %v", m.Keys(), expected)
	}

	val, found := m.Get("apple")
	if !found || val != 20 {
		t.Errorf("Expected apple=20, got: %v (found=%v)", val, found)
	}

	if !m.Delete("zebra") {
		t.Errorf("Expected Delete to report the key as present")
	}
	if m.Len() != 2 {
		t.Errorf("Expected 2 items after delete, got: %d", m.Len())
	}
}

func TestMapMarshalJSONOrder(t *testing.T) {
	inner := orderedmap.NewMap()
	inner.Set("b", "1")
	inner.Set("a", "2")

	m := orderedmap.NewMap()
	m.Set("Resources", inner)
	m.Set("Outputs", []interface{}{"x", inner})

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %s", err)
	}

	expected := `{"Resources":{"b":"1","a":"2"},"Outputs":["x",{"b":"1","a":"2"}]}`
	if string(out) != expected {
		t.Errorf("Got: %s, Expected: %s", out, expected)
	}
}

func TestMapMarshalIndentKeepsOrder(t *testing.T) {
	m := orderedmap.NewMap()
	m.Set("second", "2")
	m.Set("first", "1")

	out, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		t.Fatalf("MarshalIndent failed: %s", err)
	}

	expected := "{\n    \"second\": \"2\",\n    \"first\": \"1\"\n}"
	if string(out) != expected {
		t.Errorf("Got: %s, Expected: %s", out, expected)
	}
}
