// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package template_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beanbaginc/cloudformer/pkg/template"
)

func TestReaderNormalizesBooleans(t *testing.T) {
	reader := loadString(t,
		"bool1: false\n"+
			"bool2: true\n")

	require.Equal(t, "false", docValue(t, reader.Doc, "bool1"))
	require.Equal(t, "true", docValue(t, reader.Doc, "bool2"))
}

func TestReaderNormalizesIntegers(t *testing.T) {
	reader := loadString(t, "key: 123")

	require.Equal(t, "123", docValue(t, reader.Doc, "key"))
}

func TestReaderNormalizesFloats(t *testing.T) {
	reader := loadString(t, "key: 1.0")

	require.Equal(t, "1.0", docValue(t, reader.Doc, "key"))
}

func TestReaderKeepsNulls(t *testing.T) {
	reader := loadString(t, "key: null")

	require.Nil(t, docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsRefs(t *testing.T) {
	reader := loadString(t, `key: "@@MyRef"`)

	require.Equal(t, mapWith("Ref", "MyRef"), docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsRefsWithVars(t *testing.T) {
	reader := loadString(t, `key: "@@$$refname"`)

	require.Equal(t,
		mapWith("Ref", template.VarReference{Name: "refname"}),
		docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsRefsWithBraces(t *testing.T) {
	reader := loadString(t, `key: "@@{MyRef}"`)

	require.Equal(t, mapWith("Ref", "MyRef"), docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsRefsWithBracesAndVars(t *testing.T) {
	reader := loadString(t, `key: "@@{$$path.to.refname}"`)

	require.Equal(t,
		mapWith("Ref", template.VarReference{Name: "path.to.refname"}),
		docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsVars(t *testing.T) {
	reader := template.NewReader()
	reader.State.Variables.Set("myvar", "123")
	require.NoError(t, reader.LoadString("key: $$myvar"))

	require.Equal(t, "123", docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsVarsWithPath(t *testing.T) {
	reader := template.NewReader()
	reader.State.Variables.Set("myvar", mapWith("a", mapWith("b", "123")))
	require.NoError(t, reader.LoadString("key: $${myvar.a.b}"))

	require.Equal(t, "123", docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsVarsInKeys(t *testing.T) {
	reader := template.NewReader()
	reader.State.Variables.Set("myvar", "abc")
	require.NoError(t, reader.LoadString("$$myvar: foo"))

	require.Equal(t, "foo", docValue(t, reader.Doc, "abc"))
}

func TestReaderEmbedsFuncs(t *testing.T) {
	reader := loadString(t, "key: <% FindInMap(a, @@b, c) %>")

	require.Equal(t,
		mapWith("Fn::FindInMap", template.RawList{"a", mapWith("Ref", "b"), "c"}),
		docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsFuncsWithBase64(t *testing.T) {
	reader := loadString(t, `key: <% Base64("abc123") %>`)

	require.Equal(t, mapWith("Fn::Base64", "abc123"), docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsFuncsWithGetAtt(t *testing.T) {
	reader := loadString(t, `key: <% GetAtt("MyResource", "MyProperty") %>`)

	require.Equal(t,
		mapWith("Fn::GetAtt", template.RawList{"MyResource", "MyProperty"}),
		docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsFuncsWithGetAttAndRefs(t *testing.T) {
	reader := loadString(t, `key: <% GetAtt("MyResource", @@MyProperty) %>`)

	require.Equal(t,
		mapWith("Fn::GetAtt", template.RawList{"MyResource", mapWith("Ref", "MyProperty")}),
		docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsFuncsWithNoParams(t *testing.T) {
	reader := loadString(t, "key: <% GetAZs() %>")

	require.Equal(t, mapWith("Fn::GetAZs", ""), docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsFuncsWithOneParam(t *testing.T) {
	reader := loadString(t, `key: <% GetAZs("us-east-1") %>`)

	require.Equal(t, mapWith("Fn::GetAZs", "us-east-1"), docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsFuncsWithRefParam(t *testing.T) {
	reader := loadString(t, "key: <% GetAZs(@@MyReference) %>")

	require.Equal(t,
		mapWith("Fn::GetAZs", mapWith("Ref", "MyReference")),
		docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsFuncsWithArrayParams(t *testing.T) {
	reader := template.NewReader()
	reader.State.Variables.Set("myvar", "abc")
	require.NoError(t, reader.LoadString(
		`key: <% Select(2, ["foo 'bar'", '"foo" bar', $$myvar]) %>`))

	require.Equal(t,
		mapWith("Fn::Select", template.RawList{
			"2",
			template.RawList{`foo 'bar'`, `"foo" bar`, "abc"},
		}),
		docValue(t, reader.Doc, "key"))
}

func TestReaderEmbedsFuncsWithRefParamLists(t *testing.T) {
	reader := loadString(t, "key: <% Select(2, @@MyReference) %>")

	require.Equal(t,
		mapWith("Fn::Select", template.RawList{"2", mapWith("Ref", "MyReference")}),
		docValue(t, reader.Doc, "key"))
}

func TestReaderJoinsRefsInStrings(t *testing.T) {
	reader := loadString(t, `key: "foo - @@Bar - baz"`)

	require.Equal(t,
		joinOf("foo - ", mapWith("Ref", "Bar"), " - baz"),
		docValue(t, reader.Doc, "key"))
}

func TestReaderResolvesVarsInStrings(t *testing.T) {
	reader := template.NewReader()
	reader.State.Variables.Set("myvar", "abc")
	require.NoError(t, reader.LoadString(`key: "foo - $$myvar - baz"`))

	require.Equal(t, "foo - abc - baz", docValue(t, reader.Doc, "key"))
}

func TestReaderKeepsUnresolvedVarsInStrings(t *testing.T) {
	reader := loadString(t, `key: "foo - $$myvar - baz"`)

	require.Equal(t,
		template.FragmentList{"foo - ", template.VarReference{Name: "myvar"}, " - baz"},
		docValue(t, reader.Doc, "key"))
	require.Contains(t, reader.State.UnresolvedVariables, "myvar")
}

func TestReaderJoinsFuncsInStrings(t *testing.T) {
	reader := loadString(t, "key: foo - <% FindInMap(a, @@b, c) %> - baz")

	require.Equal(t,
		joinOf(
			"foo - ",
			mapWith("Fn::FindInMap", template.RawList{"a", mapWith("Ref", "b"), "c"}),
			" - baz"),
		docValue(t, reader.Doc, "key"))
}

func TestReaderJoinsMultilineStrings(t *testing.T) {
	reader := loadString(t,
		"key: |\n"+
			"    This is line one.\n"+
			"    This is line two.\n")

	require.Equal(t,
		joinOf("This is line one.\n", "This is line two.\n"),
		docValue(t, reader.Doc, "key"))
}

func TestReaderWrapsBase64MultilineStrings(t *testing.T) {
	reader := loadString(t,
		"key: |\n"+
			"    __base64__\n"+
			"    This is line one.\n"+
			"    This is line two.\n")

	require.Equal(t,
		mapWith("Fn::Base64",
			joinOf("This is line one.\n", "This is line two.\n")),
		docValue(t, reader.Doc, "key"))
}

func TestReaderMacrosDoc(t *testing.T) {
	reader := loadString(t,
		"--- !macros\n"+
			"macro1:\n"+
			"    content:\n"+
			"        key: value\n")

	require.Equal(t, 0, reader.Doc.Len())

	macro, found := reader.State.Macros.Get("macro1")
	require.True(t, found)
	require.Equal(t, mapWith("content", mapWith("key", "value")), macro)
}

func TestReaderVarsDoc(t *testing.T) {
	reader := loadString(t,
		"--- !vars\n"+
			"var1: value1\n"+
			"var2: value2\n")

	require.Equal(t, 0, reader.Doc.Len())

	value, found := reader.State.Variables.Get("var1")
	require.True(t, found)
	require.Equal(t, "value1", value)

	value, found = reader.State.Variables.Get("var2")
	require.True(t, found)
	require.Equal(t, "value2", value)
}

func TestReaderVarsDocChainsEarlierEntries(t *testing.T) {
	reader := loadString(t,
		"--- !vars\n"+
			"var1: value1\n"+
			"var2: $${var1}-foo\n"+
			"var3: $${var2}bar\n")

	variables := reader.State.Variables
	require.Equal(t, "value1", docValue(t, variables, "var1"))
	require.Equal(t, "value1-foo", docValue(t, variables, "var2"))
	require.Equal(t, "value1-foobar", docValue(t, variables, "var3"))
}

func TestReaderTagsStatement(t *testing.T) {
	reader := loadString(t,
		"key: !tags\n"+
			"    tag1: value1\n"+
			"    tag2: value2\n")

	require.Equal(t,
		[]interface{}{
			mapWith("Key", "tag1", "Value", "value1"),
			mapWith("Key", "tag2", "Value", "value2"),
		},
		docValue(t, reader.Doc, "key"))
}

func TestReaderCallMacro(t *testing.T) {
	reader := loadString(t,
		"--- !macros\n"+
			"test-macro:\n"+
			"    defaultParams:\n"+
			"        param1: default1\n"+
			"        param2: default2\n"+
			"\n"+
			"    content:\n"+
			"        key1: $$param1\n"+
			"        key2: $$param2\n"+
			"\n"+
			"---\n"+
			"key: !call-macro\n"+
			"    macro: test-macro\n"+
			"    param2: hello\n")

	require.Equal(t,
		mapWith("key1", "default1", "key2", "hello"),
		docValue(t, reader.Doc, "key"))
}

func TestReaderCallMacroWithNestedPath(t *testing.T) {
	reader := loadString(t,
		"--- !macros\n"+
			"my-macros:\n"+
			"    test-macro:\n"+
			"        defaultParams:\n"+
			"            param1: default1\n"+
			"            param2: default2\n"+
			"\n"+
			"        content:\n"+
			"            key1: $$param1\n"+
			"            key2: $$param2\n"+
			"\n"+
			"---\n"+
			"key: !call-macro\n"+
			"    macro: my-macros.test-macro\n"+
			"    param2: hello\n")

	require.Equal(t,
		mapWith("key1", "default1", "key2", "hello"),
		docValue(t, reader.Doc, "key"))
}

func TestReaderCallMacroWithMerge(t *testing.T) {
	reader := loadString(t,
		"--- !macros\n"+
			"test-macro:\n"+
			"    defaultParams:\n"+
			"        param1: default1\n"+
			"        param2: default2\n"+
			"\n"+
			"    content:\n"+
			"        key1: $$param1\n"+
			"        key2: $$param2\n"+
			"\n"+
			"---\n"+
			"<: !call-macro\n"+
			"    macro: test-macro\n"+
			"    param2: hello\n")

	require.Equal(t, "default1", docValue(t, reader.Doc, "key1"))
	require.Equal(t, "hello", docValue(t, reader.Doc, "key2"))
}

func TestReaderCallMacroKeepsVarsToRefs(t *testing.T) {
	reader := loadString(t,
		"--- !macros\n"+
			"macro1:\n"+
			`    content: "[$$myvar] test"`+"\n"+
			"\n"+
			"---\n"+
			"key: !call-macro\n"+
			"    macro: macro1\n"+
			`    myvar: "@@MyRef"`+"\n")

	require.Equal(t,
		joinOf("[", mapWith("Ref", "MyRef"), "] test"),
		docValue(t, reader.Doc, "key"))
}

func TestReaderCallMacroWithIfExpressions(t *testing.T) {
	reader := loadString(t,
		"--- !macros\n"+
			"test-macro:\n"+
			"    defaultParams:\n"+
			"        param1: false\n"+
			"\n"+
			"    content:\n"+
			"        string: |\n"+
			"            <% If ($$param1 == true) { %>\n"+
			"            param1 is true\n"+
			"            <% } %>\n"+
			"\n"+
			"---\n"+
			"key: !call-macro\n"+
			"    macro: test-macro\n"+
			"    param1: true\n")

	require.Equal(t,
		mapWith("string", mapWith("Fn::If", template.RawList{
			template.CondExpr{
				Expr: mapWith("Fn::Equals", template.RawList{"true", "true"}),
			},
			"param1 is true\n",
		})),
		docValue(t, reader.Doc, "key"))
}

func TestReaderCallMacroWithIfExpressionsAndDefaults(t *testing.T) {
	reader := loadString(t,
		"--- !macros\n"+
			"test-macro:\n"+
			"    defaultParams:\n"+
			"        param1: false\n"+
			"\n"+
			"    content:\n"+
			"        string: |\n"+
			"            <% If ($$param1 == true) { %>\n"+
			"            param1 is true\n"+
			"            <% } %>\n"+
			"\n"+
			"---\n"+
			"key: !call-macro\n"+
			"    macro: test-macro\n")

	require.Equal(t,
		mapWith("string", mapWith("Fn::If", template.RawList{
			template.CondExpr{
				Expr: mapWith("Fn::Equals", template.RawList{"false", "true"}),
			},
			"param1 is true\n",
		})),
		docValue(t, reader.Doc, "key"))
}

func TestReaderCallMacroUnknownMacro(t *testing.T) {
	reader := template.NewReader()
	err := reader.LoadString(
		"key: !call-macro\n" +
			"    macro: missing\n")

	require.Error(t, err)
	require.Equal(t, `"missing" is not a valid macro`, err.Error())
}

func TestReaderCallMacroWithoutMacroKey(t *testing.T) {
	reader := template.NewReader()
	err := reader.LoadString(
		"key: !call-macro\n" +
			"    param1: value\n")

	require.Error(t, err)
	require.Contains(t, err.Error(), `!call-macro requires a "macro" key`)
}

func TestReaderImportStatement(t *testing.T) {
	tempDir := t.TempDir()
	filename := filepath.Join(tempDir, "defs.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(
		"--- !vars\n"+
			"var1: value1\n"+
			"--- !macros\n"+
			"macro1:\n"+
			"    content:\n"+
			"        key1: $$var1\n"), 0600))

	reader := loadString(t,
		"__imports__:\n"+
			"    !import "+filename+"\n"+
			"\n"+
			"key: !call-macro\n"+
			"    macro: macro1\n")

	require.Equal(t, mapWith("var1", "value1"), reader.State.Variables)
	require.Equal(t,
		mapWith("macro1", mapWith("content", mapWith("key1", "value1"))),
		reader.State.Macros)
	require.Equal(t, mapWith("key1", "value1"), docValue(t, reader.Doc, "key"))
	require.Equal(t, []string{filename}, reader.State.ImportedFiles)

	_, found := reader.Doc.Get("__imports__")
	require.False(t, found)
}

func TestReaderImportIgnoresImportedTemplateDoc(t *testing.T) {
	tempDir := t.TempDir()
	filename := filepath.Join(tempDir, "defs.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(
		"--- !vars\n"+
			"var1: value1\n"+
			"---\n"+
			"ignored: content\n"), 0600))

	reader := loadString(t,
		"__imports__: !import "+filename+"\n"+
			"key: $$var1\n")

	require.Equal(t, "value1", docValue(t, reader.Doc, "key"))

	_, found := reader.Doc.Get("ignored")
	require.False(t, found)
}

func TestReaderImportMissingFile(t *testing.T) {
	reader := template.NewReader()
	err := reader.LoadString("__imports__: !import /nonexistent/defs.yaml\n")

	require.Error(t, err)
	require.Contains(t, err.Error(), `Unable to import template "/nonexistent/defs.yaml"`)
}

func TestReaderEmbedFileStatement(t *testing.T) {
	tempDir := t.TempDir()
	filename := filepath.Join(tempDir, "userdata.sh")
	require.NoError(t, os.WriteFile(filename, []byte(
		"#!/bin/sh\n"+
			"echo hello\n"), 0600))

	reader := loadString(t, "key: !embed-file "+filename+"\n")

	require.Equal(t,
		joinOf("#!/bin/sh\n", "echo hello\n"),
		docValue(t, reader.Doc, "key"))
	require.Equal(t, []string{filename}, reader.State.EmbeddedFiles)
}

func TestReaderEmbedFileMissing(t *testing.T) {
	reader := template.NewReader()
	err := reader.LoadString("key: !embed-file /nonexistent/userdata.sh\n")

	require.Error(t, err)
	require.Contains(t, err.Error(), `Unable to embed file "/nonexistent/userdata.sh"`)
}

func TestReaderMergeKeySplicesMapping(t *testing.T) {
	reader := loadString(t,
		"defaults: &defaults\n"+
			"    key1: value1\n"+
			"    key2: value2\n"+
			"merged:\n"+
			"    <<: *defaults\n"+
			"    key2: override\n")

	require.Equal(t,
		mapWith("key1", "value1", "key2", "override"),
		docValue(t, reader.Doc, "merged"))
}

func TestReaderMultipleTemplateDocs(t *testing.T) {
	reader := template.NewReader()
	err := reader.LoadString(
		"key1: value1\n" +
			"---\n" +
			"key2: value2\n")

	require.Error(t, err)
	require.Contains(t, err.Error(), "Multiple template documents are not allowed")
}

func TestReaderTemplateDocMustBeMapping(t *testing.T) {
	reader := template.NewReader()
	err := reader.LoadString("- a\n- b\n")

	require.Error(t, err)
	require.Contains(t, err.Error(), "Template document must be a mapping")
}

func TestReaderUnsupportedTag(t *testing.T) {
	reader := template.NewReader()
	err := reader.LoadString("key: !mystery value\n")

	require.Error(t, err)
	require.Contains(t, err.Error(), `Unsupported tag "!mystery"`)
}

func TestReaderLoadFileResolvesRelativeImports(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "defs.yaml"), []byte(
		"--- !vars\n"+
			"var1: value1\n"), 0600))
	mainFile := filepath.Join(tempDir, "main.yaml")
	require.NoError(t, os.WriteFile(mainFile, []byte(
		"__imports__: !import defs.yaml\n"+
			"key: $$var1\n"), 0600))

	reader := template.NewReader()
	require.NoError(t, reader.LoadFile(mainFile))

	require.Equal(t, "value1", docValue(t, reader.Doc, "key"))
	require.Equal(t, []string{"defs.yaml"}, reader.State.ImportedFiles)
}
