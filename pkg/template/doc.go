// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

/*
Package template implements the CloudFormer template language: YAML extended
with variables, macros, imports and an inline mini-language of function
calls, references and conditionals embedded in scalar strings.

Reader parses a multi-document template stream, maintaining variable and
macro state across documents and expanding the mini-language inside every
scalar. Compiler post-processes a read template into a plain CloudFormation
document: it assembles the standard sections, hoists inline conditionals
into named Conditions, extracts parameter metadata, and renders ordered,
indented JSON.
*/
package template
