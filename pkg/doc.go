// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

/*
Package pkg is the collection of packages that make up the implementation of
cloudformer.

The codebase is organized into layers, with each package holding one concise
responsibility and depending on the others only to the degree required.

In the inventory, below, individual packages are named alongside their
coupling with the other packages in the codebase.

	(# of dependents) => <package name> => (# of dependencies)

Where "# of dependents" is the count of packages that import the named package
and "# of dependencies" is the count of packages that this named package
imports.

# Entry Point

cloudformer is built into two executable formats:

	./cmd/cloudformer          // a command-line tool
	./cmd/cloudformer-lambda   // an AWS Lambda function serving the compile API

# Commands

The commands wrap the compiler for the console: compiling (with watch mode and
version gating), Makefile dependency lines, parameter collection, and the
compile HTTP service.

	(1) => pkg/cmd => (6)
	(1) => pkg/website => (0)

# Template Compilation

The heart of cloudformer is reading the YAML template language (variables,
macros, inline functions, conditionals, imports) and compiling it into a
provisioning-ready JSON document.

	(1) => pkg/template => (2)

Templates are parsed with the de facto standard YAML library
(https://github.com/go-yaml/yaml), walking its Node API directly so mapping
order, tags, and source positions survive into the compiled output.

# Utilities

The remainder are domain-agnostic utilities:

	(2) => pkg/orderedmap => (0)
	(1) => pkg/filepos => (0)
	(1) => pkg/cmd/ui => (0)
	(1) => pkg/config => (0)
	(1) => pkg/version => (0)

# Dependencies

Each package's dependencies on other packages within this module are as
follows (if a package is not listed, it has no dependencies on other packages
within this module):

	pkg/cmd:
	- pkg/cmd/ui
	- pkg/config
	- pkg/orderedmap
	- pkg/template
	- pkg/version
	- pkg/website
	pkg/template:
	- pkg/filepos
	- pkg/orderedmap
*/
package pkg
