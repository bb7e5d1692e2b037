// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package parse

import (
	"fmt"
	"strings"

	"github.com/kraklabs/keel/pkg/graph"
)

// Definition is one tier-one extracted definition, not yet hashed or
// resolved; Mapper turns it into a graph.Node once a hash is computed.
type Definition struct {
	Kind             graph.Kind
	Name             string // simple name, e.g. "Start" or "Server.Start"
	Signature        string
	Body             string // code text between the definition's braces/block
	Docstring        string
	HasDoc           bool
	StartLine        int
	EndLine          int
	StartCol         int
	EndCol           int
	IsPublic         bool
	TypeHintsPresent bool
	SuppressDirective string // "<code> — <reason>"; no visitor fills it, so keel:suppress comments in source are not read
}

// Suppress splits a "<code> — <reason>" SuppressDirective into its parts.
// An em-dash or a plain hyphen both separate code from reason; a directive
// with no separator is treated as a code with an empty reason.
func (d Definition) Suppress() (code, reason string) {
	directive := strings.TrimSpace(d.SuppressDirective)
	if directive == "" {
		return "", ""
	}
	sep := "—"
	i := strings.Index(directive, sep)
	if i == -1 {
		sep = "-"
		i = strings.Index(directive, sep)
	}
	if i == -1 {
		return strings.TrimSpace(directive), ""
	}
	return strings.TrimSpace(directive[:i]), strings.TrimSpace(directive[i+len(sep):])
}

// ParseResult is everything tier one extracts from a single file.
type ParseResult struct {
	FilePath    string
	Language    string
	ModuleName  string
	Definitions []Definition
	Calls       []graph.UnresolvedRef
	Imports     []graph.UnresolvedRef
	Inherits    []graph.UnresolvedRef
	ParseErrors int // tree-sitter syntax error nodes found; parsing still proceeds
}

// Parser is the tier-one grammar-based parser contract. One implementation
// (TreeSitterParser) backs every supported language.
type Parser interface {
	ParseFile(path string, content []byte, language string) (*ParseResult, error)
	SupportsLanguage(language string) bool
}

// ErrUnsupportedLanguage is returned when no grammar is registered for a
// file's language.
type ErrUnsupportedLanguage struct {
	Language string
}

func (e *ErrUnsupportedLanguage) Error() string {
	return fmt.Sprintf("parse: unsupported language %q", e.Language)
}
