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
	"context"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TreeSitterParser is the grammar-based tier-one parser for every language
// keel supports: one *sitter.Parser per grammar, reused across files.
type TreeSitterParser struct {
	logger *slog.Logger

	goParser    *sitter.Parser
	pyParser    *sitter.Parser
	tsParser    *sitter.Parser
	tsxParser   *sitter.Parser
	jsParser    *sitter.Parser
	rustParser  *sitter.Parser
}

var _ Parser = (*TreeSitterParser)(nil)

// NewTreeSitterParser builds one tree-sitter parser per supported grammar.
func NewTreeSitterParser(logger *slog.Logger) *TreeSitterParser {
	if logger == nil {
		logger = slog.Default()
	}
	mk := func(lang *sitter.Language) *sitter.Parser {
		p := sitter.NewParser()
		p.SetLanguage(lang)
		return p
	}
	return &TreeSitterParser{
		logger:     logger,
		goParser:   mk(golang.GetLanguage()),
		pyParser:   mk(python.GetLanguage()),
		tsParser:   mk(typescript.GetLanguage()),
		tsxParser:  mk(tsx.GetLanguage()),
		jsParser:   mk(javascript.GetLanguage()),
		rustParser: mk(rust.GetLanguage()),
	}
}

// SupportsLanguage reports whether language has a registered grammar.
func (p *TreeSitterParser) SupportsLanguage(language string) bool {
	switch language {
	case "go", "python", "typescript", "javascript", "rust":
		return true
	default:
		return false
	}
}

// ParseFile runs the appropriate grammar's visitor over content.
func (p *TreeSitterParser) ParseFile(path string, content []byte, language string) (*ParseResult, error) {
	switch language {
	case "go":
		return p.parseGo(path, content)
	case "python":
		return p.parsePython(path, content)
	case "typescript":
		return p.parseTypeScript(path, content)
	case "javascript":
		return p.parseJavaScript(path, content)
	case "rust":
		return p.parseRust(path, content)
	default:
		return nil, &ErrUnsupportedLanguage{Language: language}
	}
}

// countErrors counts ERROR nodes in a parse tree; tree-sitter is
// error-tolerant so parsing continues regardless.
func countErrors(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	if node.Type() == "ERROR" {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countErrors(node.Child(i))
	}
	return count
}

func parseCtx(ctx context.Context, p *sitter.Parser, content []byte) (*sitter.Tree, error) {
	return p.ParseCtx(ctx, nil, content)
}
