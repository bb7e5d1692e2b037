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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/kraklabs/keel/pkg/graph"
)

func (p *TreeSitterParser) parsePython(path string, content []byte) (*ParseResult, error) {
	tree, err := parseCtx(context.Background(), p.pyParser, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	errCount := 0
	if root.HasError() {
		errCount = countErrors(root)
	}

	res := &ParseResult{FilePath: path, Language: "python", ParseErrors: errCount}
	walkPython(root, content, path, "", res)
	return res, nil
}

// walkPython recurses the Python AST. enclosingClass is non-empty while
// walking a class body, so methods are named Class.method like Go methods.
func walkPython(node *sitter.Node, content []byte, path, enclosingClass string, res *ParseResult) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "import_statement", "import_from_statement":
		res.Imports = append(res.Imports, pythonImport(node, content, path))
	case "function_definition":
		def, body := pythonFunctionDef(node, content, enclosingClass)
		if def != nil {
			res.Definitions = append(res.Definitions, *def)
			pythonCalls(body, content, path, res)
		}
		return // don't descend into nested defs' bodies twice via generic recursion below
	case "class_definition":
		def := pythonClassDef(node, content)
		if def != nil {
			res.Definitions = append(res.Definitions, *def)
		}
		name := pythonIdentifierField(node, content, "name")
		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.ChildCount()); i++ {
				walkPython(body.Child(i), content, path, name, res)
			}
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkPython(node.Child(i), content, path, enclosingClass, res)
	}
}

func pythonIdentifierField(node *sitter.Node, content []byte, field string) string {
	if n := node.ChildByFieldName(field); n != nil {
		return nodeText(content, n)
	}
	return ""
}

func pythonFunctionDef(node *sitter.Node, content []byte, enclosingClass string) (*Definition, *sitter.Node) {
	name := pythonIdentifierField(node, content, "name")
	if name == "" {
		return nil, nil
	}
	fullName := name
	kind := graph.KindFunction
	if enclosingClass != "" {
		fullName = enclosingClass + "." + name
		kind = graph.KindMethod
	}
	params := nodeText(content, node.ChildByFieldName("parameters"))
	var sig strings.Builder
	sig.WriteString("def ")
	sig.WriteString(name)
	sig.WriteString(params)
	hasHints := strings.Contains(params, ":")
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		sig.WriteString(" -> ")
		sig.WriteString(nodeText(content, rt))
		hasHints = true
	}
	body := node.ChildByFieldName("body")
	doc, hasDoc := pythonDocstring(body, content)
	return &Definition{
		Kind:             kind,
		Name:             fullName,
		Signature:        sig.String(),
		Body:             nodeText(content, body),
		Docstring:        doc,
		HasDoc:           hasDoc,
		StartLine:        int(node.StartPoint().Row) + 1,
		EndLine:          int(node.EndPoint().Row) + 1,
		StartCol:         int(node.StartPoint().Column) + 1,
		EndCol:           int(node.EndPoint().Column) + 1,
		IsPublic:         !strings.HasPrefix(name, "_"),
		TypeHintsPresent: hasHints,
	}, body
}

func pythonClassDef(node *sitter.Node, content []byte) *Definition {
	name := pythonIdentifierField(node, content, "name")
	if name == "" {
		return nil
	}
	body := node.ChildByFieldName("body")
	doc, hasDoc := pythonDocstring(body, content)
	return &Definition{
		Kind:      graph.KindClass,
		Name:      name,
		Signature: "class " + name + nodeText(content, node.ChildByFieldName("superclasses")),
		Body:      nodeText(content, body),
		Docstring: doc,
		HasDoc:    hasDoc,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		StartCol:  int(node.StartPoint().Column) + 1,
		EndCol:    int(node.EndPoint().Column) + 1,
		IsPublic:  !strings.HasPrefix(name, "_"),
	}
}

// pythonDocstring returns the first statement's string literal, Python's
// docstring convention, if the block's first statement is a bare string.
func pythonDocstring(body *sitter.Node, content []byte) (string, bool) {
	if body == nil || body.ChildCount() == 0 {
		return "", false
	}
	first := body.Child(0)
	if first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return "", false
	}
	str := first.Child(0)
	if str.Type() != "string" {
		return "", false
	}
	text := strings.Trim(nodeText(content, str), "\"'")
	line := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	return line, true
}

func pythonImport(node *sitter.Node, content []byte, path string) graph.UnresolvedRef {
	return graph.UnresolvedRef{
		Kind:          graph.EdgeImports,
		SourceFile:    path,
		SourceLine:    int(node.StartPoint().Row) + 1,
		TextualTarget: strings.TrimSpace(nodeText(content, node)),
		Language:      "python",
	}
}

func pythonCalls(body *sitter.Node, content []byte, path string, res *ParseResult) {
	if body == nil {
		return
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				res.Calls = append(res.Calls, graph.UnresolvedRef{
					Kind:          graph.EdgeCalls,
					SourceFile:    path,
					SourceLine:    int(n.StartPoint().Row) + 1,
					TextualTarget: nodeText(content, fn),
					Language:      "python",
				})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
}
