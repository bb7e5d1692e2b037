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

func (p *TreeSitterParser) parseTypeScript(path string, content []byte) (*ParseResult, error) {
	return p.parseJSFamily(path, content, p.tsParser, "typescript")
}

func (p *TreeSitterParser) parseJavaScript(path string, content []byte) (*ParseResult, error) {
	return p.parseJSFamily(path, content, p.jsParser, "javascript")
}

func (p *TreeSitterParser) parseJSFamily(path string, content []byte, parser *sitter.Parser, language string) (*ParseResult, error) {
	tree, err := parseCtx(context.Background(), parser, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	errCount := 0
	if root.HasError() {
		errCount = countErrors(root)
	}

	res := &ParseResult{FilePath: path, Language: language, ParseErrors: errCount}
	walkJS(root, content, path, language, "", res)
	return res, nil
}

func walkJS(node *sitter.Node, content []byte, path, language, enclosingClass string, res *ParseResult) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "import_statement":
		res.Imports = append(res.Imports, graph.UnresolvedRef{
			Kind:          graph.EdgeImports,
			SourceFile:    path,
			SourceLine:    int(node.StartPoint().Row) + 1,
			TextualTarget: jsImportSource(node, content),
			Language:      language,
		})
	case "function_declaration":
		if d, body := jsFunctionDecl(node, content, language, enclosingClass); d != nil {
			res.Definitions = append(res.Definitions, *d)
			jsCalls(body, content, path, language, res)
		}
		return
	case "method_definition":
		if d, body := jsMethodDef(node, content, language, enclosingClass); d != nil {
			res.Definitions = append(res.Definitions, *d)
			jsCalls(body, content, path, language, res)
		}
		return
	case "class_declaration":
		if d := jsClassDecl(node, content); d != nil {
			res.Definitions = append(res.Definitions, *d)
		}
		name := jsField(node, content, "name")
		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.ChildCount()); i++ {
				walkJS(body.Child(i), content, path, language, name, res)
			}
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkJS(node.Child(i), content, path, language, enclosingClass, res)
	}
}

func jsField(node *sitter.Node, content []byte, field string) string {
	if n := node.ChildByFieldName(field); n != nil {
		return nodeText(content, n)
	}
	return ""
}

func jsDocAbove(node *sitter.Node, content []byte) (string, bool) {
	prev := node.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return "", false
	}
	text := nodeText(content, prev)
	if !strings.HasPrefix(text, "/**") {
		return "", false
	}
	lines := strings.Split(text, "\n")
	for _, l := range lines {
		l = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "*"))
		l = strings.TrimPrefix(l, "/**")
		l = strings.TrimSuffix(l, "*/")
		l = strings.TrimSpace(l)
		if l != "" {
			return l, true
		}
	}
	return "", true
}

func jsFunctionDecl(node *sitter.Node, content []byte, language, enclosingClass string) (*Definition, *sitter.Node) {
	name := jsField(node, content, "name")
	if name == "" {
		return nil, nil
	}
	params := nodeText(content, node.ChildByFieldName("parameters"))
	returnType := jsField(node, content, "return_type")
	doc, hasDoc := jsDocAbove(node, content)
	body := node.ChildByFieldName("body")
	hasHints := language == "typescript" && (strings.Contains(params, ":") || returnType != "")
	return &Definition{
		Kind:             graph.KindFunction,
		Name:             name,
		Signature:        "function " + name + params + returnType,
		Body:             nodeText(content, body),
		Docstring:        doc,
		HasDoc:           hasDoc,
		StartLine:        int(node.StartPoint().Row) + 1,
		EndLine:          int(node.EndPoint().Row) + 1,
		StartCol:         int(node.StartPoint().Column) + 1,
		EndCol:           int(node.EndPoint().Column) + 1,
		IsPublic:         true, // export status is not checked: every function declaration counts as public
		TypeHintsPresent: hasHints,
	}, body
}

func jsMethodDef(node *sitter.Node, content []byte, language, enclosingClass string) (*Definition, *sitter.Node) {
	name := jsField(node, content, "name")
	if name == "" {
		return nil, nil
	}
	fullName := name
	if enclosingClass != "" {
		fullName = enclosingClass + "." + name
	}
	params := nodeText(content, node.ChildByFieldName("parameters"))
	returnType := jsField(node, content, "return_type")
	doc, hasDoc := jsDocAbove(node, content)
	body := node.ChildByFieldName("body")
	hasHints := language == "typescript" && (strings.Contains(params, ":") || returnType != "")
	return &Definition{
		Kind:             graph.KindMethod,
		Name:             fullName,
		Signature:        name + params + returnType,
		Body:             nodeText(content, body),
		Docstring:        doc,
		HasDoc:           hasDoc,
		StartLine:        int(node.StartPoint().Row) + 1,
		EndLine:          int(node.EndPoint().Row) + 1,
		StartCol:         int(node.StartPoint().Column) + 1,
		EndCol:           int(node.EndPoint().Column) + 1,
		IsPublic:         !strings.HasPrefix(name, "#"),
		TypeHintsPresent: hasHints,
	}, body
}

func jsClassDecl(node *sitter.Node, content []byte) *Definition {
	name := jsField(node, content, "name")
	if name == "" {
		return nil
	}
	doc, hasDoc := jsDocAbove(node, content)
	body := node.ChildByFieldName("body")
	return &Definition{
		Kind:      graph.KindClass,
		Name:      name,
		Signature: "class " + name + jsField(node, content, "heritage"),
		Body:      nodeText(content, body),
		Docstring: doc,
		HasDoc:    hasDoc,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		StartCol:  int(node.StartPoint().Column) + 1,
		EndCol:    int(node.EndPoint().Column) + 1,
		IsPublic:  true,
	}
}

func jsImportSource(node *sitter.Node, content []byte) string {
	if src := node.ChildByFieldName("source"); src != nil {
		return strings.Trim(nodeText(content, src), `"'`)
	}
	return strings.TrimSpace(nodeText(content, node))
}

func jsCalls(body *sitter.Node, content []byte, path, language string, res *ParseResult) {
	if body == nil {
		return
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				res.Calls = append(res.Calls, graph.UnresolvedRef{
					Kind:          graph.EdgeCalls,
					SourceFile:    path,
					SourceLine:    int(n.StartPoint().Row) + 1,
					TextualTarget: nodeText(content, fn),
					Language:      language,
				})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
}
