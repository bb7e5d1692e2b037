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

func (p *TreeSitterParser) parseRust(path string, content []byte) (*ParseResult, error) {
	tree, err := parseCtx(context.Background(), p.rustParser, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	errCount := 0
	if root.HasError() {
		errCount = countErrors(root)
	}

	res := &ParseResult{FilePath: path, Language: "rust", ParseErrors: errCount}
	walkRust(root, content, path, "", res)
	return res, nil
}

func walkRust(node *sitter.Node, content []byte, path, enclosingImpl string, res *ParseResult) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "use_declaration":
		res.Imports = append(res.Imports, graph.UnresolvedRef{
			Kind:          graph.EdgeImports,
			SourceFile:    path,
			SourceLine:    int(node.StartPoint().Row) + 1,
			TextualTarget: strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(nodeText(content, node), "use "), ";")),
			Language:      "rust",
		})
	case "function_item":
		if d, body := rustFunctionItem(node, content, enclosingImpl); d != nil {
			res.Definitions = append(res.Definitions, *d)
			rustCalls(body, content, path, res)
		}
		return
	case "struct_item", "enum_item", "trait_item":
		if d := rustTypeItem(node, content); d != nil {
			res.Definitions = append(res.Definitions, *d)
		}
	case "impl_item":
		implType := rustImplType(node, content)
		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.ChildCount()); i++ {
				walkRust(body.Child(i), content, path, implType, res)
			}
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkRust(node.Child(i), content, path, enclosingImpl, res)
	}
}

func rustFunctionItem(node *sitter.Node, content []byte, enclosingImpl string) (*Definition, *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil, nil
	}
	name := nodeText(content, nameNode)
	fullName := name
	kind := graph.KindFunction
	if enclosingImpl != "" {
		fullName = enclosingImpl + "." + name
		kind = graph.KindMethod
	}
	params := nodeText(content, node.ChildByFieldName("parameters"))
	retType := ""
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		retType = " -> " + nodeText(content, rt)
	}
	doc, hasDoc := rustDocAbove(node, content)
	body := node.ChildByFieldName("body")
	return &Definition{
		Kind:             kind,
		Name:             fullName,
		Signature:        "fn " + name + params + retType,
		Body:             nodeText(content, body),
		Docstring:        doc,
		HasDoc:           hasDoc,
		StartLine:        int(node.StartPoint().Row) + 1,
		EndLine:          int(node.EndPoint().Row) + 1,
		StartCol:         int(node.StartPoint().Column) + 1,
		EndCol:           int(node.EndPoint().Column) + 1,
		IsPublic:         strings.HasPrefix(nodeText(content, node), "pub"),
		TypeHintsPresent: true, // Rust is always statically typed
	}, body
}

func rustTypeItem(node *sitter.Node, content []byte) *Definition {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(content, nameNode)
	kind := graph.KindStruct
	switch node.Type() {
	case "enum_item":
		kind = graph.KindEnum
	case "trait_item":
		kind = graph.KindTrait
	}
	doc, hasDoc := rustDocAbove(node, content)
	body := node.ChildByFieldName("body")
	return &Definition{
		Kind:      kind,
		Name:      name,
		Signature: strings.SplitN(nodeText(content, node), "{", 2)[0],
		Body:      nodeText(content, body),
		Docstring: doc,
		HasDoc:    hasDoc,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		StartCol:  int(node.StartPoint().Column) + 1,
		EndCol:    int(node.EndPoint().Column) + 1,
		IsPublic:  strings.HasPrefix(nodeText(content, node), "pub"),
	}
}

func rustImplType(node *sitter.Node, content []byte) string {
	if t := node.ChildByFieldName("type"); t != nil {
		return strings.TrimSpace(nodeText(content, t))
	}
	return ""
}

func rustDocAbove(node *sitter.Node, content []byte) (string, bool) {
	prev := node.PrevSibling()
	var lines []string
	for prev != nil && (prev.Type() == "line_comment" || prev.Type() == "block_comment") {
		text := nodeText(content, prev)
		if strings.HasPrefix(text, "///") || strings.HasPrefix(text, "/**") {
			lines = append([]string{text}, lines...)
		}
		prev = prev.PrevSibling()
	}
	if len(lines) == 0 {
		return "", false
	}
	first := strings.TrimSpace(strings.TrimPrefix(lines[0], "///"))
	return first, true
}

func rustCalls(body *sitter.Node, content []byte, path string, res *ParseResult) {
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
					Language:      "rust",
				})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
}
