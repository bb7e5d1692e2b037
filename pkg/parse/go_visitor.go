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
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/kraklabs/keel/pkg/graph"
)

func (p *TreeSitterParser) parseGo(path string, content []byte) (*ParseResult, error) {
	tree, err := parseCtx(context.Background(), p.goParser, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	errCount := 0
	if root.HasError() {
		errCount = countErrors(root)
		if errCount > 0 {
			p.logger.Warn("parse.go.syntax_errors", "path", path, "count", errCount)
		}
	}

	res := &ParseResult{FilePath: path, Language: "go", ParseErrors: errCount}
	res.ModuleName = goPackageName(root, content)
	res.Imports = goImports(root, content, path)

	ctx := &goWalkCtx{content: content, filePath: path}
	walkGo(root, ctx)
	res.Definitions = ctx.defs
	for _, fn := range ctx.fnNodes {
		res.Calls = append(res.Calls, goCalls(fn.node, content, path)...)
	}
	return res, nil
}

type goWalkCtx struct {
	content     []byte
	filePath    string
	defs        []Definition
	fnNodes     []goFnNode
	anonCounter int
}

type goFnNode struct {
	node *sitter.Node
}

func walkGo(node *sitter.Node, ctx *goWalkCtx) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_declaration":
		if d, n := goFunctionDecl(node, ctx); d != nil {
			ctx.defs = append(ctx.defs, *d)
			ctx.fnNodes = append(ctx.fnNodes, goFnNode{node: n})
		}
	case "method_declaration":
		if d, n := goMethodDecl(node, ctx); d != nil {
			ctx.defs = append(ctx.defs, *d)
			ctx.fnNodes = append(ctx.fnNodes, goFnNode{node: n})
		}
	case "type_declaration":
		goTypeDecl(node, ctx)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkGo(node.Child(i), ctx)
	}
}

func nodeText(content []byte, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func goDocAbove(node *sitter.Node, content []byte) (string, bool) {
	prev := node.PrevSibling()
	var lines []string
	for prev != nil && prev.Type() == "comment" {
		lines = append([]string{nodeText(content, prev)}, lines...)
		prev = prev.PrevSibling()
	}
	if len(lines) == 0 {
		return "", false
	}
	joined := strings.Join(lines, "\n")
	first := strings.TrimLeft(strings.SplitN(joined, "\n", 2)[0], "/ \t")
	return first, true
}

func goFunctionDecl(node *sitter.Node, ctx *goWalkCtx) (*Definition, *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil, nil
	}
	name := nodeText(ctx.content, nameNode)
	sig := goSignature(node, ctx.content, "func "+name)
	doc, hasDoc := goDocAbove(node, ctx.content)
	return &Definition{
		Kind:             graph.KindFunction,
		Name:             name,
		Signature:        sig,
		Body:             goBody(node, ctx.content),
		Docstring:        doc,
		HasDoc:           hasDoc,
		StartLine:        int(node.StartPoint().Row) + 1,
		EndLine:          int(node.EndPoint().Row) + 1,
		StartCol:         int(node.StartPoint().Column) + 1,
		EndCol:           int(node.EndPoint().Column) + 1,
		IsPublic:         name != "" && unicode.IsUpper(rune(name[0])),
		TypeHintsPresent: true, // Go is always statically typed
	}, node
}

func goMethodDecl(node *sitter.Node, ctx *goWalkCtx) (*Definition, *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil, nil
	}
	methodName := nodeText(ctx.content, nameNode)
	receiverNode := node.ChildByFieldName("receiver")
	receiverType := goReceiverType(receiverNode, ctx.content)
	fullName := methodName
	if receiverType != "" {
		fullName = receiverType + "." + methodName
	}
	sig := goSignature(node, ctx.content, "func "+nodeText(ctx.content, receiverNode)+" "+methodName)
	doc, hasDoc := goDocAbove(node, ctx.content)
	return &Definition{
		Kind:             graph.KindMethod,
		Name:             fullName,
		Signature:        sig,
		Body:             goBody(node, ctx.content),
		Docstring:        doc,
		HasDoc:           hasDoc,
		StartLine:        int(node.StartPoint().Row) + 1,
		EndLine:          int(node.EndPoint().Row) + 1,
		StartCol:         int(node.StartPoint().Column) + 1,
		EndCol:           int(node.EndPoint().Column) + 1,
		IsPublic:         methodName != "" && unicode.IsUpper(rune(methodName[0])),
		TypeHintsPresent: true,
	}, node
}

func goSignature(node *sitter.Node, content []byte, prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	if tp := node.ChildByFieldName("type_parameters"); tp != nil {
		b.WriteString(nodeText(content, tp))
	}
	b.WriteString(nodeText(content, node.ChildByFieldName("parameters")))
	if r := node.ChildByFieldName("result"); r != nil {
		b.WriteString(" ")
		b.WriteString(nodeText(content, r))
	}
	return b.String()
}

func goBody(node *sitter.Node, content []byte) string {
	if b := node.ChildByFieldName("body"); b != nil {
		return nodeText(content, b)
	}
	return ""
}

func goReceiverType(receiverNode *sitter.Node, content []byte) string {
	if receiverNode == nil {
		return ""
	}
	for i := 0; i < int(receiverNode.ChildCount()); i++ {
		child := receiverNode.Child(i)
		if child.Type() == "parameter_declaration" {
			if t := child.ChildByFieldName("type"); t != nil {
				return goBaseTypeName(t, content)
			}
		}
	}
	return ""
}

func goBaseTypeName(typeNode *sitter.Node, content []byte) string {
	if typeNode == nil {
		return ""
	}
	switch typeNode.Type() {
	case "pointer_type":
		for i := 0; i < int(typeNode.ChildCount()); i++ {
			child := typeNode.Child(i)
			if child.Type() != "*" {
				return goBaseTypeName(child, content)
			}
		}
	case "generic_type":
		if tn := typeNode.ChildByFieldName("type"); tn != nil {
			return nodeText(content, tn)
		}
	case "type_identifier":
		return nodeText(content, typeNode)
	}
	return strings.TrimPrefix(nodeText(content, typeNode), "*")
}

func goPackageName(root *sitter.Node, content []byte) string {
	if root == nil {
		return ""
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() == "package_clause" {
			if n := child.ChildByFieldName("name"); n != nil {
				return nodeText(content, n)
			}
		}
	}
	return ""
}

func goImports(root *sitter.Node, content []byte, path string) []graph.UnresolvedRef {
	var refs []graph.UnresolvedRef
	if root == nil {
		return refs
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() != "import_declaration" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			spec := child.Child(j)
			switch spec.Type() {
			case "import_spec":
				if ref := goImportSpec(spec, content, path); ref != nil {
					refs = append(refs, *ref)
				}
			case "import_spec_list":
				for k := 0; k < int(spec.ChildCount()); k++ {
					inner := spec.Child(k)
					if inner.Type() == "import_spec" {
						if ref := goImportSpec(inner, content, path); ref != nil {
							refs = append(refs, *ref)
						}
					}
				}
			}
		}
	}
	return refs
}

func goImportSpec(node *sitter.Node, content []byte, path string) *graph.UnresolvedRef {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		return nil
	}
	importPath := strings.Trim(nodeText(content, pathNode), `"`)
	return &graph.UnresolvedRef{
		Kind:          graph.EdgeImports,
		SourceFile:    path,
		SourceLine:    int(node.StartPoint().Row) + 1,
		TextualTarget: importPath,
		Language:      "go",
	}
}

// goTypeDecl extracts struct/interface type declarations as Definitions.
func goTypeDecl(node *sitter.Node, ctx *goWalkCtx) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "type_spec":
			if d := goTypeSpec(child, ctx.content); d != nil {
				ctx.defs = append(ctx.defs, *d)
			}
		case "type_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() == "type_spec" {
					if d := goTypeSpec(spec, ctx.content); d != nil {
						ctx.defs = append(ctx.defs, *d)
					}
				}
			}
		}
	}
}

func goTypeSpec(node *sitter.Node, content []byte) *Definition {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(content, nameNode)
	typeNode := node.ChildByFieldName("type")
	kind := graph.KindStruct
	if typeNode != nil && typeNode.Type() == "interface_type" {
		kind = graph.KindInterface
	}
	doc, hasDoc := goDocAbove(node.Parent(), content)
	return &Definition{
		Kind:      kind,
		Name:      name,
		Signature: "type " + name + " " + strings.Fields(nodeText(content, typeNode))[0],
		Body:      nodeText(content, typeNode),
		Docstring: doc,
		HasDoc:    hasDoc,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		StartCol:  int(node.StartPoint().Column) + 1,
		EndCol:    int(node.EndPoint().Column) + 1,
		IsPublic:  name != "" && unicode.IsUpper(rune(name[0])),
	}
}

// goCalls walks a function body for call expressions, producing unresolved
// textual targets. Qualified calls (pkg.Foo, recv.Method) keep the full
// qualified text as the target; the Go resolver splits it at the first dot
// to tell a package-qualified call from a method call.
func goCalls(fnNode *sitter.Node, content []byte, path string) []graph.UnresolvedRef {
	if fnNode == nil {
		return nil
	}
	body := fnNode.ChildByFieldName("body")
	if body == nil {
		for i := 0; i < int(fnNode.ChildCount()); i++ {
			if fnNode.Child(i).Type() == "block" {
				body = fnNode.Child(i)
				break
			}
		}
	}
	if body == nil {
		return nil
	}
	var refs []graph.UnresolvedRef
	walkGoCalls(body, content, path, &refs)
	return refs
}

func walkGoCalls(node *sitter.Node, content []byte, path string, refs *[]graph.UnresolvedRef) {
	if node == nil {
		return
	}
	if node.Type() == "call_expression" {
		if fn := node.ChildByFieldName("function"); fn != nil {
			target := nodeText(content, fn)
			*refs = append(*refs, graph.UnresolvedRef{
				Kind:          graph.EdgeCalls,
				SourceFile:    path,
				SourceLine:    int(node.StartPoint().Row) + 1,
				TextualTarget: target,
				Language:      "go",
			})
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkGoCalls(node.Child(i), content, path, refs)
	}
}
