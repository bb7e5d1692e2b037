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

package resolve

import (
	"context"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/kraklabs/keel/pkg/graph"
)

// GoResolver resolves Go call and import references using a per-directory
// package index, a per-directory registry of function and method node IDs
// keyed by simple name, and a per-file import alias map. funcsByPkg keeps every node ID sharing a
// simple name, not just one: a receiver-variable call to a name claimed by
// more than one type's method is dynamic dispatch through an interface-typed
// receiver, and collapsing that to a single deterministic winner would hide
// the ambiguity rather than report it.
type GoResolver struct {
	packageOfFile map[string]string              // file -> package directory
	funcsByPkg    map[string]map[string][]string // pkg dir -> simple name -> node IDs
	fileImports   map[string]map[string]string   // file -> alias -> import path
	pkgNameToDir  map[string]string               // package name -> directory (best-effort)
}

var _ Resolver = (*GoResolver)(nil)

func NewGoResolver() *GoResolver {
	return &GoResolver{
		packageOfFile: make(map[string]string),
		funcsByPkg:    make(map[string]map[string][]string),
		fileImports:   make(map[string]map[string]string),
		pkgNameToDir:  make(map[string]string),
	}
}

func (r *GoResolver) Language() string { return "go" }

// BuildIndex rebuilds the resolver's lookup tables from every Go node and
// import reference mapped so far. Mapper calls this once per Map/Compile
// pass, after parsing, before resolution.
func (r *GoResolver) BuildIndex(nodes []*graph.Node, packageNames map[string]string, imports []graph.UnresolvedRef) {
	r.packageOfFile = make(map[string]string)
	r.funcsByPkg = make(map[string]map[string][]string)
	r.fileImports = make(map[string]map[string]string)
	r.pkgNameToDir = make(map[string]string)

	for file, pkgName := range packageNames {
		dir := filepath.Dir(file)
		r.packageOfFile[file] = dir
		if pkgName != "" {
			r.pkgNameToDir[pkgName] = dir
		}
	}

	for _, n := range nodes {
		if n.Language != "go" || (n.Kind != graph.KindFunction && n.Kind != graph.KindMethod) {
			continue
		}
		dir := filepath.Dir(n.File)
		simple := simpleName(n.FQN)
		if r.funcsByPkg[dir] == nil {
			r.funcsByPkg[dir] = make(map[string][]string)
		}
		r.funcsByPkg[dir][simple] = append(r.funcsByPkg[dir][simple], n.ID)
	}

	for _, imp := range imports {
		alias := filepath.Base(imp.TextualTarget)
		if r.fileImports[imp.SourceFile] == nil {
			r.fileImports[imp.SourceFile] = make(map[string]string)
		}
		r.fileImports[imp.SourceFile][alias] = imp.TextualTarget
	}
}

// simpleName strips a "Receiver." prefix from a method's full name.
func simpleName(name string) string {
	if i := strings.LastIndex(name, "."); i != -1 {
		return name[i+1:]
	}
	return name
}

func (r *GoResolver) Resolve(ctx context.Context, idx *graph.Index, ref graph.UnresolvedRef) (Resolved, bool) {
	target := ref.TextualTarget
	dir := r.packageOfFile[ref.SourceFile]

	// Same-package call: bare name, unqualified by any package or receiver.
	if !strings.Contains(target, ".") {
		if ids := r.funcsByPkg[dir][target]; len(ids) > 0 {
			return Resolved{TargetID: ids[0], Tier: graph.TierLang, Confidence: 0.80}, true
		}
		return Resolved{}, false
	}

	parts := strings.SplitN(target, ".", 2)
	head, tail := parts[0], parts[1]
	tail = simpleName(tail)

	// Qualified call: pkg.Foo() where head is an import alias.
	if importPath, ok := r.fileImports[ref.SourceFile][head]; ok {
		if unicode.IsLower(rune(tail[0])) {
			return Resolved{}, false // unexported target, nothing to resolve to
		}
		targetDir := r.importDirFor(importPath)
		if ids := r.funcsByPkg[targetDir][tail]; len(ids) > 0 {
			return Resolved{TargetID: ids[0], Tier: graph.TierLang, Confidence: 0.90}, true
		}
		return Resolved{}, false
	}

	// Otherwise head is a same-package receiver variable: recv.Method().
	// More than one candidate for this method name means more than one
	// type in the package implements it, the same dynamic-dispatch
	// situation an interface-typed receiver creates.
	ids := r.funcsByPkg[dir][tail]
	switch len(ids) {
	case 0:
		return Resolved{}, false
	case 1:
		return Resolved{TargetID: ids[0], Tier: graph.TierLang, Confidence: 0.80}, true
	default:
		return Resolved{Ambiguous: true, Candidates: ids, Tier: graph.TierLang, Confidence: 0.40}, true
	}
}

func (r *GoResolver) importDirFor(importPath string) string {
	if dir, ok := r.pkgNameToDir[filepath.Base(importPath)]; ok {
		return dir
	}
	return importPath
}
