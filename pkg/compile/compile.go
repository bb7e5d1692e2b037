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

package compile

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/parse"
	"github.com/kraklabs/keel/pkg/resolve"
	"github.com/kraklabs/keel/pkg/store"
	"github.com/kraklabs/keel/pkg/walk"
)

// ChangeKind classifies how a definition differs from what the store held
// before this compile.
type ChangeKind string

const (
	ChangeAdded            ChangeKind = "added"
	ChangeRemoved          ChangeKind = "removed"
	ChangeSignatureChanged ChangeKind = "signature_changed"
	ChangeBodyChanged      ChangeKind = "body_changed"
)

// NodeDiff is one definition's change, keyed by fully-qualified name so it
// survives the content hash changing underneath it.
type NodeDiff struct {
	FQN      string
	File     string
	Kind     ChangeKind
	Node     *graph.Node // nil when Kind is ChangeRemoved
	Previous *graph.Node // the node this replaces, nil when Kind is ChangeAdded
}

// Diff is the outcome of one incremental compile.
type Diff struct {
	FilesCompiled []string
	FilesDeleted  []string
	NodeDiffs     []NodeDiff
	EdgesRefreshed int
	Duration      time.Duration
}

// Compiler re-parses a bounded set of files and reconciles the store with
// what it finds, instead of remapping the whole project.
type Compiler struct {
	logger *slog.Logger
	parser parse.Parser
	store  *store.Store

	goResolver   *resolve.GoResolver
	pyResolver   *resolve.PythonResolver
	tsResolver   *resolve.TSResolver
	rustResolver *resolve.RustResolver
}

func New(logger *slog.Logger, p parse.Parser, st *store.Store) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{
		logger:       logger,
		parser:       p,
		store:        st,
		goResolver:   resolve.NewGoResolver(),
		pyResolver:   resolve.NewPythonResolver(),
		tsResolver:   resolve.NewTSResolver(),
		rustResolver: resolve.NewRustResolver(),
	}
}

// Compile re-parses each file in changedFiles (repo-relative paths) and
// brings the store's nodes, edges, and resolution cache up to date.
// A changed file that no longer exists on disk is treated as a deletion.
func (c *Compiler) Compile(ctx context.Context, root string, changedFiles []string) (*Diff, error) {
	start := time.Now()
	diff := &Diff{}

	type parsedFile struct {
		file   string
		result *parse.ParseResult
	}
	var parsedFiles []parsedFile
	fileChanged := make(map[string]bool, len(changedFiles))

	for _, file := range changedFiles {
		full := filepath.Join(root, file)
		oldNodes, err := c.store.Locate(ctx, file)
		if err != nil {
			return nil, err
		}
		oldByFQN := make(map[string]*graph.Node, len(oldNodes))
		for _, n := range oldNodes {
			oldByFQN[n.FQN] = n
		}

		if _, statErr := os.Stat(full); statErr != nil {
			for _, n := range oldNodes {
				diff.NodeDiffs = append(diff.NodeDiffs, NodeDiff{FQN: n.FQN, File: file, Kind: ChangeRemoved, Previous: n})
			}
			if err := c.store.DeleteFile(ctx, file); err != nil {
				return nil, err
			}
			if err := c.store.InvalidateResolutionCache(ctx, file); err != nil {
				return nil, err
			}
			diff.FilesDeleted = append(diff.FilesDeleted, file)
			continue
		}

		content, err := os.ReadFile(full)
		if err != nil {
			return nil, err
		}
		language, ok := walk.LanguageForPath(file)
		if !ok {
			continue
		}
		result, err := c.parser.ParseFile(file, content, language)
		if err != nil {
			c.logger.Warn("compile.parse.error", "path", file, "err", err)
			continue
		}
		parsedFiles = append(parsedFiles, parsedFile{file: file, result: result})

		newByFQN := make(map[string]*graph.Node, len(result.Definitions))
		for _, def := range result.Definitions {
			n := nodeFromDefinition(file, language, def)
			newByFQN[n.FQN] = n
		}

		for fqn, n := range newByFQN {
			old, existed := oldByFQN[fqn]
			switch {
			case !existed:
				diff.NodeDiffs = append(diff.NodeDiffs, NodeDiff{FQN: fqn, File: file, Kind: ChangeAdded, Node: n})
				fileChanged[file] = true
			case old.ID == n.ID:
				// unchanged, not reported
			case old.Signature != n.Signature:
				diff.NodeDiffs = append(diff.NodeDiffs, NodeDiff{FQN: fqn, File: file, Kind: ChangeSignatureChanged, Node: n, Previous: old})
				fileChanged[file] = true
			default:
				diff.NodeDiffs = append(diff.NodeDiffs, NodeDiff{FQN: fqn, File: file, Kind: ChangeBodyChanged, Node: n, Previous: old})
				fileChanged[file] = true
			}
		}
		for fqn, old := range oldByFQN {
			if old.Kind == graph.KindModule {
				// The module node is rebuilt below; it is not a definition.
				continue
			}
			if _, stillPresent := newByFQN[fqn]; !stillPresent {
				diff.NodeDiffs = append(diff.NodeDiffs, NodeDiff{FQN: fqn, File: file, Kind: ChangeRemoved, Previous: old})
				fileChanged[file] = true
			}
		}

		moduleNode := &graph.Node{
			ID:       graph.Hash(graph.CanonicalDef{Kind: graph.KindModule, Signature: file, Body: result.ModuleName, Language: language}),
			Kind:     graph.KindModule,
			FQN:      result.ModuleName,
			File:     file,
			Language: language,
			IsPublic: true,
		}
		nodes := []*graph.Node{moduleNode}
		for _, n := range newByFQN {
			nodes = append(nodes, n)
		}
		if err := c.store.UpsertNodes(ctx, nodes); err != nil {
			return nil, err
		}
		// A file whose definitions all hash identically to what's stored is
		// a no-op per the idempotence contract: no generation advance, no
		// edge replacement, regardless of how many times it's recompiled.
		if fileChanged[file] {
			if _, err := c.store.BumpFileGeneration(ctx, file); err != nil {
				return nil, err
			}
			if err := c.store.InvalidateResolutionCache(ctx, file); err != nil {
				return nil, err
			}
		}
		diff.FilesCompiled = append(diff.FilesCompiled, file)
	}

	if len(parsedFiles) == 0 {
		diff.Duration = time.Since(start)
		return diff, nil
	}

	allNodes, err := c.store.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	idx := graph.NewIndex()
	for _, n := range allNodes {
		idx.AddNode(n)
	}

	packageNames := make(map[string]string)
	var imports []graph.UnresolvedRef
	var tsFiles []string
	edgesByFile := make(map[string][]*graph.Edge)

	for _, pf := range parsedFiles {
		if pf.result.Language == "go" {
			packageNames[pf.file] = pf.result.ModuleName
			imports = append(imports, pf.result.Imports...)
		}
		if pf.result.Language == "typescript" || pf.result.Language == "javascript" {
			tsFiles = append(tsFiles, pf.file)
		}
	}
	// Every Go file in the project contributes its package name and
	// imports to the resolver index, not just the ones recompiled this
	// pass, so a changed file's calls can still resolve into untouched
	// packages.
	for _, n := range allNodes {
		if n.Language == "go" {
			if _, ok := packageNames[n.File]; !ok {
				packageNames[n.File] = filepath.Base(filepath.Dir(n.File))
			}
		}
	}

	c.goResolver.BuildIndex(nodesOf(allNodes, "go"), packageNames, imports)
	c.pyResolver.BuildIndex(nodesOf(allNodes, "python"))
	c.tsResolver.BuildIndex(append(nodesOf(allNodes, "typescript"), nodesOf(allNodes, "javascript")...), tsFiles)
	c.rustResolver.BuildIndex(nodesOf(allNodes, "rust"))

	for _, pf := range parsedFiles {
		if !fileChanged[pf.file] {
			// Nothing about this file's definitions changed, so the edges
			// it would resolve to are the ones already stored: leave them
			// untouched rather than rewriting them to an identical set.
			continue
		}
		var refs []graph.UnresolvedRef
		refs = append(refs, pf.result.Calls...)
		refs = append(refs, pf.result.Imports...)
		refs = append(refs, pf.result.Inherits...)
		for _, ref := range refs {
			e := c.resolveRef(ctx, idx, ref)
			edgesByFile[pf.file] = append(edgesByFile[pf.file], e)
			diff.EdgesRefreshed++
		}
	}
	for file, edges := range edgesByFile {
		if err := c.store.ReplaceEdgesForFile(ctx, file, edges); err != nil {
			return nil, err
		}
	}

	diff.Duration = time.Since(start)
	return diff, nil
}

func (c *Compiler) resolveRef(ctx context.Context, idx *graph.Index, ref graph.UnresolvedRef) *graph.Edge {
	id := graph.Hash(graph.CanonicalDef{Kind: graph.Kind(ref.Kind), Signature: ref.SourceFile, Body: ref.TextualTarget, Language: ref.Language})
	e := &graph.Edge{
		ID: id, Kind: ref.Kind, SourceFile: ref.SourceFile, SourceLine: ref.SourceLine,
		SourceNodeID: ref.SourceNodeID, UnresolvedTarget: ref.TextualTarget, Tier: graph.TierGrammar,
	}
	var resolver resolve.Resolver
	switch ref.Language {
	case "go":
		resolver = c.goResolver
	case "python":
		resolver = c.pyResolver
	case "typescript", "javascript":
		resolver = c.tsResolver
	case "rust":
		resolver = c.rustResolver
	default:
		return e
	}
	resolved, ok := resolver.Resolve(ctx, idx, ref)
	if !ok {
		return e
	}
	e.TargetID = resolved.TargetID
	e.Tier = resolved.Tier
	e.Confidence = resolved.Confidence
	e.Ambiguous = resolved.Ambiguous
	e.CandidateTargets = resolved.Candidates
	e.TypeOnly = resolved.TypeOnly
	return e
}

func nodesOf(nodes []*graph.Node, language string) []*graph.Node {
	var out []*graph.Node
	for _, n := range nodes {
		if n.Language == language {
			out = append(out, n)
		}
	}
	return out
}

func nodeFromDefinition(file, language string, def parse.Definition) *graph.Node {
	suppressCode, suppressReason := def.Suppress()
	return &graph.Node{
		ID: graph.Hash(graph.CanonicalDef{
			Kind: def.Kind, Signature: def.Signature, Body: def.Body, Docstring: def.Docstring, Language: language,
		}),
		Kind: def.Kind, FQN: def.Name, File: file,
		StartLine: def.StartLine, EndLine: def.EndLine, StartCol: def.StartCol, EndCol: def.EndCol,
		Signature: def.Signature, DocFirstLine: firstLine(def.Docstring), HasDoc: def.HasDoc,
		TypeHintsPresent: def.TypeHintsPresent, IsPublic: def.IsPublic, Language: language,
		SuppressCode: suppressCode, SuppressReason: suppressReason,
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
