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

package mapper

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/parse"
	"github.com/kraklabs/keel/pkg/resolve"
	"github.com/kraklabs/keel/pkg/store"
	"github.com/kraklabs/keel/pkg/walk"
)

// parallelThreshold: below this many files, worker-pool overhead isn't
// worth it.
const parallelThreshold = 10

// Result summarizes one Map run.
type Result struct {
	FilesProcessed int
	Definitions    int
	Edges          int
	ParseErrors    int
	SkipReasons    map[string]int
	ParseDuration  time.Duration
	TotalDuration  time.Duration
}

// Mapper builds the structural graph for an entire project in one pass.
type Mapper struct {
	logger *slog.Logger
	parser parse.Parser
	store  *store.Store

	goResolver   *resolve.GoResolver
	pyResolver   *resolve.PythonResolver
	tsResolver   *resolve.TSResolver
	rustResolver *resolve.RustResolver

	// ParseWorkers caps the worker-pool size for parallel parsing. Defaults
	// to 4.
	ParseWorkers int
}

// New builds a Mapper wired to a tree-sitter parser and every tier-two
// resolver, persisting into st.
func New(logger *slog.Logger, p parse.Parser, st *store.Store) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		logger:       logger,
		parser:       p,
		store:        st,
		goResolver:   resolve.NewGoResolver(),
		pyResolver:   resolve.NewPythonResolver(),
		tsResolver:   resolve.NewTSResolver(),
		rustResolver: resolve.NewRustResolver(),
		ParseWorkers: 4,
	}
}

type fileParse struct {
	file   walk.File
	result *parse.ParseResult
	err    error
}

// Map walks root, parses every supported file, resolves every call/import/
// inheritance reference it can, and persists the resulting nodes and edges.
func (m *Mapper) Map(ctx context.Context, root string, opts walk.Options) (*Result, error) {
	start := time.Now()

	walked, err := walk.Walk(root, opts)
	if err != nil {
		return nil, err
	}
	sort.Slice(walked.Files, func(i, j int) bool { return walked.Files[i].Path < walked.Files[j].Path })

	parseStart := time.Now()
	parsed, parseErrors := m.parseFiles(ctx, walked.Files)
	parseDuration := time.Since(parseStart)

	idx := graph.NewIndex()
	packageNames := make(map[string]string)
	var allRefs []graph.UnresolvedRef
	var tsFiles []string

	for _, fp := range parsed {
		if fp.result == nil {
			continue
		}
		r := fp.result
		if r.Language == "go" {
			packageNames[r.FilePath] = r.ModuleName
		}
		if r.Language == "typescript" || r.Language == "javascript" {
			tsFiles = append(tsFiles, r.FilePath)
		}

		moduleNode := &graph.Node{
			ID:       graph.Hash(graph.CanonicalDef{Kind: graph.KindModule, Signature: r.FilePath, Body: r.ModuleName, Language: r.Language}),
			Kind:     graph.KindModule,
			FQN:      r.ModuleName,
			File:     r.FilePath,
			Language: r.Language,
			IsPublic: true,
		}
		idx.AddNode(moduleNode)

		for _, def := range r.Definitions {
			idx.AddNode(nodeFromDefinition(r.FilePath, r.Language, def))
		}

		allRefs = append(allRefs, r.Calls...)
		allRefs = append(allRefs, r.Imports...)
		allRefs = append(allRefs, r.Inherits...)
	}

	m.goResolver.BuildIndex(nodesOf(idx, "go"), packageNames, refsOf(parsed, graph.EdgeImports, "go"))
	m.pyResolver.BuildIndex(nodesOf(idx, "python"))
	m.tsResolver.BuildIndex(append(nodesOf(idx, "typescript"), nodesOf(idx, "javascript")...), tsFiles)
	m.rustResolver.BuildIndex(nodesOf(idx, "rust"))

	edgesByFile := make(map[string][]*graph.Edge)
	edgeCount := 0
	for _, ref := range allRefs {
		e := m.resolveRef(ctx, idx, ref)
		idx.AddEdge(e)
		edgesByFile[ref.SourceFile] = append(edgesByFile[ref.SourceFile], e)
		edgeCount++
	}

	if err := m.persist(ctx, idx, edgesByFile); err != nil {
		return nil, err
	}

	return &Result{
		FilesProcessed: len(walked.Files),
		Definitions:    len(idx.Nodes),
		Edges:          edgeCount,
		ParseErrors:    parseErrors,
		SkipReasons:    walked.SkipReasons,
		ParseDuration:  parseDuration,
		TotalDuration:  time.Since(start),
	}, nil
}

func (m *Mapper) persist(ctx context.Context, idx *graph.Index, edgesByFile map[string][]*graph.Edge) error {
	nodes := make([]*graph.Node, 0, len(idx.Nodes))
	for _, n := range idx.Nodes {
		nodes = append(nodes, n)
	}
	if err := m.store.UpsertNodes(ctx, nodes); err != nil {
		return err
	}
	for file, edges := range edgesByFile {
		if err := m.store.ReplaceEdgesForFile(ctx, file, edges); err != nil {
			return err
		}
		if _, err := m.store.BumpFileGeneration(ctx, file); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) resolveRef(ctx context.Context, idx *graph.Index, ref graph.UnresolvedRef) *graph.Edge {
	id := graph.Hash(graph.CanonicalDef{Kind: graph.Kind(ref.Kind), Signature: ref.SourceFile, Body: ref.TextualTarget, Language: ref.Language})
	e := &graph.Edge{
		ID:               id,
		Kind:             ref.Kind,
		SourceFile:       ref.SourceFile,
		SourceLine:       ref.SourceLine,
		SourceNodeID:     ref.SourceNodeID,
		UnresolvedTarget: ref.TextualTarget,
		Tier:             graph.TierGrammar,
	}

	resolver := m.resolverFor(ref.Language)
	if resolver == nil {
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

func (m *Mapper) resolverFor(language string) resolve.Resolver {
	switch language {
	case "go":
		return m.goResolver
	case "python":
		return m.pyResolver
	case "typescript", "javascript":
		return m.tsResolver
	case "rust":
		return m.rustResolver
	default:
		return nil
	}
}

func (m *Mapper) parseFiles(ctx context.Context, files []walk.File) ([]fileParse, int) {
	if len(files) < parallelThreshold || m.ParseWorkers <= 1 {
		return m.parseFilesSequential(ctx, files)
	}
	return m.parseFilesParallel(ctx, files)
}

func (m *Mapper) parseFilesSequential(ctx context.Context, files []walk.File) ([]fileParse, int) {
	out := make([]fileParse, 0, len(files))
	errCount := 0
	for _, f := range files {
		select {
		case <-ctx.Done():
			return out, errCount
		default:
		}
		r, err := m.parseOne(f)
		if err != nil {
			errCount++
			m.logger.Warn("mapper.parse.error", "path", f.Path, "err", err)
			continue
		}
		out = append(out, fileParse{file: f, result: r})
	}
	return out, errCount
}

func (m *Mapper) parseFilesParallel(ctx context.Context, files []walk.File) ([]fileParse, int) {
	jobs := make(chan int, len(files))
	results := make(chan fileParse, len(files))
	var errCount int32

	var wg sync.WaitGroup
	for w := 0; w < m.ParseWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				f := files[i]
				r, err := m.parseOne(f)
				if err != nil {
					atomic.AddInt32(&errCount, 1)
					m.logger.Warn("mapper.parse.error", "path", f.Path, "err", err)
					results <- fileParse{file: f, err: err}
					continue
				}
				results <- fileParse{file: f, result: r}
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]fileParse, 0, len(files))
	for fp := range results {
		if fp.err == nil {
			out = append(out, fp)
		}
	}
	return out, int(errCount)
}

func (m *Mapper) parseOne(f walk.File) (*parse.ParseResult, error) {
	content, err := os.ReadFile(f.FullPath)
	if err != nil {
		return nil, err
	}
	return m.parser.ParseFile(f.Path, content, f.Language)
}

func nodeFromDefinition(file, language string, def parse.Definition) *graph.Node {
	suppressCode, suppressReason := def.Suppress()
	return &graph.Node{
		ID: graph.Hash(graph.CanonicalDef{
			Kind:      def.Kind,
			Signature: def.Signature,
			Body:      def.Body,
			Docstring: def.Docstring,
			Language:  language,
		}),
		Kind:             def.Kind,
		FQN:              def.Name,
		File:             file,
		StartLine:        def.StartLine,
		EndLine:          def.EndLine,
		StartCol:         def.StartCol,
		EndCol:           def.EndCol,
		Signature:        def.Signature,
		DocFirstLine:     firstLine(def.Docstring),
		HasDoc:           def.HasDoc,
		TypeHintsPresent: def.TypeHintsPresent,
		IsPublic:         def.IsPublic,
		Language:         language,
		SuppressCode:     suppressCode,
		SuppressReason:   suppressReason,
	}
}

func nodesOf(idx *graph.Index, language string) []*graph.Node {
	var out []*graph.Node
	for _, n := range idx.Nodes {
		if n.Language == language {
			out = append(out, n)
		}
	}
	return out
}

func refsOf(parsed []fileParse, kind graph.EdgeKind, language string) []graph.UnresolvedRef {
	var out []graph.UnresolvedRef
	for _, fp := range parsed {
		if fp.result == nil || fp.result.Language != language {
			continue
		}
		switch kind {
		case graph.EdgeImports:
			out = append(out, fp.result.Imports...)
		case graph.EdgeCalls:
			out = append(out, fp.result.Calls...)
		case graph.EdgeInherits:
			out = append(out, fp.result.Inherits...)
		}
	}
	return out
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
