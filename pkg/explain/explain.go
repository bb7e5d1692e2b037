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

package explain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/store"
)

// maxNodesExplored bounds the import-chain BFS so a barrel-export cycle or
// a very deep re-export chain can't hang an explain call.
const maxNodesExplored = 5000

// StepKind identifies what kind of evidence a Step records.
type StepKind string

const (
	StepCallSite      StepKind = "call_site"
	StepImportSite    StepKind = "import_site"
	StepTypeReference StepKind = "type_reference"
	StepReExport      StepKind = "re_export"
)

// Step is one piece of evidence in a resolution chain.
type Step struct {
	Kind       StepKind
	File       string
	Line       int
	Snippet    string
	Tier       graph.Tier
	Confidence float64
}

// ResolutionChain is the ordered evidence trail Explain produces for one
// (code, hash) violation: every call site that reaches the definition,
// each annotated with the import path (direct or re-exported) that made it
// resolvable.
type ResolutionChain struct {
	Code  string
	Hash  string
	Node  *graph.Node
	Steps []Step
}

// Explain walks backward from a violation's hash to the evidence the
// engine used to produce it: the definition's declaring module, every
// caller's call site, the import (direct or re-exported through
// intermediate barrel modules) that connects each caller's file to the
// definition's module, and a type-reference step for type-only edges.
// root is the project root the violating node's (and its callers') File
// paths are relative to, needed to read back source snippets.
func Explain(ctx context.Context, st *store.Store, root string, code string, hash string) (*ResolutionChain, error) {
	node, ok, err := st.LookupHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("explain: lookup hash: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("explain: no node with hash %q", hash)
	}

	chain := &ResolutionChain{Code: code, Hash: hash, Node: node}

	targetModule, err := moduleNodeForFile(ctx, st, node.File)
	if err != nil {
		return nil, err
	}

	callers, err := st.CallersOf(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("explain: callers of %q: %w", hash, err)
	}

	explored := 0
	for _, e := range callers {
		if explored >= maxNodesExplored {
			break
		}
		explored++

		kind := StepCallSite
		if e.TypeOnly {
			kind = StepTypeReference
		}
		chain.Steps = append(chain.Steps, Step{
			Kind: kind, File: e.SourceFile, Line: e.SourceLine,
			Snippet: snippet(root, e.SourceFile, e.SourceLine),
			Tier:    e.Tier, Confidence: e.Confidence,
		})

		if targetModule == nil || e.SourceFile == node.File {
			continue
		}
		importSteps, err := importChain(ctx, st, root, e.SourceFile, targetModule.ID, &explored)
		if err != nil {
			return nil, err
		}
		chain.Steps = append(chain.Steps, importSteps...)
	}

	return chain, nil
}

// moduleNodeForFile returns the synthetic per-file module node the mapper
// and compiler both create, or nil if file hasn't been indexed.
func moduleNodeForFile(ctx context.Context, st *store.Store, file string) (*graph.Node, error) {
	nodes, err := st.Locate(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("explain: locate %q: %w", file, err)
	}
	for _, n := range nodes {
		if n.Kind == graph.KindModule {
			return n, nil
		}
	}
	return nil, nil
}

// importChain BFS-walks module-level import edges from fromFile's module
// node to targetModuleID, returning one Step per hop: every intermediate
// hop is a re-export, the final hop (the one landing on targetModuleID) is
// the direct import site. Mirrors TracePath's queue-plus-visited-set shape,
// applied to import resolution instead of call-chain tracing.
func importChain(ctx context.Context, st *store.Store, root, fromFile, targetModuleID string, explored *int) ([]Step, error) {
	fromModule, err := moduleNodeForFile(ctx, st, fromFile)
	if err != nil || fromModule == nil {
		return nil, err
	}
	if fromModule.ID == targetModuleID {
		return nil, nil
	}

	type frame struct {
		moduleID string
		path     []Step
	}
	visited := map[string]bool{fromModule.ID: true}
	queue := []frame{{moduleID: fromModule.ID}}
	cache := make(map[string][]*graph.Edge)

	for len(queue) > 0 {
		if *explored >= maxNodesExplored {
			break
		}
		*explored++

		cur := queue[0]
		queue = queue[1:]

		edges, ok := cache[cur.moduleID]
		if !ok {
			all, err := st.CalleesOf(ctx, cur.moduleID)
			if err != nil {
				return nil, fmt.Errorf("explain: import edges: %w", err)
			}
			for _, e := range all {
				if e.Kind == graph.EdgeImports {
					edges = append(edges, e)
				}
			}
			cache[cur.moduleID] = edges
		}

		for _, e := range edges {
			if e.TargetID == "" || visited[e.TargetID] {
				continue
			}
			kind := StepReExport
			if e.TargetID == targetModuleID {
				kind = StepImportSite
			}
			step := Step{
				Kind: kind, File: e.SourceFile, Line: e.SourceLine,
				Snippet: snippet(root, e.SourceFile, e.SourceLine),
				Tier:    e.Tier, Confidence: e.Confidence,
			}
			newPath := append(append([]Step{}, cur.path...), step)
			if e.TargetID == targetModuleID {
				return newPath, nil
			}
			visited[e.TargetID] = true
			queue = append(queue, frame{moduleID: e.TargetID, path: newPath})
		}
	}
	return nil, nil
}

// snippet returns the trimmed source text of line in file (resolved
// against root), or "" if the file can't be read (deleted since the last
// map/compile, or an out-of-range line from a stale edge).
func snippet(root, file string, line int) string {
	if line <= 0 {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(root, file))
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	if line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}
