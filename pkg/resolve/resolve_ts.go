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
	"path"
	"strings"
	"sync"

	"github.com/kraklabs/keel/pkg/graph"
)

// TSResolver resolves TypeScript/JavaScript imports and calls. Relative
// imports ("./foo") resolve by matching the module-relative path against
// known files; bare imports ("react") have no local target and are left
// unresolved (external package). A directory import resolves to its index
// file's module node at the same 0.95 as a direct file import; re-export
// chains are not followed and tsconfig.json path mappings are not read.
type TSResolver struct {
	mu         sync.Mutex
	defsByName map[string][]string // simple name -> node IDs, for call resolution
	fileByStem map[string]string   // module path without extension -> file path
}

var _ Resolver = (*TSResolver)(nil)

func NewTSResolver() *TSResolver {
	return &TSResolver{defsByName: make(map[string][]string), fileByStem: make(map[string]string)}
}

func (r *TSResolver) Language() string { return "typescript" }

func (r *TSResolver) BuildIndex(nodes []*graph.Node, files []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defsByName = make(map[string][]string)
	r.fileByStem = make(map[string]string)
	for _, n := range nodes {
		if n.Language != "typescript" && n.Language != "javascript" {
			continue
		}
		name := simpleName(n.FQN)
		r.defsByName[name] = append(r.defsByName[name], n.ID)
	}
	for _, f := range files {
		stem := strings.TrimSuffix(f, path.Ext(f))
		r.fileByStem[stem] = f
	}
}

func (r *TSResolver) Resolve(ctx context.Context, idx *graph.Index, ref graph.UnresolvedRef) (Resolved, bool) {
	if ref.Kind == graph.EdgeImports {
		return r.resolveImport(ref)
	}
	name := simpleName(ref.TextualTarget)
	r.mu.Lock()
	candidates := r.defsByName[name]
	r.mu.Unlock()
	switch len(candidates) {
	case 0:
		return Resolved{}, false
	case 1:
		return Resolved{TargetID: candidates[0], Tier: graph.TierLang, Confidence: 0.90}, true
	default:
		return Resolved{Ambiguous: true, Candidates: candidates, Tier: graph.TierLang, Confidence: 0.55}, true
	}
}

func (r *TSResolver) resolveImport(ref graph.UnresolvedRef) (Resolved, bool) {
	target := ref.TextualTarget
	if !strings.HasPrefix(target, ".") {
		return Resolved{}, false // external package, no local node
	}
	dir := path.Dir(ref.SourceFile)
	resolved := path.Clean(path.Join(dir, target))

	r.mu.Lock()
	var file string
	found := false
	for _, candidate := range []string{resolved, resolved + "/index"} {
		if f, ok := r.fileByStem[candidate]; ok {
			file, found = f, true
			break
		}
	}
	r.mu.Unlock()
	if !found {
		return Resolved{}, false
	}
	for _, n := range idx.ByFile[file] {
		if n.Kind == graph.KindModule {
			return Resolved{TargetID: n.ID, Tier: graph.TierLang, Confidence: 0.95}, true
		}
	}
	return Resolved{}, false
}
