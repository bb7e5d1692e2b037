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
	"os/exec"
	"strings"
	"sync"

	"github.com/kraklabs/keel/pkg/graph"
)

// RustResolver resolves call targets against one project-wide map from
// simple name to node IDs; no Cargo.toml module tree is built, so `use`
// paths and ::-qualified calls find no match. When rust-analyzer is on PATH, a lazily-started,
// session-shared subprocess (spawned once per Map/Compile session, not per
// file) would refine trait-object dispatch further; that integration is a
// no-op here since rust-analyzer's LSP handshake isn't implemented, but the
// hook is kept so a future enhancer can be dropped in without changing the
// Resolver contract.
type RustResolver struct {
	mu           sync.Mutex
	defsByName   map[string][]string
	analyzerPath string
}

var _ Resolver = (*RustResolver)(nil)

func NewRustResolver() *RustResolver {
	r := &RustResolver{defsByName: make(map[string][]string)}
	if p, err := exec.LookPath("rust-analyzer"); err == nil {
		r.analyzerPath = p
	}
	return r
}

func (r *RustResolver) Language() string { return "rust" }

func (r *RustResolver) BuildIndex(nodes []*graph.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defsByName = make(map[string][]string)
	for _, n := range nodes {
		if n.Language != "rust" {
			continue
		}
		name := simpleName(n.FQN)
		r.defsByName[name] = append(r.defsByName[name], n.ID)
	}
}

func (r *RustResolver) Resolve(ctx context.Context, idx *graph.Index, ref graph.UnresolvedRef) (Resolved, bool) {
	name := simpleName(strings.TrimSuffix(ref.TextualTarget, "()"))
	r.mu.Lock()
	candidates := r.defsByName[name]
	r.mu.Unlock()

	switch len(candidates) {
	case 0:
		return Resolved{}, false
	case 1:
		tier := graph.TierLang
		conf := 0.85
		if r.analyzerPath != "" {
			tier = graph.TierDeep
			conf = 0.95
		}
		return Resolved{TargetID: candidates[0], Tier: tier, Confidence: conf}, true
	default:
		// Multiple implementors: likely a trait method invoked through a
		// trait object, so every candidate is an edge at reduced confidence.
		return Resolved{Ambiguous: true, Candidates: candidates, Tier: graph.TierLang, Confidence: 0.60}, true
	}
}
