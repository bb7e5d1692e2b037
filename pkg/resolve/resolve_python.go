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

// PythonResolver resolves Python imports/calls against one project-wide
// map from simple name to node IDs. It does not walk package directories
// or __init__.py markers, does not count dots in relative imports, and
// marks no import type_only. When a `pyright` binary is on PATH,
// single-candidate resolutions are reported at the deep tier instead of
// the language tier; actually driving pyright's incremental JSON-over-stdio
// protocol to disambiguate multi-candidate calls is a no-op here; the hook
// is kept so a future enhancer can be dropped in without changing the
// Resolver contract, mirroring the RustResolver/rust-analyzer pattern.
type PythonResolver struct {
	mu          sync.Mutex
	defsByName  map[string][]string // simple name -> candidate node IDs
	pyrightPath string
}

var _ Resolver = (*PythonResolver)(nil)

func NewPythonResolver() *PythonResolver {
	r := &PythonResolver{defsByName: make(map[string][]string)}
	if p, err := exec.LookPath("pyright"); err == nil {
		r.pyrightPath = p
	}
	return r
}

func (r *PythonResolver) Language() string { return "python" }

func (r *PythonResolver) BuildIndex(nodes []*graph.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defsByName = make(map[string][]string)
	for _, n := range nodes {
		if n.Language != "python" {
			continue
		}
		name := simpleName(n.FQN)
		r.defsByName[name] = append(r.defsByName[name], n.ID)
	}
}

func (r *PythonResolver) Resolve(ctx context.Context, idx *graph.Index, ref graph.UnresolvedRef) (Resolved, bool) {
	if ref.Kind == graph.EdgeImports && strings.HasPrefix(ref.TextualTarget, "from ") && strings.Contains(ref.TextualTarget, "*") {
		return Resolved{Ambiguous: true, Tier: graph.TierLang, Confidence: 0.60}, true
	}

	name := simpleName(ref.TextualTarget)
	r.mu.Lock()
	candidates := r.defsByName[name]
	r.mu.Unlock()

	switch len(candidates) {
	case 0:
		return Resolved{}, false
	case 1:
		tier := graph.TierLang
		conf := 0.75
		if r.pyrightPath != "" {
			tier = graph.TierDeep
			conf = 0.90
		}
		return Resolved{TargetID: candidates[0], Tier: tier, Confidence: conf}, true
	default:
		return Resolved{Ambiguous: true, Candidates: candidates, Tier: graph.TierLang, Confidence: 0.50}, true
	}
}
