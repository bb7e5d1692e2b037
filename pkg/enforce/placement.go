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

package enforce

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/store"
)

const (
	weightCallIn       = 2.0
	weightCallOut      = 2.0
	weightNameToken    = 0.5
	weightImportUnrelated = 1.0
)

// moduleOf treats a file's directory as its containing module, the same
// granularity GoResolver's per-directory function index uses.
func moduleOf(file string) string { return filepath.Dir(file) }

func nameTokens(fqn string) map[string]bool {
	fqn = strings.ReplaceAll(fqn, ".", "_")
	parts := splitCamelAndSnake(fqn)
	out := make(map[string]bool, len(parts))
	for _, p := range parts {
		if p != "" {
			out[strings.ToLower(p)] = true
		}
	}
	return out
}

func splitCamelAndSnake(s string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '-':
			flush()
		case r >= 'A' && r <= 'Z' && i > 0:
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

// moduleProfile is a module's cohesion signature, computed on the fly from
// every node the store currently holds in that directory.
type moduleProfile struct {
	name       string
	nameTokens map[string]bool
	memberIDs  map[string]bool
}

func buildModuleProfiles(allNodes []*graph.Node) map[string]*moduleProfile {
	profiles := make(map[string]*moduleProfile)
	for _, n := range allNodes {
		m := moduleOf(n.File)
		p, ok := profiles[m]
		if !ok {
			p = &moduleProfile{name: m, nameTokens: make(map[string]bool), memberIDs: make(map[string]bool)}
			profiles[m] = p
		}
		p.memberIDs[n.ID] = true
		for tok := range nameTokens(n.FQN) {
			p.nameTokens[tok] = true
		}
	}
	return profiles
}

// isUtilityModule reports whether m's name contains one of the configured
// utility tokens (e.g. "utils", "common"), which placement scoring skips
// per the taxonomy's false-positive mitigation.
func isUtilityModule(m string, utilityTokens []string) bool {
	base := strings.ToLower(filepath.Base(m))
	for _, tok := range utilityTokens {
		if strings.Contains(base, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// scoreModule computes n's placement score in candidate module m: weighted
// call-edges-in, call-edges-out, and name-token overlap, minus a penalty
// for imports whose targets have no relation to m's profile.
func scoreModule(ctx context.Context, st *store.Store, n *graph.Node, m *moduleProfile) float64 {
	score := 0.0
	callers, _ := st.CallersOf(ctx, n.ID)
	for _, e := range callers {
		if m.memberIDs[e.SourceNodeID] {
			score += weightCallIn
		}
	}
	callees, _ := st.CalleesOf(ctx, n.ID)
	unrelatedImports := 0
	for _, e := range callees {
		if e.TargetID != "" && m.memberIDs[e.TargetID] {
			score += weightCallOut
		} else if e.Kind == graph.EdgeImports && e.TargetID != "" && !m.memberIDs[e.TargetID] {
			unrelatedImports++
		}
	}
	overlap := 0
	for tok := range nameTokens(n.FQN) {
		if m.nameTokens[tok] {
			overlap++
		}
	}
	score += float64(overlap) * weightNameToken
	score -= float64(unrelatedImports) * weightImportUnrelated
	return score
}
