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
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/keel/pkg/compile"
	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/store"
)

// Options configures the taxonomy's tunable thresholds.
type Options struct {
	// ConfidenceFloor is the confidence below which an E001/E004/E005
	// finding is demoted to WARNING.
	ConfidenceFloor float64
	// PlacementMargin is how much higher an alternate module must score
	// before W001 fires.
	PlacementMargin float64
	// UtilityModules lists name tokens (e.g. "utils", "common") whose
	// modules are skipped by placement scoring.
	UtilityModules []string
	// TypeHintLanguages lists languages E002 applies to.
	TypeHintLanguages []string
}

// DefaultOptions returns the taxonomy's documented defaults.
func DefaultOptions() Options {
	return Options{
		ConfidenceFloor:   0.70,
		PlacementMargin:   0.15,
		UtilityModules:    []string{"utils", "util", "common", "helpers", "shared"},
		TypeHintLanguages: []string{"python", "javascript"},
	}
}

// Evaluate turns one compile Diff into the violations the taxonomy
// requires, sorted errors-before-warnings then by (file, line, code).
func Evaluate(ctx context.Context, diff *compile.Diff, st *store.Store, opts Options) ([]Violation, error) {
	var out []Violation

	allNodes, err := st.AllNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("enforce: load nodes: %w", err)
	}
	profiles := buildModuleProfiles(allNodes)
	byFQN := make(map[string][]*graph.Node)
	for _, n := range allNodes {
		byFQN[simpleFQNName(n.FQN)] = append(byFQN[simpleFQNName(n.FQN)], n)
	}

	for _, d := range diff.NodeDiffs {
		switch d.Kind {
		case compile.ChangeRemoved:
			v, err := evalRemoved(ctx, st, d, opts)
			if err != nil {
				return nil, err
			}
			out = append(out, v...)
		case compile.ChangeSignatureChanged:
			v, err := evalSignatureChanged(ctx, st, d, opts)
			if err != nil {
				return nil, err
			}
			out = append(out, v...)
			out = append(out, evalDocAndHints(d.Node, opts)...)
		case compile.ChangeAdded:
			out = append(out, evalDocAndHints(d.Node, opts)...)
			out = append(out, evalDuplicateName(d.Node, byFQN)...)
			out = append(out, evalPlacement(ctx, st, d.Node, profiles, opts)...)
		case compile.ChangeBodyChanged:
			out = append(out, evalDocAndHints(d.Node, opts)...)
		}
	}

	sortViolations(out)
	return out, nil
}

func evalRemoved(ctx context.Context, st *store.Store, d compile.NodeDiff, opts Options) ([]Violation, error) {
	if d.Previous == nil || (d.Previous.Kind != graph.KindFunction && d.Previous.Kind != graph.KindMethod) {
		return nil, nil
	}
	callers, err := st.CallersOf(ctx, d.Previous.ID)
	if err != nil {
		return nil, fmt.Errorf("enforce: callers of removed node: %w", err)
	}
	if len(callers) == 0 {
		return nil, nil
	}
	affected := callSiteLabels(callers)
	sev := SeverityError
	if worstConfidence(callers) < opts.ConfidenceFloor || anyAmbiguous(callers) {
		sev = SeverityWarning
	}
	return []Violation{{
		Code: CodeFunctionRemoved, Severity: sev, Category: "compatibility",
		Message:    fmt.Sprintf("%s was removed but still has %d caller(s)", d.FQN, len(callers)),
		File:       d.File, Hash: d.Previous.ID, FixHint: "update or remove the remaining call sites",
		Affected: affected,
	}}, nil
}

func evalSignatureChanged(ctx context.Context, st *store.Store, d compile.NodeDiff, opts Options) ([]Violation, error) {
	if d.Previous == nil || d.Node == nil {
		return nil, nil
	}
	if d.Node.Kind != graph.KindFunction && d.Node.Kind != graph.KindMethod {
		return nil, nil
	}
	callers, err := st.CallersOf(ctx, d.Previous.ID)
	if err != nil {
		return nil, fmt.Errorf("enforce: callers of changed node: %w", err)
	}
	if len(callers) == 0 {
		return nil, nil
	}

	oldArity := countParams(d.Previous.Signature)
	newArity := countParams(d.Node.Signature)
	sev := SeverityError
	if worstConfidence(callers) < opts.ConfidenceFloor || anyAmbiguous(callers) {
		sev = SeverityWarning
	}

	if oldArity != newArity {
		return []Violation{{
			Code: CodeArityMismatch, Severity: sev, Category: "compatibility",
			Message:    fmt.Sprintf("%s now takes %d parameter(s), was %d; callers still pass the old count", d.FQN, newArity, oldArity),
			File:       d.File, Hash: d.Node.ID, FixHint: "update call sites to the new arity",
			Affected: callSiteLabels(callers),
		}}, nil
	}

	return []Violation{{
		Code: CodeBrokenCaller, Severity: sev, Category: "compatibility",
		Message:    fmt.Sprintf("%s's signature changed (%q -> %q); existing callers may be incompatible", d.FQN, d.Previous.Signature, d.Node.Signature),
		File:       d.File, Hash: d.Node.ID, FixHint: "review the listed call sites against the new signature",
		Affected: callSiteLabels(callers),
	}}, nil
}

func evalDocAndHints(n *graph.Node, opts Options) []Violation {
	if n == nil || (n.Kind != graph.KindFunction && n.Kind != graph.KindMethod) {
		return nil
	}
	var out []Violation
	if n.IsPublic && !n.HasDoc {
		out = append(out, Violation{
			Code: CodeMissingDocstring, Severity: SeverityError, Category: "documentation",
			Message: fmt.Sprintf("%s is public but has no documentation", n.FQN),
			File:    n.File, Line: n.StartLine, Hash: n.ID, FixHint: "add a doc comment above the definition",
		})
	}
	if requiresTypeHints(n.Language, opts.TypeHintLanguages) && !n.TypeHintsPresent {
		out = append(out, Violation{
			Code: CodeMissingTypeHints, Severity: SeverityError, Category: "documentation",
			Message: fmt.Sprintf("%s is missing type annotations", n.FQN),
			File:    n.File, Line: n.StartLine, Hash: n.ID, FixHint: "annotate parameters and the return type",
		})
	}
	return out
}

func evalDuplicateName(n *graph.Node, byFQN map[string][]*graph.Node) []Violation {
	if n == nil {
		return nil
	}
	simple := simpleFQNName(n.FQN)
	var existing *graph.Node
	for _, other := range byFQN[simple] {
		if other.ID != n.ID && other.File != n.File {
			existing = other
			break
		}
	}
	if existing == nil {
		return nil
	}
	return []Violation{{
		Code: CodeDuplicateName, Severity: SeverityWarning, Category: "naming",
		Message:  fmt.Sprintf("%s duplicates the unqualified name of an existing definition", simple),
		File:     n.File, Line: n.StartLine, Hash: n.ID,
		FixHint:  "rename one of the two, or confirm the overlap is intentional",
		Existing: fmt.Sprintf("%s:%d", existing.File, existing.StartLine),
	}}
}

func evalPlacement(ctx context.Context, st *store.Store, n *graph.Node, profiles map[string]*moduleProfile, opts Options) []Violation {
	if n == nil || (n.Kind != graph.KindFunction && n.Kind != graph.KindMethod) {
		return nil
	}
	home := moduleOf(n.File)
	homeProfile, ok := profiles[home]
	if !ok {
		return nil
	}
	homeScore := scoreModule(ctx, st, n, homeProfile)

	bestModule := ""
	bestScore := homeScore
	for name, p := range profiles {
		if name == home || isUtilityModule(name, opts.UtilityModules) {
			continue
		}
		s := scoreModule(ctx, st, n, p)
		if s > bestScore+opts.PlacementMargin && s > bestScore {
			bestScore = s
			bestModule = name
		}
	}
	if bestModule == "" {
		return nil
	}
	return []Violation{{
		Code: CodePlacement, Severity: SeverityWarning, Category: "placement",
		Message:         fmt.Sprintf("%s fits module %q better than its current module %q", n.FQN, bestModule, home),
		File:            n.File, Line: n.StartLine, Hash: n.ID,
		FixHint:         "consider moving this definition",
		SuggestedModule: bestModule,
	}}
}

func requiresTypeHints(language string, langs []string) bool {
	for _, l := range langs {
		if l == language {
			return true
		}
	}
	return false
}

func countParams(signature string) int {
	open := strings.IndexByte(signature, '(')
	if open == -1 {
		return 0
	}
	depth := 0
	end := -1
	for i := open; i < len(signature); i++ {
		switch signature[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return 0
	}
	inner := strings.TrimSpace(signature[open+1 : end])
	if inner == "" {
		return 0
	}
	parts := splitTopLevelCommas(inner)
	return len(parts)
}

func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i, r := range s {
		switch r {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}

func simpleFQNName(fqn string) string {
	if i := strings.LastIndex(fqn, "."); i != -1 {
		return fqn[i+1:]
	}
	return fqn
}

func callSiteLabels(edges []*graph.Edge) []string {
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, fmt.Sprintf("%s:%d", e.SourceFile, e.SourceLine))
	}
	return out
}

func worstConfidence(edges []*graph.Edge) float64 {
	worst := 1.0
	for _, e := range edges {
		if e.Confidence < worst {
			worst = e.Confidence
		}
	}
	return worst
}

func anyAmbiguous(edges []*graph.Edge) bool {
	for _, e := range edges {
		if e.Ambiguous {
			return true
		}
	}
	return false
}

func sortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		iErr, jErr := vs[i].Severity == SeverityError, vs[j].Severity == SeverityError
		if iErr != jErr {
			return iErr
		}
		if vs[i].File != vs[j].File {
			return vs[i].File < vs[j].File
		}
		if vs[i].Line != vs[j].Line {
			return vs[i].Line < vs[j].Line
		}
		return vs[i].Code < vs[j].Code
	})
}
