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

package store

import (
	"context"
	"fmt"

	"github.com/kraklabs/keel/pkg/graph"
)

// UpsertNodes writes or overwrites a batch of nodes in one transaction,
// split into scripts of at most 1000 rows when the set is large.
func (s *Store) UpsertNodes(ctx context.Context, nodes []*graph.Node) error {
	for _, batch := range batchNodes(nodes, defaultBatchSize) {
		rows := make([][]any, 0, len(batch))
		for _, n := range batch {
			rows = append(rows, []any{
				n.ID, string(n.Kind), n.FQN, n.File, n.StartLine, n.EndLine,
				n.StartCol, n.EndCol, n.Signature, n.DocFirstLine, n.HasDoc,
				n.TypeHintsPresent, n.IsPublic, n.Language, n.Generation,
				n.SuppressCode, n.SuppressReason,
			})
		}
		script := `?[id, kind, fqn, file, start_line, end_line, start_col, end_col, signature, doc_first_line, has_doc, type_hints_present, is_public, language, generation, suppress_code, suppress_reason] <- $rows
			:put keel_node { id => kind, fqn, file, start_line, end_line, start_col, end_col, signature, doc_first_line, has_doc, type_hints_present, is_public, language, generation, suppress_code, suppress_reason }`
		if _, err := s.execute(ctx, script, map[string]any{"rows": rows}); err != nil {
			return fmt.Errorf("store: upsert nodes: %w", err)
		}
	}
	return nil
}

// ReplaceEdgesForFile atomically drops every edge sourced from file and
// writes the new set, so a recompiled file never leaves stale edges.
func (s *Store) ReplaceEdgesForFile(ctx context.Context, file string, edges []*graph.Edge) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("store: closed")
	}
	s.mu.Unlock()

	del := `?[id] := *keel_edge { id, src_file: $file } :rm keel_edge { id }`
	if _, err := s.execute(ctx, `?[id] := *keel_edge { id, src_file: $file } :rm keel_edge { id }`, map[string]any{"file": file}); err != nil {
		return fmt.Errorf("store: delete stale edges: %w", err)
	}
	_ = del // kept for documentation of the relation touched; actual op above

	for _, batch := range batchEdges(edges, defaultBatchSize) {
		rows := make([][]any, 0, len(batch))
		for _, e := range batch {
			rows = append(rows, []any{
				e.ID, string(e.Kind), e.SourceFile, e.SourceLine, e.SourceNodeID,
				e.TargetID, e.UnresolvedTarget, string(e.Tier), e.Confidence,
				e.TypeOnly, e.Ambiguous, e.Generation,
			})
		}
		script := `?[id, kind, src_file, src_line, src_node_id, target_id, unresolved_target, tier, confidence, type_only, ambiguous, generation] <- $rows
			:put keel_edge { id => kind, src_file, src_line, src_node_id, target_id, unresolved_target, tier, confidence, type_only, ambiguous, generation }`
		if _, err := s.execute(ctx, script, map[string]any{"rows": rows}); err != nil {
			return fmt.Errorf("store: write edges: %w", err)
		}
	}
	return nil
}

// DeleteFile removes every node and edge sourced from file, used when a
// file is deleted from the working tree.
func (s *Store) DeleteFile(ctx context.Context, file string) error {
	if _, err := s.execute(ctx, `?[id] := *keel_node { id, file: $file } :rm keel_node { id }`, map[string]any{"file": file}); err != nil {
		return fmt.Errorf("store: delete file nodes: %w", err)
	}
	if _, err := s.execute(ctx, `?[id] := *keel_edge { id, src_file: $file } :rm keel_edge { id }`, map[string]any{"file": file}); err != nil {
		return fmt.Errorf("store: delete file edges: %w", err)
	}
	return nil
}

// LookupHash returns the node with the given content hash, if present.
func (s *Store) LookupHash(ctx context.Context, hash string) (*graph.Node, bool, error) {
	rows, err := s.query(ctx, `?[kind, fqn, file, start_line, end_line, start_col, end_col, signature, doc_first_line, has_doc, type_hints_present, is_public, language, generation, suppress_code, suppress_reason] :=
		*keel_node { id: $id, kind, fqn, file, start_line, end_line, start_col, end_col, signature, doc_first_line, has_doc, type_hints_present, is_public, language, generation, suppress_code, suppress_reason }`,
		map[string]any{"id": hash})
	if err != nil {
		return nil, false, fmt.Errorf("store: lookup hash: %w", err)
	}
	if len(rows.Rows) == 0 {
		return nil, false, nil
	}
	row := rows.Rows[0]
	file, _ := row[2].(string)
	n := nodeFromRow(hash, append(row[:2:2], row[3:]...))
	n.File = file
	return n, true, nil
}

// Locate returns every node declared in file.
func (s *Store) Locate(ctx context.Context, file string) ([]*graph.Node, error) {
	rows, err := s.query(ctx, `?[id, kind, fqn, start_line, end_line, start_col, end_col, signature, doc_first_line, has_doc, type_hints_present, is_public, language, generation, suppress_code, suppress_reason] :=
		*keel_node { id, kind, fqn, file: $file, start_line, end_line, start_col, end_col, signature, doc_first_line, has_doc, type_hints_present, is_public, language, generation, suppress_code, suppress_reason }`,
		map[string]any{"file": file})
	if err != nil {
		return nil, fmt.Errorf("store: locate: %w", err)
	}
	out := make([]*graph.Node, 0, len(rows.Rows))
	for _, row := range rows.Rows {
		id, _ := row[0].(string)
		out = append(out, nodeFromRow(id, row[1:]))
		out[len(out)-1].File = file
	}
	return out, nil
}

// AllNodes returns every node in the store, used to rebuild a resolver's
// in-memory index ahead of an incremental compile.
func (s *Store) AllNodes(ctx context.Context) ([]*graph.Node, error) {
	rows, err := s.query(ctx, `?[id, kind, fqn, file, start_line, end_line, start_col, end_col, signature, doc_first_line, has_doc, type_hints_present, is_public, language, generation, suppress_code, suppress_reason] :=
		*keel_node { id, kind, fqn, file, start_line, end_line, start_col, end_col, signature, doc_first_line, has_doc, type_hints_present, is_public, language, generation, suppress_code, suppress_reason }`,
		nil)
	if err != nil {
		return nil, fmt.Errorf("store: all nodes: %w", err)
	}
	out := make([]*graph.Node, 0, len(rows.Rows))
	for _, row := range rows.Rows {
		id, _ := row[0].(string)
		file, _ := row[3].(string)
		// row is [id, kind, fqn, file, start_line, ...]; nodeFromRow expects
		// [kind, fqn, start_line, ...] so file is spliced out.
		fields := append(append([]any{}, row[1:3]...), row[4:]...)
		n := nodeFromRow(id, fields)
		n.File = file
		out = append(out, n)
	}
	return out, nil
}

// Neighbors returns every edge touching nodeID, in either direction.
func (s *Store) Neighbors(ctx context.Context, nodeID string) ([]*graph.Edge, error) {
	out, err := s.CalleesOf(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	callers, err := s.CallersOf(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return append(out, callers...), nil
}

// CalleesOf returns every outgoing edge from nodeID, of any kind (calls
// and imports alike).
func (s *Store) CalleesOf(ctx context.Context, nodeID string) ([]*graph.Edge, error) {
	return s.edgesWhere(ctx, `src_node_id: $id`, nodeID)
}

// CallersOf returns every incoming edge into nodeID, of any kind (calls
// and imports alike).
func (s *Store) CallersOf(ctx context.Context, nodeID string) ([]*graph.Edge, error) {
	return s.edgesWhere(ctx, `target_id: $id`, nodeID)
}

func (s *Store) edgesWhere(ctx context.Context, cond string, id string) ([]*graph.Edge, error) {
	script := fmt.Sprintf(`?[id, kind, src_file, src_line, src_node_id, target_id, unresolved_target, tier, confidence, type_only, ambiguous, generation] :=
		*keel_edge { id, kind, src_file, src_line, src_node_id, target_id, unresolved_target, tier, confidence, type_only, ambiguous, generation }, %s`, cond)
	rows, err := s.query(ctx, script, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("store: edges: %w", err)
	}
	out := make([]*graph.Edge, 0, len(rows.Rows))
	for _, row := range rows.Rows {
		out = append(out, edgeFromRow(row))
	}
	return out, nil
}

func nodeFromRow(id string, row []any) *graph.Node {
	get := func(i int) any {
		if i < len(row) {
			return row[i]
		}
		return nil
	}
	asStr := func(v any) string { s, _ := v.(string); return s }
	asInt := func(v any) int {
		switch t := v.(type) {
		case int64:
			return int(t)
		case float64:
			return int(t)
		case int:
			return t
		}
		return 0
	}
	asBool := func(v any) bool { b, _ := v.(bool); return b }
	return &graph.Node{
		ID:               id,
		Kind:             graph.Kind(asStr(get(0))),
		FQN:              asStr(get(1)),
		StartLine:        asInt(get(2)),
		EndLine:          asInt(get(3)),
		StartCol:         asInt(get(4)),
		EndCol:           asInt(get(5)),
		Signature:        asStr(get(6)),
		DocFirstLine:     asStr(get(7)),
		HasDoc:           asBool(get(8)),
		TypeHintsPresent: asBool(get(9)),
		IsPublic:         asBool(get(10)),
		Language:         asStr(get(11)),
		Generation:       asInt(get(12)),
		SuppressCode:     asStr(get(13)),
		SuppressReason:   asStr(get(14)),
	}
}

func edgeFromRow(row []any) *graph.Edge {
	asStr := func(v any) string { s, _ := v.(string); return s }
	asInt := func(v any) int {
		switch t := v.(type) {
		case int64:
			return int(t)
		case float64:
			return int(t)
		case int:
			return t
		}
		return 0
	}
	asFloat := func(v any) float64 {
		switch t := v.(type) {
		case float64:
			return t
		case int64:
			return float64(t)
		}
		return 0
	}
	asBool := func(v any) bool { b, _ := v.(bool); return b }
	return &graph.Edge{
		ID:               asStr(row[0]),
		Kind:             graph.EdgeKind(asStr(row[1])),
		SourceFile:       asStr(row[2]),
		SourceLine:       asInt(row[3]),
		SourceNodeID:     asStr(row[4]),
		TargetID:         asStr(row[5]),
		UnresolvedTarget: asStr(row[6]),
		Tier:             graph.Tier(asStr(row[7])),
		Confidence:       asFloat(row[8]),
		TypeOnly:         asBool(row[9]),
		Ambiguous:        asBool(row[10]),
		Generation:       asInt(row[11]),
	}
}
