// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package testing

import (
	"context"
	"testing"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/store"
)

// SetupTestStore creates an in-memory graph store for testing. Automatically
// closed when the test finishes.
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    st := testing.SetupTestStore(t)
//	    testing.InsertTestFunction(t, st, "fn1", "handleLogin", "auth.go", 10, 20)
//	}
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(store.Config{Engine: "mem", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

// InsertTestFunction adds a function node to the store. A convenience
// wrapper over UpsertNodes for seeding a single node by hand in tests that
// don't want to go through the mapper/compiler.
func InsertTestFunction(t *testing.T, st *store.Store, id, fqn, file string, startLine, endLine int) {
	t.Helper()
	insertTestNode(t, st, &graph.Node{
		ID: id, Kind: graph.KindFunction, FQN: fqn, File: file,
		StartLine: startLine, EndLine: endLine, IsPublic: true,
	})
}

// InsertTestFunctionWithSignature is like InsertTestFunction but also sets
// the node's signature text, for tests that assert on arity or type hints.
func InsertTestFunctionWithSignature(t *testing.T, st *store.Store, id, fqn, signature, file string, startLine, endLine int) {
	t.Helper()
	insertTestNode(t, st, &graph.Node{
		ID: id, Kind: graph.KindFunction, FQN: fqn, File: file,
		StartLine: startLine, EndLine: endLine, Signature: signature, IsPublic: true,
	})
}

// InsertTestType adds a struct/interface/class node to the store.
func InsertTestType(t *testing.T, st *store.Store, id, fqn string, kind graph.Kind, file string, startLine, endLine int) {
	t.Helper()
	insertTestNode(t, st, &graph.Node{
		ID: id, Kind: kind, FQN: fqn, File: file,
		StartLine: startLine, EndLine: endLine, IsPublic: true,
	})
}

// InsertTestModule adds a module node for file.
func InsertTestModule(t *testing.T, st *store.Store, id, file string) {
	t.Helper()
	insertTestNode(t, st, &graph.Node{ID: id, Kind: graph.KindModule, FQN: file, File: file})
}

func insertTestNode(t *testing.T, st *store.Store, n *graph.Node) {
	t.Helper()
	if err := st.UpsertNodes(context.Background(), []*graph.Node{n}); err != nil {
		t.Fatalf("failed to insert test node %s: %v", n.ID, err)
	}
}

// InsertTestCall adds a resolved call edge (caller -> callee) sourced from
// file at line, replacing any existing edges already recorded for file.
// Tests that need more than one edge in the same file should build the
// full []*graph.Edge slice and call st.ReplaceEdgesForFile directly.
func InsertTestCall(t *testing.T, st *store.Store, file string, line int, callerID, calleeID string) {
	t.Helper()
	edge := &graph.Edge{
		ID: callerID + "->" + calleeID, Kind: graph.EdgeCalls,
		SourceFile: file, SourceLine: line, SourceNodeID: callerID,
		TargetID: calleeID, Tier: graph.TierLang, Confidence: 1.0,
	}
	if err := st.ReplaceEdgesForFile(context.Background(), file, []*graph.Edge{edge}); err != nil {
		t.Fatalf("failed to insert test call edge: %v", err)
	}
}

// InsertTestImport adds a resolved import edge (fromFile's module ->
// toModuleID).
func InsertTestImport(t *testing.T, st *store.Store, fromFile string, line int, fromModuleID, toModuleID string) {
	t.Helper()
	edge := &graph.Edge{
		ID: fromModuleID + "=>" + toModuleID, Kind: graph.EdgeImports,
		SourceFile: fromFile, SourceLine: line, SourceNodeID: fromModuleID,
		TargetID: toModuleID, Tier: graph.TierLang, Confidence: 0.95,
	}
	if err := st.ReplaceEdgesForFile(context.Background(), fromFile, []*graph.Edge{edge}); err != nil {
		t.Fatalf("failed to insert test import edge: %v", err)
	}
}

// QueryAllNodes returns every node currently in the store, failing the
// test on error.
func QueryAllNodes(t *testing.T, st *store.Store) []*graph.Node {
	t.Helper()
	nodes, err := st.AllNodes(context.Background())
	if err != nil {
		t.Fatalf("failed to query nodes: %v", err)
	}
	return nodes
}
