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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/graph"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{DataDir: t.TempDir(), Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_UpsertAndLookupNode(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n := &graph.Node{
		ID: "abc12345678", Kind: graph.KindFunction, FQN: "pkg.Greet",
		File: "pkg/greet.go", StartLine: 3, EndLine: 5, Signature: "func Greet(name string) string",
		Language: "go", IsPublic: true, Generation: 1,
	}
	require.NoError(t, s.UpsertNodes(ctx, []*graph.Node{n}))

	got, ok, err := s.LookupHash(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, n.FQN, got.FQN)
	require.Equal(t, n.File, got.File)
	require.Equal(t, n.StartLine, got.StartLine)
	require.True(t, got.IsPublic)
}

func TestStore_LocateReturnsFileNodes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	nodes := []*graph.Node{
		{ID: "n1_________a", Kind: graph.KindFunction, FQN: "pkg.A", File: "pkg/a.go", Language: "go"},
		{ID: "n2_________b", Kind: graph.KindFunction, FQN: "pkg.B", File: "pkg/a.go", Language: "go"},
		{ID: "n3_________c", Kind: graph.KindFunction, FQN: "pkg.C", File: "pkg/other.go", Language: "go"},
	}
	require.NoError(t, s.UpsertNodes(ctx, nodes))

	got, err := s.Locate(ctx, "pkg/a.go")
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestStore_ReplaceEdgesForFileDropsStale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []*graph.Edge{{ID: "e1", Kind: graph.EdgeCalls, SourceFile: "pkg/a.go", SourceNodeID: "n1", TargetID: "n2", Tier: graph.TierLang, Confidence: 0.9}}
	require.NoError(t, s.ReplaceEdgesForFile(ctx, "pkg/a.go", first))

	callees, err := s.CalleesOf(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, callees, 1)

	require.NoError(t, s.ReplaceEdgesForFile(ctx, "pkg/a.go", nil))
	callees, err = s.CalleesOf(ctx, "n1")
	require.NoError(t, err)
	require.Empty(t, callees)
}

func TestStore_CallersAndCallees(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	edges := []*graph.Edge{
		{ID: "e1", Kind: graph.EdgeCalls, SourceFile: "pkg/a.go", SourceNodeID: "caller1", TargetID: "callee1", Tier: graph.TierLang, Confidence: 0.9},
	}
	require.NoError(t, s.ReplaceEdgesForFile(ctx, "pkg/a.go", edges))

	callers, err := s.CallersOf(ctx, "callee1")
	require.NoError(t, err)
	require.Len(t, callers, 1)
	require.Equal(t, "caller1", callers[0].SourceNodeID)
}

func TestStore_ResolutionCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entry := graph.ResolutionCacheEntry{File: "pkg/a.go", Line: 10, TargetID: "n1", Tier: graph.TierLang, Confidence: 0.9, Generation: 2}
	require.NoError(t, s.PutResolutionCache(ctx, entry))

	got, ok, err := s.GetResolutionCache(ctx, "pkg/a.go", 10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.TargetID, got.TargetID)
	require.Equal(t, entry.Generation, got.Generation)

	require.NoError(t, s.InvalidateResolutionCache(ctx, "pkg/a.go"))
	_, ok, err = s.GetResolutionCache(ctx, "pkg/a.go", 10)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_ProfileRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := &graph.Profile{
		Module: "pkg/auth", Contained: []string{"n1", "n2"},
		NameTokens: map[string]int{"token": 3, "verify": 2}, CohesionIn: 0.8, CohesionOut: 0.4,
	}
	require.NoError(t, s.PutProfile(ctx, p))

	got, ok, err := s.GetProfile(ctx, "pkg/auth")
	require.NoError(t, err)
	require.True(t, ok)
	require.ElementsMatch(t, p.Contained, got.Contained)
	require.Equal(t, p.NameTokens["token"], got.NameTokens["token"])
}

func TestStore_SessionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSession(ctx, "batch-deadline", []byte("2026-07-30T10:00:00Z")))
	got, ok, err := s.GetSession(ctx, "batch-deadline")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2026-07-30T10:00:00Z", string(got))

	require.NoError(t, s.DeleteSession(ctx, "batch-deadline"))
	_, ok, err = s.GetSession(ctx, "batch-deadline")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_FileGenerationBumps(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	gen, err := s.FileGeneration(ctx, "pkg/a.go")
	require.NoError(t, err)
	require.Equal(t, 0, gen)

	gen, err = s.BumpFileGeneration(ctx, "pkg/a.go")
	require.NoError(t, err)
	require.Equal(t, 1, gen)

	gen, err = s.BumpFileGeneration(ctx, "pkg/a.go")
	require.NoError(t, err)
	require.Equal(t, 2, gen)
}

func TestStore_DeleteFileRemovesNodesAndEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	nodes := []*graph.Node{{ID: "n1", Kind: graph.KindFunction, FQN: "pkg.A", File: "pkg/a.go", Language: "go"}}
	require.NoError(t, s.UpsertNodes(ctx, nodes))
	edges := []*graph.Edge{{ID: "e1", Kind: graph.EdgeCalls, SourceFile: "pkg/a.go", SourceNodeID: "n1", TargetID: "n2"}}
	require.NoError(t, s.ReplaceEdgesForFile(ctx, "pkg/a.go", edges))

	require.NoError(t, s.DeleteFile(ctx, "pkg/a.go"))

	_, ok, err := s.LookupHash(ctx, "n1")
	require.NoError(t, err)
	require.False(t, ok)

	callees, err := s.CalleesOf(ctx, "n1")
	require.NoError(t, err)
	require.Empty(t, callees)
}

func TestStore_WalkNeighborsBFS(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	edges := []*graph.Edge{
		{ID: "e1", Kind: graph.EdgeCalls, SourceFile: "pkg/a.go", SourceNodeID: "a", TargetID: "b"},
		{ID: "e2", Kind: graph.EdgeCalls, SourceFile: "pkg/b.go", SourceNodeID: "b", TargetID: "c"},
	}
	require.NoError(t, s.ReplaceEdgesForFile(ctx, "pkg/a.go", edges[:1]))
	require.NoError(t, s.ReplaceEdgesForFile(ctx, "pkg/b.go", edges[1:]))

	out, err := s.WalkNeighbors(ctx, "a", 2, "callees")
	require.NoError(t, err)
	require.Len(t, out, 2)
}
