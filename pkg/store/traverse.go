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

// maxTraversalNodes bounds WalkNeighbors against runaway traversals over a
// graph with unexpected cycles, mirroring the safety limit TracePath
// applies to its own BFS.
const maxTraversalNodes = 5000

// WalkNeighbors performs a breadth-first walk outward from startID up to
// maxDepth hops, following edges of every kind in direction dir ("callees",
// "callers", or "both"). The visited set is keyed by node ID, so a call
// graph with cycles terminates correctly instead of looping forever.
func (s *Store) WalkNeighbors(ctx context.Context, startID string, maxDepth int, dir string) ([]*graph.Edge, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}
	visited := map[string]bool{startID: true}
	frontier := []string{startID}
	var out []*graph.Edge

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			if len(visited) > maxTraversalNodes {
				return out, nil
			}
			edges, err := s.edgesForDirection(ctx, id, dir)
			if err != nil {
				return nil, fmt.Errorf("store: walk neighbors: %w", err)
			}
			for _, e := range edges {
				out = append(out, e)
				other := e.TargetID
				if other == id {
					other = e.SourceNodeID
				}
				if other != "" && !visited[other] {
					visited[other] = true
					next = append(next, other)
				}
			}
		}
		frontier = next
	}
	return out, nil
}

func (s *Store) edgesForDirection(ctx context.Context, id string, dir string) ([]*graph.Edge, error) {
	switch dir {
	case "callers":
		return s.CallersOf(ctx, id)
	case "both":
		callees, err := s.CalleesOf(ctx, id)
		if err != nil {
			return nil, err
		}
		callers, err := s.CallersOf(ctx, id)
		if err != nil {
			return nil, err
		}
		return append(callees, callers...), nil
	default:
		return s.CalleesOf(ctx, id)
	}
}
