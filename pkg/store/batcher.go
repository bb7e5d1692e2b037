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

import "github.com/kraklabs/keel/pkg/graph"

// defaultBatchSize caps the number of rows sent in a single CozoScript
// mutation, keeping any one script under CozoDB's practical payload size.
const defaultBatchSize = 1000

func batchNodes(nodes []*graph.Node, size int) [][]*graph.Node {
	if len(nodes) == 0 {
		return nil
	}
	var out [][]*graph.Node
	for i := 0; i < len(nodes); i += size {
		end := i + size
		if end > len(nodes) {
			end = len(nodes)
		}
		out = append(out, nodes[i:end])
	}
	return out
}

func batchEdges(edges []*graph.Edge, size int) [][]*graph.Edge {
	if len(edges) == 0 {
		return nil
	}
	var out [][]*graph.Edge
	for i := 0; i < len(edges); i += size {
		end := i + size
		if end > len(edges) {
			end = len(edges)
		}
		out = append(out, edges[i:end])
	}
	return out
}
