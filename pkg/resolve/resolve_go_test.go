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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/graph"
)

func TestGoResolver_BareNameCallIsUnqualifiedConfidence(t *testing.T) {
	r := NewGoResolver()
	callee := &graph.Node{ID: "n1", Kind: graph.KindFunction, FQN: "Greet", File: "pkg/greeter.go", Language: "go"}
	r.BuildIndex([]*graph.Node{callee}, map[string]string{"pkg/greeter.go": "pkg", "pkg/main.go": "pkg"}, nil)

	ref := graph.UnresolvedRef{Kind: graph.EdgeCalls, SourceFile: "pkg/main.go", TextualTarget: "Greet", Language: "go"}
	resolved, ok := r.Resolve(context.Background(), nil, ref)
	require.True(t, ok)
	require.Equal(t, "n1", resolved.TargetID)
	require.Equal(t, 0.80, resolved.Confidence)
	require.False(t, resolved.Ambiguous)
}

func TestGoResolver_QualifiedCallIsHighConfidence(t *testing.T) {
	r := NewGoResolver()
	callee := &graph.Node{ID: "n1", Kind: graph.KindFunction, FQN: "Greet", File: "sub/greeter.go", Language: "go"}
	packageNames := map[string]string{"sub/greeter.go": "sub", "main.go": "main"}
	imports := []graph.UnresolvedRef{{Kind: graph.EdgeImports, SourceFile: "main.go", TextualTarget: "example.com/mod/sub", Language: "go"}}
	r.BuildIndex([]*graph.Node{callee}, packageNames, imports)

	ref := graph.UnresolvedRef{Kind: graph.EdgeCalls, SourceFile: "main.go", TextualTarget: "sub.Greet", Language: "go"}
	resolved, ok := r.Resolve(context.Background(), nil, ref)
	require.True(t, ok)
	require.Equal(t, "n1", resolved.TargetID)
	require.Equal(t, 0.90, resolved.Confidence)
	require.False(t, resolved.Ambiguous)
}

func TestGoResolver_ReceiverCallWithOneImplementorIsUnambiguous(t *testing.T) {
	r := NewGoResolver()
	method := &graph.Node{ID: "n1", Kind: graph.KindMethod, FQN: "Dog.Speak", File: "pkg/animal.go", Language: "go"}
	r.BuildIndex([]*graph.Node{method}, map[string]string{"pkg/animal.go": "pkg", "pkg/main.go": "pkg"}, nil)

	ref := graph.UnresolvedRef{Kind: graph.EdgeCalls, SourceFile: "pkg/main.go", TextualTarget: "animal.Speak", Language: "go"}
	resolved, ok := r.Resolve(context.Background(), nil, ref)
	require.True(t, ok)
	require.Equal(t, "n1", resolved.TargetID)
	require.Equal(t, 0.80, resolved.Confidence)
	require.False(t, resolved.Ambiguous)
}

func TestGoResolver_ReceiverCallWithMultipleImplementorsIsAmbiguous(t *testing.T) {
	r := NewGoResolver()
	dog := &graph.Node{ID: "n1", Kind: graph.KindMethod, FQN: "Dog.Speak", File: "pkg/animal.go", Language: "go"}
	cat := &graph.Node{ID: "n2", Kind: graph.KindMethod, FQN: "Cat.Speak", File: "pkg/animal.go", Language: "go"}
	r.BuildIndex([]*graph.Node{dog, cat}, map[string]string{"pkg/animal.go": "pkg", "pkg/main.go": "pkg"}, nil)

	ref := graph.UnresolvedRef{Kind: graph.EdgeCalls, SourceFile: "pkg/main.go", TextualTarget: "animal.Speak", Language: "go"}
	resolved, ok := r.Resolve(context.Background(), nil, ref)
	require.True(t, ok)
	require.True(t, resolved.Ambiguous)
	require.ElementsMatch(t, []string{"n1", "n2"}, resolved.Candidates)
	require.Equal(t, 0.40, resolved.Confidence)
}
