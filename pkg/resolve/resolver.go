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

	"github.com/kraklabs/keel/pkg/graph"
)

// Resolved is the outcome of resolving one UnresolvedRef: either a single
// confident target, or a set of ambiguous candidates (dynamic dispatch,
// star imports).
type Resolved struct {
	TargetID   string
	Candidates []string // populated when ambiguous
	Tier       graph.Tier
	Confidence float64
	Ambiguous  bool
	TypeOnly   bool
}

// Resolver resolves one language's unresolved references against the
// in-memory index built from everything mapped so far.
type Resolver interface {
	Language() string
	Resolve(ctx context.Context, idx *graph.Index, ref graph.UnresolvedRef) (Resolved, bool)
}

// confidenceFloor is the threshold below which an edge driving an ERROR
// code is demoted to WARNING, per the engine's confidence policy.
const confidenceFloor = 0.70

// BelowFloor reports whether an edge's confidence is too low to support an
// ERROR-severity violation.
func BelowFloor(confidence float64) bool {
	return confidence < confidenceFloor
}
