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

package graph

// Kind enumerates the definition and relation kinds the graph tracks.
type Kind string

const (
	KindModule    Kind = "module"
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindTrait     Kind = "trait"
	KindInterface Kind = "interface"
)

// EdgeKind enumerates the relation kinds between nodes.
type EdgeKind string

const (
	EdgeContains EdgeKind = "contains"
	EdgeCalls    EdgeKind = "calls"
	EdgeImports  EdgeKind = "imports"
	EdgeInherits EdgeKind = "inherits"
)

// Tier identifies which resolution pass produced an edge.
type Tier string

const (
	TierGrammar Tier = "grammar"   // tier one: tree-sitter textual targets, unresolved
	TierLang    Tier = "language"  // tier two: per-language static resolver
	TierDeep    Tier = "deep"      // tier three: subprocess language-server / type-checker
)

// Node is one definition in the structural graph: a module, function,
// method, class, struct, enum, or trait.
type Node struct {
	ID                   string // 11-character base62 content hash
	Kind                 Kind
	FQN                  string
	File                 string
	StartLine            int
	EndLine              int
	StartCol             int
	EndCol               int
	Signature            string
	DocFirstLine         string
	HasDoc               bool
	TypeHintsPresent     bool
	IsPublic             bool
	Language             string
	Generation           int
	LastParsedGeneration int
	SuppressCode         string // from parse.Definition.Suppress(); no parser visitor fills SuppressDirective, so Map and Compile leave this empty
	SuppressReason       string
}

// UnresolvedRef is a textual call/import/inheritance target produced by
// the tier-one grammar pass, before any language resolver has run.
type UnresolvedRef struct {
	Kind           EdgeKind
	SourceFile     string
	SourceLine     int
	SourceNodeID   string
	TextualTarget  string
	Language       string
}

// Edge is a resolved (or partially resolved) relation between two nodes.
type Edge struct {
	ID                string
	Kind              EdgeKind
	SourceFile        string
	SourceLine        int
	SourceNodeID      string
	TargetID          string // empty when unresolved
	UnresolvedTarget  string
	Tier              Tier
	Confidence        float64
	TypeOnly          bool
	Ambiguous         bool
	CandidateTargets  []string // populated when Ambiguous is true
	Generation        int
}

// Profile captures a module's cohesion signature for placement scoring.
type Profile struct {
	Module       string
	Contained    []string // node IDs directly contained in this module
	NameTokens   map[string]int
	CohesionIn   float64 // fraction of edges into this module originating within it
	CohesionOut  float64 // fraction of edges out of this module targeting within it
}

// ResolutionCacheEntry records the last-resolved target for one call site,
// keyed by (file, line), so an unchanged site need not be re-resolved.
type ResolutionCacheEntry struct {
	File       string
	Line       int
	TargetID   string
	Tier       Tier
	Confidence float64
	Generation int
}

// Index is an in-memory view over a set of nodes and edges sufficient for
// a single resolver pass or traversal; pkg/mapper and pkg/compile each build
// one per Map/Compile invocation (the compiler from the store's nodes).
type Index struct {
	Nodes       map[string]*Node            // by ID
	ByFile      map[string][]*Node          // file -> nodes declared in it
	ByFQN       map[string]*Node            // fully-qualified name -> node
	Edges       []*Edge
	CalleesOf   map[string][]*Edge          // source node ID -> outgoing edges, any kind
	CallersOf   map[string][]*Edge          // target node ID -> incoming edges, any kind
}

// NewIndex returns an empty Index ready for population.
func NewIndex() *Index {
	return &Index{
		Nodes:     make(map[string]*Node),
		ByFile:    make(map[string][]*Node),
		ByFQN:     make(map[string]*Node),
		CalleesOf: make(map[string][]*Edge),
		CallersOf: make(map[string][]*Edge),
	}
}

// AddNode registers a node in the index's lookup maps.
func (idx *Index) AddNode(n *Node) {
	idx.Nodes[n.ID] = n
	idx.ByFile[n.File] = append(idx.ByFile[n.File], n)
	if n.FQN != "" {
		idx.ByFQN[n.FQN] = n
	}
}

// AddEdge registers an edge and, for call edges, updates the adjacency maps.
func (idx *Index) AddEdge(e *Edge) {
	idx.Edges = append(idx.Edges, e)
	if e.Kind == EdgeCalls && e.TargetID != "" {
		idx.CalleesOf[e.SourceNodeID] = append(idx.CalleesOf[e.SourceNodeID], e)
		idx.CallersOf[e.TargetID] = append(idx.CallersOf[e.TargetID], e)
	}
}
