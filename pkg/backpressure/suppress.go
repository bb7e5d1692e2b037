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

package backpressure

import (
	"fmt"
	"strings"

	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/graph"
)

// SuppressEntry is one persistent, config-file-level suppression. Hash is
// optional; an empty Hash suppresses every occurrence of Code project-wide,
// a set Hash scopes the suppression to a single definition.
type SuppressEntry struct {
	Code   enforce.Code
	Hash   string
	Reason string
}

// ValidateSuppressEntries rejects any entry with an empty Reason: a
// suppression with no stated reason is a silent blind spot, so the config
// fails to load rather than letting one through.
func ValidateSuppressEntries(entries []SuppressEntry) error {
	for i, e := range entries {
		if strings.TrimSpace(e.Reason) == "" {
			return fmt.Errorf("backpressure: suppress entry %d (code %s) has no reason", i, e.Code)
		}
	}
	return nil
}

// Suppressor applies the three suppression layers, in order: an inline
// `keel:suppress <code> — <reason>` directive attached to the violating
// node, a persistent config entry, and a one-shot per-invocation flag. A
// suppressed violation is never dropped outright; it's replaced with an
// S001 INFO record carrying the reason and which layer suppressed it.
type Suppressor struct {
	nodesByID  map[string]*graph.Node
	persistent []SuppressEntry
	oneShot    map[string]bool
}

// NewSuppressor builds a Suppressor from the current node set, the loaded
// persistent config entries, and a one-shot flag list. A one-shot entry is
// either a bare code ("E002", suppressing it everywhere for this
// invocation) or "CODE:hash" (suppressing one definition).
func NewSuppressor(nodes []*graph.Node, persistent []SuppressEntry, oneShot []string) *Suppressor {
	byID := make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	oneShotSet := make(map[string]bool, len(oneShot))
	for _, s := range oneShot {
		oneShotSet[s] = true
	}
	return &Suppressor{nodesByID: byID, persistent: persistent, oneShot: oneShotSet}
}

// Apply returns violations with every suppressed entry replaced by an S001
// record; unsuppressed violations pass through unchanged.
func (s *Suppressor) Apply(violations []enforce.Violation) []enforce.Violation {
	out := make([]enforce.Violation, 0, len(violations))
	for _, v := range violations {
		if layer, reason, ok := s.match(v); ok {
			out = append(out, enforce.Violation{
				Code:     enforce.CodeSuppressed,
				Severity: enforce.SeverityInfo,
				Category: v.Category,
				Message:  fmt.Sprintf("%s suppressed by %s: %s", v.Code, layer, reason),
				File:     v.File, Line: v.Line, Hash: v.Hash,
				Suppressed: true,
				FixHint:    v.FixHint,
			})
			continue
		}
		out = append(out, v)
	}
	return out
}

func (s *Suppressor) match(v enforce.Violation) (layer, reason string, ok bool) {
	if n, found := s.nodesByID[v.Hash]; found && n.SuppressCode != "" && enforce.Code(n.SuppressCode) == v.Code {
		return "inline directive", n.SuppressReason, true
	}
	for _, e := range s.persistent {
		if e.Code != v.Code {
			continue
		}
		if e.Hash == "" || e.Hash == v.Hash {
			return "config", e.Reason, true
		}
	}
	if s.oneShot[string(v.Code)+":"+v.Hash] {
		return "one-shot flag", "suppressed for this invocation", true
	}
	if s.oneShot[string(v.Code)] {
		return "one-shot flag", "suppressed for this invocation", true
	}
	return "", "", false
}
