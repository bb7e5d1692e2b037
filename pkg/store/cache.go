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

// GetResolutionCache returns the cached resolution for a call site, if the
// cached generation is still current. The caller compares Generation
// against the file's last-compiled generation to decide staleness.
func (s *Store) GetResolutionCache(ctx context.Context, file string, line int) (*graph.ResolutionCacheEntry, bool, error) {
	rows, err := s.query(ctx, `?[target_id, tier, confidence, generation] :=
		*keel_resolution_cache { file: $file, site_line: $line, target_id, tier, confidence, generation }`,
		map[string]any{"file": file, "line": line})
	if err != nil {
		return nil, false, fmt.Errorf("store: get resolution cache: %w", err)
	}
	if len(rows.Rows) == 0 {
		return nil, false, nil
	}
	row := rows.Rows[0]
	targetID, _ := row[0].(string)
	tier, _ := row[1].(string)
	conf, _ := row[2].(float64)
	gen := asInt(row[3])
	return &graph.ResolutionCacheEntry{
		File: file, Line: line, TargetID: targetID,
		Tier: graph.Tier(tier), Confidence: conf, Generation: gen,
	}, true, nil
}

// PutResolutionCache writes back the result of a resolver pass for a call
// site so the next compile can skip re-resolving it if the file's
// generation hasn't advanced.
func (s *Store) PutResolutionCache(ctx context.Context, e graph.ResolutionCacheEntry) error {
	script := `?[file, site_line, target_id, tier, confidence, generation] <- $rows
		:put keel_resolution_cache { file, site_line => target_id, tier, confidence, generation }`
	rows := [][]any{{e.File, e.Line, e.TargetID, string(e.Tier), e.Confidence, e.Generation}}
	if _, err := s.execute(ctx, script, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("store: put resolution cache: %w", err)
	}
	return nil
}

// InvalidateResolutionCache drops every cached resolution for a file, used
// when a file's generation advances and its cached call sites can no
// longer be trusted.
func (s *Store) InvalidateResolutionCache(ctx context.Context, file string) error {
	script := `?[file, site_line] := *keel_resolution_cache { file: $file, site_line } :rm keel_resolution_cache { file, site_line }`
	if _, err := s.execute(ctx, script, map[string]any{"file": file}); err != nil {
		return fmt.Errorf("store: invalidate resolution cache: %w", err)
	}
	return nil
}

func asInt(v any) int {
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
