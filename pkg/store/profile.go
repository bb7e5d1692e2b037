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
	"encoding/json"
	"fmt"

	"github.com/kraklabs/keel/pkg/graph"
)

// PutProfile writes a module's cohesion profile, used by the placement
// scorer when deciding whether a new definition belongs where it landed.
func (s *Store) PutProfile(ctx context.Context, p *graph.Profile) error {
	tokens, err := json.Marshal(p.NameTokens)
	if err != nil {
		return fmt.Errorf("store: marshal name tokens: %w", err)
	}
	script := `?[module, contained, cohesion_in, cohesion_out, name_tokens] <- $rows
		:put keel_profile { module => contained, cohesion_in, cohesion_out, name_tokens }`
	rows := [][]any{{p.Module, p.Contained, p.CohesionIn, p.CohesionOut, string(tokens)}}
	if _, err := s.execute(ctx, script, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("store: put profile: %w", err)
	}
	return nil
}

// GetProfile reads back a module's cohesion profile.
func (s *Store) GetProfile(ctx context.Context, module string) (*graph.Profile, bool, error) {
	rows, err := s.query(ctx, `?[contained, cohesion_in, cohesion_out, name_tokens] :=
		*keel_profile { module: $module, contained, cohesion_in, cohesion_out, name_tokens }`,
		map[string]any{"module": module})
	if err != nil {
		return nil, false, fmt.Errorf("store: get profile: %w", err)
	}
	if len(rows.Rows) == 0 {
		return nil, false, nil
	}
	row := rows.Rows[0]
	contained := toStringSlice(row[0])
	cohesionIn, _ := row[1].(float64)
	cohesionOut, _ := row[2].(float64)
	tokensJSON, _ := row[3].(string)
	var tokens map[string]int
	if tokensJSON != "" {
		if err := json.Unmarshal([]byte(tokensJSON), &tokens); err != nil {
			return nil, false, fmt.Errorf("store: unmarshal name tokens: %w", err)
		}
	}
	return &graph.Profile{
		Module:      module,
		Contained:   contained,
		CohesionIn:  cohesionIn,
		CohesionOut: cohesionOut,
		NameTokens:  tokens,
	}, true, nil
}

func toStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if str, ok := r.(string); ok {
			out = append(out, str)
		}
	}
	return out
}
