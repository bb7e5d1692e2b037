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
)

// PutSession writes an opaque value under key in the keel_session relation,
// used for small pieces of cross-invocation state that don't warrant their
// own relation: the last map timestamp, circuit-breaker counters, and the
// batch window's open flag, deadline and deferred violations.
func (s *Store) PutSession(ctx context.Context, key string, value []byte) error {
	script := `?[key, value] <- $rows :put keel_session { key => value }`
	rows := [][]any{{key, value}}
	if _, err := s.execute(ctx, script, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("store: put session: %w", err)
	}
	return nil
}

// GetSession reads back a value previously written with PutSession.
func (s *Store) GetSession(ctx context.Context, key string) ([]byte, bool, error) {
	rows, err := s.query(ctx, `?[value] := *keel_session { key: $key, value }`, map[string]any{"key": key})
	if err != nil {
		return nil, false, fmt.Errorf("store: get session: %w", err)
	}
	if len(rows.Rows) == 0 {
		return nil, false, nil
	}
	switch v := rows.Rows[0][0].(type) {
	case []byte:
		return v, true, nil
	case string:
		return []byte(v), true, nil
	default:
		return nil, false, fmt.Errorf("store: session value for %q has unexpected type %T", key, v)
	}
}

// DeleteSession removes a key, used when a batch window closes or flushes
// and when a circuit-breaker counter is reset.
func (s *Store) DeleteSession(ctx context.Context, key string) error {
	script := `?[key] := *keel_session { key: $key } :rm keel_session { key }`
	if _, err := s.execute(ctx, script, map[string]any{"key": key}); err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	return nil
}

// FileGeneration returns the last-compiled generation number for file,
// or 0 if the file has never been compiled.
func (s *Store) FileGeneration(ctx context.Context, file string) (int, error) {
	rows, err := s.query(ctx, `?[generation] := *keel_file_generation { file: $file, generation }`, map[string]any{"file": file})
	if err != nil {
		return 0, fmt.Errorf("store: file generation: %w", err)
	}
	if len(rows.Rows) == 0 {
		return 0, nil
	}
	return asInt(rows.Rows[0][0]), nil
}

// BumpFileGeneration advances file's generation counter by one and returns
// the new value. Every recompile of a file invalidates resolution-cache
// entries keyed to its previous generation.
func (s *Store) BumpFileGeneration(ctx context.Context, file string) (int, error) {
	current, err := s.FileGeneration(ctx, file)
	if err != nil {
		return 0, err
	}
	next := current + 1
	script := `?[file, generation] <- $rows :put keel_file_generation { file => generation }`
	rows := [][]any{{file, next}}
	if _, err := s.execute(ctx, script, map[string]any{"rows": rows}); err != nil {
		return 0, fmt.Errorf("store: bump file generation: %w", err)
	}
	return next, nil
}
