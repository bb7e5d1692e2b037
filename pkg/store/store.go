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
	"os"
	"sync"

	cozo "github.com/cozodb/cozo-lib-go"
)

// Config configures the embedded store.
type Config struct {
	// DataDir is where CozoDB persists its data, typically
	// <project-root>/.keel/db.
	DataDir string

	// Engine is the CozoDB storage engine: "rocksdb", "sqlite", or "mem".
	// Defaults to "rocksdb".
	Engine string
}

// Store is the embedded, transactional graph store. Single-writer,
// concurrent-reader discipline is enforced with a sync.RWMutex over the
// CozoDB handle.
type Store struct {
	db     cozo.CozoDB
	mu     sync.RWMutex
	closed bool
}

// Open creates (or reopens) the store at cfg.DataDir, ensuring the schema
// exists.
func Open(cfg Config) (*Store, error) {
	if cfg.Engine == "" {
		cfg.Engine = "rocksdb"
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("store: DataDir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	db, err := cozo.New(cfg.Engine, cfg.DataDir, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open cozodb: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_, _ = s.db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_, err := s.db.Close()
	return err
}

func (s *Store) query(ctx context.Context, script string, params map[string]any) (cozo.NamedRows, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return cozo.NamedRows{}, fmt.Errorf("store: closed")
	}
	select {
	case <-ctx.Done():
		return cozo.NamedRows{}, ctx.Err()
	default:
	}
	return s.db.RunReadOnly(script, params)
}

func (s *Store) execute(ctx context.Context, script string, params map[string]any) (cozo.NamedRows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return cozo.NamedRows{}, fmt.Errorf("store: closed")
	}
	select {
	case <-ctx.Done():
		return cozo.NamedRows{}, ctx.Err()
	default:
	}
	return s.db.Run(script, params)
}

var tableSchemas = []string{
	`:create keel_node { id: String => kind: String, fqn: String, file: String, start_line: Int, end_line: Int, start_col: Int, end_col: Int, signature: String, doc_first_line: String, has_doc: Bool, type_hints_present: Bool, is_public: Bool, language: String, generation: Int, suppress_code: String, suppress_reason: String }`,
	`:create keel_edge { id: String => kind: String, src_file: String, src_line: Int, src_node_id: String, target_id: String, unresolved_target: String, tier: String, confidence: Float, type_only: Bool, ambiguous: Bool, generation: Int }`,
	`:create keel_profile { module: String => contained: [String], cohesion_in: Float, cohesion_out: Float, name_tokens: String }`,
	`:create keel_resolution_cache { file: String, site_line: Int => target_id: String, tier: String, confidence: Float, generation: Int }`,
	`:create keel_session { key: String => value: Bytes }`,
	`:create keel_file_generation { file: String => generation: Int }`,
}

// ensureSchema creates every relation if missing, idempotently: a failed
// :create (table already exists) is ignored rather than treated as fatal.
func (s *Store) ensureSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range tableSchemas {
		if _, err := s.db.Run(stmt, nil); err != nil {
			continue
		}
	}
	return nil
}
