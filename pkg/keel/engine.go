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

// Package keel is the in-process facade gluing the mapper, incremental
// compiler, enforcement engine, backpressure layer, and explain operation
// together. Both cmd/keel and the serve transports drive the engine
// through this one implementation.
package keel

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kraklabs/keel/internal/bootstrap"
	"github.com/kraklabs/keel/internal/config"
	"github.com/kraklabs/keel/internal/metrics"
	"github.com/kraklabs/keel/pkg/backpressure"
	"github.com/kraklabs/keel/pkg/compile"
	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/explain"
	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/mapper"
	"github.com/kraklabs/keel/pkg/parse"
	"github.com/kraklabs/keel/pkg/store"
	"github.com/kraklabs/keel/pkg/walk"
)

const lastMapSessionKey = "last_map_at"

// Engine is a single project's open store plus every component that
// operates on it.
type Engine struct {
	Root   string
	Config *config.Config
	store  *store.Store
	logger *slog.Logger

	mapper   *mapper.Mapper
	compiler *compile.Compiler
}

// Open opens an already-initialized project's engine: its store, loaded
// config.yaml, and every wired component. Fails if the project hasn't been
// through InitProject (run 'keel init' first).
func Open(root, engine string, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := bootstrap.OpenProject(bootstrap.ProjectConfig{Root: root, Engine: engine}, logger)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(bootstrap.ConfigPath(root))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	p := parse.NewTreeSitterParser(logger)
	return &Engine{
		Root:     root,
		Config:   cfg,
		store:    st,
		logger:   logger,
		mapper:   mapper.New(logger, p, st),
		compiler: compile.New(logger, p, st),
	}, nil
}

// Close releases the engine's store handle.
func (e *Engine) Close() error { return e.store.Close() }

// Store exposes the underlying graph store, for callers (serve
// transports, tests) that need direct read access.
func (e *Engine) Store() *store.Store { return e.store }

// Map builds the structural graph for the whole project from scratch.
func (e *Engine) Map(ctx context.Context) (*mapper.Result, error) {
	timer := metrics.Timer(metrics.WalkDuration())
	defer timer()

	opts := walk.Options{ExcludeGlobs: loadIgnoreGlobs(bootstrap.IgnorePath(e.Root))}
	result, err := e.mapper.Map(ctx, e.Root, opts)
	if err != nil {
		return nil, fmt.Errorf("keel: map: %w", err)
	}

	metrics.RecordFilesWalked(result.FilesProcessed)
	metrics.RecordNodesAdded(result.Definitions)
	if result.ParseErrors > 0 {
		for i := 0; i < result.ParseErrors; i++ {
			metrics.RecordParseError()
		}
	}

	if err := e.store.PutSession(ctx, lastMapSessionKey, []byte(nowRFC3339())); err != nil {
		e.logger.Warn("keel.map.session_write_failed", "error", err)
	}

	return result, nil
}

// CompileResult is the outcome of one Compile call: the raw diff plus the
// fully policy-applied violation list (config severity overrides, circuit
// breaker, batch deferral, suppression already applied).
type CompileResult struct {
	Diff       *compile.Diff
	Violations []enforce.Violation
}

// Compile re-parses changedFiles, diffs them against the store, evaluates
// the violation taxonomy, and runs the backpressure layer (circuit
// breaker, batch window, suppression) over the result. oneShotSuppress are
// one-invocation suppression flags (bare code or "CODE:hash").
func (e *Engine) Compile(ctx context.Context, changedFiles []string, oneShotSuppress []string) (*CompileResult, error) {
	timer := metrics.Timer(metrics.CompileDuration())
	defer timer()
	metrics.RecordCompileRun()

	diff, err := e.compiler.Compile(ctx, e.Root, changedFiles)
	if err != nil {
		return nil, fmt.Errorf("keel: compile: %w", err)
	}
	metrics.RecordEdgeResolved()

	violations, err := enforce.Evaluate(ctx, diff, e.store, enforce.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("keel: evaluate: %w", err)
	}

	violations = applyConfigPolicy(violations, diff, e.Config)

	now := time.Now()
	batchWindow := backpressure.NewBatchWindow(e.store, e.Config.Batch.TimeoutSeconds)
	batchOpen, err := batchWindow.IsOpen(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("keel: batch window: %w", err)
	}
	// The circuit breaker is paused while a batch window is open: failures
	// inside a batch do not advance its counters.
	if !batchOpen {
		breaker := backpressure.NewCircuitBreaker(e.store, e.Config.CircuitBreaker.MaxRetries)
		violations, err = breaker.Apply(ctx, violations)
		if err != nil {
			return nil, fmt.Errorf("keel: circuit breaker: %w", err)
		}
	}

	violations, err = batchWindow.Process(ctx, now, violations)
	if err != nil {
		return nil, fmt.Errorf("keel: batch window: %w", err)
	}

	allNodes, err := e.store.AllNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("keel: load nodes for suppression: %w", err)
	}
	persistent, err := resolveSuppressEntries(ctx, e.store, e.Config.Suppress)
	if err != nil {
		return nil, fmt.Errorf("keel: resolve suppress entries: %w", err)
	}
	suppressor := backpressure.NewSuppressor(allNodes, persistent, oneShotSuppress)
	violations = suppressor.Apply(violations)

	for _, v := range violations {
		metrics.RecordViolation(string(v.Code))
		if v.Severity == enforce.SeverityWarning && enforce.IsErrorCode(v.Code) {
			metrics.RecordCircuitDowngrade()
		}
	}

	return &CompileResult{Diff: diff, Violations: violations}, nil
}

// BeginBatch explicitly opens the backpressure batch window, so every
// compile until the matching EndBatch defers its cosmetic violations
// instead of reporting them one file at a time.
func (e *Engine) BeginBatch(ctx context.Context) error {
	batchWindow := backpressure.NewBatchWindow(e.store, e.Config.Batch.TimeoutSeconds)
	return batchWindow.Begin(ctx, time.Now())
}

// EndBatch closes the batch window and returns every violation that was
// deferred while it was open.
func (e *Engine) EndBatch(ctx context.Context) ([]enforce.Violation, error) {
	batchWindow := backpressure.NewBatchWindow(e.store, e.Config.Batch.TimeoutSeconds)
	return batchWindow.End(ctx)
}

// ChangedSince lists every file added, modified, deleted, or touched by a
// rename between baseSHA and headSHA ("" defaults to HEAD), for the
// "compile since a commit" convenience path: a caller that doesn't already
// know which files moved can hand the result straight to Compile instead of
// tracking changed paths itself.
func (e *Engine) ChangedSince(baseSHA, headSHA string) ([]string, error) {
	dd := compile.NewDeltaDetector(e.Root, e.logger)
	if !dd.IsGitRepository() {
		return nil, fmt.Errorf("keel: %s is not a git repository", e.Root)
	}
	delta, err := dd.Detect(baseSHA, headSHA)
	if err != nil {
		return nil, fmt.Errorf("keel: changed since: %w", err)
	}
	files := append(delta.Changed(), delta.Deleted...)
	sort.Strings(files)
	return files, nil
}

// Discover lists indexed nodes whose FQN contains query (case-sensitive
// substring), optionally restricted to kind ("" matches every kind).
func (e *Engine) Discover(ctx context.Context, query string, kind graph.Kind) ([]*graph.Node, error) {
	nodes, err := e.store.AllNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("keel: discover: %w", err)
	}
	var out []*graph.Node
	for _, n := range nodes {
		if kind != "" && n.Kind != kind {
			continue
		}
		if query != "" && !strings.Contains(n.FQN, query) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Where locates the node identified by hash.
func (e *Engine) Where(ctx context.Context, hash string) (*graph.Node, error) {
	n, ok, err := e.store.LookupHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("keel: where: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("keel: no node found for hash %q", hash)
	}
	return n, nil
}

// Explain reconstructs the resolution-chain evidence behind a violation
// code raised against hash.
func (e *Engine) Explain(ctx context.Context, code, hash string) (*explain.ResolutionChain, error) {
	return explain.Explain(ctx, e.store, e.Root, code, hash)
}

// Stats reports node/edge counts, a per-kind breakdown, and the last
// successful Map's timestamp.
type Stats struct {
	TotalNodes int
	TotalEdges int
	ByKind     map[graph.Kind]int
	ByLanguage map[string]int
	LastMapAt  string
}

// Stats reports current graph size and composition.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	nodes, err := e.store.AllNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("keel: stats: %w", err)
	}
	s := &Stats{ByKind: map[graph.Kind]int{}, ByLanguage: map[string]int{}}
	s.TotalNodes = len(nodes)
	for _, n := range nodes {
		s.ByKind[n.Kind]++
		s.ByLanguage[n.Language]++
		edges, err := e.store.CalleesOf(ctx, n.ID)
		if err != nil {
			return nil, fmt.Errorf("keel: stats: callees of %s: %w", n.ID, err)
		}
		s.TotalEdges += len(edges)
	}
	if raw, ok, err := e.store.GetSession(ctx, lastMapSessionKey); err == nil && ok {
		s.LastMapAt = string(raw)
	}
	return s, nil
}

// Deinit tears the project down: removes .keel/ entirely. The caller
// (cmd/keel) is responsible for confirming with the user first.
func Deinit(root string, logger *slog.Logger) error {
	return bootstrap.DeinitProject(bootstrap.ProjectConfig{Root: root}, logger)
}

