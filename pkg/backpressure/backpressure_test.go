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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.Config{DataDir: t.TempDir(), Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCircuitBreaker_DowngradesOnThirdAttempt(t *testing.T) {
	st := newStore(t)
	cb := NewCircuitBreaker(st, 3)
	ctx := context.Background()

	violation := func() enforce.Violation {
		return enforce.Violation{
			Code: enforce.CodeFunctionRemoved, Severity: enforce.SeverityError,
			File: "auth.go", Hash: "aaaaaaaaaaa", FixHint: "update the call site",
		}
	}

	// Attempt 1: passes through untouched.
	out, err := cb.Apply(ctx, []enforce.Violation{violation()})
	require.NoError(t, err)
	require.Equal(t, enforce.SeverityError, out[0].Severity)
	require.Equal(t, "update the call site", out[0].FixHint)

	// Attempt 2: still an error, but the fix hint grows a widen-search
	// instruction.
	out, err = cb.Apply(ctx, []enforce.Violation{violation()})
	require.NoError(t, err)
	require.Equal(t, enforce.SeverityError, out[0].Severity)
	require.Contains(t, out[0].FixHint, "widen the search")

	// Attempt 3 (== maxRetries): downgraded to WARNING with an explain hint.
	out, err = cb.Apply(ctx, []enforce.Violation{violation()})
	require.NoError(t, err)
	require.Equal(t, enforce.SeverityWarning, out[0].Severity)
	require.Contains(t, out[0].FixHint, "keel explain")
}

func TestCircuitBreaker_ResetsOnSuccess(t *testing.T) {
	st := newStore(t)
	cb := NewCircuitBreaker(st, 3)
	ctx := context.Background()

	v := enforce.Violation{Code: enforce.CodeArityMismatch, Hash: "bbbbbbbbbbb"}
	_, err := cb.Apply(ctx, []enforce.Violation{v})
	require.NoError(t, err)
	_, err = cb.Apply(ctx, []enforce.Violation{v})
	require.NoError(t, err)

	// Next compile no longer reports this hash at all: the fix worked.
	_, err = cb.Apply(ctx, nil)
	require.NoError(t, err)

	out, err := cb.Apply(ctx, []enforce.Violation{v})
	require.NoError(t, err)
	require.Equal(t, enforce.SeverityError, out[0].Severity)
	require.NotContains(t, out[0].FixHint, "widen the search")
}

func TestCircuitBreaker_ResetsOnErrorCodeChange(t *testing.T) {
	st := newStore(t)
	cb := NewCircuitBreaker(st, 3)
	ctx := context.Background()

	hash := "ccccccccccc"
	_, err := cb.Apply(ctx, []enforce.Violation{{Code: enforce.CodeArityMismatch, Hash: hash}})
	require.NoError(t, err)
	_, err = cb.Apply(ctx, []enforce.Violation{{Code: enforce.CodeArityMismatch, Hash: hash}})
	require.NoError(t, err)

	// Same hash, different code: treated as a fresh attempt 1.
	out, err := cb.Apply(ctx, []enforce.Violation{{Code: enforce.CodeFunctionRemoved, Hash: hash, FixHint: "x"}})
	require.NoError(t, err)
	require.Equal(t, enforce.SeverityError, out[0].Severity)
	require.Equal(t, "x", out[0].FixHint)
}

func TestBatchWindow_DefersCosmeticViolations(t *testing.T) {
	st := newStore(t)
	w := NewBatchWindow(st, 60)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, w.Begin(ctx, now))

	violations := []enforce.Violation{
		{Code: enforce.CodeFunctionRemoved, File: "a.go"},
		{Code: enforce.CodeMissingDocstring, File: "a.go"},
		{Code: enforce.CodePlacement, File: "b.go"},
	}
	immediate, err := w.Process(ctx, now, violations)
	require.NoError(t, err)
	require.Len(t, immediate, 1)
	require.Equal(t, enforce.CodeFunctionRemoved, immediate[0].Code)

	open, err := w.IsOpen(ctx, now.Add(30*time.Second))
	require.NoError(t, err)
	require.True(t, open)

	flushed, err := w.End(ctx)
	require.NoError(t, err)
	require.Len(t, flushed, 2)
}

func TestBatchWindow_AutoClosesAfterInactivity(t *testing.T) {
	st := newStore(t)
	w := NewBatchWindow(st, 60)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, w.Begin(ctx, now))
	_, err := w.Process(ctx, now, []enforce.Violation{{Code: enforce.CodeMissingDocstring, File: "a.go"}})
	require.NoError(t, err)

	later := now.Add(2 * time.Minute)
	open, err := w.IsOpen(ctx, later)
	require.NoError(t, err)
	require.False(t, open)

	// The next compile after the timeout flushes the deferred backlog
	// alongside its own violations, through the normal pipeline.
	out, err := w.Process(ctx, later, []enforce.Violation{{Code: enforce.CodeArityMismatch, File: "b.go"}})
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestSuppressor_InlineDirectiveEmitsS001(t *testing.T) {
	nodes := []*graph.Node{
		{ID: "n1", FQN: "pkg.Foo", SuppressCode: "E002", SuppressReason: "legacy signature, migration tracked in TICKET-42"},
	}
	s := NewSuppressor(nodes, nil, nil)

	out := s.Apply([]enforce.Violation{
		{Code: enforce.CodeMissingTypeHints, Hash: "n1", Message: "pkg.Foo is missing type annotations"},
	})
	require.Len(t, out, 1)
	require.Equal(t, enforce.CodeSuppressed, out[0].Code)
	require.Equal(t, enforce.SeverityInfo, out[0].Severity)
	require.True(t, out[0].Suppressed)
	require.Contains(t, out[0].Message, "TICKET-42")
}

func TestSuppressor_PersistentEntryRequiresReason(t *testing.T) {
	err := ValidateSuppressEntries([]SuppressEntry{{Code: enforce.CodePlacement, Reason: ""}})
	require.Error(t, err)

	err = ValidateSuppressEntries([]SuppressEntry{{Code: enforce.CodePlacement, Reason: "intentional, utils module"}})
	require.NoError(t, err)
}

func TestSuppressor_OneShotFlag(t *testing.T) {
	s := NewSuppressor(nil, nil, []string{"W002"})
	out := s.Apply([]enforce.Violation{{Code: enforce.CodeDuplicateName, Hash: "n2"}})
	require.Len(t, out, 1)
	require.Equal(t, enforce.CodeSuppressed, out[0].Code)
}

func TestSuppressor_UnmatchedViolationPassesThrough(t *testing.T) {
	s := NewSuppressor(nil, nil, nil)
	out := s.Apply([]enforce.Violation{{Code: enforce.CodeArityMismatch, Hash: "n3"}})
	require.Len(t, out, 1)
	require.Equal(t, enforce.CodeArityMismatch, out[0].Code)
}
