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
	"encoding/json"
	"fmt"
	"time"

	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/store"
)

// DefaultBatchTimeoutSeconds is how long a batch window stays open with no
// compile activity before it auto-closes.
const DefaultBatchTimeoutSeconds = 60

const (
	batchOpenKey     = "batch:open"      // presence alone means "explicitly open"
	batchDeadlineKey = "batch:deadline"  // RFC3339 timestamp of the next auto-close
	batchDeferredKey = "batch:deferred"  // JSON-encoded []enforce.Violation
)

// BatchWindow defers the cosmetic half of the taxonomy (E002/E003/W001/W002)
// across a run of compiles so an agent mid-rewrite isn't handed the entire
// backlog after every single file; E001/E004/E005 always pass through
// immediately since those indicate a caller is actually broken right now.
// State is persisted through the session relation rather than kept
// in-memory, because the window spans separate `keel compile` invocations
// of the CLI, not a single long-running process: a persisted "when did we
// last make progress" marker survives between them where an in-memory
// field would not.
type BatchWindow struct {
	st             *store.Store
	timeoutSeconds int
}

// NewBatchWindow returns a window backed by st. timeoutSeconds <= 0 falls
// back to DefaultBatchTimeoutSeconds.
func NewBatchWindow(st *store.Store, timeoutSeconds int) *BatchWindow {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultBatchTimeoutSeconds
	}
	return &BatchWindow{st: st, timeoutSeconds: timeoutSeconds}
}

// Begin explicitly opens the window. `keel compile --batch begin` calls it
// through Engine.BeginBatch; the compiles that follow defer through Process.
func (w *BatchWindow) Begin(ctx context.Context, now time.Time) error {
	if err := w.st.PutSession(ctx, batchOpenKey, []byte("1")); err != nil {
		return fmt.Errorf("backpressure: begin batch: %w", err)
	}
	return w.touch(ctx, now)
}

// End explicitly closes the window and returns every violation deferred
// while it was open, clearing the deferred queue.
func (w *BatchWindow) End(ctx context.Context) ([]enforce.Violation, error) {
	deferred, err := w.loadDeferred(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.st.DeleteSession(ctx, batchOpenKey); err != nil {
		return nil, fmt.Errorf("backpressure: end batch: %w", err)
	}
	if err := w.st.DeleteSession(ctx, batchDeadlineKey); err != nil {
		return nil, fmt.Errorf("backpressure: end batch: %w", err)
	}
	if err := w.st.DeleteSession(ctx, batchDeferredKey); err != nil {
		return nil, fmt.Errorf("backpressure: end batch: %w", err)
	}
	return deferred, nil
}

// Process is called once per compile with the violations that compile
// produced. When the window is closed, every violation passes through
// unchanged (and any previously deferred violations are flushed alongside
// them, covering the auto-close case). When the window is open and still
// within its inactivity timeout, only the error-code violations pass
// through; the rest are appended to the persisted deferred queue.
func (w *BatchWindow) Process(ctx context.Context, now time.Time, violations []enforce.Violation) ([]enforce.Violation, error) {
	open, err := w.isOpen(ctx, now)
	if err != nil {
		return nil, err
	}
	if !open {
		deferred, err := w.flushIfAny(ctx)
		if err != nil {
			return nil, err
		}
		return append(deferred, violations...), nil
	}

	if err := w.touch(ctx, now); err != nil {
		return nil, err
	}

	var immediate []enforce.Violation
	var deferred []enforce.Violation
	for _, v := range violations {
		if enforce.IsErrorCode(v.Code) {
			immediate = append(immediate, v)
		} else {
			deferred = append(deferred, v)
		}
	}
	if len(deferred) > 0 {
		if err := w.appendDeferred(ctx, deferred); err != nil {
			return nil, err
		}
	}
	return immediate, nil
}

// IsOpen reports whether the window is currently open (an explicit Begin
// was called and the inactivity timeout hasn't elapsed). A timed-out window
// is treated as closed without mutating state; Process performs the actual
// auto-close and flush.
func (w *BatchWindow) IsOpen(ctx context.Context, now time.Time) (bool, error) {
	return w.isOpen(ctx, now)
}

func (w *BatchWindow) isOpen(ctx context.Context, now time.Time) (bool, error) {
	_, ok, err := w.st.GetSession(ctx, batchOpenKey)
	if err != nil {
		return false, fmt.Errorf("backpressure: check batch open: %w", err)
	}
	if !ok {
		return false, nil
	}
	deadline, ok, err := w.loadDeadline(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return now.Before(deadline), nil
}

func (w *BatchWindow) touch(ctx context.Context, now time.Time) error {
	deadline := now.Add(time.Duration(w.timeoutSeconds) * time.Second)
	if err := w.st.PutSession(ctx, batchDeadlineKey, []byte(deadline.Format(time.RFC3339Nano))); err != nil {
		return fmt.Errorf("backpressure: touch batch: %w", err)
	}
	return nil
}

func (w *BatchWindow) loadDeadline(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := w.st.GetSession(ctx, batchDeadlineKey)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("backpressure: load batch deadline: %w", err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("backpressure: parse batch deadline: %w", err)
	}
	return t, true, nil
}

func (w *BatchWindow) loadDeferred(ctx context.Context) ([]enforce.Violation, error) {
	raw, ok, err := w.st.GetSession(ctx, batchDeferredKey)
	if err != nil {
		return nil, fmt.Errorf("backpressure: load deferred: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var vs []enforce.Violation
	if err := json.Unmarshal(raw, &vs); err != nil {
		return nil, fmt.Errorf("backpressure: decode deferred: %w", err)
	}
	return vs, nil
}

func (w *BatchWindow) appendDeferred(ctx context.Context, add []enforce.Violation) error {
	existing, err := w.loadDeferred(ctx)
	if err != nil {
		return err
	}
	existing = append(existing, add...)
	raw, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("backpressure: encode deferred: %w", err)
	}
	if err := w.st.PutSession(ctx, batchDeferredKey, raw); err != nil {
		return fmt.Errorf("backpressure: save deferred: %w", err)
	}
	return nil
}

// flushIfAny drains and clears the deferred queue and drops the open flag,
// used when the window has timed out but nobody called End.
func (w *BatchWindow) flushIfAny(ctx context.Context) ([]enforce.Violation, error) {
	deferred, err := w.loadDeferred(ctx)
	if err != nil {
		return nil, err
	}
	if len(deferred) == 0 {
		return nil, nil
	}
	if err := w.st.DeleteSession(ctx, batchDeferredKey); err != nil {
		return nil, fmt.Errorf("backpressure: flush deferred: %w", err)
	}
	if err := w.st.DeleteSession(ctx, batchOpenKey); err != nil {
		return nil, fmt.Errorf("backpressure: flush deferred: %w", err)
	}
	return deferred, nil
}
