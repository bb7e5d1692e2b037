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

	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/store"
)

const (
	// DefaultMaxRetries is the consecutive attempt at which the circuit
	// breaker trips: the same (code, hash) pair surfaces as an ERROR on the
	// attempts before it and is downgraded to WARNING from that attempt on.
	DefaultMaxRetries = 3

	circuitStateKeyPrefix = "circuit:state:"
	circuitTrackedKey     = "circuit:tracked"
)

type circuitState struct {
	Code     string `json:"code"`
	Attempts int    `json:"attempts"`
}

// CircuitBreaker counts how many consecutive compiles have reported the same
// (code, hash) pair and reshapes the violation once that count grows large,
// so a code-generation agent looping on a fix it can't actually make doesn't
// keep receiving the exact same ERROR forever. State survives across process
// invocations by persisting through the session relation rather than
// living only in process memory.
type CircuitBreaker struct {
	st         *store.Store
	maxRetries int
}

// NewCircuitBreaker returns a breaker backed by st. maxRetries <= 0 falls
// back to DefaultMaxRetries.
func NewCircuitBreaker(st *store.Store, maxRetries int) *CircuitBreaker {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &CircuitBreaker{st: st, maxRetries: maxRetries}
}

// Apply increments the attempt counter for every error-code violation in
// violations, appends a widen-the-search instruction to the fix hint on the
// second attempt, and demotes the violation to WARNING (appending an explain
// hint) once maxRetries is reached.
// Hashes that no longer carry an error-code violation this round (the
// underlying issue was fixed, or a different code now applies) have their
// counters reset, matching the "resets on success or on error-code change"
// rule.
func (b *CircuitBreaker) Apply(ctx context.Context, violations []enforce.Violation) ([]enforce.Violation, error) {
	tracked, err := b.loadTracked(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(violations))
	out := make([]enforce.Violation, len(violations))
	copy(out, violations)

	for i, v := range out {
		if !enforce.IsErrorCode(v.Code) || v.Hash == "" {
			continue
		}
		seen[v.Hash] = true

		st, err := b.loadState(ctx, v.Hash)
		if err != nil {
			return nil, err
		}
		attempts := 1
		if st != nil && st.Code == string(v.Code) {
			attempts = st.Attempts + 1
		}
		if err := b.saveState(ctx, v.Hash, circuitState{Code: string(v.Code), Attempts: attempts}); err != nil {
			return nil, err
		}

		switch {
		case attempts >= b.maxRetries:
			out[i].Severity = enforce.SeverityWarning
			out[i].FixHint = out[i].FixHint + fmt.Sprintf(" (attempt %d/%d exhausted retries; run `keel explain %s %s` for the full evidence chain before trying again)", attempts, b.maxRetries, v.Code, v.Hash)
		case attempts == 2:
			out[i].FixHint = out[i].FixHint + " (second attempt: widen the search to the target's whole neighborhood, not just the single call site)"
		}
	}

	// Reset counters for anything that was tracked last round but didn't
	// reappear this round: the agent either fixed it or the code changed.
	for _, h := range tracked {
		if !seen[h] {
			if err := b.st.DeleteSession(ctx, circuitStateKeyPrefix+h); err != nil {
				return nil, err
			}
		}
	}

	newTracked := make([]string, 0, len(seen))
	for h := range seen {
		newTracked = append(newTracked, h)
	}
	if err := b.saveTracked(ctx, newTracked); err != nil {
		return nil, err
	}

	return out, nil
}

func (b *CircuitBreaker) loadState(ctx context.Context, hash string) (*circuitState, error) {
	raw, ok, err := b.st.GetSession(ctx, circuitStateKeyPrefix+hash)
	if err != nil {
		return nil, fmt.Errorf("backpressure: load circuit state: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var s circuitState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("backpressure: decode circuit state: %w", err)
	}
	return &s, nil
}

func (b *CircuitBreaker) saveState(ctx context.Context, hash string, s circuitState) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("backpressure: encode circuit state: %w", err)
	}
	if err := b.st.PutSession(ctx, circuitStateKeyPrefix+hash, raw); err != nil {
		return fmt.Errorf("backpressure: save circuit state: %w", err)
	}
	return nil
}

func (b *CircuitBreaker) loadTracked(ctx context.Context) ([]string, error) {
	raw, ok, err := b.st.GetSession(ctx, circuitTrackedKey)
	if err != nil {
		return nil, fmt.Errorf("backpressure: load tracked hashes: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var hashes []string
	if err := json.Unmarshal(raw, &hashes); err != nil {
		return nil, fmt.Errorf("backpressure: decode tracked hashes: %w", err)
	}
	return hashes, nil
}

func (b *CircuitBreaker) saveTracked(ctx context.Context, hashes []string) error {
	raw, err := json.Marshal(hashes)
	if err != nil {
		return fmt.Errorf("backpressure: encode tracked hashes: %w", err)
	}
	if err := b.st.PutSession(ctx, circuitTrackedKey, raw); err != nil {
		return fmt.Errorf("backpressure: save tracked hashes: %w", err)
	}
	return nil
}
