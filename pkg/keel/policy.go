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

package keel

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kraklabs/keel/internal/config"
	"github.com/kraklabs/keel/pkg/backpressure"
	"github.com/kraklabs/keel/pkg/compile"
	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/store"
)

// applyConfigPolicy resolves each violation's effective severity from
// config.yaml: E001/E004/E005 (broken callers, removed functions, arity
// mismatches) always carry the taxonomy's default severity: compatibility
// breaks aren't a matter of local style a project can opt out of. E002,
// E003, W001, and W002 are configurable, with type_hints and
// docstrings distinguishing freshly added code (d.Kind == ChangeAdded)
// from pre-existing code a project is newly adopting keel's rules on
// (SignatureChanged/BodyChanged), so retrofitting enforcement onto an
// established codebase doesn't immediately flood it with errors on code
// nobody touched.
func applyConfigPolicy(violations []enforce.Violation, diff *compile.Diff, cfg *config.Config) []enforce.Violation {
	existingByHash := make(map[string]bool, len(diff.NodeDiffs))
	for _, d := range diff.NodeDiffs {
		if d.Node == nil {
			continue
		}
		existingByHash[d.Node.ID] = d.Kind != compile.ChangeAdded
	}

	out := make([]enforce.Violation, 0, len(violations))
	for _, v := range violations {
		enf := cfg.Resolve(v.File)
		mode, warnOff := modeFor(v.Code, enf, existingByHash[v.Hash])
		switch {
		case mode == config.ModeOff, warnOff == config.WarnOffOff:
			continue
		case mode == config.ModeWarning:
			v.Severity = enforce.SeverityWarning
		}
		out = append(out, v)
	}
	return out
}

// modeFor returns the Mode (for E002/E003) or WarnOffMode (for W001/W002)
// governing code's severity; the code's default severity passes through
// unfiltered for every other violation code.
func modeFor(code enforce.Code, enf config.Enforce, existing bool) (config.Mode, config.WarnOffMode) {
	switch code {
	case enforce.CodeMissingTypeHints:
		if existing {
			return enf.TypeHintsExisting, ""
		}
		return enf.TypeHints, ""
	case enforce.CodeMissingDocstring:
		if existing {
			return enf.DocstringsExisting, ""
		}
		return enf.Docstrings, ""
	case enforce.CodePlacement:
		return "", enf.Placement
	case enforce.CodeDuplicateName:
		return "", enf.DuplicateDetection
	default:
		return "", ""
	}
}

// resolveSuppressEntries turns config.yaml's path:symbol-keyed suppress
// entries into the hash-keyed form backpressure.Suppressor consumes,
// since config.yaml is authored before a symbol necessarily has a stable
// hash on disk, but the suppressor operates on resolved hashes at compile
// time.
func resolveSuppressEntries(ctx context.Context, st *store.Store, entries []config.SuppressEntry) ([]backpressure.SuppressEntry, error) {
	out := make([]backpressure.SuppressEntry, 0, len(entries))
	for _, e := range entries {
		nodes, err := st.Locate(ctx, e.Path)
		if err != nil {
			return nil, fmt.Errorf("keel: locate %s for suppress entry: %w", e.Path, err)
		}
		var hash string
		for _, n := range nodes {
			if n.FQN == e.Symbol {
				hash = n.ID
				break
			}
		}
		if hash == "" {
			// Symbol not indexed: an empty Hash would suppress the codes
			// project-wide, so the entry suppresses nothing instead.
			continue
		}
		for _, code := range e.Codes {
			out = append(out, backpressure.SuppressEntry{
				Code: enforce.Code(code), Hash: hash, Reason: e.Reason,
			})
		}
	}
	return out, nil
}

// loadIgnoreGlobs reads a .keelignore (gitignore-compatible: one glob per
// line, blank lines and #-comments skipped) into walk.Options' exclude
// list. A missing file means no additional excludes.
func loadIgnoreGlobs(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	var globs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		globs = append(globs, line)
	}
	return globs
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

// DecideExitCode implements the exit-code contract: ExitViolations (1)
// when any violation is an ERROR, or when strict is set and any violation
// is a WARNING; ExitSuccess (0) otherwise. Structural failures never reach
// here: those propagate as an error and become ExitInternal at the
// cmd/keel boundary. Violations are data, not failures.
func DecideExitCode(violations []enforce.Violation, strict bool) int {
	for _, v := range violations {
		if v.Severity == enforce.SeverityError {
			return 1
		}
		if strict && v.Severity == enforce.SeverityWarning {
			return 1
		}
	}
	return 0
}
