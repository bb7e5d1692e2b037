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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_PartialConfigBackfillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("languages: [go, python]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"go", "python"}, cfg.Languages)
	require.Equal(t, ModeError, cfg.Enforce.TypeHints)
	require.Equal(t, 3, cfg.CircuitBreaker.MaxRetries)
	require.Equal(t, 60, cfg.Batch.TimeoutSeconds)
}

func TestLoad_RejectsUnsupportedLanguage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("languages: [cobol]\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsSuppressEntryWithoutReason(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := "suppress:\n  - path: pkg/legacy/old.go\n    symbol: doThing\n    codes: [E002]\n    reason: \"\"\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestResolve_LongestPrefixOverrideWins(t *testing.T) {
	cfg := Default()
	cfg.Overrides = map[string]Enforce{
		"pkg/":        {TypeHints: ModeWarning},
		"pkg/legacy/": {TypeHints: ModeOff},
	}

	got := cfg.Resolve("pkg/legacy/old.go")
	require.Equal(t, ModeOff, got.TypeHints)

	got = cfg.Resolve("pkg/fresh/new.go")
	require.Equal(t, ModeWarning, got.TypeHints)

	got = cfg.Resolve("cmd/main.go")
	require.Equal(t, ModeError, got.TypeHints)
}

func TestResolve_OverrideMergesOverBase(t *testing.T) {
	cfg := Default()
	cfg.Overrides = map[string]Enforce{
		"pkg/legacy/": {TypeHints: ModeOff},
	}

	got := cfg.Resolve("pkg/legacy/old.go")
	require.Equal(t, ModeOff, got.TypeHints)
	require.Equal(t, ModeError, got.Docstrings)
}
