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

package compile

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available on PATH")
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
}

func commitSHA(t *testing.T, dir string) string {
	t.Helper()
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	return strings.TrimSpace(string(out))
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "test")
	return dir
}

func TestDeltaDetector_IsGitRepository(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	require.True(t, NewDeltaDetector(dir, nil).IsGitRepository())

	plain := t.TempDir()
	require.False(t, NewDeltaDetector(plain, nil).IsGitRepository())
}

func TestDeltaDetector_DetectsAddedModifiedAndDeleted(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package a\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "base")
	base := commitSHA(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "b.go")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.go"), []byte("package a\n\nfunc C() {}\n"), 0o644))
	runGit(t, dir, "add", "-A")
	runGit(t, dir, "commit", "-q", "-m", "second")

	dd := NewDeltaDetector(dir, nil)
	delta, err := dd.Detect(base, "HEAD")
	require.NoError(t, err)

	require.Equal(t, []string{"c.go"}, delta.Added)
	require.Equal(t, []string{"a.go"}, delta.Modified)
	require.Equal(t, []string{"b.go"}, delta.Deleted)
	require.ElementsMatch(t, []string{"a.go", "c.go"}, delta.Changed())
}

func TestDeltaDetector_EmptyBaseDiffsAgainstEmptyTree(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "base")

	dd := NewDeltaDetector(dir, nil)
	delta, err := dd.Detect("", "HEAD")
	require.NoError(t, err)
	require.Equal(t, []string{"a.go"}, delta.Added)
}
