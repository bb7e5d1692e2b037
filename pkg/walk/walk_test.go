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

package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestWalk_FindsSupportedLanguages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "lib/util.py", "def f():\n    pass\n")
	writeFile(t, root, "README.md", "not code\n")

	res, err := Walk(root, Options{})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	require.Equal(t, "lib/util.py", res.Files[0].Path)
	require.Equal(t, "main.go", res.Files[1].Path)
	require.Equal(t, 1, res.SkipReasons["unsupported_language"])
}

func TestWalk_ExcludesVendorAndNodeModules(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "vendor/thing.go", "package vendor\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")
	writeFile(t, root, "src/app.ts", "export const x = 1\n")

	res, err := Walk(root, Options{})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	require.Equal(t, "src/app.ts", res.Files[0].Path)
}

func TestWalk_RespectsKeelignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".keelignore", "generated/**\n")
	writeFile(t, root, "generated/gen.go", "package generated\n")
	writeFile(t, root, "app.go", "package app\n")

	res, err := Walk(root, Options{})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	require.Equal(t, "app.go", res.Files[0].Path)
}

func TestWalk_SkipsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	full := filepath.Join(root, "blob.go")
	require.NoError(t, os.WriteFile(full, []byte("package x\x00binary"), 0o644))

	res, err := Walk(root, Options{})
	require.NoError(t, err)
	require.Len(t, res.Files, 0)
	require.Equal(t, 1, res.SkipReasons["binary"])
}
