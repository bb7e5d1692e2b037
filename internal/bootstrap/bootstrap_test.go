// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitProject_CreatesLayout(t *testing.T) {
	root := t.TempDir()

	info, err := InitProject(ProjectConfig{Root: root, Engine: "mem"}, nil)
	require.NoError(t, err)
	require.Equal(t, root, info.Root)

	require.FileExists(t, ConfigPath(root))
	require.FileExists(t, IgnorePath(root))
	require.FileExists(t, ManifestPath(root))
	require.True(t, IsInitialized(root))
}

func TestInitProject_IdempotentPreservesEdits(t *testing.T) {
	root := t.TempDir()
	_, err := InitProject(ProjectConfig{Root: root, Engine: "mem"}, nil)
	require.NoError(t, err)

	custom := []byte("languages: [go]\n")
	require.NoError(t, os.WriteFile(ConfigPath(root), custom, 0o644))

	_, err = InitProject(ProjectConfig{Root: root, Engine: "mem"}, nil)
	require.NoError(t, err)

	got, err := os.ReadFile(ConfigPath(root))
	require.NoError(t, err)
	require.Equal(t, custom, got)
}

func TestOpenProject_FailsWhenUninitialized(t *testing.T) {
	root := t.TempDir()
	_, err := OpenProject(ProjectConfig{Root: root, Engine: "mem"}, nil)
	require.Error(t, err)
}

func TestOpenProject_SucceedsAfterInit(t *testing.T) {
	root := t.TempDir()
	_, err := InitProject(ProjectConfig{Root: root, Engine: "mem"}, nil)
	require.NoError(t, err)

	st, err := OpenProject(ProjectConfig{Root: root, Engine: "mem"}, nil)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestDeinitProject_RemovesKeelDir(t *testing.T) {
	root := t.TempDir()
	_, err := InitProject(ProjectConfig{Root: root, Engine: "mem"}, nil)
	require.NoError(t, err)

	require.NoError(t, DeinitProject(ProjectConfig{Root: root}, nil))
	_, err = os.Stat(filepath.Join(root, DirName))
	require.True(t, os.IsNotExist(err))
	require.False(t, IsInitialized(root))
}
