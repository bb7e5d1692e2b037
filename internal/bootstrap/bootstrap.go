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

// Package bootstrap implements a project's init/deinit lifecycle: creating
// and tearing down the .keel/ directory (embedded database, manifest,
// config, ignore file, ephemeral session file) under a project root.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/keel/pkg/store"
)

// DirName is the project-root subdirectory every keel project lives under.
const DirName = ".keel"

const (
	dbSubdir     = "db"
	manifestFile = "manifest.md"
	configFile   = "config.yaml"
	ignoreFile   = ".keelignore"
	sessionFile  = "session.json"
)

const defaultIgnore = `node_modules/
.git/
vendor/
__pycache__/
target/
.venv/
dist/
build/
`

const defaultConfig = `languages: [go, typescript, javascript, python, rust]
enforce:
  type_hints: error
  type_hints_existing: warning
  docstrings: error
  docstrings_existing: warning
  placement: warning
  duplicate_detection: warning
circuit_breaker:
  max_retries: 3
  auto_downgrade: true
batch:
  timeout_seconds: 60
`

const manifestHeader = `# keel project manifest

This file is regenerated by ` + "`keel map`" + ` and ` + "`keel compile`" + `. It summarizes the
modules currently indexed; it is safe to commit, unlike ` + "`.keel/db/`" + `.
`

// ProjectConfig configures InitProject/OpenProject.
type ProjectConfig struct {
	// Root is the project root directory .keel/ is created under.
	Root string

	// Engine is the CozoDB storage engine: "rocksdb", "sqlite", or "mem".
	// Defaults to "rocksdb" for persistence.
	Engine string
}

// ProjectInfo holds information about an initialized project.
type ProjectInfo struct {
	Root    string
	DataDir string
	Engine  string
}

func (c ProjectConfig) dirs() (keelDir, dataDir string) {
	keelDir = filepath.Join(c.Root, DirName)
	dataDir = filepath.Join(keelDir, dbSubdir)
	return
}

// InitProject initializes a new keel project rooted at config.Root.
// Idempotent: calling it again on an already-initialized project leaves
// config.yaml, .keelignore, and any existing manifest untouched, and only
// (re)opens the database.
func InitProject(config ProjectConfig, logger *slog.Logger) (*ProjectInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Root == "" {
		return nil, fmt.Errorf("project root is required")
	}
	if config.Engine == "" {
		config.Engine = "rocksdb"
	}

	keelDir, dataDir := config.dirs()
	logger.Info("bootstrap.project.init.start", "root", config.Root, "data_dir", dataDir, "engine", config.Engine)

	if err := os.MkdirAll(keelDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", keelDir, err)
	}

	if err := writeIfAbsent(filepath.Join(keelDir, configFile), []byte(defaultConfig)); err != nil {
		return nil, err
	}
	if err := writeIfAbsent(filepath.Join(keelDir, ignoreFile), []byte(defaultIgnore)); err != nil {
		return nil, err
	}
	if err := writeIfAbsent(filepath.Join(keelDir, manifestFile), []byte(manifestHeader)); err != nil {
		return nil, err
	}

	st, err := store.Open(store.Config{DataDir: dataDir, Engine: config.Engine})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	logger.Info("bootstrap.project.init.success", "root", config.Root, "data_dir", dataDir)

	return &ProjectInfo{Root: config.Root, DataDir: dataDir, Engine: config.Engine}, nil
}

// writeIfAbsent writes content to path only if nothing exists there yet,
// preserving project-specific edits (a tuned config.yaml, a hand-written
// manifest) across repeated init calls.
func writeIfAbsent(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// OpenProject opens an existing keel project's store. Returns an error if
// .keel/ doesn't exist: operations other than init fail on an
// uninitialized project.
func OpenProject(config ProjectConfig, logger *slog.Logger) (*store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Root == "" {
		return nil, fmt.Errorf("project root is required")
	}
	if config.Engine == "" {
		config.Engine = "rocksdb"
	}

	keelDir, dataDir := config.dirs()
	if _, err := os.Stat(keelDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("project not initialized: %s (run 'keel init' first)", keelDir)
	}

	logger.Debug("bootstrap.project.open", "root", config.Root, "data_dir", dataDir)

	st, err := store.Open(store.Config{DataDir: dataDir, Engine: config.Engine})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// DeinitProject removes a project's .keel/ directory entirely, including
// the database, manifest, config, ignore file, and session state. The
// caller is responsible for confirming this destructive action with the
// user before calling it.
func DeinitProject(config ProjectConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Root == "" {
		return fmt.Errorf("project root is required")
	}
	keelDir, _ := config.dirs()
	logger.Info("bootstrap.project.deinit", "root", config.Root)
	if err := os.RemoveAll(keelDir); err != nil {
		return fmt.Errorf("remove %s: %w", keelDir, err)
	}
	return nil
}

// ConfigPath returns the path to a project's config.yaml.
func ConfigPath(root string) string { return filepath.Join(root, DirName, configFile) }

// IgnorePath returns the path to a project's .keelignore.
func IgnorePath(root string) string { return filepath.Join(root, DirName, ignoreFile) }

// ManifestPath returns the path to a project's manifest.md.
func ManifestPath(root string) string { return filepath.Join(root, DirName, manifestFile) }

// SessionPath returns the path to a project's ephemeral session.json.
func SessionPath(root string) string { return filepath.Join(root, DirName, sessionFile) }

// IsInitialized reports whether root already carries a .keel/ directory.
func IsInitialized(root string) bool {
	_, err := os.Stat(filepath.Join(root, DirName))
	return err == nil
}
