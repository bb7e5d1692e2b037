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

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInstallHookWritesMarkerAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	hookPath := filepath.Join(dir, "pre-commit")

	if err := installHook(hookPath, false); err != nil {
		t.Fatalf("installHook() error = %v", err)
	}

	content, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), hookMarker) {
		t.Errorf("installed hook missing marker: %q", content)
	}

	info, err := os.Stat(hookPath)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Errorf("installed hook is not executable: mode = %v", info.Mode())
	}

	if err := installHook(hookPath, false); err != nil {
		t.Errorf("second installHook() without --force should be a no-op, got error = %v", err)
	}
}

func TestInstallHookRefusesForeignHookWithoutForce(t *testing.T) {
	dir := t.TempDir()
	hookPath := filepath.Join(dir, "pre-commit")
	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\necho not keel\n"), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := installHook(hookPath, false); err == nil {
		t.Error("installHook() over a foreign hook without --force should fail, got nil")
	}

	if err := installHook(hookPath, true); err != nil {
		t.Errorf("installHook() with --force should overwrite a foreign hook, got error = %v", err)
	}
}

func TestRemoveHookDeletesOnlyOwnHooks(t *testing.T) {
	dir := t.TempDir()
	hookPath := filepath.Join(dir, "pre-commit")

	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\necho not keel\n"), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := removeHook(hookPath); err == nil {
		t.Error("removeHook() on a foreign hook should fail, got nil")
	}

	if err := installHook(hookPath, true); err != nil {
		t.Fatalf("installHook() error = %v", err)
	}
	if err := removeHook(hookPath); err != nil {
		t.Errorf("removeHook() on a keel-installed hook should succeed, got error = %v", err)
	}
	if _, err := os.Stat(hookPath); !os.IsNotExist(err) {
		t.Errorf("hook file should be gone after removeHook(), stat error = %v", err)
	}
}
