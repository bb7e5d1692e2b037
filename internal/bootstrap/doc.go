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

// Package bootstrap handles keel project initialization and teardown.
//
// It creates the .keel/ directory under a project root (embedded CozoDB
// database, manifest.md, config.yaml, .keelignore) and ensures those
// prerequisites exist before any other operation runs. SessionPath names a
// session.json under .keel/, but nothing creates, reads or writes that file.
//
// # Initialization workflow
//
//	info, err := bootstrap.InitProject(bootstrap.ProjectConfig{
//	    Root:   "/path/to/project",
//	    Engine: "rocksdb", // optional, defaults to rocksdb
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Project initialized at: %s\n", info.DataDir)
//
//	st, err := bootstrap.OpenProject(bootstrap.ProjectConfig{Root: "/path/to/project"}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
// # Idempotency
//
// InitProject is idempotent: an existing config.yaml, .keelignore, or
// manifest.md is left untouched on repeat calls, and only the database is
// (re)opened.
//
// # Storage engines
//
//   - rocksdb: persistent storage (default)
//   - sqlite: lightweight persistent storage for smaller projects
//   - mem: in-memory storage for tests
package bootstrap
