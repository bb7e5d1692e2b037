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

// Package testing provides helpers for seeding and querying an in-memory
// graph store in tests, without going through the mapper or compiler.
//
// # Quick start
//
//	func TestMyFeature(t *testing.T) {
//	    st := testing.SetupTestStore(t)
//	    testing.InsertTestFunction(t, st, "fn1", "handleLogin", "auth.go", 10, 20)
//
//	    nodes := testing.QueryAllNodes(t, st)
//	    require.Len(t, nodes, 1)
//	}
//
// # Seeding test data
//
//   - InsertTestFunction / InsertTestFunctionWithSignature: add a function node
//   - InsertTestType: add a struct/interface/class node
//   - InsertTestModule: add a module (file-level) node
//   - InsertTestCall: record a resolved call edge
//   - InsertTestImport: record a resolved import edge
//
// These wrap pkg/store.Store's typed API directly (UpsertNodes,
// ReplaceEdgesForFile) rather than hand-built query strings, since the
// store already exposes the shapes tests need.
package testing
