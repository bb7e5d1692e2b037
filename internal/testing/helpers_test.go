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

package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/graph"
)

func TestSetupTestStore(t *testing.T) {
	st := SetupTestStore(t)
	require.NotNil(t, st)

	nodes := QueryAllNodes(t, st)
	assert.Empty(t, nodes, "should start with no nodes")
}

func TestInsertTestFunction(t *testing.T) {
	st := SetupTestStore(t)

	InsertTestFunction(t, st, "func_123", "HandleAuth", "auth.go", 10, 25)

	nodes := QueryAllNodes(t, st)
	require.Len(t, nodes, 1)
	assert.Equal(t, "func_123", nodes[0].ID)
	assert.Equal(t, "HandleAuth", nodes[0].FQN)
	assert.Equal(t, graph.KindFunction, nodes[0].Kind)
}

func TestInsertTestModule(t *testing.T) {
	st := SetupTestStore(t)

	InsertTestModule(t, st, "mod_123", "auth.go")

	nodes := QueryAllNodes(t, st)
	require.Len(t, nodes, 1)
	assert.Equal(t, "mod_123", nodes[0].ID)
	assert.Equal(t, graph.KindModule, nodes[0].Kind)
}

func TestInsertTestType(t *testing.T) {
	st := SetupTestStore(t)

	InsertTestType(t, st, "type_123", "UserService", graph.KindStruct, "user.go", 10, 50)

	nodes := QueryAllNodes(t, st)
	require.Len(t, nodes, 1)
	assert.Equal(t, "type_123", nodes[0].ID)
	assert.Equal(t, "UserService", nodes[0].FQN)
	assert.Equal(t, graph.KindStruct, nodes[0].Kind)
}

func TestMultipleInserts(t *testing.T) {
	st := SetupTestStore(t)

	InsertTestFunction(t, st, "func1", "Main", "main.go", 5, 10)
	InsertTestFunction(t, st, "func2", "Helper", "util.go", 15, 20)
	InsertTestFunction(t, st, "func3", "Process", "processor.go", 25, 35)

	nodes := QueryAllNodes(t, st)
	require.Len(t, nodes, 3)
}

func TestInsertTestCallAndImport(t *testing.T) {
	st := SetupTestStore(t)

	InsertTestFunction(t, st, "func1", "main", "main.go", 1, 10)
	InsertTestFunction(t, st, "func2", "helper", "main.go", 12, 15)
	InsertTestCall(t, st, "main.go", 3, "func1", "func2")

	InsertTestModule(t, st, "mod1", "main.go")
	InsertTestModule(t, st, "mod2", "util.go")
	InsertTestImport(t, st, "util.go", 1, "mod2", "mod1")
}

func TestStoreIsolation(t *testing.T) {
	st1 := SetupTestStore(t)
	InsertTestFunction(t, st1, "func1", "Test1", "file1.go", 1, 10)

	st2 := SetupTestStore(t)
	assert.Empty(t, QueryAllNodes(t, st2), "second store should be isolated from first")

	assert.Len(t, QueryAllNodes(t, st1), 1)
}
