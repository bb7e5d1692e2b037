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

package mapper

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/parse"
	"github.com/kraklabs/keel/pkg/store"
	"github.com/kraklabs/keel/pkg/walk"
)

const greeterSrc = `package greeter

// Greet returns a friendly greeting for name.
func Greet(name string) string {
	return "hello " + Shout(name)
}

// Shout upper-cases name for emphasis.
func Shout(name string) string {
	return name
}
`

func TestMapper_MapResolvesSamePackageCalls(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.go"), []byte(greeterSrc), 0o644))

	st, err := store.Open(store.Config{DataDir: t.TempDir(), Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	m := New(nil, parse.NewTreeSitterParser(nil), st)
	result, err := m.Map(context.Background(), dir, walk.Options{})
	require.NoError(t, err)

	require.Equal(t, 1, result.FilesProcessed)
	require.GreaterOrEqual(t, result.Definitions, 3) // module + Greet + Shout
	require.GreaterOrEqual(t, result.Edges, 1)

	nodes, err := st.Locate(context.Background(), "greeter.go")
	require.NoError(t, err)

	var greetID string
	for _, n := range nodes {
		if n.FQN == "Greet" {
			greetID = n.ID
		}
	}
	require.NotEmpty(t, greetID)

	callees, err := st.CalleesOf(context.Background(), greetID)
	require.NoError(t, err)
	require.Len(t, callees, 1)
	require.NotEmpty(t, callees[0].TargetID)
}

func TestMapper_MapIsEmptyOnEmptyRepo(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(store.Config{DataDir: t.TempDir(), Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	m := New(nil, parse.NewTreeSitterParser(nil), st)
	result, err := m.Map(context.Background(), dir, walk.Options{})
	require.NoError(t, err)
	require.Equal(t, 0, result.FilesProcessed)
}
