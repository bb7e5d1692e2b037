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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/mapper"
	"github.com/kraklabs/keel/pkg/parse"
	"github.com/kraklabs/keel/pkg/store"
	"github.com/kraklabs/keel/pkg/walk"
)

const v1Src = `package greeter

func Greet(name string) string {
	return "hi " + name
}
`

const v2Src = `package greeter

func Greet(name string) string {
	return "hello there, " + name
}
`

func setup(t *testing.T) (string, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.go"), []byte(v1Src), 0o644))

	st, err := store.Open(store.Config{DataDir: t.TempDir(), Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	m := mapper.New(nil, parse.NewTreeSitterParser(nil), st)
	_, err = m.Map(context.Background(), dir, walk.Options{})
	require.NoError(t, err)
	return dir, st
}

func TestCompiler_DetectsBodyChange(t *testing.T) {
	dir, st := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.go"), []byte(v2Src), 0o644))

	c := New(nil, parse.NewTreeSitterParser(nil), st)
	diff, err := c.Compile(context.Background(), dir, []string{"greeter.go"})
	require.NoError(t, err)

	require.Contains(t, diff.FilesCompiled, "greeter.go")
	var found bool
	for _, d := range diff.NodeDiffs {
		if d.FQN == "Greet" {
			found = true
			require.Equal(t, ChangeBodyChanged, d.Kind)
		}
	}
	require.True(t, found)
}

func TestCompiler_DetectsDeletedFile(t *testing.T) {
	dir, st := setup(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "greeter.go")))

	c := New(nil, parse.NewTreeSitterParser(nil), st)
	diff, err := c.Compile(context.Background(), dir, []string{"greeter.go"})
	require.NoError(t, err)

	require.Contains(t, diff.FilesDeleted, "greeter.go")
	nodes, err := st.Locate(context.Background(), "greeter.go")
	require.NoError(t, err)
	require.Empty(t, nodes)
}

func TestCompiler_UnchangedFileIsANoOp(t *testing.T) {
	dir, st := setup(t)
	ctx := context.Background()

	c := New(nil, parse.NewTreeSitterParser(nil), st)
	first, err := c.Compile(ctx, dir, []string{"greeter.go"})
	require.NoError(t, err)
	require.Empty(t, first.NodeDiffs)
	require.Zero(t, first.EdgesRefreshed)

	genBefore, err := st.FileGeneration(ctx, "greeter.go")
	require.NoError(t, err)
	nodesBefore, err := st.Locate(ctx, "greeter.go")
	require.NoError(t, err)

	second, err := c.Compile(ctx, dir, []string{"greeter.go"})
	require.NoError(t, err)

	require.Empty(t, second.NodeDiffs, "recompiling an unchanged file must produce no node diffs")
	require.Zero(t, second.EdgesRefreshed, "recompiling an unchanged file must not refresh any edges")
	require.Contains(t, second.FilesCompiled, "greeter.go")

	genAfter, err := st.FileGeneration(ctx, "greeter.go")
	require.NoError(t, err)
	require.Equal(t, genBefore, genAfter, "recompiling an unchanged file must not advance its generation")

	nodesAfter, err := st.Locate(ctx, "greeter.go")
	require.NoError(t, err)
	require.Equal(t, nodesBefore, nodesAfter)
}

func TestCompiler_DetectsAddedFunction(t *testing.T) {
	dir, st := setup(t)
	src := v1Src + "\nfunc Farewell(name string) string {\n\treturn \"bye \" + name\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.go"), []byte(src), 0o644))

	c := New(nil, parse.NewTreeSitterParser(nil), st)
	diff, err := c.Compile(context.Background(), dir, []string{"greeter.go"})
	require.NoError(t, err)

	var found bool
	for _, d := range diff.NodeDiffs {
		if d.FQN == "Farewell" && d.Kind == ChangeAdded {
			found = true
		}
	}
	require.True(t, found)
}
