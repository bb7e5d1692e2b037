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

package explain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/mapper"
	"github.com/kraklabs/keel/pkg/parse"
	"github.com/kraklabs/keel/pkg/store"
	"github.com/kraklabs/keel/pkg/walk"
)

const utilsSrc = `export function helper(name: string): string {
	return "hi " + name;
}
`

const consumerSrc = `import { helper } from "./utils";

export function run(name: string): string {
	return helper(name);
}
`

func TestExplain_ReconstructsCallAndImportSites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "utils.ts"), []byte(utilsSrc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "consumer.ts"), []byte(consumerSrc), 0o644))

	st, err := store.Open(store.Config{DataDir: t.TempDir(), Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	m := mapper.New(nil, parse.NewTreeSitterParser(nil), st)
	ctx := context.Background()
	_, err = m.Map(ctx, dir, walk.Options{})
	require.NoError(t, err)

	nodes, err := st.Locate(ctx, "utils.ts")
	require.NoError(t, err)
	var helperID string
	for _, n := range nodes {
		if n.Kind == graph.KindFunction && n.FQN == "helper" {
			helperID = n.ID
		}
	}
	require.NotEmpty(t, helperID)

	chain, err := Explain(ctx, st, dir, "E001", helperID)
	require.NoError(t, err)
	require.Equal(t, helperID, chain.Node.ID)

	var sawCall, sawImport bool
	for _, s := range chain.Steps {
		switch s.Kind {
		case StepCallSite:
			sawCall = true
			require.Equal(t, "consumer.ts", s.File)
			require.Contains(t, s.Snippet, "helper(name)")
		case StepImportSite:
			sawImport = true
			require.Equal(t, "consumer.ts", s.File)
			require.Contains(t, s.Snippet, "./utils")
		}
	}
	require.True(t, sawCall, "expected a call_site step")
	require.True(t, sawImport, "expected an import_site step")
}

func TestExplain_UnknownHashErrors(t *testing.T) {
	st, err := store.Open(store.Config{DataDir: t.TempDir(), Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = Explain(context.Background(), st, t.TempDir(), "E001", "nonexistent")
	require.Error(t, err)
}
