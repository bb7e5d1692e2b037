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

package keel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/internal/bootstrap"
	"github.com/kraklabs/keel/pkg/enforce"
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

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	root := t.TempDir()
	_, err := bootstrap.InitProject(bootstrap.ProjectConfig{Root: root, Engine: "mem"}, nil)
	require.NoError(t, err)

	eng, err := Open(root, "mem", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestEngine_MapThenCompileFindsBrokenCaller(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(eng.Root, "greeter.go")
	require.NoError(t, os.WriteFile(path, []byte(greeterSrc), 0o644))

	_, err := eng.Map(ctx)
	require.NoError(t, err)

	stats, err := eng.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.ByKind["function"])
	require.NotEmpty(t, stats.LastMapAt)

	removed := `package greeter

// Greet returns a friendly greeting for name.
func Greet(name string) string {
	return "hello " + Shout(name)
}
`
	require.NoError(t, os.WriteFile(path, []byte(removed), 0o644))

	result, err := eng.Compile(ctx, []string{"greeter.go"}, nil)
	require.NoError(t, err)

	var sawRemoved bool
	for _, v := range result.Violations {
		if v.Code == enforce.CodeFunctionRemoved {
			sawRemoved = true
		}
	}
	require.True(t, sawRemoved, "expected E004 for the removed, still-called Shout")
	require.Equal(t, 1, DecideExitCode(result.Violations, false))
}

func TestEngine_DiscoverAndWhere(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(eng.Root, "greeter.go")
	require.NoError(t, os.WriteFile(path, []byte(greeterSrc), 0o644))
	_, err := eng.Map(ctx)
	require.NoError(t, err)

	found, err := eng.Discover(ctx, "Greet", "")
	require.NoError(t, err)
	require.Len(t, found, 1)

	node, err := eng.Where(ctx, found[0].ID)
	require.NoError(t, err)
	require.Equal(t, "Greet", node.FQN)
}

func TestDecideExitCode(t *testing.T) {
	require.Equal(t, 0, DecideExitCode(nil, false))
	require.Equal(t, 0, DecideExitCode([]enforce.Violation{{Severity: enforce.SeverityWarning}}, false))
	require.Equal(t, 1, DecideExitCode([]enforce.Violation{{Severity: enforce.SeverityWarning}}, true))
	require.Equal(t, 1, DecideExitCode([]enforce.Violation{{Severity: enforce.SeverityError}}, false))
}
