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

package enforce

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/compile"
	"github.com/kraklabs/keel/pkg/mapper"
	"github.com/kraklabs/keel/pkg/parse"
	"github.com/kraklabs/keel/pkg/store"
	"github.com/kraklabs/keel/pkg/walk"
)

func newProject(t *testing.T, src string) (string, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.go"), []byte(src), 0o644))
	st, err := store.Open(store.Config{DataDir: t.TempDir(), Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	m := mapper.New(nil, parse.NewTreeSitterParser(nil), st)
	_, err = m.Map(context.Background(), dir, walk.Options{})
	require.NoError(t, err)
	return dir, st
}

func TestEvaluate_FunctionRemovedWithCallersIsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "validate.go"), []byte("package auth\n\nfunc validateEmail(email string) bool {\n\treturn true\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "signup.go"), []byte("package auth\n\nfunc signup(email string) bool {\n\treturn validateEmail(email)\n}\n"), 0o644))

	st, err := store.Open(store.Config{DataDir: t.TempDir(), Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	m := mapper.New(nil, parse.NewTreeSitterParser(nil), st)
	_, err = m.Map(context.Background(), dir, walk.Options{})
	require.NoError(t, err)

	// Remove validateEmail but leave signup.go (and its stale call edge)
	// untouched, so only validate.go is part of this compile's changeset.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "validate.go"), []byte("package auth\n"), 0o644))

	c := compile.New(nil, parse.NewTreeSitterParser(nil), st)
	diff, err := c.Compile(context.Background(), dir, []string{"validate.go"})
	require.NoError(t, err)

	violations, err := Evaluate(context.Background(), diff, st, DefaultOptions())
	require.NoError(t, err)

	var found bool
	for _, v := range violations {
		if v.Code == CodeFunctionRemoved {
			found = true
			require.Equal(t, SeverityError, v.Severity)
		}
	}
	require.True(t, found)
}

func TestEvaluate_ArityMismatch(t *testing.T) {
	dir := t.TempDir()
	createUserSrc := "package auth\n\n// createUser creates a new user account.\nfunc createUser(name string, email string) bool {\n\treturn true\n}\n"
	loginSrc := "package auth\n\n// login authenticates a user.\nfunc login(name string) bool {\n\treturn createUser(name, \"x@example.com\")\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_user.go"), []byte(createUserSrc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "login.go"), []byte(loginSrc), 0o644))

	st, err := store.Open(store.Config{DataDir: t.TempDir(), Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	m := mapper.New(nil, parse.NewTreeSitterParser(nil), st)
	_, err = m.Map(context.Background(), dir, walk.Options{})
	require.NoError(t, err)

	changed := "package auth\n\n// createUser creates a new user account.\nfunc createUser(name string, email string, role string) bool {\n\treturn true\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_user.go"), []byte(changed), 0o644))

	c := compile.New(nil, parse.NewTreeSitterParser(nil), st)
	diff, err := c.Compile(context.Background(), dir, []string{"create_user.go"})
	require.NoError(t, err)

	violations, err := Evaluate(context.Background(), diff, st, DefaultOptions())
	require.NoError(t, err)

	var found bool
	for _, v := range violations {
		if v.Code == CodeArityMismatch {
			found = true
		}
	}
	require.True(t, found)
}

func TestEvaluate_MissingDocstringOnNewPublicFunction(t *testing.T) {
	dir, st := newProject(t, "package auth\n")
	src := `package auth

func Exported(name string) bool {
	return true
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.go"), []byte(src), 0o644))

	c := compile.New(nil, parse.NewTreeSitterParser(nil), st)
	diff, err := c.Compile(context.Background(), dir, []string{"auth.go"})
	require.NoError(t, err)

	violations, err := Evaluate(context.Background(), diff, st, DefaultOptions())
	require.NoError(t, err)

	var found bool
	for _, v := range violations {
		if v.Code == CodeMissingDocstring {
			found = true
		}
	}
	require.True(t, found)
}

func TestCountParams(t *testing.T) {
	require.Equal(t, 0, countParams("func Foo()"))
	require.Equal(t, 1, countParams("func Foo(a string)"))
	require.Equal(t, 2, countParams("func Foo(a string, b int)"))
	require.Equal(t, 2, countParams("func Foo(a map[string]int, b []int)"))
}
