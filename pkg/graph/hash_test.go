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

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_Length(t *testing.T) {
	h := Hash(CanonicalDef{Kind: KindFunction, Language: "go", Signature: "func Add(a, b int) int", Body: "return a + b"})
	require.Len(t, h, idLength)
}

func TestHash_StableAcrossWhitespace(t *testing.T) {
	a := Hash(CanonicalDef{Kind: KindFunction, Language: "go", Signature: "func Add(a, b int) int", Body: "return a + b"})
	b := Hash(CanonicalDef{Kind: KindFunction, Language: "go", Signature: "func Add(a, b int) int", Body: "return  a   +   b  "})
	assert.Equal(t, a, b, "whitespace-only changes must not change the hash")
}

func TestHash_StableAcrossCommentChanges(t *testing.T) {
	a := Hash(CanonicalDef{Kind: KindFunction, Language: "go", Signature: "func Add(a, b int) int", Body: "return a + b"})
	b := Hash(CanonicalDef{Kind: KindFunction, Language: "go", Signature: "func Add(a, b int) int", Body: "// adds two numbers\nreturn a + b"})
	assert.Equal(t, a, b, "comment-only changes must not change the hash")
}

func TestHash_ChangesWithBody(t *testing.T) {
	a := Hash(CanonicalDef{Kind: KindFunction, Language: "go", Signature: "func Add(a, b int) int", Body: "return a + b"})
	b := Hash(CanonicalDef{Kind: KindFunction, Language: "go", Signature: "func Add(a, b int) int", Body: "return a - b"})
	assert.NotEqual(t, a, b, "a body change must change the hash")
}

func TestHash_IgnoresStringLiteralWhitespaceRules(t *testing.T) {
	a := Hash(CanonicalDef{Kind: KindFunction, Language: "go", Signature: "func Greet() string", Body: `return "hello  world"`})
	b := Hash(CanonicalDef{Kind: KindFunction, Language: "go", Signature: "func Greet() string", Body: `return "hello world"`})
	assert.NotEqual(t, a, b, "whitespace inside a string literal is part of the body and must change the hash")
}

func TestHash_DocstringParticipates(t *testing.T) {
	a := Hash(CanonicalDef{Kind: KindFunction, Language: "go", Signature: "func Add(a, b int) int", Body: "return a + b", Docstring: "Add sums two integers."})
	b := Hash(CanonicalDef{Kind: KindFunction, Language: "go", Signature: "func Add(a, b int) int", Body: "return a + b", Docstring: "Add returns the sum."})
	assert.NotEqual(t, a, b)
}

func TestHash_ModifierOrderNormalized(t *testing.T) {
	a := Hash(CanonicalDef{Kind: KindMethod, Language: "java", Signature: "public static int add(int a, int b)", Body: "return a + b;"})
	b := Hash(CanonicalDef{Kind: KindMethod, Language: "java", Signature: "static public int add(int a, int b)", Body: "return a + b;"})
	assert.Equal(t, a, b, "reordering leading modifier keywords must not change the hash")
}

func TestHash_ModifierOrderStopsAtDeclarationKeyword(t *testing.T) {
	a := Hash(CanonicalDef{Kind: KindFunction, Language: "rust", Signature: "pub async fn fetch(url: &str)", Body: "todo!()"})
	b := Hash(CanonicalDef{Kind: KindFunction, Language: "rust", Signature: "async pub fn fetch(url: &str)", Body: "todo!()"})
	assert.Equal(t, a, b, "pub/async reordering must not change the hash")

	c := Hash(CanonicalDef{Kind: KindFunction, Language: "rust", Signature: "pub async fn send(url: &str)", Body: "todo!()"})
	assert.NotEqual(t, a, c, "a genuinely different signature must still hash differently")
}

func TestHash_PythonCommentsStripped(t *testing.T) {
	a := Hash(CanonicalDef{Kind: KindFunction, Language: "python", Signature: "def add(a, b):", Body: "return a + b"})
	b := Hash(CanonicalDef{Kind: KindFunction, Language: "python", Signature: "def add(a, b):", Body: "# adds\nreturn a + b"})
	assert.Equal(t, a, b)
}
