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

package parse

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/kraklabs/keel/pkg/graph"
)

const goSample = `package example

import "fmt"

// Greet prints a friendly greeting.
func Greet(name string) string {
	fmt.Println(name)
	return "hi " + name
}

type Server struct {
	addr string
}

func (s *Server) Start() error {
	return nil
}
`

func TestParseGo_ExtractsDefinitionsAndCalls(t *testing.T) {
	p := NewTreeSitterParser(nil)
	res, err := p.ParseFile("example.go", []byte(goSample), "go")
	require.NoError(t, err)
	require.Equal(t, "example", res.ModuleName)

	var names []string
	for _, d := range res.Definitions {
		names = append(names, d.Name)
	}
	require.Contains(t, names, "Greet")
	require.Contains(t, names, "Server.Start")
	require.Contains(t, names, "Server")

	require.NotEmpty(t, res.Imports)
	require.Equal(t, "fmt", res.Imports[0].TextualTarget)
	require.Equal(t, graph.EdgeImports, res.Imports[0].Kind)

	var callTargets []string
	for _, c := range res.Calls {
		callTargets = append(callTargets, c.TextualTarget)
	}
	require.Contains(t, callTargets, "fmt.Println")
}

func TestParseGo_DocstringCaptured(t *testing.T) {
	p := NewTreeSitterParser(nil)
	res, err := p.ParseFile("example.go", []byte(goSample), "go")
	require.NoError(t, err)
	for _, d := range res.Definitions {
		if d.Name == "Greet" {
			require.True(t, d.HasDoc)
			require.Contains(t, d.Docstring, "Greet prints")
		}
	}
}
