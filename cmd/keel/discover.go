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

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/kraklabs/keel/internal/output"
	"github.com/kraklabs/keel/internal/ui"
	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/keel"
)

func runDiscover(args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	root := fs.String("root", ".", "Project root")
	engine := fs.String("engine", "rocksdb", "Storage engine: rocksdb, sqlite, or mem")
	jsonOut := fs.Bool("json", false, "Emit machine-readable JSON")
	kind := fs.String("kind", "", "Restrict to one node kind: module, function, method, class, struct, enum, trait, interface")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	_ = fs.Parse(args)
	ui.InitColors(*noColor)

	var query string
	if rest := fs.Args(); len(rest) > 0 {
		query = rest[0]
	}

	eng, err := keel.Open(*root, *engine, nil)
	if err != nil {
		handleFatal(notInitializedError(err), *jsonOut)
	}
	defer func() { _ = eng.Close() }()

	nodes, err := eng.Discover(context.Background(), query, graph.Kind(*kind))
	if err != nil {
		handleFatal(err, *jsonOut)
	}

	if *jsonOut {
		if err := output.JSON(nodes); err != nil {
			handleFatal(err, true)
		}
		return
	}

	if len(nodes) == 0 {
		ui.Info("No matching definitions")
		return
	}
	for _, n := range nodes {
		fmt.Printf("%s  %-10s %s:%d  %s\n", n.ID, n.Kind, n.File, n.StartLine, n.FQN)
	}
}
