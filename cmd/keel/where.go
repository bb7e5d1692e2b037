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

	"github.com/kraklabs/keel/internal/errors"
	"github.com/kraklabs/keel/internal/output"
	"github.com/kraklabs/keel/internal/ui"
	"github.com/kraklabs/keel/pkg/keel"
)

func runWhere(args []string) {
	fs := flag.NewFlagSet("where", flag.ExitOnError)
	root := fs.String("root", ".", "Project root")
	engine := fs.String("engine", "rocksdb", "Storage engine: rocksdb, sqlite, or mem")
	jsonOut := fs.Bool("json", false, "Emit machine-readable JSON")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	_ = fs.Parse(args)
	ui.InitColors(*noColor)

	rest := fs.Args()
	if len(rest) != 1 {
		handleFatal(errors.NewInputError(
			"where requires exactly one hash",
			fmt.Sprintf("got %d arguments", len(rest)),
			"Run: keel where <hash>",
		), *jsonOut)
	}
	hash := rest[0]

	eng, err := keel.Open(*root, *engine, nil)
	if err != nil {
		handleFatal(notInitializedError(err), *jsonOut)
	}
	defer func() { _ = eng.Close() }()

	node, err := eng.Where(context.Background(), hash)
	if err != nil {
		handleFatal(errors.NewNotFoundError(
			"No definition found for that hash",
			err.Error(),
			"Run 'keel discover' to list known hashes, or re-run 'keel map' if the tree has changed",
		), *jsonOut)
	}

	if *jsonOut {
		if err := output.JSON(node); err != nil {
			handleFatal(err, true)
		}
		return
	}

	fmt.Printf("%s %s\n", ui.Label("FQN:"), node.FQN)
	fmt.Printf("%s %s\n", ui.Label("Kind:"), node.Kind)
	fmt.Printf("%s %s:%d-%d\n", ui.Label("Location:"), node.File, node.StartLine, node.EndLine)
	fmt.Printf("%s %s\n", ui.Label("Language:"), node.Language)
	fmt.Printf("%s %s\n", ui.Label("Signature:"), node.Signature)
}
