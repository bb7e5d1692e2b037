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

func runExplain(args []string) {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	root := fs.String("root", ".", "Project root")
	engine := fs.String("engine", "rocksdb", "Storage engine: rocksdb, sqlite, or mem")
	jsonOut := fs.Bool("json", false, "Emit machine-readable JSON")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	_ = fs.Parse(args)
	ui.InitColors(*noColor)

	rest := fs.Args()
	if len(rest) != 2 {
		handleFatal(errors.NewInputError(
			"explain requires a violation code and a hash",
			fmt.Sprintf("got %d arguments", len(rest)),
			"Run: keel explain <code> <hash>, e.g. keel explain E001 3f9a0c12ab4",
		), *jsonOut)
	}
	code, hash := rest[0], rest[1]

	eng, err := keel.Open(*root, *engine, nil)
	if err != nil {
		handleFatal(notInitializedError(err), *jsonOut)
	}
	defer func() { _ = eng.Close() }()

	chain, err := eng.Explain(context.Background(), code, hash)
	if err != nil {
		handleFatal(errors.NewNotFoundError(
			"Could not reconstruct a resolution chain",
			err.Error(),
			"Confirm the hash is current with 'keel where <hash>'",
		), *jsonOut)
	}

	if *jsonOut {
		if err := output.JSON(chain); err != nil {
			handleFatal(err, true)
		}
		return
	}

	ui.Header(fmt.Sprintf("%s on %s", chain.Code, chain.Node.FQN))
	for i, step := range chain.Steps {
		fmt.Printf("%d. [%s] %s:%d (%s, confidence %.2f)\n", i+1, step.Kind, step.File, step.Line, step.Tier, step.Confidence)
		if step.Snippet != "" {
			fmt.Printf("   %s\n", ui.DimText(step.Snippet))
		}
	}
	if len(chain.Steps) == 0 {
		ui.Info("No evidence chain found")
	}
}
