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
	"github.com/kraklabs/keel/internal/progress"
	"github.com/kraklabs/keel/internal/ui"
	"github.com/kraklabs/keel/pkg/keel"
)

func runMap(args []string) {
	fs := flag.NewFlagSet("map", flag.ExitOnError)
	root := fs.String("root", ".", "Project root")
	engine := fs.String("engine", "rocksdb", "Storage engine: rocksdb, sqlite, or mem")
	jsonOut := fs.Bool("json", false, "Emit machine-readable JSON")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	_ = fs.Parse(args)
	ui.InitColors(*noColor)

	eng, err := keel.Open(*root, *engine, nil)
	if err != nil {
		handleFatal(notInitializedError(err), *jsonOut)
	}
	defer func() { _ = eng.Close() }()

	spinner := progress.NewSpinner(progress.NewConfig(*jsonOut, *noColor), "Walking and parsing...")
	result, err := eng.Map(context.Background())
	progress.Finish(spinner)
	if err != nil {
		handleFatal(errors.NewDatabaseError(
			"Failed to build the structural graph",
			err.Error(),
			"Re-run with a smaller tree or check the logs for the failing file",
			err,
		), *jsonOut)
	}

	if *jsonOut {
		if err := output.JSON(result); err != nil {
			handleFatal(err, true)
		}
		return
	}

	ui.Success(fmt.Sprintf("Mapped %d files", result.FilesProcessed))
	fmt.Printf("  %s %s\n", ui.Label("Definitions:"), ui.CountText(result.Definitions))
	fmt.Printf("  %s %s\n", ui.Label("Edges:"), ui.CountText(result.Edges))
	if result.ParseErrors > 0 {
		ui.Warning(fmt.Sprintf("%d file(s) failed to parse", result.ParseErrors))
	}
	for reason, count := range result.SkipReasons {
		fmt.Printf("  %s %d (%s)\n", ui.DimText("skipped:"), count, reason)
	}
}
