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
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/keel/internal/bootstrap"
	"github.com/kraklabs/keel/internal/errors"
	"github.com/kraklabs/keel/internal/output"
	"github.com/kraklabs/keel/internal/ui"
)

type initResult struct {
	Root    string `json:"root"`
	DataDir string `json:"data_dir"`
	Engine  string `json:"engine"`
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	root := fs.String("root", ".", "Project root to initialize")
	engine := fs.String("engine", "rocksdb", "Storage engine: rocksdb, sqlite, or mem")
	jsonOut := fs.Bool("json", false, "Emit machine-readable JSON")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	_ = fs.Parse(args)
	ui.InitColors(*noColor)

	info, err := bootstrap.InitProject(bootstrap.ProjectConfig{Root: *root, Engine: *engine}, nil)
	if err != nil {
		handleFatal(errors.NewDatabaseError(
			"Failed to initialize the project",
			err.Error(),
			"Check that the project root is writable and the chosen engine is valid",
			err,
		), *jsonOut)
	}

	if *jsonOut {
		if err := output.JSON(initResult{Root: info.Root, DataDir: info.DataDir, Engine: info.Engine}); err != nil {
			handleFatal(err, true)
		}
		return
	}

	ui.Success(fmt.Sprintf("Initialized %s", bootstrap.DirName))
	fmt.Printf("  %s %s\n", ui.Label("Root:"), info.Root)
	fmt.Printf("  %s %s\n", ui.Label("Data:"), ui.DimText(info.DataDir))
	fmt.Printf("  %s %s\n", ui.Label("Engine:"), info.Engine)
	fmt.Println()
	fmt.Println("Next: run 'keel map' to build the structural graph.")
}

func handleFatal(err error, jsonOut bool) {
	if err == nil {
		return
	}
	if ue, ok := err.(*errors.UserError); ok {
		errors.FatalError(ue, jsonOut)
		return
	}
	if jsonOut {
		_ = output.JSONError(err)
		os.Exit(errors.ExitInternal)
	}
	ui.Error(err.Error())
	os.Exit(errors.ExitInternal)
}
