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
	"github.com/kraklabs/keel/pkg/keel"
)

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
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

	stats, err := eng.Stats(context.Background())
	if err != nil {
		handleFatal(err, *jsonOut)
	}

	if *jsonOut {
		if err := output.JSON(stats); err != nil {
			handleFatal(err, true)
		}
		return
	}

	ui.Header("keel project stats")
	fmt.Printf("%s %s\n", ui.Label("Total nodes:"), ui.CountText(stats.TotalNodes))
	fmt.Printf("%s %s\n", ui.Label("Total edges:"), ui.CountText(stats.TotalEdges))
	if stats.LastMapAt != "" {
		fmt.Printf("%s %s\n", ui.Label("Last map:"), stats.LastMapAt)
	}
	fmt.Println()
	ui.SubHeader("By kind:")
	for kind, count := range stats.ByKind {
		fmt.Printf("  %-12s %s\n", kind, ui.CountText(count))
	}
	ui.SubHeader("By language:")
	for lang, count := range stats.ByLanguage {
		fmt.Printf("  %-12s %s\n", lang, ui.CountText(count))
	}
}
