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
	"os"
	"strings"

	"github.com/kraklabs/keel/internal/errors"
	"github.com/kraklabs/keel/internal/output"
	"github.com/kraklabs/keel/internal/progress"
	"github.com/kraklabs/keel/internal/ui"
	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/keel"
)

type compileReport struct {
	FilesCompiled  []string            `json:"files_compiled"`
	NodesDiffed    int                 `json:"nodes_diffed"`
	EdgesRefreshed int                 `json:"edges_refreshed"`
	Violations     []enforce.Violation `json:"violations"`
}

func runCompile(args []string) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	root := fs.String("root", ".", "Project root")
	engine := fs.String("engine", "rocksdb", "Storage engine: rocksdb, sqlite, or mem")
	jsonOut := fs.Bool("json", false, "Emit machine-readable JSON")
	strict := fs.Bool("strict", false, "Treat warnings as violations for the exit code")
	suppress := fs.String("suppress", "", "Comma-separated one-shot suppressions (CODE or CODE:hash)")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	batch := fs.String("batch", "", "Batch window control: begin or end (no files needed)")
	since := fs.String("since", "", "Git ref to diff against; compiles every file changed since then instead of explicit file args")
	until := fs.String("until", "", "Git ref to diff up to, used with --since (default HEAD)")
	_ = fs.Parse(args)
	ui.InitColors(*noColor)

	if *batch != "" {
		runCompileBatch(*root, *engine, *batch, *jsonOut, *strict)
		return
	}

	var oneShot []string
	if *suppress != "" {
		oneShot = strings.Split(*suppress, ",")
	}

	eng, err := keel.Open(*root, *engine, nil)
	if err != nil {
		handleFatal(notInitializedError(err), *jsonOut)
	}
	defer func() { _ = eng.Close() }()

	files := fs.Args()
	if *since != "" {
		changed, err := eng.ChangedSince(*since, *until)
		if err != nil {
			handleFatal(errors.NewInputError(
				"Failed to compute files changed since "+*since,
				err.Error(),
				"Check that --since names a valid commit or ref in this repository",
			), *jsonOut)
		}
		files = changed
	}
	if len(files) == 0 {
		handleFatal(errors.NewInputError(
			"No files given to compile",
			"compile requires at least one changed file path, or --since <rev>",
			"Run: keel compile <file> [<file> ...]   or   keel compile --since <rev>",
		), *jsonOut)
	}

	spinner := progress.NewSpinner(progress.NewConfig(*jsonOut, *noColor), fmt.Sprintf("Compiling %d file(s)...", len(files)))
	result, err := eng.Compile(context.Background(), files, oneShot)
	progress.Finish(spinner)
	if err != nil {
		handleFatal(errors.NewDatabaseError(
			"Failed to compile the changed files",
			err.Error(),
			"Check that the listed files exist and parse cleanly",
			err,
		), *jsonOut)
	}

	if *jsonOut {
		report := compileReport{
			FilesCompiled:  result.Diff.FilesCompiled,
			NodesDiffed:    len(result.Diff.NodeDiffs),
			EdgesRefreshed: result.Diff.EdgesRefreshed,
			Violations:     result.Violations,
		}
		if err := output.JSON(report); err != nil {
			handleFatal(err, true)
		}
		os.Exit(keel.DecideExitCode(result.Violations, *strict))
	}

	printViolations(result.Violations)
	os.Exit(keel.DecideExitCode(result.Violations, *strict))
}

// runCompileBatch handles `keel compile --batch begin|end`, the explicit
// open/close of the backpressure batch window described in the batch
// scenario of the operations surface: every compile between begin and end
// defers its cosmetic violations, and end reports everything that piled up.
func runCompileBatch(root, engine, mode string, jsonOut, strict bool) {
	eng, err := keel.Open(root, engine, nil)
	if err != nil {
		handleFatal(notInitializedError(err), jsonOut)
	}
	defer func() { _ = eng.Close() }()

	switch mode {
	case "begin":
		if err := eng.BeginBatch(context.Background()); err != nil {
			handleFatal(errors.NewDatabaseError(
				"Failed to open the batch window",
				err.Error(),
				"Retry the command",
				err,
			), jsonOut)
		}
		if jsonOut {
			if err := output.JSON(map[string]string{"batch": "open"}); err != nil {
				handleFatal(err, true)
			}
			return
		}
		ui.Success("Batch window open")
	case "end":
		violations, err := eng.EndBatch(context.Background())
		if err != nil {
			handleFatal(errors.NewDatabaseError(
				"Failed to close the batch window",
				err.Error(),
				"Retry the command",
				err,
			), jsonOut)
		}
		if jsonOut {
			report := compileReport{Violations: violations}
			if err := output.JSON(report); err != nil {
				handleFatal(err, true)
			}
			os.Exit(keel.DecideExitCode(violations, strict))
		}
		printViolations(violations)
		os.Exit(keel.DecideExitCode(violations, strict))
	default:
		handleFatal(errors.NewInputError(
			fmt.Sprintf("Unknown --batch mode %q", mode),
			"batch mode must be begin or end",
			"Run: keel compile --batch begin   or   keel compile --batch end",
		), jsonOut)
	}
}

func printViolations(violations []enforce.Violation) {
	if len(violations) == 0 {
		ui.Success("No violations")
		return
	}
	for _, v := range violations {
		line := fmt.Sprintf("%s:%d", v.File, v.Line)
		switch v.Severity {
		case enforce.SeverityError:
			ui.Errorf("[%s] %s - %s (%s)", v.Code, line, v.Message, v.Hash)
		case enforce.SeverityWarning:
			ui.Warningf("[%s] %s - %s (%s)", v.Code, line, v.Message, v.Hash)
		default:
			ui.Infof("[%s] %s - %s (%s)", v.Code, line, v.Message, v.Hash)
		}
	}
	errCount, warnCount := 0, 0
	for _, v := range violations {
		switch v.Severity {
		case enforce.SeverityError:
			errCount++
		case enforce.SeverityWarning:
			warnCount++
		}
	}
	fmt.Println()
	fmt.Printf("%s %d error(s), %d warning(s)\n", ui.Label("Total:"), errCount, warnCount)
}
