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
	"github.com/kraklabs/keel/internal/ui"
	"github.com/kraklabs/keel/pkg/keel"
)

func runDeinit(args []string) {
	fs := flag.NewFlagSet("deinit", flag.ExitOnError)
	root := fs.String("root", ".", "Project root")
	confirm := fs.Bool("yes", false, "Confirm the deinit (required)")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: keel deinit [options]

Removes .keel/ entirely: the embedded graph database, config, manifest,
ignore file, and session state.

WARNING: This operation is destructive and cannot be undone!

Options:
`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	ui.InitColors(*noColor)

	if !*confirm {
		handleFatal(errors.NewInputError(
			"deinit requires confirmation",
			"this operation deletes .keel/ and everything in it",
			"Re-run with --yes to confirm",
		), false)
	}

	if !bootstrap.IsInitialized(*root) {
		ui.Info(fmt.Sprintf("No %s directory found, nothing to do", bootstrap.DirName))
		return
	}

	if err := keel.Deinit(*root, nil); err != nil {
		handleFatal(errors.NewPermissionError(
			"Failed to remove the project directory",
			err.Error(),
			"Check filesystem permissions on .keel/",
			err,
		), false)
	}

	ui.Success(fmt.Sprintf("Removed %s", bootstrap.DirName))
}
