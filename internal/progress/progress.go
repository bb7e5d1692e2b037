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

// Package progress provides terminal progress indicators for long-running
// keel commands (map, compile). Progress is automatically suppressed for
// --json output and when stderr isn't a TTY, so piped or CI invocations
// never see spinner escape codes mixed into their output.
package progress

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Config determines whether and how progress is displayed.
type Config struct {
	// Enabled is false when JSON output was requested or stderr isn't a TTY.
	Enabled bool

	// Writer is where progress output goes (always os.Stderr, so it never
	// mixes with a command's stdout result).
	Writer io.Writer

	NoColor bool
}

// NewConfig derives a Config from a command's --json/--no-color flags and
// stderr's TTY-ness.
func NewConfig(jsonOutput, noColor bool) Config {
	return Config{
		Enabled: !jsonOutput && isatty.IsTerminal(os.Stderr.Fd()),
		Writer:  os.Stderr,
		NoColor: noColor,
	}
}

// NewSpinner returns an indeterminate spinner for operations whose total
// work isn't known up front (a file walk before its count is known).
// Returns nil when cfg.Enabled is false: callers must nil-check before use.
func NewSpinner(cfg Config, description string) *progressbar.ProgressBar {
	if !cfg.Enabled {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(cfg.Writer),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(!cfg.NoColor),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

// Finish clears and closes bar if it's non-nil, safe to call on a
// disabled (nil) bar.
func Finish(bar *progressbar.ProgressBar) {
	if bar == nil {
		return
	}
	_ = bar.Finish()
}
