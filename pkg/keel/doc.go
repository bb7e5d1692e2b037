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

// Package keel wires pkg/mapper, pkg/compile, pkg/enforce,
// pkg/backpressure, and pkg/explain into one Engine so cmd/keel and the
// serve transports (stdio JSON-RPC, HTTP) share a single implementation
// of every operation: init (via internal/bootstrap directly), map,
// compile, discover, where, explain, stats, deinit.
//
// # Usage
//
//	eng, err := keel.Open(root, "rocksdb", logger)
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	if _, err := eng.Map(ctx); err != nil {
//	    return err
//	}
//	result, err := eng.Compile(ctx, []string{"pkg/auth/login.go"}, nil)
//	if err != nil {
//	    return err
//	}
//	os.Exit(keel.DecideExitCode(result.Violations, false))
//
// # Config-driven severity
//
// Compile's raw violations (from pkg/enforce, always at the taxonomy's
// default severity) are narrowed by the project's config.yaml before the
// backpressure layer ever sees them: E002/E003 distinguish newly added
// code from pre-existing code being newly covered by enforcement, and
// W001/W002 can be turned off outright. See applyConfigPolicy.
package keel
