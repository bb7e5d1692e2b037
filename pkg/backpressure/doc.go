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

// Package backpressure guards an agent driving repeated compile/fix cycles
// against three failure modes: retrying the same violation forever, getting
// the entire cosmetic taxonomy dumped on every compile during a multi-file
// rewrite, and losing track of violations that were deliberately silenced.
// The three pieces (circuit breaker, batch window, suppression) are
// independent and composable; none of them hides a violation outright, they
// only reshape severity, timing, or replace it with an S001 INFO record.
package backpressure
