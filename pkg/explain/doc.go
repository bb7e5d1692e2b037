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

// Package explain reconstructs the evidence an engine used to reach a
// violation: the ordered chain of import sites, call sites, type
// references, and re-export hops that connect a caller to the definition a
// violation's hash names. It exists so a caller of the engine (human or
// agent) can ask "why" instead of taking a violation on faith.
package explain
