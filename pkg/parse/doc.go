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

// Package parse implements the tier-one, grammar-based structural pass:
// tree-sitter parsing of a single file into definitions, unresolved call
// and import references, and (for Go) the package name from which the
// caller builds the file's module node. It never resolves a call or
// import to a target node: that is the job of pkg/resolve.
package parse
