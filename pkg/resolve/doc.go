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

// Package resolve implements the tier-two, per-language static resolvers
// that turn a tier-one textual call/import target into a resolved edge
// with a confidence score. When pyright or rust-analyzer is on PATH, the
// Python or Rust resolver reports single-candidate resolutions at the deep
// tier; neither tool is ever run as a subprocess.
package resolve
