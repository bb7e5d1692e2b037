// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package contract provides small, dependency-free validation helpers
// shared by the config loader and the serve transports.
//
// # Batch size limits
//
// A serve --stdio/--http compile request carries a batch of file paths;
// ValidateBatchPayload guards against a single call trying to enqueue an
// unreasonable amount of work at once:
//
//	result := contract.ValidateBatchPayload(payload)
//	if !result.OK {
//	    log.Printf("rejected: %s", result.Message)
//	}
//
// The limit defaults to 64 MiB and can be adjusted via the
// KEEL_SOFT_LIMIT_BYTES environment variable.
//
// # Request IDs and suppress entries
//
// ValidateRequestID checks a stdio JSON-RPC request ID's length.
// ValidateSuppressEntry checks the shape of a config.yaml suppress entry
// (path, symbol, codes, reason) before it's persisted; it's also used
// directly by internal/config's Validate.
package contract
