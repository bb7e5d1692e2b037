// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultSoftLimitBytes is the baseline soft limit for a single compile
	// request's file-path batch (as sent over serve --stdio/--http).
	DefaultSoftLimitBytes = 64 << 20 // 64 MiB

	// RequestIDMaxBytes is the maximum length of a stdio JSON-RPC request ID.
	RequestIDMaxBytes = 128

	// SuppressReasonMaxBytes is the maximum length of a config.yaml suppress
	// entry's reason field.
	SuppressReasonMaxBytes = 512
)

// SoftLimitBytes returns the effective soft limit for a compile request's
// batch payload. Controlled via env KEEL_SOFT_LIMIT_BYTES; falls back to
// DefaultSoftLimitBytes.
func SoftLimitBytes() int {
	if v := os.Getenv("KEEL_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSoftLimitBytes
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateBatchPayload checks that a serve request's encoded batch (the
// concatenated file paths of a compile/map call) doesn't exceed the soft
// limit, guarding against a single RPC call trying to enqueue a whole
// monorepo at once.
func ValidateBatchPayload(payload string) *ValidationResult {
	if len(payload) > SoftLimitBytes() {
		return &ValidationResult{OK: false, Message: "batch payload exceeds soft limit"}
	}
	return &ValidationResult{OK: true}
}

// ValidateRequestID checks a stdio JSON-RPC request ID against the
// contract's length limit.
func ValidateRequestID(id string) *ValidationResult {
	if len(id) == 0 {
		return &ValidationResult{OK: false, Message: "request_id must not be empty"}
	}
	if len(id) > RequestIDMaxBytes {
		return &ValidationResult{OK: false, Message: fmt.Sprintf("request_id exceeds %d bytes", RequestIDMaxBytes)}
	}
	return &ValidationResult{OK: true}
}

// ValidateSuppressEntry checks a config.yaml suppress entry's shape: path
// and symbol are required (a suppression without a target is meaningless),
// codes must list at least one violation code, and reason must be
// non-empty and within the contract's size limit. Suppressions are the
// second of the three suppression layers (inline comment, persistent
// config, one-shot flag) and the only one committed to version control, so
// the reason field is mandatory rather than advisory.
func ValidateSuppressEntry(path, symbol string, codes []string, reason string) *ValidationResult {
	if path == "" || symbol == "" {
		return &ValidationResult{OK: false, Message: "suppress entry requires both path and symbol"}
	}
	if len(codes) == 0 {
		return &ValidationResult{OK: false, Message: "suppress entry requires at least one code"}
	}
	if reason == "" {
		return &ValidationResult{OK: false, Message: "suppress entry requires a non-empty reason"}
	}
	if len(reason) > SuppressReasonMaxBytes {
		return &ValidationResult{OK: false, Message: fmt.Sprintf("suppress entry reason exceeds %d bytes", SuppressReasonMaxBytes)}
	}
	return &ValidationResult{OK: true}
}
