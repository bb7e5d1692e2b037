// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the keel CLI.
//
// UserError carries what went wrong, why, and how to fix it, plus a
// Category used only for diagnosis. Every UserError propagates to the
// same process exit code (ExitInternal): exit code 2 covers all structural
// failures (uninitialized project, corrupt store, parse infrastructure
// failure) regardless of which of those it was. Exit code 1 (violations
// found) and exit code 0 (clean) are decided separately, by cmd/keel
// inspecting a compile result's violation list: they are data, not errors,
// and never flow through this package.
//
// # Usage
//
//	err := errors.NewDatabaseError(
//	    "Cannot open the keel database",
//	    "The database file is locked by another process",
//	    "Close other keel instances or run: keel deinit --yes",
//	    underlyingErr,
//	)
//	if err != nil {
//	    errors.FatalError(err, false)
//	}
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for the keel CLI.
const (
	// ExitSuccess indicates a clean compile: no violations.
	ExitSuccess = 0

	// ExitViolations indicates violations were found (or warnings under a
	// strict flag). Decided by cmd/keel, not by this package.
	ExitViolations = 1

	// ExitInternal indicates a structural failure: uninitialized project,
	// corrupt store, parse infrastructure failure, or any other UserError.
	ExitInternal = 2
)

// Category classifies a UserError for diagnosis; it never changes the
// process exit code, only what FatalError/Format/ToJSON report happened.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryDatabase   Category = "database"
	CategoryNetwork    Category = "network"
	CategoryInput      Category = "input"
	CategoryPermission Category = "permission"
	CategoryNotFound   Category = "not_found"
	CategoryInternal   Category = "internal"
)

// UserError represents an error with structured context for end users.
type UserError struct {
	// Message describes what went wrong in user-friendly language.
	Message string

	// Cause explains why the error occurred (diagnostic information).
	Cause string

	// Fix provides an actionable suggestion on how to resolve the error.
	Fix string

	// Category classifies the failure for diagnosis; does not affect
	// ExitCode, which is always ExitInternal for a UserError.
	Category Category

	// Err is the underlying error that caused this error (optional).
	Err error
}

// Error implements the error interface.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is/errors.As.
func (e *UserError) Unwrap() error {
	return e.Err
}

// ExitCode is always ExitInternal: every UserError represents a structural
// failure under spec §6's three-code contract.
func (e *UserError) ExitCode() int {
	return ExitInternal
}

// NewConfigError creates a configuration error: missing, invalid, or
// malformed config.yaml / project layout.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Category: CategoryConfig, Err: err}
}

// NewDatabaseError creates a database error: locked, corrupted, or failed
// transaction against the embedded graph store.
func NewDatabaseError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Category: CategoryDatabase, Err: err}
}

// NewNetworkError creates a network error: a tier-three subprocess
// resolver or serve --http transport failure.
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Category: CategoryNetwork, Err: err}
}

// NewInputError creates an input validation error: bad command-line
// arguments or a failed request parameter check. Input errors typically
// don't wrap an underlying error.
func NewInputError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Category: CategoryInput}
}

// NewPermissionError creates a permission-denied error: file access or
// directory creation failure under the project root.
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Category: CategoryPermission, Err: err}
}

// NewNotFoundError creates a not-found error: an uninitialized project, an
// unknown hash, or a file outside the indexed tree. Typically doesn't wrap
// an underlying error.
func NewNotFoundError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Category: CategoryNotFound}
}

// NewInternalError creates an internal error: a bug, an assertion
// failure, or an unexpected nil value.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, Category: CategoryInternal, Err: err}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display, with
// colored Error/Cause/Fix sections. Color respects NO_COLOR and the
// explicit noColor parameter.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON represents error information in JSON format for --json mode.
type ErrorJSON struct {
	Error    string   `json:"error"`
	Cause    string   `json:"cause,omitempty"`
	Fix      string   `json:"fix,omitempty"`
	Category Category `json:"category"`
	ExitCode int      `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		Category: e.Category,
		ExitCode: e.ExitCode(),
	}
}

// FatalError prints err and exits with the appropriate code. For a
// UserError this is always ExitInternal; any other error type also exits
// ExitInternal, since only cmd/keel's own violation-count check can
// produce ExitViolations.
//
// Never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode())
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
