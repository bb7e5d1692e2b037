// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSoftLimitBytes_DefaultsWithoutEnv(t *testing.T) {
	os.Unsetenv("KEEL_SOFT_LIMIT_BYTES")
	assert.Equal(t, DefaultSoftLimitBytes, SoftLimitBytes())
}

func TestSoftLimitBytes_HonorsEnvOverride(t *testing.T) {
	t.Setenv("KEEL_SOFT_LIMIT_BYTES", "1024")
	assert.Equal(t, 1024, SoftLimitBytes())
}

func TestSoftLimitBytes_IgnoresInvalidEnv(t *testing.T) {
	t.Setenv("KEEL_SOFT_LIMIT_BYTES", "not-a-number")
	assert.Equal(t, DefaultSoftLimitBytes, SoftLimitBytes())
}

func TestValidateBatchPayload_RejectsOversized(t *testing.T) {
	t.Setenv("KEEL_SOFT_LIMIT_BYTES", "8")
	res := ValidateBatchPayload("this payload is longer than 8 bytes")
	assert.False(t, res.OK)
}

func TestValidateBatchPayload_AcceptsWithinLimit(t *testing.T) {
	res := ValidateBatchPayload("short")
	assert.True(t, res.OK)
}

func TestValidateRequestID(t *testing.T) {
	assert.True(t, ValidateRequestID("req-1").OK)
	assert.False(t, ValidateRequestID("").OK)
	assert.False(t, ValidateRequestID(strings.Repeat("a", RequestIDMaxBytes+1)).OK)
}

func TestValidateSuppressEntry(t *testing.T) {
	assert.True(t, ValidateSuppressEntry("pkg/legacy/old.go", "doThing", []string{"E002"}, "pending migration").OK)
	assert.False(t, ValidateSuppressEntry("", "doThing", []string{"E002"}, "reason").OK)
	assert.False(t, ValidateSuppressEntry("pkg/legacy/old.go", "doThing", nil, "reason").OK)
	assert.False(t, ValidateSuppressEntry("pkg/legacy/old.go", "doThing", []string{"E002"}, "").OK)
	assert.False(t, ValidateSuppressEntry("pkg/legacy/old.go", "doThing", []string{"E002"}, strings.Repeat("x", SuppressReasonMaxBytes+1)).OK)
}
