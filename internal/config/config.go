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

// Package config loads and validates a project's .keel/config.yaml: the
// language list, per-rule enforcement levels, circuit breaker and batch
// tuning, per-path overrides, and persistent suppression entries.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/keel/internal/contract"
)

// Mode is an enforcement level for a rule that can be turned off.
type Mode string

const (
	ModeError   Mode = "error"
	ModeWarning Mode = "warning"
	ModeOff     Mode = "off"
)

func (m Mode) valid() bool {
	switch m {
	case ModeError, ModeWarning, ModeOff, "":
		return true
	}
	return false
}

// WarnOffMode is an enforcement level for a rule that never escalates to
// ERROR (placement and duplicate-name detection are advisory only).
type WarnOffMode string

const (
	WarnOffWarning WarnOffMode = "warning"
	WarnOffOff     WarnOffMode = "off"
)

func (m WarnOffMode) valid() bool {
	switch m {
	case WarnOffWarning, WarnOffOff, "":
		return true
	}
	return false
}

// Enforce holds the per-rule enforcement levels from §6's config bullet
// list. The *Existing fields carry a separate, typically looser, level
// applied to definitions that already existed before the compile reporting
// them (a changed signature or body rather than a new addition), so
// adopting keel on a large codebase doesn't immediately flood it with errors.
type Enforce struct {
	TypeHints         Mode        `yaml:"type_hints"`
	TypeHintsExisting Mode        `yaml:"type_hints_existing"`
	Docstrings        Mode        `yaml:"docstrings"`
	DocstringsExisting Mode       `yaml:"docstrings_existing"`
	Placement         WarnOffMode `yaml:"placement"`
	DuplicateDetection WarnOffMode `yaml:"duplicate_detection"`
}

// CircuitBreaker holds the tuning knobs for the circuit-breaker layer.
type CircuitBreaker struct {
	MaxRetries    int  `yaml:"max_retries"`
	AutoDowngrade bool `yaml:"auto_downgrade"`
}

// Batch holds the tuning knobs for the batch-deferral layer.
type Batch struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// SuppressEntry is one persistent suppression as it appears in config.yaml:
// keyed by a path and the symbol's fully-qualified name within that file,
// since config.yaml is authored before hashes exist for new code.
type SuppressEntry struct {
	Path   string   `yaml:"path"`
	Symbol string   `yaml:"symbol"`
	Codes  []string `yaml:"codes"`
	Reason string   `yaml:"reason"`
}

// Config is the typed form of .keel/config.yaml.
type Config struct {
	Languages []string                  `yaml:"languages"`
	Enforce   Enforce                   `yaml:"enforce"`
	CircuitBreaker CircuitBreaker        `yaml:"circuit_breaker"`
	Batch     Batch                      `yaml:"batch"`
	Overrides map[string]Enforce        `yaml:"overrides"`
	Suppress  []SuppressEntry            `yaml:"suppress"`
}

// Default returns the configuration applied when a project carries no
// config.yaml of its own, or a loaded file omits a section entirely.
func Default() *Config {
	return &Config{
		Languages: []string{"go", "typescript", "javascript", "python", "rust"},
		Enforce: Enforce{
			TypeHints:          ModeError,
			TypeHintsExisting:  ModeWarning,
			Docstrings:         ModeError,
			DocstringsExisting: ModeWarning,
			Placement:          WarnOffWarning,
			DuplicateDetection: WarnOffWarning,
		},
		CircuitBreaker: CircuitBreaker{MaxRetries: 3, AutoDowngrade: true},
		Batch:          Batch{TimeoutSeconds: 60},
	}
}

// Load reads and parses path, filling in Default() for any zero-valued
// section so a partial config.yaml (e.g. just `languages:`) still produces
// a fully-populated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults backfills zero-valued fields left empty by a partial YAML
// document (yaml.Unmarshal only overwrites keys present in the document,
// but a present-but-empty section still leaves nested zero values).
func applyDefaults(cfg *Config) {
	d := Default()
	if len(cfg.Languages) == 0 {
		cfg.Languages = d.Languages
	}
	if cfg.Enforce.TypeHints == "" {
		cfg.Enforce.TypeHints = d.Enforce.TypeHints
	}
	if cfg.Enforce.TypeHintsExisting == "" {
		cfg.Enforce.TypeHintsExisting = d.Enforce.TypeHintsExisting
	}
	if cfg.Enforce.Docstrings == "" {
		cfg.Enforce.Docstrings = d.Enforce.Docstrings
	}
	if cfg.Enforce.DocstringsExisting == "" {
		cfg.Enforce.DocstringsExisting = d.Enforce.DocstringsExisting
	}
	if cfg.Enforce.Placement == "" {
		cfg.Enforce.Placement = d.Enforce.Placement
	}
	if cfg.Enforce.DuplicateDetection == "" {
		cfg.Enforce.DuplicateDetection = d.Enforce.DuplicateDetection
	}
	if cfg.CircuitBreaker.MaxRetries == 0 {
		cfg.CircuitBreaker.MaxRetries = d.CircuitBreaker.MaxRetries
	}
	if cfg.Batch.TimeoutSeconds == 0 {
		cfg.Batch.TimeoutSeconds = d.Batch.TimeoutSeconds
	}
}

var validLanguages = map[string]bool{
	"go": true, "typescript": true, "javascript": true, "python": true, "rust": true,
}

// Validate rejects a config that names an unsupported language, an invalid
// enforcement mode, a non-positive retry/timeout count, or a suppress entry
// missing its reason or code list, applied here at config load time so a
// bad config.yaml fails fast rather than silently suppressing nothing.
func (c *Config) Validate() error {
	for _, lang := range c.Languages {
		if !validLanguages[lang] {
			return fmt.Errorf("config: unsupported language %q", lang)
		}
	}
	if !c.Enforce.TypeHints.valid() || !c.Enforce.TypeHintsExisting.valid() {
		return fmt.Errorf("config: enforce.type_hints must be error|warning|off")
	}
	if !c.Enforce.Docstrings.valid() || !c.Enforce.DocstringsExisting.valid() {
		return fmt.Errorf("config: enforce.docstrings must be error|warning|off")
	}
	if !c.Enforce.Placement.valid() {
		return fmt.Errorf("config: enforce.placement must be warning|off")
	}
	if !c.Enforce.DuplicateDetection.valid() {
		return fmt.Errorf("config: enforce.duplicate_detection must be warning|off")
	}
	if c.CircuitBreaker.MaxRetries <= 0 {
		return fmt.Errorf("config: circuit_breaker.max_retries must be positive")
	}
	if c.Batch.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: batch.timeout_seconds must be positive")
	}
	for path, ov := range c.Overrides {
		if !ov.TypeHints.valid() || !ov.TypeHintsExisting.valid() || !ov.Docstrings.valid() || !ov.DocstringsExisting.valid() ||
			!ov.Placement.valid() || !ov.DuplicateDetection.valid() {
			return fmt.Errorf("config: overrides[%s] has an invalid enforcement mode", path)
		}
	}
	for i, s := range c.Suppress {
		if res := contract.ValidateSuppressEntry(s.Path, s.Symbol, s.Codes, s.Reason); !res.OK {
			return fmt.Errorf("config: suppress entry %d: %s", i, res.Message)
		}
	}
	return nil
}

// Resolve returns the Enforce settings effective for file, applying the
// override whose key is the longest prefix of file, or the project-wide
// Enforce section if no override matches.
func (c *Config) Resolve(file string) Enforce {
	best := c.Enforce
	bestLen := -1
	for prefix, ov := range c.Overrides {
		if !strings.HasPrefix(file, prefix) {
			continue
		}
		if len(prefix) > bestLen {
			best = mergeOverride(c.Enforce, ov)
			bestLen = len(prefix)
		}
	}
	return best
}

// mergeOverride lets an override specify only the settings it wants to
// change; anything left zero-valued falls back to the project-wide level.
func mergeOverride(base, override Enforce) Enforce {
	out := base
	if override.TypeHints != "" {
		out.TypeHints = override.TypeHints
	}
	if override.TypeHintsExisting != "" {
		out.TypeHintsExisting = override.TypeHintsExisting
	}
	if override.Docstrings != "" {
		out.Docstrings = override.Docstrings
	}
	if override.DocstringsExisting != "" {
		out.DocstringsExisting = override.DocstringsExisting
	}
	if override.Placement != "" {
		out.Placement = override.Placement
	}
	if override.DuplicateDetection != "" {
		out.DuplicateDetection = override.DuplicateDetection
	}
	return out
}
