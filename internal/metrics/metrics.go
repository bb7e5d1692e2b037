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

// Package metrics holds the engine's Prometheus instrumentation: counters
// and histograms for the walk, parse, resolve, compile, and enforcement
// stages, registered once and exported by cmd/keel's serve --http /metrics
// endpoint.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type engineMetrics struct {
	once sync.Once

	filesWalked    prometheus.Counter
	filesSkipped   prometheus.Counter
	filesParsed    prometheus.Counter
	parseErrors    prometheus.Counter

	nodesAdded     prometheus.Counter
	nodesRemoved   prometheus.Counter
	edgesResolved  prometheus.Counter
	edgesUnresolved prometheus.Counter

	compileRuns    prometheus.Counter
	violationsEmitted *prometheus.CounterVec
	circuitDowngrades prometheus.Counter
	batchDeferrals prometheus.Counter

	walkDuration    prometheus.Histogram
	parseDuration   prometheus.Histogram
	resolveDuration prometheus.Histogram
	compileDuration prometheus.Histogram
}

var m engineMetrics

func (e *engineMetrics) init() {
	e.once.Do(func() {
		e.filesWalked = prometheus.NewCounter(prometheus.CounterOpts{Name: "keel_files_walked_total", Help: "Files visited by the repository walker"})
		e.filesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "keel_files_skipped_total", Help: "Files skipped by ignore rules or binary detection"})
		e.filesParsed = prometheus.NewCounter(prometheus.CounterOpts{Name: "keel_files_parsed_total", Help: "Files successfully parsed"})
		e.parseErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "keel_parse_errors_total", Help: "Files that failed tier-one parsing"})

		e.nodesAdded = prometheus.NewCounter(prometheus.CounterOpts{Name: "keel_nodes_added_total", Help: "Graph nodes added across all compiles"})
		e.nodesRemoved = prometheus.NewCounter(prometheus.CounterOpts{Name: "keel_nodes_removed_total", Help: "Graph nodes removed across all compiles"})
		e.edgesResolved = prometheus.NewCounter(prometheus.CounterOpts{Name: "keel_edges_resolved_total", Help: "Edges resolved to a target node"})
		e.edgesUnresolved = prometheus.NewCounter(prometheus.CounterOpts{Name: "keel_edges_unresolved_total", Help: "Edges left unresolved after all tiers"})

		e.compileRuns = prometheus.NewCounter(prometheus.CounterOpts{Name: "keel_compile_runs_total", Help: "Incremental compiles performed"})
		e.violationsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "keel_violations_emitted_total", Help: "Violations emitted, by code"}, []string{"code"})
		e.circuitDowngrades = prometheus.NewCounter(prometheus.CounterOpts{Name: "keel_circuit_downgrades_total", Help: "Violations downgraded by the circuit breaker"})
		e.batchDeferrals = prometheus.NewCounter(prometheus.CounterOpts{Name: "keel_batch_deferrals_total", Help: "Violations deferred by an open batch window"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
		e.walkDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "keel_walk_seconds", Help: "Repository walk duration", Buckets: buckets})
		e.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "keel_parse_seconds", Help: "Tier-one parse duration", Buckets: buckets})
		e.resolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "keel_resolve_seconds", Help: "Tier-two/tier-three resolution duration", Buckets: buckets})
		e.compileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "keel_compile_seconds", Help: "End-to-end compile duration", Buckets: buckets})

		prometheus.MustRegister(
			e.filesWalked, e.filesSkipped, e.filesParsed, e.parseErrors,
			e.nodesAdded, e.nodesRemoved, e.edgesResolved, e.edgesUnresolved,
			e.compileRuns, e.violationsEmitted, e.circuitDowngrades, e.batchDeferrals,
			e.walkDuration, e.parseDuration, e.resolveDuration, e.compileDuration,
		)
	})
}

func RecordFilesWalked(n int)    { m.init(); m.filesWalked.Add(float64(n)) }
func RecordFilesSkipped(n int)   { m.init(); m.filesSkipped.Add(float64(n)) }
func RecordFilesParsed(n int)    { m.init(); m.filesParsed.Add(float64(n)) }
func RecordParseError()          { m.init(); m.parseErrors.Inc() }
func RecordNodesAdded(n int)     { m.init(); m.nodesAdded.Add(float64(n)) }
func RecordNodesRemoved(n int)   { m.init(); m.nodesRemoved.Add(float64(n)) }
func RecordEdgeResolved()        { m.init(); m.edgesResolved.Inc() }
func RecordEdgeUnresolved()      { m.init(); m.edgesUnresolved.Inc() }
func RecordCompileRun()          { m.init(); m.compileRuns.Inc() }
func RecordViolation(code string) { m.init(); m.violationsEmitted.WithLabelValues(code).Inc() }
func RecordCircuitDowngrade()    { m.init(); m.circuitDowngrades.Inc() }
func RecordBatchDeferral()       { m.init(); m.batchDeferrals.Inc() }

// Timer returns a function that, when called, observes the elapsed time
// since Timer was called into h. Use as: defer metrics.Timer(h)().
func Timer(h prometheus.Histogram) func() {
	start := time.Now()
	return func() { h.Observe(time.Since(start).Seconds()) }
}

func WalkDuration() prometheus.Histogram    { m.init(); return m.walkDuration }
func ParseDuration() prometheus.Histogram   { m.init(); return m.parseDuration }
func ResolveDuration() prometheus.Histogram { m.init(); return m.resolveDuration }
func CompileDuration() prometheus.Histogram { m.init(); return m.compileDuration }
