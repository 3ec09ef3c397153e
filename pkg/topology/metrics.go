// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"github.com/LeeDigitalWorks/zaptopo/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GenerateTotal counts Generate calls by erasure scheme and outcome
	GenerateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zaptopo",
		Subsystem: "generator",
		Name:      "runs_total",
		Help:      "Topology generation runs by erasure scheme and result",
	}, []string{"erasure", "result"})

	// NodesPlanned counts nodes placed by successful runs
	NodesPlanned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zaptopo",
		Subsystem: "generator",
		Name:      "nodes_total",
		Help:      "Nodes planned by successful runs",
	})

	// PDisksAllocated counts pdisks allocated by successful runs, by backing kind
	PDisksAllocated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zaptopo",
		Subsystem: "generator",
		Name:      "pdisks_total",
		Help:      "PDisks allocated by successful runs",
	}, []string{"backing"})

	// StaticFailDomains records fail domain count of the last static group
	StaticFailDomains = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "zaptopo",
		Subsystem: "generator",
		Name:      "static_fail_domains",
		Help:      "Fail domains in the most recently built static group",
	})

	// GenerateDuration tracks how long generation takes
	GenerateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "zaptopo",
		Subsystem: "generator",
		Name:      "duration_seconds",
		Help:      "Time spent generating a topology",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	})
)

func init() {
	debug.Registry().MustRegister(
		GenerateTotal,
		NodesPlanned,
		PDisksAllocated,
		StaticFailDomains,
		GenerateDuration,
	)
}

const (
	resultSuccess = "success"
	resultError   = "error"
)
