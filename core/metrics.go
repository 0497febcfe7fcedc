package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piiguard_scans_total",
		Help: "Total number of payload scans by data source",
	}, []string{"data_source"})

	violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piiguard_violations_total",
		Help: "Total number of PII violations by pattern and risk level",
	}, []string{"type", "risk_level"})

	scanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "piiguard_scan_duration_seconds",
		Help:    "Time spent scanning a payload",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	}, []string{"data_source"})

	enforcementTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piiguard_enforcement_total",
		Help: "Enforcement outcomes by mode, action and whether data was modified",
	}, []string{"mode", "action", "modified"})

	patternsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "piiguard_patterns_loaded",
		Help: "Number of compiled PII patterns in the current policy",
	})

	policyReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piiguard_policy_reloads_total",
		Help: "Policy load attempts by result",
	}, []string{"result"})
)
