// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsFile is the textfile collector file name. Node exporter picks
// up every *.prom file in its textfile directory.
const metricsFile = "gatehouse.prom"

// writeMetrics renders the boot report as node-exporter textfile
// gauges. The write is atomic (temp file plus rename) so the collector
// never scrapes a half-written file.
func writeMetrics(dir string, report *Report) error {
	registry := prometheus.NewRegistry()

	bootInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gatehouse",
		Name:      "boot_info",
		Help:      "Constant 1, labeled with the last boot attempt's identity and outcome.",
	}, []string{"boot_id", "mode", "outcome"})

	bootTimestamp := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gatehouse",
		Name:      "boot_timestamp_seconds",
		Help:      "Unix time the last boot attempt started.",
	})

	bootDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gatehouse",
		Name:      "boot_duration_seconds",
		Help:      "Wall time of the last boot sequence, preflight through handoff.",
	})

	migrationExitCode := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gatehouse",
		Name:      "migration_exit_code",
		Help:      "Exit code of the last migration run, 0 when skipped.",
	})

	phaseDuration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gatehouse",
		Name:      "phase_duration_seconds",
		Help:      "Duration of each boot phase, labeled with its final status.",
	}, []string{"phase", "status"})

	registry.MustRegister(bootInfo, bootTimestamp, bootDuration, migrationExitCode, phaseDuration)

	bootInfo.WithLabelValues(report.BootID, report.Mode, report.Outcome).Set(1)
	bootTimestamp.Set(float64(report.StartedAt.Unix()))
	bootDuration.Set(report.FinishedAt.Sub(report.StartedAt).Seconds())
	migrationExitCode.Set(float64(report.MigrationExitCode))
	for _, phase := range report.Phases {
		phaseDuration.WithLabelValues(phase.Name, phase.Status).Set(float64(phase.DurationMS) / 1000)
	}

	return prometheus.WriteToTextfile(filepath.Join(dir, metricsFile), registry)
}
