package preflight

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gauges describing one run, for a node_exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	CheckPassed   *prometheus.GaugeVec
	StageDuration *prometheus.GaugeVec
	RunPassed     prometheus.Gauge
	LastRun       prometheus.Gauge
}

// NewMetrics creates the gauges on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CheckPassed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "preflight_check_passed", Help: "1 if the check passed or was skipped, 0 if it failed"},
			[]string{"stage", "check", "status"},
		),
		StageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "preflight_stage_duration_seconds", Help: "Wall time spent in each stage"},
			[]string{"stage"},
		),
		RunPassed: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "preflight_run_passed", Help: "1 if the last run passed"},
		),
		LastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "preflight_last_run_timestamp_seconds", Help: "Unix time the last run started"},
		),
	}
	m.registry.MustRegister(m.CheckPassed, m.StageDuration, m.RunPassed, m.LastRun)
	return m
}

// Observe records a report.
func (m *Metrics) Observe(r *Report) {
	for _, s := range r.Stages {
		m.StageDuration.WithLabelValues(string(s.Stage)).Set(s.Duration.Seconds())
		for _, c := range s.Checks {
			m.CheckPassed.WithLabelValues(string(s.Stage), c.Name, c.Status.String()).Set(boolGauge(c.Passed()))
		}
	}
	m.RunPassed.Set(boolGauge(r.Passed()))
	m.LastRun.Set(float64(r.StartedAt.Unix()))
}

// WriteFile writes the registry in text exposition format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// WriteMetrics records r on a fresh registry and writes it to path.
func WriteMetrics(path string, r *Report) error {
	m := NewMetrics()
	m.Observe(r)
	return m.WriteFile(path)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
