// Package metrics counts compile attempts, repairs and validation findings
// in a private Prometheus registry.
//
// The agent is a short-lived CLI, so there is no scrape endpoint. Counters
// are exported with WriteTextfile for the node_exporter textfile collector.
package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

const namespace = "emicagent"

// Recorder holds the agent's counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	CompileAttempts  *prometheus.CounterVec
	RepairsApplied   *prometheus.CounterVec
	ValidationIssues *prometheus.CounterVec
	ValidatorFaults  *prometheus.CounterVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		CompileAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compile_attempts_total",
				Help:      "Compile attempts by result",
			},
			[]string{"result"},
		),
		RepairsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "repairs_applied_total",
				Help:      "Automatic repairs applied by rule",
			},
			[]string{"rule"},
		),
		ValidationIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_issues_total",
				Help:      "Validation issues by validator and severity",
			},
			[]string{"validator", "severity"},
		),
		ValidatorFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validator_faults_total",
				Help:      "Validators that failed or panicked",
			},
			[]string{"validator"},
		),
	}
	r.registry.MustRegister(r.CompileAttempts, r.RepairsApplied, r.ValidationIssues, r.ValidatorFaults)
	return r
}

// Registry returns the registry holding the counters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveAttempt counts one compile attempt.
func (r *Recorder) ObserveAttempt(success bool) {
	if r == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	r.CompileAttempts.WithLabelValues(result).Inc()
}

// ObserveRepair counts one applied repair.
func (r *Recorder) ObserveRepair(rule string) {
	if r == nil {
		return
	}
	r.RepairsApplied.WithLabelValues(rule).Inc()
}

// ObserveIssue counts one validation issue.
func (r *Recorder) ObserveIssue(validator string, severity models.IssueSeverity) {
	if r == nil {
		return
	}
	r.ValidationIssues.WithLabelValues(validator, string(severity)).Inc()
}

// ObserveValidatorFault counts one validator fault.
func (r *Recorder) ObserveValidatorFault(validator string) {
	if r == nil {
		return
	}
	r.ValidatorFaults.WithLabelValues(validator).Inc()
}

// WriteTextfile writes the counters in text exposition format. The file is
// written atomically so a collector never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.Wrapf(err, "writing metrics to %s", path)
	}
	return nil
}
