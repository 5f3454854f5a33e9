// Package metrics counts audit outcomes in a private prometheus registry and
// can export them in the node_exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements review.Recorder.
type Metrics struct {
	reg       *prometheus.Registry
	dropped   *prometheus.CounterVec
	validated prometheus.Counter
	audited   prometheus.Counter
	failures  *prometheus.CounterVec
	indexed   *prometheus.CounterVec
}

// New registers the sentinel counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_findings_dropped_total",
			Help: "Findings removed before output, by reason.",
		}, []string{"reason"}),
		validated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_findings_validated_total",
			Help: "Findings that passed the schema guard.",
		}),
		audited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_symbols_audited_total",
			Help: "Symbols sent through the auditor.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_collaborator_failures_total",
			Help: "Failed external calls that degraded to an empty result, by call.",
		}, []string{"call"}),
		indexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_index_items_total",
			Help: "Indexer results, by outcome.",
		}, []string{"outcome"}),
	}
	m.reg.MustRegister(m.dropped, m.validated, m.audited, m.failures, m.indexed)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) FindingDropped(reason string) { m.dropped.WithLabelValues(reason).Inc() }

func (m *Metrics) FindingsValidated(n int) { m.validated.Add(float64(n)) }

func (m *Metrics) SymbolAudited() { m.audited.Inc() }

func (m *Metrics) CollaboratorFailed(call string) { m.failures.WithLabelValues(call).Inc() }

// IndexRun adds the counts of one indexer run.
func (m *Metrics) IndexRun(files, symbols, removed, failed int) {
	m.indexed.WithLabelValues("file").Add(float64(files))
	m.indexed.WithLabelValues("symbol").Add(float64(symbols))
	m.indexed.WithLabelValues("removed").Add(float64(removed))
	m.indexed.WithLabelValues("failed").Add(float64(failed))
}

// WriteTextfile writes all metrics to path atomically. An empty path is a
// no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
