// Package metrics exposes Prometheus instrumentation for the ingestion pipeline.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FilesTotal          *prometheus.CounterVec
	SkipsTotal          *prometheus.CounterVec
	ArchiveEntriesTotal *prometheus.CounterVec
	DecodeTotal         *prometheus.CounterVec
	BuildDuration       prometheus.Histogram
	ManifestStudies     prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dtriage_files_total",
				Help: "Input files by classification outcome",
			},
			[]string{"outcome"},
		),

		SkipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dtriage_skips_total",
				Help: "Skip records by reason",
			},
			[]string{"reason"},
		),

		ArchiveEntriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dtriage_archive_entries_total",
				Help: "Archive members by extraction outcome",
			},
			[]string{"outcome"},
		),

		DecodeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dtriage_decode_total",
				Help: "Pixel decoder attempts by result",
			},
			[]string{"result"},
		),

		BuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dtriage_build_duration_seconds",
				Help:    "Manifest build wall time",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
			},
		),

		ManifestStudies: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dtriage_manifest_studies",
				Help: "Studies in the most recent manifest",
			},
		),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFile records one classified input file.
func (m *Metrics) ObserveFile(outcome string) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(outcome).Inc()
}

// ObserveSkip records one skip record.
func (m *Metrics) ObserveSkip(reason string) {
	if m == nil {
		return
	}
	m.SkipsTotal.WithLabelValues(reason).Inc()
}

// ObserveEntry records one archive member outcome.
func (m *Metrics) ObserveEntry(outcome string) {
	if m == nil {
		return
	}
	m.ArchiveEntriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDecode records one pixel decoder outcome.
func (m *Metrics) ObserveDecode(result string) {
	if m == nil {
		return
	}
	m.DecodeTotal.WithLabelValues(result).Inc()
}

// ObserveBuild records a finished build.
func (m *Metrics) ObserveBuild(d time.Duration, studies int) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(d.Seconds())
	m.ManifestStudies.Set(float64(studies))
}

// WriteText writes every collector in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
