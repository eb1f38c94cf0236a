// Package metrics records Prometheus metrics for a harvest run.
//
// A run is a batch job, so nothing is served over HTTP: the registry is
// written once at the end of the run in the node_exporter textfile format
// (see [Recorder.WriteTextfile]). All Recorder methods are safe for
// concurrent use and are no-ops on a nil *Recorder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/backmassage/dicomharvest/internal/probe"
)

const namespace = "dicomharvest"

// Recorder owns a private registry and the run's collectors.
type Recorder struct {
	registry *prometheus.Registry

	filesDiscovered prometheus.Counter
	filesDecoded    prometheus.Counter
	decodeFailures  *prometheus.CounterVec
	entriesSkipped  prometheus.Counter
	bytesScanned    prometheus.Counter
	decodeDuration  prometheus.Histogram
	runRecords      prometheus.Gauge
	runDuration     prometheus.Gauge
	lastSuccess     prometheus.Gauge
}

// NewRecorder creates a Recorder with every series registered, including a
// zero-valued failure counter for each probe.Kind.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Recorder{
		registry: reg,
		filesDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_discovered_total",
			Help:      "Regular files found under the input root",
		}),
		filesDecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_decoded_total",
			Help:      "Files whose patient header was extracted",
		}),
		decodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Files skipped because they could not be decoded, by failure kind",
		}, []string{"kind"}),
		entriesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_skipped_total",
			Help:      "Traversal entries dropped because they could not be stat'd or listed",
		}),
		bytesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_scanned_total",
			Help:      "Total size of discovered files",
		}),
		decodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding one file, successful or not",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1},
		}),
		runRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_records",
			Help:      "Records written by the last completed run",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last completed run",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last run completed successfully",
		}),
	}
	for _, k := range probe.Kinds() {
		r.decodeFailures.WithLabelValues(k.String())
	}
	return r
}

// Registry exposes the underlying registry (for tests and custom gatherers).
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// FileDiscovered counts one candidate file of the given size.
func (r *Recorder) FileDiscovered(size int64) {
	if r == nil {
		return
	}
	r.filesDiscovered.Inc()
	if size > 0 {
		r.bytesScanned.Add(float64(size))
	}
}

// FileDecoded records a successful decode.
func (r *Recorder) FileDecoded(d time.Duration) {
	if r == nil {
		return
	}
	r.filesDecoded.Inc()
	r.decodeDuration.Observe(d.Seconds())
}

// DecodeFailed records a rejected file.
func (r *Recorder) DecodeFailed(kind probe.Kind, d time.Duration) {
	if r == nil {
		return
	}
	r.decodeFailures.WithLabelValues(kind.String()).Inc()
	r.decodeDuration.Observe(d.Seconds())
}

// EntrySkipped counts one dropped traversal entry.
func (r *Recorder) EntrySkipped() {
	if r == nil {
		return
	}
	r.entriesSkipped.Inc()
}

// RunCompleted sets the last-run gauges after the output has been written.
func (r *Recorder) RunCompleted(records int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.runRecords.Set(float64(records))
	r.runDuration.Set(elapsed.Seconds())
	r.lastSuccess.SetToCurrentTime()
}

// WriteTextfile writes every series to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
