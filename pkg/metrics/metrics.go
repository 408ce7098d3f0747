// Package metrics provides Prometheus metrics for attested aggregation rounds.
package metrics

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SamplesTotal is a counter of sampler calls by outcome.
	SamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attest_samples_total",
			Help: "Total number of price samples requested from the sampler",
		},
		[]string{"sampler", "status"},
	)

	// SampleDuration is a histogram of sampler call latencies.
	SampleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attest_sample_duration_seconds",
			Help:    "Latency of a single price sample",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"sampler"},
	)

	// KickoffLateness is a histogram of how late a worker woke after kickoff.
	KickoffLateness = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attest_kickoff_lateness_seconds",
			Help:    "Delay between the kickoff instant and the start of sampling",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// WorkerResultsTotal is a counter of worker outcomes seen by the coordinator.
	WorkerResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attest_worker_results_total",
			Help: "Worker results by verification outcome",
		},
		[]string{"outcome"},
	)

	// WorkerDuration is a histogram of worker process lifetimes.
	WorkerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attest_worker_duration_seconds",
			Help:    "Wall time from spawning a worker until its payload was verified",
			Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120},
		},
	)

	// AggregationRunsTotal is a counter of aggregation runs by status.
	AggregationRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attest_aggregation_runs_total",
			Help: "Total number of aggregation runs",
		},
		[]string{"status"},
	)

	// AggregationDuration is a histogram of whole-run durations.
	AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attest_aggregation_duration_seconds",
			Help:    "Duration of aggregation runs",
			Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120},
		},
	)

	// ConsensusValue is a gauge of the last consensus value.
	ConsensusValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "attest_consensus_value",
			Help: "Consensus value of the last successful run",
		},
		[]string{"symbol"},
	)
)

// Init registers the coordinator's collectors with the default registry.
// Sample and kickoff collectors are recorded inside worker processes and
// leave them through WriteWorkerTextfile instead.
func Init() {
	prometheus.MustRegister(
		WorkerResultsTotal,
		WorkerDuration,
		AggregationRunsTotal,
		AggregationDuration,
		ConsensusValue,
	)
}

// workerCollectors are the collectors a worker process records into
func workerCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		SamplesTotal,
		SampleDuration,
		KickoffLateness,
	}
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server.ListenAndServe()
}

// WriteTextfile dumps the default registry to path in the text exposition
// format, for node_exporter's textfile collector. Runs are short-lived, so
// scraping alone would usually miss them.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// WriteWorkerTextfile dumps a worker's sample and kickoff collectors to
// path, each series labelled with the worker index so the files of one run
// can sit side by side in the textfile collector directory.
func WriteWorkerTextfile(path string, worker int) error {
	reg := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"worker": strconv.Itoa(worker)}, reg)
	for _, c := range workerCollectors() {
		if err := wrapped.Register(c); err != nil {
			return err
		}
	}
	return prometheus.WriteToTextfile(path, reg)
}

// WorkerTextfilePath derives a worker's textfile from the run's:
// attest.prom becomes attest.worker-2.prom.
func WorkerTextfilePath(path string, worker int) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".worker-" + strconv.Itoa(worker) + ext
}

// RecordSample records one sampler call.
func RecordSample(sampler string, ok bool, duration time.Duration) {
	status := "success"
	if !ok {
		status = "error"
	}
	SamplesTotal.WithLabelValues(sampler, status).Inc()
	SampleDuration.WithLabelValues(sampler).Observe(duration.Seconds())
}

// RecordKickoffLateness records how far past the kickoff a worker started.
func RecordKickoffLateness(d time.Duration) {
	if d < 0 {
		d = 0
	}
	KickoffLateness.Observe(d.Seconds())
}

// RecordWorkerResult records a worker outcome ("verified" or a rejection reason).
func RecordWorkerResult(outcome string, duration time.Duration) {
	WorkerResultsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		WorkerDuration.Observe(duration.Seconds())
	}
}

// RecordAggregation records a finished run.
func RecordAggregation(status string, duration time.Duration) {
	AggregationRunsTotal.WithLabelValues(status).Inc()
	AggregationDuration.Observe(duration.Seconds())
}

// RecordConsensus records the consensus value of a successful run.
func RecordConsensus(symbol string, value float64) {
	ConsensusValue.WithLabelValues(symbol).Set(value)
}
