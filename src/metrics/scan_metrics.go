package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder publishes scan activity to Prometheus. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	scansTotal   *prometheus.CounterVec
	scanDuration prometheus.Histogram
	signalsTotal *prometheus.CounterVec
	workerFaults prometheus.Counter
	processed    prometheus.Gauge
	universe     prometheus.Gauge
	sinkErrors   *prometheus.CounterVec
}

// -----------------------------------------------------------------------------

// NewRecorder registers the scan collectors on a private registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		scansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alpharadar_scans_total",
				Help: "Finished scans by terminal state",
			},
			[]string{"state"},
		),
		scanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "alpharadar_scan_duration_seconds",
				Help:    "Wall time of a scan run",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		signalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alpharadar_signals_total",
				Help: "Signals produced by type",
			},
			[]string{"type"},
		),
		workerFaults: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "alpharadar_worker_faults_total",
				Help: "Symbols whose analysis panicked or failed",
			},
		),
		processed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "alpharadar_scan_processed_symbols",
				Help: "Symbols processed by the current scan",
			},
		),
		universe: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "alpharadar_scan_universe_symbols",
				Help: "Symbols in the current scan universe",
			},
		),
		sinkErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alpharadar_sink_errors_total",
				Help: "Failed result publications by sink",
			},
			[]string{"sink"},
		),
	}
}

// -----------------------------------------------------------------------------

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry to tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// -----------------------------------------------------------------------------

func (r *Recorder) ScanStarted(total int) {
	if r == nil {
		return
	}
	r.universe.Set(float64(total))
	r.processed.Set(0)
}

func (r *Recorder) Progress(processed int) {
	if r == nil {
		return
	}
	r.processed.Set(float64(processed))
}

func (r *Recorder) ScanFinished(state string, seconds float64) {
	if r == nil {
		return
	}
	r.scansTotal.WithLabelValues(state).Inc()
	r.scanDuration.Observe(seconds)
}

func (r *Recorder) Signal(signalType string) {
	if r == nil {
		return
	}
	r.signalsTotal.WithLabelValues(signalType).Inc()
}

func (r *Recorder) WorkerFault() {
	if r == nil {
		return
	}
	r.workerFaults.Inc()
}

func (r *Recorder) SinkError(sink string) {
	if r == nil {
		return
	}
	r.sinkErrors.WithLabelValues(sink).Inc()
}
