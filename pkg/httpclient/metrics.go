package httpclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transaction results used as metric labels.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultAborted   = "aborted"
	ResultFaulted   = "faulted"
)

// Metrics exposes Prometheus metrics for the transaction lifecycle. A nil *Metrics
// records nothing.
type Metrics struct {
	started   prometheus.Counter
	finished  *prometheus.CounterVec
	inFlight  prometheus.Gauge
	bodyBytes prometheus.Counter
	duration  *prometheus.HistogramVec
}

// NewMetrics registers the client metrics on reg, or on the default registerer when
// reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		started: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "samvad_probe",
			Subsystem: "httpclient",
			Name:      "transactions_started_total",
			Help:      "Transactions submitted to the engine.",
		}),
		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "samvad_probe",
			Subsystem: "httpclient",
			Name:      "transactions_finished_total",
			Help:      "Transactions that reached a terminal state, by result.",
		}, []string{"result"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "samvad_probe",
			Subsystem: "httpclient",
			Name:      "transactions_in_flight",
			Help:      "Transactions submitted and not yet finished.",
		}),
		bodyBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "samvad_probe",
			Subsystem: "httpclient",
			Name:      "body_bytes_total",
			Help:      "Response body bytes delivered to observers.",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "samvad_probe",
			Subsystem: "httpclient",
			Name:      "transaction_duration_seconds",
			Help:      "Time from submission to the terminal state, by result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
	}
}

func (m *Metrics) transactionStarted() {
	if m == nil {
		return
	}
	m.started.Inc()
	m.inFlight.Inc()
}

func (m *Metrics) transactionFinished(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.finished.WithLabelValues(result).Inc()
	m.duration.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (m *Metrics) bodyReceived(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bodyBytes.Add(float64(n))
}
