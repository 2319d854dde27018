package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bft-labs/firehose/internal/domain"
)

const namespace = "firehose"

// Metrics implements ports.Observer on a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	State            *prometheus.GaugeVec
	Sessions         prometheus.Counter
	SessionDuration  prometheus.Histogram
	Faults           *prometheus.CounterVec
	Bytes            *prometheus.CounterVec
	Records          *prometheus.CounterVec
	DiscardedRecords prometheus.Counter
	DiscardedBytes   prometheus.Counter
	QueueDepth       prometheus.Gauge
}

// New creates and registers every metric, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		State: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "supervisor",
				Name:      "state",
				Help:      "1 for the current supervisor state, 0 otherwise",
			},
			[]string{"state"},
		),

		Sessions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "sessions_total",
				Help:      "Total number of stream sessions that reached the server",
			},
		),

		SessionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "session_duration_seconds",
				Help:      "Stream session lifetime in seconds",
				Buckets:   []float64{1, 10, 60, 300, 1800, 3600, 6 * 3600, 24 * 3600},
			},
		),

		Faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "faults_total",
				Help:      "Total number of session-ending faults by kind",
			},
			[]string{"kind"},
		),

		Bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "bytes_total",
				Help:      "Total bytes read from the transport (compressed) and produced by inflation (inflated)",
			},
			[]string{"stage"},
		),

		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "records",
				Name:      "total",
				Help:      "Total records by outcome (framed, written, malformed)",
			},
			[]string{"outcome"},
		),

		DiscardedRecords: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "records",
				Name:      "discarded_total",
				Help:      "Partial records dropped at the end of a session",
			},
		),

		DiscardedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "records",
				Name:      "discarded_bytes_total",
				Help:      "Bytes of partial records dropped at the end of a session",
			},
		),

		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "queue_depth",
				Help:      "Records waiting for a dispatch worker",
			},
		),
	}

	m.registry.MustRegister(
		m.State, m.Sessions, m.SessionDuration, m.Faults, m.Bytes,
		m.Records, m.DiscardedRecords, m.DiscardedBytes, m.QueueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Expose every fault kind from the start so rates work before the first fault.
	for _, k := range domain.AllFaultKinds() {
		m.Faults.WithLabelValues(k.String())
	}
	return m
}

// Registry returns the registry holding every metric.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) OnStateChange(previous, current string) {
	m.State.WithLabelValues(previous).Set(0)
	m.State.WithLabelValues(current).Set(1)
}

func (m *Metrics) OnSessionStart(sessionID string) {
	m.Sessions.Inc()
}

func (m *Metrics) OnSessionEnd(session domain.Session, discarded int) {
	m.SessionDuration.Observe(session.Duration().Seconds())
	if discarded > 0 {
		m.DiscardedRecords.Inc()
		m.DiscardedBytes.Add(float64(discarded))
	}
}

func (m *Metrics) OnFault(kind domain.FaultKind) {
	m.Faults.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) OnBytes(compressed, inflated int) {
	m.Bytes.WithLabelValues("compressed").Add(float64(compressed))
	m.Bytes.WithLabelValues("inflated").Add(float64(inflated))
}

func (m *Metrics) OnRecordFramed()    { m.Records.WithLabelValues("framed").Inc() }
func (m *Metrics) OnRecordWritten()   { m.Records.WithLabelValues("written").Inc() }
func (m *Metrics) OnRecordMalformed() { m.Records.WithLabelValues("malformed").Inc() }

func (m *Metrics) OnQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}
