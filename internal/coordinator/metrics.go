package coordinator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
)

// Metrics holds the Prometheus collectors for order placement. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	sagas            *prometheus.CounterVec
	stepDuration     *prometheus.HistogramVec
	shipmentFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sagas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_sagas_total",
			Help: "Order placement workflows by outcome.",
		}, []string{"outcome"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orchestrator_step_duration_seconds",
			Help:    "Duration of each workflow step.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "result"}),
		shipmentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchestrator_shipment_failures_total",
			Help: "Shipments that failed after payment had settled.",
		}),
	}
	reg.MustRegister(m.sagas, m.stepDuration, m.shipmentFailures)
	return m
}

func (m *Metrics) observeStep(stage entity.Stage, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.stepDuration.WithLabelValues(string(stage), result).Observe(time.Since(started).Seconds())
}

func (m *Metrics) sagaFinished(outcome string) {
	if m == nil {
		return
	}
	m.sagas.WithLabelValues(outcome).Inc()
}

func (m *Metrics) shipmentFailed() {
	if m == nil {
		return
	}
	m.shipmentFailures.Inc()
}
