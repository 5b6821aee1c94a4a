package metrics

import "github.com/prometheus/client_golang/prometheus"

// Исходы обработки запроса с idempotency-key.
const (
	IdempotencyOutcomeFresh    = "fresh"
	IdempotencyOutcomeReplayed = "replayed"
	IdempotencyOutcomeConflict = "conflict"
	IdempotencyOutcomeInFlight = "in_flight"
)

// IdempotencyMetrics считает повторы запросов и работу очистки ключей.
type IdempotencyMetrics struct {
	requests       *prometheus.CounterVec
	cleanupRuns    *prometheus.CounterVec
	cleanupDeleted prometheus.Counter
	lastDeleted    prometheus.Gauge
}

// NewIdempotencyMetrics создаёт метрики в DefaultRegisterer.
func NewIdempotencyMetrics() *IdempotencyMetrics {
	return NewIdempotencyMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewIdempotencyMetricsWithRegisterer создаёт метрики в указанном реестре.
func NewIdempotencyMetricsWithRegisterer(registerer prometheus.Registerer) *IdempotencyMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &IdempotencyMetrics{
		requests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_idempotency_requests_total",
			Help: "Total number of requests carrying an idempotency key by outcome",
		}, []string{"outcome"}),
		cleanupRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_idempotency_cleanup_runs_total",
			Help: "Total number of idempotency cleanup runs grouped by result",
		}, []string{"result"}),
		cleanupDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_idempotency_cleanup_deleted_total",
			Help: "Total number of deleted expired idempotency records",
		}),
		lastDeleted: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_idempotency_cleanup_last_deleted",
			Help: "Number of deleted records during the last cleanup run",
		}),
	}
}

// RecordRequest учитывает исход обработки ключа.
func (m *IdempotencyMetrics) RecordRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

// RecordDeleted добавляет удалённые записи одной порции.
func (m *IdempotencyMetrics) RecordDeleted(deleted int) {
	if m == nil || deleted <= 0 {
		return
	}
	m.cleanupDeleted.Add(float64(deleted))
}

// RecordCleanupRun учитывает завершённый цикл очистки.
func (m *IdempotencyMetrics) RecordCleanupRun(deleted int, err error) {
	if m == nil {
		return
	}
	m.cleanupRuns.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		m.lastDeleted.Set(float64(deleted))
	}
}
