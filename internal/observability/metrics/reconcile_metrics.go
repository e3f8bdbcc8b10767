package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics tracks the booking/invoice repair loop: how many records
// it fixes, how many remain, and how stale the oldest pending record is.
type ReconcileMetrics struct {
	repairsProcessed *prometheus.CounterVec
	backlog          *prometheus.GaugeVec
	backlogOldest    *prometheus.GaugeVec
	runDuration      prometheus.Histogram
}

var (
	reconcileMetricsOnce sync.Once
	reconcileMetrics     *ReconcileMetrics
)

func Reconcile() *ReconcileMetrics {
	return ReconcileWithConfig(Config{})
}

func ReconcileWithConfig(cfg Config) *ReconcileMetrics {
	reconcileMetricsOnce.Do(func() {
		reconcileMetrics = newReconcileMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconcileMetrics
}

func ResetReconcileMetricsForTest() {
	reconcileMetricsOnce = sync.Once{}
	reconcileMetrics = nil
}

func newReconcileMetrics(registerer prometheus.Registerer, cfg Config) *ReconcileMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "drivelane"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	repairsProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "drivelane_reconcile_repairs_total",
			Help:        "Total booking/invoice repairs processed by the reconciler.",
			ConstLabels: constLabels,
		},
		[]string{"kind", "result"}, // kind: orphan_booking | half_settled; result: repaired | skipped | failed
	)

	backlog := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "drivelane_reconcile_backlog_total",
			Help:        "Number of bookings or invoices still awaiting repair by kind.",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)

	backlogOldest := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "drivelane_reconcile_backlog_oldest_seconds",
			Help:        "Age of the oldest record awaiting repair by kind.",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)

	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "drivelane_reconcile_run_duration_seconds",
			Help:        "Duration of a full reconciler pass.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		repairsProcessed,
		backlog,
		backlogOldest,
		runDuration,
	)

	return &ReconcileMetrics{
		repairsProcessed: repairsProcessed,
		backlog:          backlog,
		backlogOldest:    backlogOldest,
		runDuration:      runDuration,
	}
}

func (m *ReconcileMetrics) IncRepair(kind, result string) {
	if m == nil {
		return
	}
	m.repairsProcessed.WithLabelValues(kind, result).Inc()
}

func (m *ReconcileMetrics) SetBacklog(kind string, value int) {
	if m == nil {
		return
	}
	m.backlog.WithLabelValues(kind).Set(float64(value))
}

func (m *ReconcileMetrics) SetBacklogOldest(kind string, age time.Duration) {
	if m == nil {
		return
	}

	seconds := age.Seconds()
	if seconds < 0 {
		seconds = 0
	}

	m.backlogOldest.WithLabelValues(kind).Set(seconds)
}

func (m *ReconcileMetrics) ObserveRunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}
