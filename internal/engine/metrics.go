package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Traffic: количество проверок по типу и итогу
	ChecksTotal *prometheus.CounterVec

	// Latency: время вычисления вердикта
	CheckDuration *prometheus.HistogramVec

	// Violations: источники нарушений (prohibited, pattern, rule, emergency_stop, fault)
	Violations *prometheus.CounterVec

	// State: 1 при активной аварийной остановке
	EmergencyStopActive prometheus.Gauge

	// Audit: размер журнала в памяти
	AuditEntries prometheus.Gauge

	reg prometheus.Registerer
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object: если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		ChecksTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "safety_checks_total",
			Help: "Total number of safety checks by kind, level and outcome.",
		}, []string{"kind", "level", "approved"}),

		CheckDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safety_check_duration_seconds",
			Help:    "Histogram of safety check latencies.",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"kind"}),

		Violations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "safety_violations_total",
			Help: "Total number of violations by source.",
		}, []string{"source"}),

		EmergencyStopActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "safety_emergency_stop_active",
			Help: "Emergency stop state (0=normal, 1=stopped).",
		}),

		AuditEntries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "safety_audit_entries",
			Help: "Current number of entries in the in-memory audit trail.",
		}),

		reg: reg,
	}
}

// ObserveAuditSink экспортирует заполненность буфера и число отброшенных записей стока.
func (m *Metrics) ObserveAuditSink(pending func() int, dropped func() int64) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "safety_audit_sink_pending",
		Help: "Current number of audit entries waiting to be flushed.",
	}, func() float64 { return float64(pending()) })

	promauto.With(m.reg).NewCounterFunc(prometheus.CounterOpts{
		Name: "safety_audit_sink_dropped_total",
		Help: "Total number of audit entries dropped by the sink.",
	}, func() float64 { return float64(dropped()) })
}
