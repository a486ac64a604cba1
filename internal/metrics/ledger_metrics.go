package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics содержит метрики журнала заказов и учёта стока.
type LedgerMetrics struct {
	// Счётчики операций
	ordersCreated prometheus.Counter
	ordersDeleted prometheus.Counter
	statusUpdates prometheus.Counter
	// Отклонённые запросы по причинам: insufficient_stock, not_found, invalid.
	ordersRejected *prometheus.CounterVec

	// Гистограммы времени выполнения workflow
	workflowDuration *prometheus.HistogramVec

	// Счётчики сопутствующих событий
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
	stockAdjusted  prometheus.Counter
}

// NewLedgerMetrics создаёт новый экземпляр метрик журнала заказов.
func NewLedgerMetrics() *LedgerMetrics {
	return newLedgerMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newLedgerMetricsWithRegisterer(registerer prometheus.Registerer) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &LedgerMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flora_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flora_orders_deleted_total",
			Help: "Total number of orders deleted with stock restored",
		}),
		statusUpdates: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flora_order_status_updates_total",
			Help: "Total number of order status updates",
		}),
		ordersRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "flora_orders_rejected_total",
			Help: "Total number of rejected order requests grouped by reason",
		}, []string{"reason"}),
		workflowDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "flora_order_workflow_duration_seconds",
			Help:    "Duration of order workflows in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"workflow"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flora_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flora_outbox_enqueued_total",
			Help: "Total number of events enqueued to the transactional outbox",
		}),
		stockAdjusted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flora_stock_adjustments_total",
			Help: "Total number of committed stock adjustments",
		}),
	}
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *LedgerMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *LedgerMetrics) RecordOrderDeleted() {
	m.ordersDeleted.Inc()
}

// RecordStatusUpdate увеличивает счётчик смен статуса.
func (m *LedgerMetrics) RecordStatusUpdate() {
	m.statusUpdates.Inc()
}

// RecordOrderRejected увеличивает счётчик отклонённых запросов по причине.
func (m *LedgerMetrics) RecordOrderRejected(reason string) {
	m.ordersRejected.WithLabelValues(reason).Inc()
}

// RecordWorkflowDuration записывает время выполнения workflow.
func (m *LedgerMetrics) RecordWorkflowDuration(workflow string, duration time.Duration) {
	m.workflowDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *LedgerMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий, поставленных в outbox.
func (m *LedgerMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordStockAdjustment увеличивает счётчик зафиксированных изменений стока.
func (m *LedgerMetrics) RecordStockAdjustment() {
	m.stockAdjusted.Inc()
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
