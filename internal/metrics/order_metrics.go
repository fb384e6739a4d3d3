package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики операций сервиса заказов.
type OrderMetrics struct {
	// Счётчики use case-ов
	ordersCreated    prometheus.Counter
	itemsAdded       prometheus.Counter
	itemCountChanges prometheus.Counter
	notFoundErrors   *prometheus.CounterVec

	// Метрики batched-завершения
	doneSweeps  prometheus.Counter
	doneBatches prometheus.Counter

	// Гистограммы времени выполнения use case-ов
	useCaseDuration *prometheus.HistogramVec
}

// NewOrderMetrics создаёт новый экземпляр метрик сервиса заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		}),
		itemsAdded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_items_added_total",
			Help: "Total number of order items added to existing orders",
		}),
		itemCountChanges: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_item_count_changes_total",
			Help: "Total number of order item count changes applied",
		}),
		notFoundErrors: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_not_found_total",
			Help: "Total number of lookups that hit a missing order or item",
		}, []string{"entity"}),
		doneSweeps: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_done_sweeps_total",
			Help: "Total number of done-all sweeps executed",
		}),
		doneBatches: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_done_batches_total",
			Help: "Total number of skip-locked batches claimed during sweeps",
		}),
		useCaseDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orders_use_case_duration_seconds",
			Help:    "Duration of order service use cases in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"use_case"}),
	}
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

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordItemAdded увеличивает счётчик добавленных позиций.
func (m *OrderMetrics) RecordItemAdded() {
	m.itemsAdded.Inc()
}

// RecordItemCountChanged увеличивает счётчик применённых изменений количества.
func (m *OrderMetrics) RecordItemCountChanged() {
	m.itemCountChanges.Inc()
}

// RecordNotFound увеличивает счётчик промахов по entity ("order" или "order_item").
func (m *OrderMetrics) RecordNotFound(entity string) {
	m.notFoundErrors.WithLabelValues(entity).Inc()
}

// RecordDoneSweep увеличивает счётчик выполненных sweep-ов.
func (m *OrderMetrics) RecordDoneSweep() {
	m.doneSweeps.Inc()
}

// RecordDoneBatch увеличивает счётчик обработанных батчей.
func (m *OrderMetrics) RecordDoneBatch() {
	m.doneBatches.Inc()
}

// RecordUseCaseDuration записывает время выполнения use case.
func (m *OrderMetrics) RecordUseCaseDuration(useCase string, duration time.Duration) {
	m.useCaseDuration.WithLabelValues(useCase).Observe(duration.Seconds())
}
