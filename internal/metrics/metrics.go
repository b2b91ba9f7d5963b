// Package metrics объявляет метрики Prometheus, которые пишут сервисы и HTTP-слой.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gym"

var (
	// HTTPRequests число обработанных запросов по маршруту, методу и коду ответа.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Number of HTTP requests.",
	}, []string{"route", "method", "code"})

	// HTTPDuration длительность обработки запросов.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// Enrollments попытки записи на занятия по результату.
	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrollments_total",
		Help:      "Enrollment attempts by result.",
	}, []string{"result"})

	// OrderTransitions переходы статусов заказов.
	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Order status transitions.",
	}, []string{"from", "to"})

	// MembershipActivations активации абонементов по источнику.
	MembershipActivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_activations_total",
		Help:      "Membership activations by source.",
	}, []string{"source"})

	// OutboxEvents события outbox по результату обработки.
	OutboxEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox events by outcome.",
	}, []string{"outcome"})
)

// Результаты записи на занятие.
const (
	ResultOK        = "ok"
	ResultFull      = "full"
	ResultDuplicate = "duplicate"
	ResultError     = "error"
)
