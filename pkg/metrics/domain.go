package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// DomainMetrics tracks dealer-network business events.
type DomainMetrics struct {
	payoutsCreated      prometheus.Counter
	payoutAmount        prometheus.Counter
	payoutTransitions   *prometheus.CounterVec
	orderTransitions    *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec
}

// NewDomainMetrics registers the domain counters on reg. A nil registerer
// yields a no-op recorder.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		payoutsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payouts_created_total",
			Help: "Dealer payouts created.",
		}),
		payoutAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payouts_created_amount_total",
			Help: "Sum of created payout amounts.",
		}),
		payoutTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_status_transitions_total",
			Help: "Payout status changes by target status.",
		}, []string{"status"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Order status changes by source and target status.",
		}, []string{"from", "to"}),
		notificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Best-effort notifications that could not be delivered.",
		}, []string{"type"}),
	}
	reg.MustRegister(m.payoutsCreated, m.payoutAmount, m.payoutTransitions, m.orderTransitions, m.notificationsFailed)
	return m
}

// PayoutCreated counts a new payout and adds its amount.
func (m *DomainMetrics) PayoutCreated(amount decimal.Decimal) {
	if m == nil || m.payoutsCreated == nil {
		return
	}
	m.payoutsCreated.Inc()
	m.payoutAmount.Add(amount.InexactFloat64())
}

func (m *DomainMetrics) PayoutTransitioned(status string) {
	if m == nil || m.payoutTransitions == nil {
		return
	}
	m.payoutTransitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *DomainMetrics) OrderTransitioned(from, to string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *DomainMetrics) NotificationFailed(kind string) {
	if m == nil || m.notificationsFailed == nil {
		return
	}
	m.notificationsFailed.WithLabelValues(normalizeLabel(kind)).Inc()
}
