// Package metrics объявляет счетчики Prometheus биллингового сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения метки outcome для WebhookEvents.
const (
	OutcomeAccepted    = "accepted"
	OutcomeBadRequest  = "bad_request"
	OutcomeRejectedSig = "rejected_signature"
	OutcomeDuplicate   = "duplicate"
)

var (
	// WebhookEvents считает входящие webhook-запросы по исходу.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Webhook deliveries by outcome.",
	}, []string{"outcome"})

	// RateLimited считает запросы, отклоненные воротами допуска.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_webhook_rate_limited_total",
		Help: "Webhook deliveries rejected by the sliding-window gate.",
	})

	// ReconcileFailures считает сбои фоновой сверки по стадиям.
	ReconcileFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_reconcile_failures_total",
		Help: "Background reconciliation failures by stage.",
	}, []string{"stage"})

	// PoolRejections считает задачи, не принятые пулом из-за переполнения.
	PoolRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_worker_pool_rejections_total",
		Help: "Reconciliation tasks rejected because the pool queue was full.",
	})
)
