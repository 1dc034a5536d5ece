// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersTotal counts transfer attempts by outcome
	// (ok, insufficient_funds, invalid_amount).
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deltabank",
		Name:      "transfers_total",
		Help:      "Number of transfer operations by result.",
	}, []string{"result"})

	// DanglingDebits reports split transfers whose debit leg has been
	// waiting for its credit leg longer than the configured age.
	DanglingDebits = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "deltabank",
		Name:      "dangling_debits",
		Help:      "Debit legs older than reconcile.max_age with no matching credit leg.",
	})

	// LoansTotal counts loan issuances by outcome (ok, permission_denied).
	LoansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deltabank",
		Name:      "loans_total",
		Help:      "Number of loan issuance attempts by result.",
	}, []string{"result"})
)
