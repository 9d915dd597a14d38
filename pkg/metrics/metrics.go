// Package metrics exposes prometheus instrumentation for the ledger core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AccrualsProcessed counts investments that received interest in batch runs
	AccrualsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_accruals_processed_total",
		Help: "Number of investments accrued by the batch worker",
	})

	// AccrualFailures counts per-investment accrual failures in batch runs
	AccrualFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_accrual_failures_total",
		Help: "Number of investments whose batch accrual failed",
	})

	// InterestAccrued totals interest credited to gains, in currency units
	InterestAccrued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_interest_accrued_total",
		Help: "Total interest credited to gains by the batch worker",
	})

	// EncashmentsProcessed counts aged accrued-interest auto-encashments
	EncashmentsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_encashments_processed_total",
		Help: "Number of investments auto-encashed by the batch worker",
	})

	// ReferralPayouts counts individual generation payouts
	ReferralPayouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_referral_payouts_total",
		Help: "Number of referral commission payouts by generation",
	}, []string{"generation"})

	// TierRecomputes counts tier valuation runs
	TierRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_tier_recomputes_total",
		Help: "Number of tier recomputations",
	})
)
