package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// VoucherOperationsTotal counts lifecycle operations by outcome.
	VoucherOperationsTotal *prometheus.CounterVec
	// VoucherConflictRetriesTotal counts optimistic-concurrency retries.
	VoucherConflictRetriesTotal *prometheus.CounterVec
	// VoucherRedeemedAmountTotal sums redeemed money.
	VoucherRedeemedAmountTotal prometheus.Counter
	// NotificationsTotal counts notification enqueue and delivery outcomes.
	NotificationsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers voucher collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		VoucherOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_operations_total",
			Help:      "Count of voucher lifecycle operations by outcome.",
		}, []string{"operation", "result"})
		VoucherConflictRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_conflict_retries_total",
			Help:      "Count of voucher writes retried after a version conflict.",
		}, []string{"operation"})
		VoucherRedeemedAmountTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_redeemed_amount_total",
			Help:      "Total money redeemed across all vouchers.",
		})
		NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_notifications_total",
			Help:      "Count of voucher notification outcomes by stage.",
		}, []string{"stage", "result"})

		mustRegisterCollector(reg, VoucherOperationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VoucherOperationsTotal = v
			}
		})
		mustRegisterCollector(reg, VoucherConflictRetriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VoucherConflictRetriesTotal = v
			}
		})
		mustRegisterCollector(reg, VoucherRedeemedAmountTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				VoucherRedeemedAmountTotal = v
			}
		})
		mustRegisterCollector(reg, NotificationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				NotificationsTotal = v
			}
		})
	})
}

// ObserveVoucherOperation is a no-op until MustRegisterDomainMetrics ran.
func ObserveVoucherOperation(operation, result string) {
	if VoucherOperationsTotal != nil {
		VoucherOperationsTotal.WithLabelValues(operation, result).Inc()
	}
}

// ObserveConflictRetry records one retried write.
func ObserveConflictRetry(operation string) {
	if VoucherConflictRetriesTotal != nil {
		VoucherConflictRetriesTotal.WithLabelValues(operation).Inc()
	}
}

// ObserveRedeemedAmount adds amount to the redeemed total.
func ObserveRedeemedAmount(amount float64) {
	if VoucherRedeemedAmountTotal != nil && amount > 0 {
		VoucherRedeemedAmountTotal.Add(amount)
	}
}

// ObserveNotification records a notification outcome for stage enqueue or deliver.
func ObserveNotification(stage, result string) {
	if NotificationsTotal != nil {
		NotificationsTotal.WithLabelValues(stage, result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
