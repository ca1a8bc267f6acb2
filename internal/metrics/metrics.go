// Package metrics holds the Prometheus collectors for ledger operations.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"csc-ledger/internal/models"
)

var OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_operations_total",
	Help: "Ledger operations by outcome",
}, []string{"operation", "result"})

var OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ledger_operation_duration_seconds",
	Help:    "Ledger operation latency",
	Buckets: prometheus.DefBuckets,
}, []string{"operation"})

var RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_retries_total",
	Help: "Retries after a concurrency conflict",
}, []string{"operation"})

var WorkerEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_worker_events_total",
	Help: "Payment events handled by the worker",
}, []string{"kind", "result"})

// Observe records one finished operation.
func Observe(operation string, start time.Time, err error) {
	OperationsTotal.WithLabelValues(operation, Result(err)).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Result maps an operation error to a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrInvalidPackage):
		return "invalid_package"
	case errors.Is(err, models.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, models.ErrNoActiveEntitlement):
		return "no_active_entitlement"
	case errors.Is(err, models.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, models.ErrTransactionNotPending):
		return "not_pending"
	case errors.Is(err, models.ErrDuplicateReference):
		return "duplicate_reference"
	case errors.Is(err, models.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, models.ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, models.ErrEntitlementNotFound), errors.Is(err, models.ErrTransactionNotFound):
		return "not_found"
	case errors.Is(err, models.ErrLeadAlreadyAssigned):
		return "lead_assigned"
	default:
		return "error"
	}
}
