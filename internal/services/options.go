package services

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"

	"csc-ledger/internal/logging"
	"csc-ledger/internal/metrics"
	"csc-ledger/internal/models"
)

const defaultMaxRetries = 3

type Option func(*options)

type options struct {
	now        func() time.Time
	maxRetries int
	logger     *logrus.Logger
	publisher  EventPublisher
	cache      BalanceCache
}

func newOptions(opts []Option) options {
	o := options{
		now:        time.Now,
		maxRetries: defaultMaxRetries,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source used for expiry and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMaxRetries bounds how many times a ConcurrencyConflict is retried.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithBalanceCache(c BalanceCache) Option {
	return func(o *options) { o.cache = c }
}

// retry runs fn again on ErrConcurrencyConflict, at most maxRetries extra times.
func retry[T any](ctx context.Context, o *options, operation string, fn func() (T, error)) (T, error) {
	policy := retrypolicy.NewBuilder[T]().
		HandleIf(func(_ T, err error) bool {
			return models.IsRetryable(err)
		}).
		WithMaxRetries(o.maxRetries).
		WithBackoff(5*time.Millisecond, 100*time.Millisecond).
		WithJitterFactor(0.1).
		ReturnLastFailure().
		Build()

	attempt := 0
	return failsafe.With(policy).WithContext(ctx).Get(func() (T, error) {
		if attempt > 0 {
			metrics.RetriesTotal.WithLabelValues(operation).Inc()
		}
		attempt++
		return fn()
	})
}

// publish ships a committed event; the mutation already happened, so failures only log.
func (o *options) publish(ctx context.Context, event models.LedgerEvent) {
	if o.publisher == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = o.now()
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.WithError(err).WithFields(logging.Fields{
			"event_type": event.Type,
			"owner_id":   event.OwnerID,
		}).Warn("Failed to publish ledger event")
	}
}
