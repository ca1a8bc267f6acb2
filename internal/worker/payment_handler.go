package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"csc-ledger/internal/logging"
	"csc-ledger/internal/metrics"
	"csc-ledger/internal/models"
)

type EntitlementGranter interface {
	Grant(ctx context.Context, req models.GrantRequest) (*models.GrantResponse, error)
}

type WalletEarner interface {
	Credit(ctx context.Context, req models.CreditRequest) (*models.TransactionCreateResponse, error)
	Bonus(ctx context.Context, req models.CreditRequest) (*models.TransactionCreateResponse, error)
}

// PaymentHandler applies verified payment events to the ledger. Every call it
// makes is idempotent by reference, so a redelivered event is harmless.
type PaymentHandler struct {
	entitlements EntitlementGranter
	wallets      WalletEarner
	logger       *logrus.Logger
}

func NewPaymentHandler(entitlements EntitlementGranter, wallets WalletEarner, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		entitlements: entitlements,
		wallets:      wallets,
		logger:       logger,
	}
}

// HandleOwnerEvents applies one owner's events in order. A rejected event is
// skipped; any other failure stops the owner so later events never overtake it,
// and the failed event is the first one not counted as handled.
func (h *PaymentHandler) HandleOwnerEvents(ctx context.Context, owner string, events []models.PaymentEvent) (int, error) {
	for i, event := range events {
		err := h.apply(ctx, event)
		if err == nil {
			metrics.WorkerEventsTotal.WithLabelValues(string(event.Kind), "ok").Inc()
			continue
		}

		log := h.logger.WithError(err).WithFields(logging.Fields{
			"owner":     owner,
			"kind":      event.Kind,
			"reference": event.Reference,
		})
		if isRejected(err) {
			metrics.WorkerEventsTotal.WithLabelValues(string(event.Kind), "skipped").Inc()
			log.Warn("Payment event rejected, skipping")
			continue
		}

		metrics.WorkerEventsTotal.WithLabelValues(string(event.Kind), "failed").Inc()
		return i, fmt.Errorf("event %d of %d (%s %s): %w", i+1, len(events), event.Kind, event.Reference, err)
	}
	return len(events), nil
}

func (h *PaymentHandler) apply(ctx context.Context, event models.PaymentEvent) error {
	switch event.Kind {
	case models.PaymentEntitlementPurchased:
		_, err := h.entitlements.Grant(ctx, models.GrantRequest{
			OwnerID:           event.OwnerID,
			OwnerKind:         event.OwnerKind,
			PackageRef:        event.PackageRef,
			TotalCredits:      event.TotalCredits,
			ValidityDays:      event.ValidityDays,
			PurchaseReference: event.Reference,
		})
		return err

	case models.PaymentCommissionEarned:
		_, err := h.wallets.Credit(ctx, earning(event))
		return err

	case models.PaymentBonusAwarded:
		_, err := h.wallets.Bonus(ctx, earning(event))
		return err

	default:
		return fmt.Errorf("%w: unknown payment event kind %q", errUnknownKind, event.Kind)
	}
}

var errUnknownKind = errors.New("unsupported event")

func earning(event models.PaymentEvent) models.CreditRequest {
	return models.CreditRequest{
		CenterID:  event.OwnerID,
		Amount:    event.Amount,
		Reference: event.Reference,
		TaskID:    event.TaskID,
	}
}

// isRejected reports failures that redelivery cannot fix.
func isRejected(err error) bool {
	return errors.Is(err, errUnknownKind) ||
		errors.Is(err, models.ErrInvalidPackage) ||
		errors.Is(err, models.ErrInvalidAmount) ||
		errors.Is(err, models.ErrMissingReference) ||
		errors.Is(err, models.ErrDuplicateReference)
}
