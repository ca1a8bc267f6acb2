package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"csc-ledger/internal/logging"
	"csc-ledger/internal/metrics"
	"csc-ledger/internal/models"

	"github.com/google/uuid"
)

// EntitlementService grants purchased credit packages and consumes them one credit at a time.
type EntitlementService struct {
	store EntitlementStore
	opts  options
}

func NewEntitlementService(store EntitlementStore, opts ...Option) *EntitlementService {
	return &EntitlementService{
		store: store,
		opts:  newOptions(opts),
	}
}

// Grant records a confirmed purchase. Replaying the same purchase reference
// returns the original entitlement instead of creating a second one.
func (s *EntitlementService) Grant(ctx context.Context, req models.GrantRequest) (*models.GrantResponse, error) {
	start := time.Now()
	resp, err := s.grant(ctx, req)
	metrics.Observe("grant", start, err)
	return resp, err
}

func (s *EntitlementService) grant(ctx context.Context, req models.GrantRequest) (*models.GrantResponse, error) {
	if err := validateGrant(req); err != nil {
		return nil, err
	}

	now := s.opts.now().UTC()
	entitlement := &models.Entitlement{
		ID:                uuid.New().String(),
		OwnerID:           req.OwnerID,
		OwnerKind:         req.OwnerKind,
		PackageRef:        req.PackageRef,
		TotalCredits:      req.TotalCredits,
		UsedCredits:       0,
		PurchasedAt:       now,
		ExpiresAt:         now.AddDate(0, 0, req.ValidityDays),
		PurchaseReference: req.PurchaseReference,
	}

	created, err := retry(ctx, &s.opts, "grant", func() (bool, error) {
		return s.store.InsertEntitlement(ctx, entitlement)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert entitlement: %w", err)
	}

	log := s.opts.logger.WithFields(logging.Fields{
		"owner_id":           req.OwnerID,
		"owner_kind":         req.OwnerKind,
		"purchase_reference": req.PurchaseReference,
	})

	if created {
		log.WithField("entitlement_id", entitlement.ID).Info("Entitlement granted")
		remaining := entitlement.TotalCredits
		s.opts.publish(ctx, models.LedgerEvent{
			Type:          models.EventEntitlementGranted,
			OwnerID:       entitlement.OwnerID,
			OwnerKind:     entitlement.OwnerKind,
			EntitlementID: entitlement.ID,
			Remaining:     &remaining,
			Reference:     entitlement.PurchaseReference,
		})
		return &models.GrantResponse{EntitlementID: entitlement.ID, Created: true}, nil
	}

	existing, err := s.store.GetEntitlementByReference(ctx, req.PurchaseReference)
	if err != nil {
		return nil, fmt.Errorf("failed to load entitlement for existing reference: %w", err)
	}
	if req.Strict {
		return nil, fmt.Errorf("purchase reference %q: %w", req.PurchaseReference, models.ErrDuplicateReference)
	}
	if existing.OwnerID != req.OwnerID || existing.OwnerKind != req.OwnerKind {
		log.WithField("entitlement_id", existing.ID).Warn("Purchase reference reused by a different owner")
		return nil, fmt.Errorf("purchase reference %q belongs to another owner: %w", req.PurchaseReference, models.ErrDuplicateReference)
	}

	log.WithField("entitlement_id", existing.ID).Debug("Grant replayed, returning existing entitlement")
	return &models.GrantResponse{EntitlementID: existing.ID, Created: false}, nil
}

// Consume spends one credit from the owner's oldest consumable entitlement.
func (s *EntitlementService) Consume(ctx context.Context, ownerID string, ownerKind models.OwnerKind) (*models.ConsumeResult, error) {
	start := time.Now()
	result, err := s.consume(ctx, ownerID, ownerKind)
	metrics.Observe("consume", start, err)
	return result, err
}

func (s *EntitlementService) consume(ctx context.Context, ownerID string, ownerKind models.OwnerKind) (*models.ConsumeResult, error) {
	if err := validateOwner(ownerID, ownerKind, models.ErrNoActiveEntitlement); err != nil {
		return nil, err
	}

	result, err := retry(ctx, &s.opts, "consume", func() (*models.ConsumeResult, error) {
		return s.consumeOnce(ctx, ownerID, ownerKind)
	})
	if err != nil {
		return nil, err
	}

	s.opts.logger.WithFields(logging.Fields{
		"owner_id":          ownerID,
		"owner_kind":        ownerKind,
		"entitlement_id":    result.EntitlementID,
		"remaining_credits": result.RemainingCredits,
	}).Info("Entitlement credit consumed")

	remaining := result.RemainingCredits
	s.opts.publish(ctx, models.LedgerEvent{
		Type:          models.EventEntitlementConsumed,
		OwnerID:       ownerID,
		OwnerKind:     ownerKind,
		EntitlementID: result.EntitlementID,
		Remaining:     &remaining,
	})
	return result, nil
}

// consumeOnce walks the candidates oldest first. Each write re-checks the guard,
// so losing a race on one entitlement moves on to the next-oldest one.
func (s *EntitlementService) consumeOnce(ctx context.Context, ownerID string, ownerKind models.OwnerKind) (*models.ConsumeResult, error) {
	now := s.opts.now()

	candidates, err := s.store.ListConsumable(ctx, ownerID, ownerKind, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list consumable entitlements: %w", err)
	}
	if len(candidates) == 0 {
		return nil, models.ErrNoActiveEntitlement
	}

	for _, candidate := range candidates {
		remaining, ok, err := s.store.IncrementUsed(ctx, candidate.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to consume entitlement %s: %w", candidate.ID, err)
		}
		if !ok {
			continue
		}
		if remaining < 0 || remaining >= candidate.TotalCredits {
			return nil, fmt.Errorf("entitlement %s has %d remaining of %d: %w",
				candidate.ID, remaining, candidate.TotalCredits, models.ErrInvariantViolation)
		}
		return &models.ConsumeResult{
			EntitlementID:    candidate.ID,
			RemainingCredits: remaining,
		}, nil
	}

	return nil, models.ErrEntitlementExhausted
}

// Release gives back a credit spent by Consume whose purchase could not be
// recorded. The credit returns to the same entitlement, even if it has since expired.
func (s *EntitlementService) Release(ctx context.Context, ownerID string, ownerKind models.OwnerKind, entitlementID string) error {
	start := time.Now()
	err := s.release(ctx, ownerID, ownerKind, entitlementID)
	metrics.Observe("release", start, err)
	return err
}

func (s *EntitlementService) release(ctx context.Context, ownerID string, ownerKind models.OwnerKind, entitlementID string) error {
	type released struct {
		remaining int
		ok        bool
	}
	result, err := retry(ctx, &s.opts, "release", func() (released, error) {
		remaining, ok, err := s.store.DecrementUsed(ctx, entitlementID)
		return released{remaining: remaining, ok: ok}, err
	})
	if err != nil {
		return fmt.Errorf("failed to release credit of entitlement %s: %w", entitlementID, err)
	}
	if !result.ok {
		return fmt.Errorf("entitlement %s has no used credit to release: %w", entitlementID, models.ErrInvariantViolation)
	}

	s.opts.logger.WithFields(logging.Fields{
		"owner_id":          ownerID,
		"owner_kind":        ownerKind,
		"entitlement_id":    entitlementID,
		"remaining_credits": result.remaining,
	}).Info("Entitlement credit released")

	remaining := result.remaining
	s.opts.publish(ctx, models.LedgerEvent{
		Type:          models.EventEntitlementReleased,
		OwnerID:       ownerID,
		OwnerKind:     ownerKind,
		EntitlementID: entitlementID,
		Remaining:     &remaining,
	})
	return nil
}

// Status is a pure read of the derived entitlement status.
func (s *EntitlementService) Status(ctx context.Context, entitlementID string) (*models.EntitlementStatusResponse, error) {
	entitlement, err := s.store.GetEntitlement(ctx, entitlementID)
	if err != nil {
		return nil, err
	}
	if err := entitlement.CheckInvariant(); err != nil {
		return nil, fmt.Errorf("entitlement %s: %w", entitlement.ID, err)
	}

	return &models.EntitlementStatusResponse{
		EntitlementID:    entitlement.ID,
		Status:           entitlement.StatusAt(s.opts.now()),
		RemainingCredits: entitlement.RemainingCredits(),
		ExpiresAt:        entitlement.ExpiresAt,
	}, nil
}

// List returns every entitlement of the owner with derived fields and a summary.
func (s *EntitlementService) List(ctx context.Context, ownerID string, ownerKind models.OwnerKind) (*models.OwnerEntitlementsResponse, error) {
	if err := validateOwner(ownerID, ownerKind, models.ErrEntitlementNotFound); err != nil {
		return nil, err
	}

	entitlements, err := s.store.ListEntitlements(ctx, ownerID, ownerKind)
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}

	now := s.opts.now()
	resp := &models.OwnerEntitlementsResponse{
		Summary: models.EntitlementSummary{
			OwnerID:        ownerID,
			OwnerKind:      ownerKind,
			NeverPurchased: len(entitlements) == 0,
		},
		Entitlements: make([]models.EntitlementView, 0, len(entitlements)),
	}

	for _, e := range entitlements {
		status := e.StatusAt(now)
		switch status {
		case models.EntitlementStatusActive:
			resp.Summary.ActiveCount++
			resp.Summary.ActiveCredits += e.RemainingCredits()
		case models.EntitlementStatusExhausted:
			resp.Summary.ExhaustedCount++
		case models.EntitlementStatusExpired:
			resp.Summary.ExpiredCount++
		}
		resp.Entitlements = append(resp.Entitlements, models.EntitlementView{
			Entitlement:      e,
			Status:           status,
			RemainingCredits: e.RemainingCredits(),
		})
	}

	return resp, nil
}

func validateGrant(req models.GrantRequest) error {
	switch {
	case req.TotalCredits < 1:
		return models.NewValidationError(models.ErrInvalidPackage, "totalCredits", "must be at least 1")
	case req.ValidityDays < 1:
		return models.NewValidationError(models.ErrInvalidPackage, "validityDays", "must be at least 1")
	case strings.TrimSpace(req.PurchaseReference) == "":
		return models.NewValidationError(models.ErrInvalidPackage, "purchaseReference", "is required")
	case strings.TrimSpace(req.PackageRef) == "":
		return models.NewValidationError(models.ErrInvalidPackage, "packageRef", "is required")
	}
	return validateOwner(req.OwnerID, req.OwnerKind, models.ErrInvalidPackage)
}

func validateOwner(ownerID string, ownerKind models.OwnerKind, kind error) error {
	if strings.TrimSpace(ownerID) == "" {
		return models.NewValidationError(kind, "ownerId", "is required")
	}
	if !ownerKind.Valid() {
		return models.NewValidationError(kind, "ownerKind", fmt.Sprintf("unknown owner kind %q", ownerKind))
	}
	return nil
}

// IsNoActiveEntitlement reports whether err is the unified consume failure.
func IsNoActiveEntitlement(err error) bool {
	return errors.Is(err, models.ErrNoActiveEntitlement)
}

// Summary returns only the totals of List.
func (s *EntitlementService) Summary(ctx context.Context, ownerID string, ownerKind models.OwnerKind) (*models.EntitlementSummary, error) {
	resp, err := s.List(ctx, ownerID, ownerKind)
	if err != nil {
		return nil, err
	}
	return &resp.Summary, nil
}
