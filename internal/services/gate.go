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

// CreditConsumer spends one entitlement credit for an owner and gives it back
// when the purchase it paid for is abandoned.
type CreditConsumer interface {
	Consume(ctx context.Context, ownerID string, ownerKind models.OwnerKind) (*models.ConsumeResult, error)
	Release(ctx context.Context, ownerID string, ownerKind models.OwnerKind, entitlementID string) error
}

// GateService guards credit-gated actions: a job application costs a user
// credit and a lead assignment costs a center credit.
type GateService struct {
	credits CreditConsumer
	store   GateStore
	opts    options
}

func NewGateService(credits CreditConsumer, store GateStore, opts ...Option) *GateService {
	return &GateService{
		credits: credits,
		store:   store,
		opts:    newOptions(opts),
	}
}

// SubmitApplication consumes a user credit, then records the application.
func (s *GateService) SubmitApplication(ctx context.Context, req models.SubmitApplicationRequest) (*models.GateResponse, error) {
	start := time.Now()
	resp, err := s.submitApplication(ctx, req)
	metrics.Observe("submit_application", start, err)
	return resp, err
}

func (s *GateService) submitApplication(ctx context.Context, req models.SubmitApplicationRequest) (*models.GateResponse, error) {
	if strings.TrimSpace(req.JobID) == "" {
		return nil, models.NewValidationError(models.ErrNoActiveEntitlement, "jobId", "is required")
	}

	consumed, err := s.credits.Consume(ctx, req.UserID, models.OwnerKindUser)
	if err != nil {
		return nil, err
	}

	application := &models.JobApplication{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		JobID:         req.JobID,
		EntitlementID: consumed.EntitlementID,
		CreatedAt:     s.opts.now().UTC(),
	}
	if err := s.store.CreateApplication(ctx, application); err != nil {
		s.refund(ctx, req.UserID, models.OwnerKindUser, consumed.EntitlementID)
		return nil, fmt.Errorf("failed to record application: %w", err)
	}

	s.opts.logger.WithFields(logging.Fields{
		"application_id": application.ID,
		"user_id":        req.UserID,
		"job_id":         req.JobID,
	}).Info("Job application submitted")

	return &models.GateResponse{
		ID:               application.ID,
		EntitlementID:    consumed.EntitlementID,
		RemainingCredits: consumed.RemainingCredits,
	}, nil
}

// AssignLead consumes a center credit and records the assignment. A lead is assigned at most once.
func (s *GateService) AssignLead(ctx context.Context, req models.AssignLeadRequest) (*models.GateResponse, error) {
	start := time.Now()
	resp, err := s.assignLead(ctx, req)
	metrics.Observe("assign_lead", start, err)
	return resp, err
}

func (s *GateService) assignLead(ctx context.Context, req models.AssignLeadRequest) (*models.GateResponse, error) {
	if strings.TrimSpace(req.LeadID) == "" {
		return nil, models.NewValidationError(models.ErrNoActiveEntitlement, "leadId", "is required")
	}
	if err := validateOwner(req.CenterID, models.OwnerKindCenter, models.ErrNoActiveEntitlement); err != nil {
		return nil, err
	}

	// Claim the lead first so concurrent assignments of it never both pay.
	err := s.store.ReserveLead(ctx, &models.LeadAssignment{
		LeadID:     req.LeadID,
		CenterID:   req.CenterID,
		AssignedAt: s.opts.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, models.ErrLeadAlreadyAssigned) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to reserve lead %s: %w", req.LeadID, err)
	}

	consumed, err := s.credits.Consume(ctx, req.CenterID, models.OwnerKindCenter)
	if err != nil {
		s.releaseLead(ctx, req.LeadID)
		return nil, err
	}

	if err := s.store.ConfirmLead(ctx, req.LeadID, consumed.EntitlementID); err != nil {
		s.refund(ctx, req.CenterID, models.OwnerKindCenter, consumed.EntitlementID)
		s.releaseLead(ctx, req.LeadID)
		return nil, fmt.Errorf("failed to record lead assignment: %w", err)
	}

	s.opts.logger.WithFields(logging.Fields{
		"lead_id":   req.LeadID,
		"center_id": req.CenterID,
	}).Info("Lead assigned")

	return &models.GateResponse{
		ID:               req.LeadID,
		EntitlementID:    consumed.EntitlementID,
		RemainingCredits: consumed.RemainingCredits,
	}, nil
}

// refund returns a credit whose purchase was not recorded. It runs even when
// the request context is gone, since the credit is already spent.
func (s *GateService) refund(ctx context.Context, ownerID string, ownerKind models.OwnerKind, entitlementID string) {
	if err := s.credits.Release(context.WithoutCancel(ctx), ownerID, ownerKind, entitlementID); err != nil {
		s.opts.logger.WithError(err).WithFields(logging.Fields{
			"owner_id":       ownerID,
			"owner_kind":     ownerKind,
			"entitlement_id": entitlementID,
		}).Error("Credit consumed but its purchase was not recorded and the refund failed")
	}
}

func (s *GateService) releaseLead(ctx context.Context, leadID string) {
	if err := s.store.ReleaseLead(context.WithoutCancel(ctx), leadID); err != nil {
		s.opts.logger.WithError(err).WithField("lead_id", leadID).
			Error("Failed to release lead reservation")
	}
}
