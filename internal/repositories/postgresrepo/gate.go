package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"csc-ledger/internal/models"
)

type GateRepository struct {
	db *sqlx.DB
}

func NewGateRepository(db *sqlx.DB) *GateRepository {
	return &GateRepository{db: db}
}

func (r *GateRepository) CreateApplication(ctx context.Context, a *models.JobApplication) error {
	query := `
		INSERT INTO job_applications (id, user_id, job_id, entitlement_id, created_at)
		VALUES (:id, :user_id, :job_id, :entitlement_id, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// ReserveLead claims the lead before any credit is spent. The primary key makes
// the claim atomic, so of two concurrent assignments exactly one inserts.
func (r *GateRepository) ReserveLead(ctx context.Context, a *models.LeadAssignment) error {
	query := `
		INSERT INTO lead_assignments (lead_id, center_id, entitlement_id, assigned_at)
		VALUES ($1, $2, NULL, $3)
		ON CONFLICT (lead_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, a.LeadID, a.CenterID, a.AssignedAt)
	if err != nil {
		return mapPQError(err, "failed to reserve lead")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reserve lead: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("lead %s: %w", a.LeadID, models.ErrLeadAlreadyAssigned)
	}
	return nil
}

func (r *GateRepository) ConfirmLead(ctx context.Context, leadID, entitlementID string) error {
	query := `
		UPDATE lead_assignments
		SET entitlement_id = $2
		WHERE lead_id = $1 AND entitlement_id IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, leadID, entitlementID)
	if err != nil {
		return mapPQError(err, "failed to confirm lead assignment")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm lead assignment: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("lead %s has no open reservation", leadID)
	}
	return nil
}

func (r *GateRepository) ReleaseLead(ctx context.Context, leadID string) error {
	query := `DELETE FROM lead_assignments WHERE lead_id = $1 AND entitlement_id IS NULL`
	if _, err := r.db.ExecContext(ctx, query, leadID); err != nil {
		return mapPQError(err, "failed to release lead reservation")
	}
	return nil
}
