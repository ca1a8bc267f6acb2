package postgresrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"csc-ledger/internal/models"
)

const entitlementColumns = `id, owner_id, owner_kind, package_ref, total_credits, used_credits,
		purchased_at, expires_at, purchase_reference`

type EntitlementRepository struct {
	db *sqlx.DB
}

func NewEntitlementRepository(db *sqlx.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

// InsertEntitlement relies on the unique purchase_reference index for idempotency.
func (r *EntitlementRepository) InsertEntitlement(ctx context.Context, e *models.Entitlement) (bool, error) {
	query := `
		INSERT INTO entitlements
		(id, owner_id, owner_kind, package_ref, total_credits, used_credits,
		 purchased_at, expires_at, purchase_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (purchase_reference) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		e.ID, e.OwnerID, e.OwnerKind, e.PackageRef, e.TotalCredits, e.UsedCredits,
		e.PurchasedAt, e.ExpiresAt, e.PurchaseReference,
	)
	if err != nil {
		return false, mapPQError(err, "failed to insert entitlement")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *EntitlementRepository) GetEntitlement(ctx context.Context, entitlementID string) (*models.Entitlement, error) {
	if !isRowID(entitlementID) {
		return nil, models.ErrEntitlementNotFound
	}

	var e models.Entitlement
	query := `SELECT ` + entitlementColumns + ` FROM entitlements WHERE id = $1`

	if err := r.db.GetContext(ctx, &e, query, entitlementID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrEntitlementNotFound
		}
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return &e, nil
}

func (r *EntitlementRepository) GetEntitlementByReference(ctx context.Context, purchaseReference string) (*models.Entitlement, error) {
	var e models.Entitlement
	query := `SELECT ` + entitlementColumns + ` FROM entitlements WHERE purchase_reference = $1`

	if err := r.db.GetContext(ctx, &e, query, purchaseReference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrEntitlementNotFound
		}
		return nil, fmt.Errorf("failed to get entitlement by reference: %w", err)
	}
	return &e, nil
}

func (r *EntitlementRepository) ListEntitlements(ctx context.Context, ownerID string, ownerKind models.OwnerKind) ([]models.Entitlement, error) {
	query := `
		SELECT ` + entitlementColumns + `
		FROM entitlements
		WHERE owner_id = $1 AND owner_kind = $2
		ORDER BY purchased_at ASC, id ASC
	`

	entitlements := []models.Entitlement{}
	if err := r.db.SelectContext(ctx, &entitlements, query, ownerID, ownerKind); err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}
	return entitlements, nil
}

func (r *EntitlementRepository) ListConsumable(ctx context.Context, ownerID string, ownerKind models.OwnerKind, now time.Time) ([]models.Entitlement, error) {
	query := `
		SELECT ` + entitlementColumns + `
		FROM entitlements
		WHERE owner_id = $1 AND owner_kind = $2
		  AND used_credits < total_credits
		  AND expires_at >= $3
		ORDER BY purchased_at ASC, id ASC
	`

	entitlements := []models.Entitlement{}
	if err := r.db.SelectContext(ctx, &entitlements, query, ownerID, ownerKind, now); err != nil {
		return nil, fmt.Errorf("failed to list consumable entitlements: %w", err)
	}
	return entitlements, nil
}

// IncrementUsed is a single conditional UPDATE; the row lock it takes makes
// the guard and the increment atomic. ok is false when the guard no longer holds.
func (r *EntitlementRepository) IncrementUsed(ctx context.Context, entitlementID string, now time.Time) (int, bool, error) {
	query := `
		UPDATE entitlements
		SET used_credits = used_credits + 1
		WHERE id = $1
		  AND used_credits < total_credits
		  AND expires_at >= $2
		RETURNING total_credits - used_credits
	`

	var remaining int
	err := r.db.QueryRowxContext(ctx, query, entitlementID, now).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, mapPQError(err, "failed to consume entitlement credit")
	}
	return remaining, true, nil
}

func (r *EntitlementRepository) DecrementUsed(ctx context.Context, entitlementID string) (int, bool, error) {
	if !isRowID(entitlementID) {
		return 0, false, models.ErrEntitlementNotFound
	}

	query := `
		UPDATE entitlements
		SET used_credits = used_credits - 1
		WHERE id = $1
		  AND used_credits > 0
		RETURNING total_credits - used_credits
	`

	var remaining int
	err := r.db.QueryRowxContext(ctx, query, entitlementID).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, mapPQError(err, "failed to release entitlement credit")
	}
	return remaining, true, nil
}
