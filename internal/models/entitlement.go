package models

import "time"

// OwnerKind identifies who holds an entitlement.
type OwnerKind string

const (
	OwnerKindUser   OwnerKind = "user"
	OwnerKindCenter OwnerKind = "center"
)

func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerKindUser, OwnerKindCenter:
		return true
	default:
		return false
	}
}

// EntitlementStatus is derived at read time and never persisted.
type EntitlementStatus string

const (
	EntitlementStatusActive    EntitlementStatus = "active"
	EntitlementStatusExhausted EntitlementStatus = "exhausted"
	EntitlementStatusExpired   EntitlementStatus = "expired"
)

// Database model
type Entitlement struct {
	ID                string    `db:"id" json:"id"`
	OwnerID           string    `db:"owner_id" json:"ownerId"`
	OwnerKind         OwnerKind `db:"owner_kind" json:"ownerKind"`
	PackageRef        string    `db:"package_ref" json:"packageRef"`
	TotalCredits      int       `db:"total_credits" json:"totalCredits"`
	UsedCredits       int       `db:"used_credits" json:"usedCredits"`
	PurchasedAt       time.Time `db:"purchased_at" json:"purchasedAt"`
	ExpiresAt         time.Time `db:"expires_at" json:"expiresAt"`
	PurchaseReference string    `db:"purchase_reference" json:"purchaseReference"`
}

// RemainingCredits returns totalCredits - usedCredits.
func (e Entitlement) RemainingCredits() int {
	return e.TotalCredits - e.UsedCredits
}

// StatusAt computes the status at the given instant. Expiry wins over exhaustion.
func (e Entitlement) StatusAt(now time.Time) EntitlementStatus {
	switch {
	case now.After(e.ExpiresAt):
		return EntitlementStatusExpired
	case e.RemainingCredits() <= 0:
		return EntitlementStatusExhausted
	default:
		return EntitlementStatusActive
	}
}

// Consumable reports whether the consume guard holds at now.
func (e Entitlement) Consumable(now time.Time) bool {
	return e.UsedCredits < e.TotalCredits && !now.After(e.ExpiresAt)
}

// CheckInvariant reports ErrInvariantViolation when the credit counters are out of range.
func (e Entitlement) CheckInvariant() error {
	if e.TotalCredits < 1 || e.UsedCredits < 0 || e.UsedCredits > e.TotalCredits {
		return ErrInvariantViolation
	}
	return nil
}

type GrantRequest struct {
	OwnerID           string    `json:"ownerId" validate:"required,max=64"`
	OwnerKind         OwnerKind `json:"ownerKind" validate:"required,oneof=user center"`
	PackageRef        string    `json:"packageRef" validate:"required,max=128"`
	TotalCredits      int       `json:"totalCredits" validate:"required,gt=0"`
	ValidityDays      int       `json:"validityDays" validate:"required,gt=0"`
	PurchaseReference string    `json:"purchaseReference" validate:"required,max=255"`
	// Strict rejects an already-used purchase reference instead of returning the existing grant.
	Strict bool `json:"strict,omitempty"`
}

type GrantResponse struct {
	EntitlementID string `json:"entitlementId"`
	Created       bool   `json:"created"`
}

type ConsumeRequest struct {
	OwnerID   string    `json:"ownerId" validate:"required,max=64"`
	OwnerKind OwnerKind `json:"ownerKind" validate:"required,oneof=user center"`
}

type ConsumeResult struct {
	EntitlementID    string `json:"entitlementId"`
	RemainingCredits int    `json:"remainingCredits"`
}

type EntitlementStatusResponse struct {
	EntitlementID    string            `json:"entitlementId"`
	Status           EntitlementStatus `json:"status"`
	RemainingCredits int               `json:"remainingCredits"`
	ExpiresAt        time.Time         `json:"expiresAt"`
}

// EntitlementView is an entitlement together with its derived fields.
type EntitlementView struct {
	Entitlement
	Status           EntitlementStatus `json:"status"`
	RemainingCredits int               `json:"remainingCredits"`
}

type EntitlementSummary struct {
	OwnerID        string    `json:"ownerId"`
	OwnerKind      OwnerKind `json:"ownerKind"`
	ActiveCredits  int       `json:"activeCredits"`
	ActiveCount    int       `json:"activeCount"`
	ExhaustedCount int       `json:"exhaustedCount"`
	ExpiredCount   int       `json:"expiredCount"`
	NeverPurchased bool      `json:"neverPurchased"`
}

type OwnerEntitlementsResponse struct {
	Summary      EntitlementSummary `json:"summary"`
	Entitlements []EntitlementView  `json:"entitlements"`
}
