package models

import "time"

type LedgerEventType string

const (
	EventEntitlementGranted  LedgerEventType = "entitlement.granted"
	EventEntitlementConsumed LedgerEventType = "entitlement.consumed"
	EventEntitlementReleased LedgerEventType = "entitlement.released"
	EventWalletCredited      LedgerEventType = "wallet.credited"
	EventWalletBonus         LedgerEventType = "wallet.bonus"
	EventWalletDebited       LedgerEventType = "wallet.debited"
	EventWithdrawalRequested LedgerEventType = "withdrawal.requested"
	EventWithdrawalApproved  LedgerEventType = "withdrawal.approved"
	EventWithdrawalRejected  LedgerEventType = "withdrawal.rejected"
	EventWithdrawalCancelled LedgerEventType = "withdrawal.cancelled"
)

// LedgerEvent is published after a mutation commits.
type LedgerEvent struct {
	Type          LedgerEventType   `json:"type"`
	OwnerID       string            `json:"owner_id"`
	OwnerKind     OwnerKind         `json:"owner_kind"`
	EntitlementID string            `json:"entitlement_id,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
	Amount        int64             `json:"amount,omitempty"`
	Remaining     *int              `json:"remaining,omitempty"`
	Status        TransactionStatus `json:"status,omitempty"`
	Reference     string            `json:"reference,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

type PaymentEventKind string

const (
	PaymentEntitlementPurchased PaymentEventKind = "entitlement.purchased"
	PaymentCommissionEarned     PaymentEventKind = "commission.earned"
	PaymentBonusAwarded         PaymentEventKind = "bonus.awarded"
)

// PaymentEvent is consumed from the payments topic after the adapter verified it.
type PaymentEvent struct {
	Kind         PaymentEventKind `json:"kind"`
	OwnerID      string           `json:"owner_id"`
	OwnerKind    OwnerKind        `json:"owner_kind"`
	PackageRef   string           `json:"package_ref,omitempty"`
	TotalCredits int              `json:"total_credits,omitempty"`
	ValidityDays int              `json:"validity_days,omitempty"`
	Amount       int64            `json:"amount,omitempty"`
	Reference    string           `json:"reference"`
	TaskID       string           `json:"task_id,omitempty"`
}
