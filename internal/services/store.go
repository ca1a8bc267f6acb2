package services

import (
	"context"
	"time"

	"csc-ledger/internal/models"
)

// EntitlementStore is the durable record of purchased credit grants.
type EntitlementStore interface {
	// InsertEntitlement inserts e unless its purchase reference already exists,
	// in which case created is false and nothing is written.
	InsertEntitlement(ctx context.Context, e *models.Entitlement) (created bool, err error)
	GetEntitlement(ctx context.Context, entitlementID string) (*models.Entitlement, error)
	GetEntitlementByReference(ctx context.Context, purchaseReference string) (*models.Entitlement, error)
	// ListEntitlements returns every grant of the owner, oldest purchase first.
	ListEntitlements(ctx context.Context, ownerID string, ownerKind models.OwnerKind) ([]models.Entitlement, error)
	// ListConsumable returns grants passing the consume guard at now, oldest purchase first.
	ListConsumable(ctx context.Context, ownerID string, ownerKind models.OwnerKind, now time.Time) ([]models.Entitlement, error)
	// IncrementUsed adds one used credit iff the guard still holds at write time.
	IncrementUsed(ctx context.Context, entitlementID string, now time.Time) (remaining int, ok bool, err error)
	// DecrementUsed gives back one used credit. ok is false when none is used.
	DecrementUsed(ctx context.Context, entitlementID string) (remaining int, ok bool, err error)
}

// WalletStore is the durable record of center wallets and their transaction log.
type WalletStore interface {
	BeginTx(ctx context.Context) (WalletTx, error)
	GetWallet(ctx context.Context, centerID string) (*models.Wallet, error)
	GetTransaction(ctx context.Context, transactionID string) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, centerID string, limit int) ([]models.WalletTransaction, error)
}

// WalletTx is a unit of work over a single wallet. Lock the wallet before
// touching any of its transactions.
type WalletTx interface {
	EnsureWallet(ctx context.Context, centerID string) error
	LockWalletForUpdate(ctx context.Context, centerID string) (*models.Wallet, error)
	LockTransactionForUpdate(ctx context.Context, transactionID string) (*models.WalletTransaction, error)
	GetTransactionByReference(ctx context.Context, reference string) (*models.WalletTransaction, error)
	InsertTransaction(ctx context.Context, t *models.WalletTransaction) error
	UpdateWallet(ctx context.Context, w *models.Wallet) error
	UpdateTransactionStatus(ctx context.Context, t *models.WalletTransaction) error
	Commit() error
	Rollback() error
}

// GateStore records what a consumed credit was spent on.
//
// A lead is claimed in two steps: ReserveLead inserts the row without an
// entitlement, failing with ErrLeadAlreadyAssigned if any row exists, and
// ConfirmLead attaches the entitlement that paid for it. ReleaseLead drops an
// unconfirmed reservation.
type GateStore interface {
	CreateApplication(ctx context.Context, a *models.JobApplication) error
	ReserveLead(ctx context.Context, a *models.LeadAssignment) error
	ConfirmLead(ctx context.Context, leadID, entitlementID string) error
	ReleaseLead(ctx context.Context, leadID string) error
}

// BalanceCache is a read-through cache for Balance. It is never read on a write path.
type BalanceCache interface {
	GetBalance(ctx context.Context, centerID string) (*models.WalletBalanceResponse, error)
	SetBalance(ctx context.Context, balance models.WalletBalanceResponse) error
	DeleteBalance(ctx context.Context, centerID string) error
}

// EventPublisher ships committed ledger events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event models.LedgerEvent) error
}
