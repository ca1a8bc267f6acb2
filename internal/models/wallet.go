package models

import "time"

type TransactionType string

const (
	TransactionTypeCredit     TransactionType = "credit"
	TransactionTypeDebit      TransactionType = "debit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeBonus      TransactionType = "bonus"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusRejected  TransactionStatus = "rejected"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusRejected, TransactionStatusCancelled:
		return true
	case TransactionStatusPending:
		return false
	default:
		return true
	}
}

// WithdrawalOutcome is the admin decision applied to a pending withdrawal.
type WithdrawalOutcome string

const (
	OutcomeApprove WithdrawalOutcome = "approve"
	OutcomeReject  WithdrawalOutcome = "reject"
	OutcomeCancel  WithdrawalOutcome = "cancel"
)

// Database model
type Wallet struct {
	ID                string    `db:"id" json:"walletId"`
	CenterID          string    `db:"center_id" json:"centerId"`
	Balance           int64     `db:"balance" json:"balance"`
	PendingWithdrawal int64     `db:"pending_withdrawal" json:"pendingWithdrawal"`
	TotalEarnings     int64     `db:"total_earnings" json:"totalEarnings"`
	TotalWithdrawn    int64     `db:"total_withdrawn" json:"totalWithdrawn"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
	// Version counts committed updates; cached snapshots never move to a lower one.
	Version int64 `db:"version" json:"version"`
}

// CheckInvariant verifies balance = totalEarnings - totalWithdrawn - pendingWithdrawal
// and that no counter is negative.
func (w Wallet) CheckInvariant() error {
	if w.Balance < 0 || w.PendingWithdrawal < 0 || w.TotalEarnings < 0 || w.TotalWithdrawn < 0 {
		return ErrInvariantViolation
	}
	if w.Balance != w.TotalEarnings-w.TotalWithdrawn-w.PendingWithdrawal {
		return ErrInvariantViolation
	}
	return nil
}

type WalletTransaction struct {
	ID          string            `db:"id" json:"transactionId"`
	WalletID    string            `db:"wallet_id" json:"walletId"`
	CenterID    string            `db:"center_id" json:"centerId"`
	Type        TransactionType   `db:"type" json:"type"`
	Amount      int64             `db:"amount" json:"amount"`
	Status      TransactionStatus `db:"status" json:"status"`
	Reference   *string           `db:"reference" json:"reference,omitempty"`
	TaskID      *string           `db:"task_id" json:"taskId,omitempty"`
	AdminNote   *string           `db:"admin_note" json:"adminNote,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	ProcessedAt *time.Time        `db:"processed_at" json:"processedAt,omitempty"`
	ProcessedBy *string           `db:"processed_by" json:"processedBy,omitempty"`
}

type CreditRequest struct {
	CenterID  string `json:"-" validate:"required,max=64"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Reference string `json:"reference" validate:"required,max=255"`
	TaskID    string `json:"taskId,omitempty" validate:"max=64"`
	Strict    bool   `json:"strict,omitempty"`
}

type DebitRequest struct {
	CenterID  string `json:"-" validate:"required,max=64"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Reference string `json:"reference" validate:"required,max=255"`
	AdminNote string `json:"adminNote,omitempty" validate:"max=1024"`
	Strict    bool   `json:"strict,omitempty"`
}

type WithdrawalRequest struct {
	CenterID string `json:"-" validate:"required,max=64"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
}

type ResolveWithdrawalRequest struct {
	TransactionID string            `json:"-" validate:"required"`
	Outcome       WithdrawalOutcome `json:"outcome" validate:"required,oneof=approve reject"`
	AdminID       string            `json:"adminId" validate:"required,max=64"`
	Note          string            `json:"note,omitempty" validate:"max=1024"`
}

type CancelWithdrawalRequest struct {
	TransactionID string `json:"-" validate:"required"`
	AdminID       string `json:"adminId" validate:"required,max=64"`
	Note          string `json:"note,omitempty" validate:"max=1024"`
}

type WalletBalanceResponse struct {
	CenterID          string `json:"centerId"`
	Balance           int64  `json:"balance"`
	PendingWithdrawal int64  `json:"pendingWithdrawal"`
	TotalEarnings     int64  `json:"totalEarnings"`
	TotalWithdrawn    int64  `json:"totalWithdrawn"`
	Version           int64  `json:"version"`
}

func BalanceOf(w Wallet) WalletBalanceResponse {
	return WalletBalanceResponse{
		CenterID:          w.CenterID,
		Balance:           w.Balance,
		PendingWithdrawal: w.PendingWithdrawal,
		TotalEarnings:     w.TotalEarnings,
		TotalWithdrawn:    w.TotalWithdrawn,
		Version:           w.Version,
	}
}

type TransactionCreateResponse struct {
	TransactionID string            `json:"transactionId"`
	Status        TransactionStatus `json:"status"`
	Created       bool              `json:"created"`
}

type TransactionListResponse struct {
	CenterID     string              `json:"centerId"`
	Transactions []WalletTransaction `json:"transactions"`
}
