package services

import (
	"fmt"

	"csc-ledger/internal/models"
)

// The functions below compute the next wallet state for a single operation.
// Each one returns the updated copy only after the balance invariant holds.

func applyEarning(w models.Wallet, amount int64) (models.Wallet, error) {
	if amount <= 0 {
		return w, models.ErrInvalidAmount
	}
	w.Balance += amount
	w.TotalEarnings += amount
	return checked(w)
}

func applyDebit(w models.Wallet, amount int64) (models.Wallet, error) {
	if amount <= 0 {
		return w, models.ErrInvalidAmount
	}
	if w.Balance < amount {
		return w, fmt.Errorf("balance %d below debit %d: %w", w.Balance, amount, models.ErrInsufficientBalance)
	}
	w.Balance -= amount
	// A debit takes money out of lifetime earnings; nothing was withdrawn.
	w.TotalEarnings -= amount
	return checked(w)
}

func applyWithdrawalRequest(w models.Wallet, amount int64) (models.Wallet, error) {
	if amount <= 0 {
		return w, models.ErrInvalidAmount
	}
	if w.Balance < amount {
		return w, fmt.Errorf("balance %d below withdrawal %d: %w", w.Balance, amount, models.ErrInsufficientBalance)
	}
	w.Balance -= amount
	w.PendingWithdrawal += amount
	return checked(w)
}

// applyWithdrawalOutcome settles a pending withdrawal and returns the terminal status.
func applyWithdrawalOutcome(w models.Wallet, amount int64, outcome models.WithdrawalOutcome) (models.Wallet, models.TransactionStatus, error) {
	var status models.TransactionStatus

	switch outcome {
	case models.OutcomeApprove:
		w.PendingWithdrawal -= amount
		w.TotalWithdrawn += amount
		status = models.TransactionStatusCompleted
	case models.OutcomeReject:
		w.PendingWithdrawal -= amount
		w.Balance += amount
		status = models.TransactionStatusRejected
	case models.OutcomeCancel:
		w.PendingWithdrawal -= amount
		w.Balance += amount
		status = models.TransactionStatusCancelled
	default:
		return w, "", models.NewValidationError(models.ErrTransactionNotPending, "outcome", fmt.Sprintf("unknown outcome %q", outcome))
	}

	w, err := checked(w)
	return w, status, err
}

func checked(w models.Wallet) (models.Wallet, error) {
	if err := w.CheckInvariant(); err != nil {
		return w, fmt.Errorf("wallet %s {balance:%d pending:%d earnings:%d withdrawn:%d}: %w",
			w.CenterID, w.Balance, w.PendingWithdrawal, w.TotalEarnings, w.TotalWithdrawn, err)
	}
	return w, nil
}
