package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"ahorramas/internal/core"
	"ahorramas/internal/store"
)

// BalanceReconciler keeps each user's running balance in step with their
// transaction history. Income adds to the balance, expenses subtract;
// reversing applies the opposite sign.
type BalanceReconciler struct {
	users store.Users

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewBalanceReconciler(users store.Users) *BalanceReconciler {
	return &BalanceReconciler{
		users: users,
		locks: make(map[int64]*sync.Mutex),
	}
}

// userLock serializes read-modify-write cycles per user so concurrent
// mutations on the same balance cannot interleave.
func (r *BalanceReconciler) userLock(userID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	return l
}

// Apply folds a transaction into its owner's balance.
func (r *BalanceReconciler) Apply(ctx context.Context, tx core.Transaction) error {
	return r.adjust(ctx, tx, false)
}

// Reverse undoes a previously applied transaction, typically before a
// delete or ahead of re-applying an updated version.
func (r *BalanceReconciler) Reverse(ctx context.Context, tx core.Transaction) error {
	return r.adjust(ctx, tx, true)
}

func (r *BalanceReconciler) adjust(ctx context.Context, tx core.Transaction, reverse bool) error {
	delta := tx.Amount.Cents
	if tx.Kind == core.KindExpense {
		delta = -delta
	}
	if reverse {
		delta = -delta
	}

	l := r.userLock(tx.UserID)
	l.Lock()
	defer l.Unlock()

	u, err := r.users.UserByID(ctx, tx.UserID)
	if errors.Is(err, store.ErrNotFound) {
		// The owner may have been deleted between the mutation and the
		// balance pass. The mutation itself stays valid.
		slog.WarnContext(ctx, "Balance adjustment skipped, user not found",
			"user_id", tx.UserID, "transaction_id", tx.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user for balance: %w", err)
	}

	balance := u.Balance.Cents + delta
	err = r.users.UpdateUser(ctx, tx.UserID, store.UserPatch{BalanceCents: &balance})
	if errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "Balance adjustment skipped, user vanished",
			"user_id", tx.UserID, "transaction_id", tx.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("store balance: %w", err)
	}

	slog.DebugContext(ctx, "Balance adjusted",
		"user_id", tx.UserID, "delta_cents", delta, "balance_cents", balance)
	return nil
}
