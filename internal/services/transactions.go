package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ahorramas/internal/core"
	"ahorramas/internal/events"
	"ahorramas/internal/store"
)

// TransactionService owns the transaction lifecycle. Every mutation goes
// through the same pipeline: validate, persist, reconcile the owner's
// balance, recompute the budgets the change touched, then notify.
type TransactionService struct {
	store      store.Store
	balance    *BalanceReconciler
	aggregator *BudgetAggregator
	notifier   *events.Notifier
}

func NewTransactionService(st store.Store, balance *BalanceReconciler, aggregator *BudgetAggregator, notifier *events.Notifier) *TransactionService {
	return &TransactionService{
		store:      st,
		balance:    balance,
		aggregator: aggregator,
		notifier:   notifier,
	}
}

// Create validates and records a new transaction. A zero timestamp
// defaults to the current instant.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	// Second precision is what the stores round-trip; truncating here
	// keeps month-boundary queries identical across backends.
	tx.Timestamp = tx.Timestamp.Truncate(time.Second)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.InsertTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	if err := s.balance.Apply(ctx, saved); err != nil {
		return core.Transaction{}, err
	}
	if saved.Kind == core.KindExpense {
		if err := s.aggregator.Recompute(ctx, saved.UserID, saved.Category, core.PeriodOf(saved.Timestamp)); err != nil {
			return core.Transaction{}, err
		}
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", saved.ID, "user_id", saved.UserID, "kind", saved.Kind,
		"category", saved.Category, "amount_cents", saved.Amount.Cents)
	s.notifier.Notify(ctx, events.Change{
		Entity: events.EntityTransaction, Op: events.OpCreate, UserID: saved.UserID,
	})
	return saved, nil
}

// Update replaces the mutable fields of an existing transaction. The
// balance is rebuilt by reversing the old version and applying the new,
// and every budget tuple the edit touched is recomputed.
func (s *TransactionService) Update(ctx context.Context, id int64, in core.Transaction) (core.Transaction, error) {
	old, err := s.store.TransactionByID(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	updated := old
	updated.Amount = in.Amount
	updated.Kind = in.Kind
	updated.Category = in.Category
	updated.Description = in.Description
	if !in.Timestamp.IsZero() {
		updated.Timestamp = in.Timestamp.Truncate(time.Second)
	}
	if err := updated.Validate(); err != nil {
		return core.Transaction{}, err
	}

	patch := store.TransactionPatch{
		AmountCents: &updated.Amount.Cents,
		Kind:        &updated.Kind,
		Category:    &updated.Category,
		Timestamp:   &updated.Timestamp,
		Description: &updated.Description,
	}
	if err := s.store.UpdateTransaction(ctx, id, patch); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	if err := s.balance.Reverse(ctx, old); err != nil {
		return core.Transaction{}, err
	}
	if err := s.balance.Apply(ctx, updated); err != nil {
		return core.Transaction{}, err
	}

	newPeriod := core.PeriodOf(updated.Timestamp)
	if updated.Kind == core.KindExpense || old.Kind == core.KindExpense {
		if err := s.aggregator.Recompute(ctx, updated.UserID, updated.Category, newPeriod); err != nil {
			return core.Transaction{}, err
		}
	}
	// When the edit moved the expense off its old (category, period)
	// tuple, that tuple's spent total must shrink too.
	oldPeriod := core.PeriodOf(old.Timestamp)
	if old.Kind == core.KindExpense && (old.Category != updated.Category || oldPeriod != newPeriod) {
		if err := s.aggregator.Recompute(ctx, old.UserID, old.Category, oldPeriod); err != nil {
			return core.Transaction{}, err
		}
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id, "user_id", updated.UserID)
	s.notifier.Notify(ctx, events.Change{
		Entity: events.EntityTransaction, Op: events.OpUpdate, UserID: updated.UserID,
	})
	return updated, nil
}

// Delete removes a transaction, rolls its effect out of the balance and
// recomputes the budget it counted against.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	old, err := s.store.TransactionByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.balance.Reverse(ctx, old); err != nil {
		return err
	}
	if old.Kind == core.KindExpense {
		if err := s.aggregator.Recompute(ctx, old.UserID, old.Category, core.PeriodOf(old.Timestamp)); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", old.UserID)
	s.notifier.Notify(ctx, events.Change{
		Entity: events.EntityTransaction, Op: events.OpDelete, UserID: old.UserID,
	})
	return nil
}

// Get returns a single transaction by id.
func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.TransactionByID(ctx, id)
}

// Query lists a user's transactions newest first, optionally filtered.
func (s *TransactionService) Query(ctx context.Context, userID int64, filter store.TransactionFilter) ([]core.Transaction, error) {
	return s.store.TransactionsByUser(ctx, userID, filter)
}

// Recent returns the user's n most recent transactions.
func (s *TransactionService) Recent(ctx context.Context, userID int64, n int) ([]core.Transaction, error) {
	return s.store.TransactionsByUser(ctx, userID, store.TransactionFilter{Limit: n})
}

// CurrentMonth lists the user's transactions in the current calendar month.
func (s *TransactionService) CurrentMonth(ctx context.Context, userID int64) ([]core.Transaction, error) {
	from, to := core.CurrentPeriod().Bounds()
	return s.store.TransactionsByUser(ctx, userID, store.TransactionFilter{From: from, To: to})
}

// MonthlyStatistics summarizes one calendar month of activity.
type MonthlyStatistics struct {
	Period            core.Period
	Income            core.Money
	Expenses          core.Money
	Net               core.Money
	TransactionCount  int
	ExpenseByCategory map[string]core.Money
}

// Statistics computes totals for the given period.
func (s *TransactionService) Statistics(ctx context.Context, userID int64, period core.Period) (MonthlyStatistics, error) {
	if err := period.Validate(); err != nil {
		return MonthlyStatistics{}, err
	}
	from, to := period.Bounds()
	txs, err := s.store.TransactionsByUser(ctx, userID, store.TransactionFilter{From: from, To: to})
	if err != nil {
		return MonthlyStatistics{}, fmt.Errorf("list transactions: %w", err)
	}

	stats := MonthlyStatistics{
		Period:            period,
		TransactionCount:  len(txs),
		ExpenseByCategory: make(map[string]core.Money),
	}
	for _, tx := range txs {
		switch tx.Kind {
		case core.KindIncome:
			stats.Income.Cents += tx.Amount.Cents
		case core.KindExpense:
			stats.Expenses.Cents += tx.Amount.Cents
			byCat := stats.ExpenseByCategory[tx.Category]
			byCat.Cents += tx.Amount.Cents
			stats.ExpenseByCategory[tx.Category] = byCat
		}
	}
	stats.Net.Cents = stats.Income.Cents - stats.Expenses.Cents
	return stats, nil
}

// MonthlyComparison holds a month's statistics next to the previous
// month's, with the swing between the two.
type MonthlyComparison struct {
	Current       MonthlyStatistics
	Previous      MonthlyStatistics
	IncomeDelta   core.Money
	ExpensesDelta core.Money
}

// Comparison computes statistics for the period and the one before it.
func (s *TransactionService) Comparison(ctx context.Context, userID int64, period core.Period) (MonthlyComparison, error) {
	current, err := s.Statistics(ctx, userID, period)
	if err != nil {
		return MonthlyComparison{}, err
	}
	previous, err := s.Statistics(ctx, userID, period.Previous())
	if err != nil {
		return MonthlyComparison{}, err
	}
	return MonthlyComparison{
		Current:       current,
		Previous:      previous,
		IncomeDelta:   core.Money{Cents: current.Income.Cents - previous.Income.Cents},
		ExpensesDelta: core.Money{Cents: current.Expenses.Cents - previous.Expenses.Cents},
	}, nil
}
