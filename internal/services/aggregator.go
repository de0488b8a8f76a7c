package services

import (
	"context"
	"fmt"
	"log/slog"

	"ahorramas/internal/core"
	"ahorramas/internal/store"
)

// BudgetAggregator recomputes the spent column of budgets from the
// transaction history. Spent is never patched incrementally: every
// recompute is a full re-sum of the matching expenses, so the stored
// figure converges even after missed or reordered updates.
type BudgetAggregator struct {
	store store.Store
}

func NewBudgetAggregator(st store.Store) *BudgetAggregator {
	return &BudgetAggregator{store: st}
}

// Recompute refreshes the spent total of the budget identified by
// (userID, category, period). No-op when no such budget exists.
func (a *BudgetAggregator) Recompute(ctx context.Context, userID int64, category string, period core.Period) error {
	budgets, err := a.store.BudgetsByPeriod(ctx, userID, period)
	if err != nil {
		return fmt.Errorf("load budgets: %w", err)
	}

	var target *core.Budget
	for i := range budgets {
		if budgets[i].Category == category {
			target = &budgets[i]
			break
		}
	}
	if target == nil {
		return nil
	}

	return a.recomputeBudget(ctx, *target)
}

// RecomputeAll refreshes every budget the user holds for the period.
func (a *BudgetAggregator) RecomputeAll(ctx context.Context, userID int64, period core.Period) error {
	budgets, err := a.store.BudgetsByPeriod(ctx, userID, period)
	if err != nil {
		return fmt.Errorf("load budgets: %w", err)
	}
	for _, b := range budgets {
		if err := a.recomputeBudget(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (a *BudgetAggregator) recomputeBudget(ctx context.Context, b core.Budget) error {
	from, to := core.Period{Month: b.Month, Year: b.Year}.Bounds()
	txs, err := a.store.TransactionsByUser(ctx, b.UserID, store.TransactionFilter{
		Kind:     core.KindExpense,
		Category: b.Category,
		From:     from,
		To:       to,
	})
	if err != nil {
		return fmt.Errorf("sum expenses: %w", err)
	}

	var spent int64
	for _, tx := range txs {
		spent += tx.Amount.Cents
	}

	if err := a.store.UpdateBudget(ctx, b.ID, store.BudgetPatch{SpentCents: &spent}); err != nil {
		return fmt.Errorf("store spent: %w", err)
	}

	slog.DebugContext(ctx, "Budget recomputed",
		"budget_id", b.ID, "category", b.Category,
		"month", b.Month, "year", b.Year, "spent_cents", spent)
	return nil
}
