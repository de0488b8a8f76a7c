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

// BudgetService manages per-category monthly spending limits.
type BudgetService struct {
	store      store.Store
	aggregator *BudgetAggregator
	notifier   *events.Notifier
}

func NewBudgetService(st store.Store, aggregator *BudgetAggregator, notifier *events.Notifier) *BudgetService {
	return &BudgetService{store: st, aggregator: aggregator, notifier: notifier}
}

// Create records a budget for (category, month, year). A zero period
// defaults to the current month. The spent total is computed from the
// expenses already recorded in that window, so a budget created halfway
// through a month starts with the month's spending counted.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.Month == 0 && b.Year == 0 {
		p := core.CurrentPeriod()
		b.Month, b.Year = p.Month, p.Year
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.Spent = core.Money{}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	saved, err := s.store.InsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}

	period := core.Period{Month: saved.Month, Year: saved.Year}
	if err := s.aggregator.Recompute(ctx, saved.UserID, saved.Category, period); err != nil {
		return core.Budget{}, err
	}
	saved, err = s.store.BudgetByID(ctx, saved.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("reload budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget created",
		"id", saved.ID, "user_id", saved.UserID, "category", saved.Category,
		"month", saved.Month, "year", saved.Year, "limit_cents", saved.Limit.Cents)
	s.notifier.Notify(ctx, events.Change{
		Entity: events.EntityBudget, Op: events.OpCreate, UserID: saved.UserID,
	})
	return saved, nil
}

// Update changes a budget's category or limit. Spent is recomputed, not
// accepted from the caller.
func (s *BudgetService) Update(ctx context.Context, id int64, category string, limit core.Money) (core.Budget, error) {
	old, err := s.store.BudgetByID(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}

	updated := old
	updated.Category = category
	updated.Limit = limit
	if err := updated.Validate(); err != nil {
		return core.Budget{}, err
	}

	patch := store.BudgetPatch{Category: &category, LimitCents: &limit.Cents}
	if err := s.store.UpdateBudget(ctx, id, patch); err != nil {
		return core.Budget{}, err
	}

	period := core.Period{Month: updated.Month, Year: updated.Year}
	if err := s.aggregator.Recompute(ctx, updated.UserID, updated.Category, period); err != nil {
		return core.Budget{}, err
	}
	updated, err = s.store.BudgetByID(ctx, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("reload budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget updated", "id", id, "user_id", updated.UserID)
	s.notifier.Notify(ctx, events.Change{
		Entity: events.EntityBudget, Op: events.OpUpdate, UserID: updated.UserID,
	})
	return updated, nil
}

// Delete removes a budget. Transactions are untouched.
func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	old, err := s.store.BudgetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBudget(ctx, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Budget deleted", "id", id, "user_id", old.UserID)
	s.notifier.Notify(ctx, events.Change{
		Entity: events.EntityBudget, Op: events.OpDelete, UserID: old.UserID,
	})
	return nil
}

// Get returns a single budget by id.
func (s *BudgetService) Get(ctx context.Context, id int64) (core.Budget, error) {
	return s.store.BudgetByID(ctx, id)
}

// ListForPeriod returns the user's budgets for the given month.
func (s *BudgetService) ListForPeriod(ctx context.Context, userID int64, period core.Period) ([]core.Budget, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return s.store.BudgetsByPeriod(ctx, userID, period)
}

// CurrentMonth returns the user's budgets for the current month.
func (s *BudgetService) CurrentMonth(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.store.BudgetsByPeriod(ctx, userID, core.CurrentPeriod())
}

// BudgetAlerts partitions a month's budgets by alert class.
type BudgetAlerts struct {
	Normal    []core.Budget
	NearLimit []core.Budget
	Exceeded  []core.Budget
}

// Alerts classifies every budget the user holds for the period.
func (s *BudgetService) Alerts(ctx context.Context, userID int64, period core.Period) (BudgetAlerts, error) {
	budgets, err := s.ListForPeriod(ctx, userID, period)
	if err != nil {
		return BudgetAlerts{}, err
	}
	var alerts BudgetAlerts
	for _, b := range budgets {
		switch b.Alert() {
		case core.AlertExceeded:
			alerts.Exceeded = append(alerts.Exceeded, b)
		case core.AlertNearLimit:
			alerts.NearLimit = append(alerts.NearLimit, b)
		default:
			alerts.Normal = append(alerts.Normal, b)
		}
	}
	return alerts, nil
}

// BudgetStatistics aggregates a month's budgets.
type BudgetStatistics struct {
	Period         core.Period
	BudgetCount    int
	TotalLimit     core.Money
	TotalSpent     core.Money
	Remaining      core.Money
	PercentUsed    float64
	NearLimitCount int
	ExceededCount  int
}

// Statistics aggregates limits and spending across the period's
// budgets. All fields are zero when the user holds none.
func (s *BudgetService) Statistics(ctx context.Context, userID int64, period core.Period) (BudgetStatistics, error) {
	budgets, err := s.ListForPeriod(ctx, userID, period)
	if err != nil {
		return BudgetStatistics{}, err
	}

	stats := BudgetStatistics{Period: period, BudgetCount: len(budgets)}
	for _, b := range budgets {
		stats.TotalLimit.Cents += b.Limit.Cents
		stats.TotalSpent.Cents += b.Spent.Cents
		switch b.Alert() {
		case core.AlertExceeded:
			stats.ExceededCount++
		case core.AlertNearLimit:
			stats.NearLimitCount++
		}
	}
	stats.Remaining = core.Money{Cents: stats.TotalLimit.Cents - stats.TotalSpent.Cents}
	if stats.TotalLimit.Cents > 0 {
		stats.PercentUsed = float64(stats.TotalSpent.Cents) / float64(stats.TotalLimit.Cents) * 100
	}
	return stats, nil
}

// Refresh re-sums every budget the user holds for the period.
func (s *BudgetService) Refresh(ctx context.Context, userID int64, period core.Period) error {
	if err := period.Validate(); err != nil {
		return err
	}
	if err := s.aggregator.RecomputeAll(ctx, userID, period); err != nil {
		return err
	}
	s.notifier.Notify(ctx, events.Change{
		Entity: events.EntityBudget, Op: events.OpUpdate, UserID: userID,
	})
	return nil
}
