// Package worker keeps stored budget totals converged in the
// background, both on a timer and in reaction to change messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ahorramas/internal/core"
	"ahorramas/internal/events"
	"ahorramas/internal/services"
	"ahorramas/internal/store"
)

// Refresher sweeps every user's current-month budgets on an interval
// and re-sums them. The sweep is a safety net: inline recomputation
// already runs on every mutation, so this only repairs drift from
// missed updates or external edits to the data files.
type Refresher struct {
	store      store.Store
	aggregator *services.BudgetAggregator
	interval   time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewRefresher(st store.Store, aggregator *services.BudgetAggregator, interval time.Duration) *Refresher {
	return &Refresher{
		store:      st,
		aggregator: aggregator,
		interval:   interval,
	}
}

// Start launches the periodic sweep. Calling Start on a running
// refresher is an error.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("refresher already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.run(ctx)

	slog.InfoContext(ctx, "Budget refresher started", "interval", r.interval)
	return nil
}

// Stop halts the sweep and waits for the current pass to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, done := r.cancel, r.done
	r.running = false
	r.mu.Unlock()

	cancel()
	<-done
	slog.Info("Budget refresher stopped")
}

func (r *Refresher) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Budget sweep failed", "error", err)
			}
		}
	}
}

// Sweep re-sums the current month's budgets for every user.
func (r *Refresher) Sweep(ctx context.Context) error {
	users, err := r.store.Users(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	period := core.CurrentPeriod()
	for _, u := range users {
		if err := r.aggregator.RecomputeAll(ctx, u.ID, period); err != nil {
			slog.ErrorContext(ctx, "Failed to recompute budgets",
				"user_id", u.ID, "error", err)
		}
	}

	slog.DebugContext(ctx, "Budget sweep complete",
		"users", len(users), "month", period.Month, "year", period.Year)
	return nil
}

// HandleChange reacts to a single change message by re-summing the
// affected user's current-month budgets.
func (r *Refresher) HandleChange(ctx context.Context, c events.Change) error {
	if c.UserID == 0 {
		return nil
	}
	if c.Entity == events.EntityUser && c.Op == events.OpDelete {
		// Nothing left to recompute.
		return nil
	}
	return r.aggregator.RecomputeAll(ctx, c.UserID, core.CurrentPeriod())
}
