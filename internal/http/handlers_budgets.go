package http

import (
	"net/http"
	"time"

	"ahorramas/internal/core"
	"ahorramas/internal/store"
)

type budgetRequest struct {
	Category string `json:"category"`
	Limit    string `json:"limit"`
	Month    int    `json:"month,omitempty"`
	Year     int    `json:"year,omitempty"`
}

type budgetResponse struct {
	ID         int64   `json:"id"`
	Category   string  `json:"category"`
	Limit      float64 `json:"limit"`
	LimitCents int64   `json:"limit_cents"`
	Spent      float64 `json:"spent"`
	SpentCents int64   `json:"spent_cents"`
	Remaining  float64 `json:"remaining"`
	Percent    float64 `json:"percent"`
	Alert      string  `json:"alert"`
	Month      int     `json:"month"`
	Year       int     `json:"year"`
	CreatedAt  string  `json:"created_at"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:         b.ID,
		Category:   b.Category,
		Limit:      b.Limit.Float64(),
		LimitCents: b.Limit.Cents,
		Spent:      b.Spent.Float64(),
		SpentCents: b.Spent.Cents,
		Remaining:  b.Remaining().Float64(),
		Percent:    b.Percent(),
		Alert:      string(b.Alert()),
		Month:      b.Month,
		Year:       b.Year,
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toBudgetResponses(budgets []core.Budget) []budgetResponse {
	out := make([]budgetResponse, len(budgets))
	for i, b := range budgets {
		out[i] = toBudgetResponse(b)
	}
	return out
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	limit, err := core.ParseAmount(req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	saved, err := s.budgets.Create(r.Context(), core.Budget{
		UserID:   currentUser(r).ID,
		Category: req.Category,
		Limit:    limit,
		Month:    req.Month,
		Year:     req.Year,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetResponse(saved))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.ListForPeriod(r.Context(), currentUser(r).ID, parsePeriod(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponses(budgets))
}

func (s *Server) handleCurrentMonthBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.CurrentMonth(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponses(budgets))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.checkBudgetOwner(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	limit, err := core.ParseAmount(req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := s.budgets.Update(r.Context(), id, req.Category, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(updated))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.checkBudgetOwner(r, id); err != nil {
		writeError(w, err)
		return
	}
	if err := s.budgets.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// checkBudgetOwner hides other users' budgets behind a 404.
func (s *Server) checkBudgetOwner(r *http.Request, id int64) error {
	b, err := s.budgets.Get(r.Context(), id)
	if err != nil {
		return err
	}
	if b.UserID != currentUser(r).ID {
		return store.ErrNotFound
	}
	return nil
}

func (s *Server) handleBudgetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.budgets.Alerts(r.Context(), currentUser(r).ID, parsePeriod(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Normal    []budgetResponse `json:"normal"`
		NearLimit []budgetResponse `json:"near_limit"`
		Exceeded  []budgetResponse `json:"exceeded"`
	}{
		Normal:    toBudgetResponses(alerts.Normal),
		NearLimit: toBudgetResponses(alerts.NearLimit),
		Exceeded:  toBudgetResponses(alerts.Exceeded),
	})
}

func (s *Server) handleBudgetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.budgets.Statistics(r.Context(), currentUser(r).ID, parsePeriod(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Month          int     `json:"month"`
		Year           int     `json:"year"`
		BudgetCount    int     `json:"budget_count"`
		TotalLimit     float64 `json:"total_limit"`
		TotalSpent     float64 `json:"total_spent"`
		Remaining      float64 `json:"remaining"`
		PercentUsed    float64 `json:"percent_used"`
		NearLimitCount int     `json:"near_limit_count"`
		ExceededCount  int     `json:"exceeded_count"`
	}{
		Month:          stats.Period.Month,
		Year:           stats.Period.Year,
		BudgetCount:    stats.BudgetCount,
		TotalLimit:     stats.TotalLimit.Float64(),
		TotalSpent:     stats.TotalSpent.Float64(),
		Remaining:      stats.Remaining.Float64(),
		PercentUsed:    stats.PercentUsed,
		NearLimitCount: stats.NearLimitCount,
		ExceededCount:  stats.ExceededCount,
	})
}

func (s *Server) handleBudgetRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.budgets.Refresh(r.Context(), currentUser(r).ID, parsePeriod(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
