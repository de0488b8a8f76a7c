package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"ahorramas/internal/core"
	"ahorramas/internal/services"
	"ahorramas/internal/store"
)

type statisticsResponse struct {
	Month             int                `json:"month"`
	Year              int                `json:"year"`
	Income            float64            `json:"income"`
	Expenses          float64            `json:"expenses"`
	Net               float64            `json:"net"`
	TransactionCount  int                `json:"transaction_count"`
	ExpenseByCategory map[string]float64 `json:"expense_by_category"`
}

func toStatisticsResponse(stats services.MonthlyStatistics) statisticsResponse {
	byCategory := make(map[string]float64, len(stats.ExpenseByCategory))
	for category, amount := range stats.ExpenseByCategory {
		byCategory[category] = amount.Float64()
	}
	return statisticsResponse{
		Month:             stats.Period.Month,
		Year:              stats.Period.Year,
		Income:            stats.Income.Float64(),
		Expenses:          stats.Expenses.Float64(),
		Net:               stats.Net.Float64(),
		TransactionCount:  stats.TransactionCount,
		ExpenseByCategory: byCategory,
	}
}

type transactionRequest struct {
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

func (req transactionRequest) toTransaction(userID int64) (core.Transaction, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	ts, err := parseTimestamp(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		UserID:      userID,
		Amount:      amount,
		Kind:        core.Kind(req.Kind),
		Category:    strings.TrimSpace(req.Category),
		Timestamp:   ts,
		Description: strings.TrimSpace(req.Description),
	}, nil
}

type transactionResponse struct {
	ID          int64   `json:"id"`
	Amount      float64 `json:"amount"`
	AmountCents int64   `json:"amount_cents"`
	Kind        string  `json:"kind"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Amount:      tx.Amount.Float64(),
		AmountCents: tx.Amount.Cents,
		Kind:        string(tx.Kind),
		Category:    tx.Category,
		Date:        tx.Timestamp.UTC().Format(time.RFC3339),
		Description: tx.Description,
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionResponse(tx)
	}
	return out
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tx, err := req.toTransaction(currentUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	saved, err := s.transactions.Create(r.Context(), tx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TransactionFilter{
		Kind:     core.Kind(q.Get("kind")),
		Category: q.Get("category"),
	}
	if v := q.Get("from"); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.To = t
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	txs, err := s.transactions.Query(r.Context(), currentUser(r).ID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

const defaultRecentLimit = 10

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	txs, err := s.transactions.Recent(r.Context(), currentUser(r).ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleCurrentMonthTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.transactions.CurrentMonth(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.checkTransactionOwner(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.toTransaction(currentUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := s.transactions.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.checkTransactionOwner(r, id); err != nil {
		writeError(w, err)
		return
	}
	if err := s.transactions.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// checkTransactionOwner hides other users' transactions behind a 404.
func (s *Server) checkTransactionOwner(r *http.Request, id int64) error {
	tx, err := s.transactions.Get(r.Context(), id)
	if err != nil {
		return err
	}
	if tx.UserID != currentUser(r).ID {
		return store.ErrNotFound
	}
	return nil
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.transactions.Statistics(r.Context(), currentUser(r).ID, parsePeriod(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatisticsResponse(stats))
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	cmp, err := s.transactions.Comparison(r.Context(), currentUser(r).ID, parsePeriod(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Current       statisticsResponse `json:"current"`
		Previous      statisticsResponse `json:"previous"`
		IncomeDelta   float64            `json:"income_delta"`
		ExpensesDelta float64            `json:"expenses_delta"`
	}{
		Current:       toStatisticsResponse(cmp.Current),
		Previous:      toStatisticsResponse(cmp.Previous),
		IncomeDelta:   cmp.IncomeDelta.Float64(),
		ExpensesDelta: cmp.ExpensesDelta.Float64(),
	})
}
