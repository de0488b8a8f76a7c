// Package http exposes the ledger as a small JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ahorramas/internal/core"
	"ahorramas/internal/services"
)

type Server struct {
	http.Server

	auth         *services.AuthService
	transactions *services.TransactionService
	budgets      *services.BudgetService
}

func NewServer(addr string, auth *services.AuthService, transactions *services.TransactionService, budgets *services.BudgetService) *Server {
	s := &Server{
		auth:         auth,
		transactions: transactions,
		budgets:      budgets,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("POST /api/password-reset", s.handlePasswordReset)
	mux.HandleFunc("POST /api/password", s.requireAuth(s.handleChangePassword))
	mux.HandleFunc("GET /api/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("DELETE /api/account", s.requireAuth(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/recent", s.requireAuth(s.handleRecentTransactions))
	mux.HandleFunc("GET /api/transactions/current-month", s.requireAuth(s.handleCurrentMonthTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/statistics", s.requireAuth(s.handleStatistics))
	mux.HandleFunc("GET /api/statistics/comparison", s.requireAuth(s.handleComparison))

	mux.HandleFunc("GET /api/budgets", s.requireAuth(s.handleListBudgets))
	mux.HandleFunc("GET /api/budgets/current-month", s.requireAuth(s.handleCurrentMonthBudgets))
	mux.HandleFunc("POST /api/budgets", s.requireAuth(s.handleCreateBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.requireAuth(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.requireAuth(s.handleDeleteBudget))
	mux.HandleFunc("GET /api/budgets/alerts", s.requireAuth(s.handleBudgetAlerts))
	mux.HandleFunc("GET /api/budgets/statistics", s.requireAuth(s.handleBudgetStatistics))
	mux.HandleFunc("POST /api/budgets/refresh", s.requireAuth(s.handleBudgetRefresh))

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.Addr = addr
	s.Handler = logRequests(mux)
	return s
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := generateRequestID()
		next.ServeHTTP(w, r)
		slog.InfoContext(r.Context(), "Request handled",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

type contextKey string

const userKey contextKey = "user"

// requireAuth resolves the Bearer token and puts the account on the
// request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			writeError(w, services.ErrInvalidToken)
			return
		}
		u, err := s.auth.CurrentUser(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		next(w, r.WithContext(ctx))
	}
}

func currentUser(r *http.Request) core.User {
	u, _ := r.Context().Value(userKey).(core.User)
	return u
}

func token(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
