package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ahorramas/internal/events"
	"ahorramas/internal/services"
	"ahorramas/internal/store/document"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := document.New()
	notifier := events.NewNotifier(nil)
	balance := services.NewBalanceReconciler(st)
	aggregator := services.NewBudgetAggregator(st)
	auth := services.NewAuthService(st, notifier, nil)
	transactions := services.NewTransactionService(st, balance, aggregator, notifier)
	budgets := services.NewBudgetService(st, aggregator, notifier)

	srv := NewServer(":0", auth, transactions, budgets)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func doList(t *testing.T, ts *httptest.Server, path, token string) (*http.Response, []any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded []any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func register(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()
	resp, _ := do(t, ts, http.MethodPost, "/api/register", "", map[string]string{
		"name": "Laura Jiménez", "email": email,
		"password": "secreto1", "phone": "5544332211",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, ts, http.MethodPost, "/api/login", "", map[string]string{
		"email": email, "password": "secreto1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestFullAPIFlow(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "laura@example.com")

	// Budget of 500.00 for the current month.
	resp, budget := do(t, ts, http.MethodPost, "/api/budgets", token, map[string]any{
		"category": "Alimentación", "limit": "500.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	budgetID := int64(budget["id"].(float64))

	// Income then an expense against the budget.
	resp, _ = do(t, ts, http.MethodPost, "/api/transactions", token, map[string]any{
		"amount": "1000.00", "kind": "income", "category": "Salario",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, tx := do(t, ts, http.MethodPost, "/api/transactions", token, map[string]any{
		"amount": "200.00", "kind": "expense", "category": "Alimentación",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	txID := int64(tx["id"].(float64))

	resp, me := do(t, ts, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(80_000), me["balance_cents"])

	resp, _ = do(t, ts, http.MethodGet, "/api/budgets", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Push the expense to 450.00 and check the alert classification.
	resp, _ = do(t, ts, http.MethodPut, fmt.Sprintf("/api/transactions/%d", txID), token, map[string]any{
		"amount": "450.00", "kind": "expense", "category": "Alimentación",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, alerts := do(t, ts, http.MethodGet, "/api/budgets/alerts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	near, _ := alerts["near_limit"].([]any)
	require.Len(t, near, 1)
	assert.Equal(t, float64(budgetID), near[0].(map[string]any)["id"])
	assert.Equal(t, float64(45_000), near[0].(map[string]any)["spent_cents"])

	resp, stats := do(t, ts, http.MethodGet, "/api/statistics", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1000), stats["income"])
	assert.Equal(t, float64(450), stats["expenses"])
	assert.Equal(t, float64(550), stats["net"])

	// Delete restores balance and budget.
	resp, _ = do(t, ts, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", txID), token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, me = do(t, ts, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(100_000), me["balance_cents"])
}

func TestRecentAndCurrentMonthEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "laura@example.com")

	resp, _ := do(t, ts, http.MethodPost, "/api/budgets", token, map[string]any{
		"category": "Alimentación", "limit": "500.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Two transactions this month, one dated well in the past.
	for _, body := range []map[string]any{
		{"amount": "1000.00", "kind": "income", "category": "Salario"},
		{"amount": "200.00", "kind": "expense", "category": "Alimentación"},
		{"amount": "50.00", "kind": "expense", "category": "Transporte", "date": "2024-01-15"},
	} {
		resp, _ = do(t, ts, http.MethodPost, "/api/transactions", token, body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, recent := doList(t, ts, "/api/transactions/recent?limit=2", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, recent, 2)

	resp, month := doList(t, ts, "/api/transactions/current-month", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, month, 2)

	resp, budgets := doList(t, ts, "/api/budgets/current-month", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, budgets, 1)
	assert.Equal(t, float64(20_000), budgets[0].(map[string]any)["spent_cents"])
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "laura@example.com")

	// Validation failures are 422.
	resp, _ := do(t, ts, http.MethodPost, "/api/transactions", token, map[string]any{
		"amount": "0", "kind": "expense", "category": "Otros",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Duplicate registration is 409.
	resp, _ = do(t, ts, http.MethodPost, "/api/register", "", map[string]string{
		"name": "Laura Jiménez", "email": "laura@example.com",
		"password": "secreto1", "phone": "5544332211",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Missing and bogus tokens are 401.
	resp, _ = do(t, ts, http.MethodGet, "/api/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = do(t, ts, http.MethodGet, "/api/transactions", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Unknown ids are 404.
	resp, _ = do(t, ts, http.MethodDelete, "/api/transactions/999999", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOwnershipIsolation(t *testing.T) {
	ts := newTestServer(t)
	tokenA := register(t, ts, "a@example.com")
	tokenB := register(t, ts, "b@example.com")

	_, tx := do(t, ts, http.MethodPost, "/api/transactions", tokenA, map[string]any{
		"amount": "10.00", "kind": "expense", "category": "Otros",
	})
	txID := int64(tx["id"].(float64))

	// User B cannot see or touch user A's transaction.
	resp, _ := do(t, ts, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", txID), tokenB, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodGet, fmt.Sprintf("/api/transactions?category=%s", "Otros"), tokenB, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCategoriesEndpointIsPublic(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, ts, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	expense, _ := body["expense"].([]any)
	assert.NotEmpty(t, expense)
}
