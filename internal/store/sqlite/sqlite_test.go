package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ahorramas/internal/core"
	"ahorramas/internal/store"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ahorramas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertUser(t *testing.T, s *Store, email string) core.User {
	t.Helper()
	u, err := s.InsertUser(context.Background(), core.User{
		Name:         "Carlos Ruiz",
		Email:        email,
		PasswordHash: "hash",
		Phone:        "5566778899",
		RegisteredAt: time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return u
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	u := insertUser(t, s, "carlos@example.com")
	require.NotZero(t, u.ID)

	got, err := s.UserByEmail(ctx, "carlos@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Carlos Ruiz", got.Name)
	assert.True(t, got.RegisteredAt.Equal(u.RegisteredAt))
	assert.True(t, got.LockedUntil.IsZero())
	assert.False(t, got.MustChangePassword)

	_, err = s.UserByID(ctx, 999)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInsertUserDuplicateEmail(t *testing.T) {
	s := openStore(t)
	insertUser(t, s, "carlos@example.com")
	_, err := s.InsertUser(context.Background(), core.User{
		Email:        "carlos@example.com",
		RegisteredAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestUpdateUserPartial(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	u := insertUser(t, s, "carlos@example.com")

	balance := int64(55_500)
	locked := time.Date(2025, 2, 1, 13, 15, 0, 0, time.UTC)
	mustChange := true
	require.NoError(t, s.UpdateUser(ctx, u.ID, store.UserPatch{
		BalanceCents:       &balance,
		LockedUntil:        &locked,
		MustChangePassword: &mustChange,
	}))

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(55_500), got.Balance.Cents)
	assert.True(t, got.LockedUntil.Equal(locked))
	assert.True(t, got.MustChangePassword)
	assert.Equal(t, "Carlos Ruiz", got.Name)

	require.ErrorIs(t, s.UpdateUser(ctx, 999, store.UserPatch{BalanceCents: &balance}), store.ErrNotFound)
	require.ErrorIs(t, s.UpdateUser(ctx, 999, store.UserPatch{}), store.ErrNotFound)
}

func TestTransactionFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	u := insertUser(t, s, "carlos@example.com")

	days := []struct {
		day      int
		kind     core.Kind
		category string
	}{
		{2, core.KindIncome, "Salario"},
		{7, core.KindExpense, "Alimentación"},
		{11, core.KindExpense, "Alimentación"},
		{20, core.KindExpense, "Transporte"},
	}
	for _, d := range days {
		_, err := s.InsertTransaction(ctx, core.Transaction{
			UserID:    u.ID,
			Amount:    core.Money{Cents: 1000},
			Kind:      d.kind,
			Category:  d.category,
			Timestamp: time.Date(2025, 4, d.day, 9, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	all, err := s.TransactionsByUser(ctx, u.ID, store.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 20, all[0].Timestamp.Day(), "newest first")

	food, err := s.TransactionsByUser(ctx, u.ID, store.TransactionFilter{
		Kind:     core.KindExpense,
		Category: "Alimentación",
	})
	require.NoError(t, err)
	assert.Len(t, food, 2)

	// Range bounds are inclusive on both ends.
	ranged, err := s.TransactionsByUser(ctx, u.ID, store.TransactionFilter{
		From: time.Date(2025, 4, 7, 9, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 4, 11, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	limited, err := s.TransactionsByUser(ctx, u.ID, store.TransactionFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, 20, limited[0].Timestamp.Day())
}

func TestTransactionKindConstraint(t *testing.T) {
	s := openStore(t)
	u := insertUser(t, s, "carlos@example.com")
	_, err := s.InsertTransaction(context.Background(), core.Transaction{
		UserID:    u.ID,
		Amount:    core.Money{Cents: 100},
		Kind:      "transfer",
		Category:  "Otros",
		Timestamp: time.Now().UTC(),
	})
	require.Error(t, err, "schema rejects unknown kinds")
}

func TestBudgetUniqueTupleAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	u := insertUser(t, s, "carlos@example.com")

	b, err := s.InsertBudget(ctx, core.Budget{
		UserID: u.ID, Category: "Alimentación",
		Limit: core.Money{Cents: 50_000}, Month: 4, Year: 2025,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = s.InsertBudget(ctx, core.Budget{
		UserID: u.ID, Category: "Alimentación",
		Limit: core.Money{Cents: 1}, Month: 4, Year: 2025,
		CreatedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, store.ErrDuplicateKey)

	spent := int64(20_000)
	require.NoError(t, s.UpdateBudget(ctx, b.ID, store.BudgetPatch{SpentCents: &spent}))
	got, err := s.BudgetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), got.Spent.Cents)
	assert.Equal(t, int64(50_000), got.Limit.Cents)

	// Moving a budget onto an occupied tuple hits the same constraint.
	other, err := s.InsertBudget(ctx, core.Budget{
		UserID: u.ID, Category: "Transporte",
		Limit: core.Money{Cents: 10_000}, Month: 4, Year: 2025,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	category := "Alimentación"
	require.ErrorIs(t, s.UpdateBudget(ctx, other.ID, store.BudgetPatch{Category: &category}), store.ErrDuplicateKey)
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	u := insertUser(t, s, "carlos@example.com")

	tx, err := s.InsertTransaction(ctx, core.Transaction{
		UserID: u.ID, Amount: core.Money{Cents: 100}, Kind: core.KindExpense,
		Category: "Otros", Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	b, err := s.InsertBudget(ctx, core.Budget{
		UserID: u.ID, Category: "Otros", Limit: core.Money{Cents: 100},
		Month: 4, Year: 2025, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, u.ID))

	_, err = s.TransactionByID(ctx, tx.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.BudgetByID(ctx, b.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "ahorramas.db")

	s, err := Open(dbPath)
	require.NoError(t, err)
	u := insertUser(t, s, "carlos@example.com")
	require.NoError(t, s.Close())

	s2, err := Open(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "carlos@example.com", got.Email)
}
