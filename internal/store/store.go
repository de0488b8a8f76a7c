// Package store defines the storage contract the ledger services depend on.
// Two backends satisfy it: a SQLite store where uniqueness, kind checks and
// cascade deletes are engine-enforced, and a document store that keeps the
// same collections as JSON arrays and enforces the constraints in code.
package store

import (
	"context"
	"errors"
	"time"

	"ahorramas/internal/core"
)

var (
	// ErrNotFound is returned when a referenced id does not resolve.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an insert violates a uniqueness
	// invariant: a user's email, or a budget's (user, category, month, year)
	// tuple. Backends translate their native duplicate signal into it.
	ErrDuplicateKey = errors.New("duplicate key")
)

// TransactionFilter narrows a transaction query. Zero values mean "any".
// The date range is inclusive on both ends.
type TransactionFilter struct {
	Kind     core.Kind
	Category string
	From     time.Time
	To       time.Time
	Limit    int
}

// Patch types carry partial updates; nil fields are left untouched.
type (
	UserPatch struct {
		Name               *string
		Email              *string
		PasswordHash       *string
		Phone              *string
		BalanceCents       *int64
		FailedAttempts     *int
		LockedUntil        *time.Time
		MustChangePassword *bool
	}

	TransactionPatch struct {
		AmountCents *int64
		Kind        *core.Kind
		Category    *string
		Timestamp   *time.Time
		Description *string
	}

	BudgetPatch struct {
		Category   *string
		LimitCents *int64
		SpentCents *int64
	}
)

type Users interface {
	// InsertUser persists a new user and returns it with its id assigned.
	// A duplicate email fails with ErrDuplicateKey.
	InsertUser(ctx context.Context, u core.User) (core.User, error)
	UserByID(ctx context.Context, id int64) (core.User, error)
	UserByEmail(ctx context.Context, email string) (core.User, error)
	Users(ctx context.Context) ([]core.User, error)
	UpdateUser(ctx context.Context, id int64, p UserPatch) error
	// DeleteUser removes the user and cascades to their transactions and
	// budgets.
	DeleteUser(ctx context.Context, id int64) error
}

type Transactions interface {
	InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	TransactionByID(ctx context.Context, id int64) (core.Transaction, error)
	// TransactionsByUser returns the user's transactions matching the
	// filter, newest first.
	TransactionsByUser(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, p TransactionPatch) error
	DeleteTransaction(ctx context.Context, id int64) error
}

type Budgets interface {
	// InsertBudget persists a new budget. A second budget for the same
	// (user, category, month, year) tuple fails with ErrDuplicateKey.
	InsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	BudgetByID(ctx context.Context, id int64) (core.Budget, error)
	BudgetsByPeriod(ctx context.Context, userID int64, p core.Period) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, id int64, p BudgetPatch) error
	DeleteBudget(ctx context.Context, id int64) error
}

// Store is the full contract a backend implements.
type Store interface {
	Users
	Transactions
	Budgets
	Close() error
}
