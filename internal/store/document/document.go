// Package document implements the storage contract over three in-process
// collections serialized as JSON arrays under fixed keys, in the manner of a
// key-value document store. There is no engine underneath: uniqueness and
// cascade rules are enforced in code before every insert, and ids come from
// the millisecond clock.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ahorramas/internal/core"
	"ahorramas/internal/store"
)

// Fixed collection keys. Renaming them orphans existing data files.
const (
	usersKey        = "app_usuarios"
	transactionsKey = "app_transacciones"
	budgetsKey      = "app_presupuestos"
)

type Store struct {
	mu     sync.Mutex
	dir    string // empty means memory-only, nothing is written to disk
	lastID int64

	users        []core.User
	transactions []core.Transaction
	budgets      []core.Budget
}

// New returns an empty memory-only store.
func New() *Store {
	return &Store{}
}

// Open loads the three collections from <dir>/<key>.json, creating the
// directory if needed. Missing files start as empty collections.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{dir: dir}
	if err := readCollection(s.path(usersKey), &s.users, userFromDoc); err != nil {
		return nil, err
	}
	if err := readCollection(s.path(transactionsKey), &s.transactions, transactionFromDoc); err != nil {
		return nil, err
	}
	if err := readCollection(s.path(budgetsKey), &s.budgets, budgetFromDoc); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		s.bumpLastID(u.ID)
	}
	for _, t := range s.transactions {
		s.bumpLastID(t.ID)
	}
	for _, b := range s.budgets {
		s.bumpLastID(b.ID)
	}
	return s, nil
}

func (s *Store) Close() error { return nil }

// newID generates ids from the millisecond clock, nudged forward when two
// inserts land in the same millisecond.
func (s *Store) newID() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Store) bumpLastID(id int64) {
	if id > s.lastID {
		s.lastID = id
	}
}

// Users

func (s *Store) InsertUser(ctx context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return core.User{}, fmt.Errorf("email %q: %w", u.Email, store.ErrDuplicateKey)
		}
	}
	u.ID = s.newID()
	s.users = append(s.users, u)
	if err := s.saveUsers(); err != nil {
		return core.User{}, err
	}
	slog.InfoContext(ctx, "user inserted", "id", u.ID, "email", u.Email)
	return u, nil
}

func (s *Store) UserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %q: %w", email, store.ErrNotFound)
}

func (s *Store) Users(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, id int64, p store.UserPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.users {
		if s.users[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	u := &s.users[idx]
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		for i := range s.users {
			if i != idx && s.users[i].Email == *p.Email {
				return fmt.Errorf("email %q: %w", *p.Email, store.ErrDuplicateKey)
			}
		}
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.BalanceCents != nil {
		u.Balance = core.Money{Cents: *p.BalanceCents}
	}
	if p.FailedAttempts != nil {
		u.FailedAttempts = *p.FailedAttempts
	}
	if p.LockedUntil != nil {
		u.LockedUntil = *p.LockedUntil
	}
	if p.MustChangePassword != nil {
		u.MustChangePassword = *p.MustChangePassword
	}
	return s.saveUsers()
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.users[:0]
	found := false
	for _, u := range s.users {
		if u.ID == id {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	s.users = kept

	// Cascade: drop the user's transactions and budgets, as the relational
	// engine would.
	txs := s.transactions[:0]
	for _, t := range s.transactions {
		if t.UserID != id {
			txs = append(txs, t)
		}
	}
	s.transactions = txs
	budgets := s.budgets[:0]
	for _, b := range s.budgets {
		if b.UserID != id {
			budgets = append(budgets, b)
		}
	}
	s.budgets = budgets

	if err := s.saveUsers(); err != nil {
		return err
	}
	if err := s.saveTransactions(); err != nil {
		return err
	}
	return s.saveBudgets()
}

// Transactions

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.newID()
	s.transactions = append(s.transactions, t)
	if err := s.saveTransactions(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *Store) TransactionByID(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, store.ErrNotFound)
}

func (s *Store) TransactionsByUser(_ context.Context, userID int64, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID != userID {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if !f.From.IsZero() && t.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && t.Timestamp.After(f.To) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id int64, p store.TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transactions {
		if s.transactions[i].ID != id {
			continue
		}
		t := &s.transactions[i]
		if p.AmountCents != nil {
			t.Amount = core.Money{Cents: *p.AmountCents}
		}
		if p.Kind != nil {
			t.Kind = *p.Kind
		}
		if p.Category != nil {
			t.Category = *p.Category
		}
		if p.Timestamp != nil {
			t.Timestamp = *p.Timestamp
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		return s.saveTransactions()
	}
	return fmt.Errorf("transaction %d: %w", id, store.ErrNotFound)
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.transactions[:0]
	found := false
	for _, t := range s.transactions {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return fmt.Errorf("transaction %d: %w", id, store.ErrNotFound)
	}
	s.transactions = kept
	return s.saveTransactions()
}

// Budgets

func (s *Store) InsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.budgets {
		if existing.UserID == b.UserID && existing.Category == b.Category &&
			existing.Month == b.Month && existing.Year == b.Year {
			return core.Budget{}, fmt.Errorf("budget %s %d/%d: %w", b.Category, b.Month, b.Year, store.ErrDuplicateKey)
		}
	}
	b.ID = s.newID()
	s.budgets = append(s.budgets, b)
	if err := s.saveBudgets(); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (s *Store) BudgetByID(_ context.Context, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.ID == id {
			return b, nil
		}
	}
	return core.Budget{}, fmt.Errorf("budget %d: %w", id, store.ErrNotFound)
}

func (s *Store) BudgetsByPeriod(_ context.Context, userID int64, p core.Period) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID && b.Month == p.Month && b.Year == p.Year {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) UpdateBudget(_ context.Context, id int64, p store.BudgetPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.budgets {
		if s.budgets[i].ID != id {
			continue
		}
		b := &s.budgets[i]
		if p.Category != nil {
			for j := range s.budgets {
				if j != i && s.budgets[j].UserID == b.UserID && s.budgets[j].Category == *p.Category &&
					s.budgets[j].Month == b.Month && s.budgets[j].Year == b.Year {
					return fmt.Errorf("budget %s %d/%d: %w", *p.Category, b.Month, b.Year, store.ErrDuplicateKey)
				}
			}
			b.Category = *p.Category
		}
		if p.LimitCents != nil {
			b.Limit = core.Money{Cents: *p.LimitCents}
		}
		if p.SpentCents != nil {
			b.Spent = core.Money{Cents: *p.SpentCents}
		}
		return s.saveBudgets()
	}
	return fmt.Errorf("budget %d: %w", id, store.ErrNotFound)
}

func (s *Store) DeleteBudget(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.budgets[:0]
	found := false
	for _, b := range s.budgets {
		if b.ID == id {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return fmt.Errorf("budget %d: %w", id, store.ErrNotFound)
	}
	s.budgets = kept
	return s.saveBudgets()
}

var _ store.Store = (*Store)(nil)

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
