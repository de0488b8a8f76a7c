package document

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ahorramas/internal/core"
)

// On-disk documents use the same Spanish field names as the relational
// schema. Amounts are cents; dates are RFC 3339 strings.
type (
	userDoc struct {
		ID                 int64  `json:"id"`
		Name               string `json:"nombreCompleto"`
		Email              string `json:"correo"`
		PasswordHash       string `json:"contrasena"`
		Phone              string `json:"telefono"`
		BalanceCents       int64  `json:"balanceTotal"`
		RegisteredAt       string `json:"fechaRegistro"`
		FailedAttempts     int    `json:"intentosFallidos"`
		LockedUntil        string `json:"bloqueadoHasta,omitempty"`
		MustChangePassword bool   `json:"debeCambiarContrasena"`
	}

	transactionDoc struct {
		ID          int64  `json:"id"`
		UserID      int64  `json:"usuarioId"`
		AmountCents int64  `json:"monto"`
		Kind        string `json:"tipo"`
		Category    string `json:"categoria"`
		Timestamp   string `json:"fecha"`
		Description string `json:"descripcion"`
	}

	budgetDoc struct {
		ID          int64  `json:"id"`
		UserID      int64  `json:"usuarioId"`
		Category    string `json:"categoria"`
		LimitCents  int64  `json:"montoLimite"`
		SpentCents  int64  `json:"montoGastado"`
		Month       int    `json:"mes"`
		Year        int    `json:"anio"`
		CreatedAt   string `json:"fechaCreacion"`
	}
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func userToDoc(u core.User) userDoc {
	return userDoc{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		Phone:              u.Phone,
		BalanceCents:       u.Balance.Cents,
		RegisteredAt:       formatTime(u.RegisteredAt),
		FailedAttempts:     u.FailedAttempts,
		LockedUntil:        formatTime(u.LockedUntil),
		MustChangePassword: u.MustChangePassword,
	}
}

func userFromDoc(d userDoc) (core.User, error) {
	registered, err := parseTime(d.RegisteredAt)
	if err != nil {
		return core.User{}, fmt.Errorf("parse fechaRegistro: %w", err)
	}
	locked, err := parseTime(d.LockedUntil)
	if err != nil {
		return core.User{}, fmt.Errorf("parse bloqueadoHasta: %w", err)
	}
	return core.User{
		ID:                 d.ID,
		Name:               d.Name,
		Email:              d.Email,
		PasswordHash:       d.PasswordHash,
		Phone:              d.Phone,
		Balance:            core.Money{Cents: d.BalanceCents},
		RegisteredAt:       registered,
		FailedAttempts:     d.FailedAttempts,
		LockedUntil:        locked,
		MustChangePassword: d.MustChangePassword,
	}, nil
}

func transactionToDoc(t core.Transaction) transactionDoc {
	return transactionDoc{
		ID:          t.ID,
		UserID:      t.UserID,
		AmountCents: t.Amount.Cents,
		Kind:        string(t.Kind),
		Category:    t.Category,
		Timestamp:   formatTime(t.Timestamp),
		Description: t.Description,
	}
}

func transactionFromDoc(d transactionDoc) (core.Transaction, error) {
	ts, err := parseTime(d.Timestamp)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse fecha: %w", err)
	}
	return core.Transaction{
		ID:          d.ID,
		UserID:      d.UserID,
		Amount:      core.Money{Cents: d.AmountCents},
		Kind:        core.Kind(d.Kind),
		Category:    d.Category,
		Timestamp:   ts,
		Description: d.Description,
	}, nil
}

func budgetToDoc(b core.Budget) budgetDoc {
	return budgetDoc{
		ID:         b.ID,
		UserID:     b.UserID,
		Category:   b.Category,
		LimitCents: b.Limit.Cents,
		SpentCents: b.Spent.Cents,
		Month:      b.Month,
		Year:       b.Year,
		CreatedAt:  formatTime(b.CreatedAt),
	}
}

func budgetFromDoc(d budgetDoc) (core.Budget, error) {
	created, err := parseTime(d.CreatedAt)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parse fechaCreacion: %w", err)
	}
	return core.Budget{
		ID:        d.ID,
		UserID:    d.UserID,
		Category:  d.Category,
		Limit:     core.Money{Cents: d.LimitCents},
		Spent:     core.Money{Cents: d.SpentCents},
		Month:     d.Month,
		Year:      d.Year,
		CreatedAt: created,
	}, nil
}

// readCollection loads a JSON array file into records. A missing file leaves
// the collection empty.
func readCollection[D any, R any](path string, out *[]R, convert func(D) (R, error)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	var docs []D
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	records := make([]R, 0, len(docs))
	for _, d := range docs {
		r, err := convert(d)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		records = append(records, r)
	}
	*out = records
	return nil
}

func writeCollection[D any](path string, docs []D) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// save helpers are called with the store mutex held.

func (s *Store) saveUsers() error {
	if s.dir == "" {
		return nil
	}
	docs := make([]userDoc, len(s.users))
	for i, u := range s.users {
		docs[i] = userToDoc(u)
	}
	return writeCollection(s.path(usersKey), docs)
}

func (s *Store) saveTransactions() error {
	if s.dir == "" {
		return nil
	}
	docs := make([]transactionDoc, len(s.transactions))
	for i, t := range s.transactions {
		docs[i] = transactionToDoc(t)
	}
	return writeCollection(s.path(transactionsKey), docs)
}

func (s *Store) saveBudgets() error {
	if s.dir == "" {
		return nil
	}
	docs := make([]budgetDoc, len(s.budgets))
	for i, b := range s.budgets {
		docs[i] = budgetToDoc(b)
	}
	return writeCollection(s.path(budgetsKey), docs)
}
