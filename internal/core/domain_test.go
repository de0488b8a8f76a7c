package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validTransaction() Transaction {
	return Transaction{
		UserID:    1,
		Amount:    Money{Cents: 10_000},
		Kind:      KindExpense,
		Category:  "Alimentación",
		Timestamp: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"zero amount", func(tr *Transaction) { tr.Amount.Cents = 0 }, ErrInvalidAmount},
		{"negative amount", func(tr *Transaction) { tr.Amount.Cents = -5 }, ErrInvalidAmount},
		{"amount over cap", func(tr *Transaction) { tr.Amount.Cents = MaxAmountCents + 1 }, ErrAmountTooLarge},
		{"bad kind", func(tr *Transaction) { tr.Kind = "transfer" }, ErrInvalidKind},
		{"empty category", func(tr *Transaction) { tr.Category = "  " }, ErrEmptyCategory},
		{"category too long", func(tr *Transaction) { tr.Category = strings.Repeat("x", 51) }, ErrCategoryTooLong},
		{"description too long", func(tr *Transaction) { tr.Description = strings.Repeat("d", 201) }, ErrDescriptionTooLong},
		{"zero timestamp", func(tr *Transaction) { tr.Timestamp = time.Time{} }, ErrInvalidTimestamp},
	}
	for _, tc := range cases {
		tr := validTransaction()
		tc.mutate(&tr)
		err := tr.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: %v should be a validation error", tc.name, err)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{UserID: 1, Category: "Transporte", Limit: Money{Cents: 50_000}, Month: 2, Year: 2025}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		budget Budget
		want   error
	}{
		{"empty category", Budget{Category: "", Limit: Money{Cents: 1}, Month: 1, Year: 2025}, ErrEmptyCategory},
		{"zero limit", Budget{Category: "c", Limit: Money{Cents: 0}, Month: 1, Year: 2025}, ErrInvalidAmount},
		{"month zero", Budget{Category: "c", Limit: Money{Cents: 1}, Month: 0, Year: 2025}, ErrInvalidMonth},
		{"month thirteen", Budget{Category: "c", Limit: Money{Cents: 1}, Month: 13, Year: 2025}, ErrInvalidMonth},
		{"year out of range", Budget{Category: "c", Limit: Money{Cents: 1}, Month: 1, Year: 999}, ErrInvalidYear},
	}
	for _, tc := range cases {
		if err := tc.budget.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestValidateRegistration(t *testing.T) {
	if err := ValidateRegistration("Ana Morales", "ana@example.com", "secret1", "8888 7777 12"); err != ErrInvalidPhone {
		t.Fatalf("expected phone error for 12 digits, got %v", err)
	}
	if err := ValidateRegistration("Ana Morales", "ana@example.com", "secret1", "8888777712"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name, email, password, phone string
		want                         error
	}{
		{"Al", "a@b.co", "secret1", "1234567890", ErrInvalidName},
		{strings.Repeat("n", 101), "a@b.co", "secret1", "1234567890", ErrInvalidName},
		{"Ana Morales", "not-an-email", "secret1", "1234567890", ErrInvalidEmail},
		{"Ana Morales", "", "secret1", "1234567890", ErrInvalidEmail},
		{"Ana Morales", "a@" + strings.Repeat("b", 150) + ".co", "secret1", "1234567890", ErrInvalidEmail},
		{"Ana Morales", "a@b.co", "12345", "1234567890", ErrInvalidPassword},
		{"Ana Morales", "a@b.co", strings.Repeat("p", 51), "1234567890", ErrInvalidPassword},
		{"Ana Morales", "a@b.co", "secret1", "12345", ErrInvalidPhone},
		{"Ana Morales", "a@b.co", "secret1", "12345678ab", ErrInvalidPhone},
	}
	for i, tc := range cases {
		if err := ValidateRegistration(tc.name, tc.email, tc.password, tc.phone); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestUserLocked(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	u := User{}
	if u.Locked(now) {
		t.Fatal("zero LockedUntil should not be locked")
	}
	u.LockedUntil = now.Add(time.Minute)
	if !u.Locked(now) {
		t.Fatal("expected locked")
	}
	if u.Locked(now.Add(2 * time.Minute)) {
		t.Fatal("lock should expire")
	}
}

func TestUserSanitized(t *testing.T) {
	u := User{ID: 7, Email: "a@b.co", PasswordHash: "hash"}
	s := u.Sanitized()
	if s.PasswordHash != "" || s.ID != 7 {
		t.Fatalf("unexpected sanitized user: %+v", s)
	}
	if u.PasswordHash != "hash" {
		t.Fatal("original must not be mutated")
	}
}
