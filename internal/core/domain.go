package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// MaxAmountCents caps a single monetary amount at 999,999,999 currency units.
const MaxAmountCents = 999_999_999 * 100

const (
	maxCategoryLen    = 50
	maxDescriptionLen = 200
	minNameLen        = 3
	maxNameLen        = 100
	maxEmailLen       = 150
	minPasswordLen    = 6
	maxPasswordLen    = 50
)

type (
	// Kind is the polarity of a transaction: income adds to the balance,
	// expense subtracts from it.
	Kind string

	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
		Phone        string
		Balance      Money // derived: sum(income) - sum(expense), kept by reconciliation
		RegisteredAt time.Time

		FailedAttempts     int
		LockedUntil        time.Time // zero when not locked
		MustChangePassword bool
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Amount      Money
		Kind        Kind
		Category    string
		Timestamp   time.Time
		Description string
	}

	Budget struct {
		ID        int64
		UserID    int64
		Category  string
		Limit     Money
		Spent     Money // derived: resummed from matching expense transactions
		Month     int   // 1-12
		Year      int
		CreatedAt time.Time
	}
)

// ErrValidation is the base of every validation sentinel so callers can match
// the whole class with errors.Is.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrAmountTooLarge    = fmt.Errorf("%w: amount is too large", ErrValidation)
	ErrInvalidKind       = fmt.Errorf("%w: kind must be income or expense", ErrValidation)
	ErrEmptyCategory     = fmt.Errorf("%w: category is required", ErrValidation)
	ErrCategoryTooLong   = fmt.Errorf("%w: category exceeds 50 characters", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description exceeds 200 characters", ErrValidation)
	ErrInvalidTimestamp  = fmt.Errorf("%w: timestamp is required", ErrValidation)
	ErrInvalidMonth      = fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	ErrInvalidYear       = fmt.Errorf("%w: year is out of range", ErrValidation)

	ErrInvalidName     = fmt.Errorf("%w: name must be between 3 and 100 characters", ErrValidation)
	ErrInvalidEmail    = fmt.Errorf("%w: email address is not valid", ErrValidation)
	ErrInvalidPassword = fmt.Errorf("%w: password must be between 6 and 50 characters", ErrValidation)
	ErrInvalidPhone    = fmt.Errorf("%w: phone must have 10 digits", ErrValidation)
)

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := ValidateCategory(t.Category); err != nil {
		return err
	}
	if t.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func (b Budget) Validate() error {
	if err := ValidateCategory(b.Category); err != nil {
		return err
	}
	if err := b.Limit.Validate(); err != nil {
		return err
	}
	return Period{Month: b.Month, Year: b.Year}.Validate()
}

// ValidateCategory checks the free-text category against its length limits.
// Categories are not an enum at the storage level.
func ValidateCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	if len([]rune(category)) > maxCategoryLen {
		return ErrCategoryTooLong
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateRegistration checks the registration fields before any persistence.
func ValidateRegistration(name, email, password, phone string) error {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < minNameLen || n > maxNameLen {
		return ErrInvalidName
	}
	email = strings.TrimSpace(email)
	if email == "" || len(email) > maxEmailLen || !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	stripped := strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	if len(stripped) != 10 {
		return ErrInvalidPhone
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return ErrInvalidPhone
		}
	}
	return nil
}

// ValidatePassword checks a candidate password against the length limits.
func ValidatePassword(password string) error {
	if n := len(password); n < minPasswordLen || n > maxPasswordLen {
		return ErrInvalidPassword
	}
	return nil
}

// Sanitized returns a copy safe to hand to callers: no password hash.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// Locked reports whether the account is locked out at the given instant.
func (u User) Locked(now time.Time) bool {
	return !u.LockedUntil.IsZero() && now.Before(u.LockedUntil)
}
