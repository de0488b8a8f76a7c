package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ahorramas/internal/core"
	"ahorramas/internal/events"
	"ahorramas/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrInvalidToken       = errors.New("invalid session token")
)

const (
	maxFailedAttempts = 5
	lockoutDuration   = 15 * time.Minute
)

// Mailer delivers account mail. The temporary-credential flow depends
// on it; everything else works without one.
type Mailer interface {
	SendTemporaryPassword(ctx context.Context, email, name, password string) error
}

// AuthService handles registration, login and session management.
// Sessions are opaque random tokens held in memory.
type AuthService struct {
	store    store.Users
	notifier *events.Notifier
	mailer   Mailer
	cost     int
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]int64 // token -> user id
}

func NewAuthService(st store.Users, notifier *events.Notifier, mailer Mailer) *AuthService {
	return &AuthService{
		store:    st,
		notifier: notifier,
		mailer:   mailer,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		sessions: make(map[string]int64),
	}
}

// Register creates an account. The email must not already be in use.
func (s *AuthService) Register(ctx context.Context, name, email, password, phone string) (core.User, error) {
	if err := core.ValidateRegistration(name, email, password, phone); err != nil {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.InsertUser(ctx, core.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Phone:        phone,
		RegisteredAt: s.now().UTC(),
	})
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "email", u.Email)
	s.notifier.Notify(ctx, events.Change{
		Entity: events.EntityUser, Op: events.OpCreate, UserID: u.ID,
	})
	return u.Sanitized(), nil
}

// Login verifies credentials and opens a session. Five consecutive
// failures lock the account for fifteen minutes.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return core.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("load user: %w", err)
	}

	now := s.now()
	if u.Locked(now) {
		return core.User{}, "", ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		attempts := u.FailedAttempts + 1
		patch := store.UserPatch{FailedAttempts: &attempts}
		if attempts >= maxFailedAttempts {
			until := now.Add(lockoutDuration).UTC()
			patch.LockedUntil = &until
			slog.WarnContext(ctx, "Account locked after repeated failures",
				"user_id", u.ID, "until", until)
		}
		if err := s.store.UpdateUser(ctx, u.ID, patch); err != nil {
			return core.User{}, "", fmt.Errorf("record failed attempt: %w", err)
		}
		return core.User{}, "", ErrInvalidCredentials
	}

	// Successful login clears the failure counter and any stale lock.
	if u.FailedAttempts > 0 || !u.LockedUntil.IsZero() {
		zero := 0
		var never time.Time
		if err := s.store.UpdateUser(ctx, u.ID, store.UserPatch{
			FailedAttempts: &zero,
			LockedUntil:    &never,
		}); err != nil {
			return core.User{}, "", fmt.Errorf("reset failed attempts: %w", err)
		}
		u.FailedAttempts = 0
		u.LockedUntil = time.Time{}
	}

	token, err := newToken()
	if err != nil {
		return core.User{}, "", err
	}
	s.mu.Lock()
	s.sessions[token] = u.ID
	s.mu.Unlock()

	slog.InfoContext(ctx, "User logged in", "user_id", u.ID)
	return u.Sanitized(), token, nil
}

// CurrentUser resolves a session token to its account.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (core.User, error) {
	s.mu.Lock()
	id, ok := s.sessions[token]
	s.mu.Unlock()
	if !ok {
		return core.User{}, ErrInvalidToken
	}

	u, err := s.store.UserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		// Account deleted while the session was live.
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return core.User{}, ErrInvalidToken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	return u.Sanitized(), nil
}

// Logout closes a session. Unknown tokens are ignored.
func (s *AuthService) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// RequestPasswordReset replaces the password with a temporary one,
// mails it to the account address and forces a change on next login.
// Unknown emails return nil so the endpoint does not leak which
// addresses exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		slog.InfoContext(ctx, "Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	temp, err := newToken()
	if err != nil {
		return err
	}
	temp = temp[:12]

	hash, err := bcrypt.GenerateFromPassword([]byte(temp), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	hashStr := string(hash)
	mustChange := true
	if err := s.store.UpdateUser(ctx, u.ID, store.UserPatch{
		PasswordHash:       &hashStr,
		MustChangePassword: &mustChange,
	}); err != nil {
		return fmt.Errorf("store temporary password: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendTemporaryPassword(ctx, u.Email, u.Name, temp); err != nil {
			return fmt.Errorf("send temporary password: %w", err)
		}
	}

	slog.InfoContext(ctx, "Temporary password issued", "user_id", u.ID)
	return nil
}

// ChangePassword sets a new password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if err := core.ValidatePassword(next); err != nil {
		return err
	}

	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	hashStr := string(hash)
	mustChange := false
	if err := s.store.UpdateUser(ctx, userID, store.UserPatch{
		PasswordHash:       &hashStr,
		MustChangePassword: &mustChange,
	}); err != nil {
		return fmt.Errorf("store password: %w", err)
	}

	slog.InfoContext(ctx, "Password changed", "user_id", userID)
	return nil
}

// DeleteAccount removes the user and, through the store's cascade, all
// of their transactions and budgets. Open sessions for the account are
// closed.
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.mu.Lock()
	for token, id := range s.sessions {
		if id == userID {
			delete(s.sessions, token)
		}
	}
	s.mu.Unlock()

	slog.InfoContext(ctx, "Account deleted", "user_id", userID)
	s.notifier.Notify(ctx, events.Change{
		Entity: events.EntityUser, Op: events.OpDelete, UserID: userID,
	})
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
