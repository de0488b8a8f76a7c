// Package sqlite persists the ledger in a local SQLite database via
// database/sql and the modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ahorramas/internal/core"
	"ahorramas/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at dbPath and brings the
// schema up to date.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrDuplicateKey
	}
	return err
}

// Dates are stored as RFC3339 UTC strings so lexicographic SQL
// comparison matches chronological order. The zero time maps to "".
func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// --- users ---

func (s *Store) InsertUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO usuarios (nombreCompleto, correo, contrasena, telefono,
			balanceTotal, fechaRegistro, intentosFallidos, bloqueadoHasta, debeCambiarContrasena)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.Phone,
		u.Balance.Cents, encodeTime(u.RegisteredAt),
		u.FailedAttempts, encodeTime(u.LockedUntil), boolToInt(u.MustChangePassword))
	if err != nil {
		return core.User{}, translate(fmt.Errorf("insert user: %w", err))
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("insert user id: %w", err)
	}
	return u, nil
}

const userColumns = `id, nombreCompleto, correo, contrasena, telefono,
	balanceTotal, fechaRegistro, intentosFallidos, bloqueadoHasta, debeCambiarContrasena`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u          core.User
		registered string
		locked     string
		mustChange int
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone,
		&u.Balance.Cents, &registered, &u.FailedAttempts, &locked, &mustChange)
	if err != nil {
		return core.User{}, err
	}
	if u.RegisteredAt, err = decodeTime(registered); err != nil {
		return core.User{}, fmt.Errorf("decode fechaRegistro: %w", err)
	}
	if u.LockedUntil, err = decodeTime(locked); err != nil {
		return core.User{}, fmt.Errorf("decode bloqueadoHasta: %w", err)
	}
	u.MustChangePassword = mustChange != 0
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM usuarios WHERE id = ?`, id))
	if err != nil {
		return core.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM usuarios WHERE correo = ?`, email))
	if err != nil {
		return core.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) Users(ctx context.Context) ([]core.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM usuarios ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, id int64, patch store.UserPatch) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Name != nil {
		add("nombreCompleto", *patch.Name)
	}
	if patch.Email != nil {
		add("correo", *patch.Email)
	}
	if patch.PasswordHash != nil {
		add("contrasena", *patch.PasswordHash)
	}
	if patch.Phone != nil {
		add("telefono", *patch.Phone)
	}
	if patch.BalanceCents != nil {
		add("balanceTotal", *patch.BalanceCents)
	}
	if patch.FailedAttempts != nil {
		add("intentosFallidos", *patch.FailedAttempts)
	}
	if patch.LockedUntil != nil {
		add("bloqueadoHasta", encodeTime(*patch.LockedUntil))
	}
	if patch.MustChangePassword != nil {
		add("debeCambiarContrasena", boolToInt(*patch.MustChangePassword))
	}
	if len(sets) == 0 {
		return s.touch(ctx, "usuarios", id)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE usuarios SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return translate(fmt.Errorf("update user: %w", err))
	}
	return affected(res)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	// ON DELETE CASCADE removes the user's transactions and budgets.
	res, err := s.db.ExecContext(ctx, `DELETE FROM usuarios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return affected(res)
}

// --- transactions ---

func (s *Store) InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transacciones (usuarioId, monto, tipo, categoria, fecha, descripcion)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Amount.Cents, string(tx.Kind), tx.Category,
		encodeTime(tx.Timestamp), tx.Description)
	if err != nil {
		return core.Transaction{}, translate(fmt.Errorf("insert transaction: %w", err))
	}
	tx.ID, err = res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction id: %w", err)
	}
	return tx, nil
}

const transactionColumns = `id, usuarioId, monto, tipo, categoria, fecha, descripcion`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx    core.Transaction
		kind  string
		fecha string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Amount.Cents, &kind, &tx.Category, &fecha, &tx.Description)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Kind = core.Kind(kind)
	if tx.Timestamp, err = decodeTime(fecha); err != nil {
		return core.Transaction{}, fmt.Errorf("decode fecha: %w", err)
	}
	return tx, nil
}

func (s *Store) TransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transacciones WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, translate(err)
	}
	return tx, nil
}

func (s *Store) TransactionsByUser(ctx context.Context, userID int64, f store.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transacciones WHERE usuarioId = ?`
	args := []any{userID}
	if f.Kind != "" {
		query += ` AND tipo = ?`
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		query += ` AND categoria = ?`
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		query += ` AND fecha >= ?`
		args = append(args, encodeTime(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND fecha <= ?`
		args = append(args, encodeTime(f.To))
	}
	query += ` ORDER BY fecha DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) UpdateTransaction(ctx context.Context, id int64, patch store.TransactionPatch) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.AmountCents != nil {
		add("monto", *patch.AmountCents)
	}
	if patch.Kind != nil {
		add("tipo", string(*patch.Kind))
	}
	if patch.Category != nil {
		add("categoria", *patch.Category)
	}
	if patch.Timestamp != nil {
		add("fecha", encodeTime(*patch.Timestamp))
	}
	if patch.Description != nil {
		add("descripcion", *patch.Description)
	}
	if len(sets) == 0 {
		return s.touch(ctx, "transacciones", id)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE transacciones SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return translate(fmt.Errorf("update transaction: %w", err))
	}
	return affected(res)
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transacciones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return affected(res)
}

// --- budgets ---

func (s *Store) InsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO presupuestos (usuarioId, categoria, montoLimite, montoGastado, mes, anio, fechaCreacion)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Category, b.Limit.Cents, b.Spent.Cents, b.Month, b.Year,
		encodeTime(b.CreatedAt))
	if err != nil {
		return core.Budget{}, translate(fmt.Errorf("insert budget: %w", err))
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget id: %w", err)
	}
	return b, nil
}

const budgetColumns = `id, usuarioId, categoria, montoLimite, montoGastado, mes, anio, fechaCreacion`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b       core.Budget
		created string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.Limit.Cents, &b.Spent.Cents,
		&b.Month, &b.Year, &created)
	if err != nil {
		return core.Budget{}, err
	}
	if b.CreatedAt, err = decodeTime(created); err != nil {
		return core.Budget{}, fmt.Errorf("decode fechaCreacion: %w", err)
	}
	return b, nil
}

func (s *Store) BudgetByID(ctx context.Context, id int64) (core.Budget, error) {
	b, err := scanBudget(s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM presupuestos WHERE id = ?`, id))
	if err != nil {
		return core.Budget{}, translate(err)
	}
	return b, nil
}

func (s *Store) BudgetsByPeriod(ctx context.Context, userID int64, p core.Period) ([]core.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM presupuestos
		 WHERE usuarioId = ? AND mes = ? AND anio = ? ORDER BY categoria`,
		userID, p.Month, p.Year)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (s *Store) UpdateBudget(ctx context.Context, id int64, patch store.BudgetPatch) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Category != nil {
		add("categoria", *patch.Category)
	}
	if patch.LimitCents != nil {
		add("montoLimite", *patch.LimitCents)
	}
	if patch.SpentCents != nil {
		add("montoGastado", *patch.SpentCents)
	}
	if len(sets) == 0 {
		return s.touch(ctx, "presupuestos", id)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE presupuestos SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return translate(fmt.Errorf("update budget: %w", err))
	}
	return affected(res)
}

func (s *Store) DeleteBudget(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presupuestos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return affected(res)
}

// touch reports ErrNotFound for an empty patch against a missing row.
func (s *Store) touch(ctx context.Context, table string, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	return translate(err)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
