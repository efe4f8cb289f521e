package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// accountColumns — общий список колонок выборки аккаунта.
// reset-поля нормализуются к zero-значениям Go, NULL в моделях не живет.
const accountColumns = `
	id, email, full_name, password_hash, is_active, role,
	COALESCE(reset_token, ''),
	COALESCE(reset_token_expires, to_timestamp(0)),
	created_at, updated_at
`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.FullName,
		&a.PasswordHash,
		&a.IsActive,
		&a.Role,
		&a.ResetToken,
		&a.ResetTokenExpires,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// SaveAccount создает новый аккаунт в БД и возвращает его ID.
func (s *Storage) SaveAccount(ctx context.Context, account *models.Account) (int64, error) {
	const op = "storage.postgres.SaveAccount"

	query := `
		INSERT INTO accounts(email, full_name, password_hash, is_active, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRow(ctx, query,
		account.Email,
		account.FullName,
		account.PasswordHash,
		account.IsActive,
		account.Role,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&id)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// AccountByID находит аккаунт по ID.
func (s *Storage) AccountByID(ctx context.Context, id int64) (*models.Account, error) {
	const op = "storage.postgres.AccountByID"

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// AccountByEmail находит аккаунт по email.
func (s *Storage) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.postgres.AccountByEmail"

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	account, err := scanAccount(s.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// ListAccounts возвращает последние limit аккаунтов по убыванию ID.
func (s *Storage) ListAccounts(ctx context.Context, limit int) ([]models.Account, error) {
	const op = "storage.postgres.ListAccounts"

	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id DESC LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return accounts, nil
}

// UpdateAccount частично обновляет профиль аккаунта и возвращает свежую запись.
func (s *Storage) UpdateAccount(ctx context.Context, id int64, upd storage.AccountUpdate) (*models.Account, error) {
	const op = "storage.postgres.UpdateAccount"

	set := make([]string, 0, 5)
	args := make([]any, 0, 6)
	args = append(args, id)

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.FullName != nil {
		add("full_name", *upd.FullName)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.Role != nil {
		add("role", *upd.Role)
	}

	if len(set) == 0 {
		return s.AccountByID(ctx, id)
	}

	add("updated_at", time.Now().UTC())

	query := `UPDATE accounts SET ` + strings.Join(set, ", ") +
		` WHERE id = $1 RETURNING ` + accountColumns

	account, err := scanAccount(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// UpdatePassword меняет хэш пароля аккаунта.
func (s *Storage) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const op = "storage.postgres.UpdatePassword"

	query := `
		UPDATE accounts
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteAccount удаляет аккаунт.
func (s *Storage) DeleteAccount(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteAccount"

	query := `DELETE FROM accounts WHERE id = $1`

	cmdTag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SetResetToken записывает reset-токен и срок действия, перезаписывая
// предыдущий неиспользованный токен аккаунта.
func (s *Storage) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	const op = "storage.postgres.SetResetToken"

	query := `
		UPDATE accounts
		SET reset_token = $2, reset_token_expires = $3, updated_at = $4
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, id, token, expiresAt, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ConsumeResetToken атомарно гасит reset-токен: проверка совпадения и срока,
// установка нового хэша пароля и очистка reset-полей — одна условная запись.
// Из двух конкурентных вызовов с одним токеном выиграть может только один.
//
// Возвращает:
//
//	(id, nil)         — токен был действителен и погашен;
//	(0, ErrExpired)   — токен существует, но просрочен;
//	(0, ErrNotFound)  — токен не найден.
func (s *Storage) ConsumeResetToken(ctx context.Context, token string, passwordHash string, now time.Time) (int64, error) {
	const op = "storage.postgres.ConsumeResetToken"

	const upd = `
		UPDATE accounts
		SET password_hash = $2, reset_token = NULL, reset_token_expires = NULL, updated_at = $3
		WHERE reset_token = $1 AND reset_token_expires > $3
		RETURNING id
	`

	var id int64
	err := s.db.QueryRow(ctx, upd, token, passwordHash, now).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	const sel = `
		SELECT reset_token_expires
		FROM accounts
		WHERE reset_token = $1
	`

	var expiresAt time.Time
	err = s.db.QueryRow(ctx, sel, token).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return 0, fmt.Errorf("%s: %w", op, storage.ErrExpired)
}
