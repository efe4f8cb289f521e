package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/pribylovaa/accounts-service/internal/models"
)

// SaveRevokedToken сохраняет отозванный токен в блэклисте.
// Повторный отзыв того же токена — no-op (ON CONFLICT DO NOTHING).
func (s *Storage) SaveRevokedToken(ctx context.Context, token *models.RevokedToken) error {
	const op = "storage.postgres.SaveRevokedToken"

	query := `
		INSERT INTO revoked_tokens(token, expires_at, revoked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO NOTHING
	`

	_, err := s.db.Exec(ctx, query,
		token.Token,
		token.ExpiresAt,
		token.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// IsTokenRevoked проверяет наличие токена в блэклисте по точной строке.
func (s *Storage) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	const op = "storage.postgres.IsTokenRevoked"

	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token = $1)`

	var revoked bool
	if err := s.db.QueryRow(ctx, query, token).Scan(&revoked); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return revoked, nil
}

// DeleteExpiredTokens удаляет все просроченные записи блэклиста.
// Зачистка best-effort: просроченный токен и так не проходит проверку по exp.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.DeleteExpiredTokens"

	query := `
		DELETE FROM revoked_tokens
		WHERE expires_at <= $1
	`

	_, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
