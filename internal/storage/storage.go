package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/accounts-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (аккаунт/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/reset-token).
	ErrAlreadyExists = errors.New("already exists")
	// ErrExpired — сущность просрочена (reset-token).
	ErrExpired = errors.New("expired")
)

// AccountUpdate — частичное обновление профиля аккаунта.
// nil-указатель означает «поле не трогать».
type AccountUpdate struct {
	Email    *string
	FullName *string
	IsActive *bool
	Role     *models.Role
}

// AccountStorage выполняет операции над аккаунтами.
type AccountStorage interface {
	// SaveAccount создает новый аккаунт и возвращает его ID.
	SaveAccount(ctx context.Context, account *models.Account) (int64, error)
	// AccountByID находит аккаунт по ID.
	AccountByID(ctx context.Context, id int64) (*models.Account, error)
	// AccountByEmail находит аккаунт по email.
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// ListAccounts возвращает последние limit аккаунтов (по убыванию ID).
	ListAccounts(ctx context.Context, limit int) ([]models.Account, error)
	// UpdateAccount частично обновляет профиль аккаунта.
	UpdateAccount(ctx context.Context, id int64, upd AccountUpdate) (*models.Account, error)
	// UpdatePassword меняет хэш пароля аккаунта.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	// DeleteAccount удаляет аккаунт.
	DeleteAccount(ctx context.Context, id int64) error

	// SetResetToken записывает reset-токен и срок его действия,
	// перезаписывая предыдущий неиспользованный токен.
	SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	// ConsumeResetToken атомарно гасит reset-токен: одна условная запись
	// проверяет совпадение токена и срок, ставит новый хэш пароля и очищает
	// оба reset-поля. Возвращает ID аккаунта. Ноль затронутых строк
	// различается на ErrExpired (токен есть, но просрочен) и ErrNotFound.
	ConsumeResetToken(ctx context.Context, token string, passwordHash string, now time.Time) (int64, error)
}

// RevokedTokenStorage выполняет операции над блэклистом access-токенов.
type RevokedTokenStorage interface {
	// SaveRevokedToken сохраняет отозванный токен. Повторный отзыв того же
	// токена — no-op.
	SaveRevokedToken(ctx context.Context, token *models.RevokedToken) error
	// IsTokenRevoked проверяет наличие токена в блэклисте по точной строке.
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
	// DeleteExpiredTokens удаляет все просроченные записи блэклиста.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	AccountStorage
	RevokedTokenStorage
	Close()
}
