package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/accounts-service/internal/pkg/redact"
	"github.com/pribylovaa/accounts-service/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

// Login выполняет вход по email+пароль и выпускает access-токен.
// Неизвестный email, неверный пароль и деактивированный аккаунт неразличимы
// для вызывающего — всегда ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (models.AccessToken, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if len(password) == 0 {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	account, err := s.storage.AccountByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.AccessToken{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(account.PasswordHash, password) {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !account.IsActive {
		lg.Warn("login_inactive_account",
			slog.String("op", op),
			slog.String("email", redact.Email(account.Email)),
		)
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.generateAccessToken(ctx, account, time.Now().UTC())
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// Logout безусловно отзывает предъявленный токен.
// Отзыв уже просроченного или уже отозванного токена безвреден; падаем
// только на неподписанном мусоре (ErrInvalidToken). Подтверждаем вызов
// только после того, как запись блэклиста легла в хранилище.
func (s *Service) Logout(ctx context.Context, token string) error {
	const op = "service.auth.Logout"

	lg := log.From(ctx)

	expiresAt, err := s.parseTokenExpiry(token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	entry := &models.RevokedToken{
		Token:     token,
		ExpiresAt: expiresAt,
		RevokedAt: time.Now().UTC(),
	}

	if err := s.storage.SaveRevokedToken(ctx, entry); err != nil {
		lg.Error("revoke_save_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	// Кэш — best-effort поверх долговременной записи.
	if s.rcache != nil {
		ttl := time.Until(expiresAt)
		if ttl > 0 {
			if err := s.rcache.Set(ctx, revocationKey(token), ttl); err != nil {
				lg.Warn("revocation_cache_set_failed",
					slog.String("op", op),
					slog.String("err", err.Error()),
				)
			}
		}
	}

	return nil
}

// Refresh выпускает новый access-токен взамен предъявленного (ротация).
// Старый токен отзывается до выпуска нового: на одну refresh-цепочку
// в любой момент живёт не более одного токена, повторный Refresh того же
// исходного токена завершается ошибкой.
func (s *Service) Refresh(ctx context.Context, token string) (models.AccessToken, error) {
	const op = "service.auth.Refresh"

	lg := log.From(ctx)

	claims, err := s.parseAccessToken(token)
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	revoked, err := s.isRevoked(ctx, token)
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		lg.Warn("refresh_of_revoked_token", slog.String("op", op))
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	id, err := accountIDFromClaims(claims)
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	account, err := s.storage.AccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.AccessToken{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	if !account.IsActive {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	// Отзыв старого токена должен быть durable до выпуска нового.
	if err := s.Logout(ctx, token); err != nil {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	fresh, err := s.generateAccessToken(ctx, account, time.Now().UTC())
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return fresh, nil
}

// Authenticate проверяет access-токен и возвращает аккаунт его владельца.
// Используется bearer-middleware транспорта.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	const op = "service.auth.Authenticate"

	claims, err := s.parseAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	revoked, err := s.isRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	id, err := accountIDFromClaims(claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	account, err := s.storage.AccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !account.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return account, nil
}

// isRevoked проверяет токен по блэклисту: сперва кэш, затем хранилище.
// Кэш хранит только положительные записи, поэтому промах не означает
// «не отозван» — решает хранилище.
func (s *Service) isRevoked(ctx context.Context, token string) (bool, error) {
	const op = "service.auth.isRevoked"

	if s.rcache != nil {
		hit, err := s.rcache.Contains(ctx, revocationKey(token))
		if err != nil {
			log.From(ctx).Warn("revocation_cache_lookup_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		} else if hit {
			return true, nil
		}
	}

	revoked, err := s.storage.IsTokenRevoked(ctx, token)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return revoked, nil
}

// revocationKey сжимает токен в короткий ключ кэша.
func revocationKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
// На битом хэше не паникует и не ошибается — просто false.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика по умолчанию: длина >= 8, хотя бы одна строчная, заглавная, цифра и спецсимвол.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
