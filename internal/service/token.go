package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
)

// accessClaims — типизированные claims access-токена.
// Канонический субъект — десятичный ID аккаунта (см. DESIGN.md);
// email дублируется отдельным claim для удобства потребителей.
type accessClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// generateAccessToken выпускает подписанный access-токен для аккаунта.
// Срок действия — AccessTokenTTL из конфигурации (по умолчанию 15 минут).
func (s *Service) generateAccessToken(ctx context.Context, account *models.Account, now time.Time) (models.AccessToken, error) {
	const op = "service.token.generateAccessToken"

	lg := log.From(ctx)

	sub := strconv.FormatInt(account.ID, 10)
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	claims := accessClaims{
		UserID: sub,
		Email:  account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti делает каждый выпуск уникальным: два токена одного аккаунта,
			// выпущенные в одну секунду, не совпадают байт-в-байт, иначе отзыв
			// одного отозвал бы оба.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   sub,
			Audience:  jwt.ClaimStrings(s.cfg.Audience),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		lg.Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.AccessToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.AccessToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// parseAccessToken валидирует access-токен и возвращает его claims.
// Любая проблема подписи/алгоритма/структуры — ErrInvalidToken,
// истёкший срок — ErrTokenExpired.
func (s *Service) parseAccessToken(tokenStr string) (*accessClaims, error) {
	const op = "service.token.parseAccessToken"

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience...),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// parseTokenExpiry проверяет подпись токена, игнорируя сроки, и возвращает
// его expiry. Нужен для отзыва: logout просроченного токена безвреден и
// не должен падать, но неподписанный мусор в блэклист не попадает.
func (s *Service) parseTokenExpiry(tokenStr string) (time.Time, error) {
	const op = "service.token.parseTokenExpiry"

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims.ExpiresAt.Time, nil
}

// accountIDFromClaims извлекает ID аккаунта из субъекта токена.
func accountIDFromClaims(claims *accessClaims) (int64, error) {
	const op = "service.token.accountIDFromClaims"

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return id, nil
}
