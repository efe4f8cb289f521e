package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"time"

	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/accounts-service/internal/pkg/redact"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// mailTimeout ограничивает отправку письма, оторванную от запроса.
const mailTimeout = 15 * time.Second

// RequestPasswordReset запускает парольный reset-хэндшейк.
//
// Вызывающему всегда возвращается успех независимо от существования email —
// ответ не должен позволять перечислять аккаунты. Если аккаунт существует,
// выпускается одноразовый токен (перезаписывая предыдущий) и письмо уходит
// в фоне: сбой почты логируется, но подтверждение запроса не ломает.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "service.reset.RequestPasswordReset"

	lg := log.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		// Некорректный формат неотличим от несуществующего аккаунта.
		return nil
	}

	account, err := s.storage.AccountByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("reset_requested_unknown_email",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
			)
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.issueResetToken(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("reset_token_issued",
		slog.String("op", op),
		slog.Int64("account_id", account.ID),
		slog.String("token", redact.Token()),
	)

	s.dispatchResetMail(lg, account, token)

	return nil
}

// ConfirmPasswordReset гасит reset-токен и устанавливает новый пароль.
// Проверка срока и очистка токена атомарны на уровне хранилища: из двух
// конкурентных подтверждений одного токена выигрывает ровно одно.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	const op = "service.reset.ConfirmPasswordReset"

	lg := log.From(ctx)

	if token == "" {
		return fmt.Errorf("%s: %w", op, ErrResetTokenNotFound)
	}

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.storage.ConsumeResetToken(ctx, token, hash, time.Now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrResetTokenNotFound)
		}
		if errors.Is(err, storage.ErrExpired) {
			return fmt.Errorf("%s: %w", op, ErrResetTokenExpired)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("password_reset_confirmed",
		slog.String("op", op),
		slog.Int64("account_id", id),
	)

	return nil
}

// issueResetToken генерирует одноразовый URL-safe секрет (32 байта энтропии),
// срок действия — ResetTokenTTL (24 часа), и сохраняет его на аккаунте.
// Коллизия уникального индекса решается перегенерацией.
func (s *Service) issueResetToken(ctx context.Context, accountID int64) (string, error) {
	const (
		op          = "service.reset.issueResetToken"
		maxAttempts = 5
	)

	lg := log.From(ctx)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			lg.Error("reset_rand_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return "", fmt.Errorf("%s: %w", op, err)
		}
		token := base64.RawURLEncoding.EncodeToString(b)

		expiresAt := time.Now().UTC().Add(s.cfg.ResetTokenTTL)

		if err := s.storage.SetResetToken(ctx, accountID, token, expiresAt); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия — пробуем сгенерировать заново.
				continue
			}

			return "", fmt.Errorf("%s: %w", op, err)
		}

		return token, nil
	}

	lg.Error("reset_collision_exceeded", slog.String("op", op))

	return "", fmt.Errorf("%s: %w", op, ErrResetTokenCollision)
}

// dispatchResetMail отправляет письмо со ссылкой на сброс в отдельной
// горутине с собственным таймаутом: судьба письма не влияет на ответ
// вызывающему.
func (s *Service) dispatchResetMail(lg *slog.Logger, account *models.Account, token string) {
	if s.mailer == nil {
		lg.Debug("reset_mail_skipped_no_mailer",
			slog.Int64("account_id", account.ID),
		)
		return
	}

	to := account.Email
	subject, body := s.buildResetMail(account, token)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		if err := s.mailer.Send(ctx, to, subject, body); err != nil {
			lg.Error("reset_mail_send_failed",
				slog.String("email", redact.Email(to)),
				slog.String("err", err.Error()),
			)
			return
		}

		lg.Info("reset_mail_sent", slog.String("email", redact.Email(to)))
	}()
}

// buildResetMail собирает тему и HTML-тело письма со ссылкой на сброс.
func (s *Service) buildResetMail(account *models.Account, token string) (string, string) {
	link := s.cfg.ResetURLBase + "?token=" + url.QueryEscape(token)

	subject := "Password reset request"
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>We received a request to reset your password. The link below is valid for %s and can be used once:</p>
<p><a href="%s">Reset your password</a></p>
<p>If you did not request this, you can safely ignore this email.</p>`,
		html.EscapeString(account.FullName), s.cfg.ResetTokenTTL, link,
	)

	return subject, body
}
