package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/accounts-service/internal/pkg/redact"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// Входные структуры сервисного слоя.

type CreateAccountInput struct {
	Email    string
	FullName string
	Password string
	// Role — роль нового аккаунта; пустая строка означает CLIENT.
	// Публичная регистрация роль не выбирает, это решает транспорт.
	Role models.Role
}

type UpdateAccountInput struct {
	Email    *string
	FullName *string
	IsActive *bool
	Role     *models.Role
}

// CreateAccount регистрирует новый аккаунт.
//
// Валидация:
//   - email нормализуется и проверяется по формату;
//   - пароль проходит политику сложности;
//   - роль должна входить в допустимый набор.
//
// Поведение:
//   - занятый email -> ErrEmailTaken (и на предварительном lookup,
//     и на гонке вставки по уникальному индексу).
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (*models.Account, error) {
	const op = "service.accounts.CreateAccount"

	lg := log.From(ctx)

	normEmail, err := validateEmail(input.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := validatePassword(input.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	role := input.Role
	if role == "" {
		role = models.RoleClient
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	_, err = s.storage.AccountByEmail(ctx, normEmail)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	account := &models.Account{
		Email:        normEmail,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hashedPassword,
		IsActive:     true,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := s.storage.SaveAccount(ctx, account)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	account.ID = id

	lg.Info("account_created",
		slog.String("op", op),
		slog.Int64("account_id", id),
		slog.String("email", redact.Email(normEmail)),
	)

	return account, nil
}

// AccountByID возвращает аккаунт по идентификатору.
func (s *Service) AccountByID(ctx context.Context, id int64) (*models.Account, error) {
	const op = "service.accounts.AccountByID"

	if id <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	account, err := s.storage.AccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// AccountByEmail возвращает аккаунт по email.
func (s *Service) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "service.accounts.AccountByEmail"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	account, err := s.storage.AccountByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// ListAccounts возвращает последние limit аккаунтов.
// limit <= 0 или больше конфигурационного предела — берётся предел.
func (s *Service) ListAccounts(ctx context.Context, limit int) ([]models.Account, error) {
	const op = "service.accounts.ListAccounts"

	if limit <= 0 || limit > s.cfg.ListLimit {
		limit = s.cfg.ListLimit
	}

	accounts, err := s.storage.ListAccounts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return accounts, nil
}

// UpdateAccount частично обновляет профиль аккаунта.
// nil-указатель во входной структуре означает «поле не трогать».
func (s *Service) UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) (*models.Account, error) {
	const op = "service.accounts.UpdateAccount"

	lg := log.From(ctx)

	if id <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	upd := storage.AccountUpdate{
		IsActive: input.IsActive,
	}

	if input.Email != nil {
		normEmail, err := validateEmail(*input.Email)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
		}
		upd.Email = &normEmail
	}

	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		upd.FullName = &name
	}

	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}
		upd.Role = input.Role
	}

	account, err := s.storage.UpdateAccount(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	lg.Info("account_updated",
		slog.String("op", op),
		slog.Int64("account_id", id),
	)

	return account, nil
}

// ChangePassword меняет пароль аккаунта после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	const op = "service.accounts.ChangePassword"

	lg := log.From(ctx)

	account, err := s.AccountByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(account.PasswordHash, current) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := validatePassword(next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := hashPassword(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("password_changed",
		slog.String("op", op),
		slog.Int64("account_id", id),
	)

	return nil
}

// DeleteAccount удаляет аккаунт.
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	const op = "service.accounts.DeleteAccount"

	lg := log.From(ctx)

	if id <= 0 {
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if err := s.storage.DeleteAccount(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("account_deleted",
		slog.String("op", op),
		slog.Int64("account_id", id),
	)

	return nil
}
