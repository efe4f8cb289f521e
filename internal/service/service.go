// service содержит бизнес-логику accounts-сервиса:
// регистрацию/аутентификацию, выпуск/проверку/отзыв access-токенов,
// парольный reset-хэндшейк и CRUD аккаунтов поверх интерфейсов из
// пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Ошибки возвращаются типизированными и далее маппятся транспортом
//     на HTTP-статусы (см. комментарии к переменным ошибок ниже).
//   - Секреты (пароли, сырые токены) в логи не пишутся.
package service

import (
	"errors"

	"github.com/pribylovaa/accounts-service/internal/cache"
	"github.com/pribylovaa/accounts-service/internal/config"
	"github.com/pribylovaa/accounts-service/internal/mail"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна, пользователь не найден
	// или аккаунт деактивирован. Детали наружу не раскрываются. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — access-токен некорректен по формату/подписи или
	// ссылается на несуществующий аккаунт. HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия access-токена истёк. HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — токен отозван (logout/rotation) и недействителен
	// независимо от срока. HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrEmailTaken — e-mail уже занят другим аккаунтом. HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrResetTokenNotFound — reset-токен не найден (или уже погашен). HTTP 400.
	ErrResetTokenNotFound = errors.New("reset token not found")

	// ErrResetTokenExpired — reset-токен просрочен. HTTP 400.
	ErrResetTokenExpired = errors.New("reset token expired")

	// ErrResetTokenCollision — исчерпаны попытки сгенерировать уникальный
	// reset-токен (крайне редкие коллизии уникального индекса). HTTP 500.
	ErrResetTokenCollision = errors.New("reset token collision")

	// ErrNotFound — аккаунт не найден. HTTP 404.
	ErrNotFound = errors.New("account not found")

	// ErrInvalidEmail — e-mail имеет некорректный формат. HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности. HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrInvalidArgument — прочая невалидность входных данных. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Service описывает бизнес-логику accounts-сервиса.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	mailer  mail.Mailer           // может быть nil, если почта не сконфигурирована
	rcache  cache.RevocationCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetMailer устанавливает почтовый коллаборатор (опционально).
// Без него запросы на сброс пароля подтверждаются, но письма не уходят.
func (s *Service) SetMailer(m mail.Mailer) {
	s.mailer = m
}

// SetRevocationCache устанавливает кэш отозванных токенов (опционально).
func (s *Service) SetRevocationCache(c cache.RevocationCache) {
	s.rcache = c
}
