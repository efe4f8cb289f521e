package models

import "time"

// RevokedToken — запись блэклиста: отозванный access-токен.
//
// Ключ — точная строка подписанного токена. Запись становится мертвой после
// ExpiresAt (просроченный токен и так не проходит проверку по exp); фоновая
// зачистка удаляет такие строки.
type RevokedToken struct {
	// Token — точная строка подписанного JWT.
	Token string
	// ExpiresAt — срок действия токена, взятый из его claims (UTC).
	ExpiresAt time.Time
	// RevokedAt — момент отзыва (UTC).
	RevokedAt time.Time
}
