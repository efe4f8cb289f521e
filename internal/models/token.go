package models

import "time"

// AccessToken — подписанный access-токен, выдаваемый при входе/обновлении.
// Не персистится: валидность определяется подписью, сроком действия и
// отсутствием записи в блэклисте.
type AccessToken struct {
	// Token — сериализованный JWT.
	Token string
	// ExpiresAt — момент истечения действия токена (UTC).
	ExpiresAt time.Time
}
