package models

import "time"

// Role — роль аккаунта в системе.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleClient Role = "CLIENT"
)

// Valid сообщает, входит ли роль в допустимый набор.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// Account — внутренняя модель аккаунта.
//
// Содержит хэш пароля и поля reset-токена; наружу (в транспорт) отдается
// только проекция Profile. Инвариант: ResetToken и ResetTokenExpires либо
// оба заданы, либо оба пусты.
type Account struct {
	ID                int64
	Email             string
	FullName          string
	PasswordHash      string
	IsActive          bool
	Role              Role
	ResetToken        string
	ResetTokenExpires time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Profile — публичная проекция аккаунта без чувствительных полей.
type Profile struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsActive bool   `json:"is_active"`
	Role     Role   `json:"role"`
}

// Profile возвращает публичную проекцию аккаунта.
// Хэш пароля и reset-поля в проекцию не попадают никогда.
func (a *Account) Profile() Profile {
	return Profile{
		ID:       a.ID,
		Email:    a.Email,
		FullName: a.FullName,
		IsActive: a.IsActive,
		Role:     a.Role,
	}
}
