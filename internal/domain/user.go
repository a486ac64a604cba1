package domain

import "time"

// User — учётная запись для доступа к API. Пароль хранится только в виде bcrypt-хеша.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
