package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     *string   `db:"full_name" json:"full_name,omitempty"`
	Role         string    `db:"role" json:"role"`
	PasswordHash []byte    `db:"password_hash" json:"-"`
	PasswordSalt []byte    `db:"password_salt" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
