package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleAgent UserRole = "agent"
)

type User struct {
	ID           uuid.UUID `db:"id" json:"id" firestore:"uid"`
	Name         string    `db:"name" json:"name" firestore:"name"`
	Email        string    `db:"email" json:"email" firestore:"email"`
	Role         UserRole  `db:"role" json:"role" firestore:"role"`
	Active       bool      `db:"active" json:"active" firestore:"active"`
	PasswordHash []byte    `db:"password_hash" json:"-" firestore:"passwordHash,omitempty"`
	PasswordSalt []byte    `db:"password_salt" json:"-" firestore:"passwordSalt,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at" firestore:"createdOn"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
