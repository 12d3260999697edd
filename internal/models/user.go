package models

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

type User struct {
	ID uuid.UUID `db:"id" json:"id"`

	Username         string   `db:"username" json:"username"`
	Email            string   `db:"email" json:"email"`
	PasswordHash     string   `db:"password_hash" json:"-"`
	Role             UserRole `db:"role" json:"role"`
	StorageDirectory string   `db:"storage_directory" json:"storage_directory"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	LastLogin *time.Time `db:"last_login" json:"last_login"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// UserStats is a user row joined with the aggregate of the files it owns.
type UserStats struct {
	User
	FilesCount  int64 `db:"files_count" json:"files_count"`
	StorageSize int64 `db:"storage_size" json:"storage_size"`
}
