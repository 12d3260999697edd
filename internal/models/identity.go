package models

import "github.com/google/uuid"

// Identity is the authenticated caller of a request. It is resolved from the
// session once per request and passed explicitly into every service call.
type Identity struct {
	UserID   uuid.UUID `json:"userID"`
	Username string    `json:"username"`
	IsAdmin  bool      `json:"isAdmin"`
}

func IdentityOf(u *User) *Identity {
	return &Identity{
		UserID:   u.ID,
		Username: u.Username,
		IsAdmin:  u.IsAdmin(),
	}
}
