package dto

import "github.com/google/uuid"

type RegisterUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Detail   string    `json:"detail"`
	UserID   uuid.UUID `json:"userID"`
	Username string    `json:"username"`
	IsAdmin  bool      `json:"isAdmin"`
}

type CSRFResponse struct {
	CSRF string `json:"csrf"`
}
