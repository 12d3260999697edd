package dto

import (
	"time"

	"cloud-backend/internal/models"

	"github.com/google/uuid"
)

type UserResponse struct {
	ID               uuid.UUID       `json:"id"`
	Username         string          `json:"username"`
	Email            string          `json:"email"`
	Role             models.UserRole `json:"role"`
	IsAdmin          bool            `json:"is_admin"`
	StorageDirectory string          `json:"storage_directory"`
	CreatedAt        time.Time       `json:"created_at"`
	LastLogin        *time.Time      `json:"last_login"`
	FilesCount       int64           `json:"files_count"`
	StorageSize      int64           `json:"storage_size"`
}

type UserDetailResponse struct {
	UserResponse
	Files []FileResponse `json:"files"`
}

// UpdateUserRequest is shared by PUT and PATCH. IsAdmin is accepted as an
// alternative spelling of Role.
type UpdateUserRequest struct {
	Email    *string          `json:"email"`
	Password *string          `json:"password"`
	Role     *models.UserRole `json:"role"`
	IsAdmin  *bool            `json:"is_admin"`
}

func NewUserResponse(u *models.User, filesCount, storageSize int64) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		IsAdmin:          u.IsAdmin(),
		StorageDirectory: u.StorageDirectory,
		CreatedAt:        u.CreatedAt,
		LastLogin:        u.LastLogin,
		FilesCount:       filesCount,
		StorageSize:      storageSize,
	}
}

func NewUserListResponse(users []models.UserStats) []UserResponse {
	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, NewUserResponse(&users[i].User, users[i].FilesCount, users[i].StorageSize))
	}
	return resp
}

func NewUserDetailResponse(u *models.User, files []models.File) UserDetailResponse {
	var size int64
	for _, f := range files {
		size += f.Size
	}
	return UserDetailResponse{
		UserResponse: NewUserResponse(u, int64(len(files)), size),
		Files:        NewFileListResponse(files),
	}
}
