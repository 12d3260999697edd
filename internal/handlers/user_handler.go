package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"cloud-backend/internal/dto"
	"cloud-backend/internal/middleware"
	"cloud-backend/internal/services"
	"cloud-backend/utils/response"
)

type UserHandler struct {
	service *services.UserService
	logger  *log.Logger
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  log.New(log.Writer(), "[UserHandler] ", log.LstdFlags),
	}
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), middleware.GetUserFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "Failed to list users")
		return
	}
	response.Success(w, dto.NewUserListResponse(users), "")
}

// GetUser serves both /users/{id} and /users/{id}/files; the router decides
// who may reach each.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "User not found")
	if !ok {
		return
	}

	user, files, err := h.service.GetUser(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get user")
		return
	}
	response.Success(w, dto.NewUserDetailResponse(user, files), "")
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "User not found")
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := middleware.GetUserFromContext(r.Context())
	user, err := h.service.UpdateUser(r.Context(), actor, id, &req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to update user")
		return
	}

	_, files, err := h.service.GetUser(r.Context(), actor, user.ID)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get user")
		return
	}
	response.Success(w, dto.NewUserDetailResponse(user, files), "User updated successfully")
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "User not found")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), middleware.GetUserFromContext(r.Context()), id); err != nil {
		writeError(w, h.logger, err, "Failed to delete user")
		return
	}
	response.NoContent(w)
}
