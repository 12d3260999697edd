package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"cloud-backend/internal/dto"
	"cloud-backend/internal/middleware"
	"cloud-backend/internal/models"
	"cloud-backend/internal/services"
	"cloud-backend/utils/response"
)

type AuthHandler struct {
	service  *services.AuthService
	sessions *middleware.SessionAuth
	csrf     *middleware.CSRF
	logger   *log.Logger
}

func NewAuthHandler(service *services.AuthService, sessions *middleware.SessionAuth, csrf *middleware.CSRF) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		csrf:     csrf,
		logger:   log.New(log.Writer(), "[AuthHandler] ", log.LstdFlags),
	}
}

func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.RegisterUser(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to register user")
		return
	}

	response.Created(w, dto.NewUserResponse(user, 0, 0), "User registered successfully")
}

func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	if identity := middleware.GetUserFromContext(r.Context()); identity != nil {
		response.Success(w, sessionResponse("Already authenticated", identity), "")
		return
	}

	var req dto.LoginUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.LoginUser(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to login user")
		return
	}

	if err := h.sessions.Login(w, r, user); err != nil {
		h.logger.Printf("Failed to save session for user %s: %v", user.Username, err)
		response.Error(w, http.StatusInternalServerError, "Failed to login user")
		return
	}

	response.Success(w, sessionResponse("Successfully logged in", models.IdentityOf(user)), "")
}

func (h *AuthHandler) LogoutUser(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetUserFromContext(r.Context())
	if err := h.sessions.Logout(w, r); err != nil {
		h.logger.Printf("Failed to end session: %v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to logout user")
		return
	}
	h.logger.Printf("User %s logged out", identity.Username)

	response.Success(w, nil, "Successfully logged out")
}

func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetUserFromContext(r.Context())
	response.Success(w, sessionResponse("", identity), "")
}

func (h *AuthHandler) GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrf.Issue(w)
	if err != nil {
		h.logger.Printf("Failed to issue CSRF token: %v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to issue CSRF token")
		return
	}
	response.Success(w, dto.CSRFResponse{CSRF: token}, "")
}

func sessionResponse(detail string, identity *models.Identity) dto.SessionResponse {
	return dto.SessionResponse{
		Detail:   detail,
		UserID:   identity.UserID,
		Username: identity.Username,
		IsAdmin:  identity.IsAdmin,
	}
}
