package handlers

import (
	"errors"
	"log"
	"net/http"

	"cloud-backend/internal/services"
	"cloud-backend/utils/response"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// writeError maps the service error taxonomy onto status codes. Anything
// outside the taxonomy is logged and reported with the generic fallback.
func writeError(w http.ResponseWriter, logger *log.Logger, err error, fallback string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Invalid(w, "Validation failed", verr.Fields())
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Error(w, http.StatusBadRequest, "Invalid username or password")
	case errors.Is(err, services.ErrMissingCredentials):
		response.Error(w, http.StatusBadRequest, "Provide username and password")
	case errors.Is(err, services.ErrAuthentication):
		response.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided")
	case errors.Is(err, services.ErrAuthorization):
		response.Error(w, http.StatusForbidden, "You do not have permission to perform this action")
	case errors.Is(err, services.ErrUserNotFound):
		response.Error(w, http.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrFileNotFound):
		response.Error(w, http.StatusNotFound, "File not found")
	case errors.Is(err, services.ErrBlobNotFound):
		response.Error(w, http.StatusNotFound, "File content not found")
	case errors.Is(err, services.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrKeyGeneration):
		logger.Printf("%s: %v", fallback, err)
		response.Error(w, http.StatusInternalServerError, "Could not create an external link key, contact an administrator")
	default:
		logger.Printf("%s: %v", fallback, err)
		response.Error(w, http.StatusInternalServerError, fallback)
	}
}

// pathID parses the {id} URL parameter. Anything that is not a UUID cannot
// name a row, so it is answered like a missing one.
func pathID(w http.ResponseWriter, r *http.Request, notFound string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, notFound)
		return uuid.Nil, false
	}
	return id, true
}
