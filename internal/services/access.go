package services

import (
	"cloud-backend/internal/models"

	"github.com/google/uuid"
)

// Access rules are evaluated after the target has been located, so a missing
// resource is reported as not found and an existing one as forbidden.

func requireAdmin(actor *models.Identity) error {
	if actor == nil {
		return ErrNotAuthenticated
	}
	if !actor.IsAdmin {
		return ErrAuthorization
	}
	return nil
}

func requireSelfOrAdmin(actor *models.Identity, userID uuid.UUID) error {
	if actor == nil {
		return ErrNotAuthenticated
	}
	if actor.IsAdmin || actor.UserID == userID {
		return nil
	}
	return ErrAuthorization
}

func requireOwnerOrAdmin(actor *models.Identity, file *models.File) error {
	return requireSelfOrAdmin(actor, file.UserID)
}
