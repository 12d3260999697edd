package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud-backend/internal/database"
	"cloud-backend/internal/dto"
	"cloud-backend/internal/models"
	"cloud-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	users    UserRepository
	files    FileRepository
	blobs    BlobStore
	hashCost int
	now      func() time.Time
	logger   *log.Logger
}

func NewUserService(users UserRepository, files FileRepository, blobs BlobStore) *UserService {
	return &UserService{
		users:    users,
		files:    files,
		blobs:    blobs,
		hashCost: bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log.New(log.Writer(), "[UserService] ", log.LstdFlags),
	}
}

func (s *UserService) ListUsers(ctx context.Context, actor *models.Identity) ([]models.UserStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// GetUser returns the user together with the files it owns. Administrators
// may read anyone; other callers only themselves.
func (s *UserService) GetUser(ctx context.Context, actor *models.Identity, id uuid.UUID) (*models.User, []models.File, error) {
	user, err := s.locate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := requireSelfOrAdmin(actor, user.ID); err != nil {
		if errors.Is(err, ErrAuthorization) {
			s.logger.Printf("User %s denied access to files of user %s", actor.Username, user.ID)
		}
		return nil, nil, err
	}

	files, err := s.files.ListFilesByUser(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list files: %w", err)
	}
	return user, files, nil
}

func (s *UserService) UpdateUser(ctx context.Context, actor *models.Identity, id uuid.UUID, req *dto.UpdateUserRequest) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if req.Role == nil && req.IsAdmin != nil {
		role := models.UserRoleUser
		if *req.IsAdmin {
			role = models.UserRoleAdmin
		}
		req.Role = &role
	}
	if err := validateUserUpdate(req); err != nil {
		return nil, err
	}

	user, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Role != nil && user.ID == actor.UserID && *req.Role != models.UserRoleAdmin {
		return nil, newFieldError("role", errors.New("administrators cannot revoke their own admin rights"))
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password, s.hashCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.now()

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if database.ViolatedConstraint(err) == database.ConstraintEmail {
			return nil, newFieldError("email", errors.New("a user with that email already exists"))
		}
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Printf("Admin %s updated user %s (role=%s)", actor.Username, user.Username, user.Role)
	return user, nil
}

// DeleteUser removes the user, its file rows and its storage directory as
// one unit. The directory is moved aside inside the transaction and purged
// after commit; a failed commit moves it back.
func (s *UserService) DeleteUser(ctx context.Context, actor *models.Identity, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	user, err := s.locate(ctx, id)
	if err != nil {
		return err
	}
	if user.ID == actor.UserID {
		return newFieldError("detail", errors.New("administrators cannot delete their own account"))
	}

	var trashed *storage.Trashed
	err = s.users.DeleteUser(ctx, user.ID, func() error {
		t, err := s.blobs.Trash(user.StorageDirectory)
		if err != nil {
			return err
		}
		trashed = t
		return nil
	})
	if err != nil {
		if trashed != nil {
			if restoreErr := s.blobs.Restore(trashed); restoreErr != nil {
				s.logger.Printf("Failed to restore storage of user %s: %v", user.Username, restoreErr)
				err = multierror.Append(err, restoreErr)
			}
		}
		if errors.Is(err, database.ErrNotFound) {
			return ErrUserNotFound
		}
		s.logger.Printf("Failed to delete user %s: %v", user.Username, err)
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if trashed == nil {
		s.logger.Printf("Storage directory of user %s was already absent", user.Username)
	} else if err := s.blobs.Purge(trashed); err != nil {
		s.logger.Printf("Failed to purge storage of user %s: %v", user.Username, err)
	}

	s.logger.Printf("Admin %s deleted user %s", actor.Username, user.Username)
	return nil
}

func (s *UserService) locate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
