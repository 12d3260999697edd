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

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	users    UserRepository
	hashCost int
	now      func() time.Time
	logger   *log.Logger
}

func NewAuthService(users UserRepository) *AuthService {
	return &AuthService{
		users:    users,
		hashCost: bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log.New(log.Writer(), "[AuthService] ", log.LstdFlags),
	}
}

func (s *AuthService) RegisterUser(ctx context.Context, req *dto.RegisterUserRequest) (*models.User, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	user, err := s.newUser(req.Username, req.Email, req.Password, models.UserRoleUser)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		switch database.ViolatedConstraint(err) {
		case database.ConstraintUsername:
			return nil, newFieldError("username", errors.New("a user with that username already exists"))
		case database.ConstraintEmail:
			return nil, newFieldError("email", errors.New("a user with that email already exists"))
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Printf("Registered user %s (%s)", user.Username, user.ID)
	return user, nil
}

// LoginUser checks the credentials and records the login time.
func (s *AuthService) LoginUser(ctx context.Context, req *dto.LoginUserRequest) (*models.User, error) {
	if req.Username == "" || req.Password == "" {
		s.logger.Printf("Login attempt without username or password")
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.logger.Printf("Failed login attempt for unknown user %q", req.Username)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Printf("Failed login attempt for user %s", user.Username)
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLogin = &now

	s.logger.Printf("User %s logged in", user.Username)
	return user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator unless a user with that
// username already exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	_, err := s.users.GetUserByUsername(ctx, username)
	if err == nil {
		s.logger.Printf("Admin user %q already exists", username)
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	if err := validateRegistration(&dto.RegisterUserRequest{Username: username, Email: email, Password: password}); err != nil {
		return fmt.Errorf("invalid admin account settings: %w", err)
	}

	admin, err := s.newUser(username, email, password, models.UserRoleAdmin)
	if err != nil {
		return err
	}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.logger.Printf("Created admin user %q", username)
	return nil
}

func (s *AuthService) newUser(username, email, password string, role models.UserRole) (*models.User, error) {
	hash, err := hashPassword(password, s.hashCost)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &models.User{
		ID:               uuid.New(),
		Username:         username,
		Email:            email,
		PasswordHash:     hash,
		Role:             role,
		StorageDirectory: username,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func hashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}
