package services

import (
	"errors"
	"testing"

	"cloud-backend/internal/dto"
	"cloud-backend/internal/models"
)

func TestRegisterUser(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.auth.RegisterUser(env.ctx, &dto.RegisterUserRequest{
		Username: "alice",
		Email:    "alice@x.com",
		Password: "pw1",
	})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	if user.Role != models.UserRoleUser {
		t.Errorf("expected role %s, got %s", models.UserRoleUser, user.Role)
	}
	if user.StorageDirectory != "alice" {
		t.Errorf("expected storage directory alice, got %s", user.StorageDirectory)
	}
	if user.PasswordHash == "" || user.PasswordHash == "pw1" {
		t.Error("password should be stored hashed")
	}
}

func TestRegisterUser_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	_, err := env.auth.RegisterUser(env.ctx, &dto.RegisterUserRequest{
		Username: "alice",
		Email:    "other@x.com",
		Password: "pw2",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if _, ok := verr.Fields()["username"]; !ok {
		t.Errorf("expected a username field error, got %v", verr.Fields())
	}
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	_, err := env.auth.RegisterUser(env.ctx, &dto.RegisterUserRequest{
		Username: "alice2",
		Email:    "alice@x.com",
		Password: "pw2",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if _, ok := verr.Fields()["email"]; !ok {
		t.Errorf("expected an email field error, got %v", verr.Fields())
	}
}

func TestRegisterUser_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		req   dto.RegisterUserRequest
		field string
	}{
		{"empty username", dto.RegisterUserRequest{Email: "a@x.com", Password: "pw"}, "username"},
		{"username with slash", dto.RegisterUserRequest{Username: "a/b", Email: "a@x.com", Password: "pw"}, "username"},
		{"dot-dot username", dto.RegisterUserRequest{Username: "..", Email: "a@x.com", Password: "pw"}, "username"},
		{"bad email", dto.RegisterUserRequest{Username: "bob", Email: "not-an-email", Password: "pw"}, "email"},
		{"empty password", dto.RegisterUserRequest{Username: "bob", Email: "bob@x.com"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.auth.RegisterUser(env.ctx, &tt.req)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if _, ok := verr.Fields()[tt.field]; !ok {
				t.Errorf("expected a %s field error, got %v", tt.field, verr.Fields())
			}
		})
	}
}

func TestLoginUser(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	user, err := env.auth.LoginUser(env.ctx, &dto.LoginUserRequest{Username: "alice", Password: "pw-alice"})
	if err != nil {
		t.Fatalf("LoginUser failed: %v", err)
	}
	if user.LastLogin == nil {
		t.Error("LastLogin should be set after login")
	}

	stored, _ := env.store.GetUserByID(env.ctx, user.ID)
	if stored.LastLogin == nil {
		t.Error("LastLogin should be persisted")
	}
}

func TestLoginUser_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	tests := []struct {
		name string
		req  dto.LoginUserRequest
	}{
		{"wrong password", dto.LoginUserRequest{Username: "alice", Password: "nope"}},
		{"unknown user", dto.LoginUserRequest{Username: "mallory", Password: "pw"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.LoginUser(env.ctx, &tt.req)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
			if !errors.Is(err, ErrAuthentication) {
				t.Errorf("expected error to match ErrAuthentication, got %v", err)
			}
		})
	}
}

func TestLoginUser_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	tests := []struct {
		name string
		req  dto.LoginUserRequest
	}{
		{"missing password", dto.LoginUserRequest{Username: "alice"}},
		{"missing username", dto.LoginUserRequest{Password: "pw-alice"}},
		{"empty", dto.LoginUserRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.LoginUser(env.ctx, &tt.req)
			if !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
			if !errors.Is(err, ErrAuthentication) {
				t.Errorf("expected error to match ErrAuthentication, got %v", err)
			}
			if errors.Is(err, ErrValidation) {
				t.Errorf("missing credentials should not be a validation error, got %v", err)
			}
		})
	}
}

func TestEnsureAdmin(t *testing.T) {
	env := newTestEnv(t)

	if err := env.auth.EnsureAdmin(env.ctx, "root", "root@x.com", "secret"); err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	// Second call finds the existing account
	if err := env.auth.EnsureAdmin(env.ctx, "root", "root@x.com", "secret"); err != nil {
		t.Fatalf("second EnsureAdmin failed: %v", err)
	}

	admin, err := env.store.GetUserByUsername(env.ctx, "root")
	if err != nil {
		t.Fatalf("admin should exist: %v", err)
	}
	if !admin.IsAdmin() {
		t.Error("bootstrap user should be an administrator")
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "alice").UserID

	if _, err := env.auth.GetUserByID(env.ctx, id); err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}

	other := env.register(t, "bob")
	admin := env.registerAdmin(t, "root")
	if err := env.users.DeleteUser(env.ctx, admin, other.UserID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := env.auth.GetUserByID(env.ctx, other.UserID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
