package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cloud-backend/internal/dto"
	"cloud-backend/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.register(t, "bob")
	admin := env.registerAdmin(t, "root")

	env.upload(t, alice, "a.txt", "12345")
	env.upload(t, alice, "b.txt", "678")

	users, err := env.users.ListUsers(env.ctx, admin)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}

	for _, u := range users {
		if u.ID != alice.UserID {
			continue
		}
		if u.FilesCount != 2 {
			t.Errorf("expected 2 files for alice, got %d", u.FilesCount)
		}
		if u.StorageSize != 8 {
			t.Errorf("expected 8 bytes for alice, got %d", u.StorageSize)
		}
	}
}

func TestListUsers_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	if _, err := env.users.ListUsers(env.ctx, alice); !errors.Is(err, ErrAuthorization) {
		t.Errorf("expected ErrAuthorization, got %v", err)
	}
	if _, err := env.users.ListUsers(env.ctx, nil); !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	admin := env.registerAdmin(t, "root")
	env.upload(t, alice, "a.txt", "a")

	user, files, err := env.users.GetUser(env.ctx, alice, alice.UserID)
	if err != nil {
		t.Fatalf("GetUser(self) failed: %v", err)
	}
	if user.Username != "alice" || len(files) != 1 {
		t.Errorf("unexpected result: %s with %d files", user.Username, len(files))
	}

	if _, _, err := env.users.GetUser(env.ctx, admin, alice.UserID); err != nil {
		t.Errorf("GetUser(admin) failed: %v", err)
	}
	if _, _, err := env.users.GetUser(env.ctx, bob, alice.UserID); !errors.Is(err, ErrAuthorization) {
		t.Errorf("expected ErrAuthorization for a peer, got %v", err)
	}
	if _, _, err := env.users.GetUser(env.ctx, admin, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	admin := env.registerAdmin(t, "root")

	role := models.UserRoleAdmin
	updated, err := env.users.UpdateUser(env.ctx, admin, alice.UserID, &dto.UpdateUserRequest{
		Email:    strPtr("alice@new.com"),
		Password: strPtr("new-password"),
		Role:     &role,
	})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.Email != "alice@new.com" || !updated.IsAdmin() {
		t.Errorf("unexpected user after update: %s %s", updated.Email, updated.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("new-password")); err != nil {
		t.Error("password should be rehashed")
	}

	if _, err := env.auth.LoginUser(env.ctx, &dto.LoginUserRequest{Username: "alice", Password: "new-password"}); err != nil {
		t.Errorf("login with the new password failed: %v", err)
	}
}

func TestUpdateUser_IsAdminAlias(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	admin := env.registerAdmin(t, "root")

	isAdmin := true
	updated, err := env.users.UpdateUser(env.ctx, admin, alice.UserID, &dto.UpdateUserRequest{IsAdmin: &isAdmin})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.Role != models.UserRoleAdmin {
		t.Errorf("expected role admin, got %s", updated.Role)
	}

	isAdmin = false
	updated, err = env.users.UpdateUser(env.ctx, admin, alice.UserID, &dto.UpdateUserRequest{IsAdmin: &isAdmin})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.Role != models.UserRoleUser {
		t.Errorf("expected role user, got %s", updated.Role)
	}
}

func TestUpdateUser_Rejections(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.register(t, "bob")
	admin := env.registerAdmin(t, "root")

	userRole := models.UserRoleUser
	badRole := models.UserRole("superuser")

	tests := []struct {
		name    string
		actor   *models.Identity
		id      uuid.UUID
		req     dto.UpdateUserRequest
		wantErr error
	}{
		{"non-admin", alice, alice.UserID, dto.UpdateUserRequest{Email: strPtr("a@b.com")}, ErrAuthorization},
		{"self-demote", admin, admin.UserID, dto.UpdateUserRequest{Role: &userRole}, ErrValidation},
		{"duplicate email", admin, alice.UserID, dto.UpdateUserRequest{Email: strPtr("bob@x.com")}, ErrValidation},
		{"invalid role", admin, alice.UserID, dto.UpdateUserRequest{Role: &badRole}, ErrValidation},
		{"invalid email", admin, alice.UserID, dto.UpdateUserRequest{Email: strPtr("nope")}, ErrValidation},
		{"missing user", admin, uuid.New(), dto.UpdateUserRequest{Email: strPtr("a@b.com")}, ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.users.UpdateUser(env.ctx, tt.actor, tt.id, &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	stored, _ := env.store.GetUserByID(env.ctx, admin.UserID)
	if !stored.IsAdmin() {
		t.Error("admin should keep the admin role")
	}
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	admin := env.registerAdmin(t, "root")

	env.upload(t, alice, "a.txt", "a")
	env.upload(t, alice, "b.txt", "b")
	env.upload(t, bob, "a.txt", "bob")

	if err := env.users.DeleteUser(env.ctx, admin, alice.UserID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	if env.store.FileCount() != 1 {
		t.Errorf("alice's files should be gone, %d rows remain", env.store.FileCount())
	}
	if _, err := os.Stat(filepath.Join(env.root, "users", "alice")); !os.IsNotExist(err) {
		t.Error("alice's storage directory should be removed")
	}
	if content, ok := env.blobContent(t, "bob/a.txt"); !ok || content != "bob" {
		t.Error("other users' files should be untouched")
	}

	if err := env.users.DeleteUser(env.ctx, admin, alice.UserID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second delete: expected ErrUserNotFound, got %v", err)
	}
}

func TestDeleteUser_NoStorageDirectory(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	admin := env.registerAdmin(t, "root")

	if err := env.users.DeleteUser(env.ctx, admin, alice.UserID); err != nil {
		t.Fatalf("DeleteUser without a directory failed: %v", err)
	}
}

func TestDeleteUser_Rejections(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	admin := env.registerAdmin(t, "root")

	if err := env.users.DeleteUser(env.ctx, alice, admin.UserID); !errors.Is(err, ErrAuthorization) {
		t.Errorf("non-admin: expected ErrAuthorization, got %v", err)
	}
	if err := env.users.DeleteUser(env.ctx, admin, admin.UserID); !errors.Is(err, ErrValidation) {
		t.Errorf("self-delete: expected ErrValidation, got %v", err)
	}
	if _, err := env.store.GetUserByID(env.ctx, admin.UserID); err != nil {
		t.Error("admin should still exist")
	}
}

func TestDeleteUser_CommitFailure(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	admin := env.registerAdmin(t, "root")
	env.upload(t, alice, "a.txt", "a")

	env.store.FailCommits = true
	if err := env.users.DeleteUser(env.ctx, admin, alice.UserID); err == nil {
		t.Fatal("expected DeleteUser to fail")
	}

	if content, ok := env.blobContent(t, "alice/a.txt"); !ok || content != "a" {
		t.Error("storage directory should be restored")
	}
	if _, err := env.store.GetUserByID(env.ctx, alice.UserID); err != nil {
		t.Error("user should still exist")
	}
	if env.store.FileCount() != 1 {
		t.Error("file rows should still exist")
	}
}
