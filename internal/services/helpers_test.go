package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"cloud-backend/internal/dto"
	"cloud-backend/internal/models"
	"cloud-backend/internal/services/servicetest"
	"cloud-backend/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	ctx   context.Context
	store *servicetest.MemoryStore
	blobs *storage.LocalStorage
	root  string
	auth  *AuthService
	users *UserService
	files *FileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	blobs := storage.NewLocalStorage(root)
	if err := blobs.Init(); err != nil {
		t.Fatalf("failed to init storage: %v", err)
	}

	store := servicetest.NewMemoryStore()
	auth := NewAuthService(store)
	auth.hashCost = bcrypt.MinCost
	users := NewUserService(store, store, blobs)
	users.hashCost = bcrypt.MinCost

	return &testEnv{
		ctx:   context.Background(),
		store: store,
		blobs: blobs,
		root:  root,
		auth:  auth,
		users: users,
		files: NewFileService(store, store, blobs, NewLinkKeyGenerator(store, nil)),
	}
}

func (e *testEnv) register(t *testing.T, username string) *models.Identity {
	t.Helper()
	user, err := e.auth.RegisterUser(e.ctx, &dto.RegisterUserRequest{
		Username: username,
		Email:    username + "@x.com",
		Password: "pw-" + username,
	})
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	return models.IdentityOf(user)
}

func (e *testEnv) registerAdmin(t *testing.T, username string) *models.Identity {
	t.Helper()
	identity := e.register(t, username)
	user, err := e.store.GetUserByID(e.ctx, identity.UserID)
	if err != nil {
		t.Fatalf("failed to load %s: %v", username, err)
	}
	user.Role = models.UserRoleAdmin
	if err := e.store.UpdateUser(e.ctx, user); err != nil {
		t.Fatalf("failed to promote %s: %v", username, err)
	}
	return models.IdentityOf(user)
}

func (e *testEnv) upload(t *testing.T, actor *models.Identity, name, content string) *models.File {
	t.Helper()
	file, err := e.files.CreateFile(e.ctx, actor, Upload{
		Filename:    name,
		ContentType: "text/plain",
		Content:     strings.NewReader(content),
	})
	if err != nil {
		t.Fatalf("failed to upload %s: %v", name, err)
	}
	return file
}

func (e *testEnv) blobContent(t *testing.T, rel string) (string, bool) {
	t.Helper()
	r, err := e.blobs.Open(rel)
	if err != nil {
		return "", false
	}
	defer r.Close()
	content, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read blob %s: %v", rel, err)
	}
	return string(content), true
}

func strPtr(s string) *string {
	return &s
}
