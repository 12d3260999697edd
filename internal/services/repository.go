package services

import (
	"context"
	"io"
	"time"

	"cloud-backend/internal/models"
	"cloud-backend/internal/storage"

	"github.com/google/uuid"
)

// UserRepository is implemented by *database.DB. Lookups return
// database.ErrNotFound for missing rows and unique violations surface as
// *database.UniqueViolationError.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.UserStats, error)
	UpdateUser(ctx context.Context, user *models.User) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteUser(ctx context.Context, id uuid.UUID, apply func() error) error
}

// FileRepository is implemented by *database.DB. Methods taking apply run it
// inside the transaction, after the row change and before commit.
type FileRepository interface {
	CreateFile(ctx context.Context, file *models.File, apply func() error) error
	GetFileByID(ctx context.Context, id uuid.UUID) (*models.File, error)
	GetFileByLinkKey(ctx context.Context, key string) (*models.File, error)
	ListFilesByUser(ctx context.Context, userID uuid.UUID) ([]models.File, error)
	UpdateFile(ctx context.Context, id uuid.UUID, upd models.FileUpdate, apply func() error) error
	SetFileLinkKey(ctx context.Context, id uuid.UUID, key *string) error
	TouchLastDownload(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteFile(ctx context.Context, id uuid.UUID, apply func() error) error
}

// BlobStore is implemented by *storage.LocalStorage.
type BlobStore interface {
	Stage(data io.Reader) (*storage.StagedBlob, error)
	Open(rel string) (io.ReadSeekCloser, error)
	Move(oldRel, newRel string) error
	Remove(rel string) error
	Trash(rel string) (*storage.Trashed, error)
	Restore(t *storage.Trashed) error
	Purge(t *storage.Trashed) error
}
