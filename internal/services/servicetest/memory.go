// Package servicetest provides an in-memory stand-in for the postgres
// repositories, enforcing the same unique constraints and cascades as the
// schema.
package servicetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"cloud-backend/internal/database"
	"cloud-backend/internal/models"

	"github.com/google/uuid"
)

var ErrCommitFailed = errors.New("servicetest: commit failed")

type MemoryStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
	files map[uuid.UUID]models.File

	// FailCommits makes every transactional method fail after apply has run,
	// as if the commit was lost.
	FailCommits bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[uuid.UUID]models.User),
		files: make(map[uuid.UUID]models.File),
	}
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username {
			return &database.UniqueViolationError{Constraint: database.ConstraintUsername}
		}
		if u.Email == user.Email {
			return &database.UniqueViolationError{Constraint: database.ConstraintEmail}
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make([]models.UserStats, 0, len(m.users))
	for _, u := range m.users {
		s := models.UserStats{User: u}
		for _, f := range m.files {
			if f.UserID == u.ID {
				s.FilesCount++
				s.StorageSize += f.Size
			}
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].CreatedAt.After(stats[j].CreatedAt)
	})
	return stats, nil
}

func (m *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return database.ErrNotFound
	}
	for id, u := range m.users {
		if id != user.ID && u.Email == user.Email {
			return &database.UniqueViolationError{Constraint: database.ConstraintEmail}
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id uuid.UUID, apply func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return database.ErrNotFound
	}
	if err := m.finish(apply); err != nil {
		return err
	}
	for fid, f := range m.files {
		if f.UserID == id {
			delete(m.files, fid)
		}
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) CreateFile(ctx context.Context, file *models.File, apply func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[file.UserID]; !ok {
		return errors.New("servicetest: foreign key violation on files.user_id")
	}
	if m.nameTaken(file.UserID, file.Filename, file.ID) {
		return &database.UniqueViolationError{Constraint: database.ConstraintFilename}
	}
	if err := m.finish(apply); err != nil {
		return err
	}
	m.files[file.ID] = *file
	return nil
}

func (m *MemoryStore) GetFileByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &f, nil
}

func (m *MemoryStore) GetFileByLinkKey(ctx context.Context, key string) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.files {
		if f.LinkKey != nil && *f.LinkKey == key {
			return &f, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MemoryStore) ListFilesByUser(ctx context.Context, userID uuid.UUID) ([]models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files := []models.File{}
	for _, f := range m.files {
		if f.UserID == userID {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})
	return files, nil
}

func (m *MemoryStore) UpdateFile(ctx context.Context, id uuid.UUID, upd models.FileUpdate, apply func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[id]
	if !ok {
		return database.ErrNotFound
	}
	if upd.Filename != nil && m.nameTaken(f.UserID, *upd.Filename, id) {
		return &database.UniqueViolationError{Constraint: database.ConstraintFilename}
	}
	if err := m.finish(apply); err != nil {
		return err
	}
	if upd.Filename != nil {
		f.Filename, f.StoragePath = *upd.Filename, *upd.StoragePath
	}
	if upd.Comment != nil {
		f.Comment = *upd.Comment
	}
	if upd.ClearLinkKey {
		f.LinkKey = nil
	}
	m.files[id] = f
	return nil
}

func (m *MemoryStore) SetFileLinkKey(ctx context.Context, id uuid.UUID, key *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[id]
	if !ok {
		return database.ErrNotFound
	}
	if key != nil {
		for otherID, other := range m.files {
			if otherID != id && other.LinkKey != nil && *other.LinkKey == *key {
				return &database.UniqueViolationError{Constraint: database.ConstraintLinkKey}
			}
		}
		k := *key
		key = &k
	}
	f.LinkKey = key
	m.files[id] = f
	return nil
}

func (m *MemoryStore) TouchLastDownload(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.updateFile(id, func(f *models.File) { f.LastDownload = &at })
}

func (m *MemoryStore) DeleteFile(ctx context.Context, id uuid.UUID, apply func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[id]; !ok {
		return database.ErrNotFound
	}
	if err := m.finish(apply); err != nil {
		return err
	}
	delete(m.files, id)
	return nil
}

func (m *MemoryStore) CheckHealth(ctx context.Context) error {
	return ctx.Err()
}

// FileCount returns the number of file rows, for assertions.
func (m *MemoryStore) FileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

func (m *MemoryStore) updateFile(id uuid.UUID, fn func(f *models.File)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[id]
	if !ok {
		return database.ErrNotFound
	}
	fn(&f)
	m.files[id] = f
	return nil
}

func (m *MemoryStore) nameTaken(userID uuid.UUID, filename string, except uuid.UUID) bool {
	for id, f := range m.files {
		if id != except && f.UserID == userID && f.Filename == filename {
			return true
		}
	}
	return false
}

// finish plays the apply-then-commit tail of a transaction.
func (m *MemoryStore) finish(apply func() error) error {
	if apply != nil {
		if err := apply(); err != nil {
			return err
		}
	}
	if m.FailCommits {
		return ErrCommitFailed
	}
	return nil
}
