package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrBlobExists   = errors.New("blob already exists")
	ErrInvalidPath  = errors.New("invalid blob path")
)

const (
	usersDir   = "users"
	stagingDir = ".staging"
	trashDir   = ".trash"
)

// LocalStorage keeps blobs under <base>/users/<storage directory>/<filename>.
// Uploads are staged under <base>/.staging and deletions go through
// <base>/.trash so that both can be undone until the owning database
// transaction commits.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

func (s *LocalStorage) Init() error {
	for _, dir := range []string{usersDir, stagingDir, trashDir} {
		if err := os.MkdirAll(filepath.Join(s.basePath, dir), 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	return nil
}

// BlobPath is the relative location stored in the files table.
func BlobPath(storageDirectory, filename string) string {
	return path.Join(storageDirectory, filename)
}

type StagedBlob struct {
	Size int64
	Hash string

	storage *LocalStorage
	tmpPath string
}

// Stage copies data into a temporary file, hashing it on the way.
func (s *LocalStorage) Stage(data io.Reader) (*StagedBlob, error) {
	dir := filepath.Join(s.basePath, stagingDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return nil, err
	}

	contentHash := sha256.New()
	buf := make([]byte, 1*1024*1024) // 1MB
	size, err := io.CopyBuffer(io.MultiWriter(f, contentHash), data, buf)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.Name())
		return nil, err
	}

	return &StagedBlob{
		Size:    size,
		Hash:    hex.EncodeToString(contentHash.Sum(nil)),
		storage: s,
		tmpPath: f.Name(),
	}, nil
}

// Commit moves the staged content to rel, replacing whatever is there.
func (b *StagedBlob) Commit(rel string) error {
	finalPath, err := b.storage.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return err
	}
	return os.Rename(b.tmpPath, finalPath)
}

// Discard removes the staged content. It is a no-op after Commit.
func (b *StagedBlob) Discard() error {
	if err := os.Remove(b.tmpPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStorage) Open(rel string) (io.ReadSeekCloser, error) {
	p, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, rel)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Move renames a blob. It refuses to overwrite an existing target.
func (s *LocalStorage) Move(oldRel, newRel string) error {
	oldPath, err := s.resolve(oldRel)
	if err != nil {
		return err
	}
	newPath, err := s.resolve(newRel)
	if err != nil {
		return err
	}

	if _, err := os.Stat(oldPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, oldRel)
	}
	if _, err := os.Stat(newPath); err == nil {
		return fmt.Errorf("%w: %s", ErrBlobExists, newRel)
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0755); err != nil {
		return err
	}
	return os.Rename(oldPath, newPath)
}

// Remove deletes a single blob. A missing blob is not an error.
func (s *LocalStorage) Remove(rel string) error {
	p, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Trashed is a blob or directory moved out of the users tree, pending
// either Purge or Restore.
type Trashed struct {
	From string
	path string
}

// Trash moves rel (a blob or a whole storage directory) into the trash area.
// It returns nil when there is nothing at rel.
func (s *LocalStorage) Trash(rel string) (*Trashed, error) {
	p, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return nil, nil
	}

	dir := filepath.Join(s.basePath, trashDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	target := filepath.Join(dir, uuid.NewString())
	if err := os.Rename(p, target); err != nil {
		return nil, fmt.Errorf("failed to move %s to trash: %w", rel, err)
	}
	return &Trashed{From: rel, path: target}, nil
}

func (s *LocalStorage) Restore(t *Trashed) error {
	if t == nil {
		return nil
	}
	p, err := s.resolve(t.From)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return os.Rename(t.path, p)
}

func (s *LocalStorage) Purge(t *Trashed) error {
	if t == nil {
		return nil
	}
	return os.RemoveAll(t.path)
}

func (s *LocalStorage) resolve(rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if rel == "" || !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return filepath.Join(s.basePath, usersDir, local), nil
}
