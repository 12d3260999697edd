package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"cloud-backend/internal/database"
	"cloud-backend/internal/dto"
	"cloud-backend/internal/models"
	"cloud-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

const defaultContentType = "application/octet-stream"

// Upload is a file received from a client. OwnerID is set only when an
// administrator uploads on behalf of another user.
type Upload struct {
	OwnerID     *uuid.UUID
	Filename    string
	ContentType string
	Comment     string
	Content     io.Reader
}

type FileService struct {
	files  FileRepository
	users  UserRepository
	blobs  BlobStore
	links  *LinkKeyGenerator
	now    func() time.Time
	logger *log.Logger
}

func NewFileService(files FileRepository, users UserRepository, blobs BlobStore, links *LinkKeyGenerator) *FileService {
	return &FileService{
		files:  files,
		users:  users,
		blobs:  blobs,
		links:  links,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.New(log.Writer(), "[FileService] ", log.LstdFlags),
	}
}

// CreateFile stores the upload under the owner's storage directory. The
// content is staged first; the row insert decides duplicates and the staged
// blob only reaches its final path inside the insert's transaction.
func (s *FileService) CreateFile(ctx context.Context, actor *models.Identity, upload Upload) (*models.File, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}

	ownerID := actor.UserID
	if upload.OwnerID != nil && *upload.OwnerID != actor.UserID {
		if !actor.IsAdmin {
			s.logger.Printf("User %s denied upload on behalf of user %s", actor.Username, *upload.OwnerID)
			return nil, ErrAuthorization
		}
		ownerID = *upload.OwnerID
	}

	filename := uploadedName(upload.Filename)
	v := &validator{}
	v.filename("content", filename)
	v.comment(upload.Comment)
	if err := v.err(); err != nil {
		return nil, err
	}

	owner, err := s.users.GetUserByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get owner: %w", err)
	}

	staged, err := s.blobs.Stage(upload.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	defer staged.Discard()

	contentType := upload.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	file := &models.File{
		ID:          uuid.New(),
		UserID:      owner.ID,
		Filename:    filename,
		Size:        staged.Size,
		ContentType: contentType,
		Hash:        staged.Hash,
		Comment:     upload.Comment,
		StoragePath: storage.BlobPath(owner.StorageDirectory, filename),
		UploadedAt:  s.now(),
	}

	placed := false
	err = s.files.CreateFile(ctx, file, func() error {
		if err := staged.Commit(file.StoragePath); err != nil {
			return err
		}
		placed = true
		return nil
	})
	if err != nil {
		if placed {
			if rmErr := s.blobs.Remove(file.StoragePath); rmErr != nil {
				err = multierror.Append(err, rmErr)
			}
		}
		if database.ViolatedConstraint(err) == database.ConstraintFilename {
			return nil, newFieldError("content", ErrDuplicateName)
		}
		s.logger.Printf("Failed to store file %s for user %s: %v", filename, owner.Username, err)
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	s.logger.Printf("User %s uploaded file %s (%d bytes) for user %s", actor.Username, file.Filename, file.Size, owner.Username)
	return file, nil
}

// GetFile locates the file and checks that actor owns it or is an
// administrator.
func (s *FileService) GetFile(ctx context.Context, actor *models.Identity, id uuid.UUID) (*models.File, error) {
	file, err := s.files.GetFileByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.logger.Printf("File %s not found", id)
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if err := requireOwnerOrAdmin(actor, file); err != nil {
		if errors.Is(err, ErrAuthorization) {
			s.logger.Printf("User %s denied access to file %s", actor.Username, file.ID)
		}
		return nil, err
	}
	return file, nil
}

// UpdateFile applies a rename, a comment change and/or a link revocation.
// All fields are validated first, then every change is written in one
// transaction; the blob move of a rename runs inside it.
func (s *FileService) UpdateFile(ctx context.Context, actor *models.Identity, id uuid.UUID, req *dto.UpdateFileRequest) (*models.File, error) {
	file, err := s.GetFile(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := validateFileUpdate(req); err != nil {
		return nil, err
	}

	var upd models.FileUpdate
	oldName, oldPath := file.Filename, file.StoragePath
	newPath := oldPath
	if req.Filename != nil && *req.Filename != file.Filename {
		newPath = path.Join(path.Dir(oldPath), *req.Filename)
		upd.Filename, upd.StoragePath = req.Filename, &newPath
	}
	if req.Comment != nil && *req.Comment != file.Comment {
		upd.Comment = req.Comment
	}
	if req.ExternalLinkKey != nil && file.LinkKey != nil {
		upd.ClearLinkKey = true
	}
	if upd.Empty() {
		return file, nil
	}

	var apply func() error
	moved := false
	if upd.Filename != nil {
		apply = func() error {
			if err := s.blobs.Move(oldPath, newPath); err != nil {
				return err
			}
			moved = true
			return nil
		}
	}

	err = s.files.UpdateFile(ctx, file.ID, upd, apply)
	if err != nil {
		if moved {
			if undoErr := s.blobs.Move(newPath, oldPath); undoErr != nil {
				s.logger.Printf("Failed to move blob of file %s back after failed update: %v", file.ID, undoErr)
				err = multierror.Append(err, undoErr)
			}
		}
		if database.ViolatedConstraint(err) == database.ConstraintFilename {
			return nil, newFieldError("filename", ErrDuplicateName)
		}
		if errors.Is(err, storage.ErrBlobNotFound) {
			s.logger.Printf("Cannot rename file %s: blob missing at %s", file.ID, oldPath)
			return nil, ErrBlobNotFound
		}
		if errors.Is(err, storage.ErrBlobExists) {
			s.logger.Printf("Cannot rename file %s: blob already present at %s", file.ID, newPath)
		}
		return nil, s.fileWriteError(err, "update file")
	}

	if upd.Filename != nil {
		file.Filename, file.StoragePath = *upd.Filename, newPath
		s.logger.Printf("User %s renamed file %s to %s", actor.Username, oldName, file.Filename)
	}
	if upd.Comment != nil {
		file.Comment = *upd.Comment
		s.logger.Printf("User %s changed the comment of file %s", actor.Username, file.Filename)
	}
	if upd.ClearLinkKey {
		file.LinkKey = nil
		s.logger.Printf("User %s revoked the external link of file %s", actor.Username, file.Filename)
	}
	return file, nil
}

// DeleteFile removes the row and the blob. A blob that is already missing
// does not fail the delete.
func (s *FileService) DeleteFile(ctx context.Context, actor *models.Identity, id uuid.UUID) error {
	file, err := s.GetFile(ctx, actor, id)
	if err != nil {
		return err
	}

	var trashed *storage.Trashed
	err = s.files.DeleteFile(ctx, file.ID, func() error {
		t, err := s.blobs.Trash(file.StoragePath)
		if err != nil {
			return err
		}
		trashed = t
		return nil
	})
	if err != nil {
		if trashed != nil {
			if restoreErr := s.blobs.Restore(trashed); restoreErr != nil {
				err = multierror.Append(err, restoreErr)
			}
		}
		return s.fileWriteError(err, "delete file")
	}

	if trashed == nil {
		s.logger.Printf("Blob of file %s was already missing at %s", file.ID, file.StoragePath)
	} else if err := s.blobs.Purge(trashed); err != nil {
		s.logger.Printf("Failed to purge blob of file %s: %v", file.ID, err)
	}

	s.logger.Printf("User %s deleted file %s", actor.Username, file.Filename)
	return nil
}

// Download hands the blob to send and records the download once send has
// returned without error. A missing blob yields ErrBlobNotFound and leaves
// the row untouched.
func (s *FileService) Download(ctx context.Context, file *models.File, send func(content io.ReadSeeker) error) error {
	blob, err := s.blobs.Open(file.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			s.logger.Printf("Blob of file %s missing at %s", file.ID, file.StoragePath)
			return ErrBlobNotFound
		}
		return fmt.Errorf("failed to open blob: %w", err)
	}
	defer blob.Close()

	if err := send(blob); err != nil {
		s.logger.Printf("Download of file %s interrupted: %v", file.ID, err)
		return err
	}

	now := s.now()
	if err := s.files.TouchLastDownload(ctx, file.ID, now); err != nil {
		s.logger.Printf("Failed to record download of file %s: %v", file.ID, err)
		return nil
	}
	file.LastDownload = &now

	s.logger.Printf("File %s downloaded", file.StoragePath)
	return nil
}

func (s *FileService) ResolveLinkKey(ctx context.Context, key string) (*models.File, error) {
	if key == "" {
		return nil, ErrLinkNotFound
	}
	file, err := s.files.GetFileByLinkKey(ctx, key)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.logger.Printf("Download attempted with unknown external link key")
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to resolve link key: %w", err)
	}
	return file, nil
}

// GenerateLinkKey assigns a fresh external link key, replacing any previous
// one.
func (s *FileService) GenerateLinkKey(ctx context.Context, actor *models.Identity, id uuid.UUID) (*models.File, error) {
	file, err := s.GetFile(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.links.Assign(ctx, file); err != nil {
		s.logger.Printf("Failed to generate link key for file %s: %v", file.StoragePath, err)
		return nil, err
	}
	s.logger.Printf("User %s generated an external link for file %s", actor.Username, file.StoragePath)
	return file, nil
}

func (s *FileService) fileWriteError(err error, action string) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrFileNotFound
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// uploadedName strips any client-side directory part, including Windows
// style paths some browsers send.
func uploadedName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
