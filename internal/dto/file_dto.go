package dto

import (
	"time"

	"cloud-backend/internal/models"

	"github.com/google/uuid"
)

type FileResponse struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Filename        string     `json:"filename"`
	Size            int64      `json:"size"`
	ContentType     string     `json:"content_type"`
	SHA256          string     `json:"sha256"`
	Comment         string     `json:"comment"`
	UploadedAt      time.Time  `json:"uploaded_at"`
	LastDownload    *time.Time `json:"last_download"`
	ExternalLinkKey string     `json:"external_link_key"`
}

// UpdateFileRequest is shared by PUT and PATCH; absent fields stay as they are.
type UpdateFileRequest struct {
	Filename        *string `json:"filename"`
	Comment         *string `json:"comment"`
	ExternalLinkKey *string `json:"external_link_key"`
}

func NewFileResponse(f *models.File) FileResponse {
	return FileResponse{
		ID:              f.ID,
		UserID:          f.UserID,
		Filename:        f.Filename,
		Size:            f.Size,
		ContentType:     f.ContentType,
		SHA256:          f.Hash,
		Comment:         f.Comment,
		UploadedAt:      f.UploadedAt,
		LastDownload:    f.LastDownload,
		ExternalLinkKey: f.ExternalLinkKey(),
	}
}

func NewFileListResponse(files []models.File) []FileResponse {
	resp := make([]FileResponse, 0, len(files))
	for i := range files {
		resp = append(resp, NewFileResponse(&files[i]))
	}
	return resp
}
