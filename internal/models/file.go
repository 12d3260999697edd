package models

import (
	"time"

	"github.com/google/uuid"
)

type File struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	Filename     string     `db:"filename" json:"filename"`
	Size         int64      `db:"size" json:"size"`
	ContentType  string     `db:"content_type" json:"content_type"`
	Hash         string     `db:"sha256" json:"sha256"`
	Comment      string     `db:"comment" json:"comment"`
	StoragePath  string     `db:"storage_path" json:"-"` // relative to the users root
	LinkKey      *string    `db:"link_key" json:"-"`
	UploadedAt   time.Time  `db:"uploaded_at" json:"uploaded_at"`
	LastDownload *time.Time `db:"last_download" json:"last_download"`
}

// FileUpdate lists the columns a metadata update changes. Nil fields are
// left as they are; Filename and StoragePath are set together.
type FileUpdate struct {
	Filename     *string
	StoragePath  *string
	Comment      *string
	ClearLinkKey bool
}

func (u FileUpdate) Empty() bool {
	return u.Filename == nil && u.Comment == nil && !u.ClearLinkKey
}

func (f *File) ExternalLinkKey() string {
	if f.LinkKey == nil {
		return ""
	}
	return *f.LinkKey
}
