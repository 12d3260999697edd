package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const fileColumns = `id, user_id, filename, size, content_type, sha256, comment, storage_path, link_key, uploaded_at, last_download`

// CreateFile inserts the row, then runs apply, then commits.
func (db *DB) CreateFile(ctx context.Context, file *models.File, apply func() error) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			insert into files (id, user_id, filename, size, content_type, sha256, comment, storage_path, uploaded_at)
			values (:id, :user_id, :filename, :size, :content_type, :sha256, :comment, :storage_path, :uploaded_at)
		`
		_, err := tx.NamedExecContext(ctx, query, file)
		return err
	}, apply)
}

func (db *DB) GetFileByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	var file models.File
	query := "select " + fileColumns + " from files where id = $1"
	if err := db.GetContext(ctx, &file, query, id); err != nil {
		return nil, translate(err)
	}
	return &file, nil
}

func (db *DB) GetFileByLinkKey(ctx context.Context, key string) (*models.File, error) {
	var file models.File
	query := "select " + fileColumns + " from files where link_key = $1"
	if err := db.GetContext(ctx, &file, query, key); err != nil {
		return nil, translate(err)
	}
	return &file, nil
}

func (db *DB) ListFilesByUser(ctx context.Context, userID uuid.UUID) ([]models.File, error) {
	files := []models.File{}
	query := "select " + fileColumns + " from files where user_id = $1 order by uploaded_at desc"
	if err := db.SelectContext(ctx, &files, query, userID); err != nil {
		return nil, translate(err)
	}
	return files, nil
}

// UpdateFile writes every column named in upd with a single statement, then
// runs apply (the blob move of a rename), then commits.
func (db *DB) UpdateFile(ctx context.Context, id uuid.UUID, upd models.FileUpdate, apply func() error) error {
	var sets []string
	var args []interface{}
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Filename != nil {
		set("filename", *upd.Filename)
		set("storage_path", *upd.StoragePath)
	}
	if upd.Comment != nil {
		set("comment", *upd.Comment)
	}
	if upd.ClearLinkKey {
		sets = append(sets, "link_key = NULL")
	}
	if len(sets) == 0 {
		// Nothing to change, but a missing row must still be reported.
		sets = append(sets, "id = id")
	}
	args = append(args, id)

	query := fmt.Sprintf("update files set %s where id = $%d", strings.Join(sets, ", "), len(args))
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		return expectAffected(res)
	}, apply)
}

// SetFileLinkKey assigns key (nil clears it). A key already held by another
// file fails with a UniqueViolationError on ConstraintLinkKey.
func (db *DB) SetFileLinkKey(ctx context.Context, id uuid.UUID, key *string) error {
	res, err := db.ExecContext(ctx, "update files set link_key = $1 where id = $2", key, id)
	if err != nil {
		return translate(err)
	}
	return expectAffected(res)
}

func (db *DB) TouchLastDownload(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := db.ExecContext(ctx, "update files set last_download = $1 where id = $2", at, id)
	if err != nil {
		return translate(err)
	}
	return expectAffected(res)
}

// DeleteFile removes the row, then runs apply, then commits.
func (db *DB) DeleteFile(ctx context.Context, id uuid.UUID, apply func() error) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, "delete from files where id = $1", id)
		if err != nil {
			return err
		}
		return expectAffected(res)
	}, apply)
}

func (db *DB) CheckHealth(ctx context.Context) error {
	return db.PingContext(ctx)
}
