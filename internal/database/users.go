package database

import (
	"context"
	"time"

	"cloud-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, username, email, password_hash, role, storage_directory, created_at, updated_at, last_login`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		insert into users (id, username, email, password_hash, role, storage_directory, created_at, updated_at)
		values (:id, :username, :email, :password_hash, :role, :storage_directory, :created_at, :updated_at)
	`
	_, err := db.NamedExecContext(ctx, query, user)
	return translate(err)
}

func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := "select " + userColumns + " from users where id = $1"
	if err := db.GetContext(ctx, &user, query, id); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	query := "select " + userColumns + " from users where username = $1"
	if err := db.GetContext(ctx, &user, query, username); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (db *DB) ListUsers(ctx context.Context) ([]models.UserStats, error) {
	query := `
		select u.id, u.username, u.email, u.password_hash, u.role, u.storage_directory,
		       u.created_at, u.updated_at, u.last_login,
		       count(f.id) as files_count,
		       coalesce(sum(f.size), 0) as storage_size
		from users u
		left join files f on f.user_id = u.id
		group by u.id
		order by u.created_at desc
	`
	users := []models.UserStats{}
	if err := db.SelectContext(ctx, &users, query); err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		update users
		set email = :email, password_hash = :password_hash, role = :role, updated_at = :updated_at
		where id = :id
	`
	res, err := db.NamedExecContext(ctx, query, user)
	if err != nil {
		return translate(err)
	}
	return expectAffected(res)
}

func (db *DB) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := db.ExecContext(ctx, "update users set last_login = $1 where id = $2", at, id)
	if err != nil {
		return translate(err)
	}
	return expectAffected(res)
}

// DeleteUser removes the user and every file row it owns. apply runs before
// commit.
func (db *DB) DeleteUser(ctx context.Context, id uuid.UUID, apply func() error) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "delete from files where user_id = $1", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "delete from users where id = $1", id)
		if err != nil {
			return err
		}
		return expectAffected(res)
	}, apply)
}
