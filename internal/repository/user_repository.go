package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/habit-tracker/internal/model"
)

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id, external_identity, display_name, created_at"

// GetOrCreate returns the user bound to externalID, inserting it first
// when needed.  The unique key on external_identity arbitrates concurrent
// first contacts; LAST_INSERT_ID(id) hands back the existing row's id on
// conflict.  A stored NULL display name is filled from displayName.
func (r *UserRepo) GetOrCreate(ctx context.Context, externalID string, displayName *string) (model.User, error) {
	externalID = strings.TrimSpace(externalID)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (external_identity, display_name) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), display_name = COALESCE(display_name, VALUES(display_name))`,
		externalID, displayName)
	if err != nil {
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	if err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}
