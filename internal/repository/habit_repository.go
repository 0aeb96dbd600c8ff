package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/habit-tracker/internal/model"
)

// HabitRepo encapsulates queries over the habits table.  Name uniqueness
// is not enforced here; callers check FindByName before creating.
type HabitRepo struct {
	db *sqlx.DB
}

// NewHabitRepo constructs a HabitRepo with the provided DB handle.
func NewHabitRepo(db *sqlx.DB) *HabitRepo { return &HabitRepo{db: db} }

const habitColumns = "id, user_id, name, goal_type, daily_goal, created_at"

// ListByUser returns the user's habits, most recently created first.
func (r *HabitRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Habit, error) {
	habits := []model.Habit{}
	err := r.db.SelectContext(ctx, &habits,
		"SELECT "+habitColumns+" FROM habits WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	return habits, nil
}

// Create inserts h and populates its ID and CreatedAt.  A user id with no
// users row yields ErrNotFound.
func (r *HabitRepo) Create(ctx context.Context, h *model.Habit) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO habits (user_id, name, goal_type, daily_goal) VALUES (?, ?, ?, ?)",
		h.UserID, h.Name, string(h.GoalType), h.DailyGoal)
	if err != nil {
		return notFound(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)

	// Read back the defaulted created_at so callers receive a full record.
	return r.db.QueryRowContext(ctx, "SELECT created_at FROM habits WHERE id = ?", h.ID).Scan(&h.CreatedAt)
}

// GetByID fetches one habit.
func (r *HabitRepo) GetByID(ctx context.Context, id uint64) (model.Habit, error) {
	var h model.Habit
	if err := r.db.GetContext(ctx, &h, "SELECT "+habitColumns+" FROM habits WHERE id = ?", id); err != nil {
		return model.Habit{}, notFound(err)
	}
	return h, nil
}

// FindByName returns the user's first habit whose name matches
// case-insensitively, or ErrNotFound.
func (r *HabitRepo) FindByName(ctx context.Context, userID uint64, name string) (model.Habit, error) {
	var h model.Habit
	err := r.db.GetContext(ctx, &h,
		"SELECT "+habitColumns+" FROM habits WHERE user_id = ? AND LOWER(name) = LOWER(?) ORDER BY id LIMIT 1",
		userID, name)
	if err != nil {
		return model.Habit{}, notFound(err)
	}
	return h, nil
}

// DeleteByName removes every habit of the user with that name and
// reports whether anything was removed.  Logs go with them through the
// foreign key cascade.
func (r *HabitRepo) DeleteByName(ctx context.Context, userID uint64, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM habits WHERE user_id = ? AND LOWER(name) = LOWER(?)", userID, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteByID removes one habit and reports whether it existed.
func (r *HabitRepo) DeleteByID(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM habits WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
