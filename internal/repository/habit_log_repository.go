package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/habit-tracker/internal/model"
)

// HabitLogRepo provides the accumulate write and the read models derived
// from habit_logs.  Dates cross this boundary as YYYY-MM-DD strings.
type HabitLogRepo struct {
	db *sqlx.DB
}

// NewHabitLogRepo returns a HabitLogRepo bound to the given database.
func NewHabitLogRepo(db *sqlx.DB) *HabitLogRepo { return &HabitLogRepo{db: db} }

// Accumulate adds amount to the (habitID, date) row, creating it when
// absent.  It is a single statement, so the row lock taken by the
// duplicate-key update serialises racing writers and no increment is
// lost.  An unknown habit yields ErrNotFound.
func (r *HabitLogRepo) Accumulate(ctx context.Context, habitID uint64, date string, amount int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO habit_logs (habit_id, log_date, amount) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE amount = amount + VALUES(amount)`,
		habitID, date, amount)
	return notFound(err)
}

// Summary returns one row per habit of the user with the sum of amounts
// logged in [from, to].  The range filter sits in the join condition so
// habits without activity still appear with a zero total.
func (r *HabitLogRepo) Summary(ctx context.Context, userID uint64, from, to string) ([]model.SummaryRow, error) {
	rows := []model.SummaryRow{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT h.id AS habit_id, h.name, h.goal_type, h.daily_goal,
		        CAST(COALESCE(SUM(l.amount), 0) AS SIGNED) AS total
		 FROM habits h
		 LEFT JOIN habit_logs l ON l.habit_id = h.id AND l.log_date BETWEEN ? AND ?
		 WHERE h.user_id = ?
		 GROUP BY h.id, h.name, h.goal_type, h.daily_goal
		 ORDER BY h.name ASC, h.id ASC`,
		from, to, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DailyLog returns every habit of the user with its amount on date.
func (r *HabitLogRepo) DailyLog(ctx context.Context, userID uint64, date string) ([]model.DailyLogRow, error) {
	rows := []model.DailyLogRow{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT h.id AS habit_id, h.name, h.goal_type, h.daily_goal, COALESCE(l.amount, 0) AS amount
		 FROM habits h
		 LEFT JOIN habit_logs l ON l.habit_id = h.id AND l.log_date = ?
		 WHERE h.user_id = ?
		 ORDER BY h.name ASC, h.id ASC`,
		date, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ActivityDates returns the distinct dates in [from, to] on which the
// user logged anything, ascending.
func (r *HabitLogRepo) ActivityDates(ctx context.Context, userID uint64, from, to string) ([]string, error) {
	out := []string{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT DISTINCT DATE_FORMAT(l.log_date, '%Y-%m-%d') AS d
		 FROM habit_logs l
		 JOIN habits h ON h.id = l.habit_id
		 WHERE h.user_id = ? AND l.log_date BETWEEN ? AND ?
		 ORDER BY d ASC`,
		userID, from, to)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DistinctDates returns every date the user logged anything, newest
// first.
func (r *HabitLogRepo) DistinctDates(ctx context.Context, userID uint64) ([]string, error) {
	out := []string{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT DISTINCT DATE_FORMAT(l.log_date, '%Y-%m-%d') AS d
		 FROM habit_logs l
		 JOIN habits h ON h.id = l.habit_id
		 WHERE h.user_id = ?
		 ORDER BY d DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	return out, nil
}
