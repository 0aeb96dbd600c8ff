package model

import (
	"math"
	"strings"
	"time"
)

// GoalKind is the completion rule of a habit.  Values match the
// habits.goal_type column.
type GoalKind string

const (
	// GoalBoolean habits are done once anything is logged for the day.
	GoalBoolean GoalKind = "bool"
	// GoalCount habits accumulate toward a numeric daily goal.
	GoalCount GoalKind = "count"
)

// ParseGoalKind accepts the stored values and their common aliases.
func ParseGoalKind(s string) (GoalKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean", "boolean-completion", "check", "done":
		return GoalBoolean, true
	case "count", "numeric", "numeric-count":
		return GoalCount, true
	}
	return "", false
}

// MaxHabitNameLen is the width of habits.name in characters.
const MaxHabitNameLen = 120

// Habit represents a row of the `habits` table.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owning user.
//  Name      – display name; looked up case-insensitively.
//  GoalType  – bool or count.
//  DailyGoal – numeric daily target, only set for count habits.
//  CreatedAt – creation timestamp.
type Habit struct {
	ID        uint64    `db:"id" json:"id"`                 // habits.id
	UserID    uint64    `db:"user_id" json:"user_id"`       // habits.user_id
	Name      string    `db:"name" json:"name"`             // habits.name
	GoalType  GoalKind  `db:"goal_type" json:"goal_type"`   // habits.goal_type
	DailyGoal *int      `db:"daily_goal" json:"daily_goal"` // habits.daily_goal (nullable)
	CreatedAt time.Time `db:"created_at" json:"created_at"` // habits.created_at
}

// HabitLog is the accumulated amount for one habit on one calendar day.
// (HabitID, LogDate) is the primary key of `habit_logs`.
type HabitLog struct {
	HabitID uint64 `db:"habit_id" json:"habit_id"` // habit_logs.habit_id
	LogDate string `db:"log_date" json:"log_date"` // habit_logs.log_date as YYYY-MM-DD
	Amount  int    `db:"amount" json:"amount"`     // habit_logs.amount
}

// SummaryRow is one habit's total over a date range.  It is computed per
// query and never stored.
type SummaryRow struct {
	HabitID   uint64   `db:"habit_id" json:"habit_id"`
	Name      string   `db:"name" json:"name"`
	GoalType  GoalKind `db:"goal_type" json:"goal_type"`
	DailyGoal *int     `db:"daily_goal" json:"daily_goal"`
	Total     int      `db:"total" json:"total"`
}

// Completed applies the habit's completion rule to Total.
func (r SummaryRow) Completed() bool {
	return IsComplete(r.GoalType, r.DailyGoal, r.Total)
}

// Progress is the rounded percentage toward the goal.  It is not capped.
func (r SummaryRow) Progress() int {
	return ProgressPercent(r.GoalType, r.DailyGoal, r.Total)
}

// DailyLogRow is one habit's amount on a single day (0 when nothing was
// logged).
type DailyLogRow struct {
	HabitID   uint64   `db:"habit_id" json:"habit_id"`
	Name      string   `db:"name" json:"name"`
	GoalType  GoalKind `db:"goal_type" json:"goal_type"`
	DailyGoal *int     `db:"daily_goal" json:"daily_goal"`
	Amount    int      `db:"amount" json:"amount"`
}

// IsComplete: count habits need total >= goal, boolean habits need any
// activity.
func IsComplete(kind GoalKind, goal *int, total int) bool {
	if kind == GoalCount && goal != nil && *goal > 0 {
		return total >= *goal
	}
	return total > 0
}

// ProgressPercent returns round(total/goal*100) for count habits and 0 or
// 100 for boolean ones.
func ProgressPercent(kind GoalKind, goal *int, total int) int {
	if kind == GoalCount && goal != nil && *goal > 0 {
		return int(math.Round(float64(total) / float64(*goal) * 100))
	}
	if total > 0 {
		return 100
	}
	return 0
}
