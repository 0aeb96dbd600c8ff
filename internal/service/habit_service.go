// Package service holds the habit tracking rules: input validation, the
// accumulate-on-conflict log write, range summaries, activity calendars
// and streaks.  Persistence sits behind the store interfaces below.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iliyamo/habit-tracker/internal/dates"
	"github.com/iliyamo/habit-tracker/internal/logger"
	"github.com/iliyamo/habit-tracker/internal/model"
	"github.com/iliyamo/habit-tracker/internal/queue"
	"github.com/iliyamo/habit-tracker/internal/repository"
)

// HabitStore is the habit definition store.  Lookups that miss return
// repository.ErrNotFound.
type HabitStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.Habit, error)
	Create(ctx context.Context, h *model.Habit) error
	GetByID(ctx context.Context, id uint64) (model.Habit, error)
	FindByName(ctx context.Context, userID uint64, name string) (model.Habit, error)
	DeleteByName(ctx context.Context, userID uint64, name string) (bool, error)
	DeleteByID(ctx context.Context, id uint64) (bool, error)
}

// LogStore is the habit log store.  Accumulate must add to an existing
// (habit, date) row atomically in the store.
type LogStore interface {
	Accumulate(ctx context.Context, habitID uint64, date string, amount int) error
	Summary(ctx context.Context, userID uint64, from, to string) ([]model.SummaryRow, error)
	DailyLog(ctx context.Context, userID uint64, date string) ([]model.DailyLogRow, error)
	ActivityDates(ctx context.Context, userID uint64, from, to string) ([]string, error)
	DistinctDates(ctx context.Context, userID uint64) ([]string, error)
}

// HabitService implements habit definitions, logging and range queries.
type HabitService struct {
	habits HabitStore
	logs   LogStore
	dates  *dates.Normalizer
	events EventPublisher // nil disables events
}

// NewHabitService wires the service.  events may be nil.
func NewHabitService(habits HabitStore, logs LogStore, n *dates.Normalizer, events EventPublisher) *HabitService {
	if habits == nil || logs == nil || n == nil {
		panic("nil dependency passed to NewHabitService")
	}
	return &HabitService{habits: habits, logs: logs, dates: n, events: events}
}

// Dates exposes the normalizer so adapters resolve "today" identically.
func (s *HabitService) Dates() *dates.Normalizer { return s.dates }

// CreateHabitInput is the request to define a habit.  DailyGoal is
// required and positive for count habits and ignored for boolean ones.
type CreateHabitInput struct {
	UserID    uint64
	Name      string
	GoalType  string
	DailyGoal *int
}

// ListHabits returns the user's habits, newest first.
func (s *HabitService) ListHabits(ctx context.Context, userID uint64) ([]model.Habit, error) {
	if userID == 0 {
		return nil, invalid("user_id", "is required")
	}
	habits, err := s.habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list habits", err)
	}
	return habits, nil
}

// CreateHabit validates in and stores a new habit.  Duplicate names are
// allowed; callers that care check FindHabit first.
func (s *HabitService) CreateHabit(ctx context.Context, in CreateHabitInput) (model.Habit, error) {
	if in.UserID == 0 {
		return model.Habit{}, invalid("user_id", "is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Habit{}, invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > model.MaxHabitNameLen {
		return model.Habit{}, invalid("name", fmt.Sprintf("must be at most %d characters", model.MaxHabitNameLen))
	}
	kind, ok := model.ParseGoalKind(in.GoalType)
	if !ok {
		return model.Habit{}, invalid("goal_type", "must be bool or count")
	}

	h := model.Habit{UserID: in.UserID, Name: name, GoalType: kind}
	if kind == model.GoalCount {
		if in.DailyGoal == nil || *in.DailyGoal <= 0 {
			return model.Habit{}, invalid("daily_goal", "must be greater than 0 for count habits")
		}
		goal := *in.DailyGoal
		h.DailyGoal = &goal
	}

	if err := s.habits.Create(ctx, &h); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Habit{}, ErrUserNotFound
		}
		return model.Habit{}, storeErr("create habit", err)
	}
	logger.Info("habit created", "habit_id", h.ID, "user_id", h.UserID, "goal_type", h.GoalType)
	return h, nil
}

// FindHabit looks a habit up by case-insensitive name.  A miss is
// reported through found, not as an error.
func (s *HabitService) FindHabit(ctx context.Context, userID uint64, name string) (h model.Habit, found bool, err error) {
	name = strings.TrimSpace(name)
	if userID == 0 || name == "" {
		return model.Habit{}, false, invalid("name", "user_id and name are required")
	}
	h, err = s.habits.FindByName(ctx, userID, name)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Habit{}, false, nil
	}
	if err != nil {
		return model.Habit{}, false, storeErr("find habit", err)
	}
	return h, true, nil
}

// DeleteHabitByName removes the user's habits with that name and reports
// whether any existed.
func (s *HabitService) DeleteHabitByName(ctx context.Context, userID uint64, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if userID == 0 || name == "" {
		return false, invalid("name", "user_id and name are required")
	}
	ok, err := s.habits.DeleteByName(ctx, userID, name)
	if err != nil {
		return false, storeErr("delete habit", err)
	}
	return ok, nil
}

// DeleteHabitByID removes one habit and reports whether it existed.
func (s *HabitService) DeleteHabitByID(ctx context.Context, id uint64) (bool, error) {
	if id == 0 {
		return false, invalid("id", "is required")
	}
	ok, err := s.habits.DeleteByID(ctx, id)
	if err != nil {
		return false, storeErr("delete habit", err)
	}
	return ok, nil
}

// LogHabit accumulates amount against the habit on the date named by
// dateToken (normalised; empty means today) and returns that date.
// Repeated calls add up.  Zero is accepted and writes nothing; negative
// amounts are rejected.
func (s *HabitService) LogHabit(ctx context.Context, habitID uint64, dateToken string, amount int) (string, error) {
	if habitID == 0 {
		return "", invalid("habit_id", "is required")
	}
	if amount < 0 {
		return "", invalid("amount", "must not be negative")
	}
	date, err := s.dates.Normalize(dateToken)
	if err != nil {
		return "", invalid("date", err.Error())
	}
	if !dates.Valid(date) {
		return "", invalid("date", "is not a calendar date")
	}
	if amount == 0 {
		return date, nil
	}

	if err := s.logs.Accumulate(ctx, habitID, date, amount); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrHabitNotFound
		}
		return "", storeErr("log habit", err)
	}
	logger.Debug("habit logged", "habit_id", habitID, "date", date, "amount", amount)
	s.publishLogged(ctx, habitID, date, amount)
	return date, nil
}

// publishLogged emits habit.logged.  Failures are logged and swallowed:
// the write has already committed.
func (s *HabitService) publishLogged(ctx context.Context, habitID uint64, date string, amount int) {
	if s.events == nil {
		return
	}
	h, err := s.habits.GetByID(ctx, habitID)
	if err != nil {
		logger.Warn("skipping habit.logged event", "habit_id", habitID, "error", err)
		return
	}
	ev := queue.HabitLoggedEvent{
		EventID:   uuid.NewString(),
		UserID:    h.UserID,
		HabitID:   h.ID,
		HabitName: h.Name,
		Date:      date,
		Amount:    amount,
		LoggedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishHabitLogged(ctx, ev); err != nil {
		logger.Warn("habit.logged publish failed", "habit_id", habitID, "error", err)
	}
}

// Summarize totals every habit of the user over the inclusive range
// [from, to], sorted by name.  Habits without activity report 0.  The
// range is used as given.
func (s *HabitService) Summarize(ctx context.Context, userID uint64, from, to string) ([]model.SummaryRow, error) {
	if err := checkRange(userID, from, to); err != nil {
		return nil, err
	}
	rows, err := s.logs.Summary(ctx, userID, from, to)
	if err != nil {
		return nil, storeErr("summarize", err)
	}
	return rows, nil
}

// DailyLog returns every habit of the user with its amount on date.
func (s *HabitService) DailyLog(ctx context.Context, userID uint64, date string) ([]model.DailyLogRow, error) {
	if userID == 0 {
		return nil, invalid("user_id", "is required")
	}
	if !dates.Valid(date) {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	rows, err := s.logs.DailyLog(ctx, userID, date)
	if err != nil {
		return nil, storeErr("daily log", err)
	}
	return rows, nil
}

// ActivityDates returns the distinct dates in [from, to] with any logged
// activity, ascending.
func (s *HabitService) ActivityDates(ctx context.Context, userID uint64, from, to string) ([]string, error) {
	if err := checkRange(userID, from, to); err != nil {
		return nil, err
	}
	out, err := s.logs.ActivityDates(ctx, userID, from, to)
	if err != nil {
		return nil, storeErr("activity dates", err)
	}
	return out, nil
}

func checkRange(userID uint64, from, to string) error {
	if userID == 0 {
		return invalid("user_id", "is required")
	}
	if !dates.Valid(from) {
		return invalid("from", "must be YYYY-MM-DD")
	}
	if !dates.Valid(to) {
		return invalid("to", "must be YYYY-MM-DD")
	}
	return nil
}
