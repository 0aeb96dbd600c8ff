package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/habit-tracker/internal/model"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mockDB.Close()
	})
	return sqlx.NewDb(mockDB, "mysql"), mock
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(sql.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, notFound(&mysql.MySQLError{Number: mysqlNoReferencedRow}), ErrNotFound)
	assert.Nil(t, notFound(nil))

	other := errors.New("connection refused")
	assert.Equal(t, other, notFound(other))
}

func TestHabitLogRepo_AccumulateUsesSingleUpsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHabitLogRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE amount = amount + VALUES(amount)")).
		WithArgs(uint64(4), "2024-01-01", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Accumulate(context.Background(), 4, "2024-01-01", 3))
}

func TestHabitLogRepo_AccumulateUnknownHabit(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHabitLogRepo(db)

	mock.ExpectExec("INSERT INTO habit_logs").
		WillReturnError(&mysql.MySQLError{Number: mysqlNoReferencedRow, Message: "foreign key constraint fails"})

	err := repo.Accumulate(context.Background(), 99, "2024-01-01", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHabitLogRepo_Summary(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHabitLogRepo(db)

	rows := sqlmock.NewRows([]string{"habit_id", "name", "goal_type", "daily_goal", "total"}).
		AddRow(2, "Meditate", "bool", nil, 0).
		AddRow(1, "Water", "count", 8, 8)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN habit_logs l ON l.habit_id = h.id AND l.log_date BETWEEN ? AND ?")).
		WithArgs("2024-01-01", "2024-01-01", uint64(7)).
		WillReturnRows(rows)

	got, err := repo.Summary(context.Background(), 7, "2024-01-01", "2024-01-01")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Meditate", got[0].Name)
	assert.Nil(t, got[0].DailyGoal)
	assert.Equal(t, 0, got[0].Total)

	assert.Equal(t, model.GoalCount, got[1].GoalType)
	require.NotNil(t, got[1].DailyGoal)
	assert.Equal(t, 8, *got[1].DailyGoal)
	assert.True(t, got[1].Completed())
}

func TestHabitLogRepo_Dates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHabitLogRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY d ASC")).
		WithArgs(uint64(7), "2024-01-01", "2024-01-31").
		WillReturnRows(sqlmock.NewRows([]string{"d"}).AddRow("2024-01-02").AddRow("2024-01-05"))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY d DESC")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"d"}))

	active, err := repo.ActivityDates(context.Background(), 7, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-02", "2024-01-05"}, active)

	all, err := repo.DistinctDates(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NotNil(t, all)
}

func TestHabitRepo_CreateAndFind(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHabitRepo(db)
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	goal := 8

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO habits (user_id, name, goal_type, daily_goal) VALUES (?, ?, ?, ?)")).
		WithArgs(uint64(7), "Water", "count", &goal).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM habits WHERE id = ?")).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	h := model.Habit{UserID: 7, Name: "Water", GoalType: model.GoalCount, DailyGoal: &goal}
	require.NoError(t, repo.Create(context.Background(), &h))
	assert.Equal(t, uint64(11), h.ID)
	assert.Equal(t, created, h.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(name) = LOWER(?)")).
		WithArgs(uint64(7), "water").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "goal_type", "daily_goal", "created_at"}).
			AddRow(11, 7, "Water", "count", 8, created))
	found, err := repo.FindByName(context.Background(), 7, "water")
	require.NoError(t, err)
	assert.Equal(t, uint64(11), found.ID)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(name) = LOWER(?)")).
		WithArgs(uint64(7), "tea").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByName(context.Background(), 7, "tea")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHabitRepo_Delete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHabitRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM habits WHERE id = ?")).
		WithArgs(uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM habits WHERE user_id = ? AND LOWER(name) = LOWER(?)")).
		WithArgs(uint64(7), "Tea").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DeleteByID(context.Background(), 11)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeleteByName(context.Background(), 7, "Tea")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserRepo_GetOrCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)")).
		WithArgs("amzn1.ask.account.X", nil).
		WillReturnResult(sqlmock.NewResult(3, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_identity", "display_name", "created_at"}).
			AddRow(3, "amzn1.ask.account.X", nil, created))

	u, err := repo.GetOrCreate(context.Background(), " amzn1.ask.account.X ", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), u.ID)
	require.NotNil(t, u.ExternalIdentity)
	assert.Equal(t, "amzn1.ask.account.X", *u.ExternalIdentity)
	assert.Nil(t, u.DisplayName)
}
