package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/habit-tracker/internal/dates"
	"github.com/iliyamo/habit-tracker/internal/model"
	"github.com/iliyamo/habit-tracker/internal/repository"
)

// UserStore persists users.  GetOrCreate must be a single idempotent
// statement guarded by the unique external identity.
type UserStore interface {
	GetOrCreate(ctx context.Context, externalID string, displayName *string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// UserService resolves users and computes their streaks.
type UserService struct {
	users UserStore
	logs  LogStore
	dates *dates.Normalizer
}

func NewUserService(users UserStore, logs LogStore, n *dates.Normalizer) *UserService {
	if users == nil || logs == nil || n == nil {
		panic("nil dependency passed to NewUserService")
	}
	return &UserService{users: users, logs: logs, dates: n}
}

// EnsureUser returns the user for externalID, creating it on first
// contact.  An empty displayName leaves the stored one alone.
func (s *UserService) EnsureUser(ctx context.Context, externalID, displayName string) (model.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return model.User{}, invalid("external_identity", "is required")
	}
	var name *string
	if dn := strings.TrimSpace(displayName); dn != "" {
		name = &dn
	}
	u, err := s.users.GetOrCreate(ctx, externalID, name)
	if err != nil {
		return model.User{}, storeErr("ensure user", err)
	}
	return u, nil
}

// GetUser fetches a user by id.
func (s *UserService) GetUser(ctx context.Context, id uint64) (model.User, error) {
	if id == 0 {
		return model.User{}, invalid("id", "is required")
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, storeErr("get user", err)
	}
	return u, nil
}

// CurrentStreak is the user's run of consecutive active days across all
// habits, ending today or yesterday in the reference timezone.
func (s *UserService) CurrentStreak(ctx context.Context, userID uint64) (int, error) {
	if userID == 0 {
		return 0, invalid("user_id", "is required")
	}
	days, err := s.logs.DistinctDates(ctx, userID)
	if err != nil {
		return 0, storeErr("streak", err)
	}
	return CurrentStreak(days, s.dates.Today()), nil
}
