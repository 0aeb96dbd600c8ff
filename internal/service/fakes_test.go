package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/habit-tracker/internal/model"
	"github.com/iliyamo/habit-tracker/internal/queue"
	"github.com/iliyamo/habit-tracker/internal/repository"
)

// memStore is an in-memory HabitStore, LogStore and UserStore.
type memStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User
	habits map[uint64]model.Habit
	logs   map[uint64]map[string]int
	err    error
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[uint64]model.User{},
		habits: map[uint64]model.Habit{},
		logs:   map[uint64]map[string]int{},
	}
}

func (m *memStore) id() uint64 { m.nextID++; return m.nextID }

func (m *memStore) GetOrCreate(_ context.Context, ext string, dn *string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.User{}, m.err
	}
	for id, u := range m.users {
		if u.ExternalIdentity != nil && *u.ExternalIdentity == ext {
			if u.DisplayName == nil && dn != nil {
				u.DisplayName = dn
				m.users[id] = u
			}
			return u, nil
		}
	}
	e := ext
	u := model.User{ID: m.id(), ExternalIdentity: &e, DisplayName: dn, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (model.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.habits[id]
	if !ok {
		return model.Habit{}, repository.ErrNotFound
	}
	return h, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uint64) ([]model.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []model.Habit{}
	for _, h := range m.habits {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) Create(_ context.Context, h *model.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[h.UserID]; !ok {
		return repository.ErrNotFound
	}
	h.ID = m.id()
	h.CreatedAt = time.Now()
	m.habits[h.ID] = *h
	return nil
}

func (m *memStore) FindByName(_ context.Context, userID uint64, name string) (model.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best model.Habit
	for _, h := range m.habits {
		if h.UserID == userID && strings.EqualFold(h.Name, name) && (best.ID == 0 || h.ID < best.ID) {
			best = h
		}
	}
	if best.ID == 0 {
		return model.Habit{}, repository.ErrNotFound
	}
	return best, nil
}

func (m *memStore) DeleteByName(_ context.Context, userID uint64, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := false
	for id, h := range m.habits {
		if h.UserID == userID && strings.EqualFold(h.Name, name) {
			delete(m.habits, id)
			delete(m.logs, id)
			deleted = true
		}
	}
	return deleted, nil
}

func (m *memStore) DeleteByID(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.habits[id]; !ok {
		return false, nil
	}
	delete(m.habits, id)
	delete(m.logs, id)
	return true, nil
}

func (m *memStore) Accumulate(_ context.Context, habitID uint64, date string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.habits[habitID]; !ok {
		return repository.ErrNotFound
	}
	if m.logs[habitID] == nil {
		m.logs[habitID] = map[string]int{}
	}
	m.logs[habitID][date] += amount
	return nil
}

func (m *memStore) Summary(_ context.Context, userID uint64, from, to string) ([]model.SummaryRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.SummaryRow{}
	for _, h := range m.habits {
		if h.UserID != userID {
			continue
		}
		row := model.SummaryRow{HabitID: h.ID, Name: h.Name, GoalType: h.GoalType, DailyGoal: h.DailyGoal}
		for d, amt := range m.logs[h.ID] {
			if d >= from && d <= to {
				row.Total += amt
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) DailyLog(_ context.Context, userID uint64, date string) ([]model.DailyLogRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.DailyLogRow{}
	for _, h := range m.habits {
		if h.UserID == userID {
			out = append(out, model.DailyLogRow{HabitID: h.ID, Name: h.Name, GoalType: h.GoalType, DailyGoal: h.DailyGoal, Amount: m.logs[h.ID][date]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) userDates(userID uint64) []string {
	var out []string
	for id, h := range m.habits {
		if h.UserID != userID {
			continue
		}
		for d, amt := range m.logs[id] {
			if amt > 0 {
				out = append(out, d)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (m *memStore) ActivityDates(_ context.Context, userID uint64, from, to string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for _, d := range m.userDates(userID) {
		if d >= from && d <= to {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) DistinctDates(_ context.Context, userID uint64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.userDates(userID)
	slices.Reverse(out)
	return out, nil
}

// userStore adapts memStore to UserStore; GetByID is taken by HabitStore.
type userStore struct{ *memStore }

func (u userStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr, ok := u.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return usr, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.HabitLoggedEvent
	err    error
}

func (p *recordingPublisher) PublishHabitLogged(_ context.Context, ev queue.HabitLoggedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}
