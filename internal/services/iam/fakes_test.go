package iam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Shonkurieta/ebookreader/internal/db/models"
	"github.com/Shonkurieta/ebookreader/internal/repository"
)

// memoryUsers is an in-memory repository.UserRepository.
type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.User
	calls  int
	getErr error
	delay  time.Duration
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{nextID: 1, byID: map[int64]models.User{}}
}

var _ repository.UserRepository = (*memoryUsers)(nil)

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Nickname == user.Nickname || strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("create user: %w", repository.ErrConflict)
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.byID[user.ID] = *user
	return nil
}

func (m *memoryUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	m.calls++
	delay, getErr := m.delay, m.getErr
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if getErr != nil {
		return nil, getErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, repository.ErrNotFound)
	}
	return &u, nil
}

func (m *memoryUsers) find(match func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) GetByNickname(_ context.Context, nickname string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Nickname == nickname })
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memoryUsers) List(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.byID))
	for id := int64(1); id < m.nextID; id++ {
		if u, ok := m.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memoryUsers) update(id int64, fn func(*models.User) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	m.byID[id] = u
	return nil
}

func (m *memoryUsers) SetNickname(_ context.Context, id int64, nickname string) error {
	return m.update(id, func(u *models.User) error {
		for _, other := range m.byID {
			if other.ID != id && other.Nickname == nickname {
				return repository.ErrConflict
			}
		}
		u.Nickname = nickname
		return nil
	})
}

func (m *memoryUsers) SetPasswordHash(_ context.Context, id int64, hash string) error {
	return m.update(id, func(u *models.User) error { u.PasswordHash = hash; return nil })
}

func (m *memoryUsers) SetRole(_ context.Context, id int64, role string) error {
	return m.update(id, func(u *models.User) error { u.Role = role; return nil })
}

func (m *memoryUsers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memoryUsers) CountByRole(_ context.Context, role string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.byID {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *memoryUsers) lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memoryUsers) failWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

var errStoreDown = errors.New("connection refused")
