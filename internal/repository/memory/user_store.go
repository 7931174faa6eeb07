package memory

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/Rotatus/internal/domain/user"
)

var _ user.Repo = (*UserStore)(nil)

type UserStore struct {
	mu     sync.Mutex
	byID   map[int64]*user.User
	nextID int64
}

func NewUserStore() *UserStore {
	return &UserStore{byID: make(map[int64]*user.User)}
}

func (s *UserStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ex := range s.byID {
		if ex.Email == u.Email {
			return user.ErrExists
		}
	}
	s.nextID++
	u.ID = s.nextID
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id int64) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}
