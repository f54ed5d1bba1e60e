// Package memory provides a process-local UserStore used for development,
// tests, and single-instance deployments without MongoDB.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
)

// Store keeps users and roles in maps guarded by a single mutex. Values are
// cloned on the way in and out so callers can never alias stored state.
type Store struct {
	mu      sync.RWMutex
	users   map[int64]*domain.User
	roles   map[int64]domain.Role
	userSeq int64
	roleSeq int64
}

var _ ports.UserStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users: make(map[int64]*domain.User),
		roles: make(map[int64]domain.Role),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CountUsers(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *Store) CountRoles(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.roles)), nil
}

func (s *Store) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailOwner(user.Email, 0) != nil {
		return nil, domain.ErrEmailTaken
	}
	s.userSeq++
	stored := user.Clone()
	stored.ID = s.userSeq
	s.users[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *Store) CreateRole(_ context.Context, name string) (*domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roleSeq++
	role := domain.Role{ID: s.roleSeq, Name: name}
	s.roles[role.ID] = role
	return &role, nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u := s.emailOwner(email, 0); u != nil {
		return u.Clone(), nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *Store) GetUserByEmailExcludingID(_ context.Context, id int64, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u := s.emailOwner(email, id); u != nil {
		return u.Clone(), nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *Store) ListUsers(context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if s.emailOwner(user.Email, user.ID) != nil {
		return domain.ErrEmailTaken
	}
	s.users[user.ID] = user.Clone()
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (*domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.roles {
		if r.Name == name {
			role := r
			return &role, nil
		}
	}
	return nil, domain.ErrRoleNotFound
}

func (s *Store) GetRolesByNames(_ context.Context, names []string) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	out := make([]domain.Role, 0, len(names))
	for _, r := range s.sortedRoles() {
		if _, ok := wanted[r.Name]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListRoles(context.Context) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedRoles(), nil
}

// emailOwner returns the user owning email other than skipID. Callers hold mu.
func (s *Store) emailOwner(email string, skipID int64) *domain.User {
	for id, u := range s.users {
		if id != skipID && u.Email == email {
			return u
		}
	}
	return nil
}

func (s *Store) sortedRoles() []domain.Role {
	out := make([]domain.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
