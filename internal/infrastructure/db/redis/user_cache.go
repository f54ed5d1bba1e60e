package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/pkg/metrics"
)

const defaultCacheTTL = 5 * time.Minute

// CachedUserStore decorates a UserStore with a read-through cache for
// GetUserByID. Entries are dropped after every successful update or delete of
// the same user. Cache failures are logged and fall through to the inner store.
type CachedUserStore struct {
	ports.UserStore
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

var _ ports.UserStore = (*CachedUserStore)(nil)

func NewCachedUserStore(inner ports.UserStore, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedUserStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedUserStore{
		UserStore: inner,
		client:    client,
		ttl:       ttl,
		log:       log.With().Str("component", "user_cache").Logger(),
	}
}

type cachedRole struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// cachedUser includes the password hash: updates read through the cache and
// must write the hash back unchanged.
type cachedUser struct {
	ID        int64        `json:"id"`
	Email     string       `json:"email"`
	Password  string       `json:"password"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Roles     []cachedRole `json:"roles"`
}

func (s *CachedUserStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	raw, err := s.client.Get(ctx, userKey(id)).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if err := json.Unmarshal(raw, &cu); err == nil {
			metrics.UserCacheTotal.WithLabelValues("hit").Inc()
			return cu.toDomain(), nil
		}
		metrics.UserCacheTotal.WithLabelValues("error").Inc()
		s.log.Warn().Int64("user_id", id).Msg("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
		metrics.UserCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.UserCacheTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Int64("user_id", id).Msg("user cache read failed")
	}

	user, err := s.UserStore.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(ctx, user)
	return user, nil
}

func (s *CachedUserStore) UpdateUser(ctx context.Context, user *domain.User) error {
	if err := s.UserStore.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.evict(ctx, user.ID)
	return nil
}

func (s *CachedUserStore) DeleteUser(ctx context.Context, id int64) error {
	if err := s.UserStore.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

// Ping checks the cache and, when supported, the inner store.
func (s *CachedUserStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if p, ok := s.UserStore.(ports.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *CachedUserStore) put(ctx context.Context, user *domain.User) {
	raw, err := json.Marshal(fromDomain(user))
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, userKey(user.ID), raw, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("user cache write failed")
	}
}

func (s *CachedUserStore) evict(ctx context.Context, id int64) {
	if err := s.client.Del(ctx, userKey(id)).Err(); err != nil {
		s.log.Warn().Err(err).Int64("user_id", id).Msg("user cache evict failed")
	}
}

func userKey(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

func fromDomain(u *domain.User) cachedUser {
	roles := make([]cachedRole, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, cachedRole{ID: r.ID, Name: r.Name})
	}
	return cachedUser{
		ID:        u.ID,
		Email:     u.Email,
		Password:  u.Password,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Roles:     roles,
	}
}

func (c cachedUser) toDomain() *domain.User {
	roles := make([]domain.Role, 0, len(c.Roles))
	for _, r := range c.Roles {
		roles = append(roles, domain.Role{ID: r.ID, Name: r.Name})
	}
	return &domain.User{
		ID:        c.ID,
		Email:     c.Email,
		Password:  c.Password,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Roles:     roles,
	}
}
