package identity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"unismart/internal/store"
)

// Storage keys shared with the dashboard.
const (
	RosterKey          = "unismart_all_users"
	CurrentUserPrefix  = "unismart_user:"
	UserSessionsPrefix = "unismart_sessions:"
)

// Repository holds the full roster. Mutation is whole-list replacement.
type Repository interface {
	Load(ctx context.Context) ([]User, error)
	Replace(ctx context.Context, users []User) error
}

// KVRepository persists the roster as one serialized value.
type KVRepository struct {
	kv   store.KV
	seed func() []User
}

// NewKVRepository creates a roster repository over kv, seeded with SeedUsers.
func NewKVRepository(kv store.KV) *KVRepository {
	return &KVRepository{kv: kv, seed: SeedUsers}
}

// Load returns the stored roster. A missing key is seeded and written back;
// an unparsable value silently falls back to the seed.
func (r *KVRepository) Load(ctx context.Context) ([]User, error) {
	raw, err := r.kv.Get(ctx, RosterKey)
	if errors.Is(err, store.ErrKeyNotFound) {
		users := r.seed()
		return users, r.Replace(ctx, users)
	}
	if err != nil {
		return nil, err
	}
	var users []User
	if err := json.Unmarshal(raw, &users); err != nil {
		return r.seed(), nil
	}
	return users, nil
}

func (r *KVRepository) Replace(ctx context.Context, users []User) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, RosterKey, raw, 0)
}

// Sessions stores the serialized current-user record per login session,
// plus the list of live session ids of each user.
type Sessions struct {
	mu sync.Mutex
	kv store.KV
}

func NewSessions(kv store.KV) *Sessions {
	return &Sessions{kv: kv}
}

// Save writes the current-user record for sessionID.
func (s *Sessions) Save(ctx context.Context, sessionID string, u User, ttl time.Duration) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, CurrentUserPrefix+sessionID, raw, ttl); err != nil {
		return err
	}
	return s.track(ctx, u.ID, sessionID, ttl)
}

func (s *Sessions) track(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.sessionsOf(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == sessionID {
			return s.writeIndex(ctx, userID, ids, ttl)
		}
	}
	return s.writeIndex(ctx, userID, append(ids, sessionID), ttl)
}

func (s *Sessions) sessionsOf(ctx context.Context, userID string) ([]string, error) {
	raw, err := s.kv.Get(ctx, UserSessionsPrefix+userID)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, nil
	}
	return ids, nil
}

func (s *Sessions) writeIndex(ctx context.Context, userID string, ids []string, ttl time.Duration) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, UserSessionsPrefix+userID, raw, ttl)
}

// Load returns the current user of sessionID. Unparsable records are
// removed and reported as ErrNotFound.
func (s *Sessions) Load(ctx context.Context, sessionID string) (User, error) {
	raw, err := s.kv.Get(ctx, CurrentUserPrefix+sessionID)
	if errors.Is(err, store.ErrKeyNotFound) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		_ = s.kv.Delete(ctx, CurrentUserPrefix+sessionID)
		return User{}, ErrNotFound
	}
	return u, nil
}

// Clear ends the session.
func (s *Sessions) Clear(ctx context.Context, sessionID string) error {
	return s.kv.Delete(ctx, CurrentUserPrefix+sessionID)
}

// ClearUser ends every session of userID.
func (s *Sessions) ClearUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.sessionsOf(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.kv.Delete(ctx, CurrentUserPrefix+id); err != nil {
			return err
		}
	}
	return s.kv.Delete(ctx, UserSessionsPrefix+userID)
}
