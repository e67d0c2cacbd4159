package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/snshub/backend/internal/models"
)

// UserCacheTTL bounds how stale a cached user may get. Users who never come
// back expire out instead of occupying the cache forever.
const UserCacheTTL = 3 * 24 * time.Hour

// userKeyPrefix namespaces user entries so other entity types can share the
// same keyspace later without collisions.
const userKeyPrefix = "USER:"

// UserCache caches user records keyed by username. It is written on login
// and read by the auth middleware on every authenticated request, keeping
// the hot does-this-user-exist path off the database.
//
// Store errors are never surfaced: a failed read is a miss (the caller falls
// back to the datastore) and a failed write only loses the caching benefit.
type UserCache struct {
	store Store
	ttl   time.Duration
}

// NewUserCache creates a UserCache over the given store
func NewUserCache(store Store) *UserCache {
	return &UserCache{store: store, ttl: UserCacheTTL}
}

// cachedUser is the cache's own wire form of a user record. models.User hides
// the password hash from HTTP responses with json:"-", but the cache must
// keep it: a login served from the cache still has to verify the credential.
type cachedUser struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCachedUser(user *models.User) *cachedUser {
	return &cachedUser{
		ID:        user.ID,
		Username:  user.Username,
		Password:  user.Password,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func (c *cachedUser) toModel() *models.User {
	return &models.User{
		ID:        c.ID,
		Username:  c.Username,
		Password:  c.Password,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// SetUser caches the user, overwriting any previous entry. TTL-bounded
// overwrite is idempotent, so no compare-and-swap is needed.
func (c *UserCache) SetUser(ctx context.Context, user *models.User) {
	key := userKey(user.Username)
	value, err := json.Marshal(toCachedUser(user))
	if err != nil {
		slog.Warn("failed to encode user for cache", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
		slog.Warn("failed to cache user", "key", key, "error", err)
	}
}

// GetUser returns the cached user, or ok=false on miss, expiry, or any
// retrieval problem.
func (c *UserCache) GetUser(ctx context.Context, username string) (*models.User, bool) {
	key := userKey(username)
	value, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			slog.Warn("user cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}
	var user cachedUser
	if err := json.Unmarshal(value, &user); err != nil {
		slog.Warn("failed to decode cached user, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return user.toModel(), true
}

func userKey(username string) string {
	return userKeyPrefix + username
}
