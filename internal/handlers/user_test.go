package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/snshub/backend/internal/apperr"
	"github.com/snshub/backend/internal/cache"
	"github.com/snshub/backend/internal/models"
)

func newUserHandler(env *testEnv) (*UserHandler, *cache.UserCache) {
	uc := cache.NewUserCache(cache.NewMemoryStore(16, time.Minute))
	return NewUserHandler(env.userRepo, uc, "test-secret", time.Hour), uc
}

func TestJoinThenLogin(t *testing.T) {
	env := newTestEnv(t)
	h, uc := newUserHandler(env)

	c, rec := env.request(http.MethodPost, "/api/v1/users/join", `{"username":"alice","password":"password123"}`, nil)
	require.NoError(t, h.Join(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = env.request(http.MethodPost, "/api/v1/users/login", `{"username":"alice","password":"password123"}`, nil)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"token"`)

	// Login is the write-through point for the user cache.
	cached, ok := uc.GetUser(context.Background(), "alice")
	require.True(t, ok)
	require.Equal(t, "alice", cached.Username)

	// The issued token verifies with the configured secret.
	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(resp.Data.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
	require.Equal(t, "alice", claims.Username)
}

func TestRepeatLoginServedFromCache(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newUserHandler(env)

	c, _ := env.request(http.MethodPost, "/api/v1/users/join", `{"username":"alice","password":"password123"}`, nil)
	require.NoError(t, h.Join(c))

	c, rec := env.request(http.MethodPost, "/api/v1/users/login", `{"username":"alice","password":"password123"}`, nil)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// Remove the row so the second login can only be satisfied by the cache
	// written during the first. Password verification must still succeed.
	require.NoError(t, env.db.Unscoped().Where("username = ?", "alice").Delete(&models.User{}).Error)

	c, rec = env.request(http.MethodPost, "/api/v1/users/login", `{"username":"alice","password":"password123"}`, nil)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, _ = env.request(http.MethodPost, "/api/v1/users/login", `{"username":"alice","password":"wrong-password"}`, nil)
	require.ErrorIs(t, h.Login(c), apperr.ErrInvalidPassword)
}

func TestJoinDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newUserHandler(env)

	c, _ := env.request(http.MethodPost, "/api/v1/users/join", `{"username":"alice","password":"password123"}`, nil)
	require.NoError(t, h.Join(c))

	c, _ = env.request(http.MethodPost, "/api/v1/users/join", `{"username":"alice","password":"password456"}`, nil)
	require.ErrorIs(t, h.Join(c), apperr.ErrDuplicateUsername)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newUserHandler(env)

	c, _ := env.request(http.MethodPost, "/api/v1/users/join", `{"username":"alice","password":"password123"}`, nil)
	require.NoError(t, h.Join(c))

	c, _ = env.request(http.MethodPost, "/api/v1/users/login", `{"username":"alice","password":"wrong-password"}`, nil)
	require.ErrorIs(t, h.Login(c), apperr.ErrInvalidPassword)
}

func TestLoginUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newUserHandler(env)

	c, _ := env.request(http.MethodPost, "/api/v1/users/login", `{"username":"ghost","password":"password123"}`, nil)
	require.ErrorIs(t, h.Login(c), apperr.ErrUserNotFound)
}

func TestModifyPostRequiresAuthor(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice)

	h := NewPostHandler(env.postRepo)
	c, _ := env.request(http.MethodPut, "/api/v1/posts/:post_id", `{"title":"hacked","body":"hacked"}`, bob)
	c.SetParamNames("post_id")
	c.SetParamValues(fmt.Sprint(post.ID))

	require.ErrorIs(t, h.ModifyPost(c), apperr.ErrInvalidPermission)
}
