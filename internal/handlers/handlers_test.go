package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/snshub/backend/internal/alarm"
	"github.com/snshub/backend/internal/apperr"
	"github.com/snshub/backend/internal/middleware"
	"github.com/snshub/backend/internal/models"
	"github.com/snshub/backend/internal/repositories"
	"github.com/snshub/backend/validators"
)

// testEnv wires the handlers against an in-memory database, mirroring the
// production dependency graph minus HTTP routing.
type testEnv struct {
	db       *gorm.DB
	echo     *echo.Echo
	registry *alarm.Registry
	alarms   *alarm.Service

	userRepo    repositories.UserRepository
	postRepo    repositories.PostRepository
	commentRepo repositories.CommentRepository
	likeRepo    repositories.LikeRepository
	alarmRepo   repositories.AlarmRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{}, &models.Alarm{}))

	e := echo.New()
	e.Validator = validators.NewValidator()

	env := &testEnv{
		db:          db,
		echo:        e,
		registry:    alarm.NewRegistry(),
		userRepo:    repositories.NewPostgresUserRepository(db),
		postRepo:    repositories.NewPostgresPostRepository(db),
		commentRepo: repositories.NewPostgresCommentRepository(db),
		likeRepo:    repositories.NewPostgresLikeRepository(db),
		alarmRepo:   repositories.NewPostgresAlarmRepository(db),
	}
	env.alarms = alarm.NewService(db, env.alarmRepo, env.userRepo, env.registry)
	return env
}

func (env *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Password: "hashed"}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

func (env *testEnv) createPost(t *testing.T, author *models.User) *models.Post {
	t.Helper()
	post := &models.Post{UserID: author.ID, Title: "hello", Body: "world"}
	require.NoError(t, env.db.Create(post).Error)
	return post
}

// request builds an authenticated echo context the way the JWT middleware
// would leave it.
func (env *testEnv) request(method, target string, body string, as *models.User) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	if as != nil {
		c.Set(middleware.UserContextKey, as)
	}
	return c, rec
}

func TestLikePushesAlarmToConnectedAuthor(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice)

	// alice is connected and listening
	emitter, err := env.alarms.Connect(alice.ID)
	require.NoError(t, err)
	<-emitter.Events() // drain the connect event

	h := NewLikeHandler(env.likeRepo, env.postRepo, env.alarms)
	c, rec := env.request(http.MethodPost, "/api/v1/posts/:post_id/likes", "", bob)
	c.SetParamNames("post_id")
	c.SetParamValues(fmt.Sprint(post.ID))

	require.NoError(t, h.LikePost(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Exactly one alarm record for alice, from bob, about the post.
	alarms, total, err := env.alarmRepo.GetAlarmsByRecipientID(alice.ID, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, models.AlarmNewLikeOnPost, alarms[0].Type)
	require.Equal(t, models.AlarmArgs{FromUserID: bob.ID, TargetID: post.ID}, alarms[0].Args)

	// The pushed event carries the persisted record's id.
	select {
	case event := <-emitter.Events():
		require.Equal(t, fmt.Sprint(alarms[0].ID), event.ID)
		require.Equal(t, alarm.EventName, event.Name)
		require.Equal(t, "new alarm", event.Data)
	case <-time.After(time.Second):
		t.Fatal("alice did not receive the push")
	}
}

func TestLikeSucceedsWhenAuthorChannelIsBroken(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice)

	emitter, err := env.alarms.Connect(alice.ID)
	require.NoError(t, err)
	emitter.Close() // alice's browser is gone

	h := NewLikeHandler(env.likeRepo, env.postRepo, env.alarms)
	c, rec := env.request(http.MethodPost, "/api/v1/posts/:post_id/likes", "", bob)
	c.SetParamNames("post_id")
	c.SetParamValues(fmt.Sprint(post.ID))

	// The like itself must still succeed.
	require.NoError(t, h.LikePost(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	// The alarm record survives the failed push, and the broken channel is
	// out of the registry.
	_, total, err := env.alarmRepo.GetAlarmsByRecipientID(alice.ID, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	_, ok := env.registry.Lookup(alice.ID)
	require.False(t, ok)
}

func TestLikeTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice)

	h := NewLikeHandler(env.likeRepo, env.postRepo, env.alarms)

	c, _ := env.request(http.MethodPost, "/api/v1/posts/:post_id/likes", "", bob)
	c.SetParamNames("post_id")
	c.SetParamValues(fmt.Sprint(post.ID))
	require.NoError(t, h.LikePost(c))

	c, _ = env.request(http.MethodPost, "/api/v1/posts/:post_id/likes", "", bob)
	c.SetParamNames("post_id")
	c.SetParamValues(fmt.Sprint(post.ID))
	err := h.LikePost(c)
	require.ErrorContains(t, err, "already liked")
}

func TestCommentCreatesAlarmInSameTransaction(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice)

	h := NewCommentHandler(env.commentRepo, env.postRepo, env.alarms)
	c, rec := env.request(http.MethodPost, "/api/v1/posts/:post_id/comments", `{"comment":"nice post"}`, bob)
	c.SetParamNames("post_id")
	c.SetParamValues(fmt.Sprint(post.ID))

	require.NoError(t, h.CreateComment(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	comments, total, err := env.commentRepo.GetCommentsByPostID(post.ID, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "nice post", comments[0].Comment)

	alarms, alarmTotal, err := env.alarmRepo.GetAlarmsByRecipientID(alice.ID, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, alarmTotal)
	require.Equal(t, models.AlarmNewCommentOnPost, alarms[0].Type)
}

func TestDismissAlarmIsRecipientScoped(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	a, err := env.alarms.Send(models.AlarmNewLikeOnPost, models.AlarmArgs{FromUserID: bob.ID, TargetID: 1}, alice.ID, nil)
	require.NoError(t, err)

	h := NewAlarmHandler(env.alarmRepo, env.alarms)

	// bob cannot dismiss alice's alarm.
	c, _ := env.request(http.MethodDelete, "/api/v1/users/alarm/:alarm_id", "", bob)
	c.SetParamNames("alarm_id")
	c.SetParamValues(fmt.Sprint(a.ID))
	require.ErrorIs(t, h.DismissAlarm(c), apperr.ErrAlarmNotFound)

	c, rec := env.request(http.MethodDelete, "/api/v1/users/alarm/:alarm_id", "", alice)
	c.SetParamNames("alarm_id")
	c.SetParamValues(fmt.Sprint(a.ID))
	require.NoError(t, h.DismissAlarm(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, total, err := env.alarmRepo.GetAlarmsByRecipientID(alice.ID, 1, 20)
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestAlarmListReturnsCallerHistory(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")

	for i := 0; i < 3; i++ {
		_, err := env.alarms.Send(models.AlarmNewLikeOnPost, models.AlarmArgs{FromUserID: 99, TargetID: uint(i)}, alice.ID, nil)
		require.NoError(t, err)
	}

	h := NewAlarmHandler(env.alarmRepo, env.alarms)
	c, rec := env.request(http.MethodGet, "/api/v1/users/alarm?page=1&limit=2", "", alice)

	require.NoError(t, h.GetAlarms(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"totalItems":3`)
}
