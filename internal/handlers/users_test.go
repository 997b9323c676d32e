package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/auth"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
)

type testEnv struct {
	router     *gin.Engine
	auth       *auth.Service
	users      *memUserRepo
	posts      *memPostRepo
	convs      *memConvStore
	msgs       *memMsgStore
	uploader   *fakeUploader
	dispatcher *recordingDispatcher
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:      newMemUserRepo(),
		posts:      newMemPostRepo(),
		convs:      newMemConvStore(),
		msgs:       newMemMsgStore(),
		uploader:   &fakeUploader{},
		dispatcher: newRecordingDispatcher(),
	}
	env.auth = auth.NewService([]byte("test-secret"), time.Hour, env.users)

	h := New(env.auth, env.users, env.posts, env.convs, env.msgs, env.uploader, env.dispatcher)
	env.router = gin.New()
	h.RegisterRoutes(env.router)
	return env
}

// createUser registers a user directly in the store and returns a
// session cookie for them.
func (env *testEnv) createUser(t *testing.T, username string) (*models.User, *http.Cookie) {
	t.Helper()

	hash, err := env.auth.HashPassword("password1")
	require.NoError(t, err)

	user := &models.User{
		Name:     username,
		Email:    username + "@coventry.ac.uk",
		Username: username,
		Password: hash,
	}
	require.NoError(t, env.users.Create(context.Background(), user))

	token, _, err := env.auth.GenerateToken(user.ID)
	require.NoError(t, err)
	return user, &http.Cookie{Name: auth.CookieName, Value: token}
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/users/signup", SignupRequest{
		Name:     "Alice Smith",
		Email:    "alice@coventry.ac.uk",
		Username: "alice",
		Password: "password1",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Result().Cookies(), "signup should open a session")
	assert.NotContains(t, w.Body.String(), "password")

	w = env.do(t, http.MethodPost, "/api/users/login", LoginRequest{
		Username: "alice",
		Password: "password1",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignupRejectsForeignEmailDomain(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/users/signup", SignupRequest{
		Name:     "Eve",
		Email:    "eve@gmail.com",
		Username: "eve",
		Password: "password1",
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSignupRejectsDuplicateUser(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")

	w := env.do(t, http.MethodPost, "/api/users/signup", SignupRequest{
		Name:     "Alice Again",
		Email:    "alice@coventry.ac.uk",
		Username: "alice2",
		Password: "password1",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")

	w := env.do(t, http.MethodPost, "/api/users/login", LoginRequest{
		Username: "alice",
		Password: "wrong",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginUnfreezesAccount(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.createUser(t, "alice")
	require.NoError(t, env.users.SetFrozen(context.Background(), user.ID, true))

	w := env.do(t, http.MethodPost, "/api/users/login", LoginRequest{
		Username: "alice",
		Password: "password1",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	fresh, err := env.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, fresh.IsFrozen)
}

func TestGetUserProfileByUsernameAndID(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.createUser(t, "alice")

	w := env.do(t, http.MethodGet, "/api/users/profile/alice", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")

	w = env.do(t, http.MethodGet, "/api/users/profile/"+user.ID.Hex(), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/profile/nobody", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFollowUnfollowToggle(t *testing.T) {
	env := newTestEnv(t)
	alice, cookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")

	w := env.do(t, http.MethodPost, "/api/users/follow/"+bob.ID.Hex(), nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	fresh, _ := env.users.GetByID(context.Background(), alice.ID)
	assert.Contains(t, fresh.Following, bob.ID.Hex())

	// Second call unfollows
	w = env.do(t, http.MethodPost, "/api/users/follow/"+bob.ID.Hex(), nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	fresh, _ = env.users.GetByID(context.Background(), alice.ID)
	assert.NotContains(t, fresh.Following, bob.ID.Hex())
}

func TestCannotFollowYourself(t *testing.T) {
	env := newTestEnv(t)
	alice, cookie := env.createUser(t, "alice")

	w := env.do(t, http.MethodPost, "/api/users/follow/"+alice.ID.Hex(), nil, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateUserPropagatesIdentityIntoReplies(t *testing.T) {
	env := newTestEnv(t)
	alice, cookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")

	post := &models.Post{PostedBy: bob.ID, Text: "hello"}
	require.NoError(t, env.posts.Create(context.Background(), post))
	require.NoError(t, env.posts.AddReply(context.Background(), post.ID, models.Reply{
		UserID:   alice.ID,
		Text:     "nice one",
		Username: "alice",
	}))

	w := env.do(t, http.MethodPut, "/api/users/update/"+alice.ID.Hex(), UpdateUserRequest{
		Username: "alice_renamed",
	}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	fresh, err := env.posts.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Replies, 1)
	assert.Equal(t, "alice_renamed", fresh.Replies[0].Username)
}

func TestUpdateOtherUsersProfileForbidden(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")

	w := env.do(t, http.MethodPut, "/api/users/update/"+bob.ID.Hex(), UpdateUserRequest{
		Name: "Hacked",
	}, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFreezeAccount(t *testing.T) {
	env := newTestEnv(t)
	alice, cookie := env.createUser(t, "alice")

	w := env.do(t, http.MethodPut, "/api/users/freeze", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	fresh, _ := env.users.GetByID(context.Background(), alice.ID)
	assert.True(t, fresh.IsFrozen)
}

func TestSuggestedUsersExcludesSelfAndFollowed(t *testing.T) {
	env := newTestEnv(t)
	alice, cookie := env.createUser(t, "alice")
	bob, _ := env.createUser(t, "bob")
	env.createUser(t, "carol")

	require.NoError(t, env.users.Follow(context.Background(), alice.ID, bob.ID))

	w := env.do(t, http.MethodGet, "/api/users/suggested", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var suggested []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &suggested))
	for _, u := range suggested {
		assert.NotEqual(t, alice.ID, u.ID)
		assert.NotEqual(t, bob.ID, u.ID)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/users/suggested", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPut, "/api/users/freeze", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
