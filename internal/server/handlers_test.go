package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"chatwave/internal/common"
	"chatwave/internal/dbmysql"
	"chatwave/internal/model"
	"chatwave/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	mu   sync.Mutex
	byID map[string]*dbmysql.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*dbmysql.User)}
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *dbmysql.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[user.UserID] = user
	return nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, userID string) (*dbmysql.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[userID]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetUserByHandle(_ context.Context, handle string) (*dbmysql.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Handle == handle {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) CheckUserExists(ctx context.Context, handle string) (bool, error) {
	_, err := r.GetUserByHandle(ctx, handle)
	return err == nil, nil
}

type fakeMessageRepo struct {
	mu   sync.Mutex
	rows []*dbmysql.Message
}

func (r *fakeMessageRepo) Save(_ context.Context, msg *dbmysql.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, msg)
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, messageID string) (*dbmysql.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.MessageID == messageID && !row.DeletedAt.Valid {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMessageRepo) History(_ context.Context, userA, userB string) ([]*dbmysql.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*dbmysql.Message
	for _, row := range r.rows {
		if row.DeletedAt.Valid {
			continue
		}
		if (row.SenderID == userA && row.ReceiverID == userB) ||
			(row.SenderID == userB && row.ReceiverID == userA) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) SoftDelete(_ context.Context, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.MessageID == messageID {
			row.DeletedAt.Valid = true
			return nil
		}
	}
	return nil
}

type fakeFollowRepo struct {
	mu    sync.Mutex
	edges map[string]map[string]bool
}

func newFakeFollowRepo() *fakeFollowRepo {
	return &fakeFollowRepo{edges: make(map[string]map[string]bool)}
}

func (r *fakeFollowRepo) Exists(_ context.Context, userID, targetID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.edges[userID][targetID], nil
}

func (r *fakeFollowRepo) Create(_ context.Context, edge *dbmysql.Follow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.edges[edge.UserID] == nil {
		r.edges[edge.UserID] = make(map[string]bool)
	}
	r.edges[edge.UserID][edge.TargetUserID] = true
	return nil
}

func (r *fakeFollowRepo) Delete(_ context.Context, userID, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.edges[userID], targetID)
	return nil
}

func (r *fakeFollowRepo) ListFollowing(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for target := range r.edges[userID] {
		out = append(out, target)
	}
	return out, nil
}

func (r *fakeFollowRepo) ListFollowers(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for follower, targets := range r.edges {
		if targets[userID] {
			out = append(out, follower)
		}
	}
	return out, nil
}

type pushedEvent struct {
	UserID string
	Event  string
}

type recordingPusher struct {
	mu     sync.Mutex
	events []pushedEvent
}

func (p *recordingPusher) SendTo(userID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushedEvent{UserID: userID, Event: event})
}

func (p *recordingPusher) all() []pushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushedEvent(nil), p.events...)
}

type testStack struct {
	server *httptest.Server
	users  *fakeUserRepo
	push   *recordingPusher
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	users := newFakeUserRepo()
	push := &recordingPusher{}
	svc := NewService(users, &fakeMessageRepo{}, newFakeFollowRepo(), push, NewPassthroughTranslator())
	srv := httptest.NewServer(NewHandlers(svc, NewHub(), nil).Router())
	t.Cleanup(srv.Close)
	return &testStack{server: srv, users: users, push: push}
}

func (s *testStack) seedUser(t *testing.T, userID, handle string) string {
	t.Helper()
	hash, err := common.HashPassword("Password1!")
	require.NoError(t, err)
	require.NoError(t, s.users.CreateUser(context.Background(), &dbmysql.User{
		UserID:       userID,
		Handle:       handle,
		PasswordHash: hash,
		Status:       "active",
	}))
	token, err := common.GenerateToken(userID, handle)
	require.NoError(t, err)
	return token
}

func (s *testStack) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestStack(t)

	resp, raw := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"handle":   "riya",
		"password": "Password1!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var created struct {
		Token string      `json:"token"`
		User  *model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "riya", created.User.Handle)

	resp, _ = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"handle":   "riya",
		"password": "Password1!",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"handle":   "riya",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"handle":   "riya",
		"password": "Password1!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
}

func TestAuthRequired(t *testing.T) {
	s := newTestStack(t)

	resp, _ := s.do(t, http.MethodGet, "/api/users/riya", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/users/riya", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSendAndHistory(t *testing.T) {
	s := newTestStack(t)
	tokenA := s.seedUser(t, "u1", "riya")
	s.seedUser(t, "u2", "dev")

	resp, raw := s.do(t, http.MethodPost, "/api/messages/send/u2", tokenA, map[string]string{
		"text": "hello there",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var sent model.Message
	require.NoError(t, json.Unmarshal(raw, &sent))
	assert.Equal(t, "u1", sent.SenderID)
	assert.Equal(t, "u2", sent.ReceiverID)
	assert.NotEmpty(t, sent.ID)

	resp, raw = s.do(t, http.MethodGet, "/api/messages/u2", tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []*model.Message
	require.NoError(t, json.Unmarshal(raw, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "hello there", history[0].Text)

	events := s.push.all()
	require.Len(t, events, 1)
	assert.Equal(t, pushedEvent{UserID: "u2", Event: realtime.EventNewMessage}, events[0])
}

func TestSendValidation(t *testing.T) {
	s := newTestStack(t)
	tokenA := s.seedUser(t, "u1", "riya")
	s.seedUser(t, "u2", "dev")

	resp, _ := s.do(t, http.MethodPost, "/api/messages/send/u2", tokenA, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/messages/send/ghost", tokenA, map[string]string{
		"text": "anyone home",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteForBoth(t *testing.T) {
	s := newTestStack(t)
	tokenA := s.seedUser(t, "u1", "riya")
	s.seedUser(t, "u2", "dev")
	tokenC := s.seedUser(t, "u3", "sam")

	_, raw := s.do(t, http.MethodPost, "/api/messages/send/u2", tokenA, map[string]string{
		"text": "delete me",
	})
	var sent model.Message
	require.NoError(t, json.Unmarshal(raw, &sent))

	resp, _ := s.do(t, http.MethodDelete, "/api/messages/"+sent.ID, tokenC, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/api/messages/"+sent.ID, tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = s.do(t, http.MethodGet, "/api/messages/u2", tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []*model.Message
	require.NoError(t, json.Unmarshal(raw, &history))
	assert.Empty(t, history)

	var deletions []pushedEvent
	for _, ev := range s.push.all() {
		if ev.Event == realtime.EventMessageDeletedFromBoth {
			deletions = append(deletions, ev)
		}
	}
	require.Len(t, deletions, 2)
	assert.ElementsMatch(t, []string{"u1", "u2"}, []string{deletions[0].UserID, deletions[1].UserID})
}

func TestTranslate(t *testing.T) {
	s := newTestStack(t)
	token := s.seedUser(t, "u1", "riya")

	resp, raw := s.do(t, http.MethodPost, "/api/messages/translate", token, map[string]string{
		"text":          "hola amigo",
		"language_code": "en",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var result model.TranslateResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, "hola amigo", result.TranslatedText)
	assert.Equal(t, "en", result.TargetLanguage)

	resp, _ = s.do(t, http.MethodPost, "/api/messages/translate", token, map[string]string{
		"text": "no target language",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToggleFollow(t *testing.T) {
	s := newTestStack(t)
	token := s.seedUser(t, "u1", "riya")
	s.seedUser(t, "u2", "dev")

	resp, raw := s.do(t, http.MethodPost, "/api/users/follow/u2", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var result model.FollowResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, model.ActionFollowed, result.Action)
	assert.Contains(t, result.User.Following, "u2")
	assert.Contains(t, result.Target.Followers, "u1")

	resp, raw = s.do(t, http.MethodPost, "/api/users/follow/u2", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = model.FollowResult{}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, model.ActionUnfollowed, result.Action)
	assert.Empty(t, result.User.Following)

	resp, _ = s.do(t, http.MethodPost, "/api/users/follow/u1", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/users/follow/ghost", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUserByHandle(t *testing.T) {
	s := newTestStack(t)
	token := s.seedUser(t, "u1", "riya")
	s.seedUser(t, "u2", "dev")

	resp, raw := s.do(t, http.MethodGet, "/api/users/dev", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user model.User
	require.NoError(t, json.Unmarshal(raw, &user))
	assert.Equal(t, "u2", user.ID)

	resp, _ = s.do(t, http.MethodGet, "/api/users/ghost", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDecodeDataURL(t *testing.T) {
	mimeType, content, ok := decodeDataURL("data:image/png;base64,aGVsbG8=")
	require.True(t, ok)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte("hello"), content)

	_, _, ok = decodeDataURL("https://cdn.example.com/pic.png")
	assert.False(t, ok)

	_, _, ok = decodeDataURL(fmt.Sprintf("data:image/png;base64,%s", "!!not-base64!!"))
	assert.False(t, ok)
}
