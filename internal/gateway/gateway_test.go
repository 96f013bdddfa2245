package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwave/internal/model"
)

func TestGateway_LoginSetsAuthToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "alice", body["handle"])
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"token": "tok-123",
				"user":  &model.User{ID: "u1", Handle: "alice"},
			})
		case "/api/messages/u2":
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode([]*model.Message{})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	token, user, err := g.Login(context.Background(), "alice", "Password123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, "u1", user.ID)

	// follow-up requests carry the issued token
	_, err = g.FetchHistory(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestGateway_FetchHistory(t *testing.T) {
	history := []*model.Message{
		{ID: "m1", SenderID: "u1", ReceiverID: "u2", Text: "hi", CreatedAt: time.Now().UTC()},
		{ID: "m2", SenderID: "u2", ReceiverID: "u1", Text: "hey", CreatedAt: time.Now().UTC()},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/messages/u2", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(history)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	got, err := g.FetchHistory(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "hey", got[1].Text)
}

func TestGateway_FetchHistoryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "db is down"})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	got, err := g.FetchHistory(context.Background(), "u2")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "db is down")
}

func TestGateway_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/messages/send/u2", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["text"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&model.Message{
			ID: "m9", SenderID: "u1", ReceiverID: "u2", Text: body["text"],
		})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	msg, err := g.Send(context.Background(), "u2", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "m9", msg.ID)
	assert.Equal(t, "u2", msg.ReceiverID)
}

func TestGateway_DeleteForBoth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/messages/m1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	require.NoError(t, g.DeleteForBoth(context.Background(), "m1"))
}

func TestGateway_Translate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "m1", body["message_id"])
		assert.Equal(t, "es", body["language_code"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&model.TranslateResult{
			TranslatedText: "hola",
			SourceLanguage: "en",
			TargetLanguage: "es",
		})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	res, err := g.Translate(context.Background(), "m1", "hello", "es")
	require.NoError(t, err)
	assert.Equal(t, "hola", res.TranslatedText)
	assert.Equal(t, "es", res.TargetLanguage)
}

func TestGateway_ToggleFollow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/follow/u7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&model.FollowResult{
			Action: model.ActionFollowed,
			User:   &model.User{ID: "u1", Following: []string{"u7"}},
			Target: &model.User{ID: "u7", Followers: []string{"u1"}},
		})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	res, err := g.ToggleFollow(context.Background(), "u7")
	require.NoError(t, err)
	assert.Equal(t, model.ActionFollowed, res.Action)
	assert.Contains(t, res.User.Following, "u7")
}

func TestGateway_TransportError(t *testing.T) {
	g := NewGateway("http://127.0.0.1:1") // nothing listens here
	_, err := g.FetchHistory(context.Background(), "u2")
	require.Error(t, err)
}
