package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// echoServer upgrades, records the bearer token, and hands the socket to fn.
func echoServer(t *testing.T, fn func(ws *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		fn(ws)
	}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

func TestConn_DispatchesEvents(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{"id": "m1"})
	srv, wsURL := echoServer(t, func(ws *websocket.Conn) {
		ws.WriteJSON(&Envelope{Event: EventNewMessage, Data: payload})
		time.Sleep(100 * time.Millisecond)
		ws.Close()
	})
	defer srv.Close()

	got := make(chan json.RawMessage, 1)
	c := NewConn(wsURL, time.Second)
	c.On(EventNewMessage, func(data json.RawMessage) {
		got <- data
	})

	require.NoError(t, c.Connect(context.Background(), "tok"))

	select {
	case data := <-got:
		assert.JSONEq(t, `{"id":"m1"}`, string(data))
	case <-time.After(time.Second):
		t.Fatal("event never dispatched")
	}
}

func TestConn_ConnectIsIdempotent(t *testing.T) {
	var dials int32
	srv, wsURL := echoServer(t, func(ws *websocket.Conn) {
		atomic.AddInt32(&dials, 1)
		time.Sleep(200 * time.Millisecond)
		ws.Close()
	})
	defer srv.Close()

	c := NewConn(wsURL, time.Second)
	require.NoError(t, c.Connect(context.Background(), "tok"))
	require.NoError(t, c.Connect(context.Background(), "tok")) // no-op
	require.NoError(t, c.Connect(context.Background(), "tok")) // no-op

	assert.True(t, c.Connected())
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
}

func TestConn_DisconnectSafeWhenAlreadyDown(t *testing.T) {
	c := NewConn("ws://127.0.0.1:1/ws", time.Second)
	c.Disconnect()
	c.Disconnect()
	assert.False(t, c.Connected())
}

func TestConn_ReconnectDoesNotDoubleRegister(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{"id": "m1"})
	srv, wsURL := echoServer(t, func(ws *websocket.Conn) {
		ws.WriteJSON(&Envelope{Event: EventNewMessage, Data: payload})
		time.Sleep(300 * time.Millisecond)
		ws.Close()
	})
	defer srv.Close()

	var calls int32
	c := NewConn(wsURL, time.Second)
	c.On(EventNewMessage, func(json.RawMessage) { atomic.AddInt32(&calls, 1) })

	require.NoError(t, c.Connect(context.Background(), "tok"))
	time.Sleep(100 * time.Millisecond)
	c.Disconnect()

	// handler registered again at reconnect time, as a connect call site
	// would do; the registry must replace, not stack
	c.On(EventNewMessage, func(json.RawMessage) { atomic.AddInt32(&calls, 1) })
	require.NoError(t, c.Connect(context.Background(), "tok"))
	time.Sleep(100 * time.Millisecond)

	// one event per connection, one handler invocation each
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestConn_ForcedDisconnectClearsHandle(t *testing.T) {
	srv, wsURL := echoServer(t, func(ws *websocket.Conn) {
		ws.WriteJSON(&Envelope{Event: EventForcedDisconnect})
		time.Sleep(200 * time.Millisecond)
		ws.Close()
	})
	defer srv.Close()

	kicked := make(chan struct{}, 1)
	c := NewConn(wsURL, time.Second)
	c.On(EventForcedDisconnect, func(json.RawMessage) { kicked <- struct{}{} })

	require.NoError(t, c.Connect(context.Background(), "tok"))

	select {
	case <-kicked:
	case <-time.After(time.Second):
		t.Fatal("forced-disconnect handler never ran")
	}
	assert.False(t, c.Connected())
}

func TestConn_EmitRoundTrip(t *testing.T) {
	received := make(chan Envelope, 1)
	srv, wsURL := echoServer(t, func(ws *websocket.Conn) {
		var env Envelope
		if err := ws.ReadJSON(&env); err == nil {
			received <- env
		}
		ws.Close()
	})
	defer srv.Close()

	c := NewConn(wsURL, time.Second)
	require.NoError(t, c.Connect(context.Background(), "tok"))

	require.NoError(t, c.Emit(EventTyping, &TypingSignal{ReceiverID: "u2"}))

	select {
	case env := <-received:
		assert.Equal(t, EventTyping, env.Event)
		var sig TypingSignal
		require.NoError(t, json.Unmarshal(env.Data, &sig))
		assert.Equal(t, "u2", sig.ReceiverID)
	case <-time.After(time.Second):
		t.Fatal("server never saw the emit")
	}
}

func TestConn_EmitWhileDisconnected(t *testing.T) {
	c := NewConn("ws://127.0.0.1:1/ws", time.Second)
	err := c.Emit(EventTyping, &TypingSignal{ReceiverID: "u2"})
	require.Error(t, err)
}
