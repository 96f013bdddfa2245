package session

import (
	"context"
	"encoding/json"
	"log"

	"chatwave/internal/common"
	"chatwave/internal/config"
	"chatwave/internal/gateway"
	"chatwave/internal/model"
	"chatwave/internal/presence"
	"chatwave/internal/realtime"
	"chatwave/internal/social"
	"chatwave/internal/typing"
)

// Session is the state container of one authenticated user: the identity,
// the single persistent connection, and the stores that project its event
// stream. Created on successful authentication, destroyed on logout; tests
// can run any number of them side by side.
type Session struct {
	Identity *common.Claims
	Token    string

	Conn      *realtime.Conn
	Chat      *ChatStore
	Presence  *presence.Tracker
	Notifier  *typing.Notifier
	Indicator *typing.Indicator
	Follow    *social.FollowStore
}

// New wires a session for the given identity. Event handlers are registered
// here, once; Connect/Disconnect cycles reuse the same registry so a
// reconnect never double-subscribes.
func New(gw gateway.Gateway, cfg *config.Config, claims *common.Claims, token string, user *model.User) *Session {
	conn := realtime.NewConn(cfg.Client.WebsocketURL, cfg.Client.HandshakeTimeout)

	chat := NewChatStore(gw, claims.UserID)
	tracker := presence.NewTracker()
	indicator := typing.NewIndicator(chat.SelectedPeer, cfg.Client.TypingExpiry)
	notifier := typing.NewNotifier(conn, cfg.Client.TypingIdle)
	follow := social.NewFollowStore(gw, claims.UserID)
	follow.Seed(user)

	s := &Session{
		Identity:  claims,
		Token:     token,
		Conn:      conn,
		Chat:      chat,
		Presence:  tracker,
		Notifier:  notifier,
		Indicator: indicator,
		Follow:    follow,
	}

	chat.Attach(conn)
	tracker.Attach(conn)
	indicator.Attach(conn)
	conn.On(realtime.EventForcedDisconnect, func(json.RawMessage) {
		log.Printf("session %s: server forced disconnect", claims.UserID)
		s.Presence.Clear()
		s.Indicator.Reset()
	})

	return s
}

// Connect brings up the persistent connection. No-op when already live.
func (s *Session) Connect(ctx context.Context) error {
	return s.Conn.Connect(ctx, s.Token)
}

// Close tears the session down on logout: the connection handle is closed
// and nulled, projections are emptied. A later authentication builds a
// fresh session.
func (s *Session) Close() {
	s.Notifier.HandleStop()
	s.Conn.Disconnect()
	s.Presence.Clear()
	s.Indicator.Reset()
	s.Chat.ClearSelection()
}

// SelectPeer switches the open conversation: typing flags reset, then the
// history loads under the stale-fetch guard.
func (s *Session) SelectPeer(ctx context.Context, peerID string) error {
	s.Indicator.Reset()
	return s.Chat.SelectPeer(ctx, peerID)
}
