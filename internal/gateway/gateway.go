package gateway

import (
	"context"
	"fmt"

	"chatwave/internal/model"

	"github.com/go-resty/resty/v2"
)

// Gateway is the request/response half of the backend contract. The
// persistent event stream lives in realtime.Conn; everything here is plain
// call-and-wait.
type Gateway interface {
	Register(ctx context.Context, handle, email, password string) (string, *model.User, error)
	Login(ctx context.Context, handle, password string) (string, *model.User, error)
	UserByHandle(ctx context.Context, handle string) (*model.User, error)
	FetchHistory(ctx context.Context, peerID string) ([]*model.Message, error)
	Send(ctx context.Context, receiverID, text, image string) (*model.Message, error)
	DeleteForBoth(ctx context.Context, messageID string) error
	Translate(ctx context.Context, messageID, text, languageCode string) (*model.TranslateResult, error)
	ToggleFollow(ctx context.Context, targetID string) (*model.FollowResult, error)
}

type restGateway struct {
	client *resty.Client
}

// NewGateway builds the HTTP gateway against the given base URL.
func NewGateway(baseURL string) Gateway {
	return &restGateway{
		client: resty.New().SetBaseURL(baseURL),
	}
}

type apiError struct {
	Message string `json:"error"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func fail(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	apiErr, ok := resp.Error().(*apiError)
	if ok && apiErr.Message != "" {
		return fmt.Errorf("server: %s", apiErr.Message)
	}
	return fmt.Errorf("server returned %s", resp.Status())
}

func (g *restGateway) Register(ctx context.Context, handle, email, password string) (string, *model.User, error) {
	result := &authResponse{}
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"handle": handle, "email": email, "password": password}).
		SetResult(result).
		SetError(&apiError{}).
		Post("/api/auth/register")
	if err != nil || !resp.IsSuccess() {
		return "", nil, fail(resp, err)
	}

	g.client.SetAuthToken(result.Token)
	return result.Token, result.User, nil
}

func (g *restGateway) Login(ctx context.Context, handle, password string) (string, *model.User, error) {
	result := &authResponse{}
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"handle": handle, "password": password}).
		SetResult(result).
		SetError(&apiError{}).
		Post("/api/auth/login")
	if err != nil || !resp.IsSuccess() {
		return "", nil, fail(resp, err)
	}

	g.client.SetAuthToken(result.Token)
	return result.Token, result.User, nil
}

func (g *restGateway) UserByHandle(ctx context.Context, handle string) (*model.User, error) {
	user := &model.User{}
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(user).
		SetError(&apiError{}).
		Get("/api/users/" + handle)
	if err != nil || !resp.IsSuccess() {
		return nil, fail(resp, err)
	}
	return user, nil
}

func (g *restGateway) FetchHistory(ctx context.Context, peerID string) ([]*model.Message, error) {
	var messages []*model.Message
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&messages).
		SetError(&apiError{}).
		Get("/api/messages/" + peerID)
	if err != nil || !resp.IsSuccess() {
		return nil, fail(resp, err)
	}
	return messages, nil
}

func (g *restGateway) Send(ctx context.Context, receiverID, text, image string) (*model.Message, error) {
	msg := &model.Message{}
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": text, "image": image}).
		SetResult(msg).
		SetError(&apiError{}).
		Post("/api/messages/send/" + receiverID)
	if err != nil || !resp.IsSuccess() {
		return nil, fail(resp, err)
	}
	return msg, nil
}

func (g *restGateway) DeleteForBoth(ctx context.Context, messageID string) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetError(&apiError{}).
		Delete("/api/messages/" + messageID)
	if err != nil || !resp.IsSuccess() {
		return fail(resp, err)
	}
	return nil
}

func (g *restGateway) Translate(ctx context.Context, messageID, text, languageCode string) (*model.TranslateResult, error) {
	result := &model.TranslateResult{}
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"message_id":    messageID,
			"text":          text,
			"language_code": languageCode,
		}).
		SetResult(result).
		SetError(&apiError{}).
		Post("/api/messages/translate")
	if err != nil || !resp.IsSuccess() {
		return nil, fail(resp, err)
	}
	return result, nil
}

func (g *restGateway) ToggleFollow(ctx context.Context, targetID string) (*model.FollowResult, error) {
	result := &model.FollowResult{}
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&apiError{}).
		Post("/api/users/follow/" + targetID)
	if err != nil || !resp.IsSuccess() {
		return nil, fail(resp, err)
	}
	return result, nil
}
