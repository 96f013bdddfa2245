package server

import (
	"context"
	"errors"
	"fmt"
	"log"

	"chatwave/internal/common"
	"chatwave/internal/dbmysql"
	"chatwave/internal/model"
	"chatwave/internal/realtime"

	"gorm.io/gorm"
)

// Pusher delivers realtime events to connected users. Satisfied by *Hub.
type Pusher interface {
	SendTo(userID, event string, payload any)
}

// Translator turns message text into another language. The default wired
// implementation is a passthrough; real deployments plug a provider here.
type Translator interface {
	Translate(ctx context.Context, text, languageCode string) (*model.TranslateResult, error)
}

var (
	ErrHandleTaken        = errors.New("handle already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrNotParticipant     = errors.New("not a participant of this conversation")
)

type Service interface {
	Register(ctx context.Context, handle, email, password string) (string, *model.User, error)
	Login(ctx context.Context, handle, password string) (string, *model.User, error)
	UserByHandle(ctx context.Context, handle string) (*model.User, error)
	History(ctx context.Context, userID, peerID string) ([]*model.Message, error)
	Send(ctx context.Context, senderID, receiverID, text, image string) (*model.Message, error)
	DeleteForBoth(ctx context.Context, userID, messageID string) error
	Translate(ctx context.Context, text, languageCode string) (*model.TranslateResult, error)
	ToggleFollow(ctx context.Context, userID, targetID string) (*model.FollowResult, error)
}

type chatService struct {
	users      dbmysql.UserRepository
	messages   dbmysql.MessageRepository
	follows    dbmysql.FollowRepository
	push       Pusher
	translator Translator
}

func NewService(users dbmysql.UserRepository, messages dbmysql.MessageRepository, follows dbmysql.FollowRepository, push Pusher, translator Translator) Service {
	return &chatService{
		users:      users,
		messages:   messages,
		follows:    follows,
		push:       push,
		translator: translator,
	}
}

func (s *chatService) Register(ctx context.Context, handle, email, password string) (string, *model.User, error) {
	if err := common.ValidateHandle(handle); err != nil {
		return "", nil, err
	}
	if err := common.ValidatePassword(password); err != nil {
		return "", nil, err
	}

	exists, err := s.users.CheckUserExists(ctx, handle)
	if err != nil {
		return "", nil, fmt.Errorf("check handle: %w", err)
	}
	if exists {
		return "", nil, ErrHandleTaken
	}

	hash, err := common.HashPassword(password)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	user := &dbmysql.User{
		UserID:       dbmysql.NewID("usr"),
		Handle:       handle,
		Email:        email,
		PasswordHash: hash,
		Status:       "active",
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	token, err := common.GenerateToken(user.UserID, user.Handle)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, s.toModelUser(ctx, user), nil
}

func (s *chatService) Login(ctx context.Context, handle, password string) (string, *model.User, error) {
	user, err := s.users.GetUserByHandle(ctx, handle)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := common.CheckPassword(password, user.PasswordHash); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := common.GenerateToken(user.UserID, user.Handle)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, s.toModelUser(ctx, user), nil
}

func (s *chatService) UserByHandle(ctx context.Context, handle string) (*model.User, error) {
	user, err := s.users.GetUserByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.toModelUser(ctx, user), nil
}

func (s *chatService) History(ctx context.Context, userID, peerID string) ([]*model.Message, error) {
	rows, err := s.messages.History(ctx, userID, peerID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	out := make([]*model.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, toModelMessage(row))
	}
	return out, nil
}

func (s *chatService) Send(ctx context.Context, senderID, receiverID, text, image string) (*model.Message, error) {
	if err := common.ValidateOutgoing(text, image); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	row := &dbmysql.Message{
		MessageID:  dbmysql.NewID("msg"),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		ImageURL:   image,
	}
	if err := s.messages.Save(ctx, row); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	saved, err := s.messages.GetByID(ctx, row.MessageID)
	if err != nil {
		// fall back to what we wrote; only created_at differs
		saved = row
	}

	msg := toModelMessage(saved)
	s.push.SendTo(receiverID, realtime.EventNewMessage, msg)
	return msg, nil
}

func (s *chatService) DeleteForBoth(ctx context.Context, userID, messageID string) error {
	row, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if row.SenderID != userID && row.ReceiverID != userID {
		return ErrNotParticipant
	}

	if err := s.messages.SoftDelete(ctx, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	deletion := realtime.Deletion{MessageID: messageID, DeletedBy: userID}
	s.push.SendTo(row.SenderID, realtime.EventMessageDeletedFromBoth, deletion)
	s.push.SendTo(row.ReceiverID, realtime.EventMessageDeletedFromBoth, deletion)
	return nil
}

func (s *chatService) Translate(ctx context.Context, text, languageCode string) (*model.TranslateResult, error) {
	if text == "" {
		return nil, common.NewValidationError("nothing to translate")
	}
	if languageCode == "" {
		return nil, common.NewValidationError("language code is required")
	}
	return s.translator.Translate(ctx, text, languageCode)
}

func (s *chatService) ToggleFollow(ctx context.Context, userID, targetID string) (*model.FollowResult, error) {
	if targetID == userID {
		return nil, common.NewValidationError("cannot follow yourself")
	}
	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	following, err := s.follows.Exists(ctx, userID, targetID)
	if err != nil {
		return nil, fmt.Errorf("check follow edge: %w", err)
	}

	action := model.ActionFollowed
	if following {
		action = model.ActionUnfollowed
		err = s.follows.Delete(ctx, userID, targetID)
	} else {
		err = s.follows.Create(ctx, &dbmysql.Follow{UserID: userID, TargetUserID: targetID})
	}
	if err != nil {
		return nil, fmt.Errorf("toggle follow: %w", err)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return &model.FollowResult{
		Action: action,
		User:   s.toModelUser(ctx, user),
		Target: s.toModelUser(ctx, target),
	}, nil
}

// toModelUser attaches the follow lists to the API shape. List failures
// degrade to an empty list rather than failing the whole request.
func (s *chatService) toModelUser(ctx context.Context, u *dbmysql.User) *model.User {
	following, err := s.follows.ListFollowing(ctx, u.UserID)
	if err != nil {
		log.Printf("list following for %s: %v", u.UserID, err)
	}
	followers, err := s.follows.ListFollowers(ctx, u.UserID)
	if err != nil {
		log.Printf("list followers for %s: %v", u.UserID, err)
	}
	return &model.User{
		ID:             u.UserID,
		Handle:         u.Handle,
		Email:          u.Email,
		ProfileDetails: u.ProfileDetails,
		Following:      following,
		Followers:      followers,
		CreatedAt:      u.CreatedAt,
	}
}

func toModelMessage(row *dbmysql.Message) *model.Message {
	return &model.Message{
		ID:         row.MessageID,
		SenderID:   row.SenderID,
		ReceiverID: row.ReceiverID,
		Text:       row.Text,
		Image:      row.ImageURL,
		CreatedAt:  row.CreatedAt,
	}
}
