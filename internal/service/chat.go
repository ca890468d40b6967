package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
)

// Chat history paging bounds.
const (
	DefaultChatLimit = 50
	MaxChatLimit     = 200
)

// ChatService is the room chat log: append-only writes, paginated reads,
// soft deletes.
type ChatService struct {
	chatRepo repository.ChatRepository
}

// NewChatService creates a ChatService.
func NewChatService(chatRepo repository.ChatRepository) *ChatService {
	if chatRepo == nil {
		panic("ChatRepository cannot be nil for ChatService")
	}
	return &ChatService{chatRepo: chatRepo}
}

// Send persists a message and returns it for broadcast. The caller fans it
// out to the whole room, sender included, so every client renders the same
// authoritative copy.
func (s *ChatService) Send(ctx context.Context, roomID uint, userID, body, kind, replyTo, metadata string) (*domain.ChatMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrInvalidInput
	}
	if kind == "" {
		kind = domain.ChatKindText
	}

	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    userID,
		Body:      body,
		Kind:      kind,
		ReplyTo:   replyTo,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.chatRepo.Append(ctx, msg); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).Error("Failed to append chat message")
		return nil, ErrInternalServer
	}
	return msg, nil
}

// History returns the newest messages older than before, ascending within
// the page. Zero before means "now"; limit defaults to DefaultChatLimit.
func (s *ChatService) History(ctx context.Context, roomID uint, limit int, before time.Time) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultChatLimit
	}
	if limit > MaxChatLimit {
		limit = MaxChatLimit
	}
	msgs, err := s.chatRepo.History(ctx, roomID, limit, before)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to read chat history")
		return nil, ErrInternalServer
	}
	return msgs, nil
}

// Delete soft-deletes a message authored by userID.
func (s *ChatService) Delete(ctx context.Context, roomID uint, messageID, userID string) error {
	err := s.chatRepo.SoftDelete(ctx, roomID, messageID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "message_id": messageID}).Error("Failed to soft-delete chat message")
		return ErrInternalServer
	}
	return nil
}
