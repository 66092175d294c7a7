package usecase

import (
	"context"

	"bridgeit/internal/domain/entity"
	"bridgeit/internal/domain/repository"
	"bridgeit/pkg/errors"
	"bridgeit/pkg/logger"
	"bridgeit/pkg/stream"
)

// IsUnread reports whether conv holds a message userID has not yet seen.
func IsUnread(conv *entity.Conversation, userID string) bool {
	if conv == nil || conv.LastMessage == "" {
		return false
	}
	if conv.LastMessageSender == userID {
		return false
	}
	return !conv.ReadBy(userID)
}

// CountUnread counts the conversations in convs that are unread for userID.
func CountUnread(convs []*entity.Conversation, userID string) int {
	n := 0
	for _, conv := range convs {
		if IsUnread(conv, userID) {
			n++
		}
	}
	return n
}

type UnreadTracker struct {
	chatRepo repository.ConversationRepository
}

func NewUnreadTracker(chatRepo repository.ConversationRepository) *UnreadTracker {
	return &UnreadTracker{chatRepo: chatRepo}
}

func (t *UnreadTracker) Count(ctx context.Context, userID string) (int, error) {
	convs, err := t.chatRepo.ListByParticipant(ctx, userID)
	if err != nil {
		logger.Error("UnreadCount Error: %v", err)
		return 0, err
	}
	return CountUnread(convs, userID), nil
}

// Watch emits the unread count whenever it changes.
func (t *UnreadTracker) Watch(ctx context.Context, userID string) (*stream.Stream[int], error) {
	src, err := t.chatRepo.WatchByParticipant(ctx, userID)
	if err != nil {
		logger.Error("WatchUnreadCount Error: %v", err)
		return nil, err
	}
	counts := stream.Map(ctx, src, func(_ context.Context, convs []*entity.Conversation) int {
		return CountUnread(convs, userID)
	})
	return stream.Distinct(ctx, counts), nil
}

// MarkRead records that userID has seen the latest message. Repeating it is harmless.
func (t *UnreadTracker) MarkRead(ctx context.Context, conversationID, userID string) error {
	conv, err := t.chatRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return errors.Forbidden("You are not a participant in this chat", nil)
	}
	if conv.ReadBy(userID) {
		return nil
	}

	if err := t.chatRepo.MarkRead(ctx, conversationID, userID, conv.LastMessageAt); err != nil {
		logger.Error("MarkRead Error: %v", err)
		return err
	}
	return nil
}
