package repository

import (
	"context"
	"time"

	"bridgeit/internal/domain/entity"
	"bridgeit/pkg/stream"
)

type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	// FindByParticipants returns the conversation whose participant list equals
	// the sorted pair, or a NOT_FOUND error.
	FindByParticipants(ctx context.Context, participants []string) (*entity.Conversation, error)
	// CreateIfAbsent stores conv under conv.ID unless a document with that id
	// already exists, in which case the stored conversation is returned and
	// created is false.
	CreateIfAbsent(ctx context.Context, conv *entity.Conversation) (stored *entity.Conversation, created bool, err error)
	ListByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error)
	WatchByParticipant(ctx context.Context, userID string) (*stream.Stream[[]*entity.Conversation], error)
	// MarkRead adds userID to the readers of the last message, provided the
	// last message is still the one sent at seenAt. A newer message leaves
	// the conversation untouched.
	MarkRead(ctx context.Context, conversationID, userID string, seenAt time.Time) error

	// AppendMessage stores msg and updates the conversation's last message
	// projection in one atomic write. msg.ID and msg.Timestamp are assigned.
	AppendMessage(ctx context.Context, msg *entity.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error)
	WatchMessages(ctx context.Context, conversationID string) (*stream.Stream[[]*entity.Message], error)
}
