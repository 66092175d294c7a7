package usecase

import (
	"context"
	"time"

	"bridgeit/internal/domain/entity"
	"bridgeit/pkg/logger"
	"bridgeit/pkg/stream"
)

// ChatUseCase is the surface the HTTP and websocket layers talk to.
type ChatUseCase struct {
	resolver  *ProfileResolver
	directory *ChatDirectory
	thread    *ChatThread
	unread    *UnreadTracker
	location  *time.Location
}

func NewChatUseCase(resolver *ProfileResolver, directory *ChatDirectory, thread *ChatThread, unread *UnreadTracker, location *time.Location) *ChatUseCase {
	if location == nil {
		location = time.UTC
	}
	return &ChatUseCase{
		resolver:  resolver,
		directory: directory,
		thread:    thread,
		unread:    unread,
		location:  location,
	}
}

// Location resolves an IANA zone name, falling back to the configured default.
func (uc *ChatUseCase) Location(name string) *time.Location {
	if name == "" {
		return uc.location
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Debug("Location: unknown zone %q, using %s", name, uc.location)
		return uc.location
	}
	return loc
}

func (uc *ChatUseCase) GetOrCreateConversation(ctx context.Context, userID, recipientID string) (string, error) {
	return uc.thread.GetOrCreateConversation(ctx, userID, recipientID)
}

func (uc *ChatUseCase) ListConversations(ctx context.Context, userID string) ([]entity.DirectoryEntry, error) {
	return uc.directory.List(ctx, userID)
}

func (uc *ChatUseCase) GetConversation(ctx context.Context, conversationID, userID string) (*entity.Conversation, error) {
	return uc.thread.Conversation(ctx, conversationID, userID)
}

func (uc *ChatUseCase) GetFeed(ctx context.Context, conversationID, userID string, loc *time.Location) (*entity.Feed, error) {
	return uc.thread.Feed(ctx, conversationID, userID, loc)
}

func (uc *ChatUseCase) SendMessage(ctx context.Context, conversationID, userID, text string) (*entity.Message, error) {
	return uc.thread.SendMessage(ctx, conversationID, userID, text)
}

func (uc *ChatUseCase) UnreadCount(ctx context.Context, userID string) (int, error) {
	return uc.unread.Count(ctx, userID)
}

func (uc *ChatUseCase) MarkRead(ctx context.Context, conversationID, userID string) error {
	return uc.unread.MarkRead(ctx, conversationID, userID)
}

func (uc *ChatUseCase) ResolveIdentity(ctx context.Context, userID string) entity.Identity {
	return uc.resolver.Resolve(ctx, userID)
}

func (uc *ChatUseCase) WatchConversations(ctx context.Context, userID string) (*stream.Stream[[]entity.DirectoryEntry], error) {
	return uc.directory.Watch(ctx, userID)
}

func (uc *ChatUseCase) WatchFeed(ctx context.Context, conversationID, userID string, loc *time.Location) (*stream.Stream[*entity.Feed], error) {
	return uc.thread.WatchFeed(ctx, conversationID, userID, loc)
}

func (uc *ChatUseCase) WatchUnreadCount(ctx context.Context, userID string) (*stream.Stream[int], error) {
	return uc.unread.Watch(ctx, userID)
}
