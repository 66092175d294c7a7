package usecase

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"bridgeit/internal/domain/entity"
	"bridgeit/internal/domain/repository"
	"bridgeit/pkg/logger"
	"bridgeit/pkg/stream"
)

const decorateConcurrency = 8

type ChatDirectory struct {
	chatRepo repository.ConversationRepository
	resolver *ProfileResolver
}

func NewChatDirectory(chatRepo repository.ConversationRepository, resolver *ProfileResolver) *ChatDirectory {
	return &ChatDirectory{
		chatRepo: chatRepo,
		resolver: resolver,
	}
}

// List returns userID's conversations, most recent activity first.
func (d *ChatDirectory) List(ctx context.Context, userID string) ([]entity.DirectoryEntry, error) {
	convs, err := d.chatRepo.ListByParticipant(ctx, userID)
	if err != nil {
		logger.Error("ListChats Error: %v", err)
		return nil, err
	}
	return d.decorate(ctx, userID, convs), nil
}

// Watch emits the full directory on every change to userID's conversations.
func (d *ChatDirectory) Watch(ctx context.Context, userID string) (*stream.Stream[[]entity.DirectoryEntry], error) {
	src, err := d.chatRepo.WatchByParticipant(ctx, userID)
	if err != nil {
		logger.Error("WatchChats Error: %v", err)
		return nil, err
	}
	return stream.Map(ctx, src, func(ctx context.Context, convs []*entity.Conversation) []entity.DirectoryEntry {
		return d.decorate(ctx, userID, convs)
	}), nil
}

// Page slices entries for offset based listing.
func Page(entries []entity.DirectoryEntry, limit, offset int) []entity.DirectoryEntry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []entity.DirectoryEntry{}
	}
	end := len(entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return entries[offset:end]
}

func (d *ChatDirectory) decorate(ctx context.Context, userID string, convs []*entity.Conversation) []entity.DirectoryEntry {
	sorted := make([]*entity.Conversation, len(convs))
	copy(sorted, convs)
	entity.SortConversations(sorted)

	entries := make([]entity.DirectoryEntry, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decorateConcurrency)

	for i, conv := range sorted {
		i, conv := i, conv
		g.Go(func() error {
			entries[i] = d.entry(gctx, userID, conv)
			return nil
		})
	}
	_ = g.Wait()
	return entries
}

func (d *ChatDirectory) entry(ctx context.Context, userID string, conv *entity.Conversation) entity.DirectoryEntry {
	entry := entity.DirectoryEntry{
		Conversation: conv,
		Preview:      conv.LastMessage,
		Unread:       IsUnread(conv, userID),
	}
	if entry.Preview == "" {
		entry.Preview = entity.NoMessagesPreview
	}

	otherID, ok := conv.OtherParticipant(userID)
	if !ok {
		logger.Warn("ListChats: chat %s has malformed participants %v", conv.ID, conv.Participants)
		entry.Other = entity.UnknownIdentity("")
		return entry
	}
	entry.Other = d.resolver.Resolve(ctx, otherID)
	if entry.Other.IsUnknown() {
		viewer := d.resolver.Resolve(ctx, userID)
		if name := otherNameFromTitle(conv.Title, viewer); name != "" {
			entry.Other.DisplayName = name
			entry.Other.Initials = entity.Initials(name)
		}
	}
	return entry
}

// otherNameFromTitle picks the half of an "A & B" title that is not the
// viewer's name. It returns "" when the title cannot tell the two apart.
func otherNameFromTitle(title string, viewer entity.Identity) string {
	var candidates []string
	for _, half := range strings.Split(title, "&") {
		half = strings.TrimSpace(half)
		if half == "" {
			continue
		}
		if !viewer.IsUnknown() && strings.EqualFold(half, viewer.DisplayName) {
			continue
		}
		candidates = append(candidates, half)
	}
	if len(candidates) != 1 {
		return ""
	}
	return candidates[0]
}
