package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"bridgeit/internal/domain/entity"
	"bridgeit/internal/domain/repository"
	"bridgeit/internal/infrastructure/ratelimit"
	"bridgeit/pkg/errors"
	"bridgeit/pkg/logger"
	"bridgeit/pkg/stream"
)

// conversationNamespace seeds the name based ids of conversations.
var conversationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://bridgeit.app/chats"))

// ConversationID is the document id of the conversation between a and b.
// It does not depend on argument order.
func ConversationID(a, b string) string {
	pair := entity.CanonicalPair(a, b)
	return uuid.NewSHA1(conversationNamespace, []byte(pair[0]+"\x00"+pair[1])).String()
}

// RateLimiter gates user actions. ratelimit.RateLimiter satisfies it.
type RateLimiter interface {
	Allow(userID, action string) (bool, time.Duration)
}

type ChatThread struct {
	chatRepo    repository.ConversationRepository
	resolver    *ProfileResolver
	rateLimiter RateLimiter
	now         func() time.Time
}

// NewChatThread builds the thread engine. rateLimiter may be nil.
func NewChatThread(chatRepo repository.ConversationRepository, resolver *ProfileResolver, rateLimiter RateLimiter) *ChatThread {
	return &ChatThread{
		chatRepo:    chatRepo,
		resolver:    resolver,
		rateLimiter: rateLimiter,
		now:         time.Now,
	}
}

func (t *ChatThread) allow(userID, action, message string) error {
	if t.rateLimiter == nil {
		return nil
	}
	allowed, wait := t.rateLimiter.Allow(userID, action)
	if !allowed {
		logger.Warn("%s Rate Limited: User %s must wait %v", action, userID, wait)
		return errors.TooManyRequests(message, wait)
	}
	return nil
}

// GetOrCreateConversation returns the id of the single conversation between
// initiatorID and targetID, creating it on first contact.
func (t *ChatThread) GetOrCreateConversation(ctx context.Context, initiatorID, targetID string) (string, error) {
	initiatorID = strings.TrimSpace(initiatorID)
	targetID = strings.TrimSpace(targetID)
	if initiatorID == "" || targetID == "" {
		return "", errors.BadRequest("Both participants are required", nil)
	}
	if initiatorID == targetID {
		return "", errors.BadRequest("Cannot create chat with yourself", nil)
	}

	pair := entity.CanonicalPair(initiatorID, targetID)
	id := ConversationID(initiatorID, targetID)

	existing, err := t.chatRepo.GetByID(ctx, id)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.IsNotFound(err) {
		logger.Error("GetOrCreateConversation Error: %v", err)
		return "", err
	}

	// Conversations written before ids were derived from the pair.
	legacy, err := t.chatRepo.FindByParticipants(ctx, pair)
	if err == nil {
		return legacy.ID, nil
	}
	if !errors.IsNotFound(err) {
		logger.Error("GetOrCreateConversation Error: %v", err)
		return "", err
	}

	if err := t.allow(initiatorID, ratelimit.ActionCreateConversation, "Rate limit exceeded. Please wait before creating another chat"); err != nil {
		return "", err
	}

	identities := t.resolver.ResolveMany(ctx, []string{initiatorID, targetID})
	conv := &entity.Conversation{
		ID:                id,
		Participants:      pair,
		Title:             identities[initiatorID].DisplayName + " & " + identities[targetID].DisplayName,
		LastMessage:       "",
		LastMessageReadBy: []string{},
	}

	stored, created, err := t.chatRepo.CreateIfAbsent(ctx, conv)
	if err != nil {
		logger.Error("GetOrCreateConversation Error: %v", err)
		return "", err
	}
	if created {
		logger.Info("Chat %s created between %s and %s", stored.ID, pair[0], pair[1])
	}
	return stored.ID, nil
}

// CanSend reports whether text would produce a message.
func CanSend(text string) bool {
	return strings.TrimSpace(text) != ""
}

// SendMessage appends text to the conversation. Blank text is a no-op and
// returns a nil message with no error.
func (t *ChatThread) SendMessage(ctx context.Context, conversationID, senderID, text string) (*entity.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	conv, err := t.chatRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, errors.Forbidden("You are not a participant in this chat", nil)
	}

	if err := t.allow(senderID, ratelimit.ActionSendMessage, "Rate limit exceeded. Please wait before sending another message"); err != nil {
		return nil, err
	}

	msg := &entity.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     t.resolver.Resolve(ctx, senderID).DisplayName,
		Text:           text,
	}
	if err := t.chatRepo.AppendMessage(ctx, msg); err != nil {
		logger.Error("SendMessage Error: %v", err)
		return nil, err
	}
	return msg, nil
}

// Messages returns the conversation's messages in display order.
func (t *ChatThread) Messages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	msgs, err := t.chatRepo.ListMessages(ctx, conversationID)
	if err != nil {
		logger.Error("GetMessages Error: %v", err)
		return nil, err
	}
	return msgs, nil
}

func (t *ChatThread) WatchMessages(ctx context.Context, conversationID string) (*stream.Stream[[]*entity.Message], error) {
	src, err := t.chatRepo.WatchMessages(ctx, conversationID)
	if err != nil {
		logger.Error("WatchMessages Error: %v", err)
		return nil, err
	}
	return src, nil
}

// authorize loads the conversation and checks that viewerID takes part in it.
func (t *ChatThread) authorize(ctx context.Context, conversationID, viewerID string) (*entity.Conversation, error) {
	conv, err := t.chatRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(viewerID) {
		return nil, errors.Forbidden("You are not a participant in this chat", nil)
	}
	return conv, nil
}

// Conversation returns the conversation if viewerID takes part in it.
func (t *ChatThread) Conversation(ctx context.Context, conversationID, viewerID string) (*entity.Conversation, error) {
	return t.authorize(ctx, conversationID, viewerID)
}

// Feed returns the day grouped messages of a conversation with the identity of every sender.
func (t *ChatThread) Feed(ctx context.Context, conversationID, viewerID string, loc *time.Location) (*entity.Feed, error) {
	if _, err := t.authorize(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}
	msgs, err := t.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return t.buildFeed(ctx, conversationID, msgs, loc), nil
}

func (t *ChatThread) WatchFeed(ctx context.Context, conversationID, viewerID string, loc *time.Location) (*stream.Stream[*entity.Feed], error) {
	if _, err := t.authorize(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}
	src, err := t.WatchMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return stream.Map(ctx, src, func(ctx context.Context, msgs []*entity.Message) *entity.Feed {
		return t.buildFeed(ctx, conversationID, msgs, loc)
	}), nil
}

func (t *ChatThread) buildFeed(ctx context.Context, conversationID string, msgs []*entity.Message, loc *time.Location) *entity.Feed {
	var senderIDs []string
	seen := make(map[string]bool)
	for _, m := range msgs {
		if !seen[m.SenderID] {
			seen[m.SenderID] = true
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	return &entity.Feed{
		ConversationID: conversationID,
		Items:          GroupByDay(msgs, t.now(), loc),
		Senders:        t.resolver.ResolveMany(ctx, senderIDs),
	}
}
