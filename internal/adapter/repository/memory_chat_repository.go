package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"bridgeit/internal/domain/entity"
	"bridgeit/internal/domain/repository"
	"bridgeit/pkg/errors"
	"bridgeit/pkg/stream"
)

// MemoryChatRepository keeps conversations in process memory. It offers the
// same guarantees as the Firestore repository: create-if-absent by id, atomic
// append with projection update, server-assigned monotonic timestamps and
// live snapshots on every change.
type MemoryChatRepository struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	watchers      map[*memoryWatcher]struct{}
	now           func() time.Time
	last          time.Time
}

type memoryWatcher struct {
	notify chan struct{}
}

var _ repository.ConversationRepository = (*MemoryChatRepository)(nil)

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
		watchers:      make(map[*memoryWatcher]struct{}),
		now:           time.Now,
	}
}

// WithClock replaces the server clock, used by tests that pin calendar days.
func (r *MemoryChatRepository) WithClock(now func() time.Time) *MemoryChatRepository {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
	return r
}

// serverTime is strictly increasing across the store. Callers hold r.mu.
func (r *MemoryChatRepository) serverTime() time.Time {
	t := r.now()
	if !t.After(r.last) {
		t = r.last.Add(time.Nanosecond)
	}
	r.last = t
	return t
}

// Callers hold r.mu.
func (r *MemoryChatRepository) broadcast() {
	for w := range r.watchers {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

func (r *MemoryChatRepository) subscribe() (*memoryWatcher, func()) {
	w := &memoryWatcher{notify: make(chan struct{}, 1)}
	r.mu.Lock()
	r.watchers[w] = struct{}{}
	r.mu.Unlock()
	return w, func() {
		r.mu.Lock()
		delete(r.watchers, w)
		r.mu.Unlock()
	}
}

func (r *MemoryChatRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return conv.Clone(), nil
}

func (r *MemoryChatRepository) FindByParticipants(ctx context.Context, participants []string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, conv := range r.conversations {
		if equalStrings(conv.Participants, participants) {
			return conv.Clone(), nil
		}
	}
	return nil, errors.NotFound("Chat for participants", nil)
}

func (r *MemoryChatRepository) CreateIfAbsent(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error) {
	if conv.ID == "" {
		return nil, false, errors.BadRequest("Chat id is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.conversations[conv.ID]; ok {
		return existing.Clone(), false, nil
	}

	stored := conv.Clone()
	now := r.serverTime()
	if stored.LastMessageAt.IsZero() {
		stored.LastMessageAt = now
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.LastMessageReadBy == nil {
		stored.LastMessageReadBy = []string{}
	}
	r.conversations[stored.ID] = stored
	r.broadcast()
	return stored.Clone(), true, nil
}

func (r *MemoryChatRepository) listByParticipant(userID string) []*entity.Conversation {
	var convs []*entity.Conversation
	for _, conv := range r.conversations {
		if conv.HasParticipant(userID) {
			convs = append(convs, conv.Clone())
		}
	}
	entity.SortConversations(convs)
	return convs
}

func (r *MemoryChatRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listByParticipant(userID), nil
}

func (r *MemoryChatRepository) WatchByParticipant(ctx context.Context, userID string) (*stream.Stream[[]*entity.Conversation], error) {
	return watch(ctx, r, func() []*entity.Conversation {
		return r.listByParticipant(userID)
	}), nil
}

func (r *MemoryChatRepository) MarkRead(ctx context.Context, conversationID, userID string, seenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[conversationID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	if conv.ReadBy(userID) || !conv.LastMessageAt.Equal(seenAt) {
		return nil
	}
	conv.LastMessageReadBy = append(conv.LastMessageReadBy, userID)
	r.broadcast()
	return nil
}

func (r *MemoryChatRepository) AppendMessage(ctx context.Context, msg *entity.Message) error {
	if err := ctx.Err(); err != nil {
		return errors.Internal("Failed to send message", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[msg.ConversationID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}

	msg.ID = uuid.New().String()
	msg.Timestamp = r.serverTime()

	stored := *msg
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], &stored)

	conv.LastMessage = msg.Text
	conv.LastMessageAt = msg.Timestamp
	conv.LastMessageSender = msg.SenderID
	conv.LastMessageReadBy = []string{msg.SenderID}

	r.broadcast()
	return nil
}

func (r *MemoryChatRepository) listMessages(conversationID string) []*entity.Message {
	src := r.messages[conversationID]
	msgs := make([]*entity.Message, 0, len(src))
	for _, m := range src {
		cp := *m
		msgs = append(msgs, &cp)
	}
	entity.SortMessages(msgs)
	return msgs
}

func (r *MemoryChatRepository) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listMessages(conversationID), nil
}

func (r *MemoryChatRepository) WatchMessages(ctx context.Context, conversationID string) (*stream.Stream[[]*entity.Message], error) {
	return watch(ctx, r, func() []*entity.Message {
		return r.listMessages(conversationID)
	}), nil
}

// WatcherCount reports live subscriptions, tests use it to check teardown.
func (r *MemoryChatRepository) WatcherCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// watch emits snapshot() now and again after every store mutation.
// snapshot runs with r.mu held.
func watch[T any](ctx context.Context, r *MemoryChatRepository, snapshot func() T) *stream.Stream[T] {
	w, unsubscribe := r.subscribe()
	return stream.Start(ctx, func(ctx context.Context, emit func(T) bool) error {
		defer unsubscribe()
		for {
			r.mu.Lock()
			v := snapshot()
			r.mu.Unlock()

			if !emit(v) {
				return nil
			}
			select {
			case <-w.notify:
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
