package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memrepo "bridgeit/internal/adapter/repository"
	"bridgeit/internal/domain/entity"
	"bridgeit/internal/infrastructure/cache"
	"bridgeit/internal/usecase"
)

type testEnv struct {
	chats   *memrepo.MemoryChatRepository
	service *usecase.ChatUseCase
	manager *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	chats := memrepo.NewMemoryChatRepository()
	profiles := memrepo.NewMemoryProfileRepository()
	profiles.PutJobSeeker(&entity.JobSeekerProfile{UserID: "seeker-1", Name: "Jane Doe"})
	profiles.PutEmployer(&entity.EmployerProfile{UserID: "employer-1", CompanyName: "Acme Corp"})

	resolver := usecase.NewProfileResolver(profiles, cache.NewMemoryIdentityCache(), nil)
	service := usecase.NewChatUseCase(
		resolver,
		usecase.NewChatDirectory(chats, resolver),
		usecase.NewChatThread(chats, resolver, nil),
		usecase.NewUnreadTracker(chats),
		time.UTC,
	)
	return &testEnv{chats: chats, service: service, manager: NewManager(service)}
}

func send(t *testing.T, m *Manager, c *Client, frame ClientFrame) {
	t.Helper()
	payload, err := json.Marshal(frame)
	require.NoError(t, err)
	m.HandleClientMessage(c, payload)
}

func readFrame(t *testing.T, c *Client) ServerFrame {
	t.Helper()
	select {
	case payload := <-c.Send:
		var frame ServerFrame
		require.NoError(t, json.Unmarshal(payload, &frame))
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return ServerFrame{}
}

// readUntil skips frames until one of the wanted type satisfies match.
func readUntil(t *testing.T, c *Client, frameType string, match func(ServerFrame) bool) ServerFrame {
	t.Helper()
	for i := 0; i < 20; i++ {
		frame := readFrame(t, c)
		if frame.Type == frameType && (match == nil || match(frame)) {
			return frame
		}
	}
	t.Fatalf("no %s frame received", frameType)
	return ServerFrame{}
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	c := NewClient(context.Background(), "seeker-1", nil)

	send(t, env.manager, c, ClientFrame{Type: MessageTypePing})
	assert.Equal(t, MessageTypePong, readFrame(t, c).Type)

	env.manager.HandleClientMessage(c, []byte("{not json"))
	frame := readFrame(t, c)
	assert.Equal(t, MessageTypeError, frame.Type)
	assert.Equal(t, "Invalid message format", frame.Error)
}

func TestSendMessageFrames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id, err := env.service.GetOrCreateConversation(ctx, "seeker-1", "employer-1")
	require.NoError(t, err)
	c := NewClient(ctx, "seeker-1", nil)

	send(t, env.manager, c, ClientFrame{Type: MessageTypeSendMessage, ChatID: id, TempID: "tmp-1", Text: "Hello"})
	frame := readFrame(t, c)
	assert.Equal(t, MessageTypeMessageSent, frame.Type)
	assert.Equal(t, "tmp-1", frame.TempID)
	data, ok := frame.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Hello", data["text"])

	send(t, env.manager, c, ClientFrame{Type: MessageTypeSendMessage, ChatID: id, TempID: "tmp-2", Text: "   "})
	frame = readFrame(t, c)
	assert.Equal(t, MessageTypeSendFailed, frame.Type)
	assert.Equal(t, "tmp-2", frame.TempID)

	intruder := NewClient(ctx, "intruder", nil)
	send(t, env.manager, intruder, ClientFrame{Type: MessageTypeSendMessage, ChatID: id, TempID: "tmp-3", Text: "hi"})
	frame = readFrame(t, intruder)
	assert.Equal(t, MessageTypeSendFailed, frame.Type)
	assert.Equal(t, "You are not a participant in this chat", frame.Error)
}

func TestUnreadSubscriptionAndOpeningFeed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id, err := env.service.GetOrCreateConversation(ctx, "seeker-1", "employer-1")
	require.NoError(t, err)

	employer := NewClient(ctx, "employer-1", nil)
	send(t, env.manager, employer, ClientFrame{Type: MessageTypeSubscribeUnread})
	frame := readUntil(t, employer, MessageTypeUnreadCount, nil)
	assert.Equal(t, float64(0), frame.Data.(map[string]interface{})["count"])

	_, err = env.service.SendMessage(ctx, id, "seeker-1", "Hello")
	require.NoError(t, err)
	readUntil(t, employer, MessageTypeUnreadCount, func(f ServerFrame) bool {
		return f.Data.(map[string]interface{})["count"] == float64(1)
	})

	send(t, env.manager, employer, ClientFrame{Type: MessageTypeSubscribeMessages, ChatID: id, SubscriptionID: "thread"})
	readUntil(t, employer, MessageTypeUnreadCount, func(f ServerFrame) bool {
		return f.Data.(map[string]interface{})["count"] == float64(0)
	})

	conv, err := env.chats.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, conv.ReadBy("employer-1"))
	assert.Equal(t, 2, employer.SubscriptionCount())

	send(t, env.manager, employer, ClientFrame{Type: MessageTypeUnsubscribe, SubscriptionID: "thread"})
	assert.Equal(t, 1, employer.SubscriptionCount())
}

func TestSubscribeMessagesForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id, err := env.service.GetOrCreateConversation(ctx, "seeker-1", "employer-1")
	require.NoError(t, err)

	c := NewClient(ctx, "intruder", nil)
	send(t, env.manager, c, ClientFrame{Type: MessageTypeSubscribeMessages, ChatID: id})
	frame := readFrame(t, c)
	assert.Equal(t, MessageTypeSubscriptionError, frame.Type)
	assert.Equal(t, id, frame.ChatID)
	assert.Equal(t, 0, c.SubscriptionCount())
}

func TestResubscribeReplacesSubscription(t *testing.T) {
	env := newTestEnv(t)
	c := NewClient(context.Background(), "seeker-1", nil)

	send(t, env.manager, c, ClientFrame{Type: MessageTypeSubscribeConversations})
	readUntil(t, c, MessageTypeConversations, nil)
	send(t, env.manager, c, ClientFrame{Type: MessageTypeSubscribeConversations})
	readUntil(t, c, MessageTypeConversations, nil)

	assert.Equal(t, 1, c.SubscriptionCount())
	assert.Equal(t, 1, env.chats.WatcherCount())
}

func TestUnregisterClosesEverySubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.manager.Start(ctx)

	c := NewClient(ctx, "seeker-1", nil)
	env.manager.Register <- c
	send(t, env.manager, c, ClientFrame{Type: MessageTypeSubscribeConversations})
	send(t, env.manager, c, ClientFrame{Type: MessageTypeSubscribeUnread})
	readUntil(t, c, MessageTypeConversations, nil)
	require.Equal(t, 2, env.chats.WatcherCount())

	env.manager.Unregister <- c
	assert.Eventually(t, func() bool {
		return env.manager.ClientCount() == 0 && env.chats.WatcherCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, c.SubscriptionCount())

	send(t, env.manager, c, ClientFrame{Type: MessageTypeSubscribeUnread})
	assert.Equal(t, 0, c.SubscriptionCount())
	assert.Equal(t, 0, env.chats.WatcherCount())
}
