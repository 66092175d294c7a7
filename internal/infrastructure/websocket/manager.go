package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bridgeit/internal/domain/entity"
	"bridgeit/pkg/logger"
	"bridgeit/pkg/stream"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBufferSize = 256
)

// ChatService is what connected clients can subscribe to and act on.
type ChatService interface {
	WatchConversations(ctx context.Context, userID string) (*stream.Stream[[]entity.DirectoryEntry], error)
	WatchFeed(ctx context.Context, conversationID, userID string, loc *time.Location) (*stream.Stream[*entity.Feed], error)
	WatchUnreadCount(ctx context.Context, userID string) (*stream.Stream[int], error)
	SendMessage(ctx context.Context, conversationID, userID, text string) (*entity.Message, error)
	MarkRead(ctx context.Context, conversationID, userID string) error
	Location(name string) *time.Location
}

// Client is one websocket connection. A user may hold several.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	subs   map[string]*subscription
	closed bool
}

// subscription is a live stream pumped into a client's frames.
type subscription struct {
	close func()
}

func NewClient(ctx context.Context, userID string, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]*subscription),
	}
}

// addSubscription registers sub under id, replacing and closing any
// previous subscription with the same id. It reports false once the client
// has disconnected, in which case sub has already been closed.
func (c *Client) addSubscription(id string, sub *subscription) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.close()
		return false
	}
	prev := c.subs[id]
	c.subs[id] = sub
	c.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	return true
}

func (c *Client) removeSubscription(id string) bool {
	c.mu.Lock()
	sub, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()

	if ok {
		sub.close()
	}
	return ok
}

// forget drops sub without closing it, used by a subscription that ended on its own.
func (c *Client) forget(id string, sub *subscription) {
	c.mu.Lock()
	if c.subs[id] == sub {
		delete(c.subs, id)
	}
	c.mu.Unlock()
}

// SubscriptionCount reports the live subscriptions of the connection.
func (c *Client) SubscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// shutdown closes every subscription. Nothing is delivered afterwards.
func (c *Client) shutdown() {
	c.mu.Lock()
	c.closed = true
	subs := c.subs
	c.subs = make(map[string]*subscription)
	c.mu.Unlock()

	c.cancel()
	for _, sub := range subs {
		sub.close()
	}
}

// enqueue hands a frame to the write pump without blocking. A client too
// slow to drain its buffer loses the frame.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		logger.Warn("WebSocket: send buffer full for client %s, dropping frame", c.ID)
		return false
	}
}

// Manager tracks connected clients and routes their frames to the ChatService.
type Manager struct {
	service    ChatService
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
	ctx        context.Context
}

func NewManager(service ChatService) *Manager {
	return &Manager{
		service:    service,
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		ctx:        context.Background(),
	}
}

// Context is the lifetime of the manager; client connections derive from it.
func (m *Manager) Context() context.Context {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.ctx
}

// Start runs the registration loop until ctx is done, then disconnects everyone.
func (m *Manager) Start(ctx context.Context) {
	m.mutex.Lock()
	m.ctx = ctx
	m.mutex.Unlock()

	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client.ID] = client
				m.mutex.Unlock()
				logger.Info("Client registered: %s (user %s)", client.ID, client.UserID)

			case client := <-m.Unregister:
				m.remove(client)
				logger.Info("Client unregistered: %s (user %s)", client.ID, client.UserID)

			case <-ctx.Done():
				m.mutex.RLock()
				clients := make([]*Client, 0, len(m.clients))
				for _, c := range m.clients {
					clients = append(clients, c)
				}
				m.mutex.RUnlock()
				for _, c := range clients {
					m.remove(c)
				}
				return
			}
		}
	}()
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	_, ok := m.clients[client.ID]
	delete(m.clients, client.ID)
	m.mutex.Unlock()

	if !ok {
		return
	}
	client.shutdown()
	client.mu.Lock()
	close(client.Send)
	client.mu.Unlock()
}

func (m *Manager) ClientCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// ReadPump reads frames until the connection fails, then unregisters the client.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.Context().Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket: read error for client %s: %v", c.ID, err)
			}
			break
		}

		m.HandleClientMessage(c, message)
	}
}

// WritePump sends queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("WebSocket: write error for client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
