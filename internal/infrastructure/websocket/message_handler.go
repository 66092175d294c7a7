package websocket

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"bridgeit/internal/domain/entity"
	"bridgeit/pkg/errors"
	"bridgeit/pkg/logger"
	"bridgeit/pkg/stream"
)

// Client frame types
const (
	MessageTypePing                   = "ping"
	MessageTypeSubscribeConversations = "subscribe_conversations"
	MessageTypeSubscribeMessages      = "subscribe_messages"
	MessageTypeSubscribeUnread        = "subscribe_unread"
	MessageTypeUnsubscribe            = "unsubscribe"
	MessageTypeSendMessage            = "send_message"
	MessageTypeMarkRead               = "mark_read"
)

// Server frame types
const (
	MessageTypePong              = "pong"
	MessageTypeConversations     = "conversations"
	MessageTypeMessages          = "messages"
	MessageTypeUnreadCount       = "unread_count"
	MessageTypeMessageSent       = "message_sent"
	MessageTypeSendFailed        = "send_failed"
	MessageTypeSubscriptionError = "subscription_error"
	MessageTypeError             = "error"
)

// ClientFrame is a frame sent by the app.
type ClientFrame struct {
	Type           string `json:"type"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	ChatID         string `json:"chat_id,omitempty"`
	TempID         string `json:"temp_id,omitempty"`
	Text           string `json:"text,omitempty"`
	TZ             string `json:"tz,omitempty"`
}

// ServerFrame is a frame pushed to the app.
type ServerFrame struct {
	Type           string      `json:"type"`
	SubscriptionID string      `json:"subscription_id,omitempty"`
	ChatID         string      `json:"chat_id,omitempty"`
	TempID         string      `json:"temp_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Error          string      `json:"error,omitempty"`
	Timestamp      string      `json:"timestamp"`
}

// HandleClientMessage processes one incoming frame.
func (m *Manager) HandleClientMessage(client *Client, payload []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		logger.Warn("WebSocket: Failed to unmarshal message from client %s: %v", client.ID, err)
		m.sendError(client, "Invalid message format")
		return
	}

	logger.Debug("WebSocket: Received message type '%s' from user %s", frame.Type, client.UserID)

	switch frame.Type {
	case MessageTypePing:
		m.sendToClient(client, ServerFrame{Type: MessageTypePong, Data: map[string]string{"status": "alive"}})

	case MessageTypeSubscribeConversations:
		m.handleSubscribeConversations(client, frame)

	case MessageTypeSubscribeMessages:
		m.handleSubscribeMessages(client, frame)

	case MessageTypeSubscribeUnread:
		m.handleSubscribeUnread(client, frame)

	case MessageTypeUnsubscribe:
		if frame.SubscriptionID == "" || !client.removeSubscription(frame.SubscriptionID) {
			m.sendError(client, "Unknown subscription")
		}

	case MessageTypeSendMessage:
		m.handleSendMessage(client, frame)

	case MessageTypeMarkRead:
		m.handleMarkRead(client, frame)

	default:
		logger.Warn("WebSocket: Unknown message type '%s' from client %s", frame.Type, client.ID)
		m.sendError(client, "Unknown message type")
	}
}

func subscriptionID(frame ClientFrame, fallback string) string {
	if frame.SubscriptionID != "" {
		return frame.SubscriptionID
	}
	return fallback
}

func (m *Manager) handleSubscribeConversations(client *Client, frame ClientFrame) {
	id := subscriptionID(frame, MessageTypeConversations)
	s, err := m.service.WatchConversations(client.ctx, client.UserID)
	if err != nil {
		m.sendSubscriptionError(client, id, "", err)
		return
	}
	pump(m, client, id, MessageTypeConversations, "", s, nil, nil)
}

func (m *Manager) handleSubscribeUnread(client *Client, frame ClientFrame) {
	id := subscriptionID(frame, MessageTypeUnreadCount)
	s, err := m.service.WatchUnreadCount(client.ctx, client.UserID)
	if err != nil {
		m.sendSubscriptionError(client, id, "", err)
		return
	}
	pump(m, client, id, MessageTypeUnreadCount, "", s, func(count int) interface{} {
		return map[string]int{"count": count}
	}, nil)
}

// handleSubscribeMessages opens a conversation. While it is open every
// message from the other participant counts as seen.
func (m *Manager) handleSubscribeMessages(client *Client, frame ClientFrame) {
	id := subscriptionID(frame, MessageTypeMessages+":"+frame.ChatID)
	if frame.ChatID == "" {
		m.sendSubscriptionError(client, id, "", errors.BadRequest("chat_id is required", nil))
		return
	}

	s, err := m.service.WatchFeed(client.ctx, frame.ChatID, client.UserID, m.service.Location(frame.TZ))
	if err != nil {
		m.sendSubscriptionError(client, id, frame.ChatID, err)
		return
	}

	pump(m, client, id, MessageTypeMessages, frame.ChatID, s, nil, func(feed *entity.Feed) {
		if !hasMessageFromOthers(feed, client.UserID) {
			return
		}
		if err := m.service.MarkRead(client.ctx, frame.ChatID, client.UserID); err != nil && client.ctx.Err() == nil {
			logger.Warn("WebSocket: mark read on open failed for chat %s: %v", frame.ChatID, err)
		}
	})
}

func hasMessageFromOthers(feed *entity.Feed, userID string) bool {
	for i := len(feed.Items) - 1; i >= 0; i-- {
		if msg := feed.Items[i].Message; msg != nil {
			return msg.SenderID != userID
		}
	}
	return false
}

func (m *Manager) handleSendMessage(client *Client, frame ClientFrame) {
	msg, err := m.service.SendMessage(client.ctx, frame.ChatID, client.UserID, frame.Text)
	if err != nil {
		logger.Warn("WebSocket: send failed for user %s in chat %s: %v", client.UserID, frame.ChatID, err)
		m.sendToClient(client, ServerFrame{
			Type:   MessageTypeSendFailed,
			ChatID: frame.ChatID,
			TempID: frame.TempID,
			Error:  clientMessage(err),
		})
		return
	}
	if msg == nil {
		m.sendToClient(client, ServerFrame{
			Type:   MessageTypeSendFailed,
			ChatID: frame.ChatID,
			TempID: frame.TempID,
			Error:  "Message text is empty",
		})
		return
	}

	m.sendToClient(client, ServerFrame{
		Type:   MessageTypeMessageSent,
		ChatID: frame.ChatID,
		TempID: frame.TempID,
		Data:   msg,
	})
}

func (m *Manager) handleMarkRead(client *Client, frame ClientFrame) {
	if err := m.service.MarkRead(client.ctx, frame.ChatID, client.UserID); err != nil {
		m.sendError(client, clientMessage(err))
	}
}

// pump forwards every update of s to client until s ends or the
// subscription is closed. render shapes the frame data, nil sends the value
// as is; after runs once the frame is queued.
func pump[T any](m *Manager, client *Client, id, frameType, chatID string, s *stream.Stream[T], render func(T) interface{}, after func(T)) {
	done := make(chan struct{})
	ready := make(chan struct{})
	sub := &subscription{close: func() {
		s.Close()
		<-done
	}}

	go func() {
		defer close(done)
		select {
		case <-ready:
		case <-s.Done():
		}

		for v := range s.Updates() {
			var data interface{} = v
			if render != nil {
				data = render(v)
			}
			m.sendToClient(client, ServerFrame{Type: frameType, SubscriptionID: id, ChatID: chatID, Data: data})
			if after != nil {
				after(v)
			}
		}

		if err := s.Err(); err != nil {
			client.forget(id, sub)
			m.sendSubscriptionError(client, id, chatID, err)
		}
	}()

	client.addSubscription(id, sub)
	close(ready)
}

func (m *Manager) sendSubscriptionError(client *Client, id, chatID string, err error) {
	logger.Warn("WebSocket: subscription %s for user %s failed: %v", id, client.UserID, err)
	m.sendToClient(client, ServerFrame{
		Type:           MessageTypeSubscriptionError,
		SubscriptionID: id,
		ChatID:         chatID,
		Error:          clientMessage(err),
	})
}

func (m *Manager) sendError(client *Client, message string) {
	m.sendToClient(client, ServerFrame{Type: MessageTypeError, Error: message})
}

func (m *Manager) sendToClient(client *Client, frame ServerFrame) {
	frame.Timestamp = time.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(frame)
	if err != nil {
		logger.Error("WebSocket: Failed to marshal %s frame: %v", frame.Type, err)
		return
	}
	client.enqueue(payload)
}

func clientMessage(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "An unexpected error occurred"
}
