package entity

import "time"

const NoMessagesPreview = "No messages yet."

// DirectoryEntry is one row of a user's conversation list.
type DirectoryEntry struct {
	Conversation *Conversation `json:"conversation"`
	Other        Identity      `json:"other"`
	Preview      string        `json:"preview"`
	Unread       bool          `json:"unread"`
}

type FeedItemKind string

const (
	FeedItemHeader  FeedItemKind = "header"
	FeedItemMessage FeedItemKind = "message"
)

const UnknownDayKey = "unknown"

// FeedItem is either a day header or a message, in display order.
type FeedItem struct {
	Kind      FeedItemKind `json:"kind"`
	DayKey    string       `json:"day_key"`
	Label     string       `json:"label,omitempty"`
	Date      *time.Time   `json:"date,omitempty"`
	Message   *Message     `json:"message,omitempty"`
	TimeLabel string       `json:"time_label,omitempty"`
}

// Feed is a grouped message list together with the identity of every sender.
type Feed struct {
	ConversationID string              `json:"chat_id"`
	Items          []FeedItem          `json:"items"`
	Senders        map[string]Identity `json:"senders"`
}
