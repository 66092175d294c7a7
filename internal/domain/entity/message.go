package entity

import (
	"sort"
	"time"
)

// Message is immutable once stored. A zero Timestamp means the server has not
// assigned one yet.
type Message struct {
	ID             string    `json:"id" firestore:"id"`
	ConversationID string    `json:"chat_id" firestore:"chatId"`
	SenderID       string    `json:"sender_id" firestore:"senderId"`
	SenderName     string    `json:"sender_name,omitempty" firestore:"senderName"`
	Text           string    `json:"text" firestore:"text"`
	Timestamp      time.Time `json:"timestamp" firestore:"timestamp,serverTimestamp"`
}

func (m *Message) HasTimestamp() bool {
	return !m.Timestamp.IsZero()
}

// SortMessages orders ascending by server timestamp, ties by ID. Messages
// without a timestamp go last, in their existing relative order.
func SortMessages(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if a.HasTimestamp() != b.HasTimestamp() {
			return a.HasTimestamp()
		}
		if !a.HasTimestamp() {
			return false
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
}
