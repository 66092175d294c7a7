package entity

import (
	"sort"
	"time"
)

// Conversation is a two-party chat thread. Participants is kept sorted so a
// pair has one canonical representation regardless of who initiated it.
type Conversation struct {
	ID                string    `json:"id" firestore:"id"`
	Participants      []string  `json:"participants" firestore:"participants"`
	Title             string    `json:"title" firestore:"title"`
	LastMessage       string    `json:"last_message" firestore:"lastMessage"`
	LastMessageAt     time.Time `json:"last_message_at" firestore:"lastMessageAt,serverTimestamp"`
	LastMessageSender string    `json:"last_message_sender,omitempty" firestore:"lastMessageSender"`
	LastMessageReadBy []string  `json:"last_message_read_by" firestore:"lastMessageReadBy"`
	CreatedAt         time.Time `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

// CanonicalPair returns the two ids lexicographically sorted.
func CanonicalPair(a, b string) []string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID. ok is false
// when the conversation is not a well-formed pair containing userID.
func (c *Conversation) OtherParticipant(userID string) (string, bool) {
	if len(c.Participants) != 2 {
		return "", false
	}
	switch userID {
	case c.Participants[0]:
		if c.Participants[1] == userID {
			return "", false
		}
		return c.Participants[1], true
	case c.Participants[1]:
		return c.Participants[0], true
	}
	return "", false
}

func (c *Conversation) ReadBy(userID string) bool {
	for _, r := range c.LastMessageReadBy {
		if r == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.LastMessageReadBy = append([]string(nil), c.LastMessageReadBy...)
	return &cp
}

// SortConversations orders by LastMessageAt descending, ties by ID ascending.
func SortConversations(convs []*Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i], convs[j]
		if !a.LastMessageAt.Equal(b.LastMessageAt) {
			return a.LastMessageAt.After(b.LastMessageAt)
		}
		return a.ID < b.ID
	})
}
