package domain

import (
	"strings"
	"time"
)

// DefaultSessionTitle is used when a conversation has no user text to derive a title from
const DefaultSessionTitle = "New Chat"

// titleMaxRunes is the number of characters kept before the ellipsis
const titleMaxRunes = 30

// Session represents a persisted conversation
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionSummary is the list view of a session
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
	Preview      string    `json:"preview,omitempty"`
}

// Summary builds the list view of the session
func (s *Session) Summary() SessionSummary {
	sum := SessionSummary{
		ID:           s.ID,
		Title:        s.Title,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: len(s.Messages),
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleModel && !s.Messages[i].IsError {
			sum.Preview = truncateRunes(s.Messages[i].Text, 80)
			break
		}
	}
	return sum
}

// DeriveTitle returns the title for a new session: the first user message's
// text cut to 30 characters plus "..." when longer.
func DeriveTitle(msgs []Message) string {
	for _, m := range msgs {
		if m.Role != RoleUser {
			continue
		}
		text := strings.TrimSpace(m.Text)
		if text == "" {
			return DefaultSessionTitle
		}
		return truncateRunes(text, titleMaxRunes)
	}
	return DefaultSessionTitle
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return s
}
