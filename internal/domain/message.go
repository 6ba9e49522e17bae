package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// Attachment is a binary artifact attached to a user message
type Attachment struct {
	// Data is the raw bytes, base64 encoded for transport and storage
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
	// PreviewURL is a local preview handle supplied by the client
	PreviewURL string `json:"previewUrl,omitempty"`
}

// Source is a grounding citation attached after generation completes
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Message is one turn in a conversation.
//
// Only Text, IsStreaming, IsError and Sources change after creation, and
// always in place by ID.
type Message struct {
	ID          string       `json:"id"`
	Role        MessageRole  `json:"role"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Sources     []Source     `json:"sources,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	IsStreaming bool         `json:"isStreaming,omitempty"`
	IsError     bool         `json:"isError,omitempty"`
	IsOffline   bool         `json:"isOffline,omitempty"`
}

// NewUserMessage creates a user message stamped with now
func NewUserMessage(text string, attachments []Attachment, now time.Time) Message {
	return Message{
		ID:          uuid.New().String(),
		Role:        RoleUser,
		Text:        text,
		Attachments: attachments,
		Timestamp:   now,
	}
}

// NewModelPlaceholder creates an empty streaming model message
func NewModelPlaceholder(now time.Time) Message {
	return Message{
		ID:          uuid.New().String(),
		Role:        RoleModel,
		Timestamp:   now,
		IsStreaming: true,
	}
}

// Clone returns a deep copy of the message
func (m Message) Clone() Message {
	c := m
	if m.Attachments != nil {
		c.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	if m.Sources != nil {
		c.Sources = append([]Source(nil), m.Sources...)
	}
	return c
}

// CloneMessages deep copies a message list
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
