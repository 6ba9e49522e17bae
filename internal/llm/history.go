package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/Rrens/zara-ai/internal/domain"
)

// ErrTimeout marks a generation abandoned after the configured deadline
var ErrTimeout = errors.New("generation timed out")

const (
	msgTimeout       = "The response took too long. Please try again."
	msgQuota         = "I've reached my usage limit for the moment. Please wait a little and try again."
	msgNotConfigured = "The AI service isn't set up yet. Add an API key and try again."
	msgGeneric       = "Sorry, something went wrong while generating a response. Please try again."
)

// ConversationHistory returns the messages worth sending back to a model:
// failed replies, unfinished placeholders and empty turns are dropped.
func ConversationHistory(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsError || m.IsStreaming {
			continue
		}
		if strings.TrimSpace(m.Text) == "" && len(m.Attachments) == 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}

// UserMessage maps a generation error to text suitable for the chat view
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrProviderNotFound):
		return msgNotConfigured
	case isQuotaError(err):
		return msgQuota
	default:
		return msgGeneric
	}
}

func isQuotaError(err error) bool {
	s := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "resource_exhausted", "quota", "rate limit"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
