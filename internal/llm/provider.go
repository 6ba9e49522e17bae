package llm

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Rrens/zara-ai/internal/domain"
)

var (
	ErrNotConfigured    = errors.New("provider is not configured")
	ErrProviderNotFound = errors.New("provider not found")
	ErrEmptyResponse    = errors.New("empty response from model")
)

// BehaviorConfig tunes a single generation call
type BehaviorConfig struct {
	// Provider selects a registered provider; empty means the router default
	Provider          string
	Model             string
	SystemInstruction string
	Temperature       *float32
}

// ChatRequest is one conversational turn: prior history plus the new user message
type ChatRequest struct {
	History []domain.Message
	Message domain.Message
	Config  BehaviorConfig
}

// ChatResult is the resolved outcome of a streamed generation
type ChatResult struct {
	Text       string
	Sources    []domain.Source
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// TokenFunc receives the cumulative text generated so far, never a delta
type TokenFunc func(text string)

// ChatStreamer produces a model reply incrementally.
// onToken may be called any number of times before StreamChat returns;
// the returned ChatResult text is authoritative.
type ChatStreamer interface {
	StreamChat(ctx context.Context, req ChatRequest, onToken TokenFunc) (*ChatResult, error)
}

// StructuredRequest asks for JSON conforming to Schema
type StructuredRequest struct {
	Prompt string
	Schema *Schema
	Config BehaviorConfig
}

// StructuredGenerator returns schema-shaped JSON output
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	ChatStreamer
	StructuredGenerator
}
