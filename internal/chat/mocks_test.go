package chat_test

import (
	"context"
	"sync/atomic"

	"github.com/Rrens/zara-ai/internal/domain"
	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/stretchr/testify/mock"
)

// MockStreamer mocks llm.ChatStreamer
type MockStreamer struct {
	mock.Mock
}

func (m *MockStreamer) StreamChat(ctx context.Context, req llm.ChatRequest, onToken llm.TokenFunc) (*llm.ChatResult, error) {
	args := m.Called(ctx, req, onToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.ChatResult), args.Error(1)
}

// MockStore mocks chat.SessionStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(msgs []domain.Message) (string, error) {
	args := m.Called(msgs)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Update(id string, msgs []domain.Message) (string, error) {
	args := m.Called(id, msgs)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Load(id string) ([]domain.Message, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockStore) ClearActive() {
	m.Called()
}

// switchConnectivity is a settable chat.Connectivity
type switchConnectivity struct {
	online atomic.Bool
}

func newConnectivity(online bool) *switchConnectivity {
	c := &switchConnectivity{}
	c.online.Store(online)
	return c
}

func (s *switchConnectivity) Online() bool {
	return s.online.Load()
}

// tokens emits each batch through the callback passed to StreamChat
func tokens(batches ...string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		onToken := args.Get(2).(llm.TokenFunc)
		for _, b := range batches {
			onToken(b)
		}
	}
}
