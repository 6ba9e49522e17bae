package service

import (
	"context"
	"encoding/json"

	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/stretchr/testify/mock"
)

// MockGenerator mocks llm.StructuredGenerator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateStructured(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}
