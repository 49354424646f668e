package mocks

import (
	"context"

	"github.com/Vinubaba/TOUCH-API/store"

	"github.com/stretchr/testify/mock"
)

// Mock that wraps a real mirror: only Save is mocked so tests can inject failures,
// reads and other writes reach the concrete implementation.
type MockMirror struct {
	mock.Mock
	Mirror store.Mirror
}

func (m *MockMirror) Load(ctx context.Context, key string) ([]byte, bool, error) {
	return m.Mirror.Load(ctx, key)
}

func (m *MockMirror) Save(ctx context.Context, key string, payload []byte) error {
	args := m.Called(ctx, key, payload)
	if err := args.Error(0); err != nil {
		return err
	}
	return m.Mirror.Save(ctx, key, payload)
}

func (m *MockMirror) Keys(ctx context.Context, prefix string) ([]string, error) {
	return m.Mirror.Keys(ctx, prefix)
}
