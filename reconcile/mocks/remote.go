package mocks

import (
	"context"

	"github.com/Vinubaba/TOUCH-API/reconcile"
	"github.com/Vinubaba/TOUCH-API/registry"

	"github.com/stretchr/testify/mock"
)

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Get(ctx context.Context, kind registry.Kind, id string) (reconcile.Document, bool, error) {
	args := m.Called(ctx, kind, id)
	return args.Get(0).(reconcile.Document), args.Bool(1), args.Error(2)
}

func (m *MockRemote) Put(ctx context.Context, doc reconcile.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRemote) Delete(ctx context.Context, kind registry.Kind, id string) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

func (m *MockRemote) List(ctx context.Context, kind registry.Kind, ownerId string) ([]reconcile.Document, error) {
	args := m.Called(ctx, kind, ownerId)
	return args.Get(0).([]reconcile.Document), args.Error(1)
}
