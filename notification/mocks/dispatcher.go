package mocks

import (
	"context"

	"github.com/Vinubaba/TOUCH-API/notification"

	"github.com/stretchr/testify/mock"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, p notification.Participants, meetingLink string, preferMailto bool) (notification.Result, error) {
	args := m.Called(ctx, p, meetingLink, preferMailto)
	return args.Get(0).(notification.Result), args.Error(1)
}
