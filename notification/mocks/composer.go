package mocks

import (
	"context"

	"github.com/Vinubaba/TOUCH-API/notification"

	"github.com/stretchr/testify/mock"
)

type MockComposer struct {
	mock.Mock
}

func (m *MockComposer) Available() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockComposer) Send(ctx context.Context, message notification.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// SentMessage returns the message given to the last Send call.
func (m *MockComposer) SentMessage() notification.Message {
	var message notification.Message
	for _, call := range m.Calls {
		if call.Method == "Send" {
			message = call.Arguments.Get(1).(notification.Message)
		}
	}
	return message
}
