package mocks

import (
	"context"

	"github.com/Vinubaba/TOUCH-API/messaging"

	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, message messaging.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// PublishedEvents decodes every message given to Publish.
func (m *MockPublisher) PublishedEvents() []messaging.Event {
	var events []messaging.Event
	for _, call := range m.Calls {
		if call.Method != "Publish" {
			continue
		}
		event, err := messaging.DecodeEvent(call.Arguments.Get(1).(messaging.Message))
		if err == nil {
			events = append(events, event)
		}
	}
	return events
}
