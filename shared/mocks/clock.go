package mocks

import (
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockClock struct {
	mock.Mock
}

func (m *MockClock) Now() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

// Ticking returns a clock that moves forward by step on every call, starting at start.
func Ticking(start time.Time, step time.Duration) *TickingClock {
	return &TickingClock{next: start, step: step}
}

type TickingClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func (c *TickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}
