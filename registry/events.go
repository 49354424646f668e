package registry

import (
	"sync"
	"time"
)

type Kind string

const (
	KindChild       Kind = "child"
	KindDaycare     Kind = "daycare"
	KindClinic      Kind = "clinic"
	KindAppointment Kind = "appointment"
)

var AllKinds = []Kind{KindChild, KindDaycare, KindClinic, KindAppointment}

type Op string

const (
	OpUpsert   Op = "upsert"
	OpDelete   Op = "delete"
	OpSelect   Op = "select"
	OpUnselect Op = "unselect"
)

const (
	OriginLocal  = "local"
	OriginRemote = "remote"
)

// Event describes a committed store mutation.
type Event struct {
	OwnerId  string    `json:"ownerId"`
	Kind     Kind      `json:"kind"`
	Op       Op        `json:"op"`
	EntityId string    `json:"entityId"`
	Origin   string    `json:"origin"`
	At       time.Time `json:"at"`
}

type subscriber struct {
	ownerId string
	events  chan Event
}

// Broadcaster fans events out to per-owner subscribers and global listeners.
// Slow subscribers lose events instead of blocking writers.
type Broadcaster struct {
	mu          sync.RWMutex
	nextId      int
	subscribers map[int]subscriber
	listeners   []func(Event)
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: map[int]subscriber{}}
}

func (b *Broadcaster) Subscribe(ownerId string, buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers == nil {
		b.subscribers = map[int]subscriber{}
	}
	id := b.nextId
	b.nextId++
	events := make(chan Event, buffer)
	b.subscribers[id] = subscriber{ownerId: ownerId, events: events}

	var once sync.Once
	return events, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(events)
		})
	}
}

// Listen registers a callback invoked synchronously for every event of every owner.
func (b *Broadcaster) Listen(listener func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

func (b *Broadcaster) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		listener(event)
	}
	for _, s := range b.subscribers {
		if s.ownerId != event.OwnerId {
			continue
		}
		select {
		case s.events <- event:
		default:
		}
	}
}
