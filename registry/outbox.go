package registry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Change is a pending local mutation waiting to be pushed to the remote store.
type Change struct {
	Seq       int64           `json:"seq"`
	Kind      Kind            `json:"kind"`
	EntityId  string          `json:"entityId"`
	Op        Op              `json:"op"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	ChangedAt time.Time       `json:"changedAt"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"lastError,omitempty"`
}

type outboxState struct {
	Changes []Change `json:"changes"`
	NextSeq int64    `json:"nextSeq"`
}

// Outbox is the write-ahead log of changes not yet acknowledged by the remote store.
type Outbox struct {
	mu      sync.Mutex
	key     string
	mirror  Mirror
	changes []Change
	nextSeq int64
}

func newOutbox(mirror Mirror, key string) *Outbox {
	return &Outbox{mirror: mirror, key: key, nextSeq: 1}
}

func (o *Outbox) load(ctx context.Context) error {
	payload, found, err := o.mirror.Load(ctx, o.key)
	if err != nil {
		return errors.Wrap(err, "failed to load outbox")
	}
	if !found {
		return nil
	}
	var state outboxState
	if err := json.Unmarshal(payload, &state); err != nil {
		return errors.Wrap(err, "failed to decode outbox")
	}
	o.changes = state.Changes
	if state.NextSeq > o.nextSeq {
		o.nextSeq = state.NextSeq
	}
	return nil
}

func (o *Outbox) persist(ctx context.Context, changes []Change, nextSeq int64) error {
	payload, err := json.Marshal(outboxState{Changes: changes, NextSeq: nextSeq})
	if err != nil {
		return errors.Wrap(err, "failed to encode outbox")
	}
	if err := o.mirror.Save(ctx, o.key, payload); err != nil {
		return errors.Wrap(err, "failed to persist outbox")
	}
	o.changes = changes
	o.nextSeq = nextSeq
	return nil
}

func (o *Outbox) Append(ctx context.Context, change Change) (Change, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	change.Seq = o.nextSeq
	next := append(append([]Change{}, o.changes...), change)
	if err := o.persist(ctx, next, o.nextSeq+1); err != nil {
		return Change{}, err
	}
	return change, nil
}

// Pending returns the queued changes in append order.
func (o *Outbox) Pending() []Change {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Change{}, o.changes...)
}

func (o *Outbox) HasPending(kind Kind, entityId string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, c := range o.changes {
		if c.Kind == kind && c.EntityId == entityId {
			return true
		}
	}
	return false
}

func (o *Outbox) Ack(ctx context.Context, seq int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.persist(ctx, o.without(seq), o.nextSeq)
}

// Discard takes back a change whose local mutation was rolled back.
// The change is dropped from memory even when the outbox cannot be saved, so this process never pushes it.
func (o *Outbox) Discard(ctx context.Context, seq int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	next := o.without(seq)
	if err := o.persist(ctx, next, o.nextSeq); err != nil {
		o.changes = next
		return err
	}
	return nil
}

func (o *Outbox) without(seq int64) []Change {
	next := make([]Change, 0, len(o.changes))
	for _, c := range o.changes {
		if c.Seq != seq {
			next = append(next, c)
		}
	}
	return next
}

func (o *Outbox) Fail(ctx context.Context, seq int64, cause error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	next := append([]Change{}, o.changes...)
	for i := range next {
		if next[i].Seq == seq {
			next[i].Attempts++
			next[i].LastError = cause.Error()
		}
	}
	return o.persist(ctx, next, o.nextSeq)
}
