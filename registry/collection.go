package registry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Mirror persists serialized store state under a key.
type Mirror interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, payload []byte) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type entity[T any] interface {
	*T
	GetId() string
	setId(id string)
	touch(t time.Time)
	LastUpdate() time.Time
}

type deletePolicy int

const (
	clearSelection deletePolicy = iota
	selectFirstRemaining
)

type storedState[T any] struct {
	Items      []T     `json:"items"`
	SelectedId *string `json:"selectedId"`
}

type envelope[T any] struct {
	State   storedState[T] `json:"state"`
	Version int            `json:"version"`
}

// collection is an ordered, observable, persisted list of entities with an optional selection.
// The mutex is held across persist so saves never reorder.
type collection[T any, P entity[T]] struct {
	mu       sync.RWMutex
	ownerId  string
	kind     Kind
	key      string
	notFound error
	onDelete deletePolicy
	mirror   Mirror
	outbox   *Outbox
	ids      IdGenerator
	clock    Clock
	events   *Broadcaster
	// merge may adjust a newer remote copy against the local one; true means the local state won a field.
	merge      func(local T, remote *T) bool
	items      []T
	selectedId string
}

type IdGenerator interface {
	GenerateUuid() string
}

type Clock interface {
	Now() time.Time
}

func (c *collection[T, P]) load(ctx context.Context, seed []T) error {
	payload, found, err := c.mirror.Load(ctx, c.key)
	if err != nil {
		return errors.Wrapf(err, "failed to load %s store", c.kind)
	}
	if !found {
		c.items = append([]T{}, seed...)
		return nil
	}
	var stored envelope[T]
	if err := json.Unmarshal(payload, &stored); err != nil {
		return errors.Wrapf(err, "failed to decode %s store", c.kind)
	}
	c.items = stored.State.Items
	if c.items == nil {
		c.items = []T{}
	}
	if stored.State.SelectedId != nil {
		c.selectedId = *stored.State.SelectedId
	}
	return nil
}

func (c *collection[T, P]) indexOf(id string) int {
	for i := range c.items {
		if P(&c.items[i]).GetId() == id {
			return i
		}
	}
	return -1
}

func (c *collection[T, P]) list() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T{}, c.items...)
}

func (c *collection[T, P]) get(id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], nil
	}
	var zero T
	return zero, c.notFound
}

func (c *collection[T, P]) selected() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero T
	if c.selectedId == "" {
		return zero, false
	}
	if i := c.indexOf(c.selectedId); i >= 0 {
		return c.items[i], true
	}
	return zero, false
}

func (c *collection[T, P]) selection() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selectedId
}

func (c *collection[T, P]) add(ctx context.Context, item T, selectNew bool) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	P(&item).setId(c.ids.GenerateUuid())
	P(&item).touch(c.clock.Now())

	next := append(append([]T{}, c.items...), item)
	selectedId := c.selectedId
	if selectNew {
		selectedId = P(&item).GetId()
	}
	change, err := c.upsertChange(item)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := c.commit(ctx, next, selectedId, change); err != nil {
		var zero T
		return zero, err
	}
	c.publish(OpUpsert, P(&item).GetId(), OriginLocal)
	return item, nil
}

func (c *collection[T, P]) update(ctx context.Context, id string, apply func(*T) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	i := c.indexOf(id)
	if i < 0 {
		return zero, c.notFound
	}
	next := append([]T{}, c.items...)
	if err := apply(&next[i]); err != nil {
		return zero, err
	}
	P(&next[i]).touch(c.clock.Now())

	change, err := c.upsertChange(next[i])
	if err != nil {
		return zero, err
	}
	if err := c.commit(ctx, next, c.selectedId, change); err != nil {
		return zero, err
	}
	c.publish(OpUpsert, id, OriginLocal)
	return next[i], nil
}

func (c *collection[T, P]) remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return c.notFound
	}
	next := make([]T, 0, len(c.items)-1)
	next = append(next, c.items[:i]...)
	next = append(next, c.items[i+1:]...)

	selectedId := c.selectedId
	if selectedId == id {
		selectedId = ""
		if c.onDelete == selectFirstRemaining && len(next) > 0 {
			selectedId = P(&next[0]).GetId()
		}
	}

	var change *Change
	if c.outbox != nil {
		change = &Change{Kind: c.kind, EntityId: id, Op: OpDelete, ChangedAt: c.clock.Now()}
	}
	if err := c.commit(ctx, next, selectedId, change); err != nil {
		return err
	}
	c.publish(OpDelete, id, OriginLocal)
	return nil
}

func (c *collection[T, P]) selectId(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(id) < 0 {
		return c.notFound
	}
	if err := c.commit(ctx, c.items, id, nil); err != nil {
		return err
	}
	c.publish(OpSelect, id, OriginLocal)
	return nil
}

// unselect clears the selection only when id is the selected entity.
func (c *collection[T, P]) unselect(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selectedId != id {
		return nil
	}
	if err := c.commit(ctx, c.items, "", nil); err != nil {
		return err
	}
	c.publish(OpUnselect, id, OriginLocal)
	return nil
}

// applyRemote upserts an entity received from the remote store when it is newer than the local copy.
// It only enqueues a change when merge kept part of the local state, so the remote copy converges.
func (c *collection[T, P]) applyRemote(ctx context.Context, item T) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := P(&item).GetId()
	next := append([]T{}, c.items...)
	var change *Change
	if i := c.indexOf(id); i >= 0 {
		remoteUpdate := P(&item).LastUpdate()
		if !remoteUpdate.After(P(&next[i]).LastUpdate()) {
			return false, nil
		}
		if c.merge != nil && c.merge(next[i], &item) {
			at := c.clock.Now()
			if !at.After(remoteUpdate) {
				at = remoteUpdate.Add(time.Millisecond)
			}
			P(&item).touch(at)
			var err error
			if change, err = c.upsertChange(item); err != nil {
				return false, err
			}
		}
		next[i] = item
	} else {
		next = append(next, item)
	}

	if err := c.commit(ctx, next, c.selectedId, change); err != nil {
		return false, err
	}
	c.publish(OpUpsert, id, OriginRemote)
	return true, nil
}

func (c *collection[T, P]) lastUpdate(id string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return P(&c.items[i]).LastUpdate(), true
	}
	return time.Time{}, false
}

func (c *collection[T, P]) upsertChange(item T) (*Change, error) {
	if c.outbox == nil {
		return nil, nil
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s change", c.kind)
	}
	return &Change{
		Kind:      c.kind,
		EntityId:  P(&item).GetId(),
		Op:        OpUpsert,
		Payload:   payload,
		ChangedAt: P(&item).LastUpdate(),
	}, nil
}

// commit records the change in the outbox, persists the new state and only then swaps it in.
// A change whose state could not be persisted is taken back out of the outbox.
func (c *collection[T, P]) commit(ctx context.Context, next []T, selectedId string, change *Change) error {
	state := envelope[T]{State: storedState[T]{Items: next}}
	if selectedId != "" {
		state.State.SelectedId = &selectedId
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s store", c.kind)
	}

	var recorded Change
	if change != nil {
		if recorded, err = c.outbox.Append(ctx, *change); err != nil {
			return errors.Wrapf(err, "failed to record %s change", c.kind)
		}
	}

	if err := c.mirror.Save(ctx, c.key, payload); err != nil {
		if change != nil {
			if discardErr := c.outbox.Discard(ctx, recorded.Seq); discardErr != nil {
				return errors.Wrapf(err, "failed to persist %s store, change %d left unsaved in outbox: %v", c.kind, recorded.Seq, discardErr)
			}
		}
		return errors.Wrapf(err, "failed to persist %s store", c.kind)
	}

	c.items = next
	c.selectedId = selectedId
	return nil
}

func (c *collection[T, P]) publish(op Op, id, origin string) {
	c.events.Publish(Event{
		OwnerId:  c.ownerId,
		Kind:     c.kind,
		Op:       op,
		EntityId: id,
		Origin:   origin,
		At:       c.clock.Now(),
	})
}
