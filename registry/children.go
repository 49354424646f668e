package registry

import (
	"context"

	"github.com/pkg/errors"
)

var ErrChildNotFound = errors.New("child not found")

type ChildStore struct {
	c *collection[Child, *Child]
}

// Add stores the child under a new id and makes it the selected child.
func (s *ChildStore) Add(ctx context.Context, child Child) (Child, error) {
	return s.c.add(ctx, child, true)
}

func (s *ChildStore) Update(ctx context.Context, id string, update ChildUpdate) (Child, error) {
	return s.c.update(ctx, id, update.apply)
}

// Delete moves the selection to the first remaining child when the deleted one was selected.
func (s *ChildStore) Delete(ctx context.Context, id string) error {
	return s.c.remove(ctx, id)
}

func (s *ChildStore) Get(id string) (Child, error) {
	return s.c.get(id)
}

func (s *ChildStore) List() []Child {
	return s.c.list()
}

func (s *ChildStore) Select(ctx context.Context, id string) error {
	return s.c.selectId(ctx, id)
}

func (s *ChildStore) Unselect(ctx context.Context, id string) error {
	return s.c.unselect(ctx, id)
}

func (s *ChildStore) Selected() (Child, bool) {
	return s.c.selected()
}

func (s *ChildStore) SelectedId() string {
	return s.c.selection()
}
