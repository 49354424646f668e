package registry

import (
	"context"

	"github.com/pkg/errors"
)

var ErrDaycareNotFound = errors.New("daycare not found")

type DaycareStore struct {
	c *collection[Daycare, *Daycare]
}

func (s *DaycareStore) Add(ctx context.Context, daycare Daycare) (Daycare, error) {
	return s.c.add(ctx, daycare, false)
}

func (s *DaycareStore) Update(ctx context.Context, id string, update DaycareUpdate) (Daycare, error) {
	return s.c.update(ctx, id, update.apply)
}

func (s *DaycareStore) Delete(ctx context.Context, id string) error {
	return s.c.remove(ctx, id)
}

func (s *DaycareStore) Get(id string) (Daycare, error) {
	return s.c.get(id)
}

func (s *DaycareStore) List() []Daycare {
	return s.c.list()
}

func (s *DaycareStore) Select(ctx context.Context, id string) error {
	return s.c.selectId(ctx, id)
}

func (s *DaycareStore) Unselect(ctx context.Context, id string) error {
	return s.c.unselect(ctx, id)
}

func (s *DaycareStore) Selected() (Daycare, bool) {
	return s.c.selected()
}
