package registry

import (
	"context"

	"github.com/pkg/errors"
)

var ErrClinicNotFound = errors.New("clinic not found")

type ClinicStore struct {
	c *collection[Clinic, *Clinic]
}

// Add stores the clinic under a new id. A clinic always carries a doctor list, possibly empty.
func (s *ClinicStore) Add(ctx context.Context, clinic Clinic) (Clinic, error) {
	if clinic.Doctors == nil {
		clinic.Doctors = []Doctor{}
	}
	if clinic.Specialties == nil {
		clinic.Specialties = []string{}
	}
	return s.c.add(ctx, clinic, false)
}

func (s *ClinicStore) Update(ctx context.Context, id string, update ClinicUpdate) (Clinic, error) {
	return s.c.update(ctx, id, update.apply)
}

func (s *ClinicStore) Delete(ctx context.Context, id string) error {
	return s.c.remove(ctx, id)
}

func (s *ClinicStore) Get(id string) (Clinic, error) {
	return s.c.get(id)
}

func (s *ClinicStore) List() []Clinic {
	return s.c.list()
}

func (s *ClinicStore) Select(ctx context.Context, id string) error {
	return s.c.selectId(ctx, id)
}

func (s *ClinicStore) Unselect(ctx context.Context, id string) error {
	return s.c.unselect(ctx, id)
}

func (s *ClinicStore) Selected() (Clinic, bool) {
	return s.c.selected()
}
