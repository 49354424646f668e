package registry

import (
	"context"

	"github.com/pkg/errors"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

type LinkGenerator interface {
	Generate(appointmentId string) string
}

type AppointmentStore struct {
	c     *collection[Appointment, *Appointment]
	links LinkGenerator
}

// Add ignores any id, status or meeting link on the input: new appointments are scheduled and have no link yet.
func (s *AppointmentStore) Add(ctx context.Context, appointment Appointment) (Appointment, error) {
	appointment.Status = StatusScheduled
	appointment.MeetingLink = ""
	return s.c.add(ctx, appointment, false)
}

func (s *AppointmentStore) Update(ctx context.Context, id string, update AppointmentUpdate) (Appointment, error) {
	return s.c.update(ctx, id, update.apply)
}

func (s *AppointmentStore) Delete(ctx context.Context, id string) error {
	return s.c.remove(ctx, id)
}

func (s *AppointmentStore) Get(id string) (Appointment, error) {
	return s.c.get(id)
}

func (s *AppointmentStore) List() []Appointment {
	return s.c.list()
}

func (s *AppointmentStore) Select(ctx context.Context, id string) error {
	return s.c.selectId(ctx, id)
}

func (s *AppointmentStore) Unselect(ctx context.Context, id string) error {
	return s.c.unselect(ctx, id)
}

func (s *AppointmentStore) Selected() (Appointment, bool) {
	return s.c.selected()
}

func (s *AppointmentStore) Transition(ctx context.Context, id string, next Status) (Appointment, error) {
	return s.c.update(ctx, id, func(a *Appointment) error {
		return transition(a, next)
	})
}

// Start opens the consultation and assigns a meeting link if none was generated yet.
func (s *AppointmentStore) Start(ctx context.Context, id string) (Appointment, error) {
	return s.c.update(ctx, id, func(a *Appointment) error {
		if err := transition(a, StatusInProgress); err != nil {
			return err
		}
		if a.MeetingLink == "" {
			a.MeetingLink = s.links.Generate(a.Id)
		}
		return nil
	})
}

func (s *AppointmentStore) Complete(ctx context.Context, id string) (Appointment, error) {
	return s.Transition(ctx, id, StatusCompleted)
}

func (s *AppointmentStore) Cancel(ctx context.Context, id string) (Appointment, error) {
	return s.Transition(ctx, id, StatusCancelled)
}

// GenerateMeetingLink always issues a fresh link and overwrites the stored one.
func (s *AppointmentStore) GenerateMeetingLink(ctx context.Context, id string) (Appointment, error) {
	return s.c.update(ctx, id, func(a *Appointment) error {
		a.MeetingLink = s.links.Generate(a.Id)
		return nil
	})
}

// EnsureMeetingLink returns the stored link, generating one on first access only.
func (s *AppointmentStore) EnsureMeetingLink(ctx context.Context, id string) (Appointment, error) {
	appointment, err := s.c.get(id)
	if err != nil {
		return Appointment{}, err
	}
	if appointment.MeetingLink != "" {
		return appointment, nil
	}
	return s.c.update(ctx, id, func(a *Appointment) error {
		if a.MeetingLink == "" {
			a.MeetingLink = s.links.Generate(a.Id)
		}
		return nil
	})
}

// keepLifecycle stops a remote copy from moving an appointment backwards, or out of a terminal status.
func keepLifecycle(local Appointment, remote *Appointment) bool {
	if remote.Status == local.Status || local.Status.Reaches(remote.Status) {
		return false
	}
	remote.Status = local.Status
	return true
}

func transition(a *Appointment, next Status) error {
	if !a.Status.CanTransitionTo(next) {
		return errors.Wrapf(ErrInvalidTransition, "%s to %s", a.Status, next)
	}
	a.Status = next
	return nil
}
