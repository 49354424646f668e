package daycares

import (
	"context"
	"strings"

	"github.com/Vinubaba/TOUCH-API/claims"
	"github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/badoux/checkmail"
	"github.com/pkg/errors"
)

var (
	ErrNameRequired    = errors.New("name is mandatory")
	ErrAddressRequired = errors.New("address is mandatory")
	ErrPhoneRequired   = errors.New("phone is mandatory")
	ErrEmailRequired   = errors.New("email is mandatory")
	ErrInvalidEmail    = errors.New("invalid email")
)

type Service interface {
	AddDaycare(ctx context.Context, request DaycareTransport) (registry.Daycare, error)
	GetDaycare(ctx context.Context, daycareId string) (registry.Daycare, error)
	ListDaycares(ctx context.Context) ([]registry.Daycare, error)
	UpdateDaycare(ctx context.Context, daycareId string, request DaycarePatchTransport) (registry.Daycare, error)
	DeleteDaycare(ctx context.Context, daycareId string) error
	SelectDaycare(ctx context.Context, daycareId string) error
	UnselectDaycare(ctx context.Context, daycareId string) error
	SelectedDaycare(ctx context.Context) (registry.Daycare, bool, error)
}

type DaycareService struct {
	Workspaces interface {
		Open(ctx context.Context, ownerId string) (*registry.Workspace, error)
	} `inject:""`
	Logger *shared.Logger `inject:""`
}

func (s *DaycareService) AddDaycare(ctx context.Context, request DaycareTransport) (registry.Daycare, error) {
	daycare := registry.Daycare{
		Name:          strings.TrimSpace(request.Name),
		Address:       strings.TrimSpace(request.Address),
		Phone:         strings.TrimSpace(request.Phone),
		Email:         strings.TrimSpace(request.Email),
		ContactPerson: strings.TrimSpace(request.ContactPerson),
	}
	if err := validate(daycare); err != nil {
		return registry.Daycare{}, err
	}

	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Daycare{}, err
	}
	daycare, err = ws.Daycares.Add(ctx, daycare)
	if err != nil {
		return registry.Daycare{}, errors.Wrap(err, "failed to add daycare")
	}
	return daycare, nil
}

func (s *DaycareService) GetDaycare(ctx context.Context, daycareId string) (registry.Daycare, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Daycare{}, err
	}
	daycare, err := ws.Daycares.Get(daycareId)
	if err != nil {
		return registry.Daycare{}, errors.Wrap(err, "failed to get daycare")
	}
	return daycare, nil
}

func (s *DaycareService) ListDaycares(ctx context.Context) ([]registry.Daycare, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Daycares.List(), nil
}

func (s *DaycareService) UpdateDaycare(ctx context.Context, daycareId string, request DaycarePatchTransport) (registry.Daycare, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Daycare{}, err
	}
	current, err := ws.Daycares.Get(daycareId)
	if err != nil {
		return registry.Daycare{}, errors.Wrap(err, "failed to update daycare")
	}

	update := registry.DaycareUpdate{
		Name:          trimmed(request.Name),
		Address:       trimmed(request.Address),
		Phone:         trimmed(request.Phone),
		Email:         trimmed(request.Email),
		ContactPerson: trimmed(request.ContactPerson),
	}
	merged := current
	if update.Name != nil {
		merged.Name = *update.Name
	}
	if update.Address != nil {
		merged.Address = *update.Address
	}
	if update.Phone != nil {
		merged.Phone = *update.Phone
	}
	if update.Email != nil {
		merged.Email = *update.Email
	}
	if err := validate(merged); err != nil {
		return registry.Daycare{}, err
	}

	daycare, err := ws.Daycares.Update(ctx, daycareId, update)
	if err != nil {
		return registry.Daycare{}, errors.Wrap(err, "failed to update daycare")
	}
	return daycare, nil
}

func (s *DaycareService) DeleteDaycare(ctx context.Context, daycareId string) error {
	ws, err := s.workspace(ctx)
	if err != nil {
		return err
	}
	if err := ws.Daycares.Delete(ctx, daycareId); err != nil {
		return errors.Wrap(err, "failed to delete daycare")
	}
	return nil
}

func (s *DaycareService) SelectDaycare(ctx context.Context, daycareId string) error {
	ws, err := s.workspace(ctx)
	if err != nil {
		return err
	}
	if err := ws.Daycares.Select(ctx, daycareId); err != nil {
		return errors.Wrap(err, "failed to select daycare")
	}
	return nil
}

func (s *DaycareService) UnselectDaycare(ctx context.Context, daycareId string) error {
	ws, err := s.workspace(ctx)
	if err != nil {
		return err
	}
	if err := ws.Daycares.Unselect(ctx, daycareId); err != nil {
		return errors.Wrap(err, "failed to unselect daycare")
	}
	return nil
}

func (s *DaycareService) SelectedDaycare(ctx context.Context) (registry.Daycare, bool, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Daycare{}, false, err
	}
	daycare, ok := ws.Daycares.Selected()
	return daycare, ok, nil
}

func (s *DaycareService) workspace(ctx context.Context) (*registry.Workspace, error) {
	ws, err := s.Workspaces.Open(ctx, claims.GetUserId(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workspace")
	}
	return ws, nil
}

func validate(daycare registry.Daycare) error {
	switch {
	case daycare.Name == "":
		return ErrNameRequired
	case daycare.Address == "":
		return ErrAddressRequired
	case daycare.Phone == "":
		return ErrPhoneRequired
	case daycare.Email == "":
		return ErrEmailRequired
	}
	if err := checkmail.ValidateFormat(daycare.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
