package clinics

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
	ErrNameRequired       = errors.New("name is mandatory")
	ErrAddressRequired    = errors.New("address is mandatory")
	ErrPhoneRequired      = errors.New("phone is mandatory")
	ErrEmailRequired      = errors.New("email is mandatory")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrDoctorNameRequired = errors.New("doctor name is mandatory")
)

type Service interface {
	AddClinic(ctx context.Context, request ClinicTransport) (registry.Clinic, error)
	GetClinic(ctx context.Context, clinicId string) (registry.Clinic, error)
	ListClinics(ctx context.Context) ([]registry.Clinic, error)
	UpdateClinic(ctx context.Context, clinicId string, request ClinicPatchTransport) (registry.Clinic, error)
	DeleteClinic(ctx context.Context, clinicId string) error
	SelectClinic(ctx context.Context, clinicId string) error
	UnselectClinic(ctx context.Context, clinicId string) error
	SelectedClinic(ctx context.Context) (registry.Clinic, bool, error)
}

type ClinicService struct {
	Workspaces interface {
		Open(ctx context.Context, ownerId string) (*registry.Workspace, error)
	} `inject:""`
	StringGenerator interface {
		GenerateUuid() string
	} `inject:""`
	Logger *shared.Logger `inject:""`
}

func (s *ClinicService) AddClinic(ctx context.Context, request ClinicTransport) (registry.Clinic, error) {
	clinic := registry.Clinic{
		Name:        strings.TrimSpace(request.Name),
		Address:     strings.TrimSpace(request.Address),
		Phone:       strings.TrimSpace(request.Phone),
		Email:       strings.TrimSpace(request.Email),
		Specialties: cleanSpecialties(request.Specialties),
	}
	doctors, err := s.doctors(request.Doctors)
	if err != nil {
		return registry.Clinic{}, err
	}
	clinic.Doctors = doctors
	if err := validate(clinic); err != nil {
		return registry.Clinic{}, err
	}

	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Clinic{}, err
	}
	clinic, err = ws.Clinics.Add(ctx, clinic)
	if err != nil {
		return registry.Clinic{}, errors.Wrap(err, "failed to add clinic")
	}
	return clinic, nil
}

func (s *ClinicService) GetClinic(ctx context.Context, clinicId string) (registry.Clinic, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Clinic{}, err
	}
	clinic, err := ws.Clinics.Get(clinicId)
	if err != nil {
		return registry.Clinic{}, errors.Wrap(err, "failed to get clinic")
	}
	return clinic, nil
}

func (s *ClinicService) ListClinics(ctx context.Context) ([]registry.Clinic, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Clinics.List(), nil
}

func (s *ClinicService) UpdateClinic(ctx context.Context, clinicId string, request ClinicPatchTransport) (registry.Clinic, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Clinic{}, err
	}
	current, err := ws.Clinics.Get(clinicId)
	if err != nil {
		return registry.Clinic{}, errors.Wrap(err, "failed to update clinic")
	}

	update := registry.ClinicUpdate{
		Name:    trimmed(request.Name),
		Address: trimmed(request.Address),
		Phone:   trimmed(request.Phone),
		Email:   trimmed(request.Email),
	}
	if request.Specialties != nil {
		specialties := cleanSpecialties(*request.Specialties)
		update.Specialties = &specialties
	}
	if request.Doctors != nil {
		doctors, err := s.doctors(*request.Doctors)
		if err != nil {
			return registry.Clinic{}, err
		}
		update.Doctors = &doctors
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
		return registry.Clinic{}, err
	}

	clinic, err := ws.Clinics.Update(ctx, clinicId, update)
	if err != nil {
		return registry.Clinic{}, errors.Wrap(err, "failed to update clinic")
	}
	return clinic, nil
}

func (s *ClinicService) DeleteClinic(ctx context.Context, clinicId string) error {
	ws, err := s.workspace(ctx)
	if err != nil {
		return err
	}
	if err := ws.Clinics.Delete(ctx, clinicId); err != nil {
		return errors.Wrap(err, "failed to delete clinic")
	}
	return nil
}

func (s *ClinicService) SelectClinic(ctx context.Context, clinicId string) error {
	ws, err := s.workspace(ctx)
	if err != nil {
		return err
	}
	if err := ws.Clinics.Select(ctx, clinicId); err != nil {
		return errors.Wrap(err, "failed to select clinic")
	}
	return nil
}

func (s *ClinicService) UnselectClinic(ctx context.Context, clinicId string) error {
	ws, err := s.workspace(ctx)
	if err != nil {
		return err
	}
	if err := ws.Clinics.Unselect(ctx, clinicId); err != nil {
		return errors.Wrap(err, "failed to unselect clinic")
	}
	return nil
}

func (s *ClinicService) SelectedClinic(ctx context.Context) (registry.Clinic, bool, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Clinic{}, false, err
	}
	clinic, ok := ws.Clinics.Selected()
	return clinic, ok, nil
}

func (s *ClinicService) workspace(ctx context.Context) (*registry.Workspace, error) {
	ws, err := s.Workspaces.Open(ctx, claims.GetUserId(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workspace")
	}
	return ws, nil
}

// doctors keeps the ids sent by the client and generates the missing ones.
func (s *ClinicService) doctors(request []DoctorTransport) ([]registry.Doctor, error) {
	doctors := []registry.Doctor{}
	for _, d := range request {
		doctor := registry.Doctor{
			Id:        strings.TrimSpace(d.Id),
			Name:      strings.TrimSpace(d.Name),
			Specialty: strings.TrimSpace(d.Specialty),
		}
		if doctor.Name == "" {
			return nil, ErrDoctorNameRequired
		}
		if doctor.Id == "" {
			doctor.Id = s.StringGenerator.GenerateUuid()
		}
		doctors = append(doctors, doctor)
	}
	return doctors, nil
}

func validate(clinic registry.Clinic) error {
	switch {
	case clinic.Name == "":
		return ErrNameRequired
	case clinic.Address == "":
		return ErrAddressRequired
	case clinic.Phone == "":
		return ErrPhoneRequired
	case clinic.Email == "":
		return ErrEmailRequired
	}
	if err := checkmail.ValidateFormat(clinic.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func cleanSpecialties(specialties []string) []string {
	ret := []string{}
	for _, s := range specialties {
		if s = strings.TrimSpace(s); s != "" {
			ret = append(ret, s)
		}
	}
	return ret
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
