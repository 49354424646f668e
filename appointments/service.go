package appointments

import (
	"context"
	"strings"
	"time"

	"github.com/Vinubaba/TOUCH-API/claims"
	"github.com/Vinubaba/TOUCH-API/messaging"
	"github.com/Vinubaba/TOUCH-API/notification"
	"github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/pkg/errors"
)

const (
	timeLayout = "15:04"

	ConsultationNotes = "Urgent online consultation"

	ModeDirect = "direct"
	ModeQueued = "queued"
)

var (
	ErrChildRequired      = errors.New("childId is mandatory")
	ErrDaycareRequired    = errors.New("daycareId is mandatory")
	ErrClinicRequired     = errors.New("clinicId is mandatory")
	ErrDateRequired       = errors.New("date is mandatory")
	ErrTimeRequired       = errors.New("time is mandatory")
	ErrInvalidTime        = errors.New("invalid time, expected HH:MM")
	ErrInvalidMode        = errors.New("mode must be direct or queued")
	ErrQueueNotConfigured = errors.New("notification queue is not configured")
)

type Service interface {
	AddAppointment(ctx context.Context, request AppointmentTransport) (registry.Appointment, error)
	GetAppointment(ctx context.Context, appointmentId string) (registry.Appointment, error)
	ListAppointments(ctx context.Context) ([]registry.Appointment, error)
	UpdateAppointment(ctx context.Context, appointmentId string, request AppointmentPatchTransport) (registry.Appointment, error)
	DeleteAppointment(ctx context.Context, appointmentId string) error
	SelectAppointment(ctx context.Context, appointmentId string) error
	UnselectAppointment(ctx context.Context, appointmentId string) error
	SelectedAppointment(ctx context.Context) (registry.Appointment, bool, error)

	StartAppointment(ctx context.Context, appointmentId string) (registry.Appointment, error)
	CompleteAppointment(ctx context.Context, appointmentId string) (registry.Appointment, error)
	CancelAppointment(ctx context.Context, appointmentId string) (registry.Appointment, error)

	MeetingLink(ctx context.Context, appointmentId string) (registry.Appointment, error)
	RegenerateMeetingLink(ctx context.Context, appointmentId string) (registry.Appointment, error)

	Details(ctx context.Context, appointmentId string) (notification.Participants, error)
	Notify(ctx context.Context, appointmentId string, request NotifyTransport) (NotifyResult, error)
	StartConsultation(ctx context.Context, request ConsultationTransport) (registry.Appointment, error)
}

type NotifyResult struct {
	Queued bool `json:"queued"`
	notification.Result
}

type AppointmentService struct {
	Workspaces interface {
		Open(ctx context.Context, ownerId string) (*registry.Workspace, error)
	} `inject:""`
	Dispatcher interface {
		Dispatch(ctx context.Context, p notification.Participants, meetingLink string, preferMailto bool) (notification.Result, error)
	} `inject:""`
	// Publisher is nil when no topic is configured.
	Publisher interface {
		Publish(ctx context.Context, message messaging.Message) error
	}
	Clock interface {
		Now() time.Time
	} `inject:""`
	Logger *shared.Logger `inject:""`
}

func (s *AppointmentService) AddAppointment(ctx context.Context, request AppointmentTransport) (registry.Appointment, error) {
	appointment := registry.Appointment{
		ChildId:   strings.TrimSpace(request.ChildId),
		DaycareId: strings.TrimSpace(request.DaycareId),
		ClinicId:  strings.TrimSpace(request.ClinicId),
		DoctorId:  strings.TrimSpace(request.DoctorId),
		Date:      strings.TrimSpace(request.Date),
		Time:      strings.TrimSpace(request.Time),
		Notes:     request.Notes,
	}
	if err := validate(&appointment); err != nil {
		return registry.Appointment{}, err
	}

	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Appointment{}, err
	}
	appointment, err = ws.Appointments.Add(ctx, appointment)
	if err != nil {
		return registry.Appointment{}, errors.Wrap(err, "failed to add appointment")
	}
	return appointment, nil
}

func (s *AppointmentService) GetAppointment(ctx context.Context, appointmentId string) (registry.Appointment, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Appointment{}, err
	}
	appointment, err := ws.Appointments.Get(appointmentId)
	if err != nil {
		return registry.Appointment{}, errors.Wrap(err, "failed to get appointment")
	}
	return appointment, nil
}

func (s *AppointmentService) ListAppointments(ctx context.Context) ([]registry.Appointment, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Appointments.List(), nil
}

func (s *AppointmentService) UpdateAppointment(ctx context.Context, appointmentId string, request AppointmentPatchTransport) (registry.Appointment, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Appointment{}, err
	}
	current, err := ws.Appointments.Get(appointmentId)
	if err != nil {
		return registry.Appointment{}, errors.Wrap(err, "failed to update appointment")
	}

	update := registry.AppointmentUpdate{
		ChildId:   trimmed(request.ChildId),
		DaycareId: trimmed(request.DaycareId),
		ClinicId:  trimmed(request.ClinicId),
		DoctorId:  trimmed(request.DoctorId),
		Date:      trimmed(request.Date),
		Time:      trimmed(request.Time),
		Notes:     request.Notes,
	}
	merged := current
	if err := update.ApplyTo(&merged); err != nil {
		return registry.Appointment{}, err
	}
	if err := validate(&merged); err != nil {
		return registry.Appointment{}, err
	}
	// validate normalises the date
	if update.Date != nil {
		update.Date = &merged.Date
	}

	appointment, err := ws.Appointments.Update(ctx, appointmentId, update)
	if err != nil {
		return registry.Appointment{}, errors.Wrap(err, "failed to update appointment")
	}
	return appointment, nil
}

func (s *AppointmentService) DeleteAppointment(ctx context.Context, appointmentId string) error {
	ws, err := s.workspace(ctx)
	if err != nil {
		return err
	}
	if err := ws.Appointments.Delete(ctx, appointmentId); err != nil {
		return errors.Wrap(err, "failed to delete appointment")
	}
	return nil
}

func (s *AppointmentService) SelectAppointment(ctx context.Context, appointmentId string) error {
	ws, err := s.workspace(ctx)
	if err != nil {
		return err
	}
	if err := ws.Appointments.Select(ctx, appointmentId); err != nil {
		return errors.Wrap(err, "failed to select appointment")
	}
	return nil
}

func (s *AppointmentService) UnselectAppointment(ctx context.Context, appointmentId string) error {
	ws, err := s.workspace(ctx)
	if err != nil {
		return err
	}
	if err := ws.Appointments.Unselect(ctx, appointmentId); err != nil {
		return errors.Wrap(err, "failed to unselect appointment")
	}
	return nil
}

func (s *AppointmentService) SelectedAppointment(ctx context.Context) (registry.Appointment, bool, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Appointment{}, false, err
	}
	appointment, ok := ws.Appointments.Selected()
	return appointment, ok, nil
}

func (s *AppointmentService) StartAppointment(ctx context.Context, appointmentId string) (registry.Appointment, error) {
	return s.changeStatus(ctx, appointmentId, "start", func(ws *registry.Workspace) (registry.Appointment, error) {
		return ws.Appointments.Start(ctx, appointmentId)
	})
}

func (s *AppointmentService) CompleteAppointment(ctx context.Context, appointmentId string) (registry.Appointment, error) {
	return s.changeStatus(ctx, appointmentId, "complete", func(ws *registry.Workspace) (registry.Appointment, error) {
		return ws.Appointments.Complete(ctx, appointmentId)
	})
}

func (s *AppointmentService) CancelAppointment(ctx context.Context, appointmentId string) (registry.Appointment, error) {
	return s.changeStatus(ctx, appointmentId, "cancel", func(ws *registry.Workspace) (registry.Appointment, error) {
		return ws.Appointments.Cancel(ctx, appointmentId)
	})
}

func (s *AppointmentService) changeStatus(ctx context.Context, appointmentId, action string, change func(ws *registry.Workspace) (registry.Appointment, error)) (registry.Appointment, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Appointment{}, err
	}
	appointment, err := change(ws)
	if err != nil {
		return registry.Appointment{}, errors.Wrapf(err, "failed to %s appointment", action)
	}

	s.publish(ctx, messaging.Event{
		Type:     messaging.EventAppointmentStatusChanged,
		SenderId: ws.OwnerId,
		AppointmentStatus: &messaging.AppointmentStatus{
			AppointmentId: appointment.Id,
			Status:        string(appointment.Status),
		},
	})
	return appointment, nil
}

func (s *AppointmentService) MeetingLink(ctx context.Context, appointmentId string) (registry.Appointment, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Appointment{}, err
	}
	appointment, err := ws.Appointments.EnsureMeetingLink(ctx, appointmentId)
	if err != nil {
		return registry.Appointment{}, errors.Wrap(err, "failed to get meeting link")
	}
	return appointment, nil
}

func (s *AppointmentService) RegenerateMeetingLink(ctx context.Context, appointmentId string) (registry.Appointment, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return registry.Appointment{}, err
	}
	appointment, err := ws.Appointments.GenerateMeetingLink(ctx, appointmentId)
	if err != nil {
		return registry.Appointment{}, errors.Wrap(err, "failed to generate meeting link")
	}
	return appointment, nil
}

// Details resolves the appointment participants. Dangling references are reported, not rejected.
func (s *AppointmentService) Details(ctx context.Context, appointmentId string) (notification.Participants, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return notification.Participants{}, err
	}
	appointment, err := ws.Appointments.Get(appointmentId)
	if err != nil {
		return notification.Participants{}, errors.Wrap(err, "failed to get appointment")
	}
	return participants(ws, appointment), nil
}

func (s *AppointmentService) Notify(ctx context.Context, appointmentId string, request NotifyTransport) (NotifyResult, error) {
	mode := request.Mode
	if mode == "" {
		mode = ModeDirect
	}
	if mode != ModeDirect && mode != ModeQueued {
		return NotifyResult{}, ErrInvalidMode
	}

	ws, err := s.workspace(ctx)
	if err != nil {
		return NotifyResult{}, err
	}
	appointment, err := ws.Appointments.EnsureMeetingLink(ctx, appointmentId)
	if err != nil {
		return NotifyResult{}, errors.Wrap(err, "failed to notify")
	}
	p := participants(ws, appointment)
	if missing := p.Missing(); len(missing) > 0 {
		return NotifyResult{}, errors.Wrap(notification.ErrMissingParticipants, strings.Join(missing, ", "))
	}

	if mode == ModeQueued {
		if s.Publisher == nil {
			return NotifyResult{}, ErrQueueNotConfigured
		}
		msg, err := messaging.NewEventMessage(messaging.Event{
			Type:     messaging.EventNotificationRequested,
			SenderId: ws.OwnerId,
			NotificationRequest: &messaging.NotificationRequest{
				Participants: p,
				MeetingLink:  appointment.MeetingLink,
			},
		})
		if err != nil {
			return NotifyResult{}, err
		}
		if err := s.Publisher.Publish(ctx, msg); err != nil {
			return NotifyResult{}, errors.Wrap(err, "failed to queue notification")
		}
		return NotifyResult{Queued: true, Result: notification.Result{Attachments: []string{}}}, nil
	}

	result, err := s.Dispatcher.Dispatch(ctx, p, appointment.MeetingLink, request.PreferMailto)
	if err != nil {
		return NotifyResult{}, err
	}
	return NotifyResult{Result: result}, nil
}

// StartConsultation books an appointment for right now and gives it a meeting link.
func (s *AppointmentService) StartConsultation(ctx context.Context, request ConsultationTransport) (registry.Appointment, error) {
	now := s.Clock.Now()
	appointment, err := s.AddAppointment(ctx, AppointmentTransport{
		ChildId:   request.ChildId,
		DaycareId: request.DaycareId,
		ClinicId:  request.ClinicId,
		DoctorId:  request.DoctorId,
		Date:      now.Format(shared.DateLayout),
		Time:      now.Format(timeLayout),
		Notes:     ConsultationNotes,
	})
	if err != nil {
		return registry.Appointment{}, err
	}
	return s.RegenerateMeetingLink(ctx, appointment.Id)
}

func (s *AppointmentService) publish(ctx context.Context, event messaging.Event) {
	if s.Publisher == nil {
		return
	}
	msg, err := messaging.NewEventMessage(event)
	if err == nil {
		err = s.Publisher.Publish(ctx, msg)
	}
	if err != nil {
		s.Logger.Warn(ctx, "failed to publish event", "type", event.Type, "err", err)
	}
}

func (s *AppointmentService) workspace(ctx context.Context) (*registry.Workspace, error) {
	ws, err := s.Workspaces.Open(ctx, claims.GetUserId(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workspace")
	}
	return ws, nil
}

func participants(ws *registry.Workspace, appointment registry.Appointment) notification.Participants {
	p := notification.Participants{Appointment: appointment}
	if child, err := ws.Children.Get(appointment.ChildId); err == nil {
		p.Child = &child
	}
	if daycare, err := ws.Daycares.Get(appointment.DaycareId); err == nil {
		p.Daycare = &daycare
	}
	if clinic, err := ws.Clinics.Get(appointment.ClinicId); err == nil {
		p.Clinic = &clinic
	}
	return p
}

func validate(appointment *registry.Appointment) error {
	switch {
	case appointment.ChildId == "":
		return ErrChildRequired
	case appointment.DaycareId == "":
		return ErrDaycareRequired
	case appointment.ClinicId == "":
		return ErrClinicRequired
	case appointment.Date == "":
		return ErrDateRequired
	case appointment.Time == "":
		return ErrTimeRequired
	}
	date, err := shared.NormalizeDate(appointment.Date)
	if err != nil {
		return err
	}
	appointment.Date = date
	if _, err := time.Parse(timeLayout, appointment.Time); err != nil {
		return ErrInvalidTime
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
