package appointments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Vinubaba/TOUCH-API/notification"
	"github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

var (
	ErrBadRouting = errors.New("inconsistent mapping between route and handler (programmer error)")
)

type AppointmentTransport struct {
	Id          string    `json:"id"`
	ChildId     string    `json:"childId"`
	DaycareId   string    `json:"daycareId"`
	ClinicId    string    `json:"clinicId"`
	DoctorId    string    `json:"doctorId"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	MeetingLink string    `json:"meetingLink"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type AppointmentPatchTransport struct {
	ChildId   *string `json:"childId"`
	DaycareId *string `json:"daycareId"`
	ClinicId  *string `json:"clinicId"`
	DoctorId  *string `json:"doctorId"`
	Date      *string `json:"date"`
	Time      *string `json:"time"`
	Notes     *string `json:"notes"`
}

type MeetingLinkTransport struct {
	AppointmentId string `json:"appointmentId"`
	MeetingLink   string `json:"meetingLink"`
}

type DetailsTransport struct {
	Appointment AppointmentTransport `json:"appointment"`
	Child       *registry.Child      `json:"child"`
	Daycare     *registry.Daycare    `json:"daycare"`
	Clinic      *registry.Clinic     `json:"clinic"`
	Missing     []string             `json:"missing"`
}

type NotifyTransport struct {
	Mode         string `json:"mode"`
	PreferMailto bool   `json:"preferMailto"`
}

type ConsultationTransport struct {
	ChildId   string `json:"childId"`
	DaycareId string `json:"daycareId"`
	ClinicId  string `json:"clinicId"`
	DoctorId  string `json:"doctorId"`
}

type updateRequest struct {
	Id    string
	Patch AppointmentPatchTransport
}

type notifyRequest struct {
	Id     string
	Notify NotifyTransport
}

type HandlerFactory struct {
	Service Service `inject:""`
}

func (h *HandlerFactory) Add(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeAddEndpoint(h.Service),
		decodeAppointmentTransport,
		shared.EncodeResponse201,
		opts...,
	)
}

func (h *HandlerFactory) Get(opts []kithttp.ServerOption) *kithttp.Server {
	return h.byId(h.Service.GetAppointment, shared.EncodeResponse200, opts)
}

func (h *HandlerFactory) List(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeListEndpoint(h.Service),
		shared.IgnorePayload,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) Update(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeUpdateEndpoint(h.Service),
		decodeUpdateAppointmentRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) Delete(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		func(ctx context.Context, request interface{}) (interface{}, error) {
			return nil, h.Service.DeleteAppointment(ctx, request.(string))
		},
		decodeAppointmentIdRequest,
		shared.EncodeResponse204,
		opts...,
	)
}

func (h *HandlerFactory) Select(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		func(ctx context.Context, request interface{}) (interface{}, error) {
			return nil, h.Service.SelectAppointment(ctx, request.(string))
		},
		decodeAppointmentIdRequest,
		shared.EncodeResponse204,
		opts...,
	)
}

func (h *HandlerFactory) Unselect(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		func(ctx context.Context, request interface{}) (interface{}, error) {
			return nil, h.Service.UnselectAppointment(ctx, request.(string))
		},
		decodeAppointmentIdRequest,
		shared.EncodeResponse204,
		opts...,
	)
}

func (h *HandlerFactory) Selected(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeSelectedEndpoint(h.Service),
		shared.IgnorePayload,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) Start(opts []kithttp.ServerOption) *kithttp.Server {
	return h.byId(h.Service.StartAppointment, shared.EncodeResponse200, opts)
}

func (h *HandlerFactory) Complete(opts []kithttp.ServerOption) *kithttp.Server {
	return h.byId(h.Service.CompleteAppointment, shared.EncodeResponse200, opts)
}

func (h *HandlerFactory) Cancel(opts []kithttp.ServerOption) *kithttp.Server {
	return h.byId(h.Service.CancelAppointment, shared.EncodeResponse200, opts)
}

func (h *HandlerFactory) MeetingLink(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeMeetingLinkEndpoint(h.Service.MeetingLink),
		decodeAppointmentIdRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) RegenerateMeetingLink(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeMeetingLinkEndpoint(h.Service.RegenerateMeetingLink),
		decodeAppointmentIdRequest,
		shared.EncodeResponse201,
		opts...,
	)
}

func (h *HandlerFactory) Details(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeDetailsEndpoint(h.Service),
		decodeAppointmentIdRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) Notify(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeNotifyEndpoint(h.Service),
		decodeNotifyRequest,
		encodeNotifyResponse,
		opts...,
	)
}

func (h *HandlerFactory) StartConsultation(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeStartConsultationEndpoint(h.Service),
		decodeConsultationTransport,
		shared.EncodeResponse201,
		opts...,
	)
}

func (h *HandlerFactory) byId(call func(ctx context.Context, appointmentId string) (registry.Appointment, error), encode kithttp.EncodeResponseFunc, opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		func(ctx context.Context, request interface{}) (interface{}, error) {
			appointment, err := call(ctx, request.(string))
			if err != nil {
				return nil, err
			}
			return storeToTransport(appointment), nil
		},
		decodeAppointmentIdRequest,
		encode,
		opts...,
	)
}

func makeAddEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		appointment, err := svc.AddAppointment(ctx, request.(AppointmentTransport))
		if err != nil {
			return nil, err
		}
		return storeToTransport(appointment), nil
	}
}

func makeListEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		appointments, err := svc.ListAppointments(ctx)
		if err != nil {
			return nil, err
		}
		appointmentsRet := []AppointmentTransport{}
		for _, appointment := range appointments {
			appointmentsRet = append(appointmentsRet, storeToTransport(appointment))
		}
		return appointmentsRet, nil
	}
}

func makeUpdateEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(updateRequest)
		appointment, err := svc.UpdateAppointment(ctx, req.Id, req.Patch)
		if err != nil {
			return nil, err
		}
		return storeToTransport(appointment), nil
	}
}

func makeSelectedEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		appointment, ok, err := svc.SelectedAppointment(ctx)
		if err != nil || !ok {
			return nil, err
		}
		return storeToTransport(appointment), nil
	}
}

func makeMeetingLinkEndpoint(call func(ctx context.Context, appointmentId string) (registry.Appointment, error)) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		appointment, err := call(ctx, request.(string))
		if err != nil {
			return nil, err
		}
		return MeetingLinkTransport{AppointmentId: appointment.Id, MeetingLink: appointment.MeetingLink}, nil
	}
}

func makeDetailsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		p, err := svc.Details(ctx, request.(string))
		if err != nil {
			return nil, err
		}
		return DetailsTransport{
			Appointment: storeToTransport(p.Appointment),
			Child:       p.Child,
			Daycare:     p.Daycare,
			Clinic:      p.Clinic,
			Missing:     p.Missing(),
		}, nil
	}
}

func makeNotifyEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(notifyRequest)
		return svc.Notify(ctx, req.Id, req.Notify)
	}
}

func makeStartConsultationEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		appointment, err := svc.StartConsultation(ctx, request.(ConsultationTransport))
		if err != nil {
			return nil, err
		}
		return storeToTransport(appointment), nil
	}
}

func decodeAppointmentTransport(_ context.Context, r *http.Request) (interface{}, error) {
	var request AppointmentTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return request, nil
}

func decodeConsultationTransport(_ context.Context, r *http.Request) (interface{}, error) {
	var request ConsultationTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return request, nil
}

func decodeAppointmentIdRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	appointmentId, ok := vars["appointmentId"]
	if !ok {
		return nil, ErrBadRouting
	}
	return appointmentId, nil
}

func decodeUpdateAppointmentRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	appointmentId, ok := vars["appointmentId"]
	if !ok {
		return nil, ErrBadRouting
	}
	var patch AppointmentPatchTransport
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return updateRequest{Id: appointmentId, Patch: patch}, nil
}

// An empty body means a direct notification.
func decodeNotifyRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	appointmentId, ok := vars["appointmentId"]
	if !ok {
		return nil, ErrBadRouting
	}
	var notify NotifyTransport
	if err := json.NewDecoder(r.Body).Decode(&notify); err != nil && err != io.EOF {
		return nil, shared.InvalidPayload(err)
	}
	return notifyRequest{Id: appointmentId, Notify: notify}, nil
}

func encodeNotifyResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if response.(NotifyResult).Queued {
		return shared.EncodeResponse202(ctx, w, response)
	}
	return shared.EncodeResponse200(ctx, w, response)
}

// encode errors from business-logic
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	switch errors.Cause(err) {
	case ErrChildRequired, ErrDaycareRequired, ErrClinicRequired, ErrDateRequired, ErrTimeRequired, ErrInvalidTime, ErrInvalidMode,
		shared.ErrInvalidDate, shared.ErrInvalidPayload, registry.ErrInvalidTransition:
		w.WriteHeader(http.StatusBadRequest)
	case registry.ErrAppointmentNotFound:
		w.WriteHeader(http.StatusNotFound)
	case notification.ErrMissingParticipants:
		w.WriteHeader(http.StatusConflict)
	case ErrQueueNotConfigured:
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}

func storeToTransport(appointment registry.Appointment) AppointmentTransport {
	return AppointmentTransport{
		Id:          appointment.Id,
		ChildId:     appointment.ChildId,
		DaycareId:   appointment.DaycareId,
		ClinicId:    appointment.ClinicId,
		DoctorId:    appointment.DoctorId,
		Date:        appointment.Date,
		Time:        appointment.Time,
		Status:      string(appointment.Status),
		Notes:       appointment.Notes,
		MeetingLink: appointment.MeetingLink,
		UpdatedAt:   appointment.UpdatedAt,
	}
}
