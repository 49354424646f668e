package clinics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

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

type DoctorTransport struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

type ClinicTransport struct {
	Id          string            `json:"id"`
	Name        string            `json:"name"`
	Address     string            `json:"address"`
	Phone       string            `json:"phone"`
	Email       string            `json:"email"`
	Specialties []string          `json:"specialties"`
	Doctors     []DoctorTransport `json:"doctors"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type ClinicPatchTransport struct {
	Name        *string            `json:"name"`
	Address     *string            `json:"address"`
	Phone       *string            `json:"phone"`
	Email       *string            `json:"email"`
	Specialties *[]string          `json:"specialties"`
	Doctors     *[]DoctorTransport `json:"doctors"`
}

type updateRequest struct {
	Id    string
	Patch ClinicPatchTransport
}

type HandlerFactory struct {
	Service Service `inject:""`
}

func (h *HandlerFactory) Add(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeAddEndpoint(h.Service),
		decodeClinicTransport,
		shared.EncodeResponse201,
		opts...,
	)
}

func (h *HandlerFactory) Get(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeGetEndpoint(h.Service),
		decodeClinicIdRequest,
		shared.EncodeResponse200,
		opts...,
	)
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
		decodeUpdateClinicRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) Delete(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeDeleteEndpoint(h.Service),
		decodeClinicIdRequest,
		shared.EncodeResponse204,
		opts...,
	)
}

func (h *HandlerFactory) Select(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		func(ctx context.Context, request interface{}) (interface{}, error) {
			return nil, h.Service.SelectClinic(ctx, request.(string))
		},
		decodeClinicIdRequest,
		shared.EncodeResponse204,
		opts...,
	)
}

func (h *HandlerFactory) Unselect(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		func(ctx context.Context, request interface{}) (interface{}, error) {
			return nil, h.Service.UnselectClinic(ctx, request.(string))
		},
		decodeClinicIdRequest,
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

func makeAddEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		clinic, err := svc.AddClinic(ctx, request.(ClinicTransport))
		if err != nil {
			return nil, err
		}
		return storeToTransport(clinic), nil
	}
}

func makeGetEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		clinic, err := svc.GetClinic(ctx, request.(string))
		if err != nil {
			return nil, err
		}
		return storeToTransport(clinic), nil
	}
}

func makeListEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		clinics, err := svc.ListClinics(ctx)
		if err != nil {
			return nil, err
		}
		clinicsRet := []ClinicTransport{}
		for _, clinic := range clinics {
			clinicsRet = append(clinicsRet, storeToTransport(clinic))
		}
		return clinicsRet, nil
	}
}

func makeUpdateEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(updateRequest)
		clinic, err := svc.UpdateClinic(ctx, req.Id, req.Patch)
		if err != nil {
			return nil, err
		}
		return storeToTransport(clinic), nil
	}
}

func makeDeleteEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		if err := svc.DeleteClinic(ctx, request.(string)); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func makeSelectedEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		clinic, ok, err := svc.SelectedClinic(ctx)
		if err != nil || !ok {
			return nil, err
		}
		return storeToTransport(clinic), nil
	}
}

func decodeClinicTransport(_ context.Context, r *http.Request) (interface{}, error) {
	var request ClinicTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return request, nil
}

func decodeClinicIdRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	clinicId, ok := vars["clinicId"]
	if !ok {
		return nil, ErrBadRouting
	}
	return clinicId, nil
}

func decodeUpdateClinicRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	clinicId, ok := vars["clinicId"]
	if !ok {
		return nil, ErrBadRouting
	}
	var patch ClinicPatchTransport
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return updateRequest{Id: clinicId, Patch: patch}, nil
}

// encode errors from business-logic
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	switch errors.Cause(err) {
	case ErrNameRequired, ErrAddressRequired, ErrPhoneRequired, ErrEmailRequired, ErrInvalidEmail, ErrDoctorNameRequired, shared.ErrInvalidPayload:
		w.WriteHeader(http.StatusBadRequest)
	case registry.ErrClinicNotFound:
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}

func storeToTransport(clinic registry.Clinic) ClinicTransport {
	doctors := []DoctorTransport{}
	for _, d := range clinic.Doctors {
		doctors = append(doctors, DoctorTransport{Id: d.Id, Name: d.Name, Specialty: d.Specialty})
	}
	return ClinicTransport{
		Id:          clinic.Id,
		Name:        clinic.Name,
		Address:     clinic.Address,
		Phone:       clinic.Phone,
		Email:       clinic.Email,
		Specialties: append([]string{}, clinic.Specialties...),
		Doctors:     doctors,
		UpdatedAt:   clinic.UpdatedAt,
	}
}
