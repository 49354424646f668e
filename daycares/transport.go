package daycares

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

type DaycareTransport struct {
	Id            string    `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	ContactPerson string    `json:"contactPerson"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type DaycarePatchTransport struct {
	Name          *string `json:"name"`
	Address       *string `json:"address"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	ContactPerson *string `json:"contactPerson"`
}

type updateRequest struct {
	Id    string
	Patch DaycarePatchTransport
}

type HandlerFactory struct {
	Service Service `inject:""`
}

func (h *HandlerFactory) Add(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeAddEndpoint(h.Service),
		decodeDaycareTransport,
		shared.EncodeResponse201,
		opts...,
	)
}

func (h *HandlerFactory) Get(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeGetEndpoint(h.Service),
		decodeDaycareIdRequest,
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
		decodeUpdateDaycareRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) Delete(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeDeleteEndpoint(h.Service),
		decodeDaycareIdRequest,
		shared.EncodeResponse204,
		opts...,
	)
}

func (h *HandlerFactory) Select(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		func(ctx context.Context, request interface{}) (interface{}, error) {
			return nil, h.Service.SelectDaycare(ctx, request.(string))
		},
		decodeDaycareIdRequest,
		shared.EncodeResponse204,
		opts...,
	)
}

func (h *HandlerFactory) Unselect(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		func(ctx context.Context, request interface{}) (interface{}, error) {
			return nil, h.Service.UnselectDaycare(ctx, request.(string))
		},
		decodeDaycareIdRequest,
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
		daycare, err := svc.AddDaycare(ctx, request.(DaycareTransport))
		if err != nil {
			return nil, err
		}
		return storeToTransport(daycare), nil
	}
}

func makeGetEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		daycare, err := svc.GetDaycare(ctx, request.(string))
		if err != nil {
			return nil, err
		}
		return storeToTransport(daycare), nil
	}
}

func makeListEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		daycares, err := svc.ListDaycares(ctx)
		if err != nil {
			return nil, err
		}
		daycaresRet := []DaycareTransport{}
		for _, daycare := range daycares {
			daycaresRet = append(daycaresRet, storeToTransport(daycare))
		}
		return daycaresRet, nil
	}
}

func makeUpdateEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(updateRequest)
		daycare, err := svc.UpdateDaycare(ctx, req.Id, req.Patch)
		if err != nil {
			return nil, err
		}
		return storeToTransport(daycare), nil
	}
}

func makeDeleteEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		if err := svc.DeleteDaycare(ctx, request.(string)); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func makeSelectedEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		daycare, ok, err := svc.SelectedDaycare(ctx)
		if err != nil || !ok {
			return nil, err
		}
		return storeToTransport(daycare), nil
	}
}

func decodeDaycareTransport(_ context.Context, r *http.Request) (interface{}, error) {
	var request DaycareTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return request, nil
}

func decodeDaycareIdRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	daycareId, ok := vars["daycareId"]
	if !ok {
		return nil, ErrBadRouting
	}
	return daycareId, nil
}

func decodeUpdateDaycareRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	daycareId, ok := vars["daycareId"]
	if !ok {
		return nil, ErrBadRouting
	}
	var patch DaycarePatchTransport
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return updateRequest{Id: daycareId, Patch: patch}, nil
}

// encode errors from business-logic
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	switch errors.Cause(err) {
	case ErrNameRequired, ErrAddressRequired, ErrPhoneRequired, ErrEmailRequired, ErrInvalidEmail, shared.ErrInvalidPayload:
		w.WriteHeader(http.StatusBadRequest)
	case registry.ErrDaycareNotFound:
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}

func storeToTransport(daycare registry.Daycare) DaycareTransport {
	return DaycareTransport{
		Id:            daycare.Id,
		Name:          daycare.Name,
		Address:       daycare.Address,
		Phone:         daycare.Phone,
		Email:         daycare.Email,
		ContactPerson: daycare.ContactPerson,
		UpdatedAt:     daycare.UpdatedAt,
	}
}
