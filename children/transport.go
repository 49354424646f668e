package children

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"
	"github.com/Vinubaba/TOUCH-API/storage"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

var (
	ErrBadRouting = errors.New("inconsistent mapping between route and handler (programmer error)")
)

type ChildTransport struct {
	Id                 string    `json:"id"`
	ParentId           string    `json:"parentId"`
	Name               string    `json:"name"`
	BirthDate          string    `json:"birthDate"` // YYYY-MM-DD
	Age                int       `json:"age"`
	Gender             string    `json:"gender"`
	Allergies          []string  `json:"allergies"`
	MedicalConditions  []string  `json:"medicalConditions"`
	Photo              string    `json:"photo,omitempty"`
	InsuranceCardImage string    `json:"insuranceCardImage,omitempty"`
	RecipientCertImage string    `json:"recipientCertImage,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// ChildPatchTransport leaves absent fields untouched.
type ChildPatchTransport struct {
	Name               *string   `json:"name"`
	BirthDate          *string   `json:"birthDate"`
	Gender             *string   `json:"gender"`
	Allergies          *[]string `json:"allergies"`
	MedicalConditions  *[]string `json:"medicalConditions"`
	Photo              *string   `json:"photo"`
	InsuranceCardImage *string   `json:"insuranceCardImage"`
	RecipientCertImage *string   `json:"recipientCertImage"`
}

type updateRequest struct {
	Id    string
	Patch ChildPatchTransport
}

type HandlerFactory struct {
	Service Service `inject:""`
}

func (h *HandlerFactory) Add(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeAddEndpoint(h.Service),
		decodeChildTransport,
		shared.EncodeResponse201,
		opts...,
	)
}

func (h *HandlerFactory) Get(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeGetEndpoint(h.Service),
		decodeChildIdRequest,
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
		decodeUpdateChildRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) Delete(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeDeleteEndpoint(h.Service),
		decodeChildIdRequest,
		shared.EncodeResponse204,
		opts...,
	)
}

func (h *HandlerFactory) Select(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeSelectEndpoint(h.Service),
		decodeChildIdRequest,
		shared.EncodeResponse204,
		opts...,
	)
}

func (h *HandlerFactory) Unselect(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeUnselectEndpoint(h.Service),
		decodeChildIdRequest,
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
		req := request.(ChildTransport)
		child, err := svc.AddChild(ctx, req)
		if err != nil {
			return nil, err
		}
		return storeToTransport(child), nil
	}
}

func makeGetEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		child, err := svc.GetChild(ctx, request.(string))
		if err != nil {
			return nil, err
		}
		return storeToTransport(child), nil
	}
}

func makeListEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		children, err := svc.ListChildren(ctx)
		if err != nil {
			return nil, err
		}
		childrenRet := []ChildTransport{}
		for _, child := range children {
			childrenRet = append(childrenRet, storeToTransport(child))
		}
		return childrenRet, nil
	}
}

func makeUpdateEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(updateRequest)
		child, err := svc.UpdateChild(ctx, req.Id, req.Patch)
		if err != nil {
			return nil, err
		}
		return storeToTransport(child), nil
	}
}

func makeDeleteEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		if err := svc.DeleteChild(ctx, request.(string)); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func makeSelectEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		return nil, svc.SelectChild(ctx, request.(string))
	}
}

func makeUnselectEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		return nil, svc.UnselectChild(ctx, request.(string))
	}
}

// makeSelectedEndpoint answers null when no child is selected.
func makeSelectedEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		child, ok, err := svc.SelectedChild(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return storeToTransport(child), nil
	}
}

func decodeChildTransport(_ context.Context, r *http.Request) (interface{}, error) {
	var request ChildTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return request, nil
}

func decodeChildIdRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	childId, ok := vars["childId"]
	if !ok {
		return nil, ErrBadRouting
	}
	return childId, nil
}

func decodeUpdateChildRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	childId, ok := vars["childId"]
	if !ok {
		return nil, ErrBadRouting
	}
	var patch ChildPatchTransport
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return updateRequest{Id: childId, Patch: patch}, nil
}

// encode errors from business-logic
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	switch errors.Cause(err) {
	case ErrNameRequired, ErrBirthDateRequired, ErrInvalidGender, shared.ErrInvalidDate, shared.ErrInvalidPayload, storage.ErrUnsupportedFileFormat, ErrForeignImage:
		w.WriteHeader(http.StatusBadRequest)
	case registry.ErrChildNotFound:
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}

func storeToTransport(child registry.Child) ChildTransport {
	return ChildTransport{
		Id:                 child.Id,
		ParentId:           child.ParentId,
		Name:               child.Name,
		BirthDate:          child.BirthDate,
		Age:                child.Age,
		Gender:             child.Gender,
		Allergies:          nonNil(child.Allergies),
		MedicalConditions:  nonNil(child.MedicalConditions),
		Photo:              child.Photo,
		InsuranceCardImage: child.InsuranceCardImage,
		RecipientCertImage: child.RecipientCertImage,
		UpdatedAt:          child.UpdatedAt,
	}
}
