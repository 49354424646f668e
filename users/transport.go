package users

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Vinubaba/TOUCH-API/firebase"
	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/pkg/errors"
)

type UserTransport struct {
	Id             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Workplace      string `json:"workplace,omitempty"`
	WorkplacePhone string `json:"workplacePhone,omitempty"`
	BirthDate      string `json:"birthDate,omitempty"`
}

type RegisterTransport struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type LoginTransport struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionTransport struct {
	IdToken      string        `json:"idToken"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresIn    string        `json:"expiresIn"`
	User         UserTransport `json:"user"`
}

type ProfileTransport struct {
	Name           *string `json:"name"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	Workplace      *string `json:"workplace"`
	WorkplacePhone *string `json:"workplacePhone"`
	BirthDate      *string `json:"birthDate"`
}

type HandlerFactory struct {
	Service Service `inject:""`
}

func (h *HandlerFactory) Register(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeRegisterEndpoint(h.Service),
		decodeRegisterRequest,
		shared.EncodeResponse201,
		opts...,
	)
}

func (h *HandlerFactory) Login(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeLoginEndpoint(h.Service),
		decodeLoginRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) Logout(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeLogoutEndpoint(h.Service),
		shared.IgnorePayload,
		shared.EncodeResponse204,
		opts...,
	)
}

func (h *HandlerFactory) Me(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeMeEndpoint(h.Service),
		shared.IgnorePayload,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) UpdateMe(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeUpdateMeEndpoint(h.Service),
		decodeProfileRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func makeRegisterEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(RegisterTransport)
		parent, err := svc.Register(ctx, req)
		if err != nil {
			return nil, err
		}
		return parentToTransport(parent), nil
	}
}

func makeLoginEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(LoginTransport)
		session, err := svc.Login(ctx, req)
		if err != nil {
			return nil, err
		}
		return SessionTransport{
			IdToken:      session.IdToken,
			RefreshToken: session.RefreshToken,
			ExpiresIn:    session.ExpiresIn,
			User:         parentToTransport(session.User),
		}, nil
	}
}

func makeLogoutEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		if err := svc.Logout(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func makeMeEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		parent, err := svc.Me(ctx)
		if err != nil {
			return nil, err
		}
		return parentToTransport(parent), nil
	}
}

func makeUpdateMeEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(ProfileTransport)
		parent, err := svc.UpdateProfile(ctx, ProfileUpdate{
			Name:           req.Name,
			Phone:          req.Phone,
			Address:        req.Address,
			Workplace:      req.Workplace,
			WorkplacePhone: req.WorkplacePhone,
			BirthDate:      req.BirthDate,
		})
		if err != nil {
			return nil, err
		}
		return parentToTransport(parent), nil
	}
}

func decodeRegisterRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var request RegisterTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return request, nil
}

func decodeLoginRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var request LoginTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return request, nil
}

func decodeProfileRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var request ProfileTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, shared.InvalidPayload(err)
	}
	return request, nil
}

func parentToTransport(parent firebase.Parent) UserTransport {
	return UserTransport{
		Id:             parent.Id,
		Name:           parent.Name,
		Email:          parent.Email,
		Phone:          parent.Phone,
		Address:        parent.Address,
		Workplace:      parent.Workplace,
		WorkplacePhone: parent.WorkplacePhone,
		BirthDate:      parent.BirthDate,
	}
}

// encode errors from business-logic
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	switch errors.Cause(err) {
	case ErrInvalidEmail, ErrInvalidPasswordFormat, ErrMissingCredentials, shared.ErrInvalidDate, shared.ErrInvalidPayload,
		firebase.ErrInvalidEmail, firebase.ErrWeakPassword, firebase.ErrEmailAlreadyExists:
		w.WriteHeader(http.StatusBadRequest)
	case firebase.ErrWrongCredentials, ErrNotAuthenticated:
		w.WriteHeader(http.StatusUnauthorized)
	case firebase.ErrUserDisabled:
		w.WriteHeader(http.StatusForbidden)
	case firebase.ErrTooManyAttempts:
		w.WriteHeader(http.StatusTooManyRequests)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": userMessage(err),
	})
}

// userMessage drops the wrapping context of known errors.
func userMessage(err error) string {
	switch cause := errors.Cause(err); cause {
	case ErrInvalidEmail, ErrInvalidPasswordFormat, ErrMissingCredentials, ErrNotAuthenticated,
		firebase.ErrInvalidEmail, firebase.ErrWeakPassword, firebase.ErrEmailAlreadyExists,
		firebase.ErrWrongCredentials, firebase.ErrUserDisabled, firebase.ErrTooManyAttempts:
		return cause.Error()
	}
	return err.Error()
}
