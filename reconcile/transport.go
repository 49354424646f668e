package reconcile

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Vinubaba/TOUCH-API/claims"
	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/pkg/errors"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type HandlerFactory struct {
	Reconciler interface {
		SyncOwner(ctx context.Context, ownerId string) (Report, error)
	} `inject:""`
}

// Sync runs a full push and pull for the authenticated parent.
func (h *HandlerFactory) Sync(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		h.makeSyncEndpoint(),
		shared.IgnorePayload,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) makeSyncEndpoint() endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		ownerId := claims.GetUserId(ctx)
		if ownerId == "" {
			return nil, ErrNotAuthenticated
		}
		return h.Reconciler.SyncOwner(ctx, ownerId)
	}
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	switch errors.Cause(err) {
	case ErrNotAuthenticated:
		w.WriteHeader(http.StatusUnauthorized)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}
