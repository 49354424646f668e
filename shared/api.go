package shared

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

var ErrInvalidPayload = errors.New("invalid payload")

// InvalidPayload marks a request body that could not be decoded.
func InvalidPayload(err error) error {
	return errors.Wrap(ErrInvalidPayload, err.Error())
}

func NewError(description string) apiError {
	return apiError{
		Message: description,
	}
}

func HttpError(w http.ResponseWriter, error apiError, code int) {
	WriteJSON(w, error, code)
}

func WriteJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	switch v := data.(type) {
	case []byte:
		w.Write(v)
	case string:
		w.Write([]byte(v))
	default:
		json.NewEncoder(w).Encode(data)
	}
}

type apiError struct {
	Message string `json:"error"`
}
