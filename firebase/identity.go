package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/pkg/errors"
)

var (
	ErrServerBadRequest = errors.New("identity toolkit responded with bad request")
	ErrServerError      = errors.New("identity toolkit responded server error")
)

type SignInResult struct {
	IdToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalId      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
}

type identityError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// IdentityToolkit signs parents in with email and password through the Identity Toolkit REST API.
type IdentityToolkit struct {
	Config     *shared.AppConfig `inject:""`
	HttpClient *http.Client
}

func (c *IdentityToolkit) SignInWithPassword(ctx context.Context, email, password string) (SignInResult, error) {
	result := SignInResult{}
	body, err := json.Marshal(map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return result, errors.Wrap(err, "failed to json encode the request")
	}

	endpoint, err := url.Parse(strings.TrimSuffix(c.Config.IdentityToolkitUrl, "/") + "/accounts:signInWithPassword")
	if err != nil {
		return result, errors.Wrap(err, "invalid identity toolkit url")
	}
	query := endpoint.Query()
	query.Set("key", c.Config.FirebaseWebApiKey)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequest(http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return result, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.performRequest(ctx, req)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, errors.Wrap(err, "failed to decode json response")
	}
	return result, nil
}

func (c *IdentityToolkit) performRequest(ctx context.Context, r *http.Request) (*http.Response, error) {
	client := c.HttpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(r.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute the http request")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	b, _ := ioutil.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		return nil, errors.Wrapf(ErrServerError, "status code %v, body: %s", resp.StatusCode, b)
	}

	var identityErr identityError
	if err := json.Unmarshal(b, &identityErr); err == nil {
		if mapped := mapIdentityError(identityErr.Error.Message); mapped != nil {
			return nil, mapped
		}
	}
	return nil, errors.Wrapf(ErrServerBadRequest, "status code %v, body: %s", resp.StatusCode, b)
}

// Messages may carry a suffix, e.g. "WEAK_PASSWORD : Password should be at least 6 characters".
func mapIdentityError(message string) error {
	code := strings.TrimSpace(strings.SplitN(message, ":", 2)[0])
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return ErrWrongCredentials
	case "EMAIL_EXISTS":
		return ErrEmailAlreadyExists
	case "INVALID_EMAIL":
		return ErrInvalidEmail
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	case "USER_DISABLED":
		return ErrUserDisabled
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return ErrTooManyAttempts
	}
	return nil
}
