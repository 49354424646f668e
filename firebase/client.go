package firebase

import (
	"context"

	"firebase.google.com/go/auth"
	"github.com/pkg/errors"
)

var (
	ErrEmailAlreadyExists = errors.New("email already in use")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("weak password")
	ErrWrongCredentials   = errors.New("wrong email or password")
	ErrUserDisabled       = errors.New("user disabled")
	ErrTooManyAttempts    = errors.New("too many attempts")
)

// Client narrows the firebase admin auth client to what the service uses.
type Client struct {
	FirebaseClient *auth.Client `inject:""`
}

func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return c.FirebaseClient.VerifyIDToken(ctx, idToken)
}

func (c *Client) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	return c.FirebaseClient.GetUser(ctx, uid)
}

func (c *Client) CreateUser(ctx context.Context, email, password, displayName string) (*auth.UserRecord, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	record, err := c.FirebaseClient.CreateUser(ctx, params)
	if auth.IsEmailAlreadyExists(err) {
		return nil, ErrEmailAlreadyExists
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create firebase user")
	}
	return record, nil
}

func (c *Client) RevokeRefreshTokens(ctx context.Context, uid string) error {
	return c.FirebaseClient.RevokeRefreshTokens(ctx, uid)
}

func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	return c.FirebaseClient.DeleteUser(ctx, uid)
}
