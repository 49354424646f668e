package claims

import (
	"context"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

type contextKey string

const claimsKey contextKey = "claims"

// Claims identifies the parent behind a request.
type Claims struct {
	UserId string `mapstructure:"userId"`
	Email  string `mapstructure:"email"`
	Name   string `mapstructure:"name"`
}

// Decode reads claims from a token payload or firebase custom claims.
func Decode(raw map[string]interface{}) (Claims, error) {
	var c Claims
	if err := mapstructure.Decode(raw, &c); err != nil {
		return Claims{}, errors.Wrap(err, "failed to decode claims")
	}
	if c.UserId == "" {
		if sub, ok := raw["sub"].(string); ok {
			c.UserId = sub
		}
	}
	return c, nil
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func FromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}

func GetUserId(ctx context.Context) string {
	c, _ := FromContext(ctx)
	return c.UserId
}

func GetEmail(ctx context.Context) string {
	c, _ := FromContext(ctx)
	return c.Email
}
