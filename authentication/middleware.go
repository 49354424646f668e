package authentication

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Vinubaba/TOUCH-API/claims"
	. "github.com/Vinubaba/TOUCH-API/shared"

	"firebase.google.com/go/auth"
	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

var ErrInvalidToken = errors.New("invalid authorization token")

// accessTokenParam carries the token for clients that cannot set headers, websockets mostly.
const accessTokenParam = "access_token"

type Authenticator struct {
	FirebaseClient interface {
		VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	} `inject:""`
	Config *AppConfig `inject:""`
	Logger *Logger    `inject:""`

	// QueryTokenPaths are the only paths where the token may travel in the query string.
	QueryTokenPaths []string
}

// Firebase verifies the bearer token of every request outside excludePath and puts the parent claims in the context.
func (f *Authenticator) Firebase(next http.Handler, excludePath []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// Some route are public (users does not need to be authenticated)
		for _, path := range excludePath {
			if req.URL.Path == path {
				next.ServeHTTP(w, req)
				return
			}
		}

		ctx := req.Context()
		idToken, err := f.bearerToken(req)
		if err != nil {
			HttpError(w, NewError(err.Error()), http.StatusUnauthorized)
			return
		}

		var c claims.Claims
		if f.Config != nil && f.Config.TestAuthMode {
			c, err = ParseTestToken(f.Config.TestAuthSecret, idToken)
		} else {
			c, err = f.verifyFirebaseToken(ctx, idToken)
		}
		if err != nil {
			f.Logger.Debug(ctx, "rejected token", "err", err)
			HttpError(w, NewError(fmt.Sprintf("invalid authorization token: %s", errors.Cause(err).Error())), http.StatusUnauthorized)
			return
		}

		req = req.WithContext(claims.WithClaims(ctx, c))
		next.ServeHTTP(w, req)
	})
}

func (f *Authenticator) verifyFirebaseToken(ctx context.Context, idToken string) (claims.Claims, error) {
	token, err := f.FirebaseClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		return claims.Claims{}, err
	}
	c, err := claims.Decode(token.Claims)
	if err != nil {
		return claims.Claims{}, err
	}
	c.UserId = token.UID
	return c, nil
}

func (f *Authenticator) bearerToken(req *http.Request) (string, error) {
	authorizationHeader := req.Header.Get("authorization")
	if authorizationHeader == "" {
		if token := req.URL.Query().Get(accessTokenParam); token != "" && f.acceptsQueryToken(req.URL.Path) {
			return token, nil
		}
		return "", ErrInvalidToken
	}

	bearerToken := strings.Split(authorizationHeader, " ")
	if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "bearer") {
		return "", ErrInvalidToken
	}
	return bearerToken[1], nil
}

func (f *Authenticator) acceptsQueryToken(path string) bool {
	for _, p := range f.QueryTokenPaths {
		if path == p {
			return true
		}
	}
	return false
}

// ParseTestToken validates an HS256 token signed with the test secret.
func ParseTestToken(secret, tokenString string) (claims.Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("error token method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return claims.Claims{}, err
	}
	if !token.Valid {
		return claims.Claims{}, ErrInvalidToken
	}

	c, err := claims.Decode(token.Claims.(jwt.MapClaims))
	if err != nil {
		return claims.Claims{}, err
	}
	if c.UserId == "" {
		return claims.Claims{}, errors.Wrap(ErrInvalidToken, "no subject")
	}
	return c, nil
}

// SignTestToken issues a token accepted when the test authentication mode is on.
func SignTestToken(secret string, c claims.Claims, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   c.UserId,
		"email": c.Email,
		"name":  c.Name,
		"exp":   time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}
