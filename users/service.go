package users

import (
	"context"
	"strings"
	"time"

	"github.com/Vinubaba/TOUCH-API/claims"
	"github.com/Vinubaba/TOUCH-API/firebase"
	"github.com/Vinubaba/TOUCH-API/shared"

	"firebase.google.com/go/auth"
	"github.com/badoux/checkmail"
	"github.com/pkg/errors"
)

const minPasswordLength = 6

var (
	ErrInvalidEmail          = errors.New("invalid email")
	ErrInvalidPasswordFormat = errors.New("password must be at least 6 characters long")
	ErrMissingCredentials    = errors.New("email and password are mandatory")
	ErrNotAuthenticated      = errors.New("not authenticated")
)

type Service interface {
	Register(ctx context.Context, request RegisterTransport) (firebase.Parent, error)
	Login(ctx context.Context, request LoginTransport) (Session, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (firebase.Parent, error)
	UpdateProfile(ctx context.Context, update ProfileUpdate) (firebase.Parent, error)
}

type Session struct {
	IdToken      string
	RefreshToken string
	ExpiresIn    string
	User         firebase.Parent
}

// ProfileUpdate only touches the non nil fields.
type ProfileUpdate struct {
	Name           *string
	Phone          *string
	Address        *string
	Workplace      *string
	WorkplacePhone *string
	BirthDate      *string
}

type UserService struct {
	FirebaseClient interface {
		GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
		CreateUser(ctx context.Context, email, password, displayName string) (*auth.UserRecord, error)
		RevokeRefreshTokens(ctx context.Context, uid string) error
		DeleteUser(ctx context.Context, uid string) error
	} `inject:""`
	Identity interface {
		SignInWithPassword(ctx context.Context, email, password string) (firebase.SignInResult, error)
	} `inject:""`
	Profiles interface {
		GetParent(ctx context.Context, uid string) (firebase.Parent, error)
		SetParent(ctx context.Context, parent firebase.Parent) error
	} `inject:""`
	Workspaces interface {
		Close(ownerId string)
	} `inject:""`
	Clock interface {
		Now() time.Time
	} `inject:""`
	Logger *shared.Logger `inject:""`
}

func (s *UserService) Register(ctx context.Context, request RegisterTransport) (firebase.Parent, error) {
	email := strings.TrimSpace(request.Email)
	if err := checkmail.ValidateFormat(email); err != nil {
		return firebase.Parent{}, ErrInvalidEmail
	}
	if len(request.Password) < minPasswordLength {
		return firebase.Parent{}, ErrInvalidPasswordFormat
	}

	record, err := s.FirebaseClient.CreateUser(ctx, email, request.Password, request.Name)
	if err != nil {
		return firebase.Parent{}, errors.Wrap(err, "failed to register")
	}

	now := s.Clock.Now()
	parent := firebase.Parent{
		Id:        record.UID,
		Name:      request.Name,
		Email:     email,
		Phone:     request.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Profiles.SetParent(ctx, parent); err != nil {
		if err := s.FirebaseClient.DeleteUser(ctx, record.UID); err != nil {
			s.Logger.Warn(ctx, "failed to delete user after profile failure", "uid", record.UID, "err", err)
		}
		return firebase.Parent{}, errors.Wrap(err, "failed to register")
	}

	s.Logger.Info(ctx, "parent registered", "uid", record.UID)
	return parent, nil
}

func (s *UserService) Login(ctx context.Context, request LoginTransport) (Session, error) {
	if request.Email == "" || request.Password == "" {
		return Session{}, ErrMissingCredentials
	}

	result, err := s.Identity.SignInWithPassword(ctx, strings.TrimSpace(request.Email), request.Password)
	if err != nil {
		return Session{}, errors.Wrap(err, "failed to login")
	}

	parent, err := s.getParent(ctx, result.LocalId)
	if err != nil {
		return Session{}, errors.Wrap(err, "failed to login")
	}

	return Session{
		IdToken:      result.IdToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
		User:         parent,
	}, nil
}

func (s *UserService) Logout(ctx context.Context) error {
	uid := claims.GetUserId(ctx)
	if uid == "" {
		return ErrNotAuthenticated
	}
	if err := s.FirebaseClient.RevokeRefreshTokens(ctx, uid); err != nil {
		return errors.Wrap(err, "failed to logout")
	}
	s.Workspaces.Close(uid)
	return nil
}

func (s *UserService) Me(ctx context.Context) (firebase.Parent, error) {
	uid := claims.GetUserId(ctx)
	if uid == "" {
		return firebase.Parent{}, ErrNotAuthenticated
	}
	parent, err := s.getParent(ctx, uid)
	if err != nil {
		return firebase.Parent{}, errors.Wrap(err, "failed to get profile")
	}
	return parent, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, update ProfileUpdate) (firebase.Parent, error) {
	parent, err := s.Me(ctx)
	if err != nil {
		return firebase.Parent{}, err
	}

	if update.Name != nil {
		parent.Name = *update.Name
	}
	if update.Phone != nil {
		parent.Phone = *update.Phone
	}
	if update.Address != nil {
		parent.Address = *update.Address
	}
	if update.Workplace != nil {
		parent.Workplace = *update.Workplace
	}
	if update.WorkplacePhone != nil {
		parent.WorkplacePhone = *update.WorkplacePhone
	}
	if update.BirthDate != nil {
		parent.BirthDate = ""
		if *update.BirthDate != "" {
			if parent.BirthDate, err = shared.NormalizeDate(*update.BirthDate); err != nil {
				return firebase.Parent{}, err
			}
		}
	}
	parent.UpdatedAt = s.Clock.Now()
	if parent.CreatedAt.IsZero() {
		parent.CreatedAt = parent.UpdatedAt
	}

	if err := s.Profiles.SetParent(ctx, parent); err != nil {
		return firebase.Parent{}, errors.Wrap(err, "failed to update profile")
	}
	return parent, nil
}

// getParent falls back to the auth record when the profile document was never written.
func (s *UserService) getParent(ctx context.Context, uid string) (firebase.Parent, error) {
	parent, err := s.Profiles.GetParent(ctx, uid)
	if err == nil {
		return parent, nil
	}
	if errors.Cause(err) != firebase.ErrParentNotFound {
		return firebase.Parent{}, err
	}

	record, err := s.FirebaseClient.GetUser(ctx, uid)
	if err != nil {
		return firebase.Parent{}, err
	}
	return firebase.Parent{
		Id:    record.UID,
		Name:  record.DisplayName,
		Email: record.Email,
	}, nil
}
