package mocks

import (
	"context"

	"github.com/Vinubaba/TOUCH-API/firebase"

	"firebase.google.com/go/auth"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	args := m.Called(ctx, idToken)
	token, _ := args.Get(0).(*auth.Token)
	return token, args.Error(1)
}

func (m *MockClient) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	args := m.Called(ctx, uid)
	record, _ := args.Get(0).(*auth.UserRecord)
	return record, args.Error(1)
}

func (m *MockClient) CreateUser(ctx context.Context, email, password, displayName string) (*auth.UserRecord, error) {
	args := m.Called(ctx, email, password, displayName)
	record, _ := args.Get(0).(*auth.UserRecord)
	return record, args.Error(1)
}

func (m *MockClient) RevokeRefreshTokens(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *MockClient) DeleteUser(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) SignInWithPassword(ctx context.Context, email, password string) (firebase.SignInResult, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(firebase.SignInResult), args.Error(1)
}

type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) GetParent(ctx context.Context, uid string) (firebase.Parent, error) {
	args := m.Called(ctx, uid)
	return args.Get(0).(firebase.Parent), args.Error(1)
}

func (m *MockProfiles) SetParent(ctx context.Context, parent firebase.Parent) error {
	args := m.Called(ctx, parent)
	return args.Error(0)
}

// UserRecord builds the auth record firebase returns for a signed up parent.
func UserRecord(uid, email, displayName string) *auth.UserRecord {
	return &auth.UserRecord{
		UserInfo: &auth.UserInfo{
			UID:         uid,
			Email:       email,
			DisplayName: displayName,
		},
	}
}
