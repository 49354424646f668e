package mocks

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"
)

// MockStorage stands for the image storage of children documents.
// Get accepts a func(ctx, fileName) string return to build urls from the object name.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, b64image string, folder string) (string, error) {
	args := m.Called(ctx, b64image, folder)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, fileName string) (string, error) {
	args := m.Called(ctx, fileName)
	if build, ok := args.Get(0).(func(context.Context, string) string); ok {
		return build(ctx, fileName), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, fileName string) error {
	return m.Called(ctx, fileName).Error(0)
}

// StoredFolders lists the folders passed to Store, in call order.
func (m *MockStorage) StoredFolders() []string {
	folders := []string{}
	for _, call := range m.Calls {
		if call.Method == "Store" {
			folders = append(folders, call.Arguments.String(2))
		}
	}
	return folders
}

func (m *MockStorage) AssertStoredUnder(folder string) {
	It("should store the image under "+folder, func() {
		Expect(m.StoredFolders()).To(Equal([]string{folder}))
	})
}

// Reset drops expectations and recorded calls.
func (m *MockStorage) Reset() {
	m.Mock = mock.Mock{}
}
